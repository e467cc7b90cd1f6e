package rpc

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/cosmicpool/cosmicpool/logger"
)

const (
	headerContentType = "Content-Type"
	applicationJson   = "application/json"

	DefaultMaxBodyBytes int64 = 65536 // 64KB
)

var allowedCORSHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Origin", headerContentType}

type (
	// Registrar registers new HTTP handlers for given router.
	Registrar interface {
		Register(r *mux.Router)
	}

	// RegistrarFunc type is an adapter to allow the use of ordinary function as Registrar.
	RegistrarFunc func(r *mux.Router)

	// ServerConfiguration is the configuration of the REST server.
	ServerConfiguration struct {
		// Address specifies the TCP address for the server to listen on, in the form "host:port".
		Address string

		// ReadTimeout is the maximum duration for reading the entire request, including the body.
		ReadTimeout time.Duration

		// ReadHeaderTimeout is the amount of time allowed to read request headers.
		ReadHeaderTimeout time.Duration

		// WriteTimeout is the maximum duration before timing out writes of the response. Websocket
		// connections are not affected, their deadlines are managed per message.
		WriteTimeout time.Duration

		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alive is enabled.
		IdleTimeout time.Duration

		// MaxBodyBytes controls the maximum number of bytes the server will read parsing the request body.
		MaxBodyBytes int64
	}
)

func DefaultServerConfiguration(addr string) *ServerConfiguration {
	return &ServerConfiguration{
		Address:           addr,
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxBodyBytes:      DefaultMaxBodyBytes,
	}
}

func (c *ServerConfiguration) IsAddressEmpty() bool {
	return strings.TrimSpace(c.Address) == ""
}

func NewRESTServer(conf *ServerConfiguration, log logger.Logger, registrars ...Registrar) http.Server {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(http.NotFound)
	apiV1Router := r.PathPrefix("/api/v1").Subrouter()
	apiV1Router.Use(handlers.CORS(handlers.AllowedHeaders(allowedCORSHeaders)), logRequests(log))

	for _, registrar := range registrars {
		registrar.Register(apiV1Router)
	}

	maxBody := conf.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return http.Server{
		Addr:              conf.Address,
		ReadTimeout:       conf.ReadTimeout,
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		WriteTimeout:      conf.WriteTimeout,
		IdleTimeout:       conf.IdleTimeout,
		Handler:           http.MaxBytesHandler(r, maxBody),
	}
}

func (f RegistrarFunc) Register(r *mux.Router) {
	f(r)
}
