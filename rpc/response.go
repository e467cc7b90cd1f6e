package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cosmicpool/cosmicpool/account"
	"github.com/cosmicpool/cosmicpool/custody"
	"github.com/cosmicpool/cosmicpool/logger"
	"github.com/cosmicpool/cosmicpool/pool"
)

type (
	ErrorResponse struct {
		Message string `json:"message"`
	}

	ResponseWriter struct {
		log logger.Logger
	}
)

var ErrNotFound = errors.New("not found")

func (rw *ResponseWriter) WriteResponse(w http.ResponseWriter, data any) {
	w.Header().Set(headerContentType, applicationJson)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rw.log.Warning("failed to encode response data as json: %v", err)
	}
}

// WriteErrorResponse maps ledger errors to http status codes, unknown errors
// are logged and reported as internal errors.
func (rw *ResponseWriter) WriteErrorResponse(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pool.ErrWrongAmount), errors.Is(err, pool.ErrCustodyCaller):
		rw.ErrorResponse(w, http.StatusBadRequest, err)
	case errors.Is(err, pool.ErrDuplicateCommitment), errors.Is(err, pool.ErrStaleNonce):
		rw.ErrorResponse(w, http.StatusConflict, err)
	case errors.Is(err, pool.ErrUnauthorized):
		rw.ErrorResponse(w, http.StatusForbidden, err)
	case errors.Is(err, custody.ErrInsufficientFunds):
		rw.ErrorResponse(w, http.StatusPaymentRequired, err)
	case errors.Is(err, account.ErrInvalidSignature):
		rw.ErrorResponse(w, http.StatusUnauthorized, err)
	case errors.Is(err, ErrNotFound):
		rw.ErrorResponse(w, http.StatusNotFound, err)
	default:
		rw.log.Error("request failed: %v", err)
		rw.ErrorResponse(w, http.StatusInternalServerError, err)
	}
}

func (rw *ResponseWriter) InvalidParamResponse(w http.ResponseWriter, name string, err error) {
	rw.ErrorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid parameter %q: %w", name, err))
}

func (rw *ResponseWriter) ErrorResponse(w http.ResponseWriter, code int, err error) {
	w.Header().Set(headerContentType, applicationJson)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: err.Error()}); err != nil {
		rw.log.Warning("failed to encode error response as json: %v", err)
	}
}
