package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cosmicpool/cosmicpool/account"
	"github.com/cosmicpool/cosmicpool/rpc"
	"github.com/cosmicpool/cosmicpool/types"
)

const (
	InfoPath         = "api/v1/info"
	CommitmentsPath  = "api/v1/commitments"
	DepositCountPath = "api/v1/deposit-count"
	BalancePath      = "api/v1/balance"
	DepositsPath     = "api/v1/deposits"
	DrainPath        = "api/v1/drain"
	EventsPath       = "api/v1/events"
	EventStreamPath  = "api/v1/events/ws"

	clientUserAgent = "CosmicPool API Client/0.1"
	contentType     = "Content-Type"
	applicationJson = "application/json"
)

// ErrAPI is returned (wrapped) for non-OK responses, use errors.As with *APIError to get details.
var ErrAPI = errors.New("api error")

type (
	LedgerClient struct {
		BaseUrl    *url.URL
		HttpClient http.Client

		infoURL         *url.URL
		commitmentsURL  *url.URL
		depositCountURL *url.URL
		balanceURL      *url.URL
		depositsURL     *url.URL
		drainURL        *url.URL
		eventsURL       *url.URL
	}

	APIError struct {
		StatusCode int
		Message    string
	}
)

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrAPI, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrAPI
}

func New(baseUrl string) (*LedgerClient, error) {
	if !strings.HasPrefix(baseUrl, "http://") && !strings.HasPrefix(baseUrl, "https://") {
		baseUrl = "http://" + baseUrl
	}
	u, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("error parsing ledger API base URL (%s): %w", baseUrl, err)
	}
	return &LedgerClient{
		BaseUrl:         u,
		HttpClient:      http.Client{Timeout: time.Minute},
		infoURL:         u.JoinPath(InfoPath),
		commitmentsURL:  u.JoinPath(CommitmentsPath),
		depositCountURL: u.JoinPath(DepositCountPath),
		balanceURL:      u.JoinPath(BalancePath),
		depositsURL:     u.JoinPath(DepositsPath),
		drainURL:        u.JoinPath(DrainPath),
		eventsURL:       u.JoinPath(EventsPath),
	}, nil
}

func (c *LedgerClient) GetInfo(ctx context.Context) (*rpc.InfoResponse, error) {
	res := &rpc.InfoResponse{}
	if err := c.do(ctx, http.MethodGet, c.infoURL, nil, res); err != nil {
		return nil, fmt.Errorf("get info request failed: %w", err)
	}
	return res, nil
}

func (c *LedgerClient) HasCommitment(ctx context.Context, cm types.Commitment) (bool, error) {
	res := &rpc.CommitmentResponse{}
	if err := c.do(ctx, http.MethodGet, c.commitmentsURL.JoinPath(cm.String()), nil, res); err != nil {
		return false, fmt.Errorf("get commitment request failed: %w", err)
	}
	return res.Exists, nil
}

func (c *LedgerClient) GetDepositCount(ctx context.Context) (uint64, error) {
	res := &rpc.DepositCountResponse{}
	if err := c.do(ctx, http.MethodGet, c.depositCountURL, nil, res); err != nil {
		return 0, fmt.Errorf("get deposit count request failed: %w", err)
	}
	return res.DepositCount, nil
}

func (c *LedgerClient) GetBalance(ctx context.Context) (*uint256.Int, error) {
	res := &rpc.BalanceResponse{}
	if err := c.do(ctx, http.MethodGet, c.balanceURL, nil, res); err != nil {
		return nil, fmt.Errorf("get balance request failed: %w", err)
	}
	return types.ParseWei(res.Balance)
}

// Deposit signs and submits a deposit of value for commitment cm.
func (c *LedgerClient) Deposit(ctx context.Context, key *account.AccountKey, ledger common.Address, cm types.Commitment, value *uint256.Int) (uint64, error) {
	wei := types.FormatWei(value)
	sig, err := key.Sign(rpc.DepositSigPayload(ledger, cm, wei))
	if err != nil {
		return 0, fmt.Errorf("signing deposit: %w", err)
	}
	res := &rpc.DepositResponse{}
	req := &rpc.DepositRequest{Commitment: cm, Value: wei, Signature: sig}
	if err := c.do(ctx, http.MethodPost, c.depositsURL, req, res); err != nil {
		return 0, fmt.Errorf("deposit request failed: %w", err)
	}
	return res.DepositCount, nil
}

// EmergencyDrain signs and submits a drain request with the given nonce.
func (c *LedgerClient) EmergencyDrain(ctx context.Context, key *account.AccountKey, ledger common.Address, nonce uint64) (*uint256.Int, error) {
	sig, err := key.Sign(rpc.DrainSigPayload(ledger, nonce))
	if err != nil {
		return nil, fmt.Errorf("signing drain: %w", err)
	}
	res := &rpc.DrainResponse{}
	if err := c.do(ctx, http.MethodPost, c.drainURL, &rpc.DrainRequest{Nonce: nonce, Signature: sig}, res); err != nil {
		return nil, fmt.Errorf("drain request failed: %w", err)
	}
	return types.ParseWei(res.Amount)
}

// GetEvents returns at most limit events starting from sequence number from.
func (c *LedgerClient) GetEvents(ctx context.Context, from uint64, limit int) ([]*rpc.EventResponse, error) {
	addr := *c.eventsURL
	q := addr.Query()
	q.Set("from", strconv.FormatUint(from, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	addr.RawQuery = q.Encode()
	var res []*rpc.EventResponse
	if err := c.do(ctx, http.MethodGet, &addr, nil, &res); err != nil {
		return nil, fmt.Errorf("get events request failed: %w", err)
	}
	return res, nil
}

// EventStreamURL returns the websocket URL of the event stream starting at from.
func (c *LedgerClient) EventStreamURL(from uint64) string {
	u := *c.BaseUrl.JoinPath(EventStreamPath)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"from": []string{strconv.FormatUint(from, 10)}}.Encode()
	return u.String()
}

/*
do executes the request and decodes JSON response body into "data" (which has
to be a pointer of the data type expected in the response). Non-OK responses
are returned as *APIError.
*/
func (c *LedgerClient) do(ctx context.Context, method string, addr *url.URL, body, data any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, addr.String(), rdr)
	if err != nil {
		return fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", clientUserAgent)
	if body != nil {
		req.Header.Set(contentType, applicationJson)
	}

	rsp, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to ledger API failed: %w", err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: rsp.StatusCode}
		er := &rpc.ErrorResponse{}
		if err := json.NewDecoder(rsp.Body).Decode(er); err == nil {
			apiErr.Message = er.Message
		} else {
			apiErr.Message = http.StatusText(rsp.StatusCode)
		}
		return apiErr
	}
	if err := json.NewDecoder(rsp.Body).Decode(data); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
