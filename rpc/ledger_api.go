package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/cosmicpool/cosmicpool/account"
	"github.com/cosmicpool/cosmicpool/logger"
	"github.com/cosmicpool/cosmicpool/pool"
	_ "github.com/cosmicpool/cosmicpool/rpc/docs"
	"github.com/cosmicpool/cosmicpool/types"
)

const (
	paramCommitment = "commitment"
	paramSeq        = "seq"
	paramFrom       = "from"
	paramLimit      = "limit"

	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

type (
	// Ledger is the part of pool.Ledger used by the API.
	Ledger interface {
		Deposit(ctx context.Context, caller common.Address, c types.Commitment, value *uint256.Int) (uint64, error)
		HasCommitment(c types.Commitment) bool
		DepositCount() uint64
		Balance(ctx context.Context) (*uint256.Int, error)
		DepositAmount() *uint256.Int
		Owner() common.Address
		Address() common.Address
		DrainNonce() uint64
		EmergencyDrainWithNonce(ctx context.Context, caller common.Address, nonce uint64) (*uint256.Int, error)
		Events(from uint64, limit int) ([]*types.DepositEvent, error)
		Subscribe() *pool.Subscription
	}

	ledgerAPI struct {
		ledger Ledger
		rw     *ResponseWriter
		log    logger.Logger
	}
)

// LedgerEndpoints registers the commitment ledger REST API.
func LedgerEndpoints(ledger Ledger, log logger.Logger) RegistrarFunc {
	api := &ledgerAPI{ledger: ledger, rw: &ResponseWriter{log: log}, log: log}
	return func(r *mux.Router) {
		r.HandleFunc("/info", api.getInfo).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/commitments/{commitment}", api.getCommitment).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/deposit-count", api.getDepositCount).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/balance", api.getBalance).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/deposits", api.postDeposit).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/drain", api.postDrain).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/events", api.getEvents).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/events/{seq:[0-9]+}", api.getEvent).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/events/ws", api.eventStream).Methods(http.MethodGet)

		r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
			httpSwagger.URL("/api/v1/swagger/doc.json"),
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("list"),
			httpSwagger.DomID("swagger-ui"),
		)).Methods(http.MethodGet)
	}
}

func (api *ledgerAPI) getInfo(w http.ResponseWriter, r *http.Request) {
	balance, err := api.ledger.Balance(r.Context())
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, &InfoResponse{
		Owner:         api.ledger.Owner(),
		Address:       api.ledger.Address(),
		DepositAmount: types.FormatWei(api.ledger.DepositAmount()),
		DepositCount:  api.ledger.DepositCount(),
		Balance:       types.FormatWei(balance),
		DrainNonce:    api.ledger.DrainNonce(),
	})
}

func (api *ledgerAPI) getCommitment(w http.ResponseWriter, r *http.Request) {
	c, err := types.ParseCommitment(mux.Vars(r)[paramCommitment])
	if err != nil {
		api.rw.InvalidParamResponse(w, paramCommitment, err)
		return
	}
	api.rw.WriteResponse(w, &CommitmentResponse{Commitment: c, Exists: api.ledger.HasCommitment(c)})
}

func (api *ledgerAPI) getDepositCount(w http.ResponseWriter, r *http.Request) {
	api.rw.WriteResponse(w, &DepositCountResponse{DepositCount: api.ledger.DepositCount()})
}

func (api *ledgerAPI) getBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := api.ledger.Balance(r.Context())
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, &BalanceResponse{Balance: types.FormatWei(balance)})
}

func (api *ledgerAPI) postDeposit(w http.ResponseWriter, r *http.Request) {
	req := &DepositRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		api.rw.ErrorResponse(w, http.StatusBadRequest, fmt.Errorf("failed to decode request body: %w", err))
		return
	}
	value, err := types.ParseWei(req.Value)
	if err != nil {
		api.rw.InvalidParamResponse(w, "value", err)
		return
	}
	caller, err := account.RecoverSigner(DepositSigPayload(api.ledger.Address(), req.Commitment, req.Value), req.Signature)
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	count, err := api.ledger.Deposit(r.Context(), caller, req.Commitment, value)
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, &DepositResponse{DepositCount: count})
}

func (api *ledgerAPI) postDrain(w http.ResponseWriter, r *http.Request) {
	req := &DrainRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		api.rw.ErrorResponse(w, http.StatusBadRequest, fmt.Errorf("failed to decode request body: %w", err))
		return
	}
	caller, err := account.RecoverSigner(DrainSigPayload(api.ledger.Address(), req.Nonce), req.Signature)
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	amount, err := api.ledger.EmergencyDrainWithNonce(r.Context(), caller, req.Nonce)
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	api.rw.WriteResponse(w, &DrainResponse{Amount: types.FormatWei(amount)})
}

func (api *ledgerAPI) getEvents(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	from, err := parseUint(qp.Get(paramFrom), 1)
	if err != nil {
		api.rw.InvalidParamResponse(w, paramFrom, err)
		return
	}
	limit, err := parseMaxResponseItems(qp.Get(paramLimit), defaultEventsLimit)
	if err != nil {
		api.rw.InvalidParamResponse(w, paramLimit, err)
		return
	}
	events, err := api.ledger.Events(from, limit)
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	rsp := make([]*EventResponse, 0, len(events))
	for _, ev := range events {
		rsp = append(rsp, NewEventResponse(ev))
	}
	api.rw.WriteResponse(w, rsp)
}

// getEvent returns the event of deposit number seq.
func (api *ledgerAPI) getEvent(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.ParseUint(mux.Vars(r)[paramSeq], 10, 64)
	if err != nil {
		api.rw.InvalidParamResponse(w, paramSeq, err)
		return
	}
	events, err := api.ledger.Events(seq, 1)
	if err != nil {
		api.rw.WriteErrorResponse(w, err)
		return
	}
	if len(events) == 0 || events[0].DepositCount != seq {
		api.rw.WriteErrorResponse(w, fmt.Errorf("deposit event %d: %w", seq, ErrNotFound))
		return
	}
	api.rw.WriteResponse(w, NewEventResponse(events[0]))
}

func parseUint(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func parseMaxResponseItems(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("value must be greater than zero, got %d", v)
	}
	if v > maxEventsLimit {
		return maxEventsLimit, nil
	}
	return v, nil
}
