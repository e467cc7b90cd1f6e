package rpc

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/cosmicpool/cosmicpool/types"
)

// Amounts are decimal strings in wei.
type (
	InfoResponse struct {
		Owner         common.Address `json:"owner"`
		Address       common.Address `json:"address"`
		DepositAmount string         `json:"depositAmount"`
		DepositCount  uint64         `json:"depositCount,string"`
		Balance       string         `json:"balance"`
		DrainNonce    uint64         `json:"drainNonce,string"`
	}

	CommitmentResponse struct {
		Commitment types.Commitment `json:"commitment"`
		Exists     bool             `json:"exists"`
	}

	DepositCountResponse struct {
		DepositCount uint64 `json:"depositCount,string"`
	}

	BalanceResponse struct {
		Balance string `json:"balance"`
	}

	DepositRequest struct {
		Commitment types.Commitment `json:"commitment"`
		Value      string           `json:"value"`
		Signature  hexutil.Bytes    `json:"signature"`
	}

	DepositResponse struct {
		DepositCount uint64 `json:"depositCount,string"`
	}

	DrainRequest struct {
		Nonce     uint64        `json:"nonce,string"`
		Signature hexutil.Bytes `json:"signature"`
	}

	DrainResponse struct {
		Amount string `json:"amount"`
	}

	EventResponse struct {
		Commitment   types.Commitment `json:"commitment"`
		Amount       string           `json:"amount"`
		DepositCount uint64           `json:"depositCount,string"`
	}

	depositSigPayload struct {
		_          struct{} `cbor:",toarray"`
		Ledger     []byte
		Commitment []byte
		Value      string
	}

	drainSigPayload struct {
		_      struct{} `cbor:",toarray"`
		Ledger []byte
		Nonce  uint64
	}
)

/*
DepositSigPayload returns the payload signed by the depositor. The custody
address of the ledger is included so a signature is only valid for one ledger.
*/
func DepositSigPayload(ledger common.Address, c types.Commitment, value string) any {
	return &depositSigPayload{Ledger: ledger.Bytes(), Commitment: c.Bytes(), Value: value}
}

// DrainSigPayload returns the payload signed by the owner to drain.
func DrainSigPayload(ledger common.Address, nonce uint64) any {
	return &drainSigPayload{Ledger: ledger.Bytes(), Nonce: nonce}
}

func NewEventResponse(ev *types.DepositEvent) *EventResponse {
	return &EventResponse{
		Commitment:   ev.Commitment,
		Amount:       types.FormatWei(ev.Amount),
		DepositCount: ev.DepositCount,
	}
}
