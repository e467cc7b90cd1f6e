package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type (
	/*
		LedgerState is the persisted state layout of the commitment ledger, used
		by tooling which snapshots and restores the ledger. Commitments are listed
		in insertion order.
	*/
	LedgerState struct {
		Owner         common.Address `json:"owner"`
		DepositAmount string         `json:"depositAmount"` // wei
		Commitments   []Commitment   `json:"commitments"`
		DepositCount  uint64         `json:"depositCount"`
	}

	// DeploymentRecord is written by the deploy command for operational tracking only.
	DeploymentRecord struct {
		ID            string         `json:"id"`
		Network       string         `json:"network"`
		Contract      string         `json:"contract"`
		Address       common.Address `json:"address"`
		Deployer      common.Address `json:"deployer"`
		Timestamp     time.Time      `json:"timestamp"`
		DepositAmount string         `json:"depositAmount"`
	}

	// TestDepositRecord keeps the secret of a deposit made by the deposit command.
	TestDepositRecord struct {
		Secret       string     `json:"secret"`
		Commitment   Commitment `json:"commitment"`
		Scheme       string     `json:"scheme"`
		DepositCount uint64     `json:"depositCount"`
		Timestamp    time.Time  `json:"timestamp"`
	}
)
