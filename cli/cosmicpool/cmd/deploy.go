package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cosmicpool/cosmicpool/custody"
	"github.com/cosmicpool/cosmicpool/keyvaluedb/boltdb"
	"github.com/cosmicpool/cosmicpool/pool"
	"github.com/cosmicpool/cosmicpool/types"
	"github.com/cosmicpool/cosmicpool/util"
)

const (
	defaultNetwork       = "local"
	defaultDepositAmount = "0.0001"

	networkCmdFlag       = "network"
	depositAmountCmdFlag = "deposit-amount"
	fromSnapshotCmdFlag  = "from-snapshot"
)

type deployFlags struct {
	KeyFile        string
	DBFile         string
	DeploymentFile string
	Network        string
	DepositAmount  string
	FromSnapshot   string
}

func newDeployCmd(config *baseConfiguration) *cobra.Command {
	flags := &deployFlags{}
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Constructs the commitment ledger owned by the key file account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return deployRun(config, flags)
		},
	}
	addKeyFileFlag(cmd, &flags.KeyFile)
	addDeploymentFlag(cmd, &flags.DeploymentFile)
	cmd.Flags().StringVar(&flags.DBFile, dbCmdFlag, "", fmt.Sprintf("path to the ledger database (default $CP_HOME/%s)", defaultLedgerDBFile))
	cmd.Flags().StringVar(&flags.Network, networkCmdFlag, defaultNetwork, "name of the network, recorded in the deployment record")
	cmd.Flags().StringVar(&flags.DepositAmount, depositAmountCmdFlag, defaultDepositAmount, "the fixed deposit amount in ETH")
	cmd.Flags().StringVar(&flags.FromSnapshot, fromSnapshotCmdFlag, "", "restore the ledger from a state snapshot written by the export command")
	return cmd
}

func deployRun(config *baseConfiguration, flags *deployFlags) error {
	key, err := loadAccountKey(config.keyFile(flags.KeyFile))
	if err != nil {
		return err
	}
	address := ledgerAddress(key.Address)

	db, err := boltdb.New(config.ledgerDBFile(flags.DBFile))
	if err != nil {
		return fmt.Errorf("opening ledger database: %w", err)
	}
	defer db.Close()

	ledger, err := constructLedger(config, flags, db, custody.NewMemory(address), key.Address)
	if errors.Is(err, pool.ErrAlreadyConstructed) {
		return fmt.Errorf("ledger already deployed in %s", db.Path())
	}
	if err != nil {
		return fmt.Errorf("constructing ledger: %w", err)
	}

	rec := &types.DeploymentRecord{
		ID:            uuid.NewString(),
		Network:       flags.Network,
		Contract:      contractName,
		Address:       address,
		Deployer:      key.Address,
		Timestamp:     time.Now().UTC(),
		DepositAmount: types.FormatEther(ledger.DepositAmount()) + " ETH",
	}
	file := config.deploymentFile(flags.DeploymentFile)
	if err := util.WriteJsonFile(file, rec); err != nil {
		return fmt.Errorf("writing deployment record: %w", err)
	}
	consoleWriter.Println("Ledger deployed to:", address.Hex())
	consoleWriter.Println("Deposit amount:", rec.DepositAmount)
	consoleWriter.Println("Deployment record:", file)
	return nil
}

func constructLedger(config *baseConfiguration, flags *deployFlags, db *boltdb.BoltDB, cus custody.Custody, owner common.Address) (*pool.Ledger, error) {
	if flags.FromSnapshot == "" {
		amount, err := types.ParseEther(flags.DepositAmount)
		if err != nil {
			return nil, fmt.Errorf("invalid deposit amount: %w", err)
		}
		return pool.New(db, cus, owner, pool.WithDepositAmount(amount))
	}
	st, err := util.ReadJsonFile(config.pathInHome(flags.FromSnapshot), &types.LedgerState{})
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if st.Owner != owner {
		return nil, fmt.Errorf("snapshot owner %s is not the deployer %s", st.Owner, owner)
	}
	return pool.Restore(db, cus, st)
}
