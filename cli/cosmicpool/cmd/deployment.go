package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/cosmicpool/cosmicpool/account"
	"github.com/cosmicpool/cosmicpool/types"
	"github.com/cosmicpool/cosmicpool/util"
)

const (
	defaultDeploymentFile  = "deployment.json"
	defaultTestDepositFile = "test-deposit.json"
	defaultLedgerDBFile    = "ledger.db"
	defaultNodeURL         = "localhost:9654"

	contractName = "CommitmentLedger"

	keyFileCmdFlag    = "key-file"
	deploymentCmdFlag = "deployment"
	dbCmdFlag         = "db"
	nodeURLCmdFlag    = "node-url"
)

// ledgerAddress is the custody account of the ledger, derived the same way as
// the address of a contract created by the deployer's first transaction.
func ledgerAddress(deployer common.Address) common.Address {
	return crypto.CreateAddress(deployer, 0)
}

func addKeyFileFlag(cmd *cobra.Command, file *string) {
	cmd.Flags().StringVarP(file, keyFileCmdFlag, "k", "", fmt.Sprintf("path to the key file (default $CP_HOME/%s)", account.KeyFileName))
}

func addDeploymentFlag(cmd *cobra.Command, file *string) {
	cmd.Flags().StringVar(file, deploymentCmdFlag, "", fmt.Sprintf("path to the deployment record (default $CP_HOME/%s)", defaultDeploymentFile))
}

func addNodeURLFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, nodeURLCmdFlag, "u", defaultNodeURL, "cosmicpool node REST API url")
}

func (r *baseConfiguration) keyFile(file string) string {
	if file == "" {
		return filepath.Join(r.HomeDir, account.KeyFileName)
	}
	return r.pathInHome(file)
}

func (r *baseConfiguration) deploymentFile(file string) string {
	if file == "" {
		return filepath.Join(r.HomeDir, defaultDeploymentFile)
	}
	return r.pathInHome(file)
}

func (r *baseConfiguration) ledgerDBFile(file string) string {
	if file == "" {
		return filepath.Join(r.HomeDir, defaultLedgerDBFile)
	}
	return r.pathInHome(file)
}

func loadAccountKey(file string) (*account.AccountKey, error) {
	keys, err := account.LoadKeys(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load keys %s: %w", file, err)
	}
	return keys.AccountKey, nil
}

func loadDeployment(file string) (*types.DeploymentRecord, error) {
	rec, err := util.ReadJsonFile(file, &types.DeploymentRecord{})
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment record: %w", err)
	}
	return rec, nil
}
