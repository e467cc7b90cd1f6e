package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/cosmicpool/cosmicpool/client"
	"github.com/cosmicpool/cosmicpool/commitment"
	"github.com/cosmicpool/cosmicpool/types"
	"github.com/cosmicpool/cosmicpool/util"
)

const (
	schemeCmdFlag = "scheme"
	secretCmdFlag = "secret"
	outputCmdFlag = "output"
)

type depositFlags struct {
	KeyFile        string
	DeploymentFile string
	NodeURL        string
	Scheme         string
	Secret         string
	Output         string
}

func newDepositCmd(config *baseConfiguration) *cobra.Command {
	flags := &depositFlags{}
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposits the fixed amount with a commitment to a new or given secret",
		Long: `Computes the commitment H(secret) of a random (or given) secret and deposits the
fixed amount with it. The secret is saved for the reveal, keep the output file safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return depositRun(cmd.Context(), config, flags)
		},
	}
	addKeyFileFlag(cmd, &flags.KeyFile)
	addDeploymentFlag(cmd, &flags.DeploymentFile)
	addNodeURLFlag(cmd, &flags.NodeURL)
	addSchemeFlags(cmd, &flags.Scheme, &flags.Secret)
	cmd.Flags().StringVarP(&flags.Output, outputCmdFlag, "o", "", fmt.Sprintf("file the deposit secret is saved to (default $CP_HOME/%s)", defaultTestDepositFile))
	return cmd
}

func addSchemeFlags(cmd *cobra.Command, scheme, secret *string) {
	cmd.Flags().StringVar(scheme, schemeCmdFlag, string(commitment.Keccak256), fmt.Sprintf("commitment hash function, one of: %v", commitment.Schemes()))
	cmd.Flags().StringVar(secret, secretCmdFlag, "", "hex encoded secret, a random 32 byte secret is generated when not set")
}

// newCommitment returns the secret and the commitment to it.
func newCommitment(schemeName, secretHex string) ([]byte, commitment.Scheme, types.Commitment, error) {
	scheme, err := commitment.ParseScheme(schemeName)
	if err != nil {
		return nil, "", types.Commitment{}, err
	}
	var secret []byte
	if secretHex != "" {
		if secret, err = hexutil.Decode(secretHex); err != nil {
			return nil, "", types.Commitment{}, fmt.Errorf("invalid secret: %w", err)
		}
	} else if secret, err = commitment.NewSecret(scheme); err != nil {
		return nil, "", types.Commitment{}, err
	}
	cm, err := commitment.Compute(scheme, secret)
	if err != nil {
		return nil, "", types.Commitment{}, err
	}
	return secret, scheme, cm, nil
}

func depositRun(ctx context.Context, config *baseConfiguration, flags *depositFlags) error {
	key, err := loadAccountKey(config.keyFile(flags.KeyFile))
	if err != nil {
		return err
	}
	dep, err := loadDeployment(config.deploymentFile(flags.DeploymentFile))
	if err != nil {
		return err
	}
	c, err := client.New(flags.NodeURL)
	if err != nil {
		return err
	}
	info, err := c.GetInfo(ctx)
	if err != nil {
		return err
	}
	if info.Address != dep.Address {
		return fmt.Errorf("node serves ledger %s, deployment record is for %s", info.Address, dep.Address)
	}
	amount, err := types.ParseWei(info.DepositAmount)
	if err != nil {
		return fmt.Errorf("invalid deposit amount from node: %w", err)
	}

	secret, scheme, cm, err := newCommitment(flags.Scheme, flags.Secret)
	if err != nil {
		return err
	}
	consoleWriter.Println("Depositing", types.FormatEther(amount), "ETH from", key.Address.Hex(), "with commitment", cm.String())
	depositCount, err := c.Deposit(ctx, key, dep.Address, cm, amount)
	if err != nil {
		return err
	}

	exists, err := c.HasCommitment(ctx, cm)
	if err != nil {
		return err
	}
	count, err := c.GetDepositCount(ctx)
	if err != nil {
		return err
	}
	balance, err := c.GetBalance(ctx)
	if err != nil {
		return err
	}
	consoleWriter.Println("Commitment exists:", exists)
	consoleWriter.Println("Deposit count:", count)
	consoleWriter.Println("Ledger balance:", types.FormatEther(balance), "ETH")

	file := flags.Output
	if file == "" {
		file = defaultTestDepositFile
	}
	file = config.pathInHome(file)
	rec := &types.TestDepositRecord{
		Secret:       hexutil.Encode(secret),
		Commitment:   cm,
		Scheme:       string(scheme),
		DepositCount: depositCount,
		Timestamp:    time.Now().UTC(),
	}
	if err := util.WriteJsonFile(file, rec); err != nil {
		return fmt.Errorf("saving deposit secret: %w", err)
	}
	consoleWriter.Println("Deposit secret saved to:", file)
	return nil
}
