package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cosmicpool/cosmicpool/client"
	"github.com/cosmicpool/cosmicpool/types"
)

const commitmentCmdFlag = "commitment"

type statusFlags struct {
	NodeURL    string
	Commitment string
}

func newStatusCmd(config *baseConfiguration) *cobra.Command {
	flags := &statusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Shows the state of the ledger served by a node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusRun(cmd.Context(), flags)
		},
	}
	addNodeURLFlag(cmd, &flags.NodeURL)
	cmd.Flags().StringVarP(&flags.Commitment, commitmentCmdFlag, "c", "", "hex encoded commitment to look up")
	return cmd
}

func statusRun(ctx context.Context, flags *statusFlags) error {
	var cm types.Commitment
	if flags.Commitment != "" {
		var err error
		if cm, err = types.ParseCommitment(flags.Commitment); err != nil {
			return err
		}
	}
	c, err := client.New(flags.NodeURL)
	if err != nil {
		return err
	}
	info, err := c.GetInfo(ctx)
	if err != nil {
		return err
	}
	amount, err := types.ParseWei(info.DepositAmount)
	if err != nil {
		return err
	}
	balance, err := types.ParseWei(info.Balance)
	if err != nil {
		return err
	}
	consoleWriter.Println("Ledger:", info.Address.Hex())
	consoleWriter.Println("Owner:", info.Owner.Hex())
	consoleWriter.Println("Deposit amount:", types.FormatEther(amount), "ETH")
	consoleWriter.Println("Deposit count:", info.DepositCount)
	consoleWriter.Println("Balance:", types.FormatEther(balance), "ETH")
	if flags.Commitment == "" {
		return nil
	}
	exists, err := c.HasCommitment(ctx, cm)
	if err != nil {
		return err
	}
	consoleWriter.Println("Commitment", cm.String(), "exists:", exists)
	return nil
}
