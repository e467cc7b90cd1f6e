package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmicpool/cosmicpool/client"
	"github.com/cosmicpool/cosmicpool/types"
)

type drainFlags struct {
	KeyFile        string
	DeploymentFile string
	NodeURL        string
}

func newDrainCmd(config *baseConfiguration) *cobra.Command {
	flags := &drainFlags{}
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Transfers the entire ledger balance to the owner",
		Long:  "Emergency drain, only the ledger owner can execute it. Recorded commitments are not affected.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return drainRun(cmd.Context(), config, flags)
		},
	}
	addKeyFileFlag(cmd, &flags.KeyFile)
	addDeploymentFlag(cmd, &flags.DeploymentFile)
	addNodeURLFlag(cmd, &flags.NodeURL)
	return cmd
}

func drainRun(ctx context.Context, config *baseConfiguration, flags *drainFlags) error {
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
	if info.Owner != key.Address {
		return fmt.Errorf("account %s is not the ledger owner %s", key.Address, info.Owner)
	}
	amount, err := c.EmergencyDrain(ctx, key, dep.Address, info.DrainNonce+1)
	if err != nil {
		return err
	}
	consoleWriter.Println("Drained", types.FormatEther(amount), "ETH to", key.Address.Hex())
	return nil
}
