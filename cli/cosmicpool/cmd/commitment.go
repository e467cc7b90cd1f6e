package cmd

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

func newCommitmentCmd() *cobra.Command {
	var scheme, secret string
	cmd := &cobra.Command{
		Use:   "commitment",
		Short: "Computes the commitment H(secret) for a new or given secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, sch, cm, err := newCommitment(scheme, secret)
			if err != nil {
				return err
			}
			consoleWriter.Println("Scheme:", string(sch))
			consoleWriter.Println("Secret:", hexutil.Encode(s))
			consoleWriter.Println("Commitment:", cm.String())
			return nil
		},
	}
	addSchemeFlags(cmd, &scheme, &secret)
	return cmd
}
