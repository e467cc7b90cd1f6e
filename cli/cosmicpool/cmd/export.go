package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/cosmicpool/cosmicpool/custody"
	"github.com/cosmicpool/cosmicpool/keyvaluedb/boltdb"
	"github.com/cosmicpool/cosmicpool/pool"
	"github.com/cosmicpool/cosmicpool/util"
)

type exportFlags struct {
	DBFile string
	Output string
}

func newExportCmd(config *baseConfiguration) *cobra.Command {
	flags := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Writes the ledger state snapshot as JSON",
		Long:  "Writes the ledger state snapshot as JSON. The node must not be running as it holds the database lock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportRun(config, flags)
		},
	}
	cmd.Flags().StringVar(&flags.DBFile, dbCmdFlag, "", fmt.Sprintf("path to the ledger database (default $CP_HOME/%s)", defaultLedgerDBFile))
	cmd.Flags().StringVarP(&flags.Output, outputCmdFlag, "o", "", "output file, state is printed when not set")
	return cmd
}

func exportRun(config *baseConfiguration, flags *exportFlags) error {
	file := config.ledgerDBFile(flags.DBFile)
	if !util.FileExists(file) {
		return fmt.Errorf("ledger database %s not found", file)
	}
	db, err := boltdb.New(file)
	if err != nil {
		return fmt.Errorf("opening ledger database: %w", err)
	}
	defer db.Close()

	// the snapshot does not include custody balances
	ledger, err := pool.Open(db, custody.NewMemory(common.Address{}))
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	st := ledger.State()
	if flags.Output != "" {
		out := config.pathInHome(flags.Output)
		if err := util.WriteJsonFile(out, st); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		consoleWriter.Println("Ledger state written to:", out)
		return nil
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	consoleWriter.Println(string(b))
	return nil
}
