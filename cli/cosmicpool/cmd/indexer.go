package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cosmicpool/cosmicpool/client"
	"github.com/cosmicpool/cosmicpool/indexer"
	"github.com/cosmicpool/cosmicpool/types"
)

const (
	defaultIndexDBFile = "index.db"

	fromCmdFlag  = "from"
	limitCmdFlag = "limit"
)

type indexerFlags struct {
	NodeURL    string
	IndexDB    string
	Commitment string
	From       uint64
	Limit      int
}

func newIndexerCmd(config *baseConfiguration) *cobra.Command {
	flags := &indexerFlags{}
	cmd := &cobra.Command{
		Use:   "indexer",
		Short: "Indexes the deposit events of a node into SQLite",
	}
	cmd.PersistentFlags().StringVar(&flags.IndexDB, indexDBCmdFlag, "", fmt.Sprintf("path to the index database (default $CP_HOME/%s)", defaultIndexDBFile))

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Follows the event stream of a node until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return indexerRun(cmd.Context(), config, flags)
		},
	}
	addNodeURLFlag(runCmd, &flags.NodeURL)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Lists indexed deposits or looks up a commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return indexerQuery(cmd.Context(), config, flags)
		},
	}
	queryCmd.Flags().StringVarP(&flags.Commitment, commitmentCmdFlag, "c", "", "hex encoded commitment to look up")
	queryCmd.Flags().Uint64Var(&flags.From, fromCmdFlag, 1, "first deposit sequence number to list")
	queryCmd.Flags().IntVar(&flags.Limit, limitCmdFlag, 100, "maximum number of deposits to list")

	cmd.AddCommand(runCmd, queryCmd)
	return cmd
}

func (r *baseConfiguration) indexDBFile(file string) string {
	if file == "" {
		return filepath.Join(r.HomeDir, defaultIndexDBFile)
	}
	return r.pathInHome(file)
}

func indexerRun(ctx context.Context, config *baseConfiguration, flags *indexerFlags) error {
	c, err := client.New(flags.NodeURL)
	if err != nil {
		return err
	}
	store, err := indexer.OpenStore(config.indexDBFile(flags.IndexDB))
	if err != nil {
		return fmt.Errorf("opening index database: %w", err)
	}
	defer store.Close()

	log.Info("indexing deposits of %s", c.BaseUrl)
	return indexer.New(store, &indexer.RemoteSource{Client: c}, log).Run(ctx)
}

func indexerQuery(ctx context.Context, config *baseConfiguration, flags *indexerFlags) error {
	store, err := indexer.OpenStore(config.indexDBFile(flags.IndexDB))
	if err != nil {
		return fmt.Errorf("opening index database: %w", err)
	}
	defer store.Close()

	if flags.Commitment != "" {
		cm, err := types.ParseCommitment(flags.Commitment)
		if err != nil {
			return err
		}
		rec, found, err := store.Commitment(ctx, cm)
		if err != nil {
			return err
		}
		if !found {
			consoleWriter.Println("Commitment", cm.String(), "not indexed")
			return nil
		}
		printRecord(rec)
		return nil
	}

	recs, err := store.Records(ctx, flags.From, flags.Limit)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		printRecord(rec)
	}
	return nil
}

func printRecord(rec *indexer.Record) {
	consoleWriter.Printf("#%d %s %s wei indexed at %s\n", rec.Seq, rec.Commitment, rec.Amount, rec.IndexedAt.Format("2006-01-02 15:04:05"))
}
