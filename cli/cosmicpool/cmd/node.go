package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ainvaltin/httpsrv"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/cosmicpool/cosmicpool/custody"
	"github.com/cosmicpool/cosmicpool/indexer"
	"github.com/cosmicpool/cosmicpool/internal/debug"
	"github.com/cosmicpool/cosmicpool/keyvaluedb/boltdb"
	"github.com/cosmicpool/cosmicpool/logger"
	"github.com/cosmicpool/cosmicpool/pool"
	"github.com/cosmicpool/cosmicpool/rpc"
	"github.com/cosmicpool/cosmicpool/types"
	"github.com/cosmicpool/cosmicpool/util"
)

const (
	custodyMemory = "memory"
	custodyEVM    = "evm"

	defaultCustodyDir = "custody"
	shutdownTimeout   = 5 * time.Second

	serverAddressCmdFlag = "address"
	custodyCmdFlag       = "custody"
	custodyDirCmdFlag    = "custody-dir"
	maxBodySizeCmdFlag   = "max-body-size"
	fundCmdFlag          = "fund"
	indexDBCmdFlag       = "index-db"
	allowEmptyCmdFlag    = "allow-empty-custody"

	// logger context key naming the ledger a node serves
	ledgerLogKey = "ledger"
)

var log = logger.CreateForPackage()

type (
	nodeFlags struct {
		Address        string
		DBFile         string
		DeploymentFile string
		Custody        string
		CustodyDir     string
		MaxBodySize    int64
		Fund           map[string]string
		IndexDB        string
		AllowEmpty     bool
	}

	nodeCustody interface {
		custody.Custody
		custody.Accounts
	}
)

func newNodeCmd(config *baseConfiguration) *cobra.Command {
	flags := &nodeFlags{}
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Runs the commitment ledger node serving the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return nodeRun(cmd.Context(), config, flags)
		},
	}
	addDeploymentFlag(cmd, &flags.DeploymentFile)
	cmd.Flags().StringVar(&flags.Address, serverAddressCmdFlag, defaultNodeURL, "address the REST API listens on")
	cmd.Flags().StringVar(&flags.DBFile, dbCmdFlag, "", fmt.Sprintf("path to the ledger database (default $CP_HOME/%s)", defaultLedgerDBFile))
	cmd.Flags().StringVar(&flags.Custody, custodyCmdFlag, custodyMemory, fmt.Sprintf("custody substrate holding the deposited value, one of: %s, %s", custodyMemory, custodyEVM))
	cmd.Flags().StringVar(&flags.CustodyDir, custodyDirCmdFlag, "", fmt.Sprintf("state directory of the %s custody (default $CP_HOME/%s)", custodyEVM, defaultCustodyDir))
	cmd.Flags().Int64Var(&flags.MaxBodySize, maxBodySizeCmdFlag, rpc.DefaultMaxBodyBytes, "maximum number of bytes the server reads from a request body")
	cmd.Flags().StringToStringVar(&flags.Fund, fundCmdFlag, nil, "genesis allocation <address>=<ETH>, applied only when the custody state is created")
	cmd.Flags().StringVar(&flags.IndexDB, indexDBCmdFlag, "", "run the deposit indexer in-process writing to the given SQLite file")
	cmd.Flags().BoolVar(&flags.AllowEmpty, allowEmptyCmdFlag, false, fmt.Sprintf("start with %s custody even when the ledger has recorded deposits", custodyMemory))
	return cmd
}

func nodeRun(ctx context.Context, config *baseConfiguration, flags *nodeFlags) error {
	dep, err := loadDeployment(config.deploymentFile(flags.DeploymentFile))
	if err != nil {
		return err
	}
	logger.SetContext(ledgerLogKey, dep.Address.Hex())
	defer logger.ClearContext(ledgerLogKey)

	cus, fresh, err := newCustody(flags.Custody, config.custodyDir(flags.CustodyDir), dep.Address)
	if err != nil {
		return err
	}
	defer func() {
		if c, ok := cus.(*custody.EVM); ok {
			if err := c.Close(); err != nil {
				log.Warning("closing custody state: %v", err)
			}
		}
	}()
	if fresh {
		if err := fundAccounts(ctx, cus, flags.Fund); err != nil {
			return err
		}
	} else if len(flags.Fund) > 0 {
		log.Warning("custody state exists, --%s ignored", fundCmdFlag)
	}

	db, err := boltdb.New(config.ledgerDBFile(flags.DBFile))
	if err != nil {
		return fmt.Errorf("opening ledger database: %w", err)
	}
	defer db.Close()

	ledger, err := pool.Open(db, cus)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	if ledgerAddress(ledger.Owner()) != dep.Address {
		return fmt.Errorf("deployment record %s does not belong to the ledger in %s", dep.ID, db.Path())
	}
	if flags.Custody == custodyMemory && ledger.DepositCount() > 0 {
		if !flags.AllowEmpty {
			return fmt.Errorf("%s custody does not hold the value of the %d recorded deposits, use %s custody or --%s",
				custodyMemory, ledger.DepositCount(), custodyEVM, allowEmptyCmdFlag)
		}
		log.Warning("%s custody does not hold the value of the %d recorded deposits", custodyMemory, ledger.DepositCount())
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		conf := rpc.DefaultServerConfiguration(flags.Address)
		conf.MaxBodyBytes = flags.MaxBodySize
		log.Info("ledger %s REST API starting on %s, BuildInfo=%s", dep.Address, conf.Address, debug.BuildInfo())
		return httpsrv.Run(ctx, rpc.NewRESTServer(conf, log, rpc.LedgerEndpoints(ledger, log)), httpsrv.ShutdownTimeout(shutdownTimeout))
	})

	if flags.IndexDB != "" {
		store, err := indexer.OpenStore(config.pathInHome(flags.IndexDB))
		if err != nil {
			return fmt.Errorf("opening index database: %w", err)
		}
		defer store.Close()
		g.Go(func() error {
			return indexer.New(store, &indexer.LedgerSource{Ledger: ledger}, log).Run(ctx)
		})
	}

	return g.Wait()
}

func (r *baseConfiguration) custodyDir(dir string) string {
	if dir == "" {
		return filepath.Join(r.HomeDir, defaultCustodyDir)
	}
	return r.pathInHome(dir)
}

// newCustody returns the custody substrate and whether its state was just created.
func newCustody(kind, dir string, address common.Address) (nodeCustody, bool, error) {
	switch kind {
	case custodyMemory:
		return custody.NewMemory(address), true, nil
	case custodyEVM:
		fresh := !util.FileExists(dir)
		c, err := custody.NewEVM(dir, address)
		if err != nil {
			return nil, false, fmt.Errorf("opening %s custody: %w", custodyEVM, err)
		}
		return c, fresh, nil
	default:
		return nil, false, fmt.Errorf("unknown custody %q, expected %s or %s", kind, custodyMemory, custodyEVM)
	}
}

func fundAccounts(ctx context.Context, accounts custody.Accounts, alloc map[string]string) error {
	addrs := maps.Keys(alloc)
	slices.Sort(addrs)
	var errs []error
	for _, a := range addrs {
		if !common.IsHexAddress(a) {
			errs = append(errs, fmt.Errorf("invalid %s address %q", fundCmdFlag, a))
			continue
		}
		amount, err := types.ParseEther(alloc[a])
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s amount for %s: %w", fundCmdFlag, a, err))
			continue
		}
		addr := common.HexToAddress(a)
		if err := accounts.Fund(ctx, addr, amount); err != nil {
			errs = append(errs, fmt.Errorf("funding %s: %w", addr, err))
			continue
		}
		log.Info("funded %s with %s ETH", addr, types.FormatEther(amount))
	}
	return errors.Join(errs...)
}
