package cmd

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/cosmicpool/cosmicpool/client"
	"github.com/cosmicpool/cosmicpool/commitment"
	"github.com/cosmicpool/cosmicpool/custody"
	"github.com/cosmicpool/cosmicpool/indexer"
	"github.com/cosmicpool/cosmicpool/keyvaluedb/boltdb"
	"github.com/cosmicpool/cosmicpool/pool"
	"github.com/cosmicpool/cosmicpool/types"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestNode(t *testing.T) {
	homeDir := t.TempDir()
	key := setupKeys(t, homeDir)
	_, err := execCmd(context.Background(), t, homeDir, "deploy")
	require.NoError(t, err)

	addr := freeAddress(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		app := New()
		app.baseCmd.SetArgs([]string{"node", "--home", homeDir, "--log-file", "discard",
			"--address", addr,
			"--custody", custodyEVM,
			"--fund", fmt.Sprintf("%s=1.5", key.Address.Hex()),
			"--index-db", "index.db",
		})
		done <- app.Execute(ctx)
	}()

	c, err := client.New(addr)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := c.GetInfo(context.Background())
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	info, err := c.GetInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, key.Address, info.Owner)
	require.Equal(t, ledgerAddress(key.Address), info.Address)

	secret, err := commitment.NewSecret(commitment.Keccak256)
	require.NoError(t, err)
	cm, err := commitment.Compute(commitment.Keccak256, secret)
	require.NoError(t, err)
	amount, err := types.ParseWei(info.DepositAmount)
	require.NoError(t, err)
	n, err := c.Deposit(context.Background(), key, info.Address, cm, amount)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// let the in-process indexer catch up before stopping the node
	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			require.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("node did not stop")
	}

	store, err := indexer.OpenStore(filepath.Join(homeDir, "index.db"))
	require.NoError(t, err)
	defer store.Close()
	rec, found, err := store.Commitment(context.Background(), cm)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 1, rec.Seq)

	// custody state was persisted, the funding is not applied again
	evm, err := custody.NewEVM(filepath.Join(homeDir, defaultCustodyDir), info.Address)
	require.NoError(t, err)
	defer evm.Close()
	balance, err := evm.BalanceOf(context.Background(), key.Address)
	require.NoError(t, err)
	want, err := types.ParseEther("1.4999")
	require.NoError(t, err)
	require.Equal(t, want, balance)
	ledgerBalance, err := evm.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, amount, ledgerBalance)
}

func TestNode_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not deployed", func(t *testing.T) {
		_, err := execCmd(ctx, t, t.TempDir(), "node")
		require.ErrorContains(t, err, "failed to load deployment record")
	})

	t.Run("unknown custody", func(t *testing.T) {
		homeDir := t.TempDir()
		setupKeys(t, homeDir)
		_, err := execCmd(ctx, t, homeDir, "deploy")
		require.NoError(t, err)
		_, err = execCmd(ctx, t, homeDir, "node", "--custody", "bank")
		require.ErrorContains(t, err, `unknown custody "bank"`)
	})

	t.Run("memory custody over recorded deposits", func(t *testing.T) {
		homeDir := t.TempDir()
		key := setupKeys(t, homeDir)
		_, err := execCmd(ctx, t, homeDir, "deploy")
		require.NoError(t, err)

		// a deposit made against a custody which is gone after the restart
		db, err := boltdb.New(filepath.Join(homeDir, defaultLedgerDBFile))
		require.NoError(t, err)
		cus := custody.NewMemory(ledgerAddress(key.Address))
		amount, err := types.ParseEther("1")
		require.NoError(t, err)
		require.NoError(t, cus.Fund(ctx, key.Address, amount))
		l, err := pool.Open(db, cus)
		require.NoError(t, err)
		cm, err := commitment.Compute(commitment.Keccak256, make([]byte, 32))
		require.NoError(t, err)
		_, err = l.Deposit(ctx, key.Address, cm, l.DepositAmount())
		require.NoError(t, err)
		require.NoError(t, db.Close())

		_, err = execCmd(ctx, t, homeDir, "node", "--custody", custodyMemory)
		require.ErrorContains(t, err, "memory custody does not hold the value of the 1 recorded deposits")
		require.ErrorContains(t, err, "--allow-empty-custody")

		// explicitly allowed, the node starts and stops with the context
		stopped, cancel := context.WithCancel(ctx)
		cancel()
		_, err = execCmd(stopped, t, homeDir, "node", "--custody", custodyMemory, "--allow-empty-custody", "--address", freeAddress(t))
		if err != nil {
			require.NotContains(t, err.Error(), "recorded deposits")
		}
	})
}

func TestFundAccounts(t *testing.T) {
	const (
		funded  = "0x00000000000000000000000000000000000000f1"
		invalid = "0x00000000000000000000000000000000000000f2"
	)
	cus := custody.NewMemory(ledgerAddress(common.HexToAddress(funded)))
	err := fundAccounts(context.Background(), cus, map[string]string{
		funded:   "2",
		"0x1234": "1",
		invalid:  "-1",
	})
	require.ErrorContains(t, err, `invalid fund address "0x1234"`)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	balance, err := cus.BalanceOf(context.Background(), common.HexToAddress(funded))
	require.NoError(t, err)
	want, err := types.ParseEther("2")
	require.NoError(t, err)
	require.Equal(t, want, balance)
}
