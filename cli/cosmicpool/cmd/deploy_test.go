package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cosmicpool/cosmicpool/account"
	"github.com/cosmicpool/cosmicpool/types"
	"github.com/cosmicpool/cosmicpool/util"
)

func setupKeys(t *testing.T, homeDir string) *account.AccountKey {
	t.Helper()
	_, err := execCmd(context.Background(), t, homeDir, "keys", "--mnemonic", testMnemonic)
	require.NoError(t, err)
	key, err := loadAccountKey(filepath.Join(homeDir, account.KeyFileName))
	require.NoError(t, err)
	return key
}

func TestDeploy(t *testing.T) {
	ctx := context.Background()
	homeDir := t.TempDir()

	_, err := execCmd(ctx, t, homeDir, "deploy")
	require.ErrorContains(t, err, "failed to load keys")

	key := setupKeys(t, homeDir)
	out, err := execCmd(ctx, t, homeDir, "deploy")
	require.NoError(t, err)
	require.Contains(t, out, "Deposit amount: 0.0001 ETH")

	rec, err := loadDeployment(filepath.Join(homeDir, defaultDeploymentFile))
	require.NoError(t, err)
	require.Equal(t, contractName, rec.Contract)
	require.Equal(t, defaultNetwork, rec.Network)
	require.Equal(t, key.Address, rec.Deployer)
	require.Equal(t, ledgerAddress(key.Address), rec.Address)
	require.Equal(t, "0.0001 ETH", rec.DepositAmount)
	require.False(t, rec.Timestamp.IsZero())
	_, err = uuid.Parse(rec.ID)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(homeDir, defaultLedgerDBFile))

	t.Run("construction happens once", func(t *testing.T) {
		_, err := execCmd(ctx, t, homeDir, "deploy", "--deployment", "other.json")
		require.ErrorContains(t, err, "ledger already deployed")
		require.NoFileExists(t, filepath.Join(homeDir, "other.json"))
	})

	t.Run("invalid deposit amount", func(t *testing.T) {
		_, err := execCmd(ctx, t, homeDir, "deploy", "--db", "zero.db", "--deposit-amount", "0")
		require.ErrorContains(t, err, "deposit amount must be positive")
		_, err = execCmd(ctx, t, homeDir, "deploy", "--db", "bad.db", "--deposit-amount", "0.0000000000000000001")
		require.ErrorIs(t, err, types.ErrInvalidAmount)
	})
}

func TestExportAndRestore(t *testing.T) {
	ctx := context.Background()
	homeDir := t.TempDir()
	key := setupKeys(t, homeDir)

	_, err := execCmd(ctx, t, homeDir, "export")
	require.ErrorContains(t, err, "not found")

	_, err = execCmd(ctx, t, homeDir, "deploy", "--deposit-amount", "0.5")
	require.NoError(t, err)

	out, err := execCmd(ctx, t, homeDir, "export")
	require.NoError(t, err)
	require.Contains(t, out, `"depositAmount": "500000000000000000"`)

	_, err = execCmd(ctx, t, homeDir, "export", "-o", "state.json")
	require.NoError(t, err)
	st, err := util.ReadJsonFile(filepath.Join(homeDir, "state.json"), &types.LedgerState{})
	require.NoError(t, err)
	require.Equal(t, key.Address, st.Owner)
	require.Equal(t, "500000000000000000", st.DepositAmount)
	require.Zero(t, st.DepositCount)

	_, err = execCmd(ctx, t, homeDir, "deploy", "--db", "restored.db", "--deployment", "restored.json", "--from-snapshot", "state.json")
	require.NoError(t, err)
	rec, err := loadDeployment(filepath.Join(homeDir, "restored.json"))
	require.NoError(t, err)
	require.Equal(t, "0.5 ETH", rec.DepositAmount)

	t.Run("snapshot of another owner", func(t *testing.T) {
		st.Owner[0] ^= 0xff
		require.NoError(t, util.WriteJsonFile(filepath.Join(homeDir, "foreign.json"), st))
		_, err := execCmd(ctx, t, homeDir, "deploy", "--db", "foreign.db", "--from-snapshot", "foreign.json")
		require.ErrorContains(t, err, "is not the deployer")
	})
}
