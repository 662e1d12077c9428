package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"missionledger/crypto"
)

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.PubKey().Address().String()
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8645", cfg.RPCAddress)
	require.Equal(t, uint64(100), cfg.Genesis.GlobalMultiplier)
	require.Equal(t, cfg.Genesis.Owner, cfg.Genesis.RewardDistributor)

	owner, err := cfg.OwnerAddress()
	require.NoError(t, err)
	require.NotEqual(t, [20]byte{}, owner)
}

func TestLoadExistingAppliesDefaults(t *testing.T) {
	owner := testAddress(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[Genesis]
Owner = "`+owner+`"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8645", cfg.RPCAddress)
	require.Equal(t, owner, cfg.Genesis.RewardDistributor)
	require.Equal(t, uint64(100), cfg.Genesis.GlobalMultiplier)
	require.Equal(t, "missionledger-local", cfg.NetworkName)
}

func TestValidateRejectsBadMultiplier(t *testing.T) {
	owner := testAddress(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[Genesis]
Owner = "`+owner+`"
GlobalMultiplier = 9999
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsBadOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[Genesis]
Owner = "not-an-address"
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestAchievementTable(t *testing.T) {
	owner := testAddress(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[Genesis]
Owner = "`+owner+`"

[[Achievement]]
ID = 1
Name = "First Steps"
PointsRequired = 1

[[Achievement]]
ID = 2
Name = "Community Star"
PointsRequired = 400
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	table := cfg.AchievementTable()
	require.Len(t, table, 2)
	require.Equal(t, uint64(400), table[1].PointsRequired)
}

func TestAchievementTableFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.AchievementTable(), 4)
}

func TestPauseView(t *testing.T) {
	owner := testAddress(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
PausedModules = ["Missions"]

[Genesis]
Owner = "`+owner+`"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	view := cfg.PauseView()
	require.True(t, view.IsPaused("missions"))
	require.False(t, view.IsPaused("points"))
}
