package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"missionledger/crypto"
	"missionledger/native/points"
)

// Config is the daemon configuration, loaded from TOML.
type Config struct {
	RPCAddress    string   `toml:"RPCAddress"`
	DataDir       string   `toml:"DataDir"`
	NetworkName   string   `toml:"NetworkName"`
	Environment   string   `toml:"Environment"`
	PausedModules []string `toml:"PausedModules"`

	Genesis      Genesis             `toml:"Genesis"`
	Achievements []AchievementConfig `toml:"Achievement"`
}

// Genesis seeds the identity and config store on first start.
type Genesis struct {
	Owner             string `toml:"Owner"`
	RewardDistributor string `toml:"RewardDistributor"`
	GlobalMultiplier  uint64 `toml:"GlobalMultiplier"`
}

// AchievementConfig is one milestone row of the static achievement table.
type AchievementConfig struct {
	ID             uint32 `toml:"ID"`
	Name           string `toml:"Name"`
	Description    string `toml:"Description"`
	PointsRequired uint64 `toml:"PointsRequired"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg, path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, path string) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = filepath.Join(filepath.Dir(path), "data")
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "missionledger-local"
	}
	if cfg.Genesis.GlobalMultiplier == 0 {
		cfg.Genesis.GlobalMultiplier = 100
	}
	if strings.TrimSpace(cfg.Genesis.RewardDistributor) == "" {
		cfg.Genesis.RewardDistributor = cfg.Genesis.Owner
	}
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	if _, err := c.OwnerAddress(); err != nil {
		return fmt.Errorf("config: invalid genesis owner: %w", err)
	}
	if _, err := c.DistributorAddress(); err != nil {
		return fmt.Errorf("config: invalid genesis distributor: %w", err)
	}
	if c.Genesis.GlobalMultiplier < points.MinMultiplier || c.Genesis.GlobalMultiplier > points.MaxMultiplier {
		return fmt.Errorf("config: genesis multiplier %d outside [%d, %d]",
			c.Genesis.GlobalMultiplier, points.MinMultiplier, points.MaxMultiplier)
	}
	seen := make(map[uint32]struct{}, len(c.Achievements))
	for _, row := range c.Achievements {
		if row.ID == 0 {
			return fmt.Errorf("config: achievement id must be positive")
		}
		if _, dup := seen[row.ID]; dup {
			return fmt.Errorf("config: duplicate achievement id %d", row.ID)
		}
		seen[row.ID] = struct{}{}
		if strings.TrimSpace(row.Name) == "" {
			return fmt.Errorf("config: achievement %d missing name", row.ID)
		}
		if row.PointsRequired == 0 {
			return fmt.Errorf("config: achievement %d requires a positive threshold", row.ID)
		}
	}
	return nil
}

// OwnerAddress decodes the genesis owner identity.
func (c *Config) OwnerAddress() ([20]byte, error) {
	return decode20(c.Genesis.Owner)
}

// DistributorAddress decodes the genesis distributor identity.
func (c *Config) DistributorAddress() ([20]byte, error) {
	return decode20(c.Genesis.RewardDistributor)
}

func decode20(bech string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(bech))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

// AchievementTable converts the configured rows into the engine table,
// falling back to the built-in defaults when none are configured.
func (c *Config) AchievementTable() []points.Achievement {
	if len(c.Achievements) == 0 {
		return points.DefaultAchievements()
	}
	table := make([]points.Achievement, 0, len(c.Achievements))
	for _, row := range c.Achievements {
		table = append(table, points.Achievement{
			ID:             row.ID,
			Name:           row.Name,
			Description:    row.Description,
			PointsRequired: row.PointsRequired,
		})
	}
	return table
}

// PauseView exposes the statically configured pause switches.
func (c *Config) PauseView() PauseSet {
	set := make(PauseSet, len(c.PausedModules))
	for _, module := range c.PausedModules {
		set[strings.ToLower(strings.TrimSpace(module))] = struct{}{}
	}
	return set
}

// PauseSet is a static module pause view loaded from configuration.
type PauseSet map[string]struct{}

// IsPaused implements the native/common.PauseView interface.
func (s PauseSet) IsPaused(module string) bool {
	_, paused := s[strings.ToLower(module)]
	return paused
}

// createDefault creates and saves a default configuration file. A fresh owner
// key is generated so local deployments start usable.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	owner := key.PubKey().Address().String()

	cfg := &Config{
		RPCAddress:  ":8645",
		DataDir:     filepath.Join(filepath.Dir(path), "data"),
		NetworkName: "missionledger-local",
		Genesis: Genesis{
			Owner:             owner,
			RewardDistributor: owner,
			GlobalMultiplier:  100,
		},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
