package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config mirrors the appliance's config.toml layout.
type Config struct {
	App      App      `toml:"app"`
	Security Security `toml:"security"`
	TLS      TLS      `toml:"tls"`
}

type App struct {
	Name       string `toml:"name"`
	ListenAddr string `toml:"listen_addr"`
	SecretKey  string `toml:"secret_key"`
}

type Security struct {
	IdleTimeoutSeconds int    `toml:"idle_timeout"`
	MasterKeyFile      string `toml:"master_key_file"`
	VaultDir           string `toml:"vault_dir"`
	DBFile             string `toml:"db_file"`
	Argon2TimeCost     uint32 `toml:"argon2_time_cost"`
	Argon2MemoryCost   uint32 `toml:"argon2_memory_cost"`
	Argon2Parallelism  uint8  `toml:"argon2_parallelism"`
}

type TLS struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

// Load parses the TOML file and fills defaults for anything unset.
func Load(path string) (Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.setDefaults()
	if c.App.SecretKey == "" {
		return Config{}, fmt.Errorf("config: app.secret_key required")
	}
	return c, nil
}

// Default returns the built-in configuration used when no file is given
// (development only: the token secret is predictable).
func Default() Config {
	var c Config
	c.setDefaults()
	c.App.SecretKey = "vaultusb-dev-secret"
	return c
}

func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "VaultUSB"
	}
	if c.App.ListenAddr == "" {
		c.App.ListenAddr = ":8000"
	}
	if c.Security.IdleTimeoutSeconds <= 0 {
		c.Security.IdleTimeoutSeconds = 600
	}
	if c.Security.MasterKeyFile == "" {
		c.Security.MasterKeyFile = "/opt/vaultusb/master.key"
	}
	if c.Security.VaultDir == "" {
		c.Security.VaultDir = "/opt/vaultusb/vault"
	}
	if c.Security.DBFile == "" {
		c.Security.DBFile = "/opt/vaultusb/vault.db"
	}
	if c.Security.Argon2TimeCost == 0 {
		c.Security.Argon2TimeCost = 3
	}
	if c.Security.Argon2MemoryCost == 0 {
		c.Security.Argon2MemoryCost = 64 * 1024
	}
	if c.Security.Argon2Parallelism == 0 {
		c.Security.Argon2Parallelism = 1
	}
}

func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.Security.IdleTimeoutSeconds) * time.Second
}
