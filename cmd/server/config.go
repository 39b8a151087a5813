package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/luisarboleda17/socket-server/server"
)

// config.toml key mapping to server configuration.
type fileConfig struct {
	Address      string `toml:"address"`
	Network      string `toml:"network"`
	Workers      int    `toml:"workers"`
	AdminAddress string `toml:"admin_address"`
}

func defaultConfig() server.Config {
	return server.Config{
		Address: "127.0.0.1:5564",
		Network: server.NetworkTCP,
		Workers: 1,
	}
}

// loadConfig overlays the TOML file on the defaults. An empty path
// returns the defaults.
func loadConfig(path string) (server.Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.Config{}, fmt.Errorf("load server config: %w", err)
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("network") {
		cfg.Network = strings.TrimSpace(raw.Network)
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("admin_address") {
		cfg.AdminAddress = strings.TrimSpace(raw.AdminAddress)
	}
	return cfg, nil
}
