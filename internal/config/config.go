package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/keybridge/internal/bridge"
	"github.com/danmuck/keybridge/internal/protocol"
)

// NetlinkProtocolDefault is the bridge's private netlink protocol family.
const NetlinkProtocolDefault = 19

// Config is the daemon runtime configuration.
type Config struct {
	NetlinkProtocol int
	MaxFrameBytes   uint32
	ErrorThreshold  int
	StorePath       string
	LockPath        string
	PassphraseFile  string
	MetricsAddr     string
}

func Default() Config {
	return Config{
		NetlinkProtocol: NetlinkProtocolDefault,
		MaxFrameBytes:   protocol.DefaultLimits().MaxFrameBytes,
		ErrorThreshold:  bridge.DefaultErrorThreshold,
		StorePath:       "/var/lib/keybridge/keys.db",
		LockPath:        "/run/keybridge/keybridged.lock",
		PassphraseFile:  "/etc/keybridge/passphrase",
		MetricsAddr:     "",
	}
}

type fileConfig struct {
	NetlinkProtocol int    `toml:"netlink_protocol"`
	MaxFrameBytes   uint32 `toml:"max_frame_bytes"`
	ErrorThreshold  int    `toml:"error_threshold"`
	StorePath       string `toml:"store_path"`
	LockPath        string `toml:"lock_path"`
	PassphraseFile  string `toml:"passphrase_file"`
	MetricsAddr     string `toml:"metrics_addr"`
}

// Load reads a TOML config file over the defaults. Keys absent from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load keybridged config: %w", err)
	}

	if meta.IsDefined("netlink_protocol") {
		cfg.NetlinkProtocol = raw.NetlinkProtocol
	}
	if meta.IsDefined("max_frame_bytes") {
		cfg.MaxFrameBytes = raw.MaxFrameBytes
	}
	if meta.IsDefined("error_threshold") {
		cfg.ErrorThreshold = raw.ErrorThreshold
	}
	if meta.IsDefined("store_path") {
		cfg.StorePath = strings.TrimSpace(raw.StorePath)
	}
	if meta.IsDefined("lock_path") {
		cfg.LockPath = strings.TrimSpace(raw.LockPath)
	}
	if meta.IsDefined("passphrase_file") {
		cfg.PassphraseFile = strings.TrimSpace(raw.PassphraseFile)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.NetlinkProtocol < 0 || c.NetlinkProtocol > 31 {
		return fmt.Errorf("config: netlink_protocol %d out of range", c.NetlinkProtocol)
	}
	if c.MaxFrameBytes < protocol.HeaderSize {
		return fmt.Errorf("config: max_frame_bytes %d smaller than the frame header", c.MaxFrameBytes)
	}
	if c.ErrorThreshold <= 0 {
		return fmt.Errorf("config: error_threshold must be positive")
	}
	if strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("config: store_path missing")
	}
	if strings.TrimSpace(c.LockPath) == "" {
		return fmt.Errorf("config: lock_path missing")
	}
	if strings.TrimSpace(c.PassphraseFile) == "" {
		return fmt.Errorf("config: passphrase_file missing")
	}
	return nil
}
