package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jorenkoyen/go-logger"
)

type Options struct {
	Config         string
	ValidateConfig bool
}

// Parse will extract the daemon options from the command line arguments.
func Parse(args []string) (Options, error) {
	opts := Options{}

	fs := flag.NewFlagSet("swarmgate", flag.ContinueOnError)
	fs.StringVar(&opts.Config, "config", "/etc/swarmgate/config.toml", "The location of the configuration file")
	fs.BoolVar(&opts.ValidateConfig, "validate-config", false, "Validate the configuration file and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	return opts, nil
}

type Config struct {
	LogLevel      string `toml:"log_level"`
	LogPretty     bool   `toml:"log_pretty"`
	ListenAddress string `toml:"listen_address"`

	Proxy struct {
		HttpListenAddress  string `toml:"http_listen_address"`
		HttpsListenAddress string `toml:"https_listen_address"`
		DefaultBackend     string `toml:"default_backend"`
		WebrootDirectory   string `toml:"webroot_directory"`
	} `toml:"proxy"`

	Data struct {
		Directory string `toml:"directory"`
	} `toml:"data"`

	Certificates struct {
		CertbotDirectory     string `toml:"certbot_directory"`
		OutputDirectory      string `toml:"output_directory"`
		PublicIP             string `toml:"public_ip"`
		DummyMode            bool   `toml:"dummy_mode"`
		AllowPrivateNetworks bool   `toml:"allow_private_networks"`
	} `toml:"certificates"`

	Discovery struct {
		Enabled         bool   `toml:"enabled"`
		Endpoint        string `toml:"endpoint"`
		IntervalSeconds int    `toml:"interval_seconds"`
	} `toml:"discovery"`
}

// ReadConfig will parse and validate the TOML configuration. Fields absent
// from the document keep their defaults; fields explicitly set to an empty
// value fail validation.
func ReadConfig(r io.Reader) (*Config, error) {
	config := defaultConfig()
	if _, err := toml.NewDecoder(r).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaultConfig() *Config {
	config := &Config{
		LogLevel:      logger.LevelInfoValue,
		LogPretty:     false,
		ListenAddress: "127.0.0.1:6440",
	}
	config.Proxy.HttpListenAddress = "0.0.0.0:80"
	config.Proxy.HttpsListenAddress = "0.0.0.0:443"
	config.Proxy.DefaultBackend = "127.0.0.1:5500"
	config.Proxy.WebrootDirectory = "/var/lib/swarmgate/webroot"
	config.Data.Directory = "/var/lib/swarmgate"
	config.Certificates.CertbotDirectory = "/etc/letsencrypt"
	config.Certificates.OutputDirectory = "/var/lib/swarmgate/certificates"
	config.Discovery.Enabled = true
	config.Discovery.IntervalSeconds = 30
	return config
}

func (c *Config) validate() error {
	required := map[string]string{
		"listen_address":             c.ListenAddress,
		"proxy.http_listen_address":  c.Proxy.HttpListenAddress,
		"proxy.https_listen_address": c.Proxy.HttpsListenAddress,
		"proxy.default_backend":      c.Proxy.DefaultBackend,
		"proxy.webroot_directory":    c.Proxy.WebrootDirectory,
		"data.directory":             c.Data.Directory,
	}

	for field, value := range required {
		if value == "" {
			return errors.New("configuration field " + field + " may not be empty")
		}
	}

	if c.Level() == nil {
		return fmt.Errorf("configuration field log_level has unknown value %q", c.LogLevel)
	}
	return nil
}

// Level translates the configured log level value, or nil when unknown.
func (c *Config) Level() *logger.Level {
	levels := map[string]logger.Level{
		logger.LevelTraceValue:   logger.LevelTrace,
		logger.LevelDebugValue:   logger.LevelDebug,
		logger.LevelInfoValue:    logger.LevelInfo,
		logger.LevelWarningValue: logger.LevelWarning,
		logger.LevelErrorValue:   logger.LevelError,
	}

	if level, ok := levels[c.LogLevel]; ok {
		return &level
	}
	return nil
}

// DiscoveryInterval returns the configured reconciliation interval.
func (c *Config) DiscoveryInterval() time.Duration {
	if c.Discovery.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Discovery.IntervalSeconds) * time.Second
}

// RouteStorePath is the location of the persisted routing table.
func (c *Config) RouteStorePath() string {
	return filepath.Join(c.Data.Directory, "routes.json")
}

// DatabasePath is the location of the certificate record database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.Directory, "swarmgate.db")
}
