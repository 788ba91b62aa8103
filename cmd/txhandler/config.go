package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	txhandler "github.com/branched-services/go-txhandler"
)

const envPrefix = "TXHANDLER"

// Config is the command line configuration after flags, environment and
// config file have been merged.
type Config struct {
	Protocol       string        `mapstructure:"protocol"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	URL            string        `mapstructure:"url"`
	Account        string        `mapstructure:"account"`
	PrivateKeyFile string        `mapstructure:"private-key"`
	AccountSource  string        `mapstructure:"account-source"`
	Gas            uint64        `mapstructure:"gas"`
	GasPrice       string        `mapstructure:"gas-price"`
	PollInterval   time.Duration `mapstructure:"poll-interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	LogLevel       string        `mapstructure:"log-level"`
	LogFormat      string        `mapstructure:"log-format"`
}

// addFlags registers the connection and account flags on cmd.
func addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (json, yaml or toml)")
	flags.String("protocol", txhandler.DefaultProtocol, "node protocol: http, https, ws, wss or ipc")
	flags.String("host", txhandler.DefaultHost, "node host, or socket path for ipc")
	flags.Int("port", txhandler.DefaultPort, "node port")
	flags.String("url", "", "node URL, overrides protocol, host and port")
	flags.String("account", "", "sending address unlocked on the node")
	flags.String("private-key", "", "file holding the sender's private key as hex")
	flags.String("account-source", "auto", "account source: auto, explicit, keyfile or node")
	flags.Uint64("gas", txhandler.DefaultGas, "gas limit for every transaction")
	flags.String("gas-price", txhandler.DefaultGasPrice.String(), "gas price in wei for every transaction")
	flags.Duration("poll-interval", txhandler.DefaultPollInterval, "receipt polling interval")
	flags.Duration("timeout", 5*time.Minute, "overall deadline for the command, 0 for none")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "console", "log format: console or json")
}

// loadConfig merges flags, TXHANDLER_* environment variables and the
// optional config file, in that order of precedence.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Logger builds the process logger the handler is given.
func (c *Config) Logger(out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}

	switch c.LogFormat {
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("log format must be 'json' or 'console'")
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Options converts the configuration into handler options.
func (c *Config) Options(logger zerolog.Logger) ([]txhandler.Option, error) {
	source, err := txhandler.ParseAccountSource(c.AccountSource)
	if err != nil {
		return nil, err
	}
	gasPrice, err := txhandler.ParseWei(c.GasPrice)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	if gasPrice == nil {
		return nil, fmt.Errorf("gas price is required")
	}

	opts := []txhandler.Option{
		txhandler.WithEndpoint(c.Protocol, c.Host, c.Port),
		txhandler.WithAccountSource(source),
		txhandler.WithGas(c.Gas),
		txhandler.WithGasPrice(gasPrice),
		txhandler.WithPollInterval(c.PollInterval),
		txhandler.WithLogger(logger),
	}
	if c.URL != "" {
		opts = append(opts, txhandler.WithURL(c.URL))
	}
	if c.Account != "" {
		opts = append(opts, txhandler.WithAccount(c.Account))
	}
	if c.PrivateKeyFile != "" {
		opts = append(opts, txhandler.WithPrivateKeyFile(c.PrivateKeyFile))
	}
	return opts, nil
}
