package txhandler

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

// Default connection and gas settings.
const (
	DefaultProtocol     = "http"
	DefaultHost         = "localhost"
	DefaultPort         = 8545
	DefaultGas          = uint64(4000000)
	DefaultPollInterval = time.Second
)

// DefaultGasPrice is 20 gwei.
var DefaultGasPrice = big.NewInt(20000000000)

// AccountSource selects where the sending account comes from.
type AccountSource uint8

const (
	// SourceAuto applies the precedence explicit address, then key file,
	// then first unlocked node account.
	SourceAuto AccountSource = iota

	// SourceExplicit uses the address given with WithAccount.
	SourceExplicit

	// SourceKeyFile derives the address from the key given with WithPrivateKeyFile.
	SourceKeyFile

	// SourceNode uses the first account the node reports as unlocked.
	SourceNode
)

func (s AccountSource) String() string {
	switch s {
	case SourceAuto:
		return "auto"
	case SourceExplicit:
		return "explicit"
	case SourceKeyFile:
		return "keyfile"
	case SourceNode:
		return "node"
	default:
		return fmt.Sprintf("AccountSource(%d)", uint8(s))
	}
}

// ParseAccountSource parses the String form of an AccountSource.
func ParseAccountSource(s string) (AccountSource, error) {
	switch s {
	case "", "auto":
		return SourceAuto, nil
	case "explicit":
		return SourceExplicit, nil
	case "keyfile":
		return SourceKeyFile, nil
	case "node":
		return SourceNode, nil
	}
	return SourceAuto, fmt.Errorf("%w: %q", ErrUnknownAccountSource, s)
}

// Option configures a Handler.
type Option func(*config)

// config holds the settings New builds a Handler from.
type config struct {
	protocol     string
	host         string
	port         int
	url          string
	client       *rpc.Client
	source       AccountSource
	account      string
	keyFile      string
	gas          uint64
	gasPrice     *big.Int
	logger       zerolog.Logger
	references   References
	pollInterval time.Duration
}

// defaultConfig returns the default handler configuration.
func defaultConfig() *config {
	return &config{
		protocol:     DefaultProtocol,
		host:         DefaultHost,
		port:         DefaultPort,
		source:       SourceAuto,
		gas:          DefaultGas,
		gasPrice:     new(big.Int).Set(DefaultGasPrice),
		logger:       zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger(),
		references:   References{},
		pollInterval: DefaultPollInterval,
	}
}

// endpoint returns the URL to dial.
func (c *config) endpoint() string {
	if c.url != "" {
		return c.url
	}
	if c.protocol == "ipc" {
		return c.host
	}
	return fmt.Sprintf("%s://%s:%d", c.protocol, c.host, c.port)
}

// resolvedSource applies the SourceAuto precedence.
func (c *config) resolvedSource() AccountSource {
	if c.source != SourceAuto {
		return c.source
	}
	switch {
	case c.account != "":
		return SourceExplicit
	case c.keyFile != "":
		return SourceKeyFile
	default:
		return SourceNode
	}
}

// WithEndpoint sets the node's protocol, host and port.
// For the ipc protocol host is the socket path and port is ignored.
func WithEndpoint(protocol, host string, port int) Option {
	return func(c *config) {
		c.protocol = protocol
		c.host = host
		c.port = port
	}
}

// WithURL sets the node URL directly, overriding WithEndpoint.
func WithURL(url string) Option {
	return func(c *config) {
		c.url = url
	}
}

// WithRPCClient uses an already connected client instead of dialing.
// The handler does not close a client it did not dial.
func WithRPCClient(client *rpc.Client) Option {
	return func(c *config) {
		c.client = client
	}
}

// WithAccount sets an explicit sending address. The node must hold the key.
func WithAccount(address string) Option {
	return func(c *config) {
		c.account = address
	}
}

// WithPrivateKeyFile sets a file holding the sender's private key as hex text.
func WithPrivateKeyFile(path string) Option {
	return func(c *config) {
		c.keyFile = path
	}
}

// WithAccountSource forces the account source instead of the default precedence.
func WithAccountSource(source AccountSource) Option {
	return func(c *config) {
		c.source = source
	}
}

// WithGas sets the gas limit used for every transaction.
func WithGas(limit uint64) Option {
	return func(c *config) {
		c.gas = limit
	}
}

// WithGasPrice sets the gas price in wei used for every transaction.
func WithGasPrice(price *big.Int) Option {
	return func(c *config) {
		c.gasPrice = price
	}
}

// WithLogger sets the logger receipts and account details are written to.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithReferences seeds the reference table.
func WithReferences(refs References) Option {
	return func(c *config) {
		c.references = refs.Clone()
	}
}

// WithPollInterval sets how often WaitForReceipt asks the node for a receipt.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}
