package txhandler

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

// account is the resolved sending identity.
type account struct {
	source  AccountSource
	address string
	key     *ecdsa.PrivateKey
}

// resolveAccount picks the sender according to the configured source.
func resolveAccount(ctx context.Context, cfg *config, client *rpc.Client) (*account, error) {
	source := cfg.resolvedSource()

	var acct *account
	switch source {
	case SourceExplicit:
		if cfg.account == "" {
			return nil, &ConfigurationError{Field: "account", Err: ErrNoAccount}
		}
		acct = &account{source: source, address: Add0x(Strip0x(cfg.account))}

	case SourceKeyFile:
		if cfg.keyFile == "" {
			return nil, &ConfigurationError{Field: "private key file", Err: ErrNoAccount}
		}
		key, err := LoadPrivateKey(cfg.keyFile)
		if err != nil {
			return nil, err
		}
		address := crypto.PubkeyToAddress(key.PublicKey)
		acct = &account{source: source, address: strings.ToLower(address.Hex()), key: key}

	case SourceNode:
		var accounts []common.Address
		if err := client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
			return nil, wrapRPC(ctx, "eth_accounts", err)
		}
		if len(accounts) == 0 {
			return nil, &ConfigurationError{Field: "account", Err: ErrNoAccount}
		}
		acct = &account{source: source, address: strings.ToLower(accounts[0].Hex())}

	default:
		return nil, &ConfigurationError{Field: "account source", Err: fmt.Errorf("%w: %d", ErrUnknownAccountSource, uint8(source))}
	}

	if !IsAddress(acct.address) {
		return nil, &ConfigurationError{Field: "account", Err: fmt.Errorf("%w: %q", ErrInvalidAddress, acct.address)}
	}
	return acct, nil
}

// LoadPrivateKey reads a private key stored as hex text. Surrounding
// whitespace and an optional 0x prefix are ignored; the remainder must
// decode to 32 bytes.
func LoadPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &KeyFileError{Path: path, Err: err}
	}
	key, err := crypto.HexToECDSA(Strip0x(strings.TrimSpace(string(data))))
	if err != nil {
		return nil, &KeyFileError{Path: path, Err: err}
	}
	return key, nil
}
