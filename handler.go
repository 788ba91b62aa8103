package txhandler

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

// Handler owns one RPC connection and one sending account.
// A Handler is not safe for concurrent use.
type Handler struct {
	rpc       *rpc.Client
	eth       *ethclient.Client
	ownClient bool

	acct     *account
	from     common.Address
	gas      uint64
	gasPrice *big.Int
	chainID  *big.Int

	logger       zerolog.Logger
	refs         References
	contracts    map[string]*Contract
	pollInterval time.Duration

	totalGas uint64
}

// New connects to the node, resolves the sending account and logs its
// address and balance.
func New(ctx context.Context, opts ...Option) (*Handler, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.gas == 0 {
		return nil, &ConfigurationError{Field: "gas", Err: ErrInvalidGas}
	}
	if cfg.gasPrice == nil || cfg.gasPrice.Sign() <= 0 {
		return nil, &ConfigurationError{Field: "gas price", Err: ErrInvalidGas}
	}

	client := cfg.client
	ownClient := false
	if client == nil {
		var err error
		client, err = rpc.DialContext(ctx, cfg.endpoint())
		if err != nil {
			return nil, &TransportError{Method: "dial " + cfg.endpoint(), Err: err}
		}
		ownClient = true
	}

	acct, err := resolveAccount(ctx, cfg, client)
	if err != nil {
		if ownClient {
			client.Close()
		}
		return nil, err
	}

	h := &Handler{
		rpc:          client,
		eth:          ethclient.NewClient(client),
		ownClient:    ownClient,
		acct:         acct,
		from:         common.HexToAddress(Strip0x(acct.address)),
		gas:          cfg.gas,
		gasPrice:     new(big.Int).Set(cfg.gasPrice),
		logger:       cfg.logger.With().Str("component", "txhandler").Logger(),
		refs:         cfg.references.Clone(),
		contracts:    make(map[string]*Contract),
		pollInterval: cfg.pollInterval,
	}

	h.logger.Info().
		Str("address", acct.address).
		Stringer("source", acct.source).
		Msg("instructions are sent from address")

	balance, err := h.GetBalance(ctx)
	if err != nil {
		h.Close()
		return nil, err
	}
	h.logger.Info().
		Str("ether", FormatEther(balance)).
		Str("wei", balance.String()).
		Msg("address balance")

	return h, nil
}

// Close releases the RPC connection if the handler dialed it.
func (h *Handler) Close() {
	if h.ownClient {
		h.rpc.Close()
	}
}

// Address returns the sending address as 0x-prefixed hex.
func (h *Handler) Address() string {
	return h.acct.address
}

// From returns the sending address.
func (h *Handler) From() common.Address {
	return h.from
}

// Source returns where the sending account was resolved from.
func (h *Handler) Source() AccountSource {
	return h.acct.source
}

// Gas returns the gas limit used for every transaction.
func (h *Handler) Gas() uint64 {
	return h.gas
}

// GasPrice returns the gas price used for every transaction.
func (h *Handler) GasPrice() *big.Int {
	return new(big.Int).Set(h.gasPrice)
}

// TotalGas returns the gas used by every receipt logged so far.
func (h *Handler) TotalGas() uint64 {
	return h.totalGas
}

// Client returns the underlying ethclient.
func (h *Handler) Client() *ethclient.Client {
	return h.eth
}

// GetBalance returns the sender's latest balance in wei.
func (h *Handler) GetBalance(ctx context.Context) (*big.Int, error) {
	var result string
	if err := h.rpc.CallContext(ctx, &result, "eth_getBalance", h.from, "latest"); err != nil {
		return nil, wrapRPC(ctx, "eth_getBalance", err)
	}
	return Hex2Int(result)
}

// GetNonce returns the sender's pending transaction count. The node's view
// is taken as is; transactions from other processes race with it.
func (h *Handler) GetNonce(ctx context.Context) (uint64, error) {
	var result string
	if err := h.rpc.CallContext(ctx, &result, "eth_getTransactionCount", h.from, "pending"); err != nil {
		return 0, wrapRPC(ctx, "eth_getTransactionCount", err)
	}
	n, err := Hex2Int(result)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, ErrInvalidHex
	}
	return n.Uint64(), nil
}

// ChainID returns the node's chain id, fetched once.
func (h *Handler) ChainID(ctx context.Context) (*big.Int, error) {
	if h.chainID == nil {
		var result hexutil.Big
		if err := h.rpc.CallContext(ctx, &result, "eth_chainId"); err != nil {
			return nil, wrapRPC(ctx, "eth_chainId", err)
		}
		h.chainID = (*big.Int)(&result)
	}
	return new(big.Int).Set(h.chainID), nil
}

// GetTransactionReceipt returns the receipt for hash, or nil if the
// transaction has not been mined yet.
func (h *Handler) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := h.eth.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapRPC(ctx, "eth_getTransactionReceipt", err)
	}
	return receipt, nil
}

// WaitForReceipt polls for the receipt of hash until it is mined or ctx is
// done. RPC errors end the wait immediately.
func (h *Handler) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := h.GetTransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}

		h.logger.Debug().Str("hash", hash.Hex()).Msg("transaction not yet mined")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// LogTransactionReceipt logs the receipt and adds its gas to the running total.
func (h *Handler) LogTransactionReceipt(receipt *types.Receipt) {
	h.totalGas += receipt.GasUsed

	event := h.logger.Info().
		Str("transaction_hash", receipt.TxHash.Hex()).
		Str("block_hash", receipt.BlockHash.Hex()).
		Uint64("gas_used", receipt.GasUsed).
		Uint64("cumulative_gas_used", receipt.CumulativeGasUsed).
		Uint64("total_gas", h.totalGas)
	if receipt.BlockNumber != nil {
		event = event.Str("block_number", receipt.BlockNumber.String())
	}
	if receipt.ContractAddress != (common.Address{}) {
		event = event.Str("contract_address", receipt.ContractAddress.Hex())
	}
	event.Msg("transaction receipt")
}

// ReplaceReferences substitutes names from the reference table in arg.
func (h *Handler) ReplaceReferences(arg Arg) Arg {
	return h.refs.Replace(arg)
}

// SetReference maps name to value in the reference table. Addresses are
// stored in their prefixed form.
func (h *Handler) SetReference(name, value string) {
	h.refs[name] = FormatReference(value)
}

// Reference looks up name in the reference table.
func (h *Handler) Reference(name string) (string, bool) {
	v, ok := h.refs[name]
	return v, ok
}

// References returns a copy of the reference table.
func (h *Handler) References() References {
	return h.refs.Clone()
}
