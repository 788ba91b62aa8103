package txhandler

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxRequest describes a transaction from the handler's account. A nil To
// creates a contract; a nil Nonce is filled from GetNonce.
type TxRequest struct {
	To    *common.Address
	Value *big.Int
	Data  []byte
	Nonce *uint64
}

// sendTxArgs is the eth_sendTransaction parameter object.
type sendTxArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
	Nonce    hexutil.Uint64  `json:"nonce"`
}

// SendTransaction submits req and returns its hash without waiting for it
// to be mined. A key-file account signs locally and broadcasts the raw
// transaction; any other account asks the node to sign.
func (h *Handler) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	if req.Value != nil && req.Value.Sign() < 0 {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrNegativeValue, req.Value)
	}

	var nonce uint64
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else {
		n, err := h.GetNonce(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		nonce = n
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	var (
		hash common.Hash
		err  error
	)
	if h.acct.key != nil {
		hash, err = h.sendSigned(ctx, req, nonce, value)
	} else {
		hash, err = h.sendUnlocked(ctx, req, nonce, value)
	}
	if err != nil {
		return common.Hash{}, err
	}

	h.logger.Info().
		Str("hash", hash.Hex()).
		Uint64("nonce", nonce).
		Bool("create", req.To == nil).
		Msg("transaction sent")
	return hash, nil
}

func (h *Handler) sendSigned(ctx context.Context, req TxRequest, nonce uint64, value *big.Int) (common.Hash, error) {
	chainID, err := h.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(h.acct.key, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("txhandler: transactor: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       req.To,
		Value:    value,
		Gas:      h.gas,
		GasPrice: h.gasPrice,
		Data:     req.Data,
	})
	signed, err := opts.Signer(h.from, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("txhandler: sign transaction: %w", err)
	}
	if err := h.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, wrapRPC(ctx, "eth_sendRawTransaction", err)
	}
	return signed.Hash(), nil
}

func (h *Handler) sendUnlocked(ctx context.Context, req TxRequest, nonce uint64, value *big.Int) (common.Hash, error) {
	args := sendTxArgs{
		From:     h.from,
		To:       req.To,
		Gas:      hexutil.Uint64(h.gas),
		GasPrice: (*hexutil.Big)(h.gasPrice),
		Value:    (*hexutil.Big)(value),
		Data:     req.Data,
		Nonce:    hexutil.Uint64(nonce),
	}
	var hash common.Hash
	if err := h.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, wrapRPC(ctx, "eth_sendTransaction", err)
	}
	return hash, nil
}

// Transact sends req, waits for it to be mined and logs the receipt.
// A reverted transaction is returned with a *TransactionFailedError.
func (h *Handler) Transact(ctx context.Context, req TxRequest) (*types.Receipt, error) {
	hash, err := h.SendTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	receipt, err := h.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	h.LogTransactionReceipt(receipt)
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &TransactionFailedError{Hash: hash, GasUsed: receipt.GasUsed}
	}
	return receipt, nil
}

// Deploy creates the artifact's contract with the given constructor
// arguments and registers name against the new address.
func (h *Handler) Deploy(ctx context.Context, name string, artifact *Artifact, args ...any) (*Contract, *types.Receipt, error) {
	return h.DeployWithValue(ctx, name, artifact, nil, args...)
}

// DeployWithValue is Deploy for payable constructors.
func (h *Handler) DeployWithValue(ctx context.Context, name string, artifact *Artifact, value *big.Int, args ...any) (*Contract, *types.Receipt, error) {
	data, err := artifact.Constructor(h.refs.ReplaceAll(ToArgs(args...)))
	if err != nil {
		return nil, nil, err
	}

	h.logger.Info().Str("contract", name).Int("bytes", len(data)).Msg("deploying contract")
	receipt, err := h.Transact(ctx, TxRequest{Value: value, Data: data})
	if err != nil {
		return nil, receipt, err
	}
	if receipt.ContractAddress == (common.Address{}) {
		return nil, receipt, ErrNoContractAddress
	}

	contract := NewContract(name, receipt.ContractAddress, artifact.ABI)
	h.Register(contract)
	return contract, receipt, nil
}

// Register records contract by name and adds it to the reference table.
func (h *Handler) Register(contract *Contract) {
	h.contracts[contract.Name()] = contract
	h.SetReference(contract.Name(), contract.Address().Hex())
}

// Contract returns a contract registered by Deploy or Register.
func (h *Handler) Contract(name string) (*Contract, bool) {
	c, ok := h.contracts[name]
	return c, ok
}

// Submit sends call after substituting references in its arguments.
func (h *Handler) Submit(ctx context.Context, call *Call) (*types.Receipt, error) {
	data, err := call.WithReferences(h.refs).Data()
	if err != nil {
		return nil, err
	}
	to := call.Contract().Address()
	h.logger.Info().
		Str("contract", call.Contract().label()).
		Str("method", call.Method().Name).
		Msg("invoking contract")
	return h.Transact(ctx, TxRequest{To: &to, Value: call.EthValue(), Data: data})
}

// Invoke builds and submits a call of method on contract.
func (h *Handler) Invoke(ctx context.Context, contract *Contract, method string, args ...any) (*types.Receipt, error) {
	call, err := contract.Invoke(method, args...)
	if err != nil {
		return nil, err
	}
	return h.Submit(ctx, call)
}

// Read executes method with eth_call against the latest block and returns
// the unpacked outputs.
func (h *Handler) Read(ctx context.Context, contract *Contract, method string, args ...any) ([]any, error) {
	call, err := contract.Invoke(method, args...)
	if err != nil {
		return nil, err
	}
	data, err := call.WithReferences(h.refs).Data()
	if err != nil {
		return nil, err
	}

	to := contract.Address()
	out, err := h.eth.CallContract(ctx, ethereum.CallMsg{From: h.from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, wrapRPC(ctx, "eth_call", err)
	}
	values, err := contract.ABI().Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("txhandler: unpack %s: %w", method, err)
	}
	return values, nil
}
