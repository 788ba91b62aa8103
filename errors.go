package txhandler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// Sentinel errors for common failure conditions.
var (
	// ErrNoAccount indicates no sending account could be resolved.
	ErrNoAccount = errors.New("txhandler: no account unlocked")

	// ErrInvalidAddress indicates an address is not 40 hex characters.
	ErrInvalidAddress = errors.New("txhandler: account address is wrong")

	// ErrInvalidHex indicates a string is not a hex quantity.
	ErrInvalidHex = errors.New("txhandler: invalid hex quantity")

	// ErrNegativeValue indicates a negative wei amount.
	ErrNegativeValue = errors.New("txhandler: wei amount must not be negative")

	// ErrInvalidGas indicates a non-positive gas limit or gas price.
	ErrInvalidGas = errors.New("txhandler: gas limit and gas price must be positive")

	// ErrUnknownAccountSource indicates an AccountSource outside the enum.
	ErrUnknownAccountSource = errors.New("txhandler: unknown account source")

	// ErrNoContractAddress indicates a deployment receipt without a contract address.
	ErrNoContractAddress = errors.New("txhandler: receipt has no contract address")

	// ErrUnknownContract indicates a script step names a contract that was never deployed or declared.
	ErrUnknownContract = errors.New("txhandler: unknown contract")

	// ErrUnknownAction indicates a script step with an unsupported action.
	ErrUnknownAction = errors.New("txhandler: unknown script action")
)

// ConfigurationError indicates the handler cannot be built from its options.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("txhandler: configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TransportError indicates the node could not be reached.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("txhandler: %s: transport: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RPCError indicates the node answered with a JSON-RPC error payload.
type RPCError struct {
	Method string
	Code   int
	Err    error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("txhandler: %s: rpc error %d: %v", e.Method, e.Code, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// KeyFileError indicates the private-key file could not be read or parsed.
type KeyFileError struct {
	Path string
	Err  error
}

func (e *KeyFileError) Error() string {
	return fmt.Sprintf("txhandler: private key file %s: %v", e.Path, e.Err)
}

func (e *KeyFileError) Unwrap() error {
	return e.Err
}

// TransactionFailedError indicates a mined transaction reverted.
type TransactionFailedError struct {
	Hash    common.Hash
	GasUsed uint64
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("txhandler: transaction %s failed (gas used %d)", e.Hash.Hex(), e.GasUsed)
}

// MethodNotFoundError indicates the contract doesn't have the requested method.
type MethodNotFoundError struct {
	Contract string
	Method   string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("txhandler: method %q not found in contract %s", e.Method, e.Contract)
}

// ArgumentError indicates an issue with a function argument.
type ArgumentError struct {
	Method string
	Index  int
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("txhandler: argument %d for method %q: %v", e.Index, e.Method, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// TypeMismatchError indicates a value's type doesn't match the expected parameter type.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("txhandler: type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// ScriptError wraps a failure of one script step.
type ScriptError struct {
	Step   int
	Action string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("txhandler: script step %d (%s): %v", e.Step, e.Action, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// wrapRPC classifies an error returned by the RPC client. A done ctx wins
// over whatever the client reported. Errors carrying a JSON-RPC error code
// came from the node; everything else is transport.
func wrapRPC(ctx context.Context, method string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// The client's socket deadline can expire just before ctx does.
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &RPCError{Method: method, Code: rpcErr.ErrorCode(), Err: err}
	}
	return &TransportError{Method: method, Err: err}
}
