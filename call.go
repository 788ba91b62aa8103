package txhandler

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Call is a contract method bound to its arguments.
// Call is immutable - modifier methods return new instances.
type Call struct {
	contract *Contract
	method   abi.Method
	args     []Arg
	value    *big.Int
}

// newCall creates a Call after checking the argument count.
func newCall(contract *Contract, method abi.Method, args []Arg) (*Call, error) {
	if len(args) != len(method.Inputs) {
		return nil, &ArgumentError{
			Method: method.Name,
			Index:  len(args),
			Err:    fmt.Errorf("want %d arguments, got %d", len(method.Inputs), len(args)),
		}
	}
	return &Call{
		contract: contract,
		method:   method,
		args:     args,
	}, nil
}

// Contract returns the target contract for this call.
func (c *Call) Contract() *Contract {
	return c.contract
}

// Method returns the ABI method for this call.
func (c *Call) Method() abi.Method {
	return c.method
}

// Args returns the arguments for this call.
func (c *Call) Args() []Arg {
	return c.args
}

// EthValue returns the wei attached to this call (nil if none).
func (c *Call) EthValue() *big.Int {
	return c.value
}

// Selector returns the 4-byte function selector.
func (c *Call) Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], c.method.ID[:4])
	return sel
}

// WithValue attaches wei to the call.
//
// Returns a new Call with the value set.
func (c *Call) WithValue(amount *big.Int) *Call {
	clone := c.clone()
	clone.value = new(big.Int).Set(amount)
	return clone
}

// WithReferences returns a new Call whose arguments have refs substituted.
func (c *Call) WithReferences(refs References) *Call {
	clone := c.clone()
	clone.args = refs.ReplaceAll(c.args)
	return clone
}

// Data returns the selector followed by the ABI-encoded arguments.
func (c *Call) Data() ([]byte, error) {
	values, err := packValues(c.method.Name, c.method.Inputs, c.args)
	if err != nil {
		return nil, err
	}
	return c.contract.abi.Pack(c.method.Name, values...)
}

// clone creates a shallow copy of the Call.
func (c *Call) clone() *Call {
	clone := *c
	clone.args = make([]Arg, len(c.args))
	copy(clone.args, c.args)
	return &clone
}

// packValues coerces args to the Go types of inputs.
func packValues(method string, inputs abi.Arguments, args []Arg) ([]any, error) {
	if len(args) != len(inputs) {
		return nil, &ArgumentError{
			Method: method,
			Index:  len(args),
			Err:    fmt.Errorf("want %d arguments, got %d", len(inputs), len(args)),
		}
	}
	values := make([]any, len(args))
	for i, arg := range args {
		v, err := coerce(arg, inputs[i].Type)
		if err != nil {
			return nil, &ArgumentError{Method: method, Index: i, Err: err}
		}
		values[i] = v
	}
	return values, nil
}
