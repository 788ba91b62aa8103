package txhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
)

// Script actions.
const (
	ActionDeploy   = "deploy"
	ActionTransact = "transact"
	ActionCall     = "call"
)

// Script is a sequence of deployment steps sharing one reference table.
type Script struct {
	// References seeds the handler's reference table before the first step.
	References References `json:"references"`
	Steps      []Step     `json:"steps"`

	// dir resolves relative artifact paths.
	dir string
}

// Step is one script instruction.
//
// deploy uses Name, Artifact, Args and Value. transact and call use
// Contract, Method, Args and (transact only) Value; the contract is one
// deployed earlier in the script or declared with Address and Artifact.
type Step struct {
	Action   string `json:"action"`
	Name     string `json:"name,omitempty"`
	Artifact string `json:"artifact,omitempty"`
	Contract string `json:"contract,omitempty"`
	Address  string `json:"address,omitempty"`
	Method   string `json:"method,omitempty"`
	Args     []any  `json:"args,omitempty"`
	Value    string `json:"value,omitempty"`
}

// LoadScript reads a script file. Numbers in argument lists are kept as
// json.Number so large integers survive decoding.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	script, err := ParseScript(data)
	if err != nil {
		return nil, err
	}
	script.dir = filepath.Dir(path)
	return script, nil
}

// ParseScript decodes a script from JSON.
func ParseScript(data []byte) (*Script, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var script Script
	if err := dec.Decode(&script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return &script, nil
}

// Run executes the script's steps in order and stops at the first failure.
func (h *Handler) Run(ctx context.Context, script *Script) error {
	for name, value := range script.References {
		h.SetReference(name, value)
	}

	for i, step := range script.Steps {
		if err := h.runStep(ctx, script, step); err != nil {
			return &ScriptError{Step: i, Action: step.Action, Err: err}
		}
	}

	h.logger.Info().
		Int("steps", len(script.Steps)).
		Uint64("total_gas", h.totalGas).
		Msg("script finished")
	return nil
}

func (h *Handler) runStep(ctx context.Context, script *Script, step Step) error {
	value, err := ParseWei(step.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	switch step.Action {
	case ActionDeploy:
		artifact, err := LoadArtifact(script.path(step.Artifact))
		if err != nil {
			return err
		}
		name := step.Name
		if name == "" {
			name = artifact.Name
		}
		_, _, err = h.DeployWithValue(ctx, name, artifact, value, step.Args...)
		return err

	case ActionTransact:
		contract, err := h.stepContract(script, step)
		if err != nil {
			return err
		}
		call, err := contract.Invoke(step.Method, step.Args...)
		if err != nil {
			return err
		}
		if value != nil {
			call = call.WithValue(value)
		}
		_, err = h.Submit(ctx, call)
		return err

	case ActionCall:
		contract, err := h.stepContract(script, step)
		if err != nil {
			return err
		}
		out, err := h.Read(ctx, contract, step.Method, step.Args...)
		if err != nil {
			return err
		}
		h.logger.Info().
			Str("contract", contract.label()).
			Str("method", step.Method).
			Interface("result", out).
			Msg("call result")
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, step.Action)
}

// stepContract finds the contract a transact or call step targets.
func (h *Handler) stepContract(script *Script, step Step) (*Contract, error) {
	if c, ok := h.Contract(step.Contract); ok && step.Address == "" {
		return c, nil
	}
	if step.Address == "" || step.Artifact == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContract, step.Contract)
	}

	address := step.Address
	if ref, ok := h.Reference(address); ok {
		address = ref
	}
	if !IsAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, step.Address)
	}
	artifact, err := LoadArtifact(script.path(step.Artifact))
	if err != nil {
		return nil, err
	}

	name := step.Contract
	if name == "" {
		name = artifact.Name
	}
	contract := NewContract(name, common.HexToAddress(Strip0x(address)), artifact.ABI)
	h.Register(contract)
	return contract, nil
}

func (s *Script) path(p string) string {
	if filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}
