package txhandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// artifactJSON covers forge (bytecode.object), hardhat (bytecode string)
// and solc --combined-json style (bin) outputs.
type artifactJSON struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
	Bin          string          `json:"bin"`
}

// LoadArtifact reads a compiled contract from a JSON file. The artifact is
// named after the file unless the JSON carries a contractName.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseArtifact(name, data)
}

// ParseArtifact decodes a compiled contract from JSON.
func ParseArtifact(name string, data []byte) (*Artifact, error) {
	var raw artifactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	if raw.ContractName != "" {
		name = raw.ContractName
	}

	abiJSON := []byte(raw.ABI)
	// Some toolchains store the ABI as a JSON string.
	var abiString string
	if json.Unmarshal(raw.ABI, &abiString) == nil {
		abiJSON = []byte(abiString)
	}
	if len(abiJSON) == 0 {
		return nil, errors.New("parse artifact: missing abi")
	}
	parsedABI, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	code, err := artifactBytecode(raw)
	if err != nil {
		return nil, err
	}

	return &Artifact{Name: name, ABI: parsedABI, Bytecode: code}, nil
}

func artifactBytecode(raw artifactJSON) ([]byte, error) {
	object := raw.Bin
	if len(raw.Bytecode) > 0 {
		var forge struct {
			Object string `json:"object"`
		}
		var plain string
		switch {
		case json.Unmarshal(raw.Bytecode, &plain) == nil:
			object = plain
		case json.Unmarshal(raw.Bytecode, &forge) == nil:
			object = forge.Object
		}
	}
	if Strip0x(object) == "" {
		return nil, errors.New("parse artifact: missing bytecode")
	}
	code, err := hexutil.Decode(Add0x(object))
	if err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}
	return code, nil
}

// Constructor packs constructor arguments and appends them to the bytecode.
func (a *Artifact) Constructor(args []Arg) ([]byte, error) {
	values, err := packValues("constructor", a.ABI.Constructor.Inputs, args)
	if err != nil {
		return nil, err
	}
	packed, err := a.ABI.Pack("", values...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor: %w", err)
	}
	data := make([]byte, 0, len(a.Bytecode)+len(packed))
	data = append(data, a.Bytecode...)
	return append(data, packed...), nil
}
