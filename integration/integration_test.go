package integration

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txhandler "github.com/branched-services/go-txhandler"
)

// Test private key (Anvil default account 0)
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const testAddress = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"

// Creation code that returns a single STOP opcode as runtime code.
const stopContract = "0x6001600c60003960016000f300"

var recipient = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

func requireNode(t *testing.T) context.Context {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("Set INTEGRATION_TEST=1 to run integration tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	return ctx
}

func newHandler(t *testing.T, ctx context.Context, opts ...txhandler.Option) *txhandler.Handler {
	t.Helper()
	opts = append([]txhandler.Option{
		txhandler.WithEndpoint("http", "localhost", 8545),
		txhandler.WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
		txhandler.WithPollInterval(100 * time.Millisecond),
		txhandler.WithGas(300000),
		txhandler.WithGasPrice(big.NewInt(2_000_000_000)),
	}, opts...)
	h, err := txhandler.New(ctx, opts...)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestKeyFileDeploy(t *testing.T) {
	ctx := requireNode(t)
	keyFile := writeFile(t, t.TempDir(), "deployer.key", "0x"+testPrivateKey+"\n")

	h := newHandler(t, ctx, txhandler.WithPrivateKeyFile(keyFile))
	assert.Equal(t, txhandler.SourceKeyFile, h.Source())
	assert.Equal(t, testAddress, h.Address())

	artifact, err := txhandler.ParseArtifact("Stop", []byte(`{"abi":[],"bytecode":"`+stopContract+`"}`))
	require.NoError(t, err)

	contract, receipt, err := h.Deploy(ctx, "Stop", artifact)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, receipt.GasUsed, h.TotalGas())

	code, err := h.Client().CodeAt(ctx, contract.Address(), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, code)

	ref, ok := h.Reference("Stop")
	require.True(t, ok)
	assert.Equal(t, strings.ToLower(contract.Address().Hex()), strings.ToLower(ref))
}

func TestUnlockedAccountTransfer(t *testing.T) {
	ctx := requireNode(t)

	h := newHandler(t, ctx)
	assert.Equal(t, txhandler.SourceNode, h.Source())
	require.True(t, txhandler.IsAddress(h.Address()))

	nonce, err := h.GetNonce(ctx)
	require.NoError(t, err)

	before, err := h.Client().BalanceAt(ctx, recipient, nil)
	require.NoError(t, err)

	receipt, err := h.Transact(ctx, txhandler.TxRequest{To: &recipient, Value: big.NewInt(1000)})
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	after, err := h.Client().BalanceAt(ctx, recipient, nil)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Add(before, big.NewInt(1000)), after)

	next, err := h.GetNonce(ctx)
	require.NoError(t, err)
	assert.Equal(t, nonce+1, next)

	fetched, err := h.GetTransactionReceipt(ctx, receipt.TxHash)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, receipt.BlockHash, fetched.BlockHash)
}

func TestScriptRun(t *testing.T) {
	ctx := requireNode(t)
	dir := t.TempDir()
	writeFile(t, dir, "Stop.json", `{"abi":[],"bytecode":{"object":"`+stopContract+`"}}`)
	path := writeFile(t, dir, "deploy.json", `{
		"references": {"Burn": "`+recipient.Hex()+`"},
		"steps": [
			{"action": "deploy", "name": "First", "artifact": "Stop.json"},
			{"action": "deploy", "name": "Second", "artifact": "Stop.json", "value": "0"}
		]
	}`)

	script, err := txhandler.LoadScript(path)
	require.NoError(t, err)

	h := newHandler(t, ctx)
	require.NoError(t, h.Run(ctx, script))

	first, ok := h.Contract("First")
	require.True(t, ok)
	second, ok := h.Contract("Second")
	require.True(t, ok)
	assert.NotEqual(t, first.Address(), second.Address())
	assert.Greater(t, h.TotalGas(), uint64(2*21000))
}
