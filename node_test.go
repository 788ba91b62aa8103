package txhandler

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Anvil default account 0.
const (
	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testKeyAddress = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
)

var (
	unlockedAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherAddr    = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeNode is an in-process "eth" RPC service that mines every transaction
// as soon as it is submitted.
type fakeNode struct {
	mu sync.Mutex

	chainID  *big.Int
	accounts []common.Address
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	// unminedPolls is the number of receipt queries answered with null
	// before a receipt becomes visible.
	unminedPolls map[common.Hash]int

	raw      []*types.Transaction
	unlocked []sendTxArgs
	calls    []callArgs

	gasUsed      uint64
	revert       bool
	hideReceipts int
	callResult   hexutil.Bytes
	balanceErr   error
	block        uint64
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
	Data  hexutil.Bytes   `json:"data"`
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		chainID:      big.NewInt(31337),
		accounts:     []common.Address{unlockedAddr, otherAddr},
		balances:     make(map[common.Address]*big.Int),
		nonces:       make(map[common.Address]uint64),
		receipts:     make(map[common.Hash]*types.Receipt),
		unminedPolls: make(map[common.Hash]int),
		gasUsed:      21000,
	}
}

func (n *fakeNode) Accounts() []common.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.accounts
}

func (n *fakeNode) GetBalance(addr common.Address, block string) (*hexutil.Big, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.balanceErr != nil {
		return nil, n.balanceErr
	}
	balance, ok := n.balances[addr]
	if !ok {
		balance = new(big.Int)
	}
	return (*hexutil.Big)(balance), nil
}

func (n *fakeNode) GetTransactionCount(addr common.Address, block string) hexutil.Uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return hexutil.Uint64(n.nonces[addr])
}

func (n *fakeNode) ChainId() *hexutil.Big {
	return (*hexutil.Big)(n.chainID)
}

func (n *fakeNode) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.unminedPolls[hash] > 0 {
		n.unminedPolls[hash]--
		return nil
	}
	return n.receipts[hash]
}

func (n *fakeNode) SendRawTransaction(input hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, err
	}
	from, err := types.Sender(types.LatestSignerForChainID(n.chainID), tx)
	if err != nil {
		return common.Hash{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if tx.Nonce() != n.nonces[from] {
		return common.Hash{}, errors.New("nonce too low")
	}
	n.raw = append(n.raw, tx)
	n.mine(tx.Hash(), from, tx.To(), tx.Nonce())
	return tx.Hash(), nil
}

func (n *fakeNode) SendTransaction(args sendTxArgs) (common.Hash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	known := false
	for _, a := range n.accounts {
		if a == args.From {
			known = true
		}
	}
	if !known {
		return common.Hash{}, errors.New("unknown account")
	}

	n.unlocked = append(n.unlocked, args)
	hash := crypto.Keccak256Hash(args.From.Bytes(), big.NewInt(int64(args.Nonce)).Bytes())
	n.mine(hash, args.From, args.To, uint64(args.Nonce))
	return hash, nil
}

func (n *fakeNode) Call(args callArgs, block string) hexutil.Bytes {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, args)
	return n.callResult
}

// mine records a receipt for hash. Callers hold n.mu.
func (n *fakeNode) mine(hash common.Hash, from common.Address, to *common.Address, nonce uint64) {
	n.block++
	status := types.ReceiptStatusSuccessful
	if n.revert {
		status = types.ReceiptStatusFailed
	}
	receipt := &types.Receipt{
		Type:              types.LegacyTxType,
		Status:            status,
		CumulativeGasUsed: n.gasUsed * 2,
		Logs:              []*types.Log{},
		TxHash:            hash,
		GasUsed:           n.gasUsed,
		BlockHash:         common.BigToHash(new(big.Int).SetUint64(n.block)),
		BlockNumber:       new(big.Int).SetUint64(n.block),
	}
	if to == nil {
		receipt.ContractAddress = crypto.CreateAddress(from, nonce)
	}
	n.nonces[from] = nonce + 1
	n.receipts[hash] = receipt
	if n.hideReceipts > 0 {
		n.unminedPolls[hash] = n.hideReceipts
	}
}

// dial serves n in-process and returns a client connected to it.
func (n *fakeNode) dial(t *testing.T) *rpc.Client {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", n))
	client := rpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

// newTestHandler builds a handler against n with logging discarded.
func newTestHandler(t *testing.T, n *fakeNode, opts ...Option) *Handler {
	t.Helper()
	base := []Option{
		WithRPCClient(n.dial(t)),
		WithLogger(zerolog.New(io.Discard)),
		WithPollInterval(5 * time.Millisecond),
	}
	h, err := New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}
