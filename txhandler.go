// Package txhandler provides a small transaction helper for Ethereum
// deployment scripts.
//
// A Handler owns one JSON-RPC connection to a node and one resolved sending
// account. It exposes the helpers deployment scripts need:
//   - Resolve the sender from an explicit address, a private-key file or the
//     node's first unlocked account
//   - Query balances, pending nonces and transaction receipts
//   - Submit transactions and deploy compiled contracts, logging each
//     receipt and accounting for the gas it used
//
// # Basic Usage
//
//	h, err := txhandler.New(ctx,
//	    txhandler.WithEndpoint("http", "localhost", 8545),
//	    txhandler.WithPrivateKeyFile("deployer.key"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	artifact, err := txhandler.LoadArtifact("out/Token.sol/Token.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	token, _, err := h.Deploy(ctx, "Token", artifact, "Owner", big.NewInt(1000))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// "Token" now resolves to the deployed address in later argument lists.
//	_, err = h.Invoke(ctx, token, "transfer", "Token", big.NewInt(1))
//
// # Account Resolution
//
// The sender is chosen by AccountSource. With the default SourceAuto the
// precedence is explicit address, then private-key file, then the first
// account the node reports as unlocked. Transactions from a key file are
// signed locally and broadcast raw; all others are handed to the node with
// eth_sendTransaction.
//
// # References
//
// Argument lists may contain symbolic names. Before a transaction is built
// every string leaf found in the handler's reference table is replaced with
// its mapped value, recursing into nested sequences. Deploy registers each
// contract's name against its address.
//
// # Errors
//
// Nothing is retried. RPC failures surface as *TransportError or *RPCError,
// bad configuration as *ConfigurationError.
package txhandler
