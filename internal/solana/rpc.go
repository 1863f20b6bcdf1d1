package solana

import "context"

// RPCClient is the JSON-RPC surface the pipeline depends on.
type RPCClient interface {
	// GetLatestBlockhash returns the current blockhash to anchor a transaction.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// SendTransaction submits a signed, base64-encoded transaction.
	// Preflight is skipped; the submitter simulates explicitly beforehand.
	// The call is not retried internally: retrying is the submitter's job.
	SendTransaction(ctx context.Context, signedTxBase64 string) (string, error)

	// SimulateTransaction dry-runs a signed transaction and reports the
	// compute units it consumed.
	SimulateTransaction(ctx context.Context, signedTxBase64 string) (*SimulationResult, error)

	// GetSignatureStatuses returns confirmation status for each signature,
	// nil for signatures the cluster does not know.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetRecentPrioritizationFees returns recent per-slot priority fees,
	// optionally scoped to the given writable accounts.
	GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]PrioritizationFee, error)

	// GetTokenLargestAccounts returns the 20 largest holder accounts of a mint.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)

	// GetTokenSupply returns the total supply of a mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error)

	// GetAccountInfo retrieves account info by public key, nil if absent.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetBalance returns an account's lamport balance.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// WSClient is the subscription surface used by discovery.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close terminates the connection and closes all subscription channels.
	Close() error
}
