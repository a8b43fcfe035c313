// internal/txmon/checker.go
package txmon

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// CheckResult is the outcome of a single status probe.
type CheckResult struct {
	Status     Status
	LedgerInfo *LedgerInfo
	// FailureReason carries the ledger-side error when Status is failed.
	FailureReason string
}

// StatusChecker resolves the current state of a submitted transaction.
// Implementations must map "not seen yet" to StatusPending and return an
// error only for transport failures, which the monitor treats as transient.
type StatusChecker interface {
	Check(ctx context.Context, signature string) (CheckResult, error)
}

// CheckerFunc adapts a function to the StatusChecker interface.
type CheckerFunc func(ctx context.Context, signature string) (CheckResult, error)

func (f CheckerFunc) Check(ctx context.Context, signature string) (CheckResult, error) {
	return f(ctx, signature)
}

// RPCStatusChecker probes a Solana RPC node for signature status. A missing
// status entry means the cluster has not seen the transaction yet, which is
// reported as pending rather than an error.
type RPCStatusChecker struct {
	client           *rpc.Client
	minConfirmations uint64
	logger           *zap.Logger
}

func NewRPCStatusChecker(client *rpc.Client, minConfirmations uint64, logger *zap.Logger) *RPCStatusChecker {
	if minConfirmations == 0 {
		minConfirmations = 1
	}
	return &RPCStatusChecker{
		client:           client,
		minConfirmations: minConfirmations,
		logger:           logger.Named("status-checker"),
	}
}

func (c *RPCStatusChecker) Check(ctx context.Context, signature string) (CheckResult, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return CheckResult{}, fmt.Errorf("invalid transaction signature %q: %w", signature, err)
	}

	response, err := c.client.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to get signature status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return CheckResult{Status: StatusPending}, nil
	}

	status := response.Value[0]
	info := &LedgerInfo{
		Slot:               status.Slot,
		ConfirmationStatus: string(status.ConfirmationStatus),
	}
	if status.Confirmations != nil {
		info.Confirmations = *status.Confirmations
	}

	if status.Err != nil {
		reason := fmt.Sprintf("%v", status.Err)
		c.logger.Debug("Transaction failed on ledger",
			zap.String("signature", signature),
			zap.String("reason", reason))
		return CheckResult{Status: StatusFailed, LedgerInfo: info, FailureReason: reason}, nil
	}

	if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
		return CheckResult{Status: StatusSuccess, LedgerInfo: info}, nil
	}
	if status.Confirmations != nil && *status.Confirmations >= c.minConfirmations {
		return CheckResult{Status: StatusSuccess, LedgerInfo: info}, nil
	}

	return CheckResult{Status: StatusPending, LedgerInfo: info}, nil
}
