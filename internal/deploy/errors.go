// internal/deploy/errors.go
package deploy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the machine-readable classification of a deployment failure.
type ErrorCode string

const (
	ErrInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrUploadFailed        ErrorCode = "IPFS_UPLOAD_FAILED"
	ErrWalletNotConnected  ErrorCode = "WALLET_NOT_CONNECTED"
	ErrWalletRejected      ErrorCode = "WALLET_REJECTED"
	ErrSimulationFailed    ErrorCode = "SIMULATION_FAILED"
	ErrAccountNotFound     ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrNetwork             ErrorCode = "NETWORK_ERROR"
	ErrTimeout             ErrorCode = "TIMEOUT_ERROR"
	ErrContract            ErrorCode = "CONTRACT_ERROR"
	ErrTransactionFailed   ErrorCode = "TRANSACTION_FAILED"
)

type errorTraits struct {
	retryable  bool
	suggestion string
}

// Retryability and the human-readable retry suggestion are decoupled from
// the code itself so the UI can offer a retry action for every retryable
// error and a concrete hint for the rest.
var traits = map[ErrorCode]errorTraits{
	ErrInvalidInput:        {false, "Check the token parameters and correct the highlighted fields."},
	ErrUploadFailed:        {true, "The metadata store is unreachable. Try the upload again in a moment."},
	ErrWalletNotConnected:  {true, "Connect a wallet and try again."},
	ErrWalletRejected:      {true, "The signing request was declined. Approve it in your wallet to continue."},
	ErrSimulationFailed:    {true, "The transaction would fail on-chain. Review the parameters before retrying."},
	ErrAccountNotFound:     {false, "The account does not exist on this network. Fund it first."},
	ErrInsufficientBalance: {true, "Not enough SOL to cover rent and fees. Top up the wallet and retry."},
	ErrNetwork:             {true, "A network error occurred. Check your connection and retry."},
	ErrTimeout:             {true, "The operation timed out. The network may be congested; retry the deployment."},
	ErrContract:            {true, "The program rejected the call. Retry, and review the parameters if it persists."},
	ErrTransactionFailed:   {true, "The transaction failed. Retry the deployment."},
}

// DeployError is the single typed error surfaced by the orchestrator.
type DeployError struct {
	Code       ErrorCode
	Message    string
	Retryable  bool
	Suggestion string
	Err        error
}

func (e *DeployError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DeployError) Unwrap() error { return e.Err }

func newError(code ErrorCode, message string, err error) *DeployError {
	tr := traits[code]
	return &DeployError{
		Code:       code,
		Message:    message,
		Retryable:  tr.retryable,
		Suggestion: tr.suggestion,
		Err:        err,
	}
}

// Fixed-order signature tables for errors crossing opaque boundaries (RPC
// transport, wallet). Checked wallet first, then network, then
// simulation/transaction; anything else falls through to TRANSACTION_FAILED.
var (
	walletPatterns      = []string{"user rejected", "user declined", "sign", "wallet"}
	networkPatterns     = []string{"network", "timeout", "connection", "unreachable", "dial tcp", "eof"}
	transactionPatterns = []string{"simulation", "transaction", "instruction", "blockhash"}
)

// Classify maps an arbitrary error to a *DeployError. A structured
// *DeployError produced at the throw site always wins; message matching is
// the last-resort fallback for free-text errors from external boundaries.
func Classify(err error) *DeployError {
	if err == nil {
		return nil
	}
	var deployErr *DeployError
	if errors.As(err, &deployErr) {
		return deployErr
	}

	msg := strings.ToLower(err.Error())
	for _, p := range walletPatterns {
		if strings.Contains(msg, p) {
			return newError(ErrWalletRejected, "Wallet signing failed", err)
		}
	}
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return newError(ErrNetwork, "Network request failed", err)
		}
	}
	for _, p := range transactionPatterns {
		if strings.Contains(msg, p) {
			return newError(ErrTransactionFailed, "Transaction failed", err)
		}
	}
	return newError(ErrTransactionFailed, "Transaction failed", err)
}
