// internal/wallet/signer.go
package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Signer is an opaque signing capability. Sign returns (nil, nil) when the
// user declines the request; that is a decision, not an error.
type Signer interface {
	Sign(ctx context.Context, tx *solana.Transaction, extra ...solana.PrivateKey) (*solana.Transaction, error)
	PublicKey() solana.PublicKey
}

// ApproveFunc is consulted before signing. Returning false declines the
// request. A nil ApproveFunc approves everything, which suits headless runs.
type ApproveFunc func(summary string) bool

// KeypairSigner signs with a local wallet keypair, standing in for a
// browser wallet extension. The approval hook plays the extension's
// confirmation prompt.
type KeypairSigner struct {
	wallet  *Wallet
	approve ApproveFunc
	logger  *zap.Logger
}

func NewKeypairSigner(w *Wallet, approve ApproveFunc, logger *zap.Logger) *KeypairSigner {
	return &KeypairSigner{
		wallet:  w,
		approve: approve,
		logger:  logger.Named("signer"),
	}
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.wallet.PublicKey
}

// Sign signs tx with the wallet key plus any extra transaction signers
// (e.g. a freshly generated mint keypair).
func (s *KeypairSigner) Sign(ctx context.Context, tx *solana.Transaction, extra ...solana.PrivateKey) (*solana.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.approve != nil {
		summary := fmt.Sprintf("sign transaction with %d instruction(s) as %s",
			len(tx.Message.Instructions), s.wallet.PublicKey.String())
		if !s.approve(summary) {
			s.logger.Info("Signing request declined by user")
			return nil, nil
		}
	}

	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.wallet.PublicKey) {
			return &s.wallet.PrivateKey
		}
		for i := range extra {
			if extra[i].PublicKey().Equals(key) {
				return &extra[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}
