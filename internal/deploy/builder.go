// internal/deploy/builder.go
package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-launchpad/internal/retry"
	"github.com/rovshanmuradov/solana-launchpad/internal/wallet"
)

// SPL mint account layout size in bytes.
const mintAccountSize = 82

// Base signature fee in lamports per signature.
const lamportsPerSignature = 5000

// LedgerClient is the subset of the RPC surface the builder needs;
// *rpc.Client satisfies it.
type LedgerClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error)
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// BuiltTransaction is an unsigned token-creation transaction plus the mint
// keypair that must co-sign it.
type BuiltTransaction struct {
	Tx           *solana.Transaction
	MintKey      solana.PrivateKey
	MintAddress  solana.PublicKey
	RentLamports uint64
}

// EstimatedFee returns the lamports the deployment will cost: rent for the
// mint account plus the base fee per signature.
func (b *BuiltTransaction) EstimatedFee() uint64 {
	return b.RentLamports + uint64(b.Tx.Message.Header.NumRequiredSignatures)*lamportsPerSignature
}

// Builder assembles, simulates and submits token-creation transactions.
// One-shot RPC reads (blockhash, rent) are hardened with the retry
// scheduler; simulation and submission are not blindly retried.
type Builder struct {
	client    LedgerClient
	payer     solana.PublicKey
	scheduler *retry.Scheduler
	logger    *zap.Logger
}

func NewBuilder(client LedgerClient, payer solana.PublicKey, scheduler *retry.Scheduler, logger *zap.Logger) *Builder {
	return &Builder{
		client:    client,
		payer:     payer,
		scheduler: scheduler,
		logger:    logger.Named("tx-builder"),
	}
}

// Build constructs the unsigned transaction creating the mint, the admin's
// token account, minting the full supply, handing the mint authority to the
// admin when it differs from the payer, and anchoring the metadata URI in a
// memo.
func (b *Builder) Build(ctx context.Context, params TokenParams, metadataURI string) (*BuiltTransaction, error) {
	rawSupply, err := params.RawSupply()
	if err != nil {
		return nil, err
	}
	admin, err := solana.PublicKeyFromBase58(params.Admin)
	if err != nil {
		return nil, newError(ErrInvalidInput, "admin must be a valid base58 address", err)
	}

	blockhash, err := retry.Execute(ctx, b.scheduler, func() (solana.Hash, error) {
		result, err := b.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return solana.Hash{}, err
		}
		return result.Value.Blockhash, nil
	}, nil)
	if err != nil {
		return nil, newError(ErrNetwork, "failed to get recent blockhash", err)
	}

	rent, err := retry.Execute(ctx, b.scheduler, func() (uint64, error) {
		return b.client.GetMinimumBalanceForRentExemption(ctx, mintAccountSize, rpc.CommitmentFinalized)
	}, nil)
	if err != nil {
		return nil, newError(ErrNetwork, "failed to get rent exemption", err)
	}

	mintKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate mint keypair: %w", err)
	}
	mint := mintKey.PublicKey()
	adminATA, _, err := solana.FindAssociatedTokenAddress(admin, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated token account: %w", err)
	}

	instructions := []solana.Instruction{
		system.NewCreateAccountInstruction(
			rent, mintAccountSize, solana.TokenProgramID, b.payer, mint,
		).Build(),
		token.NewInitializeMintInstruction(
			params.Decimals, b.payer, admin, mint, solana.SysVarRentPubkey,
		).Build(),
		wallet.NewAssociatedTokenAccountIdempotentInstruction(b.payer, admin, mint),
		token.NewMintToInstruction(
			rawSupply, mint, adminATA, b.payer, nil,
		).Build(),
	}
	if !admin.Equals(b.payer) {
		instructions = append(instructions, token.NewSetAuthorityInstruction(
			token.AuthorityMintTokens, admin, mint, b.payer, nil,
		).Build())
	}
	if metadataURI != "" {
		instructions = append(instructions, memoInstruction(b.payer, metadataURI))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(b.payer))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	b.logger.Debug("Transaction built",
		zap.String("mint", mint.String()),
		zap.Uint64("raw_supply", rawSupply),
		zap.Uint64("rent_lamports", rent))

	return &BuiltTransaction{
		Tx:           tx,
		MintKey:      mintKey,
		MintAddress:  mint,
		RentLamports: rent,
	}, nil
}

// Simulate dry-runs the transaction. A ledger-side simulation failure means
// the call is logically invalid and is never retried.
func (b *Builder) Simulate(ctx context.Context, tx *solana.Transaction) error {
	response, err := retry.Execute(ctx, b.scheduler, func() (*rpc.SimulateTransactionResponse, error) {
		return b.client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			SigVerify:  false,
			Commitment: rpc.CommitmentProcessed,
		})
	}, nil)
	if err != nil {
		return newError(ErrNetwork, "simulation request failed", err)
	}
	if response == nil || response.Value == nil || response.Value.Err == nil {
		return nil
	}

	reason := fmt.Sprintf("%v", response.Value.Err)
	b.logger.Warn("Simulation failed",
		zap.String("reason", reason),
		zap.Strings("logs", response.Value.Logs))

	switch {
	case strings.Contains(reason, "AccountNotFound"):
		return newError(ErrAccountNotFound, "account does not exist on this network", fmt.Errorf("%s", reason))
	case strings.Contains(strings.ToLower(reason), "insufficient"):
		return newError(ErrInsufficientBalance, "not enough lamports to cover the deployment", fmt.Errorf("%s", reason))
	case strings.Contains(strings.ToLower(reason), "custom"):
		// "Custom" instruction errors carry the program's own error code.
		return newError(ErrContract, "the program rejected the transaction", fmt.Errorf("%s", reason))
	default:
		return newError(ErrSimulationFailed, "transaction simulation failed", fmt.Errorf("%s", reason))
	}
}

// Submit broadcasts the signed transaction. Preflight is skipped because
// the transaction was simulated explicitly.
func (b *Builder) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := b.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, Classify(err)
	}
	return sig, nil
}

func memoInstruction(signer solana.PublicKey, text string) solana.Instruction {
	return solana.NewInstruction(
		solana.MemoProgramID,
		[]*solana.AccountMeta{
			{PublicKey: signer, IsWritable: false, IsSigner: true},
		},
		[]byte(text),
	)
}
