// internal/deploy/orchestrator.go
package deploy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-launchpad/internal/ipfs"
	"github.com/rovshanmuradov/solana-launchpad/internal/storage"
	"github.com/rovshanmuradov/solana-launchpad/internal/storage/models"
	"github.com/rovshanmuradov/solana-launchpad/internal/txmon"
	"github.com/rovshanmuradov/solana-launchpad/internal/wallet"
)

// Phase is the orchestrator's lifecycle state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseUploading  Phase = "uploading"
	PhaseDeploying  Phase = "deploying"
	PhaseSuccess    Phase = "success"
	PhaseError      Phase = "error"
)

// Terminal reports whether the phase ends a deployment attempt.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseError
}

var phaseMessages = map[Phase]string{
	PhaseIdle:       "Ready to deploy",
	PhaseValidating: "Validating token parameters...",
	PhaseUploading:  "Uploading metadata to IPFS...",
	PhaseDeploying:  "Deploying token...",
	PhaseSuccess:    "Token deployed successfully",
	PhaseError:      "Deployment failed",
}

// Result describes a completed deployment.
type Result struct {
	TokenAddress string
	Signature    string
	MetadataURI  string
	Fee          uint64
	Timestamp    time.Time
}

// TransitionFunc observes phase changes; it is invoked outside the
// orchestrator lock and must not call back into the orchestrator.
type TransitionFunc func(phase Phase, message string)

// Orchestrator drives one deployment at a time through
// validate -> upload -> deploy -> terminal.
type Orchestrator struct {
	builder  *Builder
	signer   wallet.Signer
	uploader ipfs.Uploader
	monitor  *txmon.Monitor
	store    storage.Storage
	logger   *zap.Logger

	mu           sync.Mutex
	phase        Phase
	params       TokenParams
	hasParams    bool
	result       *Result
	lastErr      *DeployError
	onTransition TransitionFunc
}

func NewOrchestrator(builder *Builder, signer wallet.Signer, uploader ipfs.Uploader, monitor *txmon.Monitor, store storage.Storage, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		builder:  builder,
		signer:   signer,
		uploader: uploader,
		monitor:  monitor,
		store:    store,
		logger:   logger.Named("deploy"),
		phase:    PhaseIdle,
	}
}

// OnTransition registers the phase observer. Only one observer is kept;
// registering replaces the previous one.
func (o *Orchestrator) OnTransition(fn TransitionFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onTransition = fn
}

// Status returns the current phase.
func (o *Orchestrator) Status() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// StatusMessage returns a human-readable line for the current phase. In the
// error phase it carries the failure's suggestion when one exists.
func (o *Orchestrator) StatusMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase == PhaseError && o.lastErr != nil {
		if o.lastErr.Suggestion != "" {
			return fmt.Sprintf("%s. %s", o.lastErr.Message, o.lastErr.Suggestion)
		}
		return o.lastErr.Message
	}
	return phaseMessages[o.phase]
}

// IsDeploying reports whether a deployment is past validation and in flight.
// Validation is synchronous and does not count.
func (o *Orchestrator) IsDeploying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase == PhaseUploading || o.phase == PhaseDeploying
}

// Result returns the outcome of the last successful deployment.
func (o *Orchestrator) Result() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Err returns the failure of the last attempt, nil outside the error phase.
func (o *Orchestrator) Err() *DeployError {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseError {
		return nil
	}
	return o.lastErr
}

// Reset returns the orchestrator to idle. It refuses while a deployment is
// in flight.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if !o.phase.Terminal() && o.phase != PhaseIdle {
		o.mu.Unlock()
		return fmt.Errorf("cannot reset while deployment is in progress")
	}
	o.phase = PhaseIdle
	o.result = nil
	o.lastErr = nil
	o.hasParams = false
	fn := o.onTransition
	o.mu.Unlock()

	if fn != nil {
		fn(PhaseIdle, phaseMessages[PhaseIdle])
	}
	return nil
}

// Retry re-runs the last attempt with the same parameters. Only permitted
// from the error phase, and only when the failure is marked retryable.
func (o *Orchestrator) Retry(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.phase != PhaseError {
		o.mu.Unlock()
		return nil, fmt.Errorf("retry is only available after a failed deployment")
	}
	if o.lastErr != nil && !o.lastErr.Retryable {
		code := o.lastErr.Code
		o.mu.Unlock()
		return nil, fmt.Errorf("deployment failure %s is not retryable", code)
	}
	if !o.hasParams {
		o.mu.Unlock()
		return nil, fmt.Errorf("no previous deployment to retry")
	}
	params := o.params
	o.phase = PhaseIdle
	o.lastErr = nil
	o.mu.Unlock()

	return o.Deploy(ctx, params)
}

// Deploy runs one full deployment. Exactly one runs at a time; concurrent
// calls are rejected while one is in flight.
func (o *Orchestrator) Deploy(ctx context.Context, params TokenParams) (*Result, error) {
	o.mu.Lock()
	if !o.phase.Terminal() && o.phase != PhaseIdle {
		o.mu.Unlock()
		return nil, fmt.Errorf("deployment already in progress")
	}
	o.params = params
	o.hasParams = true
	o.result = nil
	o.lastErr = nil
	o.mu.Unlock()

	o.transition(PhaseValidating)
	if err := params.Validate(); err != nil {
		return nil, o.fail(err)
	}

	var metadataURI string
	if params.HasMetadata() {
		o.transition(PhaseUploading)
		uri, err := o.upload(ctx, params)
		if err != nil {
			return nil, o.fail(newError(ErrUploadFailed, "Failed to upload metadata to IPFS", err))
		}
		metadataURI = uri
	}

	o.transition(PhaseDeploying)
	result, err := o.submit(ctx, params, metadataURI)
	if err != nil {
		return nil, o.fail(err)
	}

	o.persist(ctx, params, result)

	o.mu.Lock()
	o.phase = PhaseSuccess
	o.result = result
	fn := o.onTransition
	o.mu.Unlock()
	if fn != nil {
		fn(PhaseSuccess, phaseMessages[PhaseSuccess])
	}

	o.logger.Info("Token deployed",
		zap.String("address", result.TokenAddress),
		zap.String("signature", result.Signature),
		zap.Uint64("fee_lamports", result.Fee))
	return result, nil
}

// upload pins the token content and waits for the URI, honoring cancellation.
func (o *Orchestrator) upload(ctx context.Context, params TokenParams) (string, error) {
	if o.uploader == nil {
		return "", errors.New("no uploader configured")
	}

	meta := ipfs.Metadata{
		Name:        params.Name,
		Symbol:      params.Symbol,
		Description: params.Description,
	}
	up := o.uploader.Upload(ctx, params.Image, params.ImageName, meta, func(uploaded, total int64) {
		o.logger.Debug("Upload progress",
			zap.Int64("uploaded", uploaded),
			zap.Int64("total", total))
	})

	select {
	case res := <-up.Result():
		if res.Err != nil {
			return "", res.Err
		}
		return res.URI, nil
	case <-ctx.Done():
		up.Cancel()
		return "", ctx.Err()
	}
}

// submit builds, simulates, signs, sends and confirms the transaction.
func (o *Orchestrator) submit(ctx context.Context, params TokenParams, metadataURI string) (*Result, error) {
	if o.signer == nil {
		return nil, newError(ErrWalletNotConnected, "No wallet connected", nil)
	}

	built, err := o.builder.Build(ctx, params, metadataURI)
	if err != nil {
		return nil, err
	}
	if err := o.builder.Simulate(ctx, built.Tx); err != nil {
		return nil, err
	}

	signed, err := o.signer.Sign(ctx, built.Tx, built.MintKey)
	if err != nil {
		return nil, Classify(err)
	}
	if signed == nil {
		// The user declined; nothing was submitted, so no session to track.
		return nil, newError(ErrWalletRejected, "Transaction rejected by wallet", nil)
	}

	sig, err := o.builder.Submit(ctx, signed)
	if err != nil {
		return nil, err
	}

	update, err := o.await(ctx, sig.String())
	if err != nil {
		return nil, err
	}

	switch update.Status {
	case txmon.StatusSuccess:
		return &Result{
			TokenAddress: built.MintAddress.String(),
			Signature:    sig.String(),
			MetadataURI:  metadataURI,
			Fee:          built.EstimatedFee(),
			Timestamp:    update.Timestamp,
		}, nil
	case txmon.StatusTimeout:
		return nil, newError(ErrTimeout, "Transaction confirmation timed out", errors.New(update.Error))
	case txmon.StatusFailed:
		// The ledger rejected the transaction; the reason text is whatever
		// the chain reported and must not be re-classified by message.
		return nil, newError(ErrTransactionFailed, "Transaction failed", errors.New(update.Error))
	default:
		return nil, Classify(errors.New(update.Error))
	}
}

// await blocks until the monitor reports a terminal status for the signature.
func (o *Orchestrator) await(ctx context.Context, signature string) (txmon.StatusUpdate, error) {
	terminal := make(chan txmon.StatusUpdate, 1)
	err := o.monitor.StartMonitoring(signature, func(u txmon.StatusUpdate) {
		if u.Status.Terminal() {
			select {
			case terminal <- u:
			default:
			}
		}
	}, func(sig string, err error) {
		o.logger.Warn("Status check failed, retrying",
			zap.String("signature", sig),
			zap.Error(err))
	})
	if err != nil {
		return txmon.StatusUpdate{}, Classify(err)
	}

	select {
	case u := <-terminal:
		return u, nil
	case <-ctx.Done():
		_ = o.monitor.StopMonitoring(signature)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return txmon.StatusUpdate{}, newError(ErrTimeout, "Transaction confirmation timed out", ctx.Err())
		}
		return txmon.StatusUpdate{}, Classify(ctx.Err())
	}
}

// persist records the deployment for the admin's history. Storage failures
// are logged, not surfaced: the token exists on chain regardless.
func (o *Orchestrator) persist(ctx context.Context, params TokenParams, result *Result) {
	if o.store == nil {
		return
	}
	rec := &models.Deployment{
		Address:              result.TokenAddress,
		Name:                 params.Name,
		Symbol:               params.Symbol,
		Decimals:             params.Decimals,
		TotalSupply:          params.TotalSupply,
		Creator:              params.Admin,
		MetadataURI:          result.MetadataURI,
		TransactionSignature: result.Signature,
		DeployedAt:           result.Timestamp,
	}
	if err := o.store.SaveDeployment(ctx, rec); err != nil {
		o.logger.Error("Failed to save deployment record",
			zap.String("address", result.TokenAddress),
			zap.Error(err))
	}
}

func (o *Orchestrator) transition(phase Phase) {
	o.mu.Lock()
	o.phase = phase
	fn := o.onTransition
	o.mu.Unlock()

	o.logger.Debug("Deployment phase", zap.String("phase", string(phase)))
	if fn != nil {
		fn(phase, phaseMessages[phase])
	}
}

// fail classifies err, records it and moves to the error phase.
func (o *Orchestrator) fail(err error) *DeployError {
	deployErr := Classify(err)

	o.mu.Lock()
	o.phase = PhaseError
	o.lastErr = deployErr
	fn := o.onTransition
	o.mu.Unlock()

	o.logger.Error("Deployment failed",
		zap.String("code", string(deployErr.Code)),
		zap.Bool("retryable", deployErr.Retryable),
		zap.Error(deployErr))
	if fn != nil {
		fn(PhaseError, deployErr.Message)
	}
	return deployErr
}
