// internal/launchpad/runner.go
package launchpad

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-launchpad/internal/config"
	"github.com/rovshanmuradov/solana-launchpad/internal/deploy"
	"github.com/rovshanmuradov/solana-launchpad/internal/export"
	"github.com/rovshanmuradov/solana-launchpad/internal/ipfs"
	"github.com/rovshanmuradov/solana-launchpad/internal/retry"
	"github.com/rovshanmuradov/solana-launchpad/internal/storage"
	"github.com/rovshanmuradov/solana-launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/solana-launchpad/internal/txmon"
	"github.com/rovshanmuradov/solana-launchpad/internal/wallet"
)

// Runner wires the deployment pipeline together and drives task batches
// through a worker pool.
type Runner struct {
	cfg         *config.Config
	logger      *zap.Logger
	rpcClient   *rpc.Client
	monitor     *txmon.Monitor
	store       storage.Storage
	uploader    ipfs.Uploader
	wallets     map[string]*wallet.Wallet
	taskManager *TaskManager
	shutdownCh  chan os.Signal
}

func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	wallets, err := wallet.LoadWallets(cfg.WalletsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	rpcClient := rpc.New(cfg.RPCList[0])

	checker := txmon.NewRPCStatusChecker(rpcClient, 1, logger)
	monitor := txmon.New(checker, txmon.Config{
		PollingInterval:   cfg.Monitoring.PollingInterval(),
		MaxRetries:        cfg.Monitoring.MaxRetries,
		Timeout:           cfg.Monitoring.Timeout(),
		BackoffMultiplier: cfg.Monitoring.BackoffMultiplier,
	}, logger, prometheus.DefaultRegisterer)

	var store storage.Storage
	switch cfg.Storage.Backend {
	case "postgres":
		store, err = postgres.NewStorage(cfg.Storage.PostgresURL, logger)
	default:
		store, err = storage.NewFileStorage(cfg.Storage.DataDir, cfg.Storage.MaxRecords, logger)
	}
	if err != nil {
		monitor.Destroy()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	var uploader ipfs.Uploader
	if cfg.IPFSEndpoint != "" {
		uploader = ipfs.NewClient(cfg.IPFSEndpoint, logger)
	}

	return &Runner{
		cfg:         cfg,
		logger:      logger,
		rpcClient:   rpcClient,
		monitor:     monitor,
		store:       store,
		uploader:    uploader,
		wallets:     wallets,
		taskManager: NewTaskManager(logger),
		shutdownCh:  make(chan os.Signal, 1),
	}, nil
}

// Monitor exposes the shared transaction monitor.
func (r *Runner) Monitor() *txmon.Monitor { return r.monitor }

// Storage exposes the deployment history store.
func (r *Runner) Storage() storage.Storage { return r.store }

// Orchestrator builds a deployment pipeline bound to the named wallet.
func (r *Runner) Orchestrator(walletName string) (*deploy.Orchestrator, error) {
	w, ok := r.wallets[walletName]
	if !ok {
		return nil, fmt.Errorf("unknown wallet %q", walletName)
	}
	signer := wallet.NewKeypairSigner(w, nil, r.logger)

	scheduler := retry.NewScheduler(retry.Config{
		MaxAttempts:  r.cfg.Retry.MaxAttempts,
		InitialDelay: r.cfg.Retry.InitialDelay(),
		MaxDelay:     r.cfg.Retry.MaxDelay(),
		Multiplier:   r.cfg.Retry.Multiplier,
	}, r.logger)
	builder := deploy.NewBuilder(r.rpcClient, signer.PublicKey(), scheduler, r.logger)

	return deploy.NewOrchestrator(builder, signer, r.uploader, r.monitor, r.store, r.logger), nil
}

// Run executes the task batch at tasksPath and blocks until every task
// finished or the context is canceled.
func (r *Runner) Run(ctx context.Context, tasksPath string) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.shutdownCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("Signal received, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
	}()

	tasks, err := r.taskManager.LoadTasks(tasksPath)
	if err != nil {
		return err
	}
	r.logger.Info("Starting deployment batch",
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", r.cfg.Workers))

	taskCh := make(chan *Task, len(tasks))
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < r.cfg.Workers; i++ {
		id := i + 1
		g.Go(func() error {
			return r.worker(gctx, id, taskCh)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("Deployment batch finished")
	return nil
}

// worker drains the task channel. Per-task failures are logged and do not
// stop the batch; only context cancellation does.
func (r *Runner) worker(ctx context.Context, id int, tasks <-chan *Task) error {
	logger := r.logger.With(zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker stopping")
			return ctx.Err()
		case t, ok := <-tasks:
			if !ok {
				return nil
			}
			r.handleTask(ctx, t, logger)
		}
	}
}

func (r *Runner) handleTask(ctx context.Context, t *Task, logger *zap.Logger) {
	logger = logger.With(zap.String("task", t.TaskName))

	orch, err := r.Orchestrator(t.WalletName)
	if err != nil {
		logger.Error("Task skipped", zap.Error(err))
		return
	}

	result, err := orch.Deploy(ctx, t.Params)
	if err != nil {
		deployErr := deploy.Classify(err)
		logger.Error("Deployment failed",
			zap.String("code", string(deployErr.Code)),
			zap.String("suggestion", deployErr.Suggestion),
			zap.Error(err))
		return
	}

	logger.Info("Token deployed",
		zap.String("address", result.TokenAddress),
		zap.String("signature", result.Signature),
		zap.String("metadata_uri", result.MetadataURI))
}

// ExportHistory writes the creator's deployment history to outputDir and
// returns the file path.
func (r *Runner) ExportHistory(ctx context.Context, creator string, format export.Format, outputDir string) (string, error) {
	deployments, err := r.store.ListDeployments(ctx, creator, 0, 0)
	if err != nil {
		return "", fmt.Errorf("failed to load deployment history: %w", err)
	}
	return export.NewExporter(r.logger).Export(deployments, export.Options{
		Format:        format,
		CreatorFilter: creator,
		OutputDir:     outputDir,
	})
}

// Close releases the monitor and the storage backend.
func (r *Runner) Close() error {
	r.monitor.Destroy()
	return r.store.Close()
}
