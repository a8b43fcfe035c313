// ====================================
// File: cmd/launchpad/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-launchpad/internal/config"
	"github.com/rovshanmuradov/solana-launchpad/internal/export"
	"github.com/rovshanmuradov/solana-launchpad/internal/launchpad"
	"github.com/rovshanmuradov/solana-launchpad/internal/logger"
	"github.com/rovshanmuradov/solana-launchpad/internal/ui"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to the launchpad configuration")
	tasksPath := flag.String("tasks", "configs/tasks.yml", "path to the deployment tasks file")
	interactive := flag.Bool("tui", false, "deploy the first task with the interactive progress UI")
	exportCreator := flag.String("export", "", "export deployment history for the given creator address and exit")
	exportFormat := flag.String("export-format", "csv", "export format: csv or json")
	exportDir := flag.String("export-dir", "exports", "directory for exported history files")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// No logger yet; this is the one place plain stderr is acceptable.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.CreatePrettyLogger(cfg.DebugLogging)
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Starting token launchpad", zap.String("network", cfg.NetworkID))

	runner, err := launchpad.NewRunner(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize launchpad", zap.Error(err))
	}
	defer runner.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *exportCreator != "" {
		path, err := runner.ExportHistory(ctx, *exportCreator, export.Format(*exportFormat), *exportDir)
		if err != nil {
			log.Fatal("Export failed", zap.Error(err))
		}
		log.Info("History exported", zap.String("file", path))
		return
	}

	if *interactive {
		if err := runInteractive(ctx, runner, *tasksPath, log); err != nil {
			log.Fatal("Interactive deployment failed", zap.Error(err))
		}
		return
	}

	if err := runner.Run(ctx, *tasksPath); err != nil {
		log.Fatal("Deployment batch failed", zap.Error(err))
	}
}

// runInteractive deploys the first task from the batch with the progress UI.
func runInteractive(ctx context.Context, runner *launchpad.Runner, tasksPath string, log *zap.Logger) error {
	tasks, err := launchpad.NewTaskManager(log).LoadTasks(tasksPath)
	if err != nil {
		return err
	}
	task := tasks[0]

	orch, err := runner.Orchestrator(task.WalletName)
	if err != nil {
		return err
	}

	model := ui.NewDeployModel(orch, task.Params)
	program := tea.NewProgram(model, tea.WithContext(ctx))
	_, err = program.Run()
	return err
}
