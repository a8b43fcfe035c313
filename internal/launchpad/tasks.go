// internal/launchpad/tasks.go
package launchpad

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rovshanmuradov/solana-launchpad/internal/deploy"
)

// Task is one scheduled token deployment.
type Task struct {
	ID         int
	TaskName   string
	WalletName string
	Params     deploy.TokenParams
	CreatedAt  time.Time
}

// taskFile is the on-disk YAML shape of a deployment batch.
type taskFile struct {
	Tasks []struct {
		TaskName    string `yaml:"task_name"`
		Wallet      string `yaml:"wallet"`
		Name        string `yaml:"name"`
		Symbol      string `yaml:"symbol"`
		Decimals    uint8  `yaml:"decimals"`
		TotalSupply uint64 `yaml:"total_supply"`
		Admin       string `yaml:"admin"`
		Description string `yaml:"description"`
		ImageFile   string `yaml:"image_file"`
	} `yaml:"tasks"`
}

// TaskManager loads and validates deployment task definitions.
type TaskManager struct {
	logger *zap.Logger
}

func NewTaskManager(logger *zap.Logger) *TaskManager {
	return &TaskManager{logger: logger}
}

// LoadTasks reads tasks from a YAML file. Tasks that fail validation are
// skipped with a warning; the batch fails only when nothing remains.
func (m *TaskManager) LoadTasks(path string) ([]*Task, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}

	var file taskFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tasks YAML: %w", err)
	}
	if len(file.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks found in %s", cleanPath)
	}

	baseDir := filepath.Dir(cleanPath)
	tasks := make([]*Task, 0, len(file.Tasks))
	for i, raw := range file.Tasks {
		if raw.TaskName == "" || raw.Wallet == "" {
			m.logger.Warn("Skipping task with missing required fields",
				zap.Int("index", i),
				zap.String("task_name", raw.TaskName))
			continue
		}

		params := deploy.TokenParams{
			Name:        raw.Name,
			Symbol:      raw.Symbol,
			Decimals:    raw.Decimals,
			TotalSupply: raw.TotalSupply,
			Admin:       raw.Admin,
			Description: raw.Description,
		}

		if raw.ImageFile != "" {
			imagePath := raw.ImageFile
			if !filepath.IsAbs(imagePath) {
				imagePath = filepath.Join(baseDir, imagePath)
			}
			image, err := os.ReadFile(imagePath)
			if err != nil {
				m.logger.Warn("Skipping task with unreadable image",
					zap.String("task_name", raw.TaskName),
					zap.String("image_file", raw.ImageFile),
					zap.Error(err))
				continue
			}
			params.Image = image
			params.ImageName = filepath.Base(imagePath)
		}

		if err := params.Validate(); err != nil {
			m.logger.Warn("Skipping invalid task",
				zap.String("task_name", raw.TaskName),
				zap.Error(err))
			continue
		}

		tasks = append(tasks, &Task{
			ID:         i,
			TaskName:   raw.TaskName,
			WalletName: raw.Wallet,
			Params:     params,
			CreatedAt:  time.Now(),
		})
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks in %s", cleanPath)
	}
	m.logger.Info("Tasks loaded",
		zap.Int("total", len(file.Tasks)),
		zap.Int("valid", len(tasks)))
	return tasks, nil
}
