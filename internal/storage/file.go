// internal/storage/file.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-launchpad/internal/storage/models"
)

// fileStorage keeps one JSON file of deployments per creator address.
// Records are ordered most recent first; MaxRecords of 0 keeps everything.
type fileStorage struct {
	mu         sync.Mutex
	dir        string
	maxRecords int
	logger     *zap.Logger
}

func NewFileStorage(dir string, maxRecords int, logger *zap.Logger) (Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &fileStorage{
		dir:        dir,
		maxRecords: maxRecords,
		logger:     logger.Named("storage"),
	}, nil
}

func (f *fileStorage) SaveDeployment(ctx context.Context, dep *models.Deployment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dep.Creator == "" {
		return fmt.Errorf("deployment record has no creator")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load(dep.Creator)
	if err != nil {
		return err
	}

	records = append([]*models.Deployment{dep}, records...)
	if f.maxRecords > 0 && len(records) > f.maxRecords {
		records = records[:f.maxRecords]
	}

	if err := f.store(dep.Creator, records); err != nil {
		return err
	}

	f.logger.Debug("Deployment record saved",
		zap.String("creator", dep.Creator),
		zap.String("address", dep.Address),
		zap.Int("total_records", len(records)))
	return nil
}

func (f *fileStorage) ListDeployments(ctx context.Context, creator string, limit, offset int) ([]*models.Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load(creator)
	if err != nil {
		return nil, err
	}

	if offset >= len(records) {
		return nil, nil
	}
	records = records[offset:]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (f *fileStorage) CountDeployments(ctx context.Context, creator string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load(creator)
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

func (f *fileStorage) Close() error { return nil }

func (f *fileStorage) path(creator string) string {
	// Creator addresses are base58 and filesystem safe, but guard anyway.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, creator)
	return filepath.Join(f.dir, "deployments_"+safe+".json")
}

func (f *fileStorage) load(creator string) ([]*models.Deployment, error) {
	data, err := os.ReadFile(f.path(creator))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read deployment history: %w", err)
	}

	var records []*models.Deployment
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse deployment history: %w", err)
	}
	return records, nil
}

// store writes through a temp file so a crash never truncates history.
func (f *fileStorage) store(creator string, records []*models.Deployment) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deployment history: %w", err)
	}

	target := f.path(creator)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write deployment history: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace deployment history: %w", err)
	}
	return nil
}
