package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-launchpad/internal/storage/models"
)

func record(creator string, n int) *models.Deployment {
	return &models.Deployment{
		Address:              fmt.Sprintf("Mint%04d", n),
		Name:                 "Token",
		Symbol:               "TOK",
		Decimals:             6,
		TotalSupply:          1000,
		Creator:              creator,
		TransactionSignature: fmt.Sprintf("Sig%04d", n),
		DeployedAt:           time.Unix(int64(1_700_000_000+n), 0).UTC(),
	}
}

func TestFileStorageMostRecentFirst(t *testing.T) {
	store, err := NewFileStorage(t.TempDir(), 0, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.SaveDeployment(ctx, record("creatorA", i)))
	}

	records, err := store.ListDeployments(ctx, "creatorA", 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Mint0003", records[0].Address)
	assert.Equal(t, "Mint0001", records[2].Address)

	count, err := store.CountDeployments(ctx, "creatorA")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestFileStorageRetentionLimit(t *testing.T) {
	store, err := NewFileStorage(t.TempDir(), 2, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.SaveDeployment(ctx, record("creatorA", i)))
	}

	records, err := store.ListDeployments(ctx, "creatorA", 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// The newest records survive.
	assert.Equal(t, "Mint0005", records[0].Address)
	assert.Equal(t, "Mint0004", records[1].Address)
}

func TestFileStoragePerCreatorIsolation(t *testing.T) {
	store, err := NewFileStorage(t.TempDir(), 0, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SaveDeployment(ctx, record("alice", 1)))
	require.NoError(t, store.SaveDeployment(ctx, record("bob", 2)))

	records, err := store.ListDeployments(ctx, "alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Creator)

	count, err := store.CountDeployments(ctx, "carol")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFileStorageLimitOffset(t *testing.T) {
	store, err := NewFileStorage(t.TempDir(), 0, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.SaveDeployment(ctx, record("creatorA", i)))
	}

	page, err := store.ListDeployments(ctx, "creatorA", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Mint0004", page[0].Address)
	assert.Equal(t, "Mint0003", page[1].Address)

	past, err := store.ListDeployments(ctx, "creatorA", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestFileStorageSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStorage(dir, 0, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.SaveDeployment(ctx, record("creatorA", 1)))
	require.NoError(t, store.Close())

	reopened, err := NewFileStorage(dir, 0, zap.NewNop())
	require.NoError(t, err)
	records, err := reopened.ListDeployments(ctx, "creatorA", 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Sig0001", records[0].TransactionSignature)
}

func TestFileStorageRejectsEmptyCreator(t *testing.T) {
	store, err := NewFileStorage(t.TempDir(), 0, zap.NewNop())
	require.NoError(t, err)

	err = store.SaveDeployment(context.Background(), &models.Deployment{Address: "Mint"})
	require.Error(t, err)
}
