package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-launchpad/internal/storage/models"
)

func sampleDeployments() []*models.Deployment {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*models.Deployment{
		{
			Address: "MintAAA", Name: "Alpha", Symbol: "ALPHA", Decimals: 6,
			TotalSupply: 1000, Creator: "creator1111", MetadataURI: "ipfs://QmA",
			TransactionSignature: "SigA", DeployedAt: base,
		},
		{
			Address: "MintBBB", Name: "Beta", Symbol: "BETA", Decimals: 9,
			TotalSupply: 2000, Creator: "creator2222",
			TransactionSignature: "SigB", DeployedAt: base.Add(time.Hour),
		},
		{
			Address: "MintCCC", Name: "Gamma", Symbol: "ALPHA", Decimals: 0,
			TotalSupply: 5, Creator: "creator1111",
			TransactionSignature: "SigC", DeployedAt: base.Add(2 * time.Hour),
		},
	}
}

func TestExportCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	path, err := exporter.Export(sampleDeployments(), Options{
		Format:    FormatCSV,
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".csv"))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeaders(), rows[0])
	assert.Equal(t, "MintAAA", rows[1][1])
	assert.Equal(t, "1000", rows[1][5])
}

func TestExportJSONWithSummary(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	path, err := exporter.Export(sampleDeployments(), Options{
		Format:    FormatJSON,
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var parsed struct {
		DeploymentCount int                  `json:"deployment_count"`
		Deployments     []*models.Deployment `json:"deployments"`
		Summary         Summary              `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, 3, parsed.DeploymentCount)
	assert.Equal(t, 2, parsed.Summary.UniqueCreators)
	assert.Equal(t, 2, parsed.Summary.UniqueSymbols)
	assert.Equal(t, 1, parsed.Summary.WithMetadata)
}

func TestExportFilters(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	dir := t.TempDir()

	path, err := exporter.Export(sampleDeployments(), Options{
		Format:        FormatCSV,
		CreatorFilter: "creator1111",
		SymbolFilter:  "ALPHA",
		OutputDir:     dir,
	})
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	// Header plus the two ALPHA deployments from creator1111.
	require.Len(t, rows, 3)
}

func TestExportNoMatches(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	_, err := exporter.Export(sampleDeployments(), Options{
		Format:        FormatCSV,
		CreatorFilter: "nobody",
		OutputDir:     t.TempDir(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no deployments match")
}

func TestExportTimeWindow(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	deps := sampleDeployments()

	path, err := exporter.Export(deps, Options{
		Format:    FormatJSON,
		StartTime: deps[1].DeployedAt,
		EndTime:   deps[1].DeployedAt.Add(time.Minute),
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var parsed struct {
		DeploymentCount int `json:"deployment_count"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, 1, parsed.DeploymentCount)
}
