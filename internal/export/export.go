package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-launchpad/internal/storage/models"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures the export behavior
type Options struct {
	Format        Format
	StartTime     time.Time
	EndTime       time.Time
	CreatorFilter string // Filter by creator address
	SymbolFilter  string // Filter by token symbol
	OutputDir     string
}

// Exporter writes deployment history to disk
type Exporter struct {
	logger *zap.Logger
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export writes the deployments matching the options and returns the path.
func (e *Exporter) Export(deployments []*models.Deployment, options Options) (string, error) {
	filtered := e.filter(deployments, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no deployments match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].DeployedAt.Before(filtered[j].DeployedAt)
	})

	filename := e.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = e.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = e.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Deployments exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (e *Exporter) filter(deployments []*models.Deployment, options Options) []*models.Deployment {
	var filtered []*models.Deployment

	for _, dep := range deployments {
		if !options.StartTime.IsZero() && dep.DeployedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && dep.DeployedAt.After(options.EndTime) {
			continue
		}
		if options.CreatorFilter != "" && dep.Creator != options.CreatorFilter {
			continue
		}
		if options.SymbolFilter != "" && dep.Symbol != options.SymbolFilter {
			continue
		}
		filtered = append(filtered, dep)
	}
	return filtered
}

func (e *Exporter) generateFilename(options Options) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "deployments_all"
	if options.SymbolFilter != "" {
		prefix = "deployments_" + options.SymbolFilter
	}
	if options.CreatorFilter != "" && len(options.CreatorFilter) >= 8 {
		prefix += "_" + options.CreatorFilter[:8]
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func csvHeaders() []string {
	return []string{
		"deployed_at", "address", "name", "symbol",
		"decimals", "total_supply", "creator", "metadata_uri", "signature",
	}
}

func toCSVRow(dep *models.Deployment) []string {
	return []string{
		dep.DeployedAt.Format(time.RFC3339),
		dep.Address,
		dep.Name,
		dep.Symbol,
		strconv.Itoa(int(dep.Decimals)),
		strconv.FormatUint(dep.TotalSupply, 10),
		dep.Creator,
		dep.MetadataURI,
		dep.TransactionSignature,
	}
}

func (e *Exporter) exportToCSV(deployments []*models.Deployment, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, dep := range deployments {
		if err := writer.Write(toCSVRow(dep)); err != nil {
			return fmt.Errorf("failed to write deployment: %w", err)
		}
	}
	return nil
}

func (e *Exporter) exportToJSON(deployments []*models.Deployment, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	exportData := struct {
		ExportTime      time.Time            `json:"export_time"`
		DeploymentCount int                  `json:"deployment_count"`
		Deployments     []*models.Deployment `json:"deployments"`
		Summary         Summary              `json:"summary"`
	}{
		ExportTime:      time.Now(),
		DeploymentCount: len(deployments),
		Deployments:     deployments,
		Summary:         e.calculateSummary(deployments),
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary contains aggregate statistics for an export
type Summary struct {
	TotalDeployments int       `json:"total_deployments"`
	UniqueCreators   int       `json:"unique_creators"`
	UniqueSymbols    int       `json:"unique_symbols"`
	WithMetadata     int       `json:"with_metadata"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
}

func (e *Exporter) calculateSummary(deployments []*models.Deployment) Summary {
	summary := Summary{TotalDeployments: len(deployments)}
	if len(deployments) == 0 {
		return summary
	}

	summary.StartDate = deployments[0].DeployedAt
	summary.EndDate = deployments[len(deployments)-1].DeployedAt

	creators := make(map[string]bool)
	symbols := make(map[string]bool)
	for _, dep := range deployments {
		creators[dep.Creator] = true
		symbols[dep.Symbol] = true
		if dep.MetadataURI != "" {
			summary.WithMetadata++
		}
	}
	summary.UniqueCreators = len(creators)
	summary.UniqueSymbols = len(symbols)
	return summary
}
