package reconcile

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultReportPath is where the report lands when no path is
// configured.
const DefaultReportPath = "reconciliation_report.csv"

// Config describes one reconciliation run: which document to read,
// where the reference tables live and where the report goes.
type Config struct {
	// DocumentURI is a local path or a gs:// URI of the statement PDF.
	DocumentURI string `yaml:"document_uri"`
	// TablesDir holds the reference tables, one CSV or XLSX per entity.
	TablesDir string `yaml:"tables_dir"`
	// ReportPath is the output CSV. Empty means DefaultReportPath.
	ReportPath string `yaml:"report_path"`
	// Model overrides the Gemini model used for extraction.
	Model string `yaml:"model"`

	// DocumentID links the run to an uploaded document. Set
	// programmatically when a run is triggered from the API, never
	// from the config file.
	DocumentID string `yaml:"-"`
}

// LoadConfig reads a run configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate fills defaults and checks the fields a run cannot do
// without.
func (c *Config) Validate() error {
	if c.DocumentURI == "" {
		return errors.New("document URI is required")
	}
	if c.TablesDir == "" {
		return errors.New("tables directory is required")
	}
	if c.ReportPath == "" {
		c.ReportPath = DefaultReportPath
	}
	return nil
}
