// Package config loads the daemon-wide and per-connector YAML
// configuration surfaces with gopkg.in/yaml.v3, the way the teacher
// loads its service configs (services/*/internal/config).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hornetlabs/synchdb/internal/model"
)

// DaemonConfig is the process-wide configuration: metadata directory,
// destination connection defaults, admin API and status backend.
type DaemonConfig struct {
	MetadataDir string `yaml:"metadata_dir"`

	Destination struct {
		Host              string        `yaml:"host"`
		Port              int           `yaml:"port"`
		User              string        `yaml:"user"`
		Password          string        `yaml:"password"`
		SSLMode           string        `yaml:"ssl_mode"`
		MaxConnections    int32         `yaml:"max_connections"`
		ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	} `yaml:"destination"`

	AdminAPI struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"admin_api"`

	StatusBackend struct {
		Redis struct {
			Enabled bool   `yaml:"enabled"`
			Addr    string `yaml:"addr"`
		} `yaml:"redis"`
	} `yaml:"status_backend"`
}

// LoadDaemonConfig reads and validates the daemon config file at path.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read daemon config: %w", err)
	}
	var cfg DaemonConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse daemon config: %w", err)
	}
	if cfg.MetadataDir == "" {
		cfg.MetadataDir = "./synchdb-meta"
	}
	return &cfg, nil
}

// ConnectorFile is the YAML shape of one connector's config file,
// mapping 1:1 to model.ConnectorConfig plus the rule-file path.
type ConnectorFile struct {
	Name                string   `yaml:"name"`
	SourceFlavor        string   `yaml:"source_flavor"`
	Host                string   `yaml:"host"`
	Port                int      `yaml:"port"`
	User                string   `yaml:"user"`
	Credential          string   `yaml:"credential"`
	SourceDatabase      string   `yaml:"source_database"`
	DestinationDatabase string   `yaml:"destination_database"`
	TableIncludeList    []string `yaml:"table_include_list"`
	SnapshotMode        string   `yaml:"snapshot_mode"`
	ErrorStrategy       string   `yaml:"error_strategy"`
	SQLMode             bool     `yaml:"sql_mode"`
	NapInterval         int      `yaml:"nap_interval"`
	RuleFile            string   `yaml:"rule_file"`
}

// LoadConnectorConfig reads one connector YAML file and converts it to
// a model.ConnectorConfig, validating it before returning.
func LoadConnectorConfig(path string) (model.ConnectorConfig, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.ConnectorConfig{}, "", fmt.Errorf("config: read connector config: %w", err)
	}
	var f ConnectorFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return model.ConnectorConfig{}, "", fmt.Errorf("config: parse connector config: %w", err)
	}

	nap := f.NapInterval
	if nap <= 0 {
		nap = 5
	}
	errStrategy := model.ErrorStrategy(f.ErrorStrategy)
	if errStrategy == "" {
		errStrategy = model.ErrorStrategySkip
	}

	cfg := model.ConnectorConfig{
		Name:                f.Name,
		SourceFlavor:        model.SourceFlavor(f.SourceFlavor),
		Host:                f.Host,
		Port:                f.Port,
		User:                f.User,
		Credential:          f.Credential,
		SourceDatabase:      f.SourceDatabase,
		DestinationDatabase: f.DestinationDatabase,
		TableIncludeList:    f.TableIncludeList,
		SnapshotMode:        model.SnapshotMode(f.SnapshotMode),
		ErrorStrategy:       errStrategy,
		SQLMode:             f.SQLMode,
		NapInterval:         nap,
	}

	if err := cfg.Validate(); err != nil {
		return model.ConnectorConfig{}, "", err
	}

	return cfg, f.RuleFile, nil
}

// EnsureMetadataDir creates dir if it doesn't already exist;
// existence is tolerated (spec §6 "The metadata directory is created
// at initialization; existence is tolerated.").
func EnsureMetadataDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create metadata dir: %w", err)
	}
	return nil
}

// OffsetFilePath builds the per-connector offset file path (spec §6
// "Persisted state layout"): <metadata_dir>/<flavor>_<name>_offsets.dat.
func OffsetFilePath(metadataDir string, flavor model.SourceFlavor, name string) string {
	return fmt.Sprintf("%s/%s_%s_offsets.dat", metadataDir, flavor, name)
}
