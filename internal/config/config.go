// Package config loads the hiveseed.yaml manifest.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/hiveseed/internal/files/filesystem"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// ErrConfigNotFound is returned when the manifest does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("manifest not found")

// ConfigFileName is looked up when Load is given a directory.
const ConfigFileName = "hiveseed.yaml"

// Defaults of the built-in manifest.
const (
	DefaultTableName  = "ALCOHOL"
	DefaultSourcePath = "/plotly_datasets/2010_alcohol_consumption_by_country.csv"
)

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	SSLCert        string `yaml:"sslcert,omitempty"`
	SSLKey         string `yaml:"sslkey,omitempty"`
	SSLRootCert    string `yaml:"sslrootcert,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

type LivyConfig struct {
	URL          string            `yaml:"url"`
	Username     string            `yaml:"username,omitempty"`
	SessionKind  string            `yaml:"session_kind,omitempty"`
	PollInterval string            `yaml:"poll_interval,omitempty"`
	Conf         map[string]string `yaml:"conf,omitempty"`
}

type EngineConfig struct {
	Kind       string           `yaml:"kind"`
	Livy       LivyConfig       `yaml:"livy"`
	Connection ConnectionConfig `yaml:"connection"`
}

type ColumnConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type TableConfig struct {
	Name       string         `yaml:"name"`
	Columns    []ColumnConfig `yaml:"columns"`
	Delimiter  string         `yaml:"delimiter"`
	HeaderSkip int            `yaml:"header_skip"`
}

// Manifest is the parsed hiveseed.yaml.
type Manifest struct {
	AppName     string       `yaml:"app_name"`
	Engine      EngineConfig `yaml:"engine"`
	Namespace   string       `yaml:"namespace"`
	Table       TableConfig  `yaml:"table"`
	Source      string       `yaml:"source"`
	IfNotExists bool         `yaml:"if_not_exists"`
	Timeout     string       `yaml:"timeout"`
}

// Default returns the manifest used when none is given: the ALCOHOL table
// of the Plotly exports dataset, comma-delimited, no header.
func Default() *Manifest {
	m := &Manifest{
		Table: TableConfig{
			Name: DefaultTableName,
			Columns: []ColumnConfig{
				{Name: "LOCATION", Type: string(hiveseed.TypeString)},
				{Name: "ALCOHOL", Type: string(hiveseed.TypeFloat)},
			},
		},
		Source: DefaultSourcePath,
	}
	m.ApplyDefaults()
	return m
}

// Load reads a manifest. path may name the file itself or a directory
// holding hiveseed.yaml. Unknown keys are rejected.
func Load(fsys filesystem.FileSystemProvider, path string) (*Manifest, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrConfigNotFound)
		}
		return nil, err
	}
	if info.IsDir() {
		path = filepath.Join(path, ConfigFileName)
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrConfigNotFound)
		}
		return nil, err
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %v: %w", path, err, hiveseed.ErrInvalidConfig)
	}
	m.ApplyDefaults()
	return &m, nil
}

// ApplyDefaults fills unset fields with the values of the original job.
func (m *Manifest) ApplyDefaults() {
	if m.AppName == "" {
		m.AppName = hiveseed.DefaultAppName
	}
	if m.Namespace == "" {
		m.Namespace = hiveseed.DefaultNamespace
	}
	if m.Table.Delimiter == "" {
		m.Table.Delimiter = hiveseed.DefaultDelimiter
	}
	if m.Engine.Kind == "" {
		m.Engine.Kind = string(hiveseed.EngineLivy)
	}
}

// TableSpec converts the table section, normalizing column types.
func (m *Manifest) TableSpec() (hiveseed.TableSpec, error) {
	spec := hiveseed.TableSpec{
		Name:       m.Table.Name,
		Columns:    make([]hiveseed.Column, 0, len(m.Table.Columns)),
		Delimiter:  m.Table.Delimiter,
		HeaderSkip: m.Table.HeaderSkip,
	}

	var errs []error
	for _, c := range m.Table.Columns {
		t, err := hiveseed.ParseColumnType(c.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("column %q: %w", c.Name, err))
			continue
		}
		spec.Columns = append(spec.Columns, hiveseed.Column{Name: c.Name, Type: t})
	}
	if len(errs) > 0 {
		return hiveseed.TableSpec{}, errors.Join(errs...)
	}
	return spec, nil
}

// ProvisionConfig builds and validates the provisioning input.
func (m *Manifest) ProvisionConfig() (hiveseed.ProvisionConfig, error) {
	spec, err := m.TableSpec()
	if err != nil {
		return hiveseed.ProvisionConfig{}, err
	}
	cfg := hiveseed.ProvisionConfig{
		AppName:     m.AppName,
		Namespace:   m.Namespace,
		Table:       spec,
		SourcePath:  m.Source,
		IfNotExists: m.IfNotExists,
	}
	if err := cfg.Validate(); err != nil {
		return hiveseed.ProvisionConfig{}, err
	}
	return cfg, nil
}

// TimeoutDuration parses the timeout. Empty means no timeout.
func (m *Manifest) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", m.Timeout)
}

// LivyPollInterval parses the Livy poll interval. Empty means the default.
func (m *Manifest) LivyPollInterval() (time.Duration, error) {
	d, err := parseDuration("engine.livy.poll_interval", m.Engine.Livy.PollInterval)
	if err != nil || d > 0 {
		return d, err
	}
	return hiveseed.DefaultLivyPollInterval, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, hiveseed.ErrInvalidConfig)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative: %w", field, hiveseed.ErrInvalidConfig)
	}
	return d, nil
}
