package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Imputation ImputationConfig `yaml:"imputation" ignored:"true"`
	Reindex    ReindexConfig    `yaml:"reindex" envconfig:"REINDEX"`
	Statistics StatisticsConfig `yaml:"statistics" envconfig:"STATISTICS"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// PathsConfig contains file system paths configuration.
// Relative paths are resolved against the working directory.
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	OutputDir   string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	MasterTable string `yaml:"master_table" envconfig:"MASTER_TABLE"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// ImputationConfig holds the substitute values for categorical heights.
// Aliases map non-numeric family identifiers of the transcription to the
// numeric placeholder they are given before reindexing.
type ImputationConfig struct {
	Sons      []domain.Category `yaml:"sons" validate:"required,min=1,dive"`
	Daughters []domain.Category `yaml:"daughters" validate:"required,min=1,dive"`
	Aliases   map[string]int    `yaml:"aliases" validate:"dive,keys,required,endkeys,gt=0"`
}

// ReindexConfig identifies the family moved by the reindexing stage.
// A zero Target resolves the destination from father-height ordering.
type ReindexConfig struct {
	Anomalous int `yaml:"anomalous" envconfig:"ANOMALOUS" validate:"gt=0"`
	Target    int `yaml:"target" envconfig:"TARGET" validate:"gte=0"`
}

// StatisticsConfig defines the fixed histogram edges: BinEdges evenly spaced
// values from BinStart to BinStop inclusive.
type StatisticsConfig struct {
	BinStart float64 `yaml:"bin_start" envconfig:"BIN_START"`
	BinStop  float64 `yaml:"bin_stop" envconfig:"BIN_STOP" validate:"gtfield=BinStart"`
	BinEdges int     `yaml:"bin_edges" envconfig:"BIN_EDGES" validate:"gte=2"`
}

// TelemetryConfig toggles span export and the metrics textfile
type TelemetryConfig struct {
	Tracing     bool   `yaml:"tracing" envconfig:"TRACING"`
	Metrics     bool   `yaml:"metrics" envconfig:"METRICS"`
	TraceFile   string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load builds the configuration from defaults, an optional YAML file and
// GALTON_* environment variables, in increasing order of precedence.
// An empty configFile searches the default locations.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file on top of cfg. Aliases listed in the
// file replace the default aliases rather than being merged into them.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	aliases := cfg.Imputation.Aliases
	cfg.Imputation.Aliases = nil
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return err
	}
	if cfg.Imputation.Aliases == nil {
		cfg.Imputation.Aliases = aliases
	}
	return nil
}

// Validate checks struct constraints and the ordering of both imputation tables
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	if _, _, err := c.Lookups(); err != nil {
		return err
	}
	return nil
}

// Lookups builds the son and daughter category lookups
func (c *Config) Lookups() (sons, daughters *domain.CategoryLookup, err error) {
	sons, err = domain.NewCategoryLookup(domain.SexSon, c.Imputation.Sons)
	if err != nil {
		return nil, nil, err
	}
	daughters, err = domain.NewCategoryLookup(domain.SexDaughter, c.Imputation.Daughters)
	if err != nil {
		return nil, nil, err
	}
	return sons, daughters, nil
}

// getConfigFilePath returns the first config file found in the usual places
func getConfigFilePath() string {
	locations := []string{
		"galton.yaml",
		"configs/galton.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/galton.log",
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			LogsDir: DefaultLogsDir,
		},
		Imputation: ImputationConfig{
			Sons:      domain.DefaultSonCategories(),
			Daughters: domain.DefaultDaughterCategories(),
			Aliases:   map[string]int{DefaultAnomalousLabel: DefaultAnomalousFamily},
		},
		Reindex: ReindexConfig{
			Anomalous: DefaultAnomalousFamily,
		},
		Statistics: StatisticsConfig{
			BinStart: DefaultBinStart,
			BinStop:  DefaultBinStop,
			BinEdges: DefaultBinEdges,
		},
		Telemetry: TelemetryConfig{
			Metrics: true,
		},
	}
}
