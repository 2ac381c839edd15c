package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vizflow/market"
)

type Config struct {
	Vizflow   VizflowConfig   `yaml:"vizflow"`
	Market    string          `yaml:"market"`
	Markets   []MarketConfig  `yaml:"markets"`
	Data      DataConfig      `yaml:"data"`
	Output    OutputConfig    `yaml:"output"`
	Columns   ColumnsConfig   `yaml:"columns"`
	Schema    SchemaConfig    `yaml:"schema"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Reader    ReaderConfig    `yaml:"reader"`
	Processor ProcessorConfig `yaml:"processor"`
	Writer    WriterConfig    `yaml:"writer"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type VizflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// MarketConfig declares additional trading-session calendars beyond the
// built-in ones. Session times are "HH:MM" or "HH:MM:SS".
type MarketConfig struct {
	ID               string          `yaml:"id"`
	Sessions         []SessionConfig `yaml:"sessions"`
	CloseToleranceMS int             `yaml:"close_tolerance_ms"`
}

type SessionConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type DataConfig struct {
	TradeDir     string   `yaml:"trade_dir"`
	TradePattern string   `yaml:"trade_pattern"`
	AlphaDir     string   `yaml:"alpha_dir"`
	AlphaPattern string   `yaml:"alpha_pattern"`
	UnivDir      string   `yaml:"univ_dir"`
	UnivPattern  string   `yaml:"univ_pattern"`
	Dates        []string `yaml:"dates"`
}

type OutputConfig struct {
	ReplayDir    string        `yaml:"replay_dir"`
	AggregateDir string        `yaml:"aggregate_dir"`
	Formats      FormatsConfig `yaml:"formats"`
}

type FormatsConfig struct {
	Parquet ParquetConfig `yaml:"parquet"`
	CSV     CSVConfig     `yaml:"csv"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type CSVConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ColumnsConfig struct {
	TradePreset  string            `yaml:"trade_preset"`
	AlphaPreset  string            `yaml:"alpha_preset"`
	TradeRenames map[string]string `yaml:"trade_renames"`
	AlphaRenames map[string]string `yaml:"alpha_renames"`
	Drop         []string          `yaml:"drop"`
}

// SchemaConfig declares per-column cast targets applied after reading,
// e.g. squashing float precision noise back into an int64 id column.
// Valid targets: "int64", "float64", "string".
type SchemaConfig struct {
	TradeCasts map[string]string `yaml:"trade_casts"`
	AlphaCasts map[string]string `yaml:"alpha_casts"`
}

type AnalysisConfig struct {
	Horizons   []int              `yaml:"horizons"`
	TimeCutoff int64              `yaml:"time_cutoff"`
	Binwidths  map[string]float64 `yaml:"binwidths"`
	GroupBy    []string           `yaml:"group_by"`
}

type ReaderConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type ProcessorConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type WriterConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type ChannelsConfig struct {
	RawBuffer       int `yaml:"raw_buffer"`
	ProcessedBuffer int `yaml:"processed_buffer"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	KeyPrefix       string `yaml:"key_prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

const defaultConfigPath = "config/config.yaml"

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yaml",
	environmentStaging:    "config/config.staging.yaml",
}

// ResolveConfigPath maps an empty or default path to the environment specific
// config file when APP_ENV selects one.
func ResolveConfigPath(path string) string {
	return resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Data: DataConfig{
			TradePattern: "{date}.parquet",
			AlphaPattern: "alpha_{date}.parquet",
			UnivPattern:  "{date}.csv",
		},
		Output: OutputConfig{
			Formats: FormatsConfig{
				Parquet: ParquetConfig{Enabled: true, Compression: "snappy"},
			},
		},
		Reader:    ReaderConfig{MaxWorkers: 4},
		Processor: ProcessorConfig{MaxWorkers: 4},
		Writer:    WriterConfig{MaxWorkers: 2},
		Channels:  ChannelsConfig{RawBuffer: 8, ProcessedBuffer: 8},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// RegisterMarkets builds and registers the config-declared markets so that
// market.Get resolves them alongside the built-in ones.
func (c *Config) RegisterMarkets() error {
	for _, mc := range c.Markets {
		sessions := make([]market.Session, 0, len(mc.Sessions))
		for _, sc := range mc.Sessions {
			start, err := parseSessionTime(sc.Start)
			if err != nil {
				return fmt.Errorf("market %s: %w", mc.ID, err)
			}
			end, err := parseSessionTime(sc.End)
			if err != nil {
				return fmt.Errorf("market %s: %w", mc.ID, err)
			}
			sessions = append(sessions, market.Session{Start: start, End: end})
		}

		tol := market.DefaultCloseTolerance
		if mc.CloseToleranceMS > 0 {
			tol = time.Duration(mc.CloseToleranceMS) * time.Millisecond
		}

		m, err := market.New(mc.ID, sessions, tol)
		if err != nil {
			return err
		}
		market.Register(m)
	}
	return nil
}

// parseSessionTime accepts "HH:MM" and "HH:MM:SS".
func parseSessionTime(s string) (market.TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return market.TimeOfDay{}, fmt.Errorf("invalid session time %q", s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return market.TimeOfDay{}, fmt.Errorf("invalid session time %q", s)
		}
		nums[i] = n
	}
	if nums[0] < 0 || nums[0] > 23 || nums[1] < 0 || nums[1] > 59 || nums[2] < 0 || nums[2] > 59 {
		return market.TimeOfDay{}, fmt.Errorf("invalid session time %q", s)
	}
	return market.TimeOfDay{Hour: nums[0], Minute: nums[1], Second: nums[2]}, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Vizflow.Name == "" {
		return fmt.Errorf("vizflow.name is required")
	}
	if cfg.Vizflow.Version == "" {
		return fmt.Errorf("vizflow.version is required")
	}
	if cfg.Market == "" {
		return fmt.Errorf("market is required")
	}

	if cfg.Data.TradeDir == "" {
		return fmt.Errorf("data.trade_dir is required")
	}
	if cfg.Data.AlphaDir == "" {
		return fmt.Errorf("data.alpha_dir is required")
	}
	if !strings.Contains(cfg.Data.TradePattern, "{date}") {
		return fmt.Errorf("data.trade_pattern must contain {date}")
	}
	if !strings.Contains(cfg.Data.AlphaPattern, "{date}") {
		return fmt.Errorf("data.alpha_pattern must contain {date}")
	}

	if cfg.Output.ReplayDir == "" {
		return fmt.Errorf("output.replay_dir is required")
	}
	if cfg.Output.AggregateDir == "" {
		return fmt.Errorf("output.aggregate_dir is required")
	}
	if !cfg.Output.Formats.Parquet.Enabled && !cfg.Output.Formats.CSV.Enabled {
		return fmt.Errorf("at least one output format must be enabled")
	}

	if len(cfg.Analysis.Horizons) == 0 {
		return fmt.Errorf("analysis.horizons is required")
	}
	seen := make(map[int]struct{}, len(cfg.Analysis.Horizons))
	for _, h := range cfg.Analysis.Horizons {
		if h <= 0 {
			return fmt.Errorf("analysis.horizons must be positive, got %d", h)
		}
		if _, dup := seen[h]; dup {
			return fmt.Errorf("analysis.horizons contains duplicate %d", h)
		}
		seen[h] = struct{}{}
	}
	if cfg.Analysis.TimeCutoff < 0 {
		return fmt.Errorf("analysis.time_cutoff must not be negative")
	}
	for col, w := range cfg.Analysis.Binwidths {
		if w <= 0 {
			return fmt.Errorf("analysis.binwidths[%s] must be positive", col)
		}
	}

	if cfg.Columns.TradePreset != "" {
		if _, err := Preset(cfg.Columns.TradePreset); err != nil {
			return err
		}
	}
	if cfg.Columns.AlphaPreset != "" {
		if _, err := Preset(cfg.Columns.AlphaPreset); err != nil {
			return err
		}
	}
	for _, casts := range []map[string]string{cfg.Schema.TradeCasts, cfg.Schema.AlphaCasts} {
		for col, target := range casts {
			switch target {
			case "int64", "float64", "string":
			default:
				return fmt.Errorf("schema cast for %s: unsupported target %q", col, target)
			}
		}
	}

	if cfg.Reader.MaxWorkers <= 0 {
		return fmt.Errorf("reader.max_workers must be greater than 0")
	}
	if cfg.Processor.MaxWorkers <= 0 {
		return fmt.Errorf("processor.max_workers must be greater than 0")
	}
	if cfg.Writer.MaxWorkers <= 0 {
		return fmt.Errorf("writer.max_workers must be greater than 0")
	}
	if cfg.Channels.RawBuffer <= 0 {
		return fmt.Errorf("channels.raw_buffer must be greater than 0")
	}
	if cfg.Channels.ProcessedBuffer <= 0 {
		return fmt.Errorf("channels.processed_buffer must be greater than 0")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		// Development defers missing credentials to the AWS default
		// chain at startup; production-like environments fail fast.
		if IsProductionLike(AppEnvironment()) &&
			(cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "") {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled in %s", AppEnvironment())
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
