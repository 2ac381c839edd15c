package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vizflow/market"
)

const validYAML = `
vizflow:
  name: "vizflow"
  version: "1.0.0"

market: "CN"

data:
  trade_dir: "/data/trades"
  trade_pattern: "{date}.parquet"
  alpha_dir: "/data/alphas"
  alpha_pattern: "alpha_{date}.parquet"
  univ_dir: "/data/univ"
  univ_pattern: "{date}.csv"
  dates: ["20251201", "20251202"]

output:
  replay_dir: "/out/replay"
  aggregate_dir: "/out/aggregate"
  formats:
    parquet:
      enabled: true
      compression: "snappy"
    csv:
      enabled: true

columns:
  trade_preset: "ylin_v20251204"
  alpha_preset: "jyao_v20251114"
  drop: ["seq_num"]

schema:
  trade_casts:
    data_date: "int64"

analysis:
  horizons: [60, 180, 1800]
  time_cutoff: 14100000
  binwidths:
    x_3m: 0.0001
  group_by: ["data_date"]

reader:
  max_workers: 2
processor:
  max_workers: 3
writer:
  max_workers: 1

channels:
  raw_buffer: 4
  processed_buffer: 4

logging:
  level: "debug"
  format: "json"
  output: "stdout"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Vizflow.Name != "vizflow" {
		t.Errorf("expected name vizflow, got %s", cfg.Vizflow.Name)
	}
	if cfg.Market != "CN" {
		t.Errorf("expected market CN, got %s", cfg.Market)
	}
	if len(cfg.Data.Dates) != 2 {
		t.Errorf("expected 2 dates, got %d", len(cfg.Data.Dates))
	}
	if got := cfg.Analysis.Horizons; len(got) != 3 || got[2] != 1800 {
		t.Errorf("unexpected horizons: %v", got)
	}
	if cfg.Analysis.TimeCutoff != 14100000 {
		t.Errorf("unexpected time cutoff: %d", cfg.Analysis.TimeCutoff)
	}
	if cfg.Processor.MaxWorkers != 3 {
		t.Errorf("expected 3 processor workers, got %d", cfg.Processor.MaxWorkers)
	}
	if !cfg.Output.Formats.CSV.Enabled {
		t.Error("expected csv output enabled")
	}
}

func TestLoadShippedConfig(t *testing.T) {
	// The default config file must stay runnable end to end: it has to
	// load, validate and name a market the registry can resolve.
	cfg, err := LoadConfig("config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.RegisterMarkets(); err != nil {
		t.Fatalf("RegisterMarkets failed: %v", err)
	}
	if _, err := market.Get(cfg.Market); err != nil {
		t.Errorf("market %q does not resolve: %v", cfg.Market, err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	minimal := `
vizflow:
  name: "vizflow"
  version: "1.0.0"
market: "CN"
data:
  trade_dir: "/data/trades"
  alpha_dir: "/data/alphas"
output:
  replay_dir: "/out/replay"
  aggregate_dir: "/out/aggregate"
analysis:
  horizons: [60]
`
	cfg, err := LoadConfig(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Data.TradePattern != "{date}.parquet" {
		t.Errorf("unexpected default trade pattern: %s", cfg.Data.TradePattern)
	}
	if !cfg.Output.Formats.Parquet.Enabled {
		t.Error("expected parquet enabled by default")
	}
	if cfg.Output.Formats.Parquet.Compression != "snappy" {
		t.Errorf("unexpected default compression: %s", cfg.Output.Formats.Parquet.Compression)
	}
	if cfg.Reader.MaxWorkers != 4 || cfg.Writer.MaxWorkers != 2 {
		t.Errorf("unexpected default workers: reader=%d writer=%d", cfg.Reader.MaxWorkers, cfg.Writer.MaxWorkers)
	}
	if cfg.Channels.RawBuffer != 8 {
		t.Errorf("unexpected default raw buffer: %d", cfg.Channels.RawBuffer)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("unexpected default log level: %s", cfg.Logging.Level)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(s string) string { return strings.Replace(s, `name: "vizflow"`, `name: ""`, 1) },
			wantErr: "vizflow.name",
		},
		{
			name:    "missing market",
			mutate:  func(s string) string { return strings.Replace(s, `market: "CN"`, `market: ""`, 1) },
			wantErr: "market is required",
		},
		{
			name:    "missing trade dir",
			mutate:  func(s string) string { return strings.Replace(s, `trade_dir: "/data/trades"`, `trade_dir: ""`, 1) },
			wantErr: "data.trade_dir",
		},
		{
			name: "pattern without date placeholder",
			mutate: func(s string) string {
				return strings.Replace(s, `trade_pattern: "{date}.parquet"`, `trade_pattern: "trades.parquet"`, 1)
			},
			wantErr: "{date}",
		},
		{
			name:    "no horizons",
			mutate:  func(s string) string { return strings.Replace(s, "horizons: [60, 180, 1800]", "horizons: []", 1) },
			wantErr: "analysis.horizons",
		},
		{
			name:    "negative horizon",
			mutate:  func(s string) string { return strings.Replace(s, "horizons: [60, 180, 1800]", "horizons: [-60]", 1) },
			wantErr: "must be positive",
		},
		{
			name:    "duplicate horizon",
			mutate:  func(s string) string { return strings.Replace(s, "horizons: [60, 180, 1800]", "horizons: [60, 60]", 1) },
			wantErr: "duplicate",
		},
		{
			name:    "unknown preset",
			mutate:  func(s string) string { return strings.Replace(s, "ylin_v20251204", "nope_v1", 1) },
			wantErr: "unknown column preset",
		},
		{
			name:    "bad cast target",
			mutate:  func(s string) string { return strings.Replace(s, `data_date: "int64"`, `data_date: "bool"`, 1) },
			wantErr: "unsupported target",
		},
		{
			name:    "zero bin width",
			mutate:  func(s string) string { return strings.Replace(s, "x_3m: 0.0001", "x_3m: 0", 1) },
			wantErr: "binwidths",
		},
		{
			name:    "zero processor workers",
			mutate:  func(s string) string { return strings.Replace(s, "max_workers: 3", "max_workers: 0", 1) },
			wantErr: "processor.max_workers",
		},
		{
			name:    "zero channel buffer",
			mutate:  func(s string) string { return strings.Replace(s, "raw_buffer: 4", "raw_buffer: 0", 1) },
			wantErr: "channels.raw_buffer",
		},
		{
			name: "no output format",
			mutate: func(s string) string {
				s = strings.Replace(s, "parquet:\n      enabled: true", "parquet:\n      enabled: false", 1)
				return strings.Replace(s, "csv:\n      enabled: true", "csv:\n      enabled: false", 1)
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.mutate(validYAML)))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigS3Validation(t *testing.T) {
	withS3 := validYAML + `
storage:
  s3:
    enabled: true
    bucket: "Invalid_Bucket"
    region: "us-east-1"
    access_key_id: "key"
    secret_access_key: "secret"
`
	if _, err := LoadConfig(writeConfig(t, withS3)); err == nil {
		t.Fatal("expected invalid bucket error, got nil")
	}

	good := strings.Replace(withS3, "Invalid_Bucket", "vizflow-results", 1)
	cfg, err := LoadConfig(writeConfig(t, good))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.S3.Bucket != "vizflow-results" {
		t.Errorf("unexpected bucket: %s", cfg.Storage.S3.Bucket)
	}
}

func TestLoadConfigS3CredentialsByEnvironment(t *testing.T) {
	noCreds := strings.Replace(validYAML, `market: "CN"`, `market: "CN"

storage:
  s3:
    enabled: true
    bucket: "vizflow-results"
    region: "us-east-1"
`, 1)
	path := writeConfig(t, noCreds)
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	// Development trusts the AWS default credential chain at startup.
	t.Setenv("APP_ENV", EnvironmentDevelopment)
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("development load failed: %v", err)
	}

	// Production-like environments must carry explicit credentials.
	for _, env := range []string{EnvironmentProduction, EnvironmentStaging} {
		t.Setenv("APP_ENV", env)
		_, err := LoadConfig(path)
		if err == nil || !strings.Contains(err.Error(), "access_key_id") {
			t.Errorf("%s: expected credential error, got %v", env, err)
		}
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	valid := []string{"vizflow-results", "a1b", "my.bucket.name"}
	invalid := []string{"ab", "UPPER", "-lead", "trail-", ".dot", "dot.", "has..dots", strings.Repeat("a", 64)}

	for _, name := range valid {
		if !isValidS3Bucket(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}
	for _, name := range invalid {
		if isValidS3Bucket(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}

func TestParseSessionTime(t *testing.T) {
	got, err := parseSessionTime("09:30")
	if err != nil {
		t.Fatalf("parseSessionTime failed: %v", err)
	}
	if got.Hour != 9 || got.Minute != 30 || got.Second != 0 {
		t.Errorf("unexpected time: %+v", got)
	}

	got, err = parseSessionTime("23:59:59")
	if err != nil {
		t.Fatalf("parseSessionTime failed: %v", err)
	}
	if got.Hour != 23 || got.Minute != 59 || got.Second != 59 {
		t.Errorf("unexpected time: %+v", got)
	}

	for _, bad := range []string{"", "9", "24:00", "09:60", "09:30:60", "ab:cd"} {
		if _, err := parseSessionTime(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestRegisterMarkets(t *testing.T) {
	cfg := &Config{
		Markets: []MarketConfig{
			{
				ID: "HK",
				Sessions: []SessionConfig{
					{Start: "09:30", End: "12:00"},
					{Start: "13:00", End: "16:00"},
				},
			},
		},
	}
	if err := cfg.RegisterMarkets(); err != nil {
		t.Fatalf("RegisterMarkets failed: %v", err)
	}

	m, err := market.Get("HK")
	if err != nil {
		t.Fatalf("expected HK registered: %v", err)
	}
	elapsed, err := m.ElapsedMillis(market.MustTime(13, 0, 0, 0))
	if err != nil {
		t.Fatalf("ElapsedMillis failed: %v", err)
	}
	if elapsed != 9000000 {
		t.Errorf("expected 9000000 ms at afternoon open, got %d", elapsed)
	}
}

func TestRegisterMarketsInvalid(t *testing.T) {
	cfg := &Config{
		Markets: []MarketConfig{
			{ID: "BAD", Sessions: []SessionConfig{{Start: "25:00", End: "26:00"}}},
		},
	}
	if err := cfg.RegisterMarkets(); err == nil {
		t.Fatal("expected error for invalid session time")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	if got := ResolveConfigPath(""); got != "config/config.production.yaml" {
		t.Errorf("unexpected resolved path: %s", got)
	}
	if got := ResolveConfigPath("custom.yaml"); got != "custom.yaml" {
		t.Errorf("expected custom path preserved, got %s", got)
	}

	t.Setenv("APP_ENV", "development")
	if got := ResolveConfigPath(""); got != defaultConfigPath {
		t.Errorf("unexpected resolved path: %s", got)
	}
}
