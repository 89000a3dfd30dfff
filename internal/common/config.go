package common

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	HTTP     HTTPConfig     `yaml:"http"`
	S3       S3Config       `yaml:"s3"`
	Extract  ExtractConfig  `yaml:"extract"`
	Batch    BatchConfig    `yaml:"batch"`
	Verify   VerifyConfig   `yaml:"verify"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"`
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// HTTPConfig controls certificate downloads.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// S3Config enables s3:// locators when Region is set.
type S3Config struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
	AccessKeyID  string `yaml:"-"`
	SecretKey    string `yaml:"-"`
}

// ExtractConfig selects the PDF text backend.
type ExtractConfig struct {
	Method    string `yaml:"method"`
	Pdftotext string `yaml:"pdftotext"`
}

// BatchConfig bounds whole-owner analysis.
type BatchConfig struct {
	Workers      int `yaml:"workers"`
	MaxDocuments int `yaml:"max_documents"`
}

// VerifyConfig tunes the completeness check.
type VerifyConfig struct {
	EmptyAsMissing bool `yaml:"empty_as_missing"`
}

// IngestConfig controls local directory import. Root confines file://
// locators; when empty, local files cannot be fetched.
type IngestConfig struct {
	Root           string        `yaml:"root"`
	Debounce       time.Duration `yaml:"debounce"`
	QueueSize      int           `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config keys; each is also read from the upper-cased environment variable.
const (
	keyDBDriver           = "db_driver"
	keyDBURL              = "db_url"
	keyDBMaxConns         = "db_max_conns"
	keyDBMinConns         = "db_min_conns"
	keyDBMaxConnLifetime  = "db_max_conn_lifetime"
	keyDBMaxConnIdleTime  = "db_max_conn_idle_time"
	keyDBDialTimeout      = "db_dial_timeout"
	keyDBStatementTimeout = "db_statement_timeout"
	keyGRPCAddr           = "grpc_addr"
	keyHTTPTimeout        = "http_timeout"
	keyHTTPUserAgent      = "http_user_agent"
	keyHTTPMaxBytes       = "http_max_bytes"
	keyDownloadRPS        = "download_rps"
	keyDownloadBurst      = "download_burst"
	keyDocumentCacheTTL   = "document_cache_ttl"
	keyS3Region           = "s3_region"
	keyS3Endpoint         = "s3_endpoint"
	keyS3UsePathStyle     = "s3_use_path_style"
	keyAWSAccessKeyID     = "aws_access_key_id"
	keyAWSSecretAccessKey = "aws_secret_access_key"
	keyTextExtractor      = "text_extractor"
	keyPdftotextBin       = "pdftotext_bin"
	keyBatchWorkers       = "batch_workers"
	keyBatchMaxDocuments  = "batch_max_documents"
	keyVerifyEmptyMissing = "verify_empty_as_missing"
	keyIngestRoot         = "ingest_root"
	keyIngestDebounce     = "ingest_debounce"
	keyIngestQueueSize    = "ingest_queue_size"
	keyIngestTimeout      = "ingest_timeout"
	keyLogLevel           = "log_level"
	keyLogFormat          = "log_format"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyDBDriver, DriverPostgres)
	v.SetDefault(keyDBURL, "")
	v.SetDefault(keyDBMaxConns, 20)
	v.SetDefault(keyDBMinConns, 5)
	v.SetDefault(keyDBMaxConnLifetime, 30*time.Minute)
	v.SetDefault(keyDBMaxConnIdleTime, 5*time.Minute)
	v.SetDefault(keyDBDialTimeout, 3*time.Second)
	v.SetDefault(keyDBStatementTimeout, time.Duration(0))
	v.SetDefault(keyGRPCAddr, ":8080")
	v.SetDefault(keyHTTPTimeout, 30*time.Second)
	v.SetDefault(keyHTTPUserAgent, "certverify/0.1")
	v.SetDefault(keyHTTPMaxBytes, int64(20<<20))
	v.SetDefault(keyDownloadRPS, 5.0)
	v.SetDefault(keyDownloadBurst, 5)
	v.SetDefault(keyDocumentCacheTTL, time.Duration(0))
	v.SetDefault(keyS3Region, "")
	v.SetDefault(keyS3Endpoint, "")
	v.SetDefault(keyS3UsePathStyle, false)
	v.SetDefault(keyAWSAccessKeyID, "")
	v.SetDefault(keyAWSSecretAccessKey, "")
	v.SetDefault(keyTextExtractor, "pdf")
	v.SetDefault(keyPdftotextBin, "pdftotext")
	v.SetDefault(keyBatchWorkers, 4)
	v.SetDefault(keyBatchMaxDocuments, 0)
	v.SetDefault(keyVerifyEmptyMissing, false)
	v.SetDefault(keyIngestRoot, "")
	v.SetDefault(keyIngestDebounce, 500*time.Millisecond)
	v.SetDefault(keyIngestQueueSize, 256)
	v.SetDefault(keyIngestTimeout, 3*time.Minute)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
}

// LoadConfig loads configuration from v (defaults, optional config file and
// environment variables). A nil v reads the environment only.
func LoadConfig(v *viper.Viper) *Config {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(v.GetString(keyDBDriver)),
			DSN:              v.GetString(keyDBURL),
			MaxConns:         v.GetInt32(keyDBMaxConns),
			MinConns:         v.GetInt32(keyDBMinConns),
			MaxConnLifetime:  v.GetDuration(keyDBMaxConnLifetime),
			MaxConnIdleTime:  v.GetDuration(keyDBMaxConnIdleTime),
			DialTimeout:      v.GetDuration(keyDBDialTimeout),
			StatementTimeout: v.GetDuration(keyDBStatementTimeout),
		},
		Server: ServerConfig{
			GRPCAddr: v.GetString(keyGRPCAddr),
		},
		HTTP: HTTPConfig{
			Timeout:           v.GetDuration(keyHTTPTimeout),
			UserAgent:         v.GetString(keyHTTPUserAgent),
			MaxBodyBytes:      v.GetInt64(keyHTTPMaxBytes),
			RequestsPerSecond: v.GetFloat64(keyDownloadRPS),
			Burst:             v.GetInt(keyDownloadBurst),
			CacheTTL:          v.GetDuration(keyDocumentCacheTTL),
		},
		S3: S3Config{
			Region:       v.GetString(keyS3Region),
			Endpoint:     v.GetString(keyS3Endpoint),
			UsePathStyle: v.GetBool(keyS3UsePathStyle),
			AccessKeyID:  v.GetString(keyAWSAccessKeyID),
			SecretKey:    v.GetString(keyAWSSecretAccessKey),
		},
		Extract: ExtractConfig{
			Method:    strings.ToLower(v.GetString(keyTextExtractor)),
			Pdftotext: v.GetString(keyPdftotextBin),
		},
		Batch: BatchConfig{
			Workers:      v.GetInt(keyBatchWorkers),
			MaxDocuments: v.GetInt(keyBatchMaxDocuments),
		},
		Verify: VerifyConfig{
			EmptyAsMissing: v.GetBool(keyVerifyEmptyMissing),
		},
		Ingest: IngestConfig{
			Root:           v.GetString(keyIngestRoot),
			Debounce:       v.GetDuration(keyIngestDebounce),
			QueueSize:      v.GetInt(keyIngestQueueSize),
			ProcessTimeout: v.GetDuration(keyIngestTimeout),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString(keyLogLevel)),
			Format: strings.ToLower(v.GetString(keyLogFormat)),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrInvalidInput)
	}
	switch c.Extract.Method {
	case "pdf", "pdftotext":
	default:
		return NewAppError(CodeConfig, "TEXT_EXTRACTOR must be pdf or pdftotext", ErrInvalidInput)
	}
	if c.Batch.Workers < 1 {
		return NewAppError(CodeConfig, "BATCH_WORKERS must be at least 1", ErrInvalidInput)
	}
	if c.Batch.MaxDocuments < 0 {
		return NewAppError(CodeConfig, "BATCH_MAX_DOCUMENTS must not be negative", ErrInvalidInput)
	}
	if c.Ingest.QueueSize < 1 {
		return NewAppError(CodeConfig, "INGEST_QUEUE_SIZE must be at least 1", ErrInvalidInput)
	}
	return nil
}
