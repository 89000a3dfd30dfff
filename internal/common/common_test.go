package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "")
	cfg := LoadConfig(viper.New())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Zero(t, cfg.Batch.MaxDocuments)
	assert.Equal(t, "pdf", cfg.Extract.Method)
	assert.False(t, cfg.Verify.EmptyAsMissing)
	assert.Equal(t, 500*time.Millisecond, cfg.Ingest.Debounce)
	assert.Zero(t, cfg.HTTP.CacheTTL, "downloads are uncached unless DOCUMENT_CACHE_TTL is set")
	assert.Error(t, cfg.Validate(), "DB_URL has no default")
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("DB_URL", "file:test.db")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("BATCH_WORKERS", "2")
	t.Setenv("BATCH_MAX_DOCUMENTS", "10")
	t.Setenv("VERIFY_EMPTY_AS_MISSING", "true")
	t.Setenv("HTTP_TIMEOUT", "7s")
	t.Setenv("DOCUMENT_CACHE_TTL", "2m")

	cfg := LoadConfig(nil)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, 10, cfg.Batch.MaxDocuments)
	assert.True(t, cfg.Verify.EmptyAsMissing)
	assert.Equal(t, 7*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.HTTP.CacheTTL)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := LoadConfig(viper.New())
		cfg.Database.DSN = "postgres://localhost/certs"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"grpc addr", func(c *Config) { c.Server.GRPCAddr = "" }},
		{"extractor", func(c *Config) { c.Extract.Method = "ocr" }},
		{"workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"max documents", func(c *Config) { c.Batch.MaxDocuments = -1 }},
		{"queue size", func(c *Config) { c.Ingest.QueueSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidInput)
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, CodeConfig, appErr.Code)
		})
	}
}

func TestAppError_MatchesSentinel(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("owner lookup: %w", Persistence("query owner", cause))

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "owner lookup: PERSISTENCE_ERROR: query owner: connection refused", err.Error())
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{NotFound("owner not found", nil), codes.NotFound},
		{InvalidInput("certificate_id is required"), codes.InvalidArgument},
		{Retrieval("download", nil), codes.Unavailable},
		{Extraction("parse", nil), codes.FailedPrecondition},
		{Persistence("write", nil), codes.Internal},
		{context.Canceled, codes.Canceled},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{status.Error(codes.Aborted, "already a status"), codes.Aborted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(ToStatus(tt.err)), tt.err.Error())
	}
	assert.NoError(t, ToStatus(nil))

	st, _ := status.FromError(ToStatus(Internal("secret detail", nil)))
	assert.Equal(t, "internal error", st.Message())
}

func TestValidator_Locator(t *testing.T) {
	rule := Locator("https", "s3", "file")
	for _, ok := range []string{"https://example.com/a.pdf", "s3://bucket/key.pdf", "file:///srv/certs/a.pdf", ""} {
		assert.Nil(t, rule("file_url", ok), ok)
	}
	for _, bad := range []string{"http://example.com/a.pdf", "example.com/a.pdf", "file://", "https:///a.pdf"} {
		assert.NotNil(t, rule("file_url", bad), bad)
	}

	v := NewValidator().
		Field("owner_id", " ", Required).
		Field("file_url", "ftp://x/y", Required, rule)
	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
	assert.ErrorIs(t, v.Err(), ErrInvalidInput)
	assert.Nil(t, NewValidator().Field("owner_id", "tutor-1", Required, MaxLength(64)).Err())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("warning").String())
	assert.Equal(t, "INFO", ParseLevel("verbose").String())
}
