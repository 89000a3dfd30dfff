package fetch

import (
	"log/slog"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/common"
)

// New assembles the configured fetch stack. Remote locators go through
// scheme routing behind per-host rate limiting, cached in memory only when a
// cache TTL is configured; s3:// is routed only when a region is configured. file:// locators are read
// directly, uncached, when an ingest root is configured.
func New(cfg *common.Config, logger *slog.Logger) (Fetcher, error) {
	remote := NewRouter().Handle(NewHTTPFetcher(cfg.HTTP, logger), constants.SchemeHTTP, constants.SchemeHTTPS)
	if cfg.S3.Region != "" {
		remote.Handle(NewS3Fetcher(NewS3Client(cfg.S3), cfg.HTTP.MaxBodyBytes, logger), constants.SchemeS3)
	}
	limited := NewLimitedFetcher(remote, cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst)
	cached := NewCachedFetcher(limited, cfg.HTTP.CacheTTL)

	router := NewRouter().Handle(cached, remote.Schemes()...)
	if cfg.Ingest.Root != "" {
		local, err := NewFileFetcher(cfg.Ingest.Root, cfg.HTTP.MaxBodyBytes, logger)
		if err != nil {
			return nil, err
		}
		router.Handle(local, constants.SchemeFile)
	}
	return router, nil
}

// Schemes lists the locator schemes New routes for cfg.
func Schemes(cfg *common.Config) []string {
	out := []string{constants.SchemeHTTP, constants.SchemeHTTPS}
	if cfg.S3.Region != "" {
		out = append(out, constants.SchemeS3)
	}
	if cfg.Ingest.Root != "" {
		out = append(out, constants.SchemeFile)
	}
	return out
}
