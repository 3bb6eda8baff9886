package cmd

import (
	"log/slog"

	"github.com/jmylchreest/miraview/internal/config"
	"github.com/jmylchreest/miraview/internal/version"
	"github.com/jmylchreest/miraview/pkg/httpclient"
	"github.com/jmylchreest/miraview/pkg/mirakc"
)

// newMirakcClient builds the mirakc API client over the resilient HTTP
// client. The HTTP client is returned so its circuit breaker can be reported.
func newMirakcClient(cfg config.MirakcConfig, logger *slog.Logger) (*mirakc.Client, *httpclient.Client) {
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.Timeout
	httpCfg.RetryAttempts = cfg.RetryAttempts
	httpCfg.MaxResponseSize = cfg.MaxResponseSize
	httpCfg.UserAgent = version.UserAgent()
	httpCfg.Logger = logger.With(slog.String("component", "mirakc"))
	hc := httpclient.New(httpCfg)

	client := mirakc.NewClient(cfg.URI,
		mirakc.WithHTTPClient(hc.StandardClient()),
		mirakc.WithUserAgent(version.UserAgent()),
	)
	return client, hc
}
