// File: cmd/engine.go
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/markhobson/microbrowser-sub000/internal/config"
	"github.com/markhobson/microbrowser-sub000/internal/network"
	"github.com/markhobson/microbrowser-sub000/internal/observability"
	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser/chrome"
	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser/headless"
)

// newEngine builds the engine selected by cfg. The returned func releases it.
func newEngine(ctx context.Context, cfg config.Interface, logger *zap.Logger) (microbrowser.Engine, func(), error) {
	browserCfg := cfg.Browser()
	netCfg := cfg.Network()

	switch browserCfg.Engine {
	case config.EngineChrome:
		engine, err := chrome.New(ctx,
			chrome.WithLogger(logger),
			chrome.WithHeadless(browserCfg.Headless),
			chrome.WithExecPath(browserCfg.ExecPath),
			chrome.WithArgs(browserCfg.Args...),
			chrome.WithUserAgent(browserCfg.UserAgent),
			chrome.WithIgnoreTLSErrors(netCfg.IgnoreTLSErrors),
			chrome.WithProxy(netCfg.Proxy),
			chrome.WithNavigationTimeout(netCfg.NavigationTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start chrome engine: %w", err)
		}
		return engine, func() {
			if err := engine.Close(); err != nil {
				logger.Warn("Failed to close browser", zap.Error(err))
			}
		}, nil

	case config.EngineHeadless:
		clientCfg, err := clientConfig(netCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		client := network.NewClient(clientCfg)
		engine := headless.New(
			headless.WithClient(client),
			headless.WithLogger(logger),
			headless.WithMaxRedirects(netCfg.MaxRedirects),
			headless.WithUserAgent(browserCfg.UserAgent),
			headless.WithHeaders(netCfg.Headers),
		)
		return engine, client.CloseIdleConnections, nil

	default:
		return nil, nil, fmt.Errorf("unknown browser engine: %q", browserCfg.Engine)
	}
}

// clientConfig maps the network settings onto the HTTP client.
func clientConfig(netCfg config.NetworkConfig, logger *zap.Logger) (*network.ClientConfig, error) {
	proxy, err := netCfg.ProxyURL()
	if err != nil {
		return nil, err
	}
	clientCfg := network.NewDefaultClientConfig()
	clientCfg.RequestTimeout = netCfg.Timeout
	clientCfg.IgnoreTLSErrors = netCfg.IgnoreTLSErrors
	clientCfg.ForceHTTP2 = netCfg.ForceHTTP2
	clientCfg.RateLimit = netCfg.RateLimit
	clientCfg.RateBurst = netCfg.RateBurst
	clientCfg.ProxyURL = proxy
	clientCfg.Logger = logger.Named("network")
	return clientCfg, nil
}

// openDocument reads the configuration from cmd's context, starts the engine
// and loads rawURL. The caller must call the returned release func.
func openDocument(ctx context.Context, rawURL string) (*microbrowser.Document, func(), error) {
	cfg, err := configFrom(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger := observability.GetLogger().Named("cli")

	engine, release, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	browser := microbrowser.New(engine, microbrowser.WithLogger(logger))
	doc, err := browser.Get(ctx, rawURL)
	if err != nil {
		release()
		return nil, nil, err
	}
	return doc, release, nil
}
