// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "microbrowser", cfg.Logger().ServiceName)
	assert.Equal(t, "green", cfg.Logger().Colors.Info)
	assert.Equal(t, EngineHeadless, cfg.Browser().Engine)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 30*time.Second, cfg.Network().Timeout)
	assert.Equal(t, 60*time.Second, cfg.Network().NavigationTimeout)
	assert.Equal(t, 10, cfg.Network().MaxRedirects)
	assert.True(t, cfg.Network().ForceHTTP2)
	assert.Zero(t, cfg.Network().RateLimit)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"chrome engine", func(c *Config) { c.SetBrowserEngine(EngineChrome) }, ""},
		{"unknown engine", func(c *Config) { c.SetBrowserEngine("lynx") }, "browser.engine must be"},
		{"zero timeout", func(c *Config) { c.SetNetworkTimeout(0) }, "network.timeout must be a positive duration"},
		{"zero navigation timeout", func(c *Config) { c.NetworkCfg.NavigationTimeout = 0 }, "network.navigation_timeout"},
		{"negative redirects", func(c *Config) { c.NetworkCfg.MaxRedirects = -1 }, "network.max_redirects"},
		{"negative rate limit", func(c *Config) { c.NetworkCfg.RateLimit = -2 }, "network.rate_limit"},
		{"bad proxy", func(c *Config) { c.NetworkCfg.Proxy = "http://[::1" }, "invalid network.proxy"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("network.timeout", "0s")

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "network.timeout")
	})

	t.Run("Engine Name Normalised", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("browser.engine", " Chrome ")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, EngineChrome, cfg.Browser().Engine)
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		yamlConfig := []byte(`
network:
  timeout: 5s
  max_redirects: 3
`)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		t.Setenv("MICROBROWSER_NETWORK_TIMEOUT", "12s")
		t.Setenv("MICROBROWSER_BROWSER_ENGINE", "chrome")
		BindEnvironment(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		// Environment wins over the file, the file over the defaults.
		assert.Equal(t, 12*time.Second, cfg.Network().Timeout)
		assert.Equal(t, EngineChrome, cfg.Browser().Engine)
		assert.Equal(t, 3, cfg.Network().MaxRedirects)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/microbrowser.log
browser:
  args: ["--disable-gpu", "--lang=en"]
network:
  timeout: 5s
  proxy: http://127.0.0.1:8080
  headers:
    x-trace: abc
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/microbrowser.log", cfg.Logger().LogFile)
	assert.Equal(t, []string{"--disable-gpu", "--lang=en"}, cfg.Browser().Args)
	assert.Equal(t, 5*time.Second, cfg.Network().Timeout)
	assert.Equal(t, "abc", cfg.Network().Headers["x-trace"])

	proxy, err := cfg.Network().ProxyURL()
	require.NoError(t, err)
	require.NotNil(t, proxy)
	assert.Equal(t, "127.0.0.1:8080", proxy.Host)
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetBrowserHeadless(false)
	cfg.SetNetworkIgnoreTLSErrors(true)

	assert.False(t, cfg.Browser().Headless)
	assert.True(t, cfg.Network().IgnoreTLSErrors)
}
