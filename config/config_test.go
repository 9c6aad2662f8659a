package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "com.fgcompany.fgislamic_prayer", cfg.Namespace)
	assert.Equal(t, "com.fgcompany.fgislamic_prayer/sdk", cfg.Channel())
	assert.Equal(t, ":7420", cfg.Listen)
	assert.Equal(t, "tcp", cfg.Network)
	assert.Equal(t, "json", cfg.Codec)
	assert.Equal(t, "UTC", cfg.TimeZoneFallback)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.EtcdEndpoints)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOSTBRIDGE_NAMESPACE", "com.example.app")
	t.Setenv("HOSTBRIDGE_ETCD", "10.0.0.1:2379,10.0.0.2:2379")
	t.Setenv("HOSTBRIDGE_CODEC", "binary")
	t.Setenv("HOSTBRIDGE_REQUEST_TIMEOUT", "250ms")
	t.Setenv("HOSTBRIDGE_TIMEZONE_FALLBACK", "Asia/Riyadh")
	t.Setenv("HOSTBRIDGE_VERBOSE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "com.example.app/sdk", cfg.Channel())
	assert.Equal(t, []string{"10.0.0.1:2379", "10.0.0.2:2379"}, cfg.EtcdEndpoints)
	assert.Equal(t, "binary", cfg.Codec)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, "Asia/Riyadh", cfg.TimeZoneFallback)
	assert.True(t, cfg.Verbose)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedValue(t *testing.T) {
	t.Setenv("HOSTBRIDGE_REGISTRY_TTL", "ten")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	cases := map[string]func(*Config){
		"empty namespace":  func(c *Config) { c.Namespace = "" },
		"unknown codec":    func(c *Config) { c.Codec = "xml" },
		"unknown balancer": func(c *Config) { c.Balancer = "random" },
		"zero timeout":     func(c *Config) { c.RequestTimeout = 0 },
		"unknown zone":     func(c *Config) { c.TimeZoneFallback = "Mars/Olympus_Mons" },
		"local zone":       func(c *Config) { c.TimeZoneFallback = "Local" },
		"udp network":      func(c *Config) { c.Network = "udp" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
