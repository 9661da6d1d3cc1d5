package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSet_UnknownKeyRejected(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	err := runConfigSet("api_keyy", "oops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.Contains(t, err.Error(), "api_key, api_url")

	assert.Error(t, runConfigGet("no_such_key"))
}

func TestConfigSet_WritesKnownKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	viper.SetConfigFile(cfgFile)

	require.NoError(t, runConfigSet("api_url", "https://api.example.org/v1"))

	data, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "api_url")
	assert.Contains(t, string(data), "https://api.example.org/v1")
}

func TestDisplayValue_MasksAPIKey(t *testing.T) {
	assert.Equal(t, "sk-1*****", displayValue("api_key", "sk-1abcde"))
	assert.Equal(t, "****", displayValue("api_key", "abc"))
	assert.Equal(t, "", displayValue("api_key", ""))
	assert.Equal(t, "https://x", displayValue("api_url", "https://x"))
}
