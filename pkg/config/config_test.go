package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Workers int      `env:"TEST_CFG_WORKERS" envDefault:"1"`
	Feeds   []string `env:"TEST_CFG_FEEDS" envSeparator:","`
}

func (c *sampleConfig) Validate() error {
	if c.Workers < 1 {
		return errors.New("workers must be >= 1")
	}
	return nil
}

func TestLoad_Defaults(t *testing.T) {
	var cfg sampleConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 1, cfg.Workers)
	assert.Empty(t, cfg.Feeds)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("TEST_CFG_WORKERS", "4")
	t.Setenv("TEST_CFG_FEEDS", "http://a,http://b")

	var cfg sampleConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Feeds)
}

func TestLoad_RunsValidate(t *testing.T) {
	t.Setenv("TEST_CFG_WORKERS", "0")

	var cfg sampleConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("TEST_CFG_WORKERS", "many")

	var cfg sampleConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
