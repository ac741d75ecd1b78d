package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmiles/backend/pkg/config"
)

type testConfig struct {
	Name  string `env:"CONFIG_TEST_NAME" envDefault:"fallback"`
	Count int    `env:"CONFIG_TEST_COUNT" envDefault:"3"`
}

func TestLoad(t *testing.T) {
	t.Setenv("CONFIG_TEST_NAME", "from-env")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 3, cfg.Count)
}

func TestLoad_CachedPerType(t *testing.T) {
	t.Setenv("CONFIG_TEST_NAME", "first")

	var first testConfig
	require.NoError(t, config.Load(&first))

	// A later change to the environment must not affect the cached value.
	t.Setenv("CONFIG_TEST_NAME", "second")

	var again testConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, first.Name, again.Name)
}

func TestLoad_NilPointer(t *testing.T) {
	t.Parallel()

	err := config.Load[testConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}
