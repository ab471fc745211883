package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selectcms/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.01, cfg.Analysis.PValue)
	assert.Equal(t, 0.2, cfg.Analysis.DAFCutoff)
	assert.True(t, cfg.Analysis.GateMeanOnDAF)
	assert.Equal(t, 30*time.Minute, cfg.Runner.WindowTimeout)
	assert.Equal(t, 1, cfg.Runner.ParallelWindows)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CMS_P_VALUE", "0.05")
	t.Setenv("CMS_DAF_CUTOFF", "0")
	t.Setenv("CMS_IGNORE_MOP", "true")
	t.Setenv("CMS_WINDOW_TIMEOUT", "90s")
	t.Setenv("CMS_PARALLEL_WINDOWS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Analysis.PValue)
	assert.Equal(t, 0.0, cfg.Analysis.DAFCutoff)
	assert.True(t, cfg.Analysis.IgnoreMoP)
	assert.Equal(t, 90*time.Second, cfg.Runner.WindowTimeout)
	assert.Equal(t, 4, cfg.Runner.ParallelWindows)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"p zero":       func(c *Config) { c.Analysis.PValue = 0 },
		"p one":        func(c *Config) { c.Analysis.PValue = 1 },
		"cutoff":       func(c *Config) { c.Analysis.DAFCutoff = 1.5 },
		"prior":        func(c *Config) { c.Analysis.PriorOverride = 1 },
		"timeout":      func(c *Config) { c.Runner.WindowTimeout = 0 },
		"parallel":     func(c *Config) { c.Runner.ParallelWindows = 0 },
		"stagger":      func(c *Config) { c.Runner.Stagger = -time.Second },
		"memory limit": func(c *Config) { c.Runner.MemoryLimitMB = -1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoad_MalformedEnvironmentIsReported(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CMS_P_VALUE", "0.0l")
	t.Setenv("CMS_RUN_NORM", "yes")
	t.Setenv("CMS_WINDOW_TIMEOUT", "10")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.Contains(t, err.Error(), `CMS_P_VALUE="0.0l"`)
	assert.Contains(t, err.Error(), `CMS_RUN_NORM="yes"`)
	assert.Contains(t, err.Error(), `CMS_WINDOW_TIMEOUT="10"`)
}

func TestLoad_RangesCheckedByValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CMS_P_VALUE", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Analysis.PValue)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(cfg.Validate()))

	cfg.Analysis.PValue = 0.05
	assert.NoError(t, cfg.Validate())
}

func TestValidateServer(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.ValidateServer())

	for _, port := range []string{"", "http", "0", "70000"} {
		cfg.Server.Port = port
		assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(cfg.ValidateServer()), port)
	}
}
