package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("REFINE_TEST_HOST", "db.internal")

	assert.Equal(t, "host: db.internal", expandEnv("host: ${REFINE_TEST_HOST:localhost}"))
	assert.Equal(t, "port: 5432", expandEnv("port: ${REFINE_TEST_MISSING:5432}"))
	assert.Equal(t, "key: ", expandEnv("key: ${REFINE_TEST_MISSING:}"))
	assert.Equal(t, "raw: ${REFINE_TEST_MISSING}", expandEnv("raw: ${REFINE_TEST_MISSING}"))
}

func TestLoadFromMergesEnvFile(t *testing.T) {
	dir := t.TempDir()
	base := `
generation:
  mode: template
  timeout: 5s
llm:
  providers:
    sim:
      type: simulated
      chunk_delay: 10ms
test_run:
  provider: ${REFINE_TEST_PROVIDER:sim}
`
	override := `
generation:
  mode: llm
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte(override), 0o600))
	t.Setenv("APP_ENV", "staging")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, GenerationModeLLM, cfg.Generation.Mode)
	assert.Equal(t, 5*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "sim", cfg.TestRun.Provider)
	assert.Equal(t, ProviderTypeSimulated, cfg.LLM.Providers["sim"].Type)
	assert.Equal(t, 10*time.Millisecond, cfg.LLM.Providers["sim"].ChunkDelay)

	// 默认值兜底
	assert.Equal(t, 24*time.Hour, cfg.Wizard.SessionTTL)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
}

func TestLoadFromMissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}

func TestLoadFromEmptyDirUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, GenerationModeTemplate, cfg.Generation.Mode)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.HTTP.Addr())
}
