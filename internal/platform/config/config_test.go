package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Duration(0), cfg.Contract.SignatureValidity, "signatures never expire by default")
	assert.Equal(t, 3, cfg.Contract.GenerateAttempts)
	assert.Equal(t, "contracts.requested", cfg.Kafka.Topic)
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Defaults()
	err := applyEnv(&cfg, envMap(map[string]string{
		"RANCHDESK_ADDR":              ":9090",
		"KAFKA_BROKERS":               "a:9092, b:9092,",
		"CONTRACT_SIGNATURE_VALIDITY": "720h",
		"MINIO_USE_SSL":               "true",
		"CONTRACT_GENERATE_ATTEMPTS":  "5",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 720*time.Hour, cfg.Contract.SignatureValidity)
	assert.True(t, cfg.Minio.UseSSL)
	assert.Equal(t, 5, cfg.Contract.GenerateAttempts)
}

func TestApplyEnvCollectsParseErrors(t *testing.T) {
	cfg := Defaults()
	err := applyEnv(&cfg, envMap(map[string]string{
		"CONTRACT_SIGNATURE_VALIDITY": "forever",
		"KAFKA_MAX_ATTEMPTS":          "many",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONTRACT_SIGNATURE_VALIDITY")
	assert.Contains(t, err.Error(), "KAFKA_MAX_ATTEMPTS")
}

func TestLoadFileThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ranchdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":7000"
minio:
  endpoint: "localhost:9000"
  bucket: "ranch-contracts"
contract:
  signature_validity: 24h
`), 0o600))

	t.Setenv("RANCHDESK_CONFIG", path)
	t.Setenv("RANCHDESK_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.Server.Addr)
	assert.Equal(t, "localhost:9000", cfg.Minio.Endpoint)
	assert.Equal(t, "ranch-contracts", cfg.Minio.Bucket)
	assert.Equal(t, 24*time.Hour, cfg.Contract.SignatureValidity)
}

func TestValidateRejectsNegativeValidity(t *testing.T) {
	cfg := Defaults()
	cfg.Contract.SignatureValidity = -time.Second
	assert.Error(t, cfg.Validate())
}
