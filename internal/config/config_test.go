package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ExecutorLocal, cfg.Executor)
	assert.Equal(t, PaymentFake, cfg.Payment)
	assert.Equal(t, 30*time.Second, cfg.StepTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.PollInterval)
}

func TestLoad_File(t *testing.T) {
	for _, key := range []string{"LATRAVELS_EXECUTOR", "LATRAVELS_STEP_TIMEOUT", "TEMPORAL_ADDRESS", "TEMPORAL_TASK_QUEUE", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "latravels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
executor: temporal
step_timeout: 10s
temporal:
  task_queue: bookings
redis:
  addr: localhost:6379
  ttl: 1h
kafka:
  brokers: [localhost:9092]
session:
  turn_timeout: 45s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ExecutorTemporal, cfg.Executor)
	assert.Equal(t, 10*time.Second, cfg.StepTimeout)
	assert.Equal(t, "bookings", cfg.Temporal.TaskQueue)
	assert.Equal(t, "localhost:7233", cfg.Temporal.Address)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 45*time.Second, cfg.Session.TurnTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.PollInterval)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executor: [nope"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"LATRAVELS_EXECUTOR":     "temporal",
		"TEMPORAL_TASK_QUEUE":    "airline-agent",
		"OPENAI_API_KEY":         "sk-test",
		"OPENAI_MODEL":           "",
		"KAFKA_BROKERS":          "a:9092, b:9092,",
		"REDIS_DB":               "2",
		"LATRAVELS_STEP_TIMEOUT": "5s",
	}))
	require.NoError(t, err)
	assert.Equal(t, ExecutorTemporal, cfg.Executor)
	assert.Equal(t, "airline-agent", cfg.Temporal.TaskQueue)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.StepTimeout)

	err = Default().ApplyEnv(env(map[string]string{"REDIS_DB": "two", "LATRAVELS_STEP_TIMEOUT": "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
	assert.Contains(t, err.Error(), "LATRAVELS_STEP_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Executor = "cloud"
	cfg.Payment = PaymentStripe
	cfg.StepTimeout = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executor")
	assert.Contains(t, err.Error(), "STRIPE_API_KEY")
	assert.Contains(t, err.Error(), "step_timeout")
}
