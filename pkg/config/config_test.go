package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.TickCron)
	assert.Equal(t, 90, cfg.Reminders.RetentionDays)
	assert.Equal(t, "CF", cfg.Executions.NumberPrefix)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCHEDULER_BATCH_SIZE", "25")
	t.Setenv("EXECUTIONS_NUMBER_PREFIX", "QC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Scheduler.BatchSize)
	assert.Equal(t, "QC", cfg.Executions.NumberPrefix)
}

func TestLoad_RejectsInvalidCron(t *testing.T) {
	t.Setenv("SCHEDULER_TICK_CRON", "every now and then")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_TICK_CRON")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Scheduler:  SchedulerConfig{TickCron: "* * * * *", BatchSize: 1},
			Reminders:  RemindersConfig{RetentionDays: 1, PurgeCron: "@daily"},
			Executions: ExecutionsConfig{BulkWorkers: 1, AllocationAttempts: 1, NumberPrefix: "CF"},
		}
	}

	ok := base()
	assert.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"batch size", func(c *Config) { c.Scheduler.BatchSize = 0 }},
		{"retention", func(c *Config) { c.Reminders.RetentionDays = 0 }},
		{"purge cron", func(c *Config) { c.Reminders.PurgeCron = "x" }},
		{"bulk workers", func(c *Config) { c.Executions.BulkWorkers = 0 }},
		{"attempts", func(c *Config) { c.Executions.AllocationAttempts = 0 }},
		{"prefix", func(c *Config) { c.Executions.NumberPrefix = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
