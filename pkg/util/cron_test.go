package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCronExpr(t *testing.T) {
	valid := []string{"* * * * *", "*/5 * * * *", "0 3 * * *", "@every 1m", "@daily"}
	for _, expr := range valid {
		assert.NoError(t, ValidateCronExpr(expr), expr)
	}

	invalid := []string{"", "* * *", "61 * * * *", "not a cron"}
	for _, expr := range invalid {
		assert.Error(t, ValidateCronExpr(expr), expr)
	}
}

func TestNextCronTime(t *testing.T) {
	from := time.Date(2025, 1, 1, 2, 59, 0, 0, time.UTC)

	next, err := NextCronTime("0 3 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC), next)

	_, err = NextCronTime("bogus", from)
	assert.Error(t, err)
}
