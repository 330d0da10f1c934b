package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
)

func TestOptions(t *testing.T) {
	opts := options(config.ClickHouse{
		Host:            "clickhouse",
		Port:            "9440",
		Database:        "analytics",
		User:            "writer",
		UseTLS:          true,
		MaxOpenConns:    5,
		ConnMaxLifetime: 60,
	})

	assert.Equal(t, []string{"clickhouse:9440"}, opts.Addr)
	assert.Equal(t, "analytics", opts.Auth.Database)
	assert.Equal(t, "writer", opts.Auth.Username)
	require.NotNil(t, opts.TLS)
	assert.Equal(t, time.Minute, opts.ConnMaxLifetime)
}

func TestOptions_PlainText(t *testing.T) {
	opts := options(config.ClickHouse{Host: "localhost", Port: "9000"})

	assert.Nil(t, opts.TLS)
}

func TestGroupByExpressions(t *testing.T) {
	for _, key := range []string{"status", "hour", "day"} {
		_, ok := groupByExpressions[key]
		assert.True(t, ok, key)
	}
	_, ok := groupByExpressions["channel"]
	assert.False(t, ok)
}
