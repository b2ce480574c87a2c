package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("matchsim"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "matchsim", BatchTimeout: time.Second})
	assert.ErrorIs(t, err, ErrNoSinks)
}

func TestNew_FileExporterWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	cfg := FromSettings(true, "matchsim", time.Second, "", true, &buf)
	cfg.ServiceVersion = "1.2.0"
	p, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())
	assert.True(t, p.Enabled())

	var rec log.Record
	rec.SetBody(log.StringValue("kick-off"))
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "kick-off")
	assert.Contains(t, buf.String(), "1.2.0")
	assert.NoError(t, p.Shutdown(context.Background()))
}
