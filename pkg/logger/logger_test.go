package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newBufferedLogger(t *testing.T, format string) (*Logger, *bytes.Buffer) {
	t.Helper()

	l, err := NewLogger(&Config{Level: DebugLevel, Format: format, AppName: "MiniOla", Version: "test"})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	l.SetOutput(buf)
	return l, buf
}

func TestJSONFormatterIncludesAppAndFields(t *testing.T) {
	l, buf := newBufferedLogger(t, "json")

	rideID := primitive.NewObjectID()
	l.WithRideID(rideID).WithField("status", "accepted").Info("ride accepted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ride accepted", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "MiniOla", entry["app"])
	assert.Equal(t, rideID.Hex(), entry["ride_id"])
	assert.Equal(t, "accepted", entry["status"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferedLogger(t, "json")

	child := l.WithField("component", "payments")
	l.Info("parent")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "component")
	assert.NotNil(t, child)
}

func TestTextFormatterSortsFields(t *testing.T) {
	l, buf := newBufferedLogger(t, "text")

	l.WithFields(map[string]interface{}{"b": 2, "a": 1}).Warn("hello")

	out := buf.String()
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "[MiniOla]")
	assert.Contains(t, out, "hello a=1 b=2")
}

func TestTextFormatterLeadsWithCorrelationIDs(t *testing.T) {
	l, buf := newBufferedLogger(t, "text")

	rideID := primitive.NewObjectID()
	l.WithField("amount", 120.5).WithRideID(rideID).WithField("request_id", "req-1").Info("payment completed")

	assert.Contains(t, buf.String(), "payment completed request_id=req-1 ride_id="+rideID.Hex()+" amount=120.5")
}

func TestWithErrorNilIsNoop(t *testing.T) {
	l := NewDiscard()
	assert.Same(t, l, l.WithError(nil))
}
