package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubObject_StatusAt(t *testing.T) {
	now := time.Date(2025, 7, 18, 12, 45, 0, 0, time.UTC)
	delay := 5 * time.Minute
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name string
		last *time.Time
		want Status
	}{
		{"never reported", nil, StatusInactive},
		{"fresh", at(time.Second), StatusActive},
		{"exactly at the limit", at(delay), StatusActive},
		{"just past the limit", at(delay + time.Nanosecond), StatusInactive},
		{"reported in the future", at(-time.Minute), StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &SubObject{LastUpdate: tt.last}
			assert.Equal(t, tt.want, sub.StatusAt(now, delay))
		})
	}
}

func TestSubObject_Silent(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-10 * time.Minute)

	assert.False(t, (&SubObject{}).Silent(now, time.Minute))
	assert.True(t, (&SubObject{LastUpdate: &old}).Silent(now, time.Minute))
	assert.False(t, (&SubObject{LastUpdate: &old}).Silent(now, time.Hour))
}

func TestSubObject_Monitored(t *testing.T) {
	assert.True(t, (&SubObject{}).Monitored(&Object{}))
	assert.False(t, (&SubObject{Paused: true}).Monitored(&Object{}))
	assert.False(t, (&SubObject{}).Monitored(&Object{Paused: true}))
}

func TestHeartbeat_Target(t *testing.T) {
	t.Run("new format", func(t *testing.T) {
		obj, sub, legacy, err := Heartbeat{ObjectName: "Energy_SolDar", SubObjectName: "PLC1"}.Target()
		assert.NoError(t, err)
		assert.Equal(t, "Energy_SolDar", obj)
		assert.Equal(t, "PLC1", sub)
		assert.False(t, legacy)
	})

	t.Run("legacy format", func(t *testing.T) {
		obj, sub, legacy, err := Heartbeat{ProgramName: "Energy_SolDar", APIKey: "key-1"}.Target()
		assert.NoError(t, err)
		assert.Equal(t, "Energy_SolDar", obj)
		assert.Equal(t, "key-1", sub)
		assert.True(t, legacy)
	})

	t.Run("object name wins over legacy fields", func(t *testing.T) {
		_, _, _, err := Heartbeat{ObjectName: "A", ProgramName: "B", APIKey: "C"}.Target()
		assert.True(t, errors.Is(err, ErrMissingTarget))
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, hb := range []Heartbeat{
			{},
			{ObjectName: "A"},
			{SubObjectName: "B"},
			{ProgramName: "A"},
			{APIKey: "B"},
		} {
			_, _, _, err := hb.Target()
			assert.ErrorIs(t, err, ErrMissingTarget)
		}
	})
}

func TestStatusOf(t *testing.T) {
	now := time.Now().UTC()
	fresh := now.Add(-time.Second)
	stale := now.Add(-time.Hour)
	obj := &Object{
		Name:   "Energy_SolDar",
		Paused: true,
		Children: []*SubObject{
			{Name: "PLC1", LastUpdate: &fresh},
			{Name: "PLC2", LastUpdate: &stale, Paused: true},
			{Name: "PLC3"},
		},
	}

	got := StatusOf(obj, now, time.Minute)

	assert.Equal(t, "Energy_SolDar", got.Name)
	assert.True(t, got.Paused)
	assert.Equal(t, []SubObjectStatus{
		{Name: "PLC1", LastUpdate: &fresh, Status: StatusActive},
		{Name: "PLC2", LastUpdate: &stale, Status: StatusInactive, Paused: true},
		{Name: "PLC3", Status: StatusInactive},
	}, got.Children)
}
