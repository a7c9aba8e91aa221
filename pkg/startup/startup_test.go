package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStartup(maxAttempts int) *Startup {
	s := NewStartup(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), maxAttempts)
	s.SetBackoffUnit(time.Millisecond)
	return s
}

func recorder(events *[]string, name string, after ...string) Func {
	return Func{
		Name:  name,
		After: after,
		StartFn: func(_ context.Context) error {
			*events = append(*events, "start "+name)
			return nil
		},
		StopFn: func(_ context.Context) error {
			*events = append(*events, "stop "+name)
			return nil
		},
	}
}

func TestStartup_OrderAndReverseStop(t *testing.T) {
	var events []string
	s := newTestStartup(1)
	s.AddDependency(recorder(&events, "engine", "database"))
	s.AddDependency(recorder(&events, "database"))
	s.AddDependency(recorder(&events, "kafka", "engine"))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, []string{
		"start database", "start engine", "start kafka",
		"stop kafka", "stop engine", "stop database",
	}, events)
	assert.Equal(t, StartupStatusStopped, s.Status("engine"))
}

func TestStartup_RetriesWithBackoff(t *testing.T) {
	calls := 0
	s := newTestStartup(3)
	s.AddDependency(Func{Name: "database", StartFn: func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, StartupStatusStarted, s.Status("database"))
}

func TestStartup_GivesUp(t *testing.T) {
	s := newTestStartup(2)
	s.AddDependency(Func{Name: "redis", StartFn: func(_ context.Context) error {
		return errors.New("no route to host")
	}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, StartupStatusFailed, s.Status("redis"))
}

func TestStartup_UnknownAndCycle(t *testing.T) {
	s := newTestStartup(1)
	s.AddDependency(Func{Name: "engine", After: []string{"missing"}})
	assert.Error(t, s.Start(context.Background()))

	s = newTestStartup(1)
	s.AddDependency(Func{Name: "a", After: []string{"b"}})
	s.AddDependency(Func{Name: "b", After: []string{"a"}})
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
