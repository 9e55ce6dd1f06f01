package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup(t *testing.T) {
	t.Run("should start dependencies before their dependents and stop in reverse", func(t *testing.T) {
		var events []string
		record := func(event string) func(context.Context) error {
			return func(context.Context) error {
				events = append(events, event)
				return nil
			}
		}

		s := NewStartup(testLogger(), 1)
		s.AddDependency(Dependency{Name: "worker", Requires: []string{"database"}, StartFunc: record("start worker"), StopFunc: record("stop worker")})
		s.AddDependency(Dependency{Name: "database", StartFunc: record("start database"), StopFunc: record("stop database")})

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, []string{"start database", "start worker"}, events)
		assert.Equal(t, StartupStatusStarted, s.Status("worker"))

		events = nil
		require.NoError(t, s.Stop(context.Background()))
		assert.Equal(t, []string{"stop worker", "stop database"}, events)
		assert.Equal(t, StartupStatusStopped, s.Status("database"))
	})

	t.Run("should fail after the last attempt", func(t *testing.T) {
		s := NewStartup(testLogger(), 1)
		s.AddDependency(Dependency{Name: "redis", StartFunc: func(context.Context) error {
			return errors.New("connection refused")
		}})

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, StartupStatusFailed, s.Status("redis"))
	})

	t.Run("should fail on an unregistered requirement", func(t *testing.T) {
		s := NewStartup(testLogger(), 1)
		s.AddDependency(Dependency{Name: "worker", Requires: []string{"kafka"}})

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kafka")
	})
}
