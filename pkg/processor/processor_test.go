package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/kafka"
	engine "github.com/Ramsey-B/trellis/pkg/mapping"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func emailDocument() models.Document {
	return models.Document{
		Version: models.DocumentVersion,
		Name:    "Contacts",
		Mappings: []models.FieldMapping{
			{
				ID:              "mapping-1",
				SourceFields:    []models.FieldNode{{ID: "s1", Name: "email", Type: models.FieldTypeString, Path: "email"}},
				TargetField:     models.FieldNode{ID: "t1", Name: "email", Type: models.FieldTypeString, Path: "email"},
				Transformations: []models.TransformationStep{{Type: models.TransformationLowercase}},
			},
		},
	}
}

type staticLoader struct {
	compiled *CompiledMapping
	err      error
}

func (l *staticLoader) GetCompiledMapping(context.Context, string, string) (*CompiledMapping, error) {
	return l.compiled, l.err
}

type recordingPublisher struct {
	results []*kafka.ExecutionResult
}

func (p *recordingPublisher) Publish(_ context.Context, results ...*kafka.ExecutionResult) error {
	p.results = append(p.results, results...)
	return nil
}

func newTestProcessor(t *testing.T, loaderErr error) (*Processor, *recordingPublisher) {
	t.Helper()
	plan, err := engine.Compile(emailDocument())
	require.NoError(t, err)

	loader := &staticLoader{compiled: &CompiledMapping{ID: "m1", TenantID: "t1", Version: 3, Plan: plan}, err: loaderErr}
	publisher := &recordingPublisher{}
	p := NewProcessor(DefaultProcessorConfig(), loader, engine.NewExecutor(testLogger(), nil), publisher, testLogger())
	return p, publisher
}

func message(data string) *kafka.ReceivedMessage {
	return &kafka.ReceivedMessage{
		Request: &kafka.ExecutionRequest{
			RequestID: "r1",
			TenantID:  "t1",
			MappingID: "m1",
			Data:      json.RawMessage(data),
		},
	}
}

func TestProcessMessage(t *testing.T) {
	t.Run("should execute a single object once", func(t *testing.T) {
		p, _ := newTestProcessor(t, nil)

		results := p.ProcessMessage(context.Background(), message(`{"email":"ADA@X.IO"}`))
		require.Len(t, results, 1)
		assert.False(t, results[0].Failed())
		assert.Nil(t, results[0].ItemIndex)
		assert.Equal(t, 3, results[0].MappingVersion)
		assert.Equal(t, "ada@x.io", results[0].Data["email"])
	})

	t.Run("should execute every item of an array in order", func(t *testing.T) {
		p, _ := newTestProcessor(t, nil)

		results := p.ProcessMessage(context.Background(), message(`[{"email":"A@X.IO"},{"email":"B@X.IO"},{"email":"C@X.IO"}]`))
		require.Len(t, results, 3)
		for i, r := range results {
			require.NotNil(t, r.ItemIndex)
			assert.Equal(t, i, *r.ItemIndex)
		}
		assert.Equal(t, "c@x.io", results[2].Data["email"])
	})

	t.Run("should produce nothing for an empty array", func(t *testing.T) {
		p, _ := newTestProcessor(t, nil)
		assert.Empty(t, p.ProcessMessage(context.Background(), message(`[]`)))
	})

	t.Run("should report a mapping that cannot be loaded", func(t *testing.T) {
		p, _ := newTestProcessor(t, errors.New("mapping not found"))

		results := p.ProcessMessage(context.Background(), message(`{}`))
		require.Len(t, results, 1)
		require.True(t, results[0].Failed())
		assert.Equal(t, StageLoadMapping, results[0].Error.Stage)
		assert.Equal(t, "r1", results[0].RequestID)
	})
}

func TestMessageHandlerPublishes(t *testing.T) {
	p, publisher := newTestProcessor(t, nil)

	require.NoError(t, p.MessageHandler()(context.Background(), message(`[{"email":"A@X.IO"},{"email":"B@X.IO"}]`)))
	assert.Len(t, publisher.results, 2)
}
