// Package processor executes stored mappings for execution requests read
// from Kafka and publishes one result per executed input.
package processor

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	maperr "github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/kafka"
	engine "github.com/Ramsey-B/trellis/pkg/mapping"
	"github.com/Ramsey-B/trellis/pkg/metrics"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

const (
	executionSource = "kafka"

	StageLoadMapping    = "load_mapping"
	StageDecodeData     = "decode_data"
	StageExecuteMapping = "execute_mapping"
)

// MappingLoader loads and caches compiled mappings
type MappingLoader interface {
	GetCompiledMapping(ctx context.Context, tenantID, mappingID string) (*CompiledMapping, error)
}

// Publisher publishes execution results. Failed results go to the error
// topic.
type Publisher interface {
	Publish(ctx context.Context, results ...*kafka.ExecutionResult) error
}

// ProcessorConfig configures the message processor
type ProcessorConfig struct {
	// WorkerCount bounds how many items of one array request run at once
	WorkerCount int

	// ProcessTimeout is the timeout for processing a single message
	ProcessTimeout time.Duration
}

// DefaultProcessorConfig returns a ProcessorConfig with sensible defaults
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		WorkerCount:    4,
		ProcessTimeout: 30 * time.Second,
	}
}

// Processor processes execution requests
type Processor struct {
	config        ProcessorConfig
	mappingLoader MappingLoader
	executor      *engine.Executor
	publisher     Publisher
	logger        ectologger.Logger
	now           func() time.Time
}

// NewProcessor creates a new message processor
func NewProcessor(
	config ProcessorConfig,
	mappingLoader MappingLoader,
	executor *engine.Executor,
	publisher Publisher,
	logger ectologger.Logger,
) *Processor {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	return &Processor{
		config:        config,
		mappingLoader: mappingLoader,
		executor:      executor,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// ProcessMessage executes the requested mapping against every input of the
// request. Failures are reported as results, not as an error.
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.ReceivedMessage) []*kafka.ExecutionResult {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	req := msg.Request
	base := kafka.ExecutionResult{
		RequestID:   req.RequestID,
		TenantID:    req.TenantID,
		MappingID:   req.MappingID,
		TraceParent: tracing.GetTraceParent(ctx),
	}
	if base.TraceParent == "" {
		base.TraceParent = msg.Headers.TraceParent
	}

	compiled, err := p.mappingLoader.GetCompiledMapping(ctx, req.TenantID, req.MappingID)
	if err != nil {
		return []*kafka.ExecutionResult{p.failure(base, nil, StageLoadMapping, err)}
	}
	base.MappingVersion = compiled.Version

	items, isArray, err := req.Items()
	if err != nil {
		return []*kafka.ExecutionResult{p.failure(base, nil, StageDecodeData, err)}
	}

	results := make([]*kafka.ExecutionResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.WorkerCount)
	for i, item := range items {
		var index *int
		if isArray {
			index = &i
		}
		g.Go(func() error {
			results[i] = p.executeItem(gctx, base, compiled, index, item)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Processor) executeItem(ctx context.Context, base kafka.ExecutionResult, compiled *CompiledMapping, index *int, item any) *kafka.ExecutionResult {
	start := p.now()
	target, err := p.executor.Execute(ctx, compiled.Plan, item)
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	metrics.RecordExecution(base.TenantID, executionSource, status, time.Since(start).Seconds())

	if err != nil {
		if index != nil {
			err = maperr.WrapMappingError(err).AddItemIndex(*index)
		}
		return p.failure(base, index, StageExecuteMapping, err)
	}

	result := base
	result.ItemIndex = index
	result.Timestamp = p.now().UTC()
	result.Data = target
	return &result
}

func (p *Processor) failure(base kafka.ExecutionResult, index *int, stage string, err error) *kafka.ExecutionResult {
	result := base
	result.ItemIndex = index
	result.Timestamp = p.now().UTC()
	result.Error = &kafka.ExecutionError{
		Stage:   stage,
		Message: err.Error(),
	}
	if mappingErr, ok := err.(*maperr.MappingError); ok {
		result.Error.Meta = map[string]any{
			"mapping_id": mappingErr.Mapping,
			"field":      mappingErr.Field,
			"step":       mappingErr.Step,
		}
		if itemIndex, ok := mappingErr.ItemIndex(); ok {
			result.Error.Meta["item_index"] = itemIndex
		}
	}
	return &result
}

// MessageHandler returns a kafka.MessageHandler for use with the consumer
func (p *Processor) MessageHandler() kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.ReceivedMessage) error {
		ctx = tracing.WithTraceParent(ctx, msg.Headers.TraceParent)
		if p.config.ProcessTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.config.ProcessTimeout)
			defer cancel()
		}

		results := p.ProcessMessage(ctx, msg)

		for _, r := range results {
			if r.Failed() {
				p.logger.WithContext(ctx).WithFields(map[string]any{
					"request_id": r.RequestID,
					"tenant_id":  r.TenantID,
					"mapping_id": r.MappingID,
					"stage":      r.Error.Stage,
				}).Warn(r.Error.Message)
			}
		}

		return p.publisher.Publish(ctx, results...)
	}
}
