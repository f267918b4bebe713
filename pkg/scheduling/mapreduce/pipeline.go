package mapreduce

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghdlab/mapflow/pkg/collection"
	"github.com/ghdlab/mapflow/pkg/common/errors"
	"github.com/ghdlab/mapflow/pkg/logger"
	"github.com/ghdlab/mapflow/pkg/metrics"
)

const tracerName = "github.com/ghdlab/mapflow/pkg/scheduling/mapreduce"

// Pipeline runs a Processor over input data.
type Pipeline interface {
	// Run executes the processor and returns the final data.
	Run(ctx context.Context, input interface{}) (interface{}, error)

	// Execute is Run with a full report of the run.
	Execute(ctx context.Context, input interface{}) (*Result, error)

	// Processor returns the processor definition.
	Processor() Processor

	// Stats returns execution statistics across runs.
	Stats() Stats
}

// Result represents the outcome of a pipeline run.
type Result struct {
	// RunID uniquely identifies the run in logs and spans
	RunID string

	// Processor is the processor name
	Processor string

	// Input is the original input data
	Input interface{}

	// Output is the final output data
	Output interface{}

	// Error is any error that halted the run
	Error error

	// StageResults contains results from each stage that ran
	StageResults []StageResult

	// Mapped is the number of keys submitted to the map stage
	Mapped int

	// FailedKeys lists, in key order, the keys left as placeholders by the map stage
	FailedKeys []interface{}

	// Duration is the total execution time
	Duration time.Duration

	// StartTime is when the run started
	StartTime time.Time

	// EndTime is when the run finished
	EndTime time.Time
}

// StageResult represents the result of a single stage execution.
type StageResult struct {
	// StageName is one of the Stage* constants
	StageName string

	// Output is the output from this stage
	Output interface{}

	// Error is any error from this stage
	Error error

	// Duration is how long this stage took
	Duration time.Duration

	// StartTime is when the stage started
	StartTime time.Time

	// EndTime is when the stage finished
	EndTime time.Time
}

// Stats holds pipeline execution statistics.
type Stats struct {
	TotalExecutions int64
	SuccessfulRuns  int64
	FailedRuns      int64
	ItemsMapped     int64
	Placeholders    int64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	StageStats      map[string]StageStats
	LastExecutionAt time.Time
}

// StageStats holds statistics for individual stages.
type StageStats struct {
	Name            string
	ExecutionCount  int64
	SuccessCount    int64
	ErrorCount      int64
	TotalDuration   time.Duration
	AverageDuration time.Duration
}

// Config holds pipeline configuration options.
type Config struct {
	// Logger receives run and failure logs. Defaults to the process-wide logger.
	Logger *logger.Logger

	// Tracer creates a span per run and per stage. Defaults to the global
	// OpenTelemetry tracer provider.
	Tracer trace.Tracer

	// Metrics records runs, stages and pool activity. Nil disables metrics.
	Metrics *metrics.Registry

	// OnStageStart is called when a stage starts execution.
	OnStageStart func(stageName string, input interface{})

	// OnStageComplete is called when a stage completes.
	OnStageComplete func(result StageResult)

	// OnTaskFailure is called, possibly concurrently, for every key whose
	// map call or result merge failed.
	OnTaskFailure func(key interface{}, err error)
}

// pipeline implements the Pipeline interface.
type pipeline struct {
	proc   Processor
	config Config
	root   *logger.Logger
	log    *logger.Logger
	tracer trace.Tracer
	stats  Stats
	mu     sync.RWMutex
}

// New creates a pipeline for proc with default configuration.
func New(proc Processor) (Pipeline, error) {
	return NewWithConfig(proc, Config{})
}

// NewWithConfig creates a pipeline for proc. It fails with a
// ConfigurationError if proc defines neither Map nor Reduce.
func NewWithConfig(proc Processor, config Config) (Pipeline, error) {
	if err := proc.Validate(); err != nil {
		return nil, err
	}

	root := config.Logger
	if root == nil {
		root = logger.Get()
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &pipeline{
		proc:   proc,
		config: config,
		root:   root,
		log:    root.WithComponent("mapreduce").WithFields(logger.Fields(logger.FieldProcessor, proc.name())),
		tracer: tracer,
		stats: Stats{
			StageStats: make(map[string]StageStats),
		},
	}, nil
}

// Run executes proc over input with a default pipeline.
func Run(ctx context.Context, proc Processor, input interface{}) (interface{}, error) {
	p, err := New(proc)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, input)
}

// Run executes the processor and returns the final data.
func (p *pipeline) Run(ctx context.Context, input interface{}) (interface{}, error) {
	result, err := p.Execute(ctx, input)
	return result.Output, err
}

// Execute runs preprocess, map, reduce and postprocess in that order,
// skipping the stages the processor leaves nil.
func (p *pipeline) Execute(ctx context.Context, input interface{}) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Processor: p.proc.name(),
		Input:     input,
		StartTime: time.Now(),
	}
	log := p.log.WithFields(logger.Fields(logger.FieldRunID, result.RunID))

	ctx, span := p.tracer.Start(ctx, "mapreduce.run", trace.WithAttributes(
		attribute.String("mapflow.processor", result.Processor),
		attribute.String("mapflow.run_id", result.RunID),
	))
	defer span.End()

	log.Debug("run started")

	output, err := p.executeStages(ctx, input, result, log)

	result.Output = output
	result.Error = err
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	span.SetAttributes(
		attribute.Int("mapflow.mapped", result.Mapped),
		attribute.Int("mapflow.placeholders", len(result.FailedKeys)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("run failed", logger.Fields(
			logger.FieldError, err,
			logger.FieldDuration, result.Duration.Milliseconds(),
		))
	} else {
		log.Info("run finished", logger.Fields(
			"mapped", result.Mapped,
			"placeholders", len(result.FailedKeys),
			logger.FieldDuration, result.Duration.Milliseconds(),
		))
	}

	p.updateStats(result)
	p.recordRun(result)

	return result, err
}

// executeStages runs all stages of the processor.
func (p *pipeline) executeStages(ctx context.Context, input interface{}, result *Result, log *logger.Logger) (interface{}, error) {
	data := input

	if p.proc.Preprocess != nil {
		out, err := p.executeStage(ctx, StagePreprocess, data, result, p.proc.Preprocess)
		if err != nil {
			return data, err
		}
		data = out
	}

	coll, err := collection.From(data)
	if err != nil {
		return data, err
	}

	if p.proc.Map != nil {
		out, err := p.executeStage(ctx, StageMap, coll, result, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return p.mapStage(ctx, coll, result, log)
		})
		if err != nil {
			return out, err
		}
		data = out
	}

	if p.proc.Reduce != nil {
		out, err := p.executeStage(ctx, StageReduce, data, result, p.proc.Reduce)
		if err != nil {
			return data, err
		}
		data = out
	}

	if p.proc.Postprocess != nil {
		out, err := p.executeStage(ctx, StagePostprocess, data, result, p.proc.Postprocess)
		if err != nil {
			return data, err
		}
		data = out
	}

	return data, nil
}

// executeStage executes a single stage, recording its result. Errors from
// user stages are wrapped in a StageError; the map stage reports its own.
func (p *pipeline) executeStage(ctx context.Context, name string, input interface{}, result *Result, fn StageFunc) (interface{}, error) {
	startTime := time.Now()

	if p.config.OnStageStart != nil {
		p.config.OnStageStart(name, input)
	}

	ctx, span := p.tracer.Start(ctx, "mapreduce."+name, trace.WithAttributes(
		attribute.String("mapflow.stage", name),
	))
	output, err := fn(ctx, input)
	if err != nil {
		if name != StageMap {
			err = &errors.StageError{Processor: p.proc.name(), Stage: name, Cause: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	endTime := time.Now()
	stageResult := StageResult{
		StageName: name,
		Output:    output,
		Error:     err,
		Duration:  endTime.Sub(startTime),
		StartTime: startTime,
		EndTime:   endTime,
	}
	result.StageResults = append(result.StageResults, stageResult)

	p.updateStageStats(name, stageResult)
	if p.config.Metrics != nil {
		p.config.Metrics.PipelineStageDuration.WithLabelValues(p.proc.name(), name).Observe(stageResult.Duration.Seconds())
	}

	if p.config.OnStageComplete != nil {
		p.config.OnStageComplete(stageResult)
	}

	return output, err
}

// Processor returns the processor definition.
func (p *pipeline) Processor() Processor {
	return p.proc
}

// Stats returns pipeline execution statistics.
func (p *pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Create a copy to avoid race conditions
	statsCopy := p.stats
	statsCopy.StageStats = make(map[string]StageStats, len(p.stats.StageStats))
	for k, v := range p.stats.StageStats {
		statsCopy.StageStats[k] = v
	}

	if statsCopy.TotalExecutions > 0 {
		statsCopy.AverageDuration = time.Duration(int64(statsCopy.TotalDuration) / statsCopy.TotalExecutions)
	}

	return statsCopy
}

// updateStats updates pipeline statistics.
func (p *pipeline) updateStats(result *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.TotalExecutions++
	p.stats.TotalDuration += result.Duration
	p.stats.LastExecutionAt = result.EndTime
	p.stats.ItemsMapped += int64(result.Mapped)
	p.stats.Placeholders += int64(len(result.FailedKeys))

	if result.Error == nil {
		p.stats.SuccessfulRuns++
	} else {
		p.stats.FailedRuns++
	}
}

// updateStageStats updates statistics for a specific stage.
func (p *pipeline) updateStageStats(stageName string, result StageResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats, exists := p.stats.StageStats[stageName]
	if !exists {
		stats = StageStats{Name: stageName}
	}

	stats.ExecutionCount++
	stats.TotalDuration += result.Duration

	if result.Error == nil {
		stats.SuccessCount++
	} else {
		stats.ErrorCount++
	}

	stats.AverageDuration = time.Duration(int64(stats.TotalDuration) / stats.ExecutionCount)

	p.stats.StageStats[stageName] = stats
}

func (p *pipeline) recordRun(result *Result) {
	if p.config.Metrics == nil {
		return
	}

	status := "ok"
	if result.Error != nil {
		status = "error"
	}
	name := result.Processor
	p.config.Metrics.PipelineRuns.WithLabelValues(name, status).Inc()
	p.config.Metrics.PipelineItems.WithLabelValues(name).Add(float64(result.Mapped))
	p.config.Metrics.PipelinePlaceholders.WithLabelValues(name).Add(float64(len(result.FailedKeys)))
}
