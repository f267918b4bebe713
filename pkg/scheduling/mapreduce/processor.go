package mapreduce

import (
	"context"

	"github.com/ghdlab/mapflow/pkg/common/errors"
	"github.com/ghdlab/mapflow/pkg/memo"
	"github.com/ghdlab/mapflow/pkg/scheduling/throttle"
	"github.com/ghdlab/mapflow/pkg/scheduling/workerpool"
)

// Stage names, as reported in StageResult, logs, spans and metrics.
const (
	StagePreprocess  = "preprocess"
	StageMap         = "map"
	StageReduce      = "reduce"
	StagePostprocess = "postprocess"
)

// MapFunc processes one entry. It must return the key it was given along
// with the processed value. An error (or panic) leaves a placeholder for
// that key and does not stop the run.
type MapFunc func(ctx context.Context, key, value interface{}) (interface{}, interface{}, error)

// StageFunc transforms the whole working data set. An error halts the run.
type StageFunc func(ctx context.Context, data interface{}) (interface{}, error)

// Processor defines a map-reduce job. At least one of Map and Reduce must
// be set; the other slots are optional.
type Processor struct {
	// Name identifies the processor in logs, spans, metrics and cache keys.
	Name string

	// Preprocess turns the raw input into a keyed collection.
	Preprocess StageFunc

	// Map is applied to every (key, value) pair in parallel.
	Map MapFunc

	// Reduce receives the mapped collection, or the preprocessed input
	// when Map is nil.
	Reduce StageFunc

	// Postprocess receives the output of Reduce, or of Map.
	Postprocess StageFunc

	// Pool sizes the worker pool created for each run. Nil uses defaults.
	Pool *workerpool.Config

	// Throttle, if set, is waited on before every Map call.
	Throttle throttle.Limiter

	// Cache, if set, memoizes successful Map results across runs.
	Cache memo.Cache
}

// Validate reports a ConfigurationError if the processor has neither a Map
// nor a Reduce function, and validates the pool configuration.
func (p Processor) Validate() error {
	if p.Map == nil && p.Reduce == nil {
		return errors.NewConfigurationError("mapreduce", "processor "+p.name()+" defines neither map nor reduce")
	}
	if p.Pool != nil {
		if err := p.Pool.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p Processor) name() string {
	if p.Name == "" {
		return "processor"
	}
	return p.Name
}

// poolConfig returns the pool configuration for one run.
func (p Processor) poolConfig() workerpool.Config {
	var config workerpool.Config
	if p.Pool != nil {
		config = *p.Pool
	}
	if config.Name == "" {
		config.Name = p.name()
	}
	return config
}
