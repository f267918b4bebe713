// Package logger is the process-wide diagnostic log used by mapflow.
//
// It wraps zerolog. Failures that the worker pool swallows are reported here
// and nowhere else, so library code always logs through WithComponent(...)
// rather than holding a private sink.
package logger
