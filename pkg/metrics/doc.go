// Package metrics provides Prometheus instrumentation for mapflow components.
//
// # Quick Start
//
// Create a worker pool with metrics, or pass a Registry to the pipeline:
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//	pool := workerpool.NewWithMetrics(workerpool.Config{WorkerCount: 8, Name: "fetch"}, reg)
//
//	p, _ := mapreduce.NewWithConfig(proc, mapreduce.Config{Metrics: reg})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
// ## Worker Pool Metrics
//
//   - mapflow_workerpool_size: Worker pool capacity
//   - mapflow_workerpool_active_tasks: Tasks currently held by a worker
//   - mapflow_workerpool_tasks_submitted_total
//   - mapflow_workerpool_tasks_completed_total
//   - mapflow_workerpool_tasks_failed_total
//   - mapflow_workerpool_callbacks_failed_total
//   - mapflow_workerpool_task_duration_seconds
//
// ## Pipeline Metrics
//
//   - mapflow_pipeline_runs_total{processor,status}
//   - mapflow_pipeline_stage_duration_seconds{processor,stage}
//   - mapflow_pipeline_items_total{processor}
//   - mapflow_pipeline_placeholders_total{processor}
//
// ## Supporting Components
//
//   - mapflow_throttle_wait_duration_seconds{processor}
//   - mapflow_memo_requests_total{processor,result}
//   - mapflow_scheduler_runs_total{job,status}
package metrics
