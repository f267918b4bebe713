package logger

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldPool      = "pool"
	FieldWorkerID  = "worker_id"
	FieldTask      = "task"
	FieldRunID     = "run_id"
	FieldProcessor = "processor"
	FieldStage     = "stage"
	FieldKey       = "key"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldStack     = "stack"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Info("done", logger.Fields("stage", "map", "items", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}
