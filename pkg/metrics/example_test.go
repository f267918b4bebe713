package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_customRegistry demonstrates using a custom Prometheus registry.
func Example_customRegistry() {
	customRegistry := prometheus.NewRegistry()

	registry := NewRegistryFromConfig(Config{
		Enabled:  true,
		Registry: customRegistry,
	})

	registry.TasksSubmitted.WithLabelValues("fetch").Add(12)
	registry.TasksFailed.WithLabelValues("fetch").Add(2)

	fmt.Println(testutil.ToFloat64(registry.TasksSubmitted.WithLabelValues("fetch")))
	fmt.Println(testutil.ToFloat64(registry.TasksFailed.WithLabelValues("fetch")))

	// Output:
	// 12
	// 2
}

// Example_disabled shows that a disabled config yields no registry.
func Example_disabled() {
	registry := NewRegistryFromConfig(Config{Enabled: false})
	fmt.Println(registry == nil)

	// Output: true
}
