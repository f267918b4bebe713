package mapreduce_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghdlab/mapflow/pkg/collection"
	"github.com/ghdlab/mapflow/pkg/logger"
	"github.com/ghdlab/mapflow/pkg/scheduling/mapreduce"
	"github.com/ghdlab/mapflow/pkg/scheduling/workerpool"
)

func Example() {
	proc := mapreduce.Processor{
		Name: "double",
		Map: func(ctx context.Context, key, value interface{}) (interface{}, interface{}, error) {
			return key, value.(int) * 2, nil
		},
		Pool: &workerpool.Config{WorkerCount: 2},
	}

	out, err := mapreduce.Run(context.Background(), proc, []interface{}{10, 20, 30})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(out)

	// Output:
	// [20 40 60]
}

func Example_placeholders() {
	proc := mapreduce.Processor{
		Map: func(ctx context.Context, key, value interface{}) (interface{}, interface{}, error) {
			if key == "b" {
				return nil, nil, errors.New("lookup failed")
			}
			return key, value.(int) * 2, nil
		},
	}

	p, err := mapreduce.NewWithConfig(proc, mapreduce.Config{Logger: logger.Nop()})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	out, _ := p.Run(context.Background(), map[string]interface{}{"a": 1, "b": 2})
	data, _ := out.(*collection.Mapping).MarshalJSON()
	fmt.Println(string(data))

	// Output:
	// {"a":2,"b":null}
}

func Example_reduce() {
	proc := mapreduce.Processor{
		Map: func(ctx context.Context, key, value interface{}) (interface{}, interface{}, error) {
			return key, len(value.(string)), nil
		},
		Reduce: func(ctx context.Context, data interface{}) (interface{}, error) {
			total := 0
			for _, p := range data.(collection.Collection).Pairs() {
				total += p.Value.(int)
			}
			return total, nil
		},
	}

	out, _ := mapreduce.Run(context.Background(), proc, []string{"map", "reduce"})
	fmt.Println(out)

	// Output:
	// 9
}
