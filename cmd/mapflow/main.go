// Command mapflow checks, in parallel, whether the URLs of a JSON
// collection still exist.
//
// The input is a JSON array or object of URL strings, read from a file or
// stdin. The output has the same shape, with true or false per URL, or null
// where a URL could not be checked:
//
//	echo '{"pandas":"github.com/pandas-dev/pandas"}' | mapflow --workers 16
//
// With --keep-existing the output is the input narrowed to the URLs that
// exist. With --schedule the check is rerun on a cron schedule until the
// process is interrupted.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/ghdlab/mapflow/internal/urlcheck"
	"github.com/ghdlab/mapflow/pkg/collection"
	"github.com/ghdlab/mapflow/pkg/config"
	"github.com/ghdlab/mapflow/pkg/logger"
	"github.com/ghdlab/mapflow/pkg/memo"
	"github.com/ghdlab/mapflow/pkg/metrics"
	"github.com/ghdlab/mapflow/pkg/scheduling/mapreduce"
	"github.com/ghdlab/mapflow/pkg/scheduling/scheduler"
	"github.com/ghdlab/mapflow/pkg/scheduling/throttle"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "mapflow: %v\n", err)
		os.Exit(1)
	}
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"pool.worker_count": "workers",
	"throttle.rate":     "rate",
	"throttle.burst":    "burst",
	"cache.redis_addr":  "redis",
	"metrics.addr":      "metrics-addr",
	"schedule":          "schedule",
}

type options struct {
	configFile   string
	envFile      string
	input        string
	output       string
	fillFalse    bool
	keepExisting bool
	timeout      time.Duration
	userAgent    string
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("mapflow", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVarP(&opts.configFile, "config", "c", "", "config file (default ./mapflow.yml when present)")
	fs.StringVar(&opts.envFile, "env", "", "env file (default ./.env when present)")
	fs.StringVarP(&opts.input, "input", "i", "-", "JSON input file, - for stdin")
	fs.StringVarP(&opts.output, "output", "o", "-", "JSON output file, - for stdout")
	fs.IntP("workers", "w", 0, "concurrent checks, 0 for twice the CPU count")
	fs.Float64("rate", 0, "checks started per second, 0 for no throttle")
	fs.Int("burst", 0, "checks that may start back to back when throttled")
	fs.String("redis", "", "memoize results in Redis at this address")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.String("schedule", "", "rerun on this cron schedule until interrupted")
	fs.BoolVar(&opts.fillFalse, "fill-false", false, "report URLs that could not be checked as false")
	fs.BoolVar(&opts.keepExisting, "keep-existing", false, "output only the URLs that exist")
	fs.DurationVar(&opts.timeout, "timeout", urlcheck.DefaultTimeout, "timeout of a single check")
	fs.StringVar(&opts.userAgent, "user-agent", "mapflow", "User-Agent header sent with every check")

	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(
		config.WithConfigFile(opts.configFile),
		config.WithEnvFile(opts.envFile),
		config.WithFlags(fs, flagKeys),
	)
	if err != nil {
		return err
	}
	if fs.Changed("redis") {
		cfg.Cache.Backend = memo.BackendRedis
	}

	logger.Init(cfg.Logging)
	log := logger.WithComponent("cli")

	reg := metrics.NewRegistryFromConfig(cfg.Metrics)
	if cfg.Metrics.Addr != "" {
		if reg == nil {
			reg = metrics.Default()
		}
		stopMetrics := serveMetrics(cfg.Metrics.Addr, log)
		defer stopMetrics()
	}

	proc, closeProc, err := buildProcessor(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer closeProc()

	p, err := mapreduce.NewWithConfig(proc, mapreduce.Config{
		Logger:  logger.Get(),
		Metrics: reg,
		OnTaskFailure: func(key interface{}, err error) {
			log.Debug("check failed", logger.Fields(logger.FieldKey, key, logger.FieldError, err))
		},
	})
	if err != nil {
		return err
	}

	input, err := readInput(opts.input, stdin)
	if err != nil {
		return err
	}

	once := func(ctx context.Context) error {
		var out interface{}
		var err error
		if opts.keepExisting {
			out, err = urlcheck.Existing(ctx, p, input)
		} else {
			out, err = p.Run(ctx, input)
		}
		if err != nil {
			return err
		}
		return writeOutput(opts.output, stdout, out)
	}

	if cfg.Schedule == "" {
		return once(ctx)
	}

	sched := scheduler.NewWithConfig(scheduler.Config{Logger: logger.Get(), Metrics: reg})
	if err := sched.Schedule(urlcheck.Name, cfg.Schedule, once); err != nil {
		return err
	}
	sched.Start()
	if next, ok := sched.Next(urlcheck.Name); ok {
		log.Info("scheduled", logger.Fields("schedule", cfg.Schedule, "next", next))
	}

	<-ctx.Done()
	<-sched.Stop()
	log.Info("stopped")
	return nil
}

// buildProcessor wires the pool, throttle and cache settings of cfg into
// the URL-existence processor. The returned func releases the cache.
func buildProcessor(ctx context.Context, cfg config.Config, opts options) (mapreduce.Processor, func(), error) {
	proc := urlcheck.Processor(urlcheck.Options{
		Client:    &http.Client{Timeout: opts.timeout},
		UserAgent: opts.userAgent,
		FillFalse: opts.fillFalse,
	})

	pool := cfg.Pool
	proc.Pool = &pool

	if cfg.Throttle.Enabled() {
		limiter, err := throttle.NewWithConfig(cfg.Throttle)
		if err != nil {
			return proc, nil, err
		}
		proc.Throttle = limiter
	}

	cache, err := memo.New(cfg.Cache)
	if err != nil {
		return proc, nil, err
	}
	closeCache := func() {}
	if rc, ok := cache.(*memo.RedisCache); ok {
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return proc, nil, err
		}
		closeCache = func() { _ = rc.Close() }
	}
	proc.Cache = cache

	return proc, closeCache, nil
}

// serveMetrics serves /metrics on addr until the returned func is called.
func serveMetrics(addr string, log *logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", logger.Fields(logger.FieldError, err))
		}
	}()
	log.Info("serving metrics", logger.Fields("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func readInput(path string, stdin io.Reader) (collection.Collection, error) {
	if path == "-" {
		return collection.ReadJSON(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return collection.ReadJSON(f)
}

func writeOutput(path string, stdout io.Writer, out interface{}) error {
	if path == "-" {
		return encode(stdout, out)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return encodeAndClose(f, out)
}

// encodeAndClose writes out to wc and closes it, reporting the close error
// when the write itself succeeded.
func encodeAndClose(wc io.WriteCloser, out interface{}) error {
	err := encode(wc, out)
	if cerr := wc.Close(); err == nil {
		err = cerr
	}
	return err
}

func encode(w io.Writer, out interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
