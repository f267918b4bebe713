// Package urlcheck checks, in parallel, whether project URLs still resolve.
// It is the processor behind the mapflow command.
package urlcheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ghdlab/mapflow/pkg/collection"
	"github.com/ghdlab/mapflow/pkg/common/errors"
	"github.com/ghdlab/mapflow/pkg/logger"
	"github.com/ghdlab/mapflow/pkg/scheduling/mapreduce"
)

// Name is the processor name used in logs, metrics and cache keys.
const Name = "urlcheck"

// DefaultTimeout bounds a single request when Options.Client is nil.
const DefaultTimeout = 10 * time.Second

// Options configures the URL-existence processor.
type Options struct {
	// Client issues the requests. Defaults to a client with DefaultTimeout.
	Client *http.Client

	// UserAgent is sent with every request when set.
	UserAgent string

	// FillFalse replaces the placeholders left by failed checks with false.
	FillFalse bool

	// Logger receives per-URL debug logs. Defaults to the global logger.
	Logger *logger.Logger
}

// Processor returns a processor mapping every URL of its input to whether
// the URL exists. URLs that could not be checked are left as placeholders
// unless FillFalse is set.
func Processor(opts Options) mapreduce.Processor {
	c := newChecker(opts)

	proc := mapreduce.Processor{
		Name:       Name,
		Preprocess: normalizeStage,
		Map:        c.exists,
	}
	if opts.FillFalse {
		proc.Postprocess = fillFalse
	}
	return proc
}

// Existing runs p over input and returns the URLs p checked, narrowed to
// those that exist. Failed checks count as not existing.
func Existing(ctx context.Context, p mapreduce.Pipeline, input interface{}) (collection.Collection, error) {
	result, err := p.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	checkedURLs := input
	for _, stage := range result.StageResults {
		if stage.StageName == mapreduce.StagePreprocess {
			checkedURLs = stage.Output
		}
	}
	urls, err := collection.From(checkedURLs)
	if err != nil {
		return nil, err
	}
	checked, err := collection.From(result.Output)
	if err != nil {
		return nil, err
	}

	found := make(map[interface{}]bool, checked.Len())
	for _, pair := range checked.Pairs() {
		if exists, ok := pair.Value.(bool); ok && exists {
			found[pair.Key] = true
		}
	}
	return collection.Filter(urls, func(key, _ interface{}) bool {
		return found[key]
	}), nil
}

// Normalize returns input as a collection with every string value cleaned
// by NormalizeURL. Other values are kept and fail their check later.
func Normalize(input interface{}) (collection.Collection, error) {
	coll, err := collection.From(input)
	if err != nil {
		return nil, err
	}

	results := make(map[interface{}]interface{}, coll.Len())
	for _, pair := range coll.Pairs() {
		if s, ok := pair.Value.(string); ok {
			results[pair.Key] = NormalizeURL(s)
			continue
		}
		results[pair.Key] = pair.Value
	}
	return coll.Rebuild(results), nil
}

// NormalizeURL trims whitespace, trailing slashes and ".git" suffixes, and
// adds an https scheme to bare host paths such as "github.com/org/repo".
// NormalizeURL(NormalizeURL(u)) == NormalizeURL(u).
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	for {
		trimmed := strings.TrimSuffix(strings.TrimSuffix(u, "/"), ".git")
		if trimmed == u {
			break
		}
		u = trimmed
	}
	if u != "" && !strings.Contains(u, "://") {
		u = "https://" + u
	}
	return u
}

func normalizeStage(_ context.Context, data interface{}) (interface{}, error) {
	return Normalize(data)
}

func fillFalse(_ context.Context, data interface{}) (interface{}, error) {
	coll, err := collection.From(data)
	if err != nil {
		return nil, err
	}
	return collection.Fill(coll, false), nil
}

type checker struct {
	client    *http.Client
	userAgent string
	log       *logger.Logger
}

func newChecker(opts Options) *checker {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	return &checker{
		client:    client,
		userAgent: opts.UserAgent,
		log:       log.WithComponent(Name),
	}
}

// exists reports whether the URL under key answers with a non-error status.
// 404 and 410 mean the project is gone; any other failure is an error.
func (c *checker) exists(ctx context.Context, key, value interface{}) (interface{}, interface{}, error) {
	url, ok := value.(string)
	if !ok || url == "" {
		return key, nil, errors.NewValidationError(Name, fmt.Sprint(key), value, "not a URL")
	}

	status, err := c.status(ctx, http.MethodHead, url)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = c.status(ctx, http.MethodGet, url)
	}
	if err != nil {
		return key, nil, errors.NewOperationError(Name, "request", err).WithContext(url)
	}

	c.log.Debug("checked", logger.Fields(logger.FieldKey, key, "url", url, "status", status))

	switch {
	case status < http.StatusBadRequest:
		return key, true, nil
	case status == http.StatusNotFound, status == http.StatusGone:
		return key, false, nil
	default:
		return key, nil, errors.NewOperationError(Name, "request", fmt.Errorf("unexpected status %d", status)).WithContext(url)
	}
}

func (c *checker) status(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
