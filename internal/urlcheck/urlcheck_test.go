package urlcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghdlab/mapflow/pkg/collection"
	"github.com/ghdlab/mapflow/pkg/logger"
	"github.com/ghdlab/mapflow/pkg/scheduling/mapreduce"
)

func newServer(t *testing.T, heads *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && heads != nil {
			atomic.AddInt32(heads, 1)
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/nohead", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newPipeline(t *testing.T, opts Options) mapreduce.Pipeline {
	t.Helper()
	opts.Logger = logger.Nop()
	p, err := mapreduce.NewWithConfig(Processor(opts), mapreduce.Config{Logger: logger.Nop()})
	require.NoError(t, err)
	return p
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"github.com/org/repo", "https://github.com/org/repo"},
		{"https://github.com/org/repo.git", "https://github.com/org/repo"},
		{"  http://example.com/x/ ", "http://example.com/x"},
		{"https://gitlab.com/a/b.git/", "https://gitlab.com/a/b"},
		{"x/.git", "https://x"},
		{"https://h.io/a.git/.git//", "https://h.io/a"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeURL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeURL(got), "normalizing twice changes nothing")
		})
	}
}

func TestNormalizeKeepsShape(t *testing.T) {
	out, err := Normalize(map[string]interface{}{"b": "x.org/b/", "a": 42})
	require.NoError(t, err)

	m := out.(*collection.Mapping)
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	a, _ := m.Get("a")
	b, _ := m.Get("b")
	assert.Equal(t, 42, a)
	assert.Equal(t, "https://x.org/b", b)

	_, err = Normalize(7)
	assert.Error(t, err)
}

func TestProcessorChecksEveryURL(t *testing.T) {
	srv := newServer(t, nil)
	p := newPipeline(t, Options{Client: srv.Client()})

	out, err := p.Run(context.Background(), map[string]interface{}{
		"ok":     srv.URL + "/ok/",
		"gone":   srv.URL + "/gone.git",
		"broken": srv.URL + "/broken",
		"nohead": srv.URL + "/nohead",
		"bad":    12,
	})
	require.NoError(t, err)

	m := out.(*collection.Mapping)
	assert.Equal(t, []string{"bad", "broken", "gone", "nohead", "ok"}, m.Keys())

	get := func(k string) interface{} {
		v, _ := m.Get(k)
		return v
	}
	assert.Equal(t, true, get("ok"))
	assert.Equal(t, false, get("gone"))
	assert.Equal(t, true, get("nohead"))
	assert.True(t, collection.IsPlaceholder(get("broken")))
	assert.True(t, collection.IsPlaceholder(get("bad")))
}

func TestProcessorFillFalse(t *testing.T) {
	srv := newServer(t, nil)
	p := newPipeline(t, Options{Client: srv.Client(), FillFalse: true})

	out, err := p.Run(context.Background(), []interface{}{
		srv.URL + "/ok",
		srv.URL + "/broken",
		srv.URL + "/gone",
	})
	require.NoError(t, err)
	assert.Equal(t, collection.Sequence{true, false, false}, out)
}

func TestProcessorSendsUserAgent(t *testing.T) {
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	p := newPipeline(t, Options{Client: srv.Client(), UserAgent: "mapflow-test"})
	_, err := p.Run(context.Background(), []interface{}{srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "mapflow-test", agent.Load())
}

func TestExisting(t *testing.T) {
	var heads int32
	srv := newServer(t, &heads)
	p := newPipeline(t, Options{Client: srv.Client()})

	out, err := Existing(context.Background(), p, []interface{}{
		srv.URL + "/gone",
		srv.URL + "/ok.git",
		srv.URL + "/broken",
		srv.URL + "/nohead/",
	})
	require.NoError(t, err)
	assert.Equal(t, collection.Sequence{srv.URL + "/ok", srv.URL + "/nohead"}, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&heads))
}

func TestExistingReturnsCheckedURLs(t *testing.T) {
	srv := newServer(t, nil)
	p := newPipeline(t, Options{Client: srv.Client()})

	out, err := Existing(context.Background(), p, map[string]interface{}{
		"a": srv.URL + "/ok/.git",
		"b": srv.URL + "/gone",
	})
	require.NoError(t, err)

	m := out.(*collection.Mapping)
	assert.Equal(t, []string{"a"}, m.Keys())
	a, _ := m.Get("a")
	assert.Equal(t, srv.URL+"/ok", a)
}

func TestExistingCanceled(t *testing.T) {
	srv := newServer(t, nil)
	p := newPipeline(t, Options{Client: srv.Client()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Existing(ctx, p, []interface{}{srv.URL + "/ok"})
	assert.ErrorIs(t, err, context.Canceled)
}
