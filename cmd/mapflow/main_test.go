package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *httptest.Server {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("MAPFLOW_LOGGING_LEVEL", "disabled")

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(ctx, args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestRunMapping(t *testing.T) {
	srv := setup(t)
	input := `{"a": "` + srv.URL + `/ok/", "b": "` + srv.URL + `/missing", "c": "` + srv.URL + `/broken"}`

	out, err := runCLI(t, context.Background(), input, "--workers", "2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": true, "b": false, "c": null}`, out)
}

func TestRunFillFalse(t *testing.T) {
	srv := setup(t)
	input := `["` + srv.URL + `/broken", "` + srv.URL + `/ok"]`

	out, err := runCLI(t, context.Background(), input, "--fill-false")
	require.NoError(t, err)
	assert.JSONEq(t, `[false, true]`, out)
}

func TestRunKeepExisting(t *testing.T) {
	srv := setup(t)
	input := `["` + srv.URL + `/missing", "` + srv.URL + `/ok.git", "` + srv.URL + `/broken"]`

	out, err := runCLI(t, context.Background(), input, "--keep-existing", "--rate", "100", "--burst", "2")
	require.NoError(t, err)
	assert.JSONEq(t, `["`+srv.URL+`/ok"]`, out)
}

func TestRunRateWithoutBurst(t *testing.T) {
	srv := setup(t)

	out, err := runCLI(t, context.Background(), `["`+srv.URL+`/ok", "`+srv.URL+`/ok"]`, "--rate", "50")
	require.NoError(t, err)
	assert.JSONEq(t, `[true, true]`, out)
}

func TestRunFiles(t *testing.T) {
	srv := setup(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "urls.json")
	outPath := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"x": "`+srv.URL+`/ok"}`), 0o644))

	stdout, err := runCLI(t, context.Background(), "", "-i", in, "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x": true}`, string(data))
}

func TestRunConfigFile(t *testing.T) {
	srv := setup(t)
	require.NoError(t, os.WriteFile("mapflow.yml", []byte("pool:\n  worker_count: 1\ncache:\n  backend: memory\n"), 0o644))

	out, err := runCLI(t, context.Background(), `["`+srv.URL+`/ok", "`+srv.URL+`/ok"]`)
	require.NoError(t, err)
	assert.JSONEq(t, `[true, true]`, out)
}

func TestRunRedisCache(t *testing.T) {
	srv := setup(t)
	mini := miniredis.RunT(t)

	input := `["` + srv.URL + `/ok", "` + srv.URL + `/missing"]`
	out, err := runCLI(t, context.Background(), input, "--redis", mini.Addr())
	require.NoError(t, err)
	assert.JSONEq(t, `[true, false]`, out)
	assert.Len(t, mini.Keys(), 2)

	srv.Close()
	out, err = runCLI(t, context.Background(), input, "--redis", mini.Addr())
	require.NoError(t, err)
	assert.JSONEq(t, `[true, false]`, out, "second run is served from redis")
}

func TestRunWithMetricsEndpoint(t *testing.T) {
	srv := setup(t)

	out, err := runCLI(t, context.Background(), `["`+srv.URL+`/ok"]`, "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.JSONEq(t, `[true]`, out)
}

func TestRunSchedule(t *testing.T) {
	srv := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	out, err := runCLI(t, ctx, `["`+srv.URL+`/ok"]`, "--schedule", "@every 1s")
	require.NoError(t, err)
	assert.Contains(t, out, "true")
}

func TestRunErrors(t *testing.T) {
	setup(t)

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"unknown flag", "[]", []string{"--nope"}},
		{"scalar input", `"just a string"`, nil},
		{"malformed input", `[`, nil},
		{"missing input file", "", []string{"-i", "/nonexistent.json"}},
		{"bad schedule", "[]", []string{"--schedule", "sometimes"}},
		{"negative workers", "[]", []string{"--workers", "-3"}},
		{"negative rate", "[]", []string{"--rate", "-5", "--burst", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, context.Background(), tt.stdin, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestRunHelp(t *testing.T) {
	setup(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--help"}, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "--fill-false")
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
}

func (f *failingCloser) Close() error { return f.closeErr }

func TestEncodeAndCloseReportsCloseError(t *testing.T) {
	flushErr := errors.New("flush failed")

	wc := &failingCloser{closeErr: flushErr}
	err := encodeAndClose(wc, []interface{}{true})
	assert.ErrorIs(t, err, flushErr)
	assert.JSONEq(t, `[true]`, wc.String())

	wc = &failingCloser{}
	require.NoError(t, encodeAndClose(wc, []interface{}{true}))
}

func TestRunUnwritableOutput(t *testing.T) {
	srv := setup(t)

	_, err := runCLI(t, context.Background(), `["`+srv.URL+`/ok"]`, "-o", t.TempDir())
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
