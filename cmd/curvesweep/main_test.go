package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const input = `{
  "eur": {"labels": ["1Y", "2Y", "5Y"], "zcs": [0.01, 0.015, 0.02], "intp": "linear"},
  "usd": {"days": [365, 730], "dfs": ["0.99", 0.97], "intp": "linear_df", "longEndFlat": true},
  "bad": {"times": [1, 2], "zcs": [0.01], "intp": "linear"},
  "odd": {"times": [1, 2], "zcs": [0.01, 0.02], "intp": "spline"}
}`

type output map[string]struct {
	Intp      string `json:"intp"`
	Reference struct {
		Times []float64 `json:"times"`
		Dfs   []float64 `json:"dfs"`
		Zcs   []float64 `json:"zcs"`
	} `json:"reference"`
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "curves.json")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o600))
	return path
}

func TestRunFileToStdout(t *testing.T) {
	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-input", writeInput(t), "-log-level", "error"}, &stdout, io.Discard)
	require.NoError(t, err)

	var out output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out, 2)

	eur := out["eur"]
	assert.Equal(t, "linear", eur.Intp)
	require.Len(t, eur.Reference.Times, 110)
	assert.Equal(t, 0.1, eur.Reference.Times[0])
	assert.Equal(t, 11.0, eur.Reference.Times[109])
	assert.Len(t, out["usd"].Reference.Dfs, 110)
	assert.NotContains(t, out, "bad")
	assert.NotContains(t, out, "odd")
}

func TestRunCustomGridToFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "ref.json")
	err := run(context.Background(), []string{
		"-input", writeInput(t), "-output", dst,
		"-from", "1", "-to", "2", "-step", "0.5", "-workers", "2", "-log-level", "error",
	}, io.Discard, io.Discard)
	require.NoError(t, err)

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	var out output
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, []float64{1, 1.5, 2}, out["eur"].Reference.Times)
	assert.InDelta(t, 0.0125, out["eur"].Reference.Zcs[1], 1e-12)
}

func TestRunFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(input))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-input", srv.URL, "-log-level", "error"}, &stdout, io.Discard))

	var out output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Len(t, out, 2)
}

func TestRunRejectsBadFlags(t *testing.T) {
	assert.Error(t, run(context.Background(), nil, io.Discard, io.Discard))
	assert.Error(t, run(context.Background(), []string{"-input", "x.json", "-step", "0"}, io.Discard, io.Discard))
	assert.Error(t, run(context.Background(), []string{"-input", filepath.Join(t.TempDir(), "none.json")}, io.Discard, io.Discard))
}
