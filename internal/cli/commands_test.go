package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinlog/internal/monitor"
	"github.com/roach88/spinlog/internal/persist"
	"github.com/roach88/spinlog/internal/record"
)

// syncBuffer is a bytes.Buffer safe for a command writing in the background.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

// cliEnv runs commands as separate contexts sharing one memory bus.
type cliEnv struct {
	bus     *persist.MemoryBus
	envFile string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	return &cliEnv{bus: persist.NewMemoryBus(), envFile: missingEnvFile(t)}
}

func (e *cliEnv) command(args ...string) (*cobra.Command, *syncBuffer, *syncBuffer) {
	cmd := newRootCommand(&RootOptions{Bus: e.bus})
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--backend", "memory", "--env-file", e.envFile}, args...))
	return cmd, stdout, stderr
}

func (e *cliEnv) run(args ...string) (string, error) {
	cmd, stdout, _ := e.command(args...)
	err := cmd.Execute()
	return stdout.String(), err
}

func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}

func TestLog_ThenShow(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("log", "request", "--data", `{"resultNumber":"42"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "logged SPIN_REQUEST spin-")
	assert.Contains(t, out, "(1 entries)")

	out, err = env.run("show", "--format", "json")
	require.NoError(t, err)

	var rows []monitor.Row
	resp := decodeResponse(t, out, &rows)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Origin)
	require.Len(t, rows, 1)
	assert.Equal(t, record.TypeSpinRequest, rows[0].Type)
	assert.Equal(t, map[string]any{"resultNumber": "42"}, rows[0].Data)
	assert.False(t, rows[0].Overlapping)
}

func TestLog_JSONReturnsRecord(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("log", "ERROR", "--data", `"socket closed"`, "--format", "json")
	require.NoError(t, err)

	var rec record.Record
	decodeResponse(t, out, &rec)
	assert.Equal(t, record.TypeError, rec.Type)
	assert.Equal(t, "socket closed", rec.Data)
	assert.True(t, strings.HasPrefix(rec.ID, "spin-"))
}

func TestLog_InvalidInput(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("log", "SPIN_TELEPORT")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, record.ErrUnknownType)

	_, err = env.run("log", "request", "--data", "{not json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShow_MarksOverlaps(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("log", "request")
	require.NoError(t, err)
	_, err = env.run("log", "request")
	require.NoError(t, err)

	out, err := env.run("show")
	require.NoError(t, err)
	assert.Contains(t, out, "TIME (ms)")
	assert.Contains(t, out, "OVERLAP")
	assert.Contains(t, out, "2 entries, 1 overlapping")

	out, err = env.run("show", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 entries, 1 overlapping")
}

func TestShow_Empty(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("show")
	require.NoError(t, err)
	assert.Equal(t, "No log entries.\n", out)

	out, err = env.run("show", "--format", "json")
	require.NoError(t, err)
	var rows []monitor.Row
	decodeResponse(t, out, &rows)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	_, err = env.run("show", "--limit=-1")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestClear_PersistsEmptyHistory(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("log", "request")
	require.NoError(t, err)
	_, err = env.run("log", "complete")
	require.NoError(t, err)

	out, err := env.run("clear", "--format", "json")
	require.NoError(t, err)
	var cleared map[string]int
	decodeResponse(t, out, &cleared)
	assert.Equal(t, map[string]int{"cleared": 2}, cleared)

	out, err = env.run("show")
	require.NoError(t, err)
	assert.Equal(t, "No log entries.\n", out)
}

func TestExport_WritesPersistedFormat(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("simulate", "42")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "spin-log.json")
	_, err = env.run("export", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := record.DecodeSequence(data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, record.TypeSpinComplete, records[0].Type)
	assert.Equal(t, record.TypeSpinRequest, records[1].Type)

	out, err := env.run("export")
	require.NoError(t, err)
	assert.Contains(t, out, "\n  {\n")
}

func TestSimulate(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("simulate", "42", "07", "--reset", "--format", "json")
	require.NoError(t, err)

	var summary SimulateResult
	decodeResponse(t, out, &summary)
	assert.Equal(t, SimulateResult{Spins: 2, Reset: true, Entries: 5}, summary)

	out, err = env.run("simulate", "--reset")
	require.NoError(t, err)
	assert.Equal(t, "simulated 0 spin(s) and a reset (6 entries)\n", out)

	_, err = env.run("simulate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStats(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("log", "request")
	require.NoError(t, err)
	_, err = env.run("simulate", "42")
	require.NoError(t, err)

	out, err := env.run("stats", "--format", "json")
	require.NoError(t, err)

	var stats Stats
	decodeResponse(t, out, &stats)
	assert.Equal(t, Stats{
		Key:         persist.DefaultKey,
		Entries:     3,
		Capacity:    500,
		Overlapping: 1,
		ByType: []TypeCount{
			{Type: "SPIN_REQUEST", Count: 2},
			{Type: "SPIN_COMPLETE", Count: 1},
		},
	}, stats)

	out, err = env.run("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "entries: 3 / 500")
	assert.Contains(t, out, "overlapping requests: 1")
}

func TestStats_CustomKeyIsSeparate(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("log", "request")
	require.NoError(t, err)

	out, err := env.run("stats", "--key", "other-log", "--format", "json")
	require.NoError(t, err)
	var stats Stats
	decodeResponse(t, out, &stats)
	assert.Equal(t, "other-log", stats.Key)
	assert.Zero(t, stats.Entries)
	assert.Equal(t, []TypeCount{}, stats.ByType)
}

func TestWatch_FollowsOtherContexts(t *testing.T) {
	env := newCLIEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd, stdout, _ := env.command("watch")
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "No log entries.")
	}, 2*time.Second, 10*time.Millisecond)

	// The watcher subscribes in the background, so keep writing until a
	// render shows up.
	require.Eventually(t, func() bool {
		logCmd, _, _ := env.command("log", "request")
		if err := logCmd.Execute(); err != nil {
			return false
		}
		return strings.Contains(stdout.String(), "SPIN_REQUEST")
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestJSONErrorEnvelope(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("log", "BOGUS", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidInput, resp.Error.Code)
	assert.Equal(t, "invalid event type", resp.Error.Message)
	assert.Contains(t, resp.Error.Details, "unknown event type")
}

func TestJSONErrorEnvelope_Backend(t *testing.T) {
	cmd := NewRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--env-file", missingEnvFile(t),
		"--backend", "sqlite",
		"--db", filepath.Join(t.TempDir(), "missing-dir", "spinlog.db"),
		"--format", "json",
		"show",
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, stdout.String(), nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeBackend, resp.Error.Code)
	assert.Equal(t, "failed to open log", resp.Error.Message)
}

func TestTextErrorsStayOffStdout(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("log", "BOGUS")
	require.Error(t, err)
	assert.Empty(t, out)
}
