package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	api := newControllerStub(t)

	_, stderr, err := runDG(t, binaryPath, home, api.URL, "auth", "set-token", "--value", "tok-e2e")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runDG(t, binaryPath, home, api.URL, "drafts", "list", "--json")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "[]\n", stdout)

	stdout, stderr, err = runDG(t, binaryPath, home, api.URL, "session", "show")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "No session recorded.")
}

func TestMonitorStopsOnInterrupt(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	var saves atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/drafts":
			saves.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "draftId": "a0X1", "timestamp": time.Now().UTC()})
		default:
			http.Error(w, `{"message":"no draft"}`, http.StatusNotFound)
		}
	}))
	t.Cleanup(api.Close)

	cmd := dgCommand(binaryPath, home, api.URL, "monitor", "--record", "500A1", "--stdin")
	cmd.Env = append(cmd.Env, "DG_MONITOR_AUTOSAVE_INTERVAL=1s")
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard

	require.NoError(t, cmd.Start())
	_, err = io.WriteString(stdin, `{"field":"Subject","value":"Printer on fire"}`+"\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return saves.Load() > 0 }, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, cmd.Process.Signal(os.Interrupt))
	require.NoError(t, cmd.Wait())
	assert.Contains(t, stdout.String(), `"event":"autosavesuccess"`)

	state, err := os.ReadFile(filepath.Join(home, ".draftguard", "state.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(state), "sessionStart")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "dg-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/dg")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build dg binary: %s", string(output))
	return binaryPath
}

func dgCommand(binaryPath, home, apiURL string, args ...string) *exec.Cmd {
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"DG_CONFIG=",
		"DG_API_BASE_URL="+apiURL,
		"DG_SECRETS_DIR="+filepath.Join(home, "secrets"),
		"PASSWORD_STORE_DIR="+filepath.Join(home, "password-store"),
	)
	return cmd
}

func runDG(t *testing.T, binaryPath, home, apiURL string, args ...string) (string, string, error) {
	t.Helper()

	cmd := dgCommand(binaryPath, home, apiURL, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func newControllerStub(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-e2e" {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "drafts": []any{}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
