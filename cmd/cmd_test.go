package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWikiServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("meta") == "siteinfo":
			fmt.Fprint(w, `{"query":{"general":{"sitename":"ウィキペディア"}}}`)
		case q.Get("cmtype") == "subcat":
			fmt.Fprint(w, `{"query":{"categorymembers":[]}}`)
		case q.Get("cmtype") == "page":
			fmt.Fprint(w, `{"query":{"categorymembers":[{"pageid":1,"ns":0,"title":"元寇"}]}}`)
		case q.Get("prop") == "extracts":
			fmt.Fprint(w, `{"query":{"pages":{"1":{"pageid":1,"ns":0,"title":"元寇","extract":"蒙古襲来とも呼ばれる。"}}}}`)
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`log:
  level: warn
wiki:
  api_url: %s
  timeout: 5s
selector:
  seed_categories: ["鎌倉時代"]
  seed: 42
fetcher:
  backoff: 0s
database:
  driver: sqlite
  dsn: %s
`, apiURL, filepath.Join(dir, "histreader.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		fetchJSON = false
		fetchAsync = false
		_ = historyCmd.PersistentFlags().Set("limit", "20")
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestFetchCommand(t *testing.T) {
	cfgPath := writeConfig(t, newWikiServer(t).URL)

	stdout, stderr, err := executeCommand(t, "--config", cfgPath, "fetch")

	require.NoError(t, err)
	assert.Contains(t, stdout, "【主題: 元寇】\n(カテゴリ: 鎌倉時代)\n\n蒙古襲来とも呼ばれる。")
	assert.Contains(t, stdout, "Characters: ")
	assert.Contains(t, stderr, "[complete]")

	stdout, _, err = executeCommand(t, "--config", cfgPath, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "元寇")
}

func TestHistoryCommand_Limit(t *testing.T) {
	cfgPath := writeConfig(t, newWikiServer(t).URL)
	for i := 0; i < 3; i++ {
		_, _, err := executeCommand(t, "--config", cfgPath, "fetch")
		require.NoError(t, err)
	}

	stdout, _, err := executeCommand(t, "--config", cfgPath, "history", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "元寇"))

	stdout, _, err = executeCommand(t, "--config", cfgPath, "history", "list", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, "元寇"))

	_, _, err = executeCommand(t, "--config", cfgPath, "history", "list", "--limit=-1")
	assert.Error(t, err)
}

func TestFetchCommand_AsyncWithoutRedis(t *testing.T) {
	cfgPath := writeConfig(t, newWikiServer(t).URL)

	_, _, err := executeCommand(t, "--config", cfgPath, "fetch", "--async")

	assert.ErrorContains(t, err, "redis.address")
}

func TestPrefsCommands(t *testing.T) {
	cfgPath := writeConfig(t, newWikiServer(t).URL)

	stdout, _, err := executeCommand(t, "--config", cfgPath, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fontSize:   14")
	assert.Contains(t, stdout, "fontFamily: sans-serif")

	stdout, _, err = executeCommand(t, "--config", cfgPath, "prefs", "set", "fontSize", "100")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fontSize:   14")

	_, _, err = executeCommand(t, "--config", cfgPath, "prefs", "set", "fontSize", "18")
	require.NoError(t, err)
	stdout, _, err = executeCommand(t, "--config", cfgPath, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fontSize:   18")
}

func TestDoctorCommand(t *testing.T) {
	cfgPath := writeConfig(t, newWikiServer(t).URL)

	stdout, _, err := executeCommand(t, "--config", cfgPath, "doctor")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Wikipedia API reachable.")
	assert.Contains(t, stdout, "Database connection successful.")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetcher:\n  max_retries: -1\n"), 0o644))

	_, _, err := executeCommand(t, "--config", path, "topic")

	assert.Error(t, err)
}
