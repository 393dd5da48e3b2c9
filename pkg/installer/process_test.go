package installer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	runner := ExecRunner{}

	t.Run("captures output", func(t *testing.T) {
		result, err := runner.Run(context.Background(), time.Minute, "sh", "-c", "echo hello; echo oops 1>&2")
		require.NoError(t, err)
		assert.Equal(t, 0, result.ExitCode)
		assert.Equal(t, "hello\n", result.Stdout)
		assert.Equal(t, "oops\n", result.Stderr)
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		result, err := runner.Run(context.Background(), time.Minute, "sh", "-c", "exit 7")
		require.NoError(t, err)
		assert.Equal(t, 7, result.ExitCode)
	})

	t.Run("timeout kills the process", func(t *testing.T) {
		result, err := runner.Run(context.Background(), 50*time.Millisecond, "sleep", "5")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, -1, result.ExitCode)
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := runner.Run(context.Background(), time.Minute, "definitely-not-a-real-binary-xyz")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start/execute process")
	})

	t.Run("env is appended", func(t *testing.T) {
		r := ExecRunner{Env: []string{"PWAUTO_TEST_VAR=42"}}
		result, err := r.Run(context.Background(), time.Minute, "sh", "-c", "echo $PWAUTO_TEST_VAR")
		require.NoError(t, err)
		assert.Equal(t, "42\n", result.Stdout)
	})
}

func TestMakeExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no mode bits")
	}
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o600))

	require.NoError(t, MakeExecutable(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100)

	assert.Error(t, MakeExecutable(filepath.Join(t.TempDir(), "missing")))
}

func TestHTTPDownloader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("#!/bin/sh\necho ok\n"))
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "nested", "install.sh")

	require.NoError(t, HTTPDownloader{}.Download(context.Background(), server.URL+"/install.sh", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho ok\n", string(data))

	err = HTTPDownloader{Client: server.Client()}.Download(context.Background(), server.URL+"/missing", filepath.Join(dir, "other.sh"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
	_, statErr := os.Stat(filepath.Join(dir, "other.sh"))
	assert.True(t, os.IsNotExist(statErr))
}
