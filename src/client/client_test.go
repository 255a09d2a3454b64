package client

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachestage/cachestage/src/core"
)

func TestBranch(t *testing.T) {
	config := core.DefaultConfiguration()
	assert.Equal(t, "production", Branch(config))
	config.Client.Edge = true
	assert.Equal(t, "master", Branch(config))
	config.Client.Branch = "my-branch"
	assert.Equal(t, "my-branch", Branch(config))
}

func TestURL(t *testing.T) {
	config := core.DefaultConfiguration()
	assert.Equal(t, "https://raw.githubusercontent.com/cachestage/stasher/production/bin/stasher", URL(config, "production"))
	config.Client.Source = "https://internal.example.com/stasher/%s"
	assert.Equal(t, "https://internal.example.com/stasher/edge", URL(config, "edge"))
	config.Client.Source = "https://internal.example.com/stasher"
	assert.Equal(t, "https://internal.example.com/stasher", URL(config, "edge"))
}

func TestDownload(t *testing.T) {
	const script = "#!/bin/bash\necho stasher\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stasher/production/bin/stasher", r.URL.Path)
		w.Write([]byte(script))
	}))
	defer server.Close()
	config := core.DefaultConfiguration()
	config.Client.Source = server.URL + "/stasher/%s/bin/stasher"

	dir := t.TempDir()
	target, err := Download(config, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bin", "stasher"), target)
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, script, string(b))
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.EqualValues(t, 0755, info.Mode().Perm())
}

func TestDownloadNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	config := core.DefaultConfiguration()
	config.Client.Source = server.URL + "/stasher/%s"

	_, err := Download(config, t.TempDir())
	assert.Error(t, err)
}

func TestInterruptHandlersRunOnce(t *testing.T) {
	runs := 0
	onInterrupt(func() { runs++ })
	runInterruptHandlers()
	assert.Equal(t, 1, runs)
	// Handlers are forgotten once run; a later pass doesn't repeat them.
	runInterruptHandlers()
	assert.Equal(t, 1, runs)
}

func TestDownloadCleanupSkipsInstalledClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#!/bin/bash\n"))
	}))
	defer server.Close()
	config := core.DefaultConfiguration()
	config.Client.Source = server.URL + "/stasher/%s"

	dir := t.TempDir()
	target, err := Download(config, dir)
	require.NoError(t, err)
	// A completed download survives the interrupt cleanup.
	runInterruptHandlers()
	assert.True(t, core.FileExists(target))
}
