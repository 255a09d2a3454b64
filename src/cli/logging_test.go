package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/op/go-logging.v1"
)

var _ retryablehttp.LeveledLogger = &HTTPLogWrapper{}

func TestParseVerbosity(t *testing.T) {
	opts := struct {
		Verbosity Verbosity `short:"v" default:"warning"`
	}{}
	_, _, err := ParseFlags("test", &opts, []string{"test", "-v", "debug"})
	assert.NoError(t, err)
	assert.EqualValues(t, logging.DEBUG, opts.Verbosity)
	_, _, err = ParseFlags("test", &opts, []string{"test", "-v", "notice"})
	assert.NoError(t, err)
	assert.EqualValues(t, logging.NOTICE, opts.Verbosity)
	_, _, err = ParseFlags("test", &opts, []string{"test"})
	assert.NoError(t, err)
	assert.EqualValues(t, logging.WARNING, opts.Verbosity)
}

func TestInitFileLogging(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "cachestage.log")
	InitFileLogging(logFile, MaxVerbosity)
	log.Notice("hello file")
	_, err := os.Stat(logFile)
	require.NoError(t, err)
	// Reset to the plain stderr backend so later tests aren't affected.
	InitLogging(MinVerbosity)
}

func TestIsATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "notatty")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsATerminal(f))
}
