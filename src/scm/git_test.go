package scm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemote(t *testing.T) {
	for remote, expected := range map[string]string{
		"git@github.com:acme/widgets.git":        "acme/widgets",
		"git@github.com:acme/widgets":            "acme/widgets",
		"https://github.com/acme/widgets.git":    "acme/widgets",
		"https://github.com/acme/widgets":        "acme/widgets",
		"https://user@github.com/acme/widgets":   "acme/widgets",
		"ssh://git@github.com/acme/widgets.git":  "acme/widgets",
		"ssh://git@github.com:2222/acme/widgets": "acme/widgets",
		"git@gitlab.com:acme/group/widgets.git":  "acme/group/widgets",
		"https://github.com/acme/widgets.git\n":  "acme/widgets",
		"/home/repos/widgets.git":                "",
		"":                                       "",
	} {
		assert.Equal(t, expected, parseRemote(remote), "remote %q", remote)
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, New(dir))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), os.ModeDir|0755))
	assert.NotNil(t, New(dir))
}

func TestNewFallback(t *testing.T) {
	s := NewFallback(t.TempDir())
	require.NotNil(t, s)
	assert.Equal(t, "master", s.CurrentBranch())
	assert.Equal(t, "", s.Repository())
}
