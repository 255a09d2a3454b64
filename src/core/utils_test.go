package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandHomePath(t *testing.T) {
	HOME := os.Getenv("HOME")
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"~", HOME},
		{"~username", "~username"},
		{"~/.stasher", HOME + "/.stasher"},
		{"~:/bin/~:/usr/local", HOME + ":/bin/~:/usr/local"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExpandHomePath(c.in))
	}
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, PathExists(dir))
	assert.False(t, PathExists(filepath.Join(dir, "nope")))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "file")
	assert.False(t, FileExists(filename))
	assert.NoError(t, os.WriteFile(filename, []byte("contents"), 0644))
	assert.True(t, FileExists(filename))
	assert.False(t, FileExists(dir))
}
