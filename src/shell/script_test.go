package shell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyScriptRendersNothing(t *testing.T) {
	s := NewScript()
	assert.Equal(t, "", s.String())
}

func TestPrologueEmittedOnce(t *testing.T) {
	s := NewScript()
	s.Cmd("true", CmdOpts{})
	assert.Equal(t, 1, strings.Count(s.String(), "#!/bin/bash"))
	assert.Equal(t, 1, strings.Count(s.String(), "cachestage_retry() {"))
}

func TestCmdPlain(t *testing.T) {
	s := NewScript()
	s.Cmd("true", CmdOpts{})
	assert.Equal(t, "cachestage_cmd true\n", s.Body())
}

func TestCmdQuotesSpaces(t *testing.T) {
	s := NewScript()
	s.Cmd("echo hello world", CmdOpts{})
	assert.Equal(t, "cachestage_cmd 'echo hello world'\n", s.Body())
}

func TestCmdFlags(t *testing.T) {
	s := NewScript()
	s.Cmd("true", CmdOpts{Assert: true, Echo: true, Retry: true, Timing: true})
	assert.Equal(t, "cachestage_cmd true --assert --echo --retry --timing\n", s.Body())
}

func TestCmdMessage(t *testing.T) {
	s := NewScript()
	s.Cmd("curl -sf https://example.com", CmdOpts{Echo: true, Message: "Installing caching utilities"})
	assert.Contains(t, s.Body(), "--display 'Installing caching utilities'")
}

func TestIfIndentsBody(t *testing.T) {
	s := NewScript()
	s.If("$? -ne 0", func() {
		s.Cmd("true", CmdOpts{})
	})
	assert.Equal(t, "if [[ $? -ne 0 ]]; then\n  cachestage_cmd true\nfi\n", s.Body())
}

func TestFoldMarkersBalance(t *testing.T) {
	s := NewScript()
	s.Fold("cache.1", func() {
		s.Echo("Setting up build cache", EchoOpts{})
	})
	assert.Equal(t, "cachestage_fold start cache.1\necho 'Setting up build cache'\ncachestage_fold end cache.1\n", s.Body())
}

func TestEchoANSI(t *testing.T) {
	s := NewScript()
	s.Echo("something went wrong", EchoOpts{ANSI: "red"})
	assert.Equal(t, "echo -e \"\\033[31;1msomething went wrong\\033[0m\"\n", s.Body())
	s = NewScript()
	s.Echo("careful now", EchoOpts{ANSI: "yellow"})
	assert.Contains(t, s.Body(), "33;1m")
}

func TestEchoUnknownColourIsPlain(t *testing.T) {
	s := NewScript()
	s.Echo("hello", EchoOpts{ANSI: "mauve"})
	assert.Equal(t, "echo hello\n", s.Body())
}

func TestExportQuotesPlainValues(t *testing.T) {
	s := NewScript()
	s.Export("CACHE_NAME", "my cache")
	assert.Equal(t, "cachestage_cmd 'export CACHE_NAME='\"'\"'my cache'\"'\"''\n", s.Body())
}

func TestExportLeavesVariableReferencesUnquoted(t *testing.T) {
	s := NewScript()
	s.Export("STASHER_DIR", "${CACHESTAGE_HOME:-$HOME}/.stasher")
	assert.Equal(t, "cachestage_cmd 'export STASHER_DIR=${CACHESTAGE_HOME:-$HOME}/.stasher'\n", s.Body())
}

func TestMkdir(t *testing.T) {
	s := NewScript()
	s.Mkdir("$STASHER_DIR/bin", MkdirOpts{Recursive: true})
	assert.Equal(t, "cachestage_cmd 'mkdir -p $STASHER_DIR/bin'\n", s.Body())
	s = NewScript()
	s.Mkdir("bin", MkdirOpts{})
	assert.Equal(t, "cachestage_cmd 'mkdir bin'\n", s.Body())
}

func TestChmod(t *testing.T) {
	s := NewScript()
	s.Chmod("+x", "$STASHER_DIR/bin/stasher", ChmodOpts{})
	assert.Equal(t, "cachestage_cmd 'chmod +x $STASHER_DIR/bin/stasher'\n", s.Body())
}

func TestRaw(t *testing.T) {
	s := NewScript()
	s.Raw("set -u")
	assert.Equal(t, "set -u\n", s.Body())
}
