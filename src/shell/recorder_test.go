package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderFramesBlocks(t *testing.T) {
	r := NewRecorder()
	r.Fold("cache.1", func() {
		r.If("-f bin/stasher", func() {
			r.Cmd("bin/stasher fetch", CmdOpts{Timing: true})
		})
	})
	assert.Equal(t, []Instruction{
		{Kind: KindFoldIn, Args: []string{"cache.1"}},
		{Kind: KindIfIn, Args: []string{"-f bin/stasher"}},
		{Kind: KindCmd, Args: []string{"bin/stasher fetch"}, Opts: CmdOpts{Timing: true}},
		{Kind: KindIfOut},
		{Kind: KindFoldOut, Args: []string{"cache.1"}},
	}, r.Instructions)
}

func TestRecorderCommands(t *testing.T) {
	r := NewRecorder()
	r.Cmd("one", CmdOpts{})
	r.Echo("not a command", EchoOpts{})
	r.Cmd("two", CmdOpts{Retry: true})
	assert.Equal(t, []string{"one", "two"}, r.Commands())
}

func TestRecorderOfKind(t *testing.T) {
	r := NewRecorder()
	r.Export("STASHER_DIR", "/tmp/.stasher")
	r.Mkdir("/tmp/.stasher/bin", MkdirOpts{Recursive: true})
	r.Chmod("+x", "/tmp/.stasher/bin/stasher", ChmodOpts{})
	echoes := r.OfKind(KindEcho)
	assert.Empty(t, echoes)
	exports := r.OfKind(KindExport)
	assert.Len(t, exports, 1)
	assert.Equal(t, []string{"STASHER_DIR", "/tmp/.stasher"}, exports[0].Args)
}
