package shell

import (
	"fmt"
	"strings"

	"github.com/alessio/shellescape"
)

// prologue defines the helper functions the rendered commands rely on.
// Their output markers (fold and timing lines) are consumed by downstream
// log processors and deliberately never change shape.
const prologue = `#!/bin/bash

cachestage_cmd() {
  local assert display output retry timing cmd result
  cmd="$1"
  shift
  while true; do
    case "$1" in
    --assert) assert=true ;;
    --display) display="$2" && shift ;;
    --echo) output=true ;;
    --retry) retry=true ;;
    --timing) timing=true ;;
    *) break ;;
    esac
    shift
  done
  if [[ -n "$timing" ]]; then
    cachestage_time_start
  fi
  if [[ -n "$output" ]]; then
    echo "\$ ${display:-$cmd}"
  fi
  export CACHESTAGE_CMD="${display:-$cmd}"
  if [[ -n "$retry" ]]; then
    cachestage_retry eval "$cmd"
  else
    eval "$cmd"
  fi
  result="$?"
  if [[ -n "$timing" ]]; then
    cachestage_time_finish
  fi
  if [[ -n "$assert" ]]; then
    cachestage_assert "$result"
  fi
  return "$result"
}

cachestage_assert() {
  local result="${1:-$?}"
  if [[ "$result" -ne 0 ]]; then
    echo -e "\033[31;1mThe command \"$CACHESTAGE_CMD\" exited with $result.\033[0m"
    exit "$result"
  fi
}

cachestage_retry() {
  local result=0
  local count=1
  while [[ "$count" -le 3 ]]; do
    [[ "$result" -ne 0 ]] && {
      echo -e "\033[33;1mThe command \"$*\" failed. Retrying, $count of 3.\033[0m" >&2
    }
    "$@" && { result=0 && break; } || result="$?"
    count="$((count + 1))"
    sleep 1
  done
  [[ "$count" -gt 3 ]] && {
    echo -e "\033[31;1mThe command \"$*\" failed 3 times.\033[0m" >&2
  }
  return "$result"
}

cachestage_fold() {
  local action="$1"
  local name="$2"
  echo -en "cachestage_fold:${action}:${name}\r\033[0K"
}

cachestage_nanoseconds() {
  date -u '+%s%N'
}

cachestage_time_start() {
  CACHESTAGE_TIMER_ID="$(printf %08x $((RANDOM * RANDOM)))"
  CACHESTAGE_TIMER_START_TIME="$(cachestage_nanoseconds)"
  echo -en "cachestage_time:start:$CACHESTAGE_TIMER_ID\r\033[0K"
}

cachestage_time_finish() {
  local result="$?"
  local end_time="$(cachestage_nanoseconds)"
  echo -en "cachestage_time:end:$CACHESTAGE_TIMER_ID:start=$CACHESTAGE_TIMER_START_TIME,finish=$end_time,duration=$((end_time - CACHESTAGE_TIMER_START_TIME))\r\033[0K"
  return "$result"
}
`

var ansiColours = map[string]string{
	"red":    "31;1",
	"green":  "32;1",
	"yellow": "33;1",
}

// A Script is a Writer that renders instructions to bash.
// The zero value is ready to use.
type Script struct {
	buf    strings.Builder
	indent int
}

// NewScript returns a new empty script.
func NewScript() *Script {
	return &Script{}
}

// Cmd implements the Writer interface.
func (s *Script) Cmd(cmd string, opts CmdOpts) {
	b := strings.Builder{}
	b.WriteString("cachestage_cmd ")
	b.WriteString(shellescape.Quote(cmd))
	if opts.Assert {
		b.WriteString(" --assert")
	}
	if opts.Echo {
		b.WriteString(" --echo")
	}
	if opts.Message != "" {
		b.WriteString(" --display ")
		b.WriteString(shellescape.Quote(opts.Message))
	}
	if opts.Retry {
		b.WriteString(" --retry")
	}
	if opts.Timing {
		b.WriteString(" --timing")
	}
	s.writef("%s", b.String())
}

// Raw implements the Writer interface.
func (s *Script) Raw(line string) {
	s.writef("%s", line)
}

// If implements the Writer interface.
func (s *Script) If(condition string, body func()) {
	s.writef("if [[ %s ]]; then", condition)
	s.indent++
	body()
	s.indent--
	s.writef("fi")
}

// Fold implements the Writer interface.
func (s *Script) Fold(label string, body func()) {
	s.writef("cachestage_fold start %s", label)
	body()
	s.writef("cachestage_fold end %s", label)
}

// Echo implements the Writer interface.
func (s *Script) Echo(msg string, opts EchoOpts) {
	if code, present := ansiColours[opts.ANSI]; present {
		s.writef(`echo -e "\033[%sm%s\033[0m"`, code, msg)
		return
	}
	s.writef("echo %s", shellescape.Quote(msg))
}

// Export implements the Writer interface. Values referencing shell variables
// are passed through unquoted so they expand at runtime; anything else is
// quoted.
func (s *Script) Export(name, value string) {
	if !strings.ContainsRune(value, '$') {
		value = shellescape.Quote(value)
	}
	s.Cmd(fmt.Sprintf("export %s=%s", name, value), CmdOpts{})
}

// Mkdir implements the Writer interface.
func (s *Script) Mkdir(path string, opts MkdirOpts) {
	cmd := "mkdir "
	if opts.Recursive {
		cmd = "mkdir -p "
	}
	s.Cmd(cmd+path, CmdOpts{Echo: opts.Echo})
}

// Chmod implements the Writer interface.
func (s *Script) Chmod(mode, path string, opts ChmodOpts) {
	s.Cmd(fmt.Sprintf("chmod %s %s", mode, path), CmdOpts{Assert: opts.Assert, Echo: opts.Echo})
}

// Body returns the rendered instructions without the prologue.
func (s *Script) Body() string {
	return s.buf.String()
}

// String returns the complete script, or the empty string if nothing was emitted.
func (s *Script) String() string {
	if s.buf.Len() == 0 {
		return ""
	}
	return prologue + "\n" + s.buf.String()
}

func (s *Script) writef(format string, args ...interface{}) {
	for i := 0; i < s.indent; i++ {
		s.buf.WriteString("  ")
	}
	fmt.Fprintf(&s.buf, format, args...)
	s.buf.WriteByte('\n')
}
