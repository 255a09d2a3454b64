// Package shell models the stream of shell instructions that cache stages compile to.
// Stages emit instructions through a Writer; the Script writer renders them to bash
// while the Recorder retains them as structured values for tests and inspection.
// Nothing in this package executes anything.
package shell

// A Writer receives shell instructions in emission order.
type Writer interface {
	// Cmd emits a single command.
	Cmd(cmd string, opts CmdOpts)
	// Raw emits a line verbatim.
	Raw(line string)
	// If emits a conditional block guarding the instructions emitted by body.
	If(condition string, body func())
	// Fold groups the instructions emitted by body under a named, collapsible section.
	Fold(label string, body func())
	// Echo emits a line of output, optionally coloured.
	Echo(msg string, opts EchoOpts)
	// Export emits an environment variable export.
	Export(name, value string)
	// Mkdir emits a directory creation.
	Mkdir(path string, opts MkdirOpts)
	// Chmod emits a file mode change.
	Chmod(mode, path string, opts ChmodOpts)
}

// CmdOpts control how a single command behaves when run.
// The zero value emits the command plainly: not echoed, not retried,
// not timed, and with failures ignored.
type CmdOpts struct {
	Assert  bool   // terminate the whole script if the command fails
	Echo    bool   // display the command before running it
	Retry   bool   // retry a few times before giving up
	Timing  bool   // bracket the command with timing markers
	Message string // displayed in place of the command itself
}

// EchoOpts control the colour of an echoed line. Known colours are
// "red", "green" and "yellow"; anything else is emitted uncoloured.
type EchoOpts struct {
	ANSI string
}

// MkdirOpts control directory creation.
type MkdirOpts struct {
	Recursive bool
	Echo      bool
}

// ChmodOpts control file mode changes.
type ChmodOpts struct {
	Assert bool
	Echo   bool
}

// A Kind identifies one variety of recorded instruction.
type Kind string

// The instruction kinds a Recorder retains. Conditional and fold blocks are
// framed by paired in/out markers around their bodies' instructions.
const (
	KindCmd     Kind = "cmd"
	KindRaw     Kind = "raw"
	KindIfIn    Kind = "ifin"
	KindIfOut   Kind = "ifout"
	KindFoldIn  Kind = "foldin"
	KindFoldOut Kind = "foldout"
	KindEcho    Kind = "echo"
	KindExport  Kind = "export"
	KindMkdir   Kind = "mkdir"
	KindChmod   Kind = "chmod"
)

// An Instruction is one recorded shell operation.
type Instruction struct {
	Kind Kind
	Args []string
	Opts interface{}
}
