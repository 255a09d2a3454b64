package shell

// A Recorder is a Writer that retains instructions as structured values
// instead of rendering them. Conditional and fold bodies are framed by
// paired in/out instructions so the block structure survives flattening.
type Recorder struct {
	Instructions []Instruction
}

// NewRecorder returns a new empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Cmd implements the Writer interface.
func (r *Recorder) Cmd(cmd string, opts CmdOpts) {
	r.add(Instruction{Kind: KindCmd, Args: []string{cmd}, Opts: opts})
}

// Raw implements the Writer interface.
func (r *Recorder) Raw(line string) {
	r.add(Instruction{Kind: KindRaw, Args: []string{line}})
}

// If implements the Writer interface.
func (r *Recorder) If(condition string, body func()) {
	r.add(Instruction{Kind: KindIfIn, Args: []string{condition}})
	body()
	r.add(Instruction{Kind: KindIfOut})
}

// Fold implements the Writer interface.
func (r *Recorder) Fold(label string, body func()) {
	r.add(Instruction{Kind: KindFoldIn, Args: []string{label}})
	body()
	r.add(Instruction{Kind: KindFoldOut, Args: []string{label}})
}

// Echo implements the Writer interface.
func (r *Recorder) Echo(msg string, opts EchoOpts) {
	r.add(Instruction{Kind: KindEcho, Args: []string{msg}, Opts: opts})
}

// Export implements the Writer interface.
func (r *Recorder) Export(name, value string) {
	r.add(Instruction{Kind: KindExport, Args: []string{name, value}})
}

// Mkdir implements the Writer interface.
func (r *Recorder) Mkdir(path string, opts MkdirOpts) {
	r.add(Instruction{Kind: KindMkdir, Args: []string{path}, Opts: opts})
}

// Chmod implements the Writer interface.
func (r *Recorder) Chmod(mode, path string, opts ChmodOpts) {
	r.add(Instruction{Kind: KindChmod, Args: []string{mode, path}, Opts: opts})
}

// Commands returns the text of every recorded cmd instruction, in order.
func (r *Recorder) Commands() []string {
	cmds := []string{}
	for _, instruction := range r.Instructions {
		if instruction.Kind == KindCmd {
			cmds = append(cmds, instruction.Args[0])
		}
	}
	return cmds
}

// OfKind returns all recorded instructions of the given kind, in order.
func (r *Recorder) OfKind(kind Kind) []Instruction {
	ret := []Instruction{}
	for _, instruction := range r.Instructions {
		if instruction.Kind == kind {
			ret = append(ret, instruction)
		}
	}
	return ret
}

func (r *Recorder) add(instruction Instruction) {
	r.Instructions = append(r.Instructions, instruction)
}
