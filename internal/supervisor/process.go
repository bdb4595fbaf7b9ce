package supervisor

import (
	"os/exec"
	"sync"
	"time"
)

// Process is one supervised external command. stdout and stderr are merged
// into a single stream pumped line-by-line to the interleaved console
// output by a dedicated goroutine.
type Process struct {
	Label string

	cmd   *exec.Cmd
	grace time.Duration

	// closed when cmd.Wait has returned
	waitDone chan struct{}
	// closed when the output pump has drained the merged stream
	pumpDone chan struct{}

	mu       sync.Mutex
	exitCode int
	exited   bool
}

// ExitCode returns the exit code once the process has exited.
func (p *Process) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.exited
}

// Running reports whether the process is still alive.
func (p *Process) Running() bool {
	_, exited := p.ExitCode()
	return !exited
}

// Pid returns the OS process id, or 0 if the process never started.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *Process) recordExit(code int) {
	p.mu.Lock()
	p.exitCode = code
	p.exited = true
	p.mu.Unlock()
}
