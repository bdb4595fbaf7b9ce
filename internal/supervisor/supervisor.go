package supervisor

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"caplive/internal/telemetry"
	"caplive/internal/ui"
)

// Supervisor spawns external commands, pumps their merged output to the
// interleaved console, and tears them down in reverse spawn order. A child
// exiting on its own never ends the session; teardown runs only from the
// session's single shutdown path.
type Supervisor struct {
	logger *slog.Logger
	out    io.Writer

	mu    sync.Mutex
	procs []*Process
}

// New returns a supervisor writing interleaved output to out
// (os.Stdout when nil).
func New(logger *slog.Logger, out io.Writer) *Supervisor {
	if out == nil {
		out = os.Stdout
	}
	return &Supervisor{logger: logger, out: out}
}

// Spawn starts argv in dir with stdout and stderr merged, attaches the
// output pump, and registers the process for teardown. filter, when
// non-nil, suppresses lines it returns false for. grace bounds how long
// Terminate waits before force-killing.
func (s *Supervisor) Spawn(label string, argv []string, dir string, filter func(string) bool, grace time.Duration) (*Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("spawn %s: empty command", label)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	p := &Process{
		Label:    label,
		cmd:      cmd,
		grace:    grace,
		waitDone: make(chan struct{}),
		pumpDone: make(chan struct{}),
	}

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("spawn %s: %w", label, err)
	}

	go func() {
		err := cmd.Wait()
		code := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else if err != nil {
			code = -1
		}
		p.recordExit(code)
		// EOF for the pump
		pw.Close()
		close(p.waitDone)
	}()

	go s.pump(p, pr, filter)

	s.mu.Lock()
	s.procs = append(s.procs, p)
	s.mu.Unlock()

	s.logger.Debug("spawned process", "label", label, "pid", p.Pid(), "cmd", argv)
	return p, nil
}

func (s *Supervisor) pump(p *Process, r io.Reader, filter func(string) bool) {
	defer close(p.pumpDone)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	prefix := ui.Prefix(p.Label)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if filter != nil && !filter(line) {
			continue
		}
		fmt.Fprintln(s.out, prefix+line)
		telemetry.TrackLogLine(p.Label)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(s.out, prefix+"Error reading stream: "+err.Error())
	}
}

// Terminate requests graceful termination and force-kills after the
// process's grace period. It also waits out the output pump so no pump
// goroutine outlives its process by more than the grace window.
func (s *Supervisor) Terminate(p *Process) {
	if p == nil {
		return
	}
	if p.Running() {
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			// SIGTERM is not deliverable on every platform; fall
			// through to the hard kill after the grace period.
			s.logger.Debug("signal failed", "label", p.Label, "error", err)
		}
		select {
		case <-p.waitDone:
		case <-time.After(p.grace):
			s.logger.Warn("process did not exit in time; killing", "label", p.Label)
			_ = p.cmd.Process.Kill()
			select {
			case <-p.waitDone:
			case <-time.After(2 * time.Second):
			}
		}
	}
	select {
	case <-p.pumpDone:
	case <-time.After(p.grace):
	}
}

// Shutdown terminates every registered process in reverse spawn order.
// It is the session's single teardown path and is safe to call when some
// children have already exited.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	procs := make([]*Process, len(s.procs))
	copy(procs, s.procs)
	s.mu.Unlock()

	for i := len(procs) - 1; i >= 0; i-- {
		s.Terminate(procs[i])
	}
}

// Processes returns the registered processes in spawn order.
func (s *Supervisor) Processes() []*Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	procs := make([]*Process, len(s.procs))
	copy(procs, s.procs)
	return procs
}
