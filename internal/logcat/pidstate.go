package logcat

import "sync"

// PidState is the single cross-goroutine mutable cell of a session: the
// PID-discovery goroutine writes it once, the app-mode filter predicate
// reads it on every line.
type PidState struct {
	mu  sync.Mutex
	pid int
	set bool
}

// Set records the discovered app process id.
func (p *PidState) Set(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pid = pid
	p.set = true
}

// Get returns the pid and whether one has been discovered yet.
func (p *PidState) Get() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid, p.set
}
