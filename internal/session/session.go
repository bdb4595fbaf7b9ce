package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"caplive/internal/adb"
	"caplive/internal/cdp"
	"caplive/internal/history"
	"caplive/internal/logcat"
	"caplive/internal/ports"
	"caplive/internal/project"
	"caplive/internal/supervisor"
	"caplive/internal/telemetry"
	"caplive/internal/ui"
)

const (
	pollInterval = 500 * time.Millisecond
	workerGrace  = 5 * time.Second

	logcatGrace = 5 * time.Second
	childGrace  = 10 * time.Second
)

// Session owns the whole live-reload lifecycle: port allocation, device
// selection, the supervised children, the log pipeline, and the optional
// debug bridge. It ends only on context cancellation (the interrupt signal)
// or a fatal setup error; children exiting on their own are logged and
// survived.
type Session struct {
	cfg    Config
	logger *slog.Logger
	bridge adb.IClient
	out    io.Writer

	sup  *supervisor.Supervisor
	pids *logcat.PidState

	workers sync.WaitGroup
}

// New builds a session. out defaults to os.Stdout.
func New(cfg Config, logger *slog.Logger, bridge adb.IClient, out io.Writer) *Session {
	if out == nil {
		out = os.Stdout
	}
	return &Session{
		cfg:    cfg,
		logger: logger,
		bridge: bridge,
		out:    out,
		sup:    supervisor.New(logger, out),
		pids:   &logcat.PidState{},
	}
}

// Run executes the session until ctx is cancelled. The returned error is
// nil on a clean interrupt; setup failures wrap ErrSetup.
func (s *Session) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	devCmd := s.devCommand(0)
	runnerCmd := s.runnerCommand(0, "")
	for _, argv := range [][]string{devCmd, runnerCmd} {
		if _, err := exec.LookPath(argv[0]); err != nil {
			return fmt.Errorf("%w: %s not found in PATH", ErrSetup, argv[0])
		}
	}

	telemetry.TrackSessionStart()
	started := time.Now()
	exitReason := "interrupt"

	// Pre-empt the dev server's own auto-increment-on-busy behavior so
	// the app runner and the forwarded port agree on one value.
	port := ports.FindFree("127.0.0.1", s.cfg.PreferredPort, s.cfg.PortTries)
	if port != s.cfg.PreferredPort {
		s.logger.Info("preferred port busy; using fallback", "preferred", s.cfg.PreferredPort, "port", port)
	}

	adbAvailable := s.bridge.Available()
	if !adbAvailable {
		s.logger.Warn("adb not found in PATH; device detection disabled")
	}

	target := s.cfg.Target
	if target == "" && adbAvailable {
		devices, _ := s.bridge.Devices(ctx)
		if chosen, ok := adb.ChooseTarget(devices); ok {
			target = chosen.Serial
			s.logger.Info("using device", "serial", target, "emulator", chosen.IsEmulator)
		} else {
			s.logger.Warn("no ready Android devices found")
		}
	}

	appID := s.cfg.AppID
	if appID == "" {
		appID = project.ReadAppID(s.cfg.ProjectRoot)
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer func() {
		cancelWorkers()
		s.sup.Shutdown()
		s.joinWorkers(workerGrace)
		s.recordHistory(started, target, port, exitReason)
	}()

	s.logger.Info("starting dev server", "port", port)
	if _, err := s.sup.Spawn("dev", s.devCommand(port), s.cfg.ProjectRoot, nil, childGrace); err != nil {
		exitReason = "error: dev server failed to start"
		return err
	}

	s.logger.Info("waiting for dev server", "host", "127.0.0.1", "port", port)
	if !ports.WaitReady(ctx, "127.0.0.1", port, s.cfg.DevReadyTimeout) {
		s.logger.Warn("dev server not ready yet, continuing anyway")
	}
	if ctx.Err() != nil {
		return nil
	}

	logcatMode := s.cfg.LogcatMode
	if s.cfg.Logcat && adbAvailable {
		logcatMode = s.startLogcat(ctx, target, appID, logcatMode)
	} else if s.cfg.Logcat {
		fmt.Fprintln(s.out, ui.Warn("adb not found in PATH. Logcat disabled."))
	}

	s.logger.Info("starting app runner", "target", target)
	if _, err := s.sup.Spawn("cap", s.runnerCommand(port, target), s.cfg.ProjectRoot, nil, childGrace); err != nil {
		exitReason = "error: app runner failed to start"
		return err
	}

	if s.cfg.Logcat && adbAvailable && logcatMode == logcat.ModeApp && appID != "" {
		s.startPidDiscovery(workerCtx, target, appID)
	}

	if s.cfg.DevTools && adbAvailable {
		s.startBridge(workerCtx, target)
	}

	fmt.Fprintln(s.out, "Live reload running. Logs will appear here (Ctrl+C to stop).")
	s.supervise(ctx)
	return nil
}

// supervise polls the managed children until interrupted. An exit is logged
// once per process and the session stays alive: some runner versions return
// immediately even though the app keeps working, and npm can exit on
// Windows while the underlying server lives on.
func (s *Session) supervise(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	logged := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range s.sup.Processes() {
				code, exited := p.ExitCode()
				if !exited || logged[p.Label] {
					continue
				}
				logged[p.Label] = true
				s.logger.Info("process exited; keeping session alive", "label", p.Label, "code", code)
				telemetry.TrackProcessExit(p.Label)
			}
		}
	}
}

func (s *Session) startLogcat(ctx context.Context, target, appID string, mode logcat.Mode) logcat.Mode {
	if mode == logcat.ModeApp && appID == "" {
		s.logger.Warn("appId not found; showing all logs")
		mode = logcat.ModeAll
	}

	// Stale entries from previous sessions must not be replayed.
	if err := s.bridge.ClearLogBuffer(ctx, target); err != nil {
		s.logger.Debug("logcat clear failed", "error", err)
	}

	argv := s.bridge.LogcatCommand(target, s.cfg.LogcatTags, mode == logcat.ModeAll)
	predicate := logcat.Predicate(mode, s.pids)
	if _, err := s.sup.Spawn("logcat", argv, s.cfg.ProjectRoot, predicate, logcatGrace); err != nil {
		s.logger.Warn("failed to start adb logcat", "error", err)
	}
	return mode
}

func (s *Session) startPidDiscovery(ctx context.Context, target, appID string) {
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		s.logger.Info("waiting for app process", "app_id", appID)
		pid, ok := s.bridge.WaitForAppPid(ctx, target, appID, s.cfg.PidWaitTimeout)
		if !ok {
			s.logger.Warn("app pid not found; logcat may be noisy")
			return
		}
		s.pids.Set(pid)
		s.logger.Info("app process discovered", "pid", pid)
	}()
}

func (s *Session) startBridge(ctx context.Context, target string) {
	bridge := &cdp.Bridge{
		Adb:      s.bridge,
		Logger:   s.logger,
		Out:      s.out,
		Serial:   target,
		Port:     s.cfg.DevToolsPort,
		Attempts: s.cfg.DevToolsAttempts,
	}
	if err := bridge.Forward(ctx); err != nil {
		s.logger.Warn("failed to set up devtools port forwarding", "error", err)
		return
	}
	s.logger.Info("starting devtools console capture", "port", bridge.Port)
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		bridge.Run(ctx)
	}()
}

func (s *Session) devCommand(port int) []string {
	if len(s.cfg.DevCommand) > 0 {
		return s.cfg.DevCommand
	}
	return []string{
		adb.ResolveCommand("npm"), "run", "dev", "--",
		"--host", "0.0.0.0",
		"--strictPort",
		"--port", strconv.Itoa(port),
	}
}

func (s *Session) runnerCommand(port int, target string) []string {
	if len(s.cfg.RunnerCommand) > 0 {
		return s.cfg.RunnerCommand
	}
	host := "localhost"
	if s.cfg.Mode == ModeWifi {
		host = s.cfg.Host
	}
	argv := []string{
		adb.ResolveCommand("npx"), "cap", "run", "android", "-l",
		"--host", host,
		"--port", strconv.Itoa(port),
	}
	if s.cfg.Mode == ModeUSB {
		argv = append(argv, "--forwardPorts", fmt.Sprintf("%d:%d", port, port))
	}
	if target != "" {
		argv = append(argv, "--target", target)
	}
	return argv
}

// joinWorkers waits for the pid-discovery and bridge goroutines, but never
// longer than grace; workers are daemon-like and safe to abandon.
func (s *Session) joinWorkers(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Debug("abandoning workers after grace period")
	}
}

func (s *Session) recordHistory(started time.Time, target string, port int, exitReason string) {
	if s.cfg.HistoryPath == "" {
		return
	}
	store, err := history.NewStore(s.cfg.HistoryPath)
	if err != nil {
		s.logger.Warn("session history unavailable", "error", err)
		return
	}
	defer store.Close()

	rec := history.Record{
		StartedAt:  started,
		EndedAt:    time.Now(),
		Serial:     target,
		Port:       port,
		Mode:       string(s.cfg.Mode),
		LogcatMode: string(s.cfg.LogcatMode),
		ExitReason: exitReason,
	}
	if err := store.Save(rec); err != nil {
		s.logger.Warn("failed to record session history", "error", err)
	}
}
