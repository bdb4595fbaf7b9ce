package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caplive/internal/adb"
	"caplive/internal/logcat"
	"caplive/internal/session"
	"caplive/internal/telemetry"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	runNoLogcat  bool
	runLogcatAll bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a live-reload session on a connected device",
	Long: `Allocates a dev-server port, picks a target device, starts the Vite dev
server and the Capacitor app runner, and streams filtered device logs until
interrupted. Exits 0 on Ctrl+C; 2 on a missing tool or bad flag combination.`,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("mode", "usb", "Connection mode: usb (adb reverse) or wifi (LAN access)")
	runCmd.Flags().String("host", "", "Workstation IPv4 for wifi mode (example: 192.168.1.50)")
	runCmd.Flags().Int("port", 5173, "Vite dev server port")
	runCmd.Flags().String("target", "", "Android device ID from `adb devices`")
	runCmd.Flags().String("app-id", "", "Android applicationId (default: capacitor.config.json appId)")
	runCmd.Flags().BoolVar(&runNoLogcat, "no-logcat", false, "Disable adb logcat streaming")
	runCmd.Flags().String("logcat-mode", "console", "Logcat view: console (JS logs), app (only app pid), or all")
	runCmd.Flags().String("logcat-tags", "", "Space-separated logcat tags to include")
	runCmd.Flags().BoolVar(&runLogcatAll, "logcat-all", false, "Show all logcat output (overrides console/app filtering)")
	runCmd.Flags().Bool("devtools", false, "Capture WebView console via Chrome DevTools Protocol")
	runCmd.Flags().String("dev-cmd", "", "Override the dev server command line")
	runCmd.Flags().String("runner-cmd", "", "Override the app runner command line")
	runCmd.Flags().String("project", ".", "Project root directory")
	runCmd.Flags().String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :2112)")

	bindRunFlags()
}

// bindRunFlags wires the run flags into viper so resolution stays
// flags > env > config file > defaults. An unchanged flag falls through to
// CAPLIVE_* env vars and the config file before its own default applies.
func bindRunFlags() {
	flags := runCmd.Flags()
	viper.BindPFlag("mode", flags.Lookup("mode"))
	viper.BindPFlag("host", flags.Lookup("host"))
	viper.BindPFlag("port", flags.Lookup("port"))
	viper.BindPFlag("target", flags.Lookup("target"))
	viper.BindPFlag("app_id", flags.Lookup("app-id"))
	viper.BindPFlag("logcat_mode", flags.Lookup("logcat-mode"))
	viper.BindPFlag("logcat_tags", flags.Lookup("logcat-tags"))
	viper.BindPFlag("devtools", flags.Lookup("devtools"))
	viper.BindPFlag("dev_cmd", flags.Lookup("dev-cmd"))
	viper.BindPFlag("runner_cmd", flags.Lookup("runner-cmd"))
	viper.BindPFlag("project", flags.Lookup("project"))
	viper.BindPFlag("metrics_addr", flags.Lookup("metrics-addr"))
}

func runSession(cmd *cobra.Command, args []string) error {
	logger := telemetry.NewLogger(viper.GetBool("verbose"), viper.GetString("log_file"), false)

	cfg, err := buildSessionConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		exit(2)
		return nil
	}

	if addr := viper.GetString("metrics_addr"); addr != "" {
		go func() {
			if err := telemetry.StartMetricsServer(addr); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(cfg, logger, adb.NewClient(logger), os.Stdout)
	if err := sess.Run(ctx); err != nil {
		if errors.Is(err, session.ErrSetup) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			exit(2)
			return nil
		}
		return err
	}
	return nil
}

func buildSessionConfig() (session.Config, error) {
	logcatMode := logcat.Mode(viper.GetString("logcat_mode"))
	if runLogcatAll {
		logcatMode = logcat.ModeAll
	}

	var tags []string
	if raw := viper.GetString("logcat_tags"); raw != "" {
		parsed, err := shellquote.Split(raw)
		if err != nil {
			return session.Config{}, fmt.Errorf("invalid --logcat-tags: %w", err)
		}
		tags = parsed
	}

	cfg := session.Config{
		Mode:             session.Mode(viper.GetString("mode")),
		Host:             viper.GetString("host"),
		PreferredPort:    viper.GetInt("port"),
		PortTries:        viper.GetInt("port_tries"),
		Target:           viper.GetString("target"),
		AppID:            viper.GetString("app_id"),
		Logcat:           !runNoLogcat && viper.GetBool("logcat"),
		LogcatMode:       logcatMode,
		LogcatTags:       tags,
		DevTools:         viper.GetBool("devtools"),
		DevToolsPort:     viper.GetInt("devtools_port"),
		DevToolsAttempts: viper.GetInt("devtools_attempts"),
		ProjectRoot:      viper.GetString("project"),
		HistoryPath:      viper.GetString("history_db"),
		DevReadyTimeout:  time.Duration(viper.GetInt("dev_ready_timeout")) * time.Second,
		PidWaitTimeout:   time.Duration(viper.GetInt("pid_wait_timeout")) * time.Second,
	}

	if raw := viper.GetString("dev_cmd"); raw != "" {
		argv, err := shellquote.Split(raw)
		if err != nil {
			return session.Config{}, fmt.Errorf("invalid --dev-cmd: %w", err)
		}
		cfg.DevCommand = argv
	}
	if raw := viper.GetString("runner_cmd"); raw != "" {
		argv, err := shellquote.Split(raw)
		if err != nil {
			return session.Config{}, fmt.Errorf("invalid --runner-cmd: %w", err)
		}
		cfg.RunnerCommand = argv
	}

	return cfg, nil
}
