package main

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caplive/internal/logcat"
	"caplive/internal/session"
)

// resetRunFlags restores every run flag to its default and clears the
// Changed state left behind by earlier tests.
func resetRunFlags(t *testing.T) {
	t.Helper()
	runCmd.Flags().VisitAll(func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})
	runNoLogcat = false
	runLogcatAll = false
}

// setViperBase rebuilds viper with the non-flag session settings and
// re-establishes the flag bindings viper.Reset discards.
func setViperBase() {
	viper.Reset()
	viper.Set("port_tries", 20)
	viper.Set("logcat", true)
	viper.Set("dev_ready_timeout", 30)
	viper.Set("pid_wait_timeout", 60)
	viper.Set("devtools_port", 9222)
	viper.Set("devtools_attempts", 30)
	viper.Set("history_db", "/tmp/history.db")
	bindRunFlags()
}

func setFlag(t *testing.T, name, value string) {
	t.Helper()
	require.NoError(t, runCmd.Flags().Set(name, value))
}

func TestBuildSessionConfig_Defaults(t *testing.T) {
	resetRunFlags(t)
	setViperBase()

	cfg, err := buildSessionConfig()
	require.NoError(t, err)

	assert.Equal(t, session.ModeUSB, cfg.Mode)
	assert.Equal(t, 5173, cfg.PreferredPort)
	assert.True(t, cfg.Logcat)
	assert.Equal(t, logcat.ModeConsole, cfg.LogcatMode)
	assert.Equal(t, ".", cfg.ProjectRoot)
	assert.Equal(t, 30*time.Second, cfg.DevReadyTimeout)
	assert.Equal(t, 60*time.Second, cfg.PidWaitTimeout)
	assert.Equal(t, 9222, cfg.DevToolsPort)
	assert.Empty(t, cfg.DevCommand)
	assert.Empty(t, cfg.RunnerCommand)
	assert.NoError(t, cfg.Validate())
}

func TestBuildSessionConfig_FlagsWin(t *testing.T) {
	resetRunFlags(t)
	setViperBase()
	setFlag(t, "mode", "wifi")
	setFlag(t, "host", "192.168.1.50")
	setFlag(t, "port", "8100")
	setFlag(t, "target", "serial1")
	setFlag(t, "app-id", "com.example.app")
	runNoLogcat = true

	cfg, err := buildSessionConfig()
	require.NoError(t, err)

	assert.Equal(t, session.ModeWifi, cfg.Mode)
	assert.Equal(t, "192.168.1.50", cfg.Host)
	assert.Equal(t, 8100, cfg.PreferredPort)
	assert.Equal(t, "serial1", cfg.Target)
	assert.Equal(t, "com.example.app", cfg.AppID)
	assert.False(t, cfg.Logcat)
}

func TestBuildSessionConfig_ConfigBeatsFlagDefault(t *testing.T) {
	resetRunFlags(t)
	setViperBase()
	// Values from the config file or CAPLIVE_* env land in viper; a flag
	// left at its default must not shadow them.
	viper.Set("mode", "wifi")
	viper.Set("host", "192.168.1.50")
	viper.Set("port", 8100)
	viper.Set("logcat_mode", "app")

	cfg, err := buildSessionConfig()
	require.NoError(t, err)

	assert.Equal(t, session.ModeWifi, cfg.Mode)
	assert.Equal(t, "192.168.1.50", cfg.Host)
	assert.Equal(t, 8100, cfg.PreferredPort)
	assert.Equal(t, logcat.ModeApp, cfg.LogcatMode)
}

func TestBuildSessionConfig_LogcatAllOverridesMode(t *testing.T) {
	resetRunFlags(t)
	setViperBase()
	setFlag(t, "logcat-mode", "app")
	runLogcatAll = true

	cfg, err := buildSessionConfig()
	require.NoError(t, err)
	assert.Equal(t, logcat.ModeAll, cfg.LogcatMode)
}

func TestBuildSessionConfig_TagsAndCommandOverrides(t *testing.T) {
	resetRunFlags(t)
	setViperBase()
	setFlag(t, "logcat-tags", "MyTag Capacitor/Console")
	setFlag(t, "dev-cmd", `pnpm dev --port 5173`)
	setFlag(t, "runner-cmd", `npx cap run android -l`)

	cfg, err := buildSessionConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"MyTag", "Capacitor/Console"}, cfg.LogcatTags)
	assert.Equal(t, []string{"pnpm", "dev", "--port", "5173"}, cfg.DevCommand)
	assert.Equal(t, []string{"npx", "cap", "run", "android", "-l"}, cfg.RunnerCommand)
}

func TestBuildSessionConfig_BadDevCmd(t *testing.T) {
	resetRunFlags(t)
	setViperBase()
	setFlag(t, "dev-cmd", `npm run "dev`)

	_, err := buildSessionConfig()
	assert.Error(t, err)
}

func TestRootCommandRegistrations(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["devices"])
	assert.True(t, names["history"])
}
