package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes the configuration from file and environment variables.
// Resolution order is flags > environment > config file > defaults; cobra
// binds the flags, this wires up the rest.
func Load(cfgFile string) {
	// explicit .env loading; a missing file is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".caplive")
	}

	viper.SetEnvPrefix("CAPLIVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("mode", "usb")
	viper.SetDefault("port", 5173)
	viper.SetDefault("port_tries", 20)
	viper.SetDefault("logcat", true)
	viper.SetDefault("logcat_mode", "console")
	viper.SetDefault("dev_ready_timeout", 30)
	viper.SetDefault("pid_wait_timeout", 60)
	viper.SetDefault("devtools_port", 9222)
	viper.SetDefault("devtools_attempts", 30)
	viper.SetDefault("history_db", defaultHistoryPath())
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("verbose", false)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".caplive-history.db"
	}
	return home + string(os.PathSeparator) + ".caplive-history.db"
}
