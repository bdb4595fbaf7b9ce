package project

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// capacitorConfig is the slice of capacitor.config.json we care about.
type capacitorConfig struct {
	AppID string `json:"appId"`
}

// ReadAppID returns the appId from capacitor.config.json under root.
// A missing or unparseable file returns "", which downstream treats as
// "app id unknown" and degrades PID-mode log filtering.
func ReadAppID(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "capacitor.config.json"))
	if err != nil {
		return ""
	}
	var cfg capacitorConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ""
	}
	return cfg.AppID
}
