package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchLogLevel reads log_level from a YAML overlay and calls apply on start and on
// every change to the file. Nothing else in the overlay is read, so a running game
// never sees its rules change.
func WatchLogLevel(path string, apply func(level string)) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read overlay %s: %w", path, err)
	}
	current := strings.TrimSpace(v.GetString("log_level"))
	if current != "" {
		apply(current)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if level := strings.TrimSpace(v.GetString("log_level")); level != "" {
			apply(level)
		}
	})
	v.WatchConfig()
	return nil
}
