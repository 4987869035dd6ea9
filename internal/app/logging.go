package app

import (
	"io"

	log "github.com/sirupsen/logrus"

	"histreader/internal/config"
)

// SetupLogging configures the global logrus logger from config. Logs go to
// out so command output on stdout stays clean.
func SetupLogging(cfg *config.Config, out io.Writer) error {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(out)
	if cfg.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
