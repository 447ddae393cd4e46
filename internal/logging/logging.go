// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/taskboard/internal/config"
)

// Setup applies level and format from cfg to the standard logrus logger and
// directs output to out when non-nil.
func Setup(cfg config.LogConfig, out io.Writer) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if out != nil {
		log.SetOutput(out)
	}
	return nil
}
