package logging

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/foodlens/food-lens-server/config"
)

// New builds the process-wide logger. Level comes from LOG_LEVEL
// (default info).
func New() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(config.ConfigDefault("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}
