package configuration

import (
	"errors"
	"io/fs"

	"social-publisher/infrastructure/logger"

	"github.com/joho/godotenv"
)

// LoadEnv loads KEY=VALUE files such as .env and config.env. Variables already present in the
// environment are not overridden and missing files are skipped.
func LoadEnv(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.GetLogger().WithField("file", p).WithField("error", err).Warn("Failed to load env file")
		}
	}
}
