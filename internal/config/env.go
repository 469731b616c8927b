package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles are the dotenv files picked up from the working directory.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadDotEnv loads the given dotenv files (DefaultEnvFiles when none are given).
// Variables already present in the process environment win. Missing files are
// skipped; the names of the files actually loaded are returned.
func LoadDotEnv(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return loaded, fmt.Errorf("load %s: %w", file, err)
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}
