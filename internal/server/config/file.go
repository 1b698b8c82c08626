package config

import (
	"fmt"

	"github.com/dmitrijs2005/flashboard/internal/flagx"
	"github.com/ilyakaznacheev/cleanenv"
)

// parseFileAndEnv overlays the YAML file given by -c/-config (when present)
// and then environment variables onto cfg. Keys missing from the file and
// unset variables leave the current values alone.
//
// Durations are written as Go duration strings, e.g. "115m" or "720h".
func parseFileAndEnv(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("read env: %w", err)
		}
		return nil
	}

	// ReadConfig reads the file and then the environment.
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	return nil
}
