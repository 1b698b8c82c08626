package config

import (
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds runtime settings for the flashboard CLI.
//
// Fields:
//   - ServerURL: base URL of the JSON API.
//   - RequestTimeout: deadline applied to every API call.
//   - OnlineCheckInterval: how often the client checks server reachability.
type Config struct {
	ServerURL           string        `env:"FLASHBOARD_SERVER_URL"`
	RequestTimeout      time.Duration `env:"FLASHBOARD_REQUEST_TIMEOUT"`
	OnlineCheckInterval time.Duration `env:"FLASHBOARD_ONLINE_CHECK_INTERVAL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ServerURL, validation.Required, is.URL),
		validation.Field(&c.RequestTimeout, validation.Required),
		validation.Field(&c.OnlineCheckInterval, validation.Required),
	)
}

// Load applies defaults, the environment, then flags from args.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments; it panics on error.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}
