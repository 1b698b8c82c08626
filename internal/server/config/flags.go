package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN, empty for the in-memory store
//	-s string   bearer token signing secret
//	-k string   public password salt
//	-e string   environment (local, dev, prod)
//	-t int      access token lifetime, seconds
//	-r int      refresh token lifetime, seconds
//	-v int      activation token lifetime, seconds
//
// Arguments are first narrowed with flagx.FilterArgs so that flags owned by
// other components (such as -c) do not break parsing.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-k", "-e", "-t", "-r", "-v"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrHTTP, "a", cfg.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "token signing secret")
	fs.StringVar(&cfg.PasswordSalt, "k", cfg.PasswordSalt, "public password salt")
	fs.StringVar(&cfg.Env, "e", cfg.Env, "environment")

	accessTTL := fs.Int("t", int(cfg.AccessTokenTTL.Seconds()), "access token lifetime (in seconds)")
	refreshTTL := fs.Int("r", int(cfg.RefreshTokenTTL.Seconds()), "refresh token lifetime (in seconds)")
	activationTTL := fs.Int("v", int(cfg.ActivationTokenTTL.Seconds()), "activation token lifetime (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.AccessTokenTTL = time.Duration(*accessTTL) * time.Second
	cfg.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Second
	cfg.ActivationTokenTTL = time.Duration(*activationTTL) * time.Second
	return nil
}
