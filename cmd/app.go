// Package cmd implements the CLI application to reconcile broker dividend
// statements into a Bulgarian tax filing.
package cmd

import (
	"os"

	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package calls Register() and then Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&processCmd{}, "reconciliation")
	c.Register(&ratesCmd{}, "rates")
}

// Environment variables honored by every command. A .env file in the working
// directory is loaded by the main package before flags are parsed.
const (
	EnvRatesDir    = "DIVITAX_RATES_DIR"
	EnvCountryFile = "DIVITAX_COUNTRY_FILE"
	EnvLogLevel    = "DIVITAX_LOG_LEVEL"
)

// envOr returns the environment value for key, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
