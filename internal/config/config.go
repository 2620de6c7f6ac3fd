package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time expresses TTL and timeout durations
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by must() at load
// time; policy knobs fall back to defaults so a bare environment still
// boots a working server.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to verify JWTs on protected routes
	PaymentSecret  string        // shared secret for verifying gateway callbacks
	HoldTTL        time.Duration // lifetime of a seat hold (default 10 minutes)
	PendingTimeout time.Duration // age after which a Pending booking is swept (default 15 minutes)
	SweepSpec      string        // cron spec for the pending-booking sweep (default every minute)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		JWTSecret:      must("JWT_SECRET"),   // secret used for verifying JWTs
		PaymentSecret:  must("PAYMENT_SECRET"),
		HoldTTL:        envMinutes("HOLD_TTL_MIN", 10),
		PendingTimeout: envMinutes("PENDING_TIMEOUT_MIN", 15),
		SweepSpec:      envStr("SWEEP_CRON_SPEC", "*/1 * * * *"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envMinutes reads an integer number of minutes with a default.  Invalid or
// non-positive values fall back to the default rather than aborting, since
// these are tunables rather than required wiring.
func envMinutes(k string, d int) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return time.Duration(d) * time.Minute
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return time.Duration(d) * time.Minute
	}
	return time.Duration(n) * time.Minute
}
