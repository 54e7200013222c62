package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cognicore/newsscan/pkg/newsscan/internalerr"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvGDELTBaseURL   = "GDELT_BASE_URL"
	EnvProxyPrimary   = "CORS_PROXY_PRIMARY"
	EnvProxyFallback  = "CORS_PROXY_FALLBACK"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvDelay          = "DELAY_BETWEEN_REQUESTS"
	EnvOutputDir      = "OUTPUT_DIR"
)

// ApplyEnv loads envFile into the process environment when it exists and
// then overlays the recognised variables onto c. A missing envFile is not an
// error.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if v, ok := os.LookupEnv(EnvGDELTBaseURL); ok && v != "" {
		c.Request.GDELTBaseURL = strings.TrimRight(v, "/")
	}

	primary, hasPrimary := os.LookupEnv(EnvProxyPrimary)
	fallback, hasFallback := os.LookupEnv(EnvProxyFallback)
	if hasPrimary || hasFallback {
		if !hasPrimary && len(c.Proxies) > 0 {
			primary = c.Proxies[0]
		}
		if !hasFallback && len(c.Proxies) > 1 {
			fallback = c.Proxies[1]
		}
		c.Proxies = nil
		for _, p := range []string{primary, fallback} {
			if p != "" {
				c.Proxies = append(c.Proxies, p)
			}
		}
		// every proxy explicitly cleared means fetch directly
		if len(c.Proxies) == 0 {
			c.Proxies = []string{""}
		}
	}

	if v, ok := os.LookupEnv(EnvRequestTimeout); ok && v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, EnvRequestTimeout, err)
		}
		c.Request.Timeout = d
	}

	if v, ok := os.LookupEnv(EnvDelay); ok && v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, EnvDelay, err)
		}
		c.Request.Delay = d
	}

	if v, ok := os.LookupEnv(EnvOutputDir); ok && v != "" {
		c.OutputDir = v
	}

	return c.Validate()
}

// parseSeconds accepts either a Go duration ("750ms") or a plain number of
// seconds ("0.5").
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a duration: %q", s)
	}
	return time.Duration(f * float64(time.Second)), nil
}
