package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration is usable for the given mode.
// Modes correspond to command entry points: "funds", "filings", and
// "serve". All collected problems are reported in one error.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "funds":
		if c.Funds.BaseURL == "" {
			problems = append(problems, "funds.base_url is required")
		}
		if c.Fetch.TimeoutSecs <= 0 {
			problems = append(problems, "fetch.timeout_secs must be > 0")
		}
		if c.Funds.Render && c.Fetch.RenderTimeoutSecs <= 0 {
			problems = append(problems, "fetch.render_timeout_secs must be > 0 when funds.render is set")
		}
	case "filings":
		if c.Edgar.UserAgent == "" {
			problems = append(problems, "edgar.user_agent is required (the SEC rejects anonymous clients)")
		}
		if c.Edgar.WindowDays <= 0 {
			problems = append(problems, "edgar.window_days must be > 0")
		}
		if c.Edgar.RPS <= 0 {
			problems = append(problems, "edgar.rps must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	problems = append(problems, c.validateScan()...)

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// validateScan checks bounds shared by every mode.
func (c *Config) validateScan() []string {
	var problems []string
	if c.Scan.Rounds < 0 || c.Scan.Rounds > 10 {
		problems = append(problems, "scan.rounds must be between 0 and 10")
	}
	if c.Scan.MinDelaySecs < 0 || c.Scan.MaxDelaySecs < c.Scan.MinDelaySecs {
		problems = append(problems, "scan delay bounds must satisfy 0 <= min_delay_secs <= max_delay_secs")
	}
	if c.Scan.BackoffFactor < 1 {
		problems = append(problems, "scan.backoff_factor must be >= 1")
	}
	if c.Scan.Concurrency < 1 || c.Scan.Concurrency > 50 {
		problems = append(problems, "scan.concurrency must be between 1 and 50")
	}
	return problems
}
