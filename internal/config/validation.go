package config

import (
	"fmt"
	"math"
	"net"
	"strings"

	"imectx/internal/dpi"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Poll interval bounds in milliseconds.
const (
	MinPollIntervalMs = 10
	MaxPollIntervalMs = 60000
)

// ValidateConfig performs comprehensive validation of the configuration.
// Field checks run first; the JSON schema is checked once they pass.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateProbe(&c.Probe)...)
	errs = append(errs, validateCandidate(&c.Candidate)...)

	if len(errs) > 0 {
		return errs
	}

	if err := validateSchema(c); err != nil {
		return ValidationErrors{{Field: "schema", Message: err.Error()}}
	}
	return nil
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
		// Valid formats
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr)", l.Output),
		})
	}

	return errs
}

func validateProbe(p *ProbeConfig) ValidationErrors {
	var errs ValidationErrors

	if p.PollIntervalMs < MinPollIntervalMs || p.PollIntervalMs > MaxPollIntervalMs {
		errs = append(errs, ValidationError{
			Field: "probe.poll_interval_ms",
			Message: fmt.Sprintf("poll interval must be between %d and %d ms, got %d",
				MinPollIntervalMs, MaxPollIntervalMs, p.PollIntervalMs),
		})
	}

	switch p.Output {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "probe.output",
			Message: fmt.Sprintf("invalid probe output: %s (valid: text, json)", p.Output),
		})
	}

	if _, _, err := ParseWindow(p.Window); err != nil {
		errs = append(errs, ValidationError{
			Field:   "probe.window",
			Message: err.Error(),
		})
	}

	if p.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(p.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "probe.metrics_addr",
				Message: err.Error(),
			})
		}
	}

	return errs
}

func validateCandidate(c *CandidateConfig) ValidationErrors {
	var errs ValidationErrors

	if !dpi.ValidScaleFactor(c.ScaleFactor) {
		errs = append(errs, ValidationError{
			Field:   "candidate.scale_factor",
			Message: fmt.Sprintf("scale factor must be a positive normal number, got %v", c.ScaleFactor),
		})
	}

	for field, v := range map[string]float64{
		"candidate.offset_x": c.OffsetX,
		"candidate.offset_y": c.OffsetY,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "offset must be finite",
			})
		}
	}

	return errs
}
