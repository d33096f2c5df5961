package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/RyanBlaney/trackiq/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Server.MaxConcurrent <= 0 {
		return errors.New("server.max_concurrent must be positive")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.SampleRate < 0 {
		return errors.New("extraction.sample_rate must be 0 (native) or positive")
	}
	if c.Extraction.SampleRate > 0 && c.Extraction.SampleRate < 4000 {
		return fmt.Errorf("extraction.sample_rate %d is too low for a 2048-point analysis", c.Extraction.SampleRate)
	}
	if c.Extraction.TimeoutSeconds < 0 {
		return errors.New("extraction.timeout_seconds must not be negative")
	}
	switch c.Extraction.ResampleQuality {
	case "fast", "medium", "high":
	default:
		return fmt.Errorf("extraction.resample_quality must be fast, medium or high, got %q", c.Extraction.ResampleQuality)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
