// Package app assembles the application: configuration, logging, bus,
// engine, acquisition sources and front ends, and supervises their
// lifecycles under a shared context.
package app

import (
	"fmt"

	"github.com/fluxgatelabs/coilscope/configs"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

// Context holds the CLI arguments and the runtime state resolved from
// them
type Context struct {
	// CLI arguments
	ConfigFile string
	Verbose    bool
	LogLevel   string

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
}

// setupLogging configures the logger from the context flags. Verbose
// forces debug regardless of the configured level.
func setupLogging(ctx *Context) logging.Logger {
	logger := logging.NewDefaultLogger()

	level := logging.ParseLevel(ctx.LogLevel)
	if ctx.Verbose {
		level = logging.DebugLevel
	}
	logger.SetLevel(level)

	logging.SetGlobalLogger(logger)
	return logger
}

// loadConfig resolves the layered configuration and applies CLI
// overrides
func loadConfig(ctx *Context) (*configs.Config, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if ctx.Verbose {
		config.Verbose = true
	}
	if ctx.LogLevel != "" {
		config.LogLevel = ctx.LogLevel
	}

	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
