package main

import (
	"io"
	"time"

	"github.com/alexisbeaulieu97/brokerhost/internal/config"
	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	"github.com/alexisbeaulieu97/brokerhost/internal/host/system"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
)

// newExecutors builds the host capabilities for a command. Tests replace it.
var newExecutors = func(cfg *config.Config, log *logger.Logger, output io.Writer) host.Executors {
	return system.New(system.Options{
		Log:            log,
		Output:         output,
		ServiceTimeout: 2 * time.Minute,
	})
}

// sleep is the settle pause used after removing the previous broker.
var sleep = time.Sleep

func newLogger(cfg *config.Config, verbose bool, w io.Writer) (*logger.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: cfg.Logging.HumanReadable, Writer: w})
}
