package system

import (
	"context"

	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
)

// Platform hooks, replaced in tests.
var (
	machineVarReader     = readMachineVar
	machineVarWriter     = writeMachineVar
	environmentBroadcast = broadcastEnvironmentChange
)

// Environment writes machine-scope environment variables.
type Environment struct {
	Log *logger.Logger
}

var _ host.Environment = (*Environment)(nil)

// SetMachineVar sets name to value for the whole machine and tells top-level
// windows the environment changed, so shells started afterwards see it.
// Already running processes, this one included, do not.
func (e *Environment) SetMachineVar(_ context.Context, name, value string) (bool, error) {
	current, found, err := machineVarReader(name)
	if err != nil {
		return false, err
	}
	if found && current == value {
		return false, nil
	}
	if err := machineVarWriter(name, value); err != nil {
		return false, err
	}

	log := e.log().WithFields(map[string]any{"name": name, "value": value})
	if err := environmentBroadcast(); err != nil {
		// The value is persisted; only shells opened before the next logon miss it.
		log.With("error", err.Error()).Warn("environment change broadcast failed")
	}
	log.Info("machine environment variable set")
	return true, nil
}

func (e *Environment) log() *logger.Logger {
	if e.Log == nil {
		return logger.Nop()
	}
	return e.Log
}
