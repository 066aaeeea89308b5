package system

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
)

type machineEnv struct {
	vars         map[string]string
	broadcasts   int
	broadcastErr error
}

func installMachineEnv(t *testing.T) *machineEnv {
	t.Helper()
	env := &machineEnv{vars: map[string]string{}}
	origRead, origWrite, origBroadcast := machineVarReader, machineVarWriter, environmentBroadcast
	t.Cleanup(func() {
		machineVarReader, machineVarWriter, environmentBroadcast = origRead, origWrite, origBroadcast
	})
	machineVarReader = func(name string) (string, bool, error) {
		v, ok := env.vars[name]
		return v, ok, nil
	}
	machineVarWriter = func(name, value string) error {
		env.vars[name] = value
		return nil
	}
	environmentBroadcast = func() error {
		env.broadcasts++
		return env.broadcastErr
	}
	return env
}

func TestSetMachineVarBroadcastsOnlyOnChange(t *testing.T) {
	env := installMachineEnv(t)
	e := &Environment{}
	ctx := context.Background()

	changed, err := e.SetMachineVar(ctx, "ERLANG_HOME", `c:\Program Files\erl7.3`)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, `c:\Program Files\erl7.3`, env.vars["ERLANG_HOME"])
	assert.Equal(t, 1, env.broadcasts)

	changed, err = e.SetMachineVar(ctx, "ERLANG_HOME", `c:\Program Files\erl7.3`)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, env.broadcasts)
}

func TestSetMachineVarBroadcastFailureIsNotFatal(t *testing.T) {
	env := installMachineEnv(t)
	env.broadcastErr = errors.New("timeout")

	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)

	changed, err := (&Environment{Log: log}).SetMachineVar(context.Background(), "RABBITMQ_BASE", `c:\RabbitMQ`)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, buf.String(), "environment change broadcast failed")
}

func TestSetMachineVarWriteError(t *testing.T) {
	env := installMachineEnv(t)
	machineVarWriter = func(string, string) error { return errors.New("access denied") }

	changed, err := (&Environment{}).SetMachineVar(context.Background(), "RABBITMQ_BASE", `c:\RabbitMQ`)
	require.Error(t, err)
	assert.False(t, changed)
	assert.Zero(t, env.broadcasts)
}
