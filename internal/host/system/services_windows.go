//go:build windows

package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// Exists reports whether a service called name is registered.
func (s *Services) Exists(_ context.Context, name string) (bool, error) {
	m, err := mgr.Connect()
	if err != nil {
		return false, err
	}
	defer m.Disconnect()

	service, err := m.OpenService(name)
	if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	service.Close()
	return true, nil
}

// Start starts name unless it is already running.
func (s *Services) Start(ctx context.Context, name string) (bool, error) {
	m, err := mgr.Connect()
	if err != nil {
		return false, err
	}
	defer m.Disconnect()

	service, err := m.OpenService(name)
	if err != nil {
		return false, fmt.Errorf("open service %s: %w", name, err)
	}
	defer service.Close()

	status, err := service.Query()
	if err != nil {
		return false, err
	}
	if status.State == svc.Running || status.State == svc.StartPending {
		return false, s.wait(ctx, service, svc.Running)
	}
	if err := service.Start(); err != nil {
		return false, fmt.Errorf("start service %s: %w", name, err)
	}
	s.Log.With("service", name).Info("service started")
	return true, s.wait(ctx, service, svc.Running)
}

// Restart stops name if it is running and starts it again.
func (s *Services) Restart(ctx context.Context, name string) error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	service, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer service.Close()

	status, err := service.Query()
	if err != nil {
		return err
	}
	if status.State != svc.Stopped {
		if _, err := service.Control(svc.Stop); err != nil {
			return fmt.Errorf("stop service %s: %w", name, err)
		}
		if err := s.wait(ctx, service, svc.Stopped); err != nil {
			return err
		}
	}
	if err := service.Start(); err != nil {
		return fmt.Errorf("start service %s: %w", name, err)
	}
	s.Log.With("service", name).Info("service restarted")
	return s.wait(ctx, service, svc.Running)
}

func (s *Services) wait(ctx context.Context, service *mgr.Service, want svc.State) error {
	deadline := time.Now().Add(s.timeout())
	ticker := time.NewTicker(servicePollInterval)
	defer ticker.Stop()

	for {
		status, err := service.Query()
		if err != nil {
			return err
		}
		if status.State == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("service %s did not reach state %d within %s", service.Name, want, s.timeout())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
