//go:build !windows

package system

import (
	"context"
)

// Exists is only implemented on Windows.
func (s *Services) Exists(context.Context, string) (bool, error) {
	return false, ErrUnsupported
}

// Start is only implemented on Windows.
func (s *Services) Start(context.Context, string) (bool, error) {
	return false, ErrUnsupported
}

// Restart is only implemented on Windows.
func (s *Services) Restart(context.Context, string) error {
	return ErrUnsupported
}
