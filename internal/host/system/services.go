package system

import (
	"time"

	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
)

// Services drives the Windows service control manager.
type Services struct {
	// Timeout bounds each wait for a state transition. Zero means one minute.
	Timeout time.Duration
	Log     *logger.Logger
}

var _ host.ServiceManager = (*Services)(nil)

const servicePollInterval = 250 * time.Millisecond

func (s *Services) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return time.Minute
}
