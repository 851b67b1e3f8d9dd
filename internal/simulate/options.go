package simulate

import "github.com/okian/wrestlerank/pkg/logger"

// Option configures Generate and Run.
type Option func(*settings)

type settings struct {
	logger logger.Logger
}

// WithLogger sets the logger for progress records. Without it nothing is
// logged.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
