package matching

import "github.com/okian/clockread/pkg/logger"

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithLogger sets a custom logger for the matcher.
func WithLogger(l logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}
