package classify

import "github.com/okian/clockread/pkg/logger"

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithClipSource sets where response audio is fetched from. Without one the
// transcriber receives clips with no audio, which suits table transcribers.
func WithClipSource(cs ClipSource) Option {
	return func(c *Classifier) {
		c.clips = cs
	}
}

// WithLogger sets a custom logger for the classifier.
func WithLogger(l logger.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}
