package submit

// Option configures the in-memory Guard.
type Option func(*memoryGuard)

// WithMaxSize bounds the number of remembered tokens.
// maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(g *memoryGuard) {
		g.maxSize = maxSize
	}
}
