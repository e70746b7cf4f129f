package ranking

const (
	// MulSmoothing keeps the 3CosMul denominator away from zero.
	MulSmoothing = 0.001
	// ShiftOffset is added to every component before 3CosMul so cosines are non-negative.
	ShiftOffset = 1.0
	// DefaultProgressInterval is how many analogies pass between progress log lines.
	DefaultProgressInterval = 10
)

// Config holds evaluator settings.
type Config struct {
	// ProgressInterval logs progress every N scored analogies; default 10.
	ProgressInterval int `yaml:"progress_interval"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{ProgressInterval: DefaultProgressInterval}
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = DefaultProgressInterval
	}
}
