package wifi

import (
	"log/slog"
	"time"
)

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

// Config carries the settings a Device is constructed with. Zero values
// are filled in by defaults; only the Dialer is mandatory.
type Config struct {
	Dialer Dialer

	// Logger receives tx/rx traces at debug level and retry warnings.
	// Nil means slog.Default().
	Logger *slog.Logger

	// CommandTimeout is the reply deadline for commands that do not
	// carry their own. The join command and the queries each use fixed
	// deadlines matched to the firmware's observed response times.
	CommandTimeout time.Duration

	// MaxAttempts is how many times a command is written before the
	// engine gives up on it.
	MaxAttempts int

	// RetryBackoff is the pause before each re-attempt of a command and
	// between connection retries.
	RetryBackoff time.Duration

	// ResetSettle is how long the module is left alone after a soft
	// reset before the next command.
	ResetSettle time.Duration
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 20 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.ResetSettle == 0 {
		c.ResetSettle = 2 * time.Second
	}
}

// ConfigBuilder assembles a Config fluently. Build applies defaults and
// validates the result.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder holding an empty Config.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the transport dialer.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

// WithLogger sets the logger the device traces through.
func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

// WithCommandTimeout sets the default reply deadline.
func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.config.CommandTimeout = d
	return b
}

// WithMaxAttempts sets how many times a command is written before the
// engine gives up.
func (b *ConfigBuilder) WithMaxAttempts(n int) *ConfigBuilder {
	b.config.MaxAttempts = n
	return b
}

// WithRetryBackoff sets the pause before re-attempts and between
// connection retries.
func (b *ConfigBuilder) WithRetryBackoff(d time.Duration) *ConfigBuilder {
	b.config.RetryBackoff = d
	return b
}

// WithResetSettle sets the quiet period after a soft reset.
func (b *ConfigBuilder) WithResetSettle(d time.Duration) *ConfigBuilder {
	b.config.ResetSettle = d
	return b
}

// Build validates the assembled Config and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	config.setDefaults()
	return config, nil
}
