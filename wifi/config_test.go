package wifi_test

import (
	"testing"
	"time"

	"i4.energy/across/wifigw/wifi"
)

func TestConfig(t *testing.T) {
	t.Run("ErrNoDialer when no dialer provided", func(t *testing.T) {
		_, err := wifi.NewConfigBuilder().Build()

		if err != wifi.ErrNoDialer {
			t.Errorf("expected ErrNoDialer, got: %v", err)
		}
	})

	t.Run("Defaults applied", func(t *testing.T) {
		config, err := wifi.NewConfigBuilder().
			WithDialer(wifi.SimDialer{Transport: wifi.NewSimTransport()}).
			Build()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.CommandTimeout != 20*time.Second {
			t.Errorf("unexpected command timeout: %v", config.CommandTimeout)
		}
		if config.MaxAttempts != 3 {
			t.Errorf("unexpected attempt budget: %d", config.MaxAttempts)
		}
		if config.RetryBackoff != time.Second {
			t.Errorf("unexpected retry backoff: %v", config.RetryBackoff)
		}
		if config.ResetSettle != 2*time.Second {
			t.Errorf("unexpected reset settle: %v", config.ResetSettle)
		}
		if config.Logger == nil {
			t.Error("expected a default logger")
		}
	})

	t.Run("Overrides kept", func(t *testing.T) {
		config, err := wifi.NewConfigBuilder().
			WithDialer(wifi.SimDialer{Transport: wifi.NewSimTransport()}).
			WithCommandTimeout(7 * time.Second).
			WithMaxAttempts(5).
			WithRetryBackoff(250 * time.Millisecond).
			WithResetSettle(time.Second).
			Build()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.CommandTimeout != 7*time.Second {
			t.Errorf("unexpected command timeout: %v", config.CommandTimeout)
		}
		if config.MaxAttempts != 5 {
			t.Errorf("unexpected attempt budget: %d", config.MaxAttempts)
		}
		if config.RetryBackoff != 250*time.Millisecond {
			t.Errorf("unexpected retry backoff: %v", config.RetryBackoff)
		}
		if config.ResetSettle != time.Second {
			t.Errorf("unexpected reset settle: %v", config.ResetSettle)
		}
	})
}
