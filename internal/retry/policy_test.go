package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitelinks/internal/config"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, config.RetryBackoffExponential, p.Mode)
	assert.Equal(t, 500*time.Millisecond, p.Initial)
	assert.Equal(t, 5*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestNewPolicy_ClampsInitial(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, config.RetryBackoffFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)
}

func TestNewPolicy_UnknownModeKeepsDefault(t *testing.T) {
	p := NewPolicy("jitter", 0, 0, -1)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.RetryConfig{Mode: config.RetryBackoffLinear, Initial: "100ms", Max: "1s", MaxRetries: 4})
	assert.Equal(t, Policy{Mode: config.RetryBackoffLinear, Initial: 100 * time.Millisecond, Max: time.Second, MaxRetries: 4}, p)
}

func TestDelay(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name string
		mode config.RetryBackoffMode
		want []time.Duration
	}{
		{"fixed", config.RetryBackoffFixed, []time.Duration{100 * ms, 100 * ms, 100 * ms, 100 * ms}},
		{"linear", config.RetryBackoffLinear, []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{"exponential", config.RetryBackoffExponential, []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(tt.mode, 100*ms, 250*ms, 5)
			assert.Zero(t, p.Delay(0))
			for i, want := range tt.want {
				assert.Equal(t, want, p.Delay(i+1), "retry %d", i+1)
			}
		})
	}

	huge := NewPolicy(config.RetryBackoffExponential, time.Second, time.Hour, 100)
	assert.Equal(t, time.Hour, huge.Delay(80))
}

func TestDo(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	transient := errors.New("503")

	calls := 0
	err := p.Do(context.Background(), func(int) (bool, error) {
		calls++
		return true, transient
	})
	require.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)

	calls = 0
	err = p.Do(context.Background(), func(int) (bool, error) {
		calls++
		return false, errors.New("404")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = p.Do(context.Background(), func(attempt int) (bool, error) {
		calls++
		if attempt == 0 {
			return true, transient
		}
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCanceled(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Do(ctx, func(int) (bool, error) { return true, errors.New("timeout") })
	require.ErrorIs(t, err, context.Canceled)
}
