package fallback

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errQuota = errors.New("429 quota exceeded")

type counting struct {
	id      string
	enabled bool
	calls   int
	fn      func(n int) (string, error)
}

func (c *counting) ID() string    { return c.id }
func (c *counting) Enabled() bool { return c.enabled }
func (c *counting) Attempt(ctx context.Context) (string, error) {
	c.calls++
	return c.fn(c.calls)
}

func always(err error) func(int) (string, error) {
	return func(int) (string, error) { return "", err }
}

func TestRun_NoEnabledStrategies(t *testing.T) {
	a := &counting{id: "a", fn: always(errQuota)}
	b := &counting{id: "b", fn: always(errQuota)}

	done := make(chan struct{})
	var err error
	go func() {
		_, err = Run(context.Background(), []Strategy[string]{a, b}, Options{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return")
	}

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoStrategies))
	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Empty(t, ex.Attempts)
	assert.Zero(t, a.calls+b.calls)
}

func TestRun_FailoverToSecond(t *testing.T) {
	a := &counting{id: "a", enabled: true, fn: always(errors.New("boom"))}
	b := &counting{id: "b", enabled: true, fn: func(int) (string, error) { return "ok", nil }}

	res, err := Run(context.Background(), []Strategy[string]{a, b}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, "b", res.StrategyID)

	require.Len(t, res.Attempts, 3)
	assert.Equal(t, "a", res.Attempts[0].StrategyID)
	assert.Equal(t, 1, res.Attempts[0].Number)
	assert.Equal(t, "a", res.Attempts[1].StrategyID)
	assert.Equal(t, 2, res.Attempts[1].Number)
	assert.Equal(t, "b", res.Attempts[2].StrategyID)
	assert.NoError(t, res.Attempts[2].Err)
}

func TestRun_RetrySameStrategyThenSucceed(t *testing.T) {
	a := &counting{id: "a", enabled: true, fn: func(n int) (string, error) {
		if n == 1 {
			return "", errors.New("invalid output")
		}
		return "second", nil
	}}
	res, err := Run(context.Background(), []Strategy[string]{a}, Options{MaxRetries: 2})
	require.NoError(t, err)
	assert.Equal(t, "second", res.Value)
	assert.Equal(t, 2, a.calls)
}

func TestRun_ShouldFailoverSkipsRetries(t *testing.T) {
	a := &counting{id: "a", enabled: true, fn: always(errQuota)}
	b := &counting{id: "b", enabled: true, fn: always(errors.New("bad json"))}

	_, err := Run(context.Background(), []Strategy[string]{a, b}, Options{
		MaxRetries:     3,
		ShouldFailover: func(err error) bool { return errors.Is(err, errQuota) },
	})
	require.Error(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 3, b.calls)

	assert.Contains(t, err.Error(), "[a#1] 429 quota exceeded")
	assert.Contains(t, err.Error(), "[b#3] bad json")
	assert.True(t, errors.Is(err, errQuota))
	assert.False(t, errors.Is(err, ErrNoStrategies))
}

func TestRun_ShuffleUsesInjectedRand(t *testing.T) {
	var order []string
	mk := func(id string) Strategy[string] {
		return Func[string]{Name: id, IsEnabled: true, Fn: func(context.Context) (string, error) {
			order = append(order, id)
			return "", errors.New("no")
		}}
	}
	strategies := []Strategy[string]{mk("a"), mk("b"), mk("c"), mk("d")}

	_, err := Run(context.Background(), strategies, Options{MaxRetries: 1, Shuffle: true, Rand: rand.New(rand.NewSource(1))})
	require.Error(t, err)
	first := append([]string(nil), order...)

	order = nil
	_, _ = Run(context.Background(), strategies, Options{MaxRetries: 1, Shuffle: true, Rand: rand.New(rand.NewSource(1))})
	assert.Equal(t, first, order)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, order)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &counting{id: "a", enabled: true, fn: func(int) (string, error) {
		cancel()
		return "", errors.New("interrupted")
	}}
	b := &counting{id: "b", enabled: true, fn: func(int) (string, error) { return "ok", nil }}

	_, err := Run(ctx, []Strategy[string]{a, b}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, a.calls)
	assert.Zero(t, b.calls)
}

func TestRun_AttemptTimeout(t *testing.T) {
	slow := Func[string]{Name: "slow", IsEnabled: true, Fn: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	res, err := Run(context.Background(), []Strategy[string]{slow}, Options{MaxRetries: 1, AttemptTimeout: 10 * time.Millisecond})
	require.Error(t, err)
	require.Len(t, res.Attempts, 1)
	assert.ErrorIs(t, res.Attempts[0].Err, context.DeadlineExceeded)
}
