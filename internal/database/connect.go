package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/config"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/metrics"
)

// Dialer opens one session. It makes a single attempt; retrying is the
// Connector's job.
type Dialer interface {
	Dial(ctx context.Context, cfg config.DatabaseConfig) (Session, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, cfg config.DatabaseConfig) (Session, error)

func (f DialerFunc) Dial(ctx context.Context, cfg config.DatabaseConfig) (Session, error) {
	return f(ctx, cfg)
}

// DefaultDialer picks the engine from cfg.Driver.
var DefaultDialer Dialer = DialerFunc(func(ctx context.Context, cfg config.DatabaseConfig) (Session, error) {
	d, err := commands.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if d == commands.SQLite {
		return dialSQLite(ctx, cfg)
	}
	return dialPostgres(ctx, cfg)
})

// Connector opens sessions with a bounded retry.
type Connector struct {
	Dialer Dialer

	// Attempts is the maximum number of dials. Values below 1 mean 1.
	Attempts int

	// BaseDelay is in seconds. After failed attempt n the connector waits
	// BaseDelay^n seconds, except after the last attempt.
	BaseDelay int

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	Metrics *metrics.Metrics
}

// NewConnector returns a Connector using DefaultDialer.
func NewConnector(policy config.ConnectConfig, m *metrics.Metrics) *Connector {
	return &Connector{
		Dialer:    DefaultDialer,
		Attempts:  policy.Attempts,
		BaseDelay: policy.BaseDelay,
		Metrics:   m,
	}
}

// Connect opens a session with DefaultDialer.
func Connect(ctx context.Context, cfg config.DatabaseConfig, attempts, baseDelay int) (Session, error) {
	c := &Connector{Dialer: DefaultDialer, Attempts: attempts, BaseDelay: baseDelay}
	return c.Connect(ctx, cfg)
}

// MaxBackoff caps the wait between two attempts.
const MaxBackoff = 5 * time.Minute

// Backoff returns the wait after failed attempt n (1-based), at most
// MaxBackoff.
func Backoff(baseDelay, attempt int) time.Duration {
	if baseDelay <= 0 {
		return 0
	}
	secs := math.Pow(float64(baseDelay), float64(attempt))
	if secs >= MaxBackoff.Seconds() {
		return MaxBackoff
	}
	return time.Duration(secs * float64(time.Second))
}

// Connect dials until a session opens or the attempts run out. Exhaustion
// returns a Connectivity error wrapping the last dial failure.
func (c *Connector) Connect(ctx context.Context, cfg config.DatabaseConfig) (Session, error) {
	attempts := max(c.Attempts, 1)
	sleep := c.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	dialer := c.Dialer
	if dialer == nil {
		dialer = DefaultDialer
	}

	logger := logging.WithFields(ctx,
		"driver", cfg.Driver,
		"user", cfg.User,
		"host", cfg.Host,
		"port", cfg.Port,
	)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Info("connect.start", "attempt", fmt.Sprintf("%d/%d", attempt, attempts))

		sess, err := dialer.Dial(ctx, cfg)
		c.Metrics.ObserveConnect(err)
		if err == nil {
			logger.Info("connect.end", "attempt", attempt)
			return sess, nil
		}
		lastErr = err

		logger.Warn("connect.error",
			"attempt", fmt.Sprintf("%d/%d", attempt, attempts),
			"error", err,
		)

		if attempt == attempts {
			break
		}
		wait := Backoff(c.BaseDelay, attempt)
		logger.Debug("connect.wait", "delay", wait)
		if err := sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}

	logger.Error("connect.failed", "attempts", attempts, "error", lastErr)
	return nil, errs.Connectivity("connect", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
