package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReliabilitySettings - параметры обертки вокруг внешних хранилищ
type ReliabilitySettings struct {
	Name           string
	Attempts       uint
	CallTimeout    time.Duration
	MaxFailures    uint32 // Подряд идущих ошибок до размыкания
	OpenTimeout    time.Duration
	RateLimit      rate.Limit
	RateBurst      int
	RetryBaseDelay time.Duration
}

func DefaultReliabilitySettings(name string) ReliabilitySettings {
	return ReliabilitySettings{
		Name:           name,
		Attempts:       3,
		CallTimeout:    10 * time.Second,
		MaxFailures:    5,
		OpenTimeout:    30 * time.Second,
		RateLimit:      rate.Limit(100),
		RateBurst:      20,
		RetryBaseDelay: 100 * time.Millisecond,
	}
}

// ReliabilityWrapper: Rate Limiter -> Circuit Breaker -> Retry с таймаутом на попытку.
// Используется для записи архива и чтения датасетов из Postgres.
type ReliabilityWrapper struct {
	settings ReliabilitySettings
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func NewReliabilityWrapper(s ReliabilitySettings, logger *zap.Logger) *ReliabilityWrapper {
	log := logger.Named("reliability").With(zap.String("target", s.Name))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     s.OpenTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &ReliabilityWrapper{
		settings: s,
		cb:       cb,
		limiter:  rate.NewLimiter(s.RateLimit, s.RateBurst),
		logger:   log,
	}
}

// Do выполняет fn с ограничением частоты, предохранителем и повторами.
func (w *ReliabilityWrapper) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", w.settings.Name, err)
	}

	// 2. Circuit Breaker
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.settings.Attempts),
			retry.Delay(w.settings.RetryBaseDelay),
			retry.DelayType(retry.BackOffDelay),
		)

		// 3. Retry с таймаутом на каждую попытку
		return nil, r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, w.settings.CallTimeout)
			defer cancel()
			return fn(tCtx)
		})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", w.settings.Name, err)
	}
	return nil
}

// State возвращает текущее состояние предохранителя (для health)
func (w *ReliabilityWrapper) State() gobreaker.State {
	return w.cb.State()
}
