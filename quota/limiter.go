package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"video-insight/config"
)

// ErrDailyQuotaExceeded 는 일일 한도를 모두 소진했을 때 반환된다.
var ErrDailyQuotaExceeded = errors.New("daily LLM quota exceeded")

// Limiter 는 분석용 LLM 호출에 대한 분당/일일 한도를 관리한다.
// 프로세스 단위 인메모리 카운터이며, 재시작되면 초기화된다.
type Limiter struct {
	mu sync.Mutex

	dailyLimit int
	usedToday  int
	dayKey     string

	interval time.Duration
	lastCall time.Time

	now func() time.Time
}

// New 는 한도 값이 0 이하인 방향에 대해서는 제한을 두지 않는다.
func New(requestsPerMinute, requestsPerDay int) *Limiter {
	if requestsPerDay < 0 {
		requestsPerDay = 0
	}
	var interval time.Duration
	if requestsPerMinute > 0 {
		interval = time.Minute / time.Duration(requestsPerMinute)
	}
	return &Limiter{
		dailyLimit: requestsPerDay,
		interval:   interval,
		now:        time.Now,
	}
}

func NewFromConfig(cfg config.QuotaConfig) *Limiter {
	return New(cfg.RequestsPerMinute, cfg.RequestsPerDay)
}

// Reserve 는 분석 한 번에 대한 호출 슬롯을 예약한다.
// - 일일 한도를 초과한 경우: ErrDailyQuotaExceeded
// - 분당 간격이 남아 있으면 대기하며, 컨텍스트가 끝나면 ctx.Err() 를 반환한다.
func (l *Limiter) Reserve(ctx context.Context) error {
	for {
		l.mu.Lock()

		now := l.now().UTC()
		todayKey := now.Format("2006-01-02")
		if l.dayKey != todayKey {
			l.dayKey = todayKey
			l.usedToday = 0
		}

		if l.dailyLimit > 0 && l.usedToday >= l.dailyLimit {
			l.mu.Unlock()
			return ErrDailyQuotaExceeded
		}

		var delay time.Duration
		if l.interval > 0 && !l.lastCall.IsZero() {
			delay = l.lastCall.Add(l.interval).Sub(now)
		}

		if delay <= 0 {
			l.usedToday++
			l.lastCall = now
			l.mu.Unlock()
			return nil
		}

		// 락을 풀고 대기 후 상태를 다시 평가한다.
		l.mu.Unlock()
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Remaining 은 오늘 남은 호출 수를 반환한다. 일일 한도가 없으면 -1.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dailyLimit <= 0 {
		return -1
	}
	if l.dayKey != l.now().UTC().Format("2006-01-02") {
		return l.dailyLimit
	}
	return l.dailyLimit - l.usedToday
}
