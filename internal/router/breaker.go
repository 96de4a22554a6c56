package router

import (
	"sync"
	"time"
)

// breaker circuit breaker одного кандидата: после threshold подряд
// неудачных попыток кандидат исключается из выдачи на время cooldown.
type breaker struct {
	openUntil time.Time
	threshold int
	cooldown  time.Duration
	failures  int
	mu        sync.Mutex
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// allow возвращает true, если кандидат сейчас допустим.
// По истечении cooldown кандидат снова допускается (half-open проба).
func (b *breaker) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return !now.Before(b.openUntil)
}

// recordFailure учитывает неудачную попытку; на пороге открывает breaker.
func (b *breaker) recordFailure(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = now.Add(b.cooldown)
		b.failures = 0
		return true
	}
	return false
}

// recordSuccess закрывает breaker и сбрасывает счетчик.
func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.openUntil = time.Time{}
}
