// Package ratelimit содержит ограничители частоты запросов по ключу.
//
// FixedWindow и RedisFixedWindow считают запросы в фиксированном окне
// (не более limit запросов за window на ключ), TokenBucket выдаёт
// запросы по токенам и используется для ограничения попыток входа по IP.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter решает, можно ли пропустить очередной запрос с ключом key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	start time.Time
	count int
}

// FixedWindow хранит счётчики в памяти процесса.
type FixedWindow struct {
	limit     int
	window    time.Duration
	now       func() time.Time
	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

// NewFixedWindow создаёт лимитер на limit запросов за win для каждого ключа.
func NewFixedWindow(limit int, win time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:   limit,
		window:  win,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// WithClock подменяет источник времени.
func (l *FixedWindow) WithClock(now func() time.Time) *FixedWindow {
	l.now = now
	l.lastSweep = now()
	return l
}

// Allow увеличивает счётчик ключа и сообщает, не превышен ли лимит.
// Отклонённые запросы тоже не продлевают окно.
func (l *FixedWindow) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// sweep удаляет истёкшие окна не чаще одного раза за window.
func (l *FixedWindow) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, k)
		}
	}
	l.lastSweep = now
}

// TokenBucket держит отдельный rate.Limiter на каждый ключ.
// Корзины, простоявшие дольше времени полного пополнения, удаляются.
type TokenBucket struct {
	rps       rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucket создаёт лимитер с rps токенов в секунду и запасом burst на ключ.
func NewTokenBucket(rps float64, burst int) *TokenBucket {
	idle := time.Minute
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &TokenBucket{
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// WithClock подменяет источник времени.
func (b *TokenBucket) WithClock(now func() time.Time) *TokenBucket {
	b.now = now
	b.lastSweep = now()
	return b
}

// Allow забирает токен из корзины ключа key.
func (b *TokenBucket) Allow(_ context.Context, key string) (bool, error) {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sweep(now)

	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{lim: rate.NewLimiter(b.rps, b.burst)}
		b.buckets[key] = bk
	}
	bk.lastSeen = now
	return bk.lim.AllowN(now, 1), nil
}

// sweep удаляет корзины, которые успели наполниться целиком: новая корзина
// для того же ключа ведёт себя так же.
func (b *TokenBucket) sweep(now time.Time) {
	if now.Sub(b.lastSweep) < b.idle {
		return
	}
	for k, bk := range b.buckets {
		if now.Sub(bk.lastSeen) >= b.idle {
			delete(b.buckets, k)
		}
	}
	b.lastSweep = now
}
