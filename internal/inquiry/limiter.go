package inquiry

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter 依送信元（IP）限制公開的送信次數。
// 背景 goroutine 定期清掉太久沒用的 entry，用完要呼叫 Stop。
type Limiter struct {
	r     rate.Limit
	burst int
	ttl   time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewLimiter(r rate.Limit, burst int, ttl time.Duration) *Limiter {
	l := &Limiter{
		r:       r,
		burst:   burst,
		ttl:     ttl,
		clients: map[string]*clientLimiter{},
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.r, l.burst)}
		l.clients[key] = c
	}
	c.lastAccess = now
	l.mu.Unlock()
	return c.limiter.AllowN(now, 1)
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop 可以重複呼叫；回傳時清理 goroutine 已結束
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.done
}

func (l *Limiter) cleanupLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, c := range l.clients {
		if now.Sub(c.lastAccess) > l.ttl {
			delete(l.clients, k)
		}
	}
}
