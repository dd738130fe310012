package store

import (
	"sync"

	"envgate-server/internal/modules/gateway/types"
)

// Latest holds the most recently processed envelope. The zero value is empty
// and ready to use.
type Latest struct {
	mu  sync.RWMutex
	env types.Envelope
	set bool
}

func NewLatest() *Latest {
	return &Latest{}
}

func (l *Latest) Set(env types.Envelope) {
	if env.Location != nil {
		loc := *env.Location
		env.Location = &loc
	}
	l.mu.Lock()
	l.env = env
	l.set = true
	l.mu.Unlock()
}

// Get returns the stored envelope and whether anything has been stored yet.
func (l *Latest) Get() (types.Envelope, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	env := l.env
	if env.Location != nil {
		loc := *env.Location
		env.Location = &loc
	}
	return env, l.set
}
