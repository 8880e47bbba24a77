package main

import (
	"sync"

	"github.com/driverlab/persona-gateway/internal/session"
)

// liveSession is one participant's HTTP-mode state: the per-condition
// history plus the last run, kept so a later save request can write the
// chosen condition to the results file.
type liveSession struct {
	mu      sync.Mutex
	history *session.History
	lastReq session.RunRequest
	lastRun *session.RunResult
}

// sessionRegistry hands out one liveSession per participant ID.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*liveSession)}
}

func (r *sessionRegistry) get(participantID string) *liveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[participantID]
	if !ok {
		ls = &liveSession{history: session.NewHistory()}
		r.sessions[participantID] = ls
	}
	return ls
}
