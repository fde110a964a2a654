// Package models defines session state structures for YonkeBot flows.
package models

import "time"

// Session represents a sender's in-progress multi-turn conversation.
type Session struct {
	Sender    string             `json:"sender"`
	Flow      FlowType           `json:"flow"`
	Step      StepTag            `json:"step"`
	Data      map[DataKey]string `json:"data,omitempty"` // partial values collected so far
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewSession starts a session for sender at the given step.
func NewSession(sender string, step StepTag, now time.Time) Session {
	return Session{
		Sender:    sender,
		Flow:      FlowOf(step),
		Step:      step,
		Data:      make(map[DataKey]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share the data map.
func (s Session) Clone() Session {
	c := s
	c.Data = make(map[DataKey]string, len(s.Data))
	for k, v := range s.Data {
		c.Data[k] = v
	}
	return c
}

// Get returns a data value or "" when absent.
func (s Session) Get(key DataKey) string {
	if s.Data == nil {
		return ""
	}
	return s.Data[key]
}

// Set stores a data value, allocating the map on first use.
func (s *Session) Set(key DataKey, value string) {
	if s.Data == nil {
		s.Data = make(map[DataKey]string)
	}
	s.Data[key] = value
}
