package scheduler

import (
	"fmt"
	"slices"
)

// State is the phase of a single scheduling attempt.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateProvisioning
	StatePersisting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateProvisioning:
		return "provisioning"
	case StatePersisting:
		return "persisting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// Observer sees every transition of every attempt.
type Observer func(initiatorID string, from, to State)

var transitions = map[State][]State{
	StateIdle:         {StateValidating},
	StateValidating:   {StateProvisioning, StateFailed},
	StateProvisioning: {StatePersisting, StateFailed},
	StatePersisting:   {StateSucceeded, StateFailed},
}

type attempt struct {
	initiator string
	state     State
	observer  Observer
}

func (a *attempt) to(next State) {
	if !slices.Contains(transitions[a.state], next) {
		panic(fmt.Sprintf("scheduler: illegal transition %s -> %s", a.state, next))
	}
	prev := a.state
	a.state = next
	if a.observer != nil {
		a.observer(a.initiator, prev, next)
	}
}
