// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package gpiorelay

// Listener receives notification of relay transitions.
//
// OnActionInitiated is called before the coils are pulsed and
// OnActionCompleted after the pulse, before the new state is recorded.
// Both are called from the goroutine calling InitiateAction and should
// return promptly.
type Listener interface {
	OnActionInitiated(action Action, actor Actor)
	OnActionCompleted(action Action, actor Actor)
}

// ListenerFuncs adapts a pair of functions to a Listener.
//
// Either function may be nil.
type ListenerFuncs struct {
	Initiated func(Action, Actor)
	Completed func(Action, Actor)
}

// OnActionInitiated calls Initiated, if set.
func (l ListenerFuncs) OnActionInitiated(action Action, actor Actor) {
	if l.Initiated != nil {
		l.Initiated(action, actor)
	}
}

// OnActionCompleted calls Completed, if set.
func (l ListenerFuncs) OnActionCompleted(action Action, actor Actor) {
	if l.Completed != nil {
		l.Completed(action, actor)
	}
}
