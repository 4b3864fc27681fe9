package core

import "time"

// Window is the bidding period of an auction. Both bounds are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow computes the window for an auction opened at now.
func NewWindow(now time.Time, startDelay, duration time.Duration) Window {
	start := now.Add(startDelay)
	return Window{Start: start, End: start.Add(duration)}
}

// WindowOf returns the bidding window recorded on a.
func WindowOf(a Auction) Window {
	return Window{Start: a.StartTime, End: a.EndTime}
}

// Accepting reports whether a bid placed at now falls inside the window.
func (w Window) Accepting(now time.Time) bool {
	return !now.Before(w.Start) && !now.After(w.End)
}

// Cancelable reports whether the seller may still cancel at now.
func (w Window) Cancelable(now time.Time) bool {
	return !now.After(w.End)
}

// Closable reports whether the auction may be ended at now.
func (w Window) Closable(now time.Time) bool {
	return now.After(w.End)
}
