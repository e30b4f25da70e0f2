package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Status is the lifecycle state of an order. The order store is the only
// source of truth for it; clients request transitions and re-read.
type Status string

// Order statuses.
const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// ErrIllegalTransition matches every *IllegalTransitionError.
var ErrIllegalTransition = errors.New("illegal status transition")

// ErrUnknownStatus is returned by ParseStatus.
var ErrUnknownStatus = errors.New("unknown order status")

// IllegalTransitionError reports a requested status that is not reachable
// from the current one.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("order is %s and can no longer change (requested %s)", e.From, e.To)
	}
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// Is makes errors.Is(err, ErrIllegalTransition) match.
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// flow is the forward path; cancelled hangs off every non-terminal state.
var flow = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
}

// transitions is the single transition table shared by the tracking view,
// the admin console and the order store.
var transitions = buildTransitions()

func buildTransitions() map[Status][]Status {
	t := make(map[Status][]Status, len(flow)+1)
	for i, s := range flow[:len(flow)-1] {
		t[s] = []Status{flow[i+1], StatusCancelled}
	}
	t[StatusDelivered] = nil
	t[StatusCancelled] = nil
	return t
}

// Statuses returns every status in display order.
func Statuses() []Status {
	return append(append([]Status(nil), flow...), StatusCancelled)
}

// ParseStatus converts s into a known Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// Successors returns the statuses directly reachable from s.
func Successors(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

// CanTransition reports whether requested is directly reachable from current.
func CanTransition(current, requested Status) bool {
	for _, next := range transitions[current] {
		if next == requested {
			return true
		}
	}
	return false
}

// Transition returns requested when it is reachable from current. Otherwise
// it returns current unchanged and an *IllegalTransitionError.
func Transition(current, requested Status) (Status, error) {
	if !CanTransition(current, requested) {
		return current, &IllegalTransitionError{From: current, To: requested}
	}
	return requested, nil
}

// Step returns the position of s on the forward path (0 for pending) and
// false for cancelled or unknown statuses.
func Step(s Status) (int, bool) {
	for i, f := range flow {
		if f == s {
			return i, true
		}
	}
	return 0, false
}
