// Package capture drives the participant flow: landing → consent → camera →
// preview → confirm → share → done. The transition rules live in a pure
// reducer over an explicit state value; Driver layers the preview
// auto-advance timer and metric emission on top.
package capture

import (
	"errors"
	"fmt"
)

type Step int

const (
	StepLanding Step = iota
	StepConsent
	StepCamera
	StepPreview
	StepConfirm
	StepShare
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepLanding:
		return "landing"
	case StepConsent:
		return "consent"
	case StepCamera:
		return "camera"
	case StepPreview:
		return "preview"
	case StepConfirm:
		return "confirm"
	case StepShare:
		return "share"
	case StepDone:
		return "done"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Policy is the slice of the event projection the machine validates against.
type Policy struct {
	MaxCaptures        int
	HasConsentTemplate bool
}

// State is the whole machine state. Values are copied through Reduce; the
// zero value is a fresh visit on the landing step.
type State struct {
	Step             Step
	CaptureCount     int
	SessionID        string
	AlreadySubmitted bool
	// AgreeParticipate is the landing consent; AgreeReuse is the separate
	// confirm-time consent. Both are independently required when a consent
	// template exists — neither implies the other.
	AgreeParticipate bool
	AgreeReuse       bool
	HasPendingPhoto  bool
}

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConsentRequired   = errors.New("consent required")
	ErrSessionNotReady   = errors.New("session not ready")
	ErrRetakeExhausted   = errors.New("retake limit reached")
)

// Actions form the tagged union the reducer accepts.
type Action interface{ isAction() }

// Enter advances landing to the consent gate.
type Enter struct{}

// TickConsent records the landing consent checkbox.
type TickConsent struct{ Agree bool }

// SessionReady delivers the session id (or the already-submitted verdict)
// from the server.
type SessionReady struct {
	SessionID        string
	AlreadySubmitted bool
}

// StartCamera moves from the consent gate to the camera.
type StartCamera struct{}

// Capture takes one still frame.
type Capture struct{}

// Retake discards the pending frame and returns to the camera.
type Retake struct{}

// Keep advances preview to confirm, either by participant action or by the
// auto-advance timer.
type Keep struct{ Auto bool }

// TickReuseConsent records the confirm-time reuse consent checkbox.
type TickReuseConsent struct{ Agree bool }

// SubmitSucceeded advances confirm to share after a committed submission.
type SubmitSucceeded struct{}

// SubmitConflicted routes a duplicate-submit conflict to done.
type SubmitConflicted struct{}

// Dismiss closes the share step.
type Dismiss struct{}

func (Enter) isAction()            {}
func (TickConsent) isAction()      {}
func (SessionReady) isAction()     {}
func (StartCamera) isAction()      {}
func (Capture) isAction()          {}
func (Retake) isAction()           {}
func (Keep) isAction()             {}
func (TickReuseConsent) isAction() {}
func (SubmitSucceeded) isAction()  {}
func (SubmitConflicted) isAction() {}
func (Dismiss) isAction()          {}

// NewState returns the landing state. Without a consent template the landing
// consent is implicitly satisfied.
func NewState(p Policy) State {
	return State{
		Step:             StepLanding,
		AgreeParticipate: !p.HasConsentTemplate,
	}
}

// Reduce applies one action. It is pure: no clocks, no IO, no mutation of
// the input. Transitions are forward-only except the explicit retake loop.
func Reduce(p Policy, st State, a Action) (State, error) {
	switch act := a.(type) {
	case Enter:
		if st.Step != StepLanding {
			return st, fmt.Errorf("%w: enter from %s", ErrInvalidTransition, st.Step)
		}
		st.Step = StepConsent
		return st, nil

	case TickConsent:
		if st.Step != StepLanding && st.Step != StepConsent {
			return st, fmt.Errorf("%w: consent tick from %s", ErrInvalidTransition, st.Step)
		}
		st.AgreeParticipate = act.Agree || !p.HasConsentTemplate
		return st, nil

	case SessionReady:
		// Arrives asynchronously; valid any time before the camera opens.
		if st.Step > StepConsent {
			return st, nil
		}
		st.SessionID = act.SessionID
		if act.AlreadySubmitted {
			st.AlreadySubmitted = true
			st.Step = StepDone
		}
		return st, nil

	case StartCamera:
		if st.Step != StepConsent {
			return st, fmt.Errorf("%w: start camera from %s", ErrInvalidTransition, st.Step)
		}
		if !st.AgreeParticipate {
			return st, ErrConsentRequired
		}
		if st.SessionID == "" {
			return st, ErrSessionNotReady
		}
		st.Step = StepCamera
		return st, nil

	case Capture:
		if st.Step != StepCamera {
			return st, fmt.Errorf("%w: capture from %s", ErrInvalidTransition, st.Step)
		}
		st.CaptureCount++
		st.HasPendingPhoto = true
		st.Step = StepPreview
		return st, nil

	case Retake:
		if st.Step != StepPreview {
			return st, fmt.Errorf("%w: retake from %s", ErrInvalidTransition, st.Step)
		}
		// Retakes consume the ceiling; the counter never decrements.
		if st.CaptureCount >= p.MaxCaptures {
			return st, ErrRetakeExhausted
		}
		st.HasPendingPhoto = false
		st.Step = StepCamera
		return st, nil

	case Keep:
		if st.Step != StepPreview {
			if act.Auto {
				// Stale timer firing after a state-changing action; ignore.
				return st, nil
			}
			return st, fmt.Errorf("%w: keep from %s", ErrInvalidTransition, st.Step)
		}
		st.Step = StepConfirm
		return st, nil

	case TickReuseConsent:
		if st.Step != StepConfirm {
			return st, fmt.Errorf("%w: reuse consent tick from %s", ErrInvalidTransition, st.Step)
		}
		st.AgreeReuse = act.Agree
		return st, nil

	case SubmitSucceeded:
		if st.Step != StepConfirm {
			return st, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, st.Step)
		}
		if p.HasConsentTemplate && !st.AgreeReuse {
			return st, ErrConsentRequired
		}
		st.Step = StepShare
		return st, nil

	case SubmitConflicted:
		if st.Step != StepConfirm {
			return st, fmt.Errorf("%w: submit conflict from %s", ErrInvalidTransition, st.Step)
		}
		st.AlreadySubmitted = true
		st.Step = StepDone
		return st, nil

	case Dismiss:
		if st.Step != StepShare {
			return st, fmt.Errorf("%w: dismiss from %s", ErrInvalidTransition, st.Step)
		}
		st.Step = StepDone
		return st, nil
	}

	return st, fmt.Errorf("%w: unknown action %T", ErrInvalidTransition, a)
}

// CanSubmit reports whether the confirm step may fire a submit: pending
// photo present and, when a consent template exists, reuse consent given.
func CanSubmit(p Policy, st State) bool {
	if st.Step != StepConfirm || !st.HasPendingPhoto {
		return false
	}
	if p.HasConsentTemplate && !st.AgreeReuse {
		return false
	}
	return true
}
