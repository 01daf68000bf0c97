package capture

import (
	"errors"
	"testing"
)

func applyAll(t *testing.T, p Policy, st State, actions ...Action) State {
	t.Helper()
	for _, a := range actions {
		next, err := Reduce(p, st, a)
		if err != nil {
			t.Fatalf("Failed to apply %T at %s: %v", a, st.Step, err)
		}
		st = next
	}
	return st
}

func TestFullVisitWithConsentAndRetakes(t *testing.T) {
	// retake_max_count = 3, so three captures total
	policy := Policy{MaxCaptures: 3, HasConsentTemplate: true}
	st := NewState(policy)

	if st.Step != StepLanding {
		t.Fatalf("Expected landing, got %s", st.Step)
	}
	if st.AgreeParticipate {
		t.Error("Consent template must not be implicitly satisfied")
	}

	st = applyAll(t, policy, st,
		Enter{},
		TickConsent{Agree: true},
		SessionReady{SessionID: "sess-1"},
		StartCamera{},
		Capture{},
		Retake{},
		Capture{},
		Retake{},
		Capture{},
	)

	if st.CaptureCount != 3 {
		t.Errorf("Expected capture count 3, got %d", st.CaptureCount)
	}
	if st.Step != StepPreview {
		t.Fatalf("Expected preview, got %s", st.Step)
	}

	// Ceiling reached, another retake must fail and leave state unchanged
	failed, err := Reduce(policy, st, Retake{})
	if !errors.Is(err, ErrRetakeExhausted) {
		t.Fatalf("Expected ErrRetakeExhausted, got %v", err)
	}
	if failed.Step != StepPreview || failed.CaptureCount != 3 {
		t.Error("Failed retake must not change state")
	}

	st = applyAll(t, policy, st,
		Keep{},
		TickReuseConsent{Agree: true},
		SubmitSucceeded{},
		Dismiss{},
	)
	if st.Step != StepDone {
		t.Errorf("Expected done, got %s", st.Step)
	}
}

func TestStartCameraRequiresConsentAndSession(t *testing.T) {
	policy := Policy{MaxCaptures: 1, HasConsentTemplate: true}
	st := applyAll(t, policy, NewState(policy), Enter{})

	if _, err := Reduce(policy, st, StartCamera{}); !errors.Is(err, ErrConsentRequired) {
		t.Errorf("Expected ErrConsentRequired, got %v", err)
	}

	st = applyAll(t, policy, st, TickConsent{Agree: true})
	if _, err := Reduce(policy, st, StartCamera{}); !errors.Is(err, ErrSessionNotReady) {
		t.Errorf("Expected ErrSessionNotReady, got %v", err)
	}

	st = applyAll(t, policy, st, SessionReady{SessionID: "sess-1"}, StartCamera{})
	if st.Step != StepCamera {
		t.Errorf("Expected camera, got %s", st.Step)
	}
}

func TestNoConsentTemplateImplicitlySatisfied(t *testing.T) {
	policy := Policy{MaxCaptures: 1}
	st := NewState(policy)

	if !st.AgreeParticipate {
		t.Fatal("Landing consent must be implicitly satisfied without a template")
	}

	st = applyAll(t, policy, st,
		Enter{},
		SessionReady{SessionID: "sess-1"},
		StartCamera{},
		Capture{},
		Keep{},
		SubmitSucceeded{}, // no reuse consent needed without a template
	)
	if st.Step != StepShare {
		t.Errorf("Expected share, got %s", st.Step)
	}
}

func TestReuseConsentRequiredToSubmit(t *testing.T) {
	policy := Policy{MaxCaptures: 1, HasConsentTemplate: true}
	st := applyAll(t, policy, NewState(policy),
		Enter{},
		TickConsent{Agree: true},
		SessionReady{SessionID: "sess-1"},
		StartCamera{},
		Capture{},
		Keep{},
	)

	// Landing consent does not imply reuse consent
	if _, err := Reduce(policy, st, SubmitSucceeded{}); !errors.Is(err, ErrConsentRequired) {
		t.Errorf("Expected ErrConsentRequired, got %v", err)
	}
	if CanSubmit(policy, st) {
		t.Error("CanSubmit must be false without reuse consent")
	}

	st = applyAll(t, policy, st, TickReuseConsent{Agree: true})
	if !CanSubmit(policy, st) {
		t.Error("CanSubmit must be true with reuse consent and a pending photo")
	}
	st = applyAll(t, policy, st, SubmitSucceeded{})
	if st.Step != StepShare {
		t.Errorf("Expected share, got %s", st.Step)
	}
}

func TestAlreadySubmittedShortCircuits(t *testing.T) {
	policy := Policy{MaxCaptures: 3, HasConsentTemplate: true}
	st := applyAll(t, policy, NewState(policy),
		Enter{},
		SessionReady{SessionID: "sess-1", AlreadySubmitted: true},
	)

	if st.Step != StepDone {
		t.Fatalf("Expected done, got %s", st.Step)
	}
	if !st.AlreadySubmitted {
		t.Error("AlreadySubmitted flag not set")
	}
	if _, err := Reduce(policy, st, StartCamera{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition after short-circuit, got %v", err)
	}
}

func TestLateSessionReadyIsIgnored(t *testing.T) {
	policy := Policy{MaxCaptures: 1}
	st := applyAll(t, policy, NewState(policy),
		Enter{},
		SessionReady{SessionID: "sess-1"},
		StartCamera{},
	)

	// A stale server response after the camera opened must not move the
	// machine, even if it claims already_submitted.
	next, err := Reduce(policy, st, SessionReady{SessionID: "sess-2", AlreadySubmitted: true})
	if err != nil {
		t.Fatalf("Late SessionReady errored: %v", err)
	}
	if next != st {
		t.Errorf("Late SessionReady changed state: %+v -> %+v", st, next)
	}
}

func TestSubmitConflictRoutesToDone(t *testing.T) {
	policy := Policy{MaxCaptures: 1}
	st := applyAll(t, policy, NewState(policy),
		Enter{},
		SessionReady{SessionID: "sess-1"},
		StartCamera{},
		Capture{},
		Keep{},
		SubmitConflicted{},
	)

	if st.Step != StepDone {
		t.Errorf("Expected done, got %s", st.Step)
	}
	if !st.AlreadySubmitted {
		t.Error("Conflict must mark the session as already submitted")
	}
}

func TestAutoKeepOffPreviewIsIgnored(t *testing.T) {
	policy := Policy{MaxCaptures: 2}
	st := applyAll(t, policy, NewState(policy),
		Enter{},
		SessionReady{SessionID: "sess-1"},
		StartCamera{},
		Capture{},
		Retake{},
	)

	// The timer armed on preview may fire after the participant retook;
	// its Keep must be swallowed, not advance camera to confirm.
	next, err := Reduce(policy, st, Keep{Auto: true})
	if err != nil {
		t.Fatalf("Stale auto keep errored: %v", err)
	}
	if next.Step != StepCamera {
		t.Errorf("Expected camera, got %s", next.Step)
	}

	// A manual Keep in the wrong step is still an error
	if _, err := Reduce(policy, st, Keep{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestForwardOnlyProgression(t *testing.T) {
	policy := Policy{MaxCaptures: 1}

	cases := []struct {
		name   string
		state  State
		action Action
	}{
		{"enter from camera", State{Step: StepCamera}, Enter{}},
		{"capture from confirm", State{Step: StepConfirm}, Capture{}},
		{"retake from confirm", State{Step: StepConfirm}, Retake{}},
		{"submit from share", State{Step: StepShare}, SubmitSucceeded{}},
		{"dismiss from confirm", State{Step: StepConfirm}, Dismiss{}},
		{"consent tick from camera", State{Step: StepCamera}, TickConsent{Agree: true}},
		{"reuse tick from preview", State{Step: StepPreview}, TickReuseConsent{Agree: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Reduce(policy, tc.state, tc.action)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("Expected ErrInvalidTransition, got %v", err)
			}
			if next != tc.state {
				t.Error("Failed action must not change state")
			}
		})
	}
}

func TestRetakeKeepsPendingPhotoBookkeeping(t *testing.T) {
	policy := Policy{MaxCaptures: 2}
	st := applyAll(t, policy, NewState(policy),
		Enter{},
		SessionReady{SessionID: "sess-1"},
		StartCamera{},
		Capture{},
	)

	if !st.HasPendingPhoto {
		t.Error("Capture must set the pending photo")
	}

	st = applyAll(t, policy, st, Retake{})
	if st.HasPendingPhoto {
		t.Error("Retake must discard the pending photo")
	}
	if st.CaptureCount != 1 {
		t.Errorf("Retake must not decrement the counter, got %d", st.CaptureCount)
	}
}
