package capture

import (
	"sync"
	"time"

	"ms-photobooth/internal/models"
)

// PreviewAutoAdvance is how long a stalled participant may sit on the
// preview before the kiosk moves on without them.
const PreviewAutoAdvance = 30 * time.Second

// Clock abstracts timer creation so tests can fire the auto-advance
// deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Driver runs the reducer for one visit and owns the preview timer. Metric
// emission goes through OnMetric and can never fail a transition; network
// calls triggered by transitions happen outside the driver and feed results
// back in as actions.
type Driver struct {
	mu     sync.Mutex
	policy Policy
	state  State
	clock  Clock
	timer  Timer

	// OnMetric receives best-effort funnel facts (camera_complete,
	// save_click, outbound_click). Nil is fine.
	OnMetric func(metricType, platform string)
}

func NewDriver(policy Policy) *Driver {
	return NewDriverWithClock(policy, realClock{})
}

func NewDriverWithClock(policy Policy, clock Clock) *Driver {
	return &Driver{
		policy: policy,
		state:  NewState(policy),
		clock:  clock,
	}
}

func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Apply runs one action through the reducer, managing the preview timer
// around the transition. Any state-changing action cancels a pending
// auto-advance.
func (d *Driver) Apply(a Action) (State, error) {
	d.mu.Lock()

	next, err := Reduce(d.policy, d.state, a)
	if err != nil {
		st := d.state
		d.mu.Unlock()
		return st, err
	}

	if next.Step != d.state.Step {
		d.stopTimerLocked()
		if next.Step == StepPreview {
			d.timer = d.clock.AfterFunc(PreviewAutoAdvance, func() {
				d.Apply(Keep{Auto: true})
			})
		}
	}

	d.state = next
	d.mu.Unlock()

	// Emitted outside the lock so a recorder callback can never stall or
	// re-enter the machine mid-transition.
	if _, ok := a.(Capture); ok {
		d.emit(models.MetricCameraComplete, "")
	}

	return next, nil
}

// EmitSaveClick reports a caption copy on the share step.
func (d *Driver) EmitSaveClick() {
	d.mu.Lock()
	onShare := d.state.Step == StepShare
	d.mu.Unlock()
	if onShare {
		d.emit(models.MetricSaveClick, "")
	}
}

// EmitOutboundClick reports a platform link opened on the share step.
func (d *Driver) EmitOutboundClick(platform string) {
	d.mu.Lock()
	onShare := d.state.Step == StepShare
	d.mu.Unlock()
	if onShare {
		d.emit(models.MetricOutboundClick, platform)
	}
}

func (d *Driver) emit(metricType, platform string) {
	if d.OnMetric != nil {
		d.OnMetric(metricType, platform)
	}
}

func (d *Driver) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
