package stack

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// closedFunc is the outcome callback a Controller invokes at most once.
type closedFunc func(id ID, actionTaken bool, trigger Trigger)

// Controller owns one notification's timer, panel and outcome reporting.
// Apart from the claim and action flags, its fields are only touched on the loop.
type Controller struct {
	id      ID
	req     Request
	surface Surface
	panel   PanelHandle
	clock   Clock
	loop    Loop
	logger  *slog.Logger

	state State
	slot  int
	rect  Rect

	// claimed is the single-use guard: whichever close path swaps it first
	// owns the transition out of StateDisplayed.
	claimed     atomic.Bool
	actionTaken atomic.Bool

	timer      Timer
	generation uint64 // bumped on every arm or pause; stale timer posts compare against it
	deadline   time.Time
	remaining  time.Duration
	paused     bool

	onClosed closedFunc
}

// ControllerConfig carries a Controller's collaborators.
type ControllerConfig struct {
	Surface  Surface
	Panel    PanelHandle
	Rect     Rect
	Clock    Clock
	Loop     Loop
	Logger   *slog.Logger
	OnClosed func(id ID, actionTaken bool, trigger Trigger)
}

// NewController creates a displayed, unarmed controller for an admitted request.
func NewController(id ID, req Request, cfg ControllerConfig) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		id:       id,
		req:      req,
		surface:  cfg.Surface,
		panel:    cfg.Panel,
		rect:     cfg.Rect,
		clock:    cfg.Clock,
		loop:     cfg.Loop,
		logger:   cfg.Logger,
		state:    StateDisplayed,
		onClosed: cfg.OnClosed,
	}
}

// ID returns the instance id.
func (c *Controller) ID() ID {
	return c.id
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// ActionTaken reports whether the primary action was taken.
func (c *Controller) ActionTaken() bool {
	return c.actionTaken.Load()
}

// Arm starts the auto-close timer. Re-arming replaces any pending timer.
func (c *Controller) Arm(d time.Duration) {
	if c.claimed.Load() {
		return
	}
	c.stopTimer()

	c.generation++
	gen := c.generation
	c.deadline = c.clock.Now().Add(d)
	c.remaining = d
	c.paused = false
	c.timer = c.clock.AfterFunc(d, func() {
		c.loop.Post(func() { c.expire(gen) })
	})
}

// MarkActionTaken records that the user chose the primary action. It must be
// called before Close on the action path and returns false once the instance
// has already been claimed by another path.
func (c *Controller) MarkActionTaken() bool {
	if c.claimed.Load() {
		return false
	}
	c.actionTaken.Store(true)
	return true
}

// Close closes the instance on behalf of the user and reports the outcome.
func (c *Controller) Close() {
	c.CloseWith(TriggerUserAction)
}

// CloseWith closes the instance and reports the outcome with the given trigger.
// Only the first close wins; later calls, including a timer that already
// fired, are no-ops.
func (c *Controller) CloseWith(trigger Trigger) {
	if !c.claimed.CompareAndSwap(false, true) {
		c.logger.Debug("notification already closing", "id", c.id, "trigger", trigger)
		return
	}
	c.state = StateClosing
	c.stopTimer()

	taken := trigger != TriggerTimeout && c.actionTaken.Load()
	cb := c.onClosed
	c.onClosed = nil

	c.releasePanel()
	if cb != nil {
		cb(c.id, taken, trigger)
	}
	c.state = StateClosed
}

// CloseSilently tears the instance down without reporting an outcome.
func (c *Controller) CloseSilently() {
	c.onClosed = nil
	if !c.claimed.CompareAndSwap(false, true) {
		return
	}
	c.stopTimer()
	c.releasePanel()
	c.state = StateClosed
}

// Pause stops the countdown, keeping the remaining time.
func (c *Controller) Pause() {
	if c.claimed.Load() || c.paused || c.timer == nil {
		return
	}
	c.stopTimer()
	c.generation++

	c.remaining = c.deadline.Sub(c.clock.Now())
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.paused = true
	c.updateCountdown()
}

// Resume re-arms the timer with the time left when it was paused.
func (c *Controller) Resume() {
	if c.claimed.Load() || !c.paused {
		return
	}
	c.Arm(c.remaining)
	c.updateCountdown()
}

// Remaining returns the time left before the timer fires.
func (c *Controller) Remaining() time.Duration {
	if c.paused {
		return c.remaining
	}
	if r := c.deadline.Sub(c.clock.Now()); r > 0 {
		return r
	}
	return 0
}

// move records the new slot rectangle and asks the surface to animate there.
func (c *Controller) move(rect Rect, animated bool) {
	c.rect = rect
	if c.claimed.Load() {
		return
	}
	c.surface.MovePanel(c.panel, rect, animated)
}

// cancelTimer stops the timer without changing state.
func (c *Controller) cancelTimer() {
	c.stopTimer()
	c.generation++
}

func (c *Controller) expire(gen uint64) {
	if gen != c.generation || c.paused {
		return
	}
	c.CloseWith(TriggerTimeout)
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) releasePanel() {
	if c.surface != nil {
		c.surface.DestroyPanel(c.panel)
	}
}

// updateCountdown tells the surface about every pause and resume, countdown
// bar or not. Surfaces track the paused state from it.
func (c *Controller) updateCountdown() {
	cs, ok := c.surface.(CountdownSurface)
	if !ok {
		return
	}
	cs.SetCountdown(c.panel, c.Remaining(), c.paused)
}
