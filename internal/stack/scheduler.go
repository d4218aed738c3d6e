package stack

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultMaxVisible is the default stack capacity.
const DefaultMaxVisible = 5

// Options is the scheduler's admission and layout policy.
type Options struct {
	MaxVisible int
	Geometry   Geometry
}

// DefaultOptions returns the default policy.
func DefaultOptions() Options {
	return Options{
		MaxVisible: DefaultMaxVisible,
		Geometry:   DefaultGeometry(),
	}
}

func (o Options) normalized() Options {
	if o.MaxVisible < 1 {
		o.MaxVisible = DefaultMaxVisible
	}
	if o.Geometry.Anchor == "" {
		o.Geometry.Anchor = AnchorTopRight
	}
	return o
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithOptions sets the admission and layout policy.
func WithOptions(opts Options) Option {
	return func(s *Scheduler) { s.opts = opts.normalized() }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces ULID generation.
func WithIDGenerator(fn func() (ID, error)) Option {
	return func(s *Scheduler) { s.newID = fn }
}

// WithEvictObserver registers fn to run on the loop for every silently
// evicted id. It never sees ids that report an outcome.
func WithEvictObserver(fn func(id ID)) Option {
	return func(s *Scheduler) { s.onEvict = fn }
}

// Slot is one entry of the current layout.
type Slot struct {
	ID   ID
	Slot int
	Rect Rect
}

// Snapshot is a read-only view of a live instance.
type Snapshot struct {
	ID          ID
	State       State
	Slot        int
	Rect        Rect
	ActionTaken bool
	Remaining   time.Duration
	Paused      bool
	Request     Request
}

// Scheduler owns the ordered stack of live notifications. Index 0 of the
// stack is the newest, topmost instance. Every method must be called on the
// scheduler's loop.
type Scheduler struct {
	opts    Options
	surface Surface
	host    Host
	loop    Loop
	clock   Clock
	logger  *slog.Logger
	newID   func() (ID, error)
	onEvict func(id ID)

	order     []ID
	instances map[ID]*Controller
	screen    Rect // last screen seen, used when the surface loses its display
}

// New creates a scheduler rendering on surface and reporting to host. Timer
// callbacks are posted onto loop.
func New(surface Surface, host Host, loop Loop, opts ...Option) *Scheduler {
	if host == nil {
		host = HostFunc(func(Outcome) {})
	}
	s := &Scheduler{
		opts:      DefaultOptions(),
		surface:   surface,
		host:      host,
		loop:      loop,
		clock:     SystemClock{},
		logger:    slog.Default(),
		instances: make(map[ID]*Controller),
	}
	s.newID = s.newULID
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) newULID() (ID, error) {
	id, err := ulid.New(ulid.Timestamp(s.clock.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return ID(id.String()), nil
}

// Admit displays a new notification at slot 0 and returns its id. When that
// overfills the stack the oldest instance is evicted silently. A request that cannot
// be displayed is dropped with a warning and no id.
func (s *Scheduler) Admit(req Request) (ID, error) {
	if err := req.Validate(); err != nil {
		s.logger.Warn("rejected notification request", "title", req.Title, "error", err)
		return "", err
	}

	screen, ok := s.surface.Screen()
	if !ok {
		s.logger.Warn("no display available, dropping notification", "title", req.Title)
		return "", ErrNoDisplay
	}
	s.screen = screen

	id, err := s.newID()
	if err != nil {
		s.logger.Warn("failed to allocate notification id", "error", err)
		return "", err
	}

	anim := req.Animation
	if anim == "" {
		anim = AnimationNone
	}
	target := Position(0, req.Width, req.Height, nil, screen, s.opts.Geometry)
	content := Content{
		ID:                id,
		AppName:           req.AppName,
		Title:             req.Title,
		Subtitle:          req.Subtitle,
		SecondarySubtitle: req.SecondarySubtitle,
		ActionLabel:       req.ActionLabel,
		ShowCountdown:     req.ShowCountdown,
		Duration:          req.Duration,
		Deadline:          s.clock.Now().Add(req.Duration),
		Animation:         anim,
		From:              EntranceRect(target, anim, screen),
	}

	panel, err := s.surface.CreatePanel(target, content)
	if err != nil {
		s.logger.Warn("failed to create panel, dropping notification", "title", req.Title, "error", err)
		return "", fmt.Errorf("create panel: %w", err)
	}

	c := NewController(id, req, ControllerConfig{
		Surface:  s.surface,
		Panel:    panel,
		Rect:     target,
		Clock:    s.clock,
		Loop:     s.loop,
		Logger:   s.logger,
		OnClosed: s.HandleClosed,
	})
	s.order = slices.Insert(s.order, 0, id)
	s.instances[id] = c
	c.Arm(req.Duration)

	// Evict after the new panel exists; a failed admission leaves the stack untouched.
	for len(s.order) > s.opts.MaxVisible {
		s.evictOldest()
	}
	s.relayout(id)

	s.logger.Debug("admitted notification",
		"id", id,
		"title", req.Title,
		"duration", req.Duration,
		"stack_size", len(s.order),
	)
	return id, nil
}

// HandleClosed is the outcome callback of every controller. It removes the
// instance, repositions the survivors and only then reports to the host, so a
// host that re-enters the scheduler sees a consistent stack. Unknown ids are
// logged and ignored.
func (s *Scheduler) HandleClosed(id ID, actionTaken bool, trigger Trigger) {
	idx := slices.Index(s.order, id)
	c, ok := s.instances[id]
	if idx < 0 || !ok {
		s.logger.Debug("ignoring close for unknown notification", "id", id, "trigger", trigger)
		return
	}

	s.order = slices.Delete(s.order, idx, idx+1)
	delete(s.instances, id)
	s.relayout("")

	outcome := Outcome{
		ID:          id,
		Effect:      outcomeEffect(c.req, actionTaken, trigger),
		Trigger:     trigger,
		ActionTaken: actionTaken,
		ActionKey:   c.req.ActionKey,
	}

	s.logger.Debug("notification closed",
		"id", id,
		"slot", idx,
		"trigger", trigger,
		"effect", outcome.Effect,
		"action_taken", actionTaken,
	)
	s.host.ReportOutcome(outcome)
}

func outcomeEffect(req Request, actionTaken bool, trigger Trigger) Effect {
	switch {
	case actionTaken:
		return req.resolvedActionEffect()
	case trigger == TriggerTimeout:
		return req.resolvedTimeoutEffect()
	default:
		return EffectDismiss
	}
}

// Activate runs the primary action of a notification: the action is marked
// taken and the instance closes. It returns false if the id is not live.
func (s *Scheduler) Activate(id ID) bool {
	c, ok := s.instances[id]
	if !ok {
		s.logger.Debug("activate for unknown notification", "id", id)
		return false
	}
	if !c.MarkActionTaken() {
		return false
	}
	c.Close()
	return true
}

// Dismiss closes a notification on behalf of the user without its action.
func (s *Scheduler) Dismiss(id ID) bool {
	return s.closeWith(id, TriggerUserAction)
}

// Close closes a notification at the host's request.
func (s *Scheduler) Close(id ID) bool {
	return s.closeWith(id, TriggerRequest)
}

func (s *Scheduler) closeWith(id ID, trigger Trigger) bool {
	c, ok := s.instances[id]
	if !ok {
		s.logger.Debug("close for unknown notification", "id", id, "trigger", trigger)
		return false
	}
	c.CloseWith(trigger)
	return true
}

// Evict removes one notification without reporting an outcome.
func (s *Scheduler) Evict(id ID) bool {
	if !s.evict(id) {
		return false
	}
	s.relayout("")
	return true
}

// EvictAll removes every notification without reporting any outcome. All
// timers are cancelled before any panel is torn down.
func (s *Scheduler) EvictAll() {
	for _, id := range s.order {
		s.instances[id].cancelTimer()
	}

	order := s.order
	instances := s.instances
	s.order = nil
	s.instances = make(map[ID]*Controller)

	for _, id := range order {
		instances[id].CloseSilently()
		s.notifyEvicted(id)
	}

	if len(order) > 0 {
		s.logger.Debug("evicted all notifications", "count", len(order))
	}
}

// Pause stops a notification's countdown.
func (s *Scheduler) Pause(id ID) {
	if c, ok := s.instances[id]; ok {
		c.Pause()
	}
}

// Resume restarts a paused countdown with the time that was left.
func (s *Scheduler) Resume(id ID) {
	if c, ok := s.instances[id]; ok {
		c.Resume()
	}
}

// Reconfigure applies a new policy. Shrinking MaxVisible silently evicts the
// oldest instances; every survivor is repositioned.
func (s *Scheduler) Reconfigure(opts Options) {
	opts = opts.normalized()
	old := s.opts
	s.opts = opts

	for len(s.order) > s.opts.MaxVisible {
		s.evictOldest()
	}
	s.relayout("")

	s.logger.Debug("scheduler reconfigured",
		"old_max_visible", old.MaxVisible,
		"new_max_visible", opts.MaxVisible,
		"anchor", opts.Geometry.Anchor,
	)
}

// Options returns the current policy.
func (s *Scheduler) Options() Options {
	return s.opts
}

// Len returns the number of live notifications.
func (s *Scheduler) Len() int {
	return len(s.order)
}

// Order returns the live ids, newest first.
func (s *Scheduler) Order() []ID {
	return slices.Clone(s.order)
}

// Layout returns every live slot with its current rectangle.
func (s *Scheduler) Layout() []Slot {
	slots := make([]Slot, len(s.order))
	for i, id := range s.order {
		slots[i] = Slot{ID: id, Slot: i, Rect: s.instances[id].rect}
	}
	return slots
}

// Lookup returns a snapshot of a live notification.
func (s *Scheduler) Lookup(id ID) (Snapshot, bool) {
	c, ok := s.instances[id]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		ID:          id,
		State:       c.state,
		Slot:        c.slot,
		Rect:        c.rect,
		ActionTaken: c.actionTaken.Load(),
		Remaining:   c.Remaining(),
		Paused:      c.paused,
		Request:     c.req,
	}, true
}

func (s *Scheduler) evictOldest() {
	if len(s.order) == 0 {
		return
	}
	s.evict(s.order[len(s.order)-1])
}

// evict drops id from the stack and closes it silently. The caller relayouts.
func (s *Scheduler) evict(id ID) bool {
	idx := slices.Index(s.order, id)
	c, ok := s.instances[id]
	if idx < 0 || !ok {
		s.logger.Debug("evict for unknown notification", "id", id)
		return false
	}
	s.order = slices.Delete(s.order, idx, idx+1)
	delete(s.instances, id)
	c.CloseSilently()
	s.notifyEvicted(id)

	s.logger.Debug("evicted notification", "id", id, "slot", idx)
	return true
}

func (s *Scheduler) notifyEvicted(id ID) {
	if s.onEvict != nil {
		s.onEvict(id)
	}
}

// relayout recomputes every rectangle from scratch and moves each instance
// whose rectangle changed. skip is the freshly admitted instance, which is
// already at its target.
func (s *Scheduler) relayout(skip ID) {
	if screen, ok := s.surface.Screen(); ok {
		s.screen = screen
	}

	sizes := make([]Size, len(s.order))
	for i, id := range s.order {
		c := s.instances[id]
		sizes[i] = Size{Width: c.req.Width, Height: c.req.Height}
	}
	rects := Layout(sizes, s.screen, s.opts.Geometry)

	for i, id := range s.order {
		c := s.instances[id]
		c.slot = i
		if id == skip || c.rect == rects[i] {
			continue
		}
		c.move(rects[i], true)
	}
}
