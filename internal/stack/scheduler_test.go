package stack

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AdmitPlacesNewestAtTop(t *testing.T) {
	f := newFixture()

	a, err := f.sched.Admit(testRequest("A", 10*time.Second))
	require.NoError(t, err)
	b, err := f.sched.Admit(testRequest("B", 10*time.Second))
	require.NoError(t, err)

	assert.Equal(t, []ID{b, a}, f.sched.Order())

	geom := DefaultGeometry()
	top := Position(0, 350, 100, nil, f.surface.screen, geom)
	second := Position(1, 350, 100, []float64{100}, f.surface.screen, geom)

	pb, ok := f.surface.panelFor(b)
	require.True(t, ok)
	assert.Equal(t, top, pb.rect)

	pa, ok := f.surface.panelFor(a)
	require.True(t, ok)
	assert.Equal(t, second, pa.rect)

	// Only the existing instance is moved, and the move is animated.
	require.Len(t, f.surface.moves, 1)
	assert.Equal(t, f.surface.byID[a], f.surface.moves[0].handle)
	assert.True(t, f.surface.moves[0].animated)
}

func TestScheduler_EvictsOldestSilently(t *testing.T) {
	f := newFixture()

	ids := make(map[string]ID)
	for _, title := range []string{"A", "B", "C", "D", "E", "F"} {
		id, err := f.sched.Admit(testRequest(title, 10*time.Second))
		require.NoError(t, err)
		ids[title] = id
	}

	assert.Equal(t, []ID{ids["F"], ids["E"], ids["D"], ids["C"], ids["B"]}, f.sched.Order())
	assert.Empty(t, f.host.All(), "eviction must not report an outcome")

	_, live := f.sched.Lookup(ids["A"])
	assert.False(t, live)
	_, hasPanel := f.surface.panelFor(ids["A"])
	assert.False(t, hasPanel, "evicted panel is destroyed immediately")

	// The evicted timer never fires.
	f.advance(10 * time.Second)
	for _, o := range f.host.All() {
		assert.NotEqual(t, ids["A"], o.ID)
	}
	assert.Len(t, f.host.All(), 5)
}

func TestScheduler_NeverExceedsMaxVisible(t *testing.T) {
	for _, maxVisible := range []int{1, 3, 5} {
		f := newFixture(WithOptions(Options{MaxVisible: maxVisible, Geometry: DefaultGeometry()}))

		var admitted []ID
		for i := 0; i < 20; i++ {
			id, err := f.sched.Admit(testRequest("n", time.Minute))
			require.NoError(t, err)
			admitted = append(admitted, id)

			assert.LessOrEqual(t, f.sched.Len(), maxVisible)

			// The stack always holds the newest ids, newest first.
			want := make([]ID, 0, maxVisible)
			for j := len(admitted) - 1; j >= 0 && len(want) < maxVisible; j-- {
				want = append(want, admitted[j])
			}
			assert.Equal(t, want, f.sched.Order())
		}
		assert.Empty(t, f.host.All())
		assert.Len(t, f.surface.panels, maxVisible)
	}
}

func TestScheduler_ActionBeforeTimeout(t *testing.T) {
	f := newFixture()

	id, err := f.sched.Admit(testRequest("A", 3*time.Second))
	require.NoError(t, err)

	assert.True(t, f.sched.Activate(id))

	outcomes := f.host.All()
	require.Len(t, outcomes, 1)
	assert.Equal(t, Outcome{
		ID:          id,
		Effect:      EffectInvoke,
		Trigger:     TriggerUserAction,
		ActionTaken: true,
		ActionKey:   "default",
	}, outcomes[0])

	assert.Equal(t, 0, f.clock.Pending(), "timer cancelled")
	f.advance(5 * time.Second)
	assert.Len(t, f.host.All(), 1)
	assert.Equal(t, 0, f.sched.Len())
}

func TestScheduler_TimeoutReportsOnce(t *testing.T) {
	f := newFixture()

	id, err := f.sched.Admit(testRequest("A", 100*time.Millisecond))
	require.NoError(t, err)

	f.advance(99 * time.Millisecond)
	assert.Empty(t, f.host.All())

	f.advance(time.Millisecond)
	outcomes := f.host.All()
	require.Len(t, outcomes, 1)
	assert.Equal(t, id, outcomes[0].ID)
	assert.False(t, outcomes[0].ActionTaken)
	assert.Equal(t, TriggerTimeout, outcomes[0].Trigger)
	assert.Equal(t, EffectExpire, outcomes[0].Effect)

	// Acting after the timer fired is a no-op.
	assert.False(t, f.sched.Activate(id))
	assert.False(t, f.sched.Close(id))
	assert.Len(t, f.host.All(), 1)
}

func TestScheduler_TimerVersusUserAction(t *testing.T) {
	tests := []struct {
		name        string
		drainFirst  bool
		wantTrigger Trigger
		wantTaken   bool
	}{
		{
			name:        "user acts while timer post is queued",
			drainFirst:  false,
			wantTrigger: TriggerUserAction,
			wantTaken:   true,
		},
		{
			name:        "timer runs before user acts",
			drainFirst:  true,
			wantTrigger: TriggerTimeout,
			wantTaken:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			id, err := f.sched.Admit(testRequest("A", time.Second))
			require.NoError(t, err)

			// Timer fires and posts onto the loop, but nothing has run yet.
			f.clock.Advance(time.Second)
			if tt.drainFirst {
				f.loop.Drain()
			}
			f.sched.Activate(id)
			f.loop.Drain()

			outcomes := f.host.All()
			require.Len(t, outcomes, 1)
			assert.Equal(t, tt.wantTrigger, outcomes[0].Trigger)
			assert.Equal(t, tt.wantTaken, outcomes[0].ActionTaken)
		})
	}
}

func TestScheduler_DismissAndClose(t *testing.T) {
	f := newFixture()

	a, err := f.sched.Admit(testRequest("A", time.Minute))
	require.NoError(t, err)
	b, err := f.sched.Admit(testRequest("B", time.Minute))
	require.NoError(t, err)

	assert.True(t, f.sched.Dismiss(a))
	assert.True(t, f.sched.Close(b))
	assert.False(t, f.sched.Dismiss(a))

	outcomes := f.host.All()
	require.Len(t, outcomes, 2)
	assert.Equal(t, Outcome{ID: a, Effect: EffectDismiss, Trigger: TriggerUserAction, ActionKey: "default"}, outcomes[0])
	assert.Equal(t, Outcome{ID: b, Effect: EffectDismiss, Trigger: TriggerRequest, ActionKey: "default"}, outcomes[1])
}

func TestScheduler_ConfiguredEffects(t *testing.T) {
	f := newFixture()

	req := testRequest("restart", time.Second)
	req.TimeoutEffect = EffectInvoke
	req.ActionEffect = EffectDismiss
	auto, err := f.sched.Admit(req)
	require.NoError(t, err)
	manual, err := f.sched.Admit(req)
	require.NoError(t, err)

	assert.True(t, f.sched.Activate(manual))
	f.advance(time.Second)

	outcomes := f.host.All()
	require.Len(t, outcomes, 2)
	assert.Equal(t, manual, outcomes[0].ID)
	assert.Equal(t, EffectDismiss, outcomes[0].Effect)
	assert.True(t, outcomes[0].ActionTaken)
	assert.Equal(t, auto, outcomes[1].ID)
	assert.Equal(t, EffectInvoke, outcomes[1].Effect)
	assert.False(t, outcomes[1].ActionTaken)
}

func TestScheduler_EvictAll(t *testing.T) {
	f := newFixture()

	for _, title := range []string{"A", "B", "C"} {
		_, err := f.sched.Admit(testRequest(title, time.Second))
		require.NoError(t, err)
	}
	require.Len(t, f.surface.panels, 3)

	f.sched.EvictAll()

	assert.Equal(t, 0, f.sched.Len())
	assert.Empty(t, f.sched.Order())
	assert.Empty(t, f.surface.panels)
	assert.Len(t, f.surface.destroyed, 3)
	assert.Equal(t, 0, f.clock.Pending())

	f.advance(time.Minute)
	assert.Empty(t, f.host.All())
}

func TestScheduler_RemovalCompactsSlots(t *testing.T) {
	f := newFixture()

	reqA := testRequest("A", time.Minute)
	reqA.Height = 80
	reqB := testRequest("B", time.Minute)
	reqB.Height = 120
	reqC := testRequest("C", time.Minute)
	reqC.Height = 60

	a, err := f.sched.Admit(reqA)
	require.NoError(t, err)
	b, err := f.sched.Admit(reqB)
	require.NoError(t, err)
	c, err := f.sched.Admit(reqC)
	require.NoError(t, err)

	require.True(t, f.sched.Dismiss(b))
	assert.Equal(t, []ID{c, a}, f.sched.Order())

	geom := DefaultGeometry()
	pa, ok := f.surface.panelFor(a)
	require.True(t, ok)
	assert.Equal(t, Position(1, 350, 80, []float64{60}, f.surface.screen, geom), pa.rect)

	snap, ok := f.sched.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, 1, snap.Slot)
}

func TestScheduler_LayoutMatchesFreshPositions(t *testing.T) {
	f := newFixture()
	rng := rand.New(rand.NewSource(42))
	geom := DefaultGeometry()

	for i := 0; i < 200; i++ {
		if f.sched.Len() > 0 && rng.Intn(3) == 0 {
			order := f.sched.Order()
			f.sched.Dismiss(order[rng.Intn(len(order))])
		} else {
			req := testRequest("n", time.Minute)
			req.Height = 40 + float64(rng.Intn(100)) + 0.1
			_, err := f.sched.Admit(req)
			require.NoError(t, err)
		}

		var preceding []float64
		for j, slot := range f.sched.Layout() {
			snap, ok := f.sched.Lookup(slot.ID)
			require.True(t, ok)
			want := Position(j, snap.Request.Width, snap.Request.Height, preceding, f.surface.screen, geom)
			require.Equal(t, want, slot.Rect, "slot %d after step %d", j, i)
			p, ok := f.surface.panelFor(slot.ID)
			require.True(t, ok)
			require.Equal(t, want, p.rect)
			preceding = append(preceding, snap.Request.Height)
		}
	}
}

func TestScheduler_RelayoutIsIdempotent(t *testing.T) {
	f := newFixture()
	for _, title := range []string{"A", "B", "C"} {
		_, err := f.sched.Admit(testRequest(title, time.Minute))
		require.NoError(t, err)
	}

	first := f.sched.Layout()
	moves := len(f.surface.moves)

	f.sched.Reconfigure(f.sched.Options())
	f.sched.Reconfigure(f.sched.Options())

	assert.Equal(t, first, f.sched.Layout())
	assert.Equal(t, moves, len(f.surface.moves), "no membership change means no moves")
}

func TestScheduler_Reconfigure(t *testing.T) {
	f := newFixture()
	var ids []ID
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		id, err := f.sched.Admit(testRequest(title, time.Minute))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	geom := DefaultGeometry()
	geom.Anchor = AnchorBottomLeft
	geom.Spacing = 20
	f.sched.Reconfigure(Options{MaxVisible: 2, Geometry: geom})

	assert.Equal(t, []ID{ids[4], ids[3]}, f.sched.Order())
	assert.Empty(t, f.host.All())

	slots := f.sched.Layout()
	assert.Equal(t, Position(0, 350, 100, nil, f.surface.screen, geom), slots[0].Rect)
	assert.Equal(t, Position(1, 350, 100, []float64{100}, f.surface.screen, geom), slots[1].Rect)
}

func TestScheduler_NoDisplay(t *testing.T) {
	f := newFixture()
	f.surface.hasScreen = false

	id, err := f.sched.Admit(testRequest("A", time.Second))
	assert.ErrorIs(t, err, ErrNoDisplay)
	assert.Empty(t, id)
	assert.Equal(t, 0, f.sched.Len())
	assert.Empty(t, f.surface.panels)
}

func TestScheduler_CreatePanelFailure(t *testing.T) {
	f := newFixture()
	f.surface.failCreate = errCreate

	id, err := f.sched.Admit(testRequest("A", time.Second))
	assert.ErrorIs(t, err, errCreate)
	assert.Empty(t, id)
	assert.Equal(t, 0, f.sched.Len())
	assert.Equal(t, 0, f.clock.Pending())
}

func TestScheduler_CreatePanelFailureWhenFull(t *testing.T) {
	f := newFixture()

	var ids []ID
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		id, err := f.sched.Admit(testRequest(title, time.Minute))
		require.NoError(t, err)
		ids = append([]ID{id}, ids...)
	}

	f.surface.failCreate = errCreate
	_, err := f.sched.Admit(testRequest("F", time.Minute))
	require.ErrorIs(t, err, errCreate)

	assert.Equal(t, ids, f.sched.Order(), "a failed admission evicts nothing")
	_, hasPanel := f.surface.panelFor(ids[4])
	assert.True(t, hasPanel)
	assert.Empty(t, f.surface.destroyed)
	assert.Empty(t, f.host.All())
}

func TestScheduler_InvalidRequest(t *testing.T) {
	f := newFixture()

	req := testRequest("A", 0)
	_, err := f.sched.Admit(req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	req = testRequest("A", time.Second)
	req.Width = 0
	_, err = f.sched.Admit(req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Equal(t, 0, f.sched.Len())
}

func TestScheduler_HandleClosedUnknownIsNoop(t *testing.T) {
	f := newFixture()
	id, err := f.sched.Admit(testRequest("A", time.Minute))
	require.NoError(t, err)

	f.sched.HandleClosed("missing", true, TriggerUserAction)
	assert.Empty(t, f.host.All())
	assert.Equal(t, []ID{id}, f.sched.Order())

	require.True(t, f.sched.Dismiss(id))
	f.sched.HandleClosed(id, false, TriggerUserAction)
	assert.Len(t, f.host.All(), 1, "late duplicate callback is ignored")
}

func TestScheduler_EvictOne(t *testing.T) {
	f := newFixture()
	a, err := f.sched.Admit(testRequest("A", time.Minute))
	require.NoError(t, err)
	b, err := f.sched.Admit(testRequest("B", time.Minute))
	require.NoError(t, err)

	assert.True(t, f.sched.Evict(b))
	assert.False(t, f.sched.Evict(b))
	assert.Equal(t, []ID{a}, f.sched.Order())

	pa, ok := f.surface.panelFor(a)
	require.True(t, ok)
	assert.Equal(t, Position(0, 350, 100, nil, f.surface.screen, DefaultGeometry()), pa.rect)
	assert.Empty(t, f.host.All())
}

func TestScheduler_PauseResumeWithoutCountdown(t *testing.T) {
	f := newFixture()
	id, err := f.sched.Admit(testRequest("A", 10*time.Second))
	require.NoError(t, err)
	h := f.surface.byID[id]

	f.advance(3 * time.Second)
	f.sched.Pause(id)
	assert.Equal(t, 7*time.Second, f.surface.countdowns[h], "the surface sees the pause")

	f.advance(time.Minute)
	assert.Empty(t, f.host.All())

	f.sched.Resume(id)
	_, paused := f.surface.countdowns[h]
	assert.False(t, paused)

	f.advance(7 * time.Second)
	outcomes := f.host.All()
	require.Len(t, outcomes, 1)
	assert.Equal(t, id, outcomes[0].ID)
	assert.Equal(t, TriggerTimeout, outcomes[0].Trigger)
}

func TestScheduler_PauseResume(t *testing.T) {
	f := newFixture()
	req := testRequest("A", 10*time.Second)
	req.ShowCountdown = true
	id, err := f.sched.Admit(req)
	require.NoError(t, err)

	f.advance(4 * time.Second)
	f.sched.Pause(id)

	snap, ok := f.sched.Lookup(id)
	require.True(t, ok)
	assert.True(t, snap.Paused)
	assert.Equal(t, 6*time.Second, snap.Remaining)
	assert.Equal(t, 6*time.Second, f.surface.countdowns[f.surface.byID[id]])

	f.advance(time.Minute)
	assert.Empty(t, f.host.All())

	f.sched.Resume(id)
	f.advance(5 * time.Second)
	assert.Empty(t, f.host.All())
	f.advance(time.Second)
	require.Len(t, f.host.All(), 1)
	assert.Equal(t, TriggerTimeout, f.host.All()[0].Trigger)
}

func TestScheduler_HostMayReenter(t *testing.T) {
	clock := newFakeClock()
	loop := &manualLoop{}
	surface := newFakeSurface()

	var sched *Scheduler
	var followUp ID
	host := HostFunc(func(o Outcome) {
		if o.Trigger != TriggerTimeout {
			return
		}
		// Admission from inside the callback sees a consistent stack.
		id, err := sched.Admit(testRequest("follow-up", time.Minute))
		if err == nil {
			followUp = id
		}
	})
	sched = New(surface, host, loop, WithClock(clock), WithIDGenerator(sequentialIDs()))

	a, err := sched.Admit(testRequest("A", time.Second))
	require.NoError(t, err)
	b, err := sched.Admit(testRequest("B", time.Minute))
	require.NoError(t, err)

	clock.Advance(time.Second)
	loop.Drain()

	require.NotEmpty(t, followUp)
	assert.Equal(t, []ID{followUp, b}, sched.Order())
	_, live := sched.Lookup(a)
	assert.False(t, live)
	assert.Len(t, surface.panels, 2)
}

func TestScheduler_EntranceRect(t *testing.T) {
	f := newFixture()

	req := testRequest("A", time.Second)
	req.Animation = AnimationSlideRight
	id, err := f.sched.Admit(req)
	require.NoError(t, err)

	p, ok := f.surface.panelFor(id)
	require.True(t, ok)
	assert.Equal(t, AnimationSlideRight, p.content.Animation)
	assert.Equal(t, f.surface.screen.Width, p.content.From.X)
	assert.Equal(t, p.rect.Y, p.content.From.Y)
	assert.Equal(t, f.clock.Now().Add(time.Second), p.content.Deadline)
}

func TestScheduler_ULIDs(t *testing.T) {
	s := New(newFakeSurface(), nil, &manualLoop{})

	seen := make(map[ID]bool)
	for i := 0; i < 5; i++ {
		id, err := s.Admit(testRequest("n", time.Minute))
		require.NoError(t, err)
		assert.Len(t, string(id), 26)
		assert.False(t, seen[id])
		seen[id] = true
	}
	s.EvictAll()
}

func TestScheduler_RealClock(t *testing.T) {
	loop := NewSerialLoop(16)
	defer loop.Stop()

	outcomes := make(chan Outcome, 4)
	s := New(newFakeSurface(), HostFunc(func(o Outcome) { outcomes <- o }), loop)

	var id ID
	var err error
	require.True(t, loop.Do(func() {
		id, err = s.Admit(testRequest("A", 100*time.Millisecond))
	}))
	require.NoError(t, err)

	select {
	case o := <-outcomes:
		assert.Equal(t, id, o.ID)
		assert.Equal(t, TriggerTimeout, o.Trigger)
		assert.False(t, o.ActionTaken)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout outcome not reported")
	}

	select {
	case o := <-outcomes:
		t.Fatalf("unexpected second outcome: %+v", o)
	case <-time.After(150 * time.Millisecond):
	}

	var n int
	loop.Do(func() { n = s.Len() })
	assert.Equal(t, 0, n)
}

func TestScheduler_EvictObserver(t *testing.T) {
	var evicted []ID
	f := newFixture(WithEvictObserver(func(id ID) { evicted = append(evicted, id) }))

	var ids []ID
	for i := 0; i < 6; i++ {
		id, err := f.sched.Admit(testRequest("n", time.Second))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []ID{ids[0]}, evicted)

	// Outcomes are not evictions.
	require.True(t, f.sched.Dismiss(ids[5]))
	assert.Len(t, evicted, 1)

	f.sched.Evict(ids[4])
	f.sched.EvictAll()
	assert.Equal(t, []ID{ids[0], ids[4], ids[3], ids[2], ids[1]}, evicted)
}
