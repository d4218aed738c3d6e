package display

import (
	"time"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/toastd/internal/stack"
)

// panelEvents are the user interactions a panel reports back to its surface.
type panelEvents struct {
	activate func()
	dismiss  func()
	hover    func(inside bool)
}

// panel is one layer-shell window showing a notification.
type panel struct {
	window   *gtk.Window
	box      *gtk.Box
	progress *gtk.ProgressBar
	closeBtn *gtk.Button

	screen stack.Rect
	rect   stack.Rect // last rectangle applied to the window

	duration time.Duration
	deadline time.Time
	frozen   time.Duration // remaining time while paused
	paused   bool

	moveSrc      coreglib.SourceHandle
	fadeSrc      coreglib.SourceHandle
	countdownSrc coreglib.SourceHandle
	destroyed    bool
}

func newPanel(app *gtk.Application, monitor *gdk.Monitor, screen, target stack.Rect, content stack.Content, classes []string, ev panelEvents) *panel {
	p := &panel{
		screen:   screen,
		duration: content.Duration,
		deadline: content.Deadline,
	}

	p.window = gtk.NewWindow()
	p.window.SetApplication(app)
	p.window.SetDecorated(false)
	p.window.SetResizable(false)
	p.window.SetDefaultSize(int(target.Width), int(target.Height))
	p.window.SetSizeRequest(int(target.Width), int(target.Height))

	layershell.InitForWindow(p.window)
	layershell.SetLayer(p.window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(p.window, 0)
	layershell.SetKeyboardMode(p.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(p.window, "toastd-notification")
	if monitor != nil {
		layershell.SetMonitor(p.window, monitor)
	}
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeTop, true)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeLeft, true)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeBottom, false)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeRight, false)

	p.build(content, classes, ev)
	p.connect(ev)
	return p
}

func (p *panel) build(content stack.Content, classes []string, ev panelEvents) {
	p.box = gtk.NewBox(gtk.OrientationVertical, 4)
	for _, c := range classes {
		p.box.AddCSSClass(c)
	}
	p.box.SetMarginTop(8)
	p.box.SetMarginBottom(8)
	p.box.SetMarginStart(12)
	p.box.SetMarginEnd(12)

	header := gtk.NewBox(gtk.OrientationHorizontal, 8)
	header.AddCSSClass("toast-header")

	title := gtk.NewLabel(content.Title)
	title.AddCSSClass("toast-title")
	title.SetXAlign(0)
	title.SetEllipsize(3) // PANGO_ELLIPSIZE_END
	title.SetHExpand(true)
	header.Append(title)

	p.closeBtn = gtk.NewButtonFromIconName("window-close-symbolic")
	p.closeBtn.AddCSSClass("toast-close")
	p.closeBtn.SetVisible(false)
	p.closeBtn.ConnectClicked(ev.dismiss)
	header.Append(p.closeBtn)
	p.box.Append(header)

	if content.Subtitle != "" {
		sub := gtk.NewLabel(content.Subtitle)
		sub.AddCSSClass("toast-subtitle")
		sub.SetXAlign(0)
		sub.SetWrap(true)
		sub.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
		p.box.Append(sub)
	}
	if content.SecondarySubtitle != "" {
		sec := gtk.NewLabel(content.SecondarySubtitle)
		sec.AddCSSClass("toast-secondary")
		sec.SetXAlign(0)
		sec.SetEllipsize(3)
		p.box.Append(sec)
	}

	if content.ActionLabel != "" {
		btn := gtk.NewButtonWithLabel(content.ActionLabel)
		btn.AddCSSClass("toast-action")
		btn.SetHAlign(gtk.AlignEnd)
		btn.ConnectClicked(ev.activate)
		p.box.Append(btn)
	}

	if content.ShowCountdown {
		p.progress = gtk.NewProgressBar()
		p.progress.AddCSSClass("toast-countdown")
		p.progress.SetFraction(1)
		p.box.Append(p.progress)
	}

	p.window.SetChild(p.box)
}

func (p *panel) connect(ev panelEvents) {
	motion := gtk.NewEventControllerMotion()
	motion.ConnectEnter(func(x, y float64) {
		p.closeBtn.SetVisible(true)
		ev.hover(true)
	})
	motion.ConnectLeave(func() {
		p.closeBtn.SetVisible(false)
		ev.hover(false)
	})
	p.window.AddController(motion)

	// Middle click dismisses without touching the action.
	click := gtk.NewGestureClick()
	click.SetButton(2)
	click.ConnectReleased(func(nPress int, x, y float64) {
		ev.dismiss()
	})
	p.window.AddController(click)
}

// show maps the window at from and, when from differs from target, animates it in.
func (p *panel) show(from, target stack.Rect, anim stack.Animation) {
	p.apply(from)
	if anim == stack.AnimationFade {
		p.window.SetOpacity(0)
		p.fadeIn()
	}
	p.window.Present()
	if from != target {
		p.moveTo(target, enterDuration)
	}
	if p.progress != nil {
		p.startCountdown()
	}
}

// apply writes rect into the layer-shell margins.
func (p *panel) apply(rect stack.Rect) {
	left, top := margins(rect, p.screen)
	layershell.SetMargin(p.window, layershell.LayerShellEdgeLeft, left)
	layershell.SetMargin(p.window, layershell.LayerShellEdgeTop, top)
	p.rect = rect
}

// moveTo replaces any running move with a new one starting at the current rectangle.
func (p *panel) moveTo(target stack.Rect, d time.Duration) {
	p.stop(&p.moveSrc)
	if d <= 0 {
		p.apply(target)
		return
	}

	from := p.rect
	start := time.Now()
	p.moveSrc = coreglib.TimeoutAdd(uint(frameInterval.Milliseconds()), func() bool {
		t := float64(time.Since(start)) / float64(d)
		p.apply(tween(from, target, t))
		if t >= 1 {
			p.moveSrc = 0
			return false
		}
		return true
	})
}

func (p *panel) fadeIn() {
	start := time.Now()
	p.fadeSrc = coreglib.TimeoutAdd(uint(frameInterval.Milliseconds()), func() bool {
		t := clamp01(float64(time.Since(start)) / float64(enterDuration))
		p.window.SetOpacity(easeOutCubic(t))
		if t >= 1 {
			p.fadeSrc = 0
			return false
		}
		return true
	})
}

func (p *panel) startCountdown() {
	p.stop(&p.countdownSrc)
	p.refreshCountdown()
	if p.paused {
		return
	}
	p.countdownSrc = coreglib.TimeoutAdd(uint(countdownTick.Milliseconds()), func() bool {
		p.refreshCountdown()
		if !time.Now().Before(p.deadline) {
			p.countdownSrc = 0
			return false
		}
		return true
	})
}

func (p *panel) refreshCountdown() {
	remaining := time.Until(p.deadline)
	if p.paused {
		remaining = p.frozen
	}
	p.progress.SetFraction(countdownFraction(remaining, p.duration))
}

// setCountdown follows the scheduler's pause state.
func (p *panel) setCountdown(remaining time.Duration, paused bool) {
	if p.progress == nil {
		return
	}
	p.paused = paused
	p.frozen = remaining
	p.deadline = time.Now().Add(remaining)
	p.startCountdown()
}

func (p *panel) stop(src *coreglib.SourceHandle) {
	if *src != 0 {
		coreglib.SourceRemove(*src)
		*src = 0
	}
}

func (p *panel) destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.stop(&p.moveSrc)
	p.stop(&p.fadeSrc)
	p.stop(&p.countdownSrc)
	p.window.Destroy()
}
