package termui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// postMsg carries a function posted onto the program loop.
type postMsg func()

// Loop runs posted functions inside the program's Update, which makes the
// bubbletea event loop the scheduler's single thread.
type Loop struct {
	ch chan func()
}

// NewLoop creates a loop with room for size pending functions.
func NewLoop(size int) *Loop {
	if size <= 0 {
		size = 64
	}
	return &Loop{ch: make(chan func(), size)}
}

// Post queues fn. It blocks only while the queue is full, so it must not be
// called from inside Update.
func (l *Loop) Post(fn func()) {
	l.ch <- fn
}

// wait returns a command that delivers the next posted function.
func (l *Loop) wait() tea.Cmd {
	return func() tea.Msg {
		return postMsg(<-l.ch)
	}
}
