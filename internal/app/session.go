package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskcheck/internal/model"
)

// initialStateMsg carries the snapshot read before live syncing starts.
type initialStateMsg struct {
	snap model.Snapshot
	err  error
}

// loadInitialState reads the whole graph once so the board can render
// before any subscription is established.
func (m Model) loadInitialState() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		snap, err := s.Snapshot(context.Background())
		if err != nil {
			return initialStateMsg{err: err}
		}
		return initialStateMsg{snap: *snap}
	}
}

// startSession begins live syncing from the current state and waits for
// the first update. A previous session, if any, is torn down by the syncer.
func (m *Model) startSession() tea.Cmd {
	m.session = m.syncer.Start(context.Background(), m.snap)
	return m.session.WaitForUpdate()
}
