package categorymgr

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskcheck/internal/keys"
	"github.com/nhle/taskcheck/internal/model"
)

type recordingWriter struct {
	created []string
	updated []string
	deleted []string
	items   []string
	err     error
}

func (w *recordingWriter) CreateCategory(_ context.Context, name string, items []string) (*model.Category, error) {
	w.created = append(w.created, name)
	w.items = items
	return &model.Category{ID: "new", Name: name}, w.err
}

func (w *recordingWriter) UpdateCategory(_ context.Context, id, _ string, items []string) error {
	w.updated = append(w.updated, id)
	w.items = items
	return w.err
}

func (w *recordingWriter) DeleteCategory(_ context.Context, id string) error {
	w.deleted = append(w.deleted, id)
	return w.err
}

func managerSnapshot() model.Snapshot {
	c1, c2 := "c1", "c2"
	return model.Snapshot{
		Categories: []model.Category{{ID: c1, Name: "朝の準備"}, {ID: c2, Name: "出張"}},
		Tasks:      []model.Task{{ID: "t1", CategoryID: c1}, {ID: "t2", CategoryID: c1}},
		CheckItems: []model.CheckItem{
			{ID: "i2", CategoryID: &c1, Name: "朝食", SortPosition: 1},
			{ID: "i1", CategoryID: &c1, Name: "歯磨き", SortPosition: 0},
			{ID: "i3", CategoryID: &c2, Name: "切符", SortPosition: 0},
		},
	}
}

func newManager(w Writer) Model {
	m := New(w, keys.DefaultKeyMap(), 80, 24)
	m.SetState(managerSnapshot())
	return m
}

func TestTemplateNames(t *testing.T) {
	snap := managerSnapshot()
	assert.Equal(t, []string{"歯磨き", "朝食"}, TemplateNames(snap, "c1"))
	assert.Equal(t, []string{"切符"}, TemplateNames(snap, "c2"))
	assert.Empty(t, TemplateNames(snap, "missing"))
}

func TestSplitItems(t *testing.T) {
	assert.Equal(t, []string{"歯磨き", "朝食"}, SplitItems(" 歯磨き \n\n朝食\n  "))
	assert.Empty(t, SplitItems(""))
}

func TestEditPrefillsItems(t *testing.T) {
	m := newManager(&recordingWriter{})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.True(t, m.Editing())
	assert.Equal(t, "c1", m.editingID)
	assert.Equal(t, "朝の準備", m.fb.name)
	assert.Equal(t, "歯磨き\n朝食", m.fb.items)
}

func TestSaveCategory(t *testing.T) {
	w := &recordingWriter{}
	m := newManager(w)

	m.isNew = true
	m.fb.name = "買い物"
	m.fb.items = "牛乳\n卵"
	msg := m.saveCategory()()
	assert.Equal(t, writtenMsg{notice: "Category saved"}, msg)
	assert.Equal(t, []string{"買い物"}, w.created)
	assert.Equal(t, []string{"牛乳", "卵"}, w.items)

	m.isNew = false
	m.editingID = "c2"
	m.fb.items = ""
	m.saveCategory()()
	assert.Equal(t, []string{"c2"}, w.updated)
	assert.Empty(t, w.items)
}

func TestSaveErrorShowsInList(t *testing.T) {
	w := &recordingWriter{err: errors.New(`category "出張" already exists`)}
	m := newManager(w)
	m.mode = modeForm

	m, _ = m.Update(m.saveCategory()())
	assert.False(t, m.Editing())
	assert.Contains(t, m.View(), "already exists")
}

func TestDeleteCategory(t *testing.T) {
	w := &recordingWriter{}
	m := newManager(w)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.Equal(t, modeConfirmDelete, m.mode)

	m.deleteCategory("c2")()
	assert.Equal(t, []string{"c2"}, w.deleted)
}

func TestSelectionClampsWhenListShrinks(t *testing.T) {
	m := newManager(&recordingWriter{})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 1, m.selectedIdx)

	snap := managerSnapshot()
	snap.Categories = snap.Categories[:1]
	m.SetState(snap)
	assert.Equal(t, 0, m.selectedIdx)
}

func TestListView(t *testing.T) {
	m := newManager(&recordingWriter{})
	view := m.View()
	assert.Contains(t, view, "2 items, 2 tasks")
	assert.Contains(t, view, "1 items, 0 tasks")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}
