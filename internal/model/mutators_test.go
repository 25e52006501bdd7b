package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ripple/internal/event"
	"github.com/roach88/ripple/internal/testutil"
)

func TestModel_SetEmitsChangeWithPrevious(t *testing.T) {
	m := New()
	var events []*event.Change
	_, err := m.On(event.TypeChange, "colors.green.hue", func(_ []string, mut event.Mutation) error {
		events = append(events, mut.(*event.Change))
		return nil
	})
	require.NoError(t, err)

	prev, err := m.Set("colors.green.hue", 120)
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = m.Set("colors.green.hue", 240)
	require.NoError(t, err)
	assert.Equal(t, 120, prev)

	require.Len(t, events, 2)
	assert.Equal(t, 120, events[0].Value)
	assert.Nil(t, events[0].Previous)
	assert.Equal(t, 240, events[1].Value)
	assert.Equal(t, 120, events[1].Previous)
}

func TestModel_ScopedMutatorEmitsAbsolutePath(t *testing.T) {
	m, trace := newTraced()
	green, err := m.At("colors.green")
	require.NoError(t, err)

	_, err = green.Set("lit", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"change colors.green.lit"}, *trace)
}

func TestModel_DelEmitsChangeAndReturnsPrevious(t *testing.T) {
	m := New()
	_, err := m.Set("colors.green.hue", 120)
	require.NoError(t, err)

	var got *event.Change
	_, err = m.On(event.TypeChange, "colors.green.hue", func(_ []string, mut event.Mutation) error {
		got = mut.(*event.Change)
		return nil
	})
	require.NoError(t, err)

	prev, err := m.Del("colors.green.hue")
	require.NoError(t, err)
	assert.Equal(t, 120, prev)

	require.NotNil(t, got)
	assert.Nil(t, got.Value)
	assert.Equal(t, 120, got.Previous)

	v, err := m.Get("colors.green.hue")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestModel_DelMissingIsSilent(t *testing.T) {
	m, trace := newTraced()

	// document does not exist at all
	prev, err := m.Del("colors.green.hue")
	require.NoError(t, err)
	assert.Nil(t, prev)

	// document exists, field does not
	_, err = m.Set("colors.green.lit", true)
	require.NoError(t, err)
	prev, err = m.Del("colors.green.hue")
	require.NoError(t, err)
	assert.Nil(t, prev)

	assert.Equal(t, []string{"change colors.green.lit"}, *trace)
}

func TestModel_InsertEmitsInsertEvent(t *testing.T) {
	m := New()
	var got *event.Insert
	_, err := m.On(event.TypeInsert, "posts.1.tags", func(_ []string, mut event.Mutation) error {
		got = mut.(*event.Insert)
		return nil
	})
	require.NoError(t, err)

	err = m.Insert("posts.1.tags", 0, "go", "db")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, 0, got.Index)
	assert.Equal(t, []any{"go", "db"}, got.Values)

	v, err := m.Get("posts.1.tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"go", "db"}, v)

	err = m.Insert("posts.1.tags", 1, "web")
	require.NoError(t, err)
	v, err = m.Get("posts.1.tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"go", "web", "db"}, v)
}

func TestModel_RemoveEmitsRemoveEvent(t *testing.T) {
	m := New()
	err := m.Insert("posts.1.tags", 0, "go", "db", "web")
	require.NoError(t, err)

	var got *event.Remove
	_, err = m.On(event.TypeRemove, "posts.1.tags", func(_ []string, mut event.Mutation) error {
		got = mut.(*event.Remove)
		return nil
	})
	require.NoError(t, err)

	removed, err := m.Remove("posts.1.tags", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []any{"db", "web"}, removed)

	require.NotNil(t, got)
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, []any{"db", "web"}, got.Removed)

	v, err := m.Get("posts.1.tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"go"}, v)
}

func TestModel_MoveEmitsMoveEvent(t *testing.T) {
	m := New()
	err := m.Insert("posts.1.tags", 0, "a", "b", "c")
	require.NoError(t, err)

	var got *event.Move
	_, err = m.On(event.TypeMove, "posts.1.tags", func(_ []string, mut event.Mutation) error {
		got = mut.(*event.Move)
		return nil
	})
	require.NoError(t, err)

	err = m.Move("posts.1.tags", 2, 0, 1)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, 2, got.From)
	assert.Equal(t, 0, got.To)
	assert.Equal(t, 1, got.HowMany)

	v, err := m.Get("posts.1.tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"c", "a", "b"}, v)
}

func TestModel_RemoveAndMoveRequireExistingDocument(t *testing.T) {
	m := New()

	_, err := m.Remove("posts.9.tags", 0, 1)
	require.Error(t, err)
	assert.Equal(t, ErrCodeBadPath, validationCode(t, err))

	err = m.Move("posts.9.tags", 0, 1, 1)
	require.Error(t, err)
	assert.Equal(t, ErrCodeBadPath, validationCode(t, err))
}

func TestModel_AddMintsIDAndWritesItBack(t *testing.T) {
	m := New(WithIDSource(testutil.NewFixedIDSource("id-1", "id-2")))

	data := map[string]any{"text": "write tests"}
	id, err := m.Add("todos", data)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, "id-1", data["id"])

	v, err := m.Get("todos.id-1.text")
	require.NoError(t, err)
	assert.Equal(t, "write tests", v)
}

func TestModel_AddUsesExplicitID(t *testing.T) {
	m := New(WithIDSource(testutil.NewFixedIDSource("unused")))

	id, err := m.Add("todos", map[string]any{"id": "chosen", "text": "x"})
	require.NoError(t, err)
	assert.Equal(t, "chosen", id)

	v, err := m.Get("todos.chosen.id")
	require.NoError(t, err)
	assert.Equal(t, "chosen", v)
}

func TestModel_AddNilDataCreatesDocument(t *testing.T) {
	m := New(WithIDSource(testutil.NewFixedIDSource("id-1")))

	id, err := m.Add("todos", nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	v, err := m.Get("todos.id-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "id-1"}, v)
}

func TestModel_AddRejectsDottedTarget(t *testing.T) {
	m := New()

	_, err := m.Add("todos.1", nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeBadTarget, validationCode(t, err))
}

func TestModel_AddEmitsDocumentLevelChange(t *testing.T) {
	m, trace := newTraced(WithIDSource(testutil.NewFixedIDSource("id-1")))

	_, err := m.Add("todos", map[string]any{"text": "x"})
	require.NoError(t, err)

	assert.Equal(t, []string{"change todos.id-1"}, *trace)
}

func TestModel_PassBagDeliveredToListener(t *testing.T) {
	m := New()
	var got event.Passed
	_, err := m.On(event.TypeChange, "colors.green.lit", func(_ []string, mut event.Mutation) error {
		got = mut.Passed()
		return nil
	})
	require.NoError(t, err)

	scope := m.Pass(event.Passed{"origin": "ui", "remote": false}, false)
	nested := scope.Pass(event.Passed{"origin": "sync"}, true)

	_, err = nested.Set("colors.green.lit", true)
	require.NoError(t, err)

	// invert keeps the parent value for conflicting keys
	assert.Equal(t, "ui", got["origin"])
	assert.Equal(t, false, got["remote"])
	assert.False(t, got.Remote())
}
