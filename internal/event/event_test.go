package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_Immediate(t *testing.T) {
	assert.Equal(t, Type("changeImmediate"), TypeChange.Immediate())
	assert.Equal(t, Type("moveImmediate"), TypeMove.Immediate())

	assert.True(t, TypeChange.Immediate().IsImmediate())
	assert.False(t, TypeChange.IsImmediate())
}

func TestType_Base(t *testing.T) {
	assert.Equal(t, TypeChange, TypeChange.Immediate().Base())
	assert.Equal(t, TypeLoad, TypeLoad.Base())
}

func TestType_Valid(t *testing.T) {
	for _, typ := range Types {
		assert.True(t, typ.Valid(), "type %s", typ)
	}
	assert.False(t, TypeAll.Valid())
	assert.False(t, Type("changeImmediate").Valid())
	assert.False(t, Type("destroy").Valid())
}

func TestType_CanListen(t *testing.T) {
	assert.True(t, TypeChange.CanListen())
	assert.True(t, TypeChange.Immediate().CanListen())
	assert.True(t, TypeAll.CanListen())
	assert.False(t, Type("destroy").CanListen())
	assert.False(t, Type("allImmediate").CanListen())
}

func TestMutation_TypesAndArgs(t *testing.T) {
	passed := Passed{"remote": true}

	tests := []struct {
		name     string
		mutation Mutation
		wantType Type
		wantArgs []any
	}{
		{"change", NewChange("new", "old", passed), TypeChange, []any{"new", "old"}},
		{"load", NewLoad(map[string]any{"id": "p1"}, passed), TypeLoad, []any{map[string]any{"id": "p1"}}},
		{"unload", NewUnload(map[string]any{"id": "p1"}, passed), TypeUnload, []any{map[string]any{"id": "p1"}}},
		{"insert", NewInsert(2, []any{"a", "b"}, passed), TypeInsert, []any{2, []any{"a", "b"}}},
		{"remove", NewRemove(1, []any{"x"}, passed), TypeRemove, []any{1, []any{"x"}}},
		{"move", NewMove(0, 3, 2, passed), TypeMove, []any{0, 3, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.mutation.Type())
			assert.Equal(t, tt.wantArgs, tt.mutation.LegacyArgs())
			assert.Equal(t, passed, tt.mutation.Passed())
		})
	}
}

func TestMutation_Clone(t *testing.T) {
	orig := NewChange("new", "old", Passed{"from": "server"})
	clone := orig.Clone()

	require.IsType(t, &Change{}, clone)
	cloned := clone.(*Change)

	assert.Equal(t, orig.Value, cloned.Value)
	assert.Equal(t, orig.Previous, cloned.Previous)
	assert.Equal(t, orig.Passed(), cloned.Passed())
	assert.NotSame(t, orig, cloned)
}

func TestChange_NilPrevious(t *testing.T) {
	e := NewChange(42, nil, nil)
	assert.Equal(t, []any{42, nil}, e.LegacyArgs())
	assert.Nil(t, e.Passed())
}
