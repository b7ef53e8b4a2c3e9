package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAdd(t *testing.T) {
	s := NewStore()

	require.True(t, s.Add(Entity{Text: "a@b.com", Type: TypeEmail, Start: 10, End: 17}))
	require.True(t, s.Add(Entity{Text: "+7 495", Type: TypePhoneNumber, Start: 0, End: 6}))

	// Sorted ascending by start after every insert.
	entities := s.Entities()
	require.Len(t, entities, 2)
	assert.Equal(t, 0, entities[0].Start)
	assert.Equal(t, 10, entities[1].Start)
}

func TestStoreAddSpanDedup(t *testing.T) {
	s := NewStore()

	require.True(t, s.Add(Entity{Text: "a@b.com", Type: TypeEmail, Start: 5, End: 12}))

	// Same span is rejected even with different type and text.
	assert.False(t, s.Add(Entity{Text: "other", Type: TypePerson, Start: 5, End: 12}))
	require.Equal(t, 1, s.Len())
	assert.Equal(t, TypeEmail, s.Entities()[0].Type)
}

func TestStoreAddEmptyText(t *testing.T) {
	s := NewStore()

	assert.False(t, s.Add(Entity{Text: "", Type: TypeEmail, Start: 0, End: 1}))
	assert.False(t, s.Add(Entity{Text: "  \t", Type: TypeEmail, Start: 0, End: 3}))
	assert.Equal(t, 0, s.Len())
}

func TestStoreRemove(t *testing.T) {
	s := NewStore()
	require.True(t, s.Add(Entity{Text: "one", Type: TypePerson, Start: 0, End: 3}))
	require.True(t, s.Add(Entity{Text: "two", Type: TypePerson, Start: 10, End: 13}))

	// Out of bounds is a no-op.
	s.Remove(-1)
	s.Remove(2)
	require.Equal(t, 2, s.Len())

	s.Remove(0)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "two", s.Entities()[0].Text)
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	require.True(t, s.Add(Entity{Text: "x", Type: TypePerson, Start: 0, End: 1}))

	s.Clear()
	assert.Equal(t, 0, s.Len())

	// The store is usable again after clearing.
	assert.True(t, s.Add(Entity{Text: "x", Type: TypePerson, Start: 0, End: 1}))
}

func TestStoreEntitiesIsACopy(t *testing.T) {
	s := NewStore()
	require.True(t, s.Add(Entity{Text: "x", Type: TypePerson, Start: 0, End: 1}))

	got := s.Entities()
	got[0].Text = "mutated"
	assert.Equal(t, "x", s.Entities()[0].Text)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Entity
		want bool
	}{
		{"disjoint", Entity{Start: 0, End: 5}, Entity{Start: 5, End: 10}, false},
		{"shared start", Entity{Start: 0, End: 5}, Entity{Start: 0, End: 3}, true},
		{"shared end", Entity{Start: 2, End: 5}, Entity{Start: 0, End: 5}, true},
		{"containment", Entity{Start: 0, End: 10}, Entity{Start: 3, End: 6}, true},
		{"partial", Entity{Start: 0, End: 5}, Entity{Start: 4, End: 9}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}
