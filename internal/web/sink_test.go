// ABOUTME: Tests for the hub-backed display sink
// ABOUTME: Liveness follows SSE attachment; mutations become stream events

package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_AliveTracksSubscribers(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()
	sink := NewSink(hub)

	assert.False(t, sink.Alive("budget"))

	_, id := hub.Subscribe("budget")
	assert.True(t, sink.Alive("budget"))
	assert.False(t, sink.Alive("savings"))

	hub.Unsubscribe("budget", id)
	assert.False(t, sink.Alive("budget"))
}

func TestSink_PlaceholderLifecycle(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()
	sink := NewSink(hub)

	ch, _ := hub.Subscribe("budget")

	ref := sink.InsertPlaceholder("budget")
	require.NotEmpty(t, ref)
	sink.Mutate("budget", ref, "Thinking about")
	sink.Mutate("budget", ref, "Thinking about your budget")
	sink.Remove("budget", ref)

	inserted := <-ch
	assert.Equal(t, eventPlaceholder, inserted.Type)
	assert.Equal(t, string(ref), inserted.Ref)

	first := <-ch
	assert.Equal(t, eventUpdate, first.Type)
	assert.Equal(t, "Thinking about", first.Text)

	second := <-ch
	assert.Equal(t, eventUpdate, second.Type)
	assert.Equal(t, "Thinking about your budget", second.Text)

	removed := <-ch
	assert.Equal(t, eventRemove, removed.Type)
	assert.Equal(t, string(ref), removed.Ref)
}

func TestSink_DistinctRefsPerPlaceholder(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()
	sink := NewSink(hub)

	ref1 := sink.InsertPlaceholder("budget")
	ref2 := sink.InsertPlaceholder("budget")
	assert.NotEqual(t, ref1, ref2)
}
