package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
)

func TestMap_RegisterAndLookup(t *testing.T) {
	m := NewMap()

	_, ok := m.HandlerFor(core.KindUserMessage)
	assert.False(t, ok)

	m.RegisterFunc(core.KindUserMessage, func(ctx context.Context, ev *core.Event, hc *core.HandlerContext) error {
		return nil
	})

	h, ok := m.HandlerFor(core.KindUserMessage)
	require.True(t, ok)
	assert.NotNil(t, h)
	assert.ElementsMatch(t, []core.EventKind{core.KindUserMessage}, m.Kinds())
}

func TestMap_RegisterReplaces(t *testing.T) {
	m := NewMap()

	var hits []string
	m.RegisterFunc(core.KindSystem, func(ctx context.Context, ev *core.Event, hc *core.HandlerContext) error {
		hits = append(hits, "first")
		return nil
	})
	m.RegisterFunc(core.KindSystem, func(ctx context.Context, ev *core.Event, hc *core.HandlerContext) error {
		hits = append(hits, "second")
		return nil
	})

	h, ok := m.HandlerFor(core.KindSystem)
	require.True(t, ok)
	require.NoError(t, h.Handle(context.Background(), core.NewBootstrapEvent(), nil))
	assert.Equal(t, []string{"second"}, hits)
}

func TestMap_Deregister(t *testing.T) {
	m := NewMap()
	m.RegisterFunc(core.KindToolResult, func(ctx context.Context, ev *core.Event, hc *core.HandlerContext) error {
		return nil
	})

	m.Deregister(core.KindToolResult)
	_, ok := m.HandlerFor(core.KindToolResult)
	assert.False(t, ok)

	m.Deregister(core.KindToolResult)
	assert.Empty(t, m.Kinds())
}

func TestMap_RegisterChains(t *testing.T) {
	nop := core.HandlerFunc(func(ctx context.Context, ev *core.Event, hc *core.HandlerContext) error {
		return nil
	})

	m := NewMap().
		Register(core.KindUserMessage, nop).
		Register(core.KindAgentMessage, nop).
		Register(core.KindSystem, nop)

	assert.Len(t, m.Kinds(), 3)
}
