package gekkoui

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) (*UiResourceProvider, *HeadlessRenderer) {
	t.Helper()
	p := NewUiResourceProvider(NewInstanceEncoder(), nil)
	p.Initialize(NewAssetServer())
	return p, NewHeadlessRenderer()
}

func chainScene(n int) *fakeScene {
	scene := newFakeScene().add(1, nil, Node{Size: mgl32.Vec2{1, 1}})
	for i := 2; i <= n; i++ {
		scene.add(EntityId(i), ptr(EntityId(i-1)), Node{Size: mgl32.Vec2{float32(i), float32(i)}})
	}
	return scene
}

func published(r *HeadlessRenderer) (RenderResource, bool) {
	return r.RenderResources().GetNamedResource(ResourceUiInstances)
}

func TestUiResourceProvider_FirstPass(t *testing.T) {
	p, r := newTestProvider(t)

	require.NoError(t, p.Update(r, abcdScene()))

	buffer, ok := p.InstanceBuffer()
	require.True(t, ok)
	pub, ok := published(r)
	require.True(t, ok)
	assert.Equal(t, buffer, pub)

	hb, ok := r.Buffer(buffer)
	require.True(t, ok)
	quad, _ := p.Quad()
	assert.Equal(t, quad, hb.Mesh)
	assert.Equal(t, 4, hb.RecordCount)
	assert.Equal(t, RectInstanceSize, hb.RecordSize)
	assert.Equal(t, BufferUsageCopySrc|BufferUsageVertex, hb.Usage)

	decoded := DecodeRectInstances(hb.Data)
	require.Len(t, decoded, 4)
	assert.Equal(t, []mgl32.Vec2{{1, 1}, {2, 2}, {4, 4}, {3, 3}},
		[]mgl32.Vec2{decoded[0].Size, decoded[1].Size, decoded[2].Size, decoded[3].Size})

	assert.Equal(t, 0, r.Disposals())
}

func TestUiResourceProvider_EmptySceneIsNoop(t *testing.T) {
	p, r := newTestProvider(t)

	// Nothing tracked yet: nothing allocated, nothing published.
	require.NoError(t, p.Update(r, newFakeScene()))
	assert.Equal(t, 0, r.Allocations())
	_, ok := published(r)
	assert.False(t, ok)

	require.NoError(t, p.Update(r, abcdScene()))
	before, _ := p.InstanceBuffer()

	require.NoError(t, p.Update(r, newFakeScene()))
	after, ok := p.InstanceBuffer()
	require.True(t, ok)
	assert.Equal(t, before, after, "stale buffer stays tracked")
	pub, _ := published(r)
	assert.Equal(t, before, pub, "stale buffer stays published")
	assert.Equal(t, 1, r.LiveBuffers())
	assert.Equal(t, 0, r.Disposals())
}

func TestUiResourceProvider_RootsWithoutNodesIsNoop(t *testing.T) {
	p, r := newTestProvider(t)
	scene := abcdScene()
	scene.nodes = map[EntityId]Node{}

	require.NoError(t, p.Update(r, scene))
	assert.Equal(t, 0, r.Allocations())
}

func TestUiResourceProvider_ReplacesEveryPass(t *testing.T) {
	p, r := newTestProvider(t)
	scene := abcdScene()

	var handles []RenderResource
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Update(r, scene))
		h, _ := p.InstanceBuffer()
		handles = append(handles, h)
	}

	for i := 1; i < len(handles); i++ {
		assert.NotEqual(t, handles[i-1], handles[i])
		_, live := r.Buffer(handles[i-1])
		assert.False(t, live, "superseded buffer %d disposed", i-1)
	}
	assert.Equal(t, r.Allocations()-1, r.Disposals())
	assert.Equal(t, 1, r.LiveBuffers())
	assert.Empty(t, r.InvalidRemovals(), "no buffer disposed twice")

	stats := p.Stats()
	assert.Equal(t, 5, stats.Allocations)
	assert.Equal(t, 4, stats.Disposals)
	assert.Equal(t, 4, stats.Instances)
}

func TestUiResourceProvider_AllocationFailureKeepsPrevious(t *testing.T) {
	p, r := newTestProvider(t)

	require.NoError(t, p.Update(r, chainScene(3)))
	good, _ := p.InstanceBuffer()

	r.FailNextAllocations(1)
	err := p.Update(r, chainScene(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllocationFailed))

	current, ok := p.InstanceBuffer()
	require.True(t, ok)
	assert.Equal(t, good, current)
	pub, _ := published(r)
	assert.Equal(t, good, pub)
	hb, ok := r.Buffer(pub)
	require.True(t, ok, "published buffer is still alive")
	assert.Equal(t, 3, hb.RecordCount)
	assert.Equal(t, 0, r.Disposals())
	assert.Equal(t, 1, p.Stats().AllocationFailures)

	// Retried next tick with fresh data.
	require.NoError(t, p.Update(r, chainScene(5)))
	pub, _ = published(r)
	hb, _ = r.Buffer(pub)
	assert.Equal(t, 5, hb.RecordCount)
	assert.Equal(t, 1, r.Disposals())
}

func TestUiResourceProvider_UpdateBeforeInitializePanics(t *testing.T) {
	p := NewUiResourceProvider(NewInstanceEncoder(), nil)
	assert.Panics(t, func() { _ = p.Update(NewHeadlessRenderer(), abcdScene()) })
}

func TestUiResourceProvider_Release(t *testing.T) {
	p, r := newTestProvider(t)
	require.NoError(t, p.Update(r, abcdScene()))

	p.Release(r)
	_, ok := p.InstanceBuffer()
	assert.False(t, ok)
	_, ok = published(r)
	assert.False(t, ok)
	assert.Equal(t, 0, r.LiveBuffers())

	p.Release(r)
	assert.Equal(t, 1, r.Disposals())
	assert.Empty(t, r.InvalidRemovals())
}

func TestUiResourceProvider_ReleaseLeavesForeignBinding(t *testing.T) {
	p, r := newTestProvider(t)
	require.NoError(t, p.Update(r, abcdScene()))

	foreign := NewRenderResource()
	r.RenderResources().SetNamedResource(ResourceUiInstances, foreign)
	p.Release(r)

	pub, ok := published(r)
	require.True(t, ok)
	assert.Equal(t, foreign, pub)
}

func TestInstanceBufferSlot(t *testing.T) {
	r := NewHeadlessRenderer()
	a, _ := r.CreateInstanceBufferWithData(Mesh{}, nil, RectInstanceSize, 0, BufferUsageVertex)
	b, _ := r.CreateInstanceBufferWithData(Mesh{}, nil, RectInstanceSize, 0, BufferUsageVertex)

	var slot instanceBufferSlot
	_, live := slot.current()
	assert.False(t, live)

	assert.False(t, slot.replace(r, a))
	assert.False(t, slot.replace(r, a), "re-installing the same handle disposes nothing")
	assert.True(t, slot.replace(r, b))

	_, aLive := r.Buffer(a)
	assert.False(t, aLive)
	h, live := slot.current()
	assert.True(t, live)
	assert.Equal(t, b, h)
}
