package gekkoui

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUiTestApp(t *testing.T, renderer HeadlessRendererModule, ui UiModule) (*App, *HeadlessRenderer) {
	t.Helper()
	app := NewApp()
	app.UseModules(AssetServerModule{}, renderer, HierarchyModule{}, ui)

	ctx, ok := Resource[RenderContext](app)
	require.True(t, ok)
	return app, ctx.Renderer.(*HeadlessRenderer)
}

func TestUiModule_RequiresDependencies(t *testing.T) {
	assert.PanicsWithValue(t, "UiModule requires AssetServerModule to be installed first", func() {
		NewApp().UseModules(HeadlessRendererModule{}, UiModule{})
	})
	assert.PanicsWithValue(t, "UiModule requires a renderer to be installed first", func() {
		NewApp().UseModules(AssetServerModule{}, UiModule{})
	})
}

func TestUiModule_SyncsEachFrame(t *testing.T) {
	app, r := newUiTestApp(t, HeadlessRendererModule{}, UiModule{})
	cmd := app.Commands()

	// Empty world: no allocation at all.
	app.Update()
	assert.Equal(t, 0, r.Allocations())

	root := cmd.AddEntity(&Node{Size: mgl32.Vec2{100, 50}, Color: mgl32.Vec4{1, 1, 1, 1}}, &LocalPosition{Offset: mgl32.Vec2{10, 10}})
	cmd.AddEntity(&Node{Size: mgl32.Vec2{10, 10}}, &LocalPosition{Offset: mgl32.Vec2{5, 5}}, &Parent{Entity: root})
	app.FlushCommands()

	app.Update()
	first, ok := r.RenderResources().GetNamedResource(ResourceUiInstances)
	require.True(t, ok)
	hb, _ := r.Buffer(first)
	instances := DecodeRectInstances(hb.Data)
	require.Len(t, instances, 2)
	// Layout ran in PostUpdate before the sync in PreRender.
	assert.Equal(t, mgl32.Vec2{10, 10}, instances[0].Position)
	assert.Equal(t, mgl32.Vec2{15, 15}, instances[1].Position)

	app.Update()
	second, _ := r.RenderResources().GetNamedResource(ResourceUiInstances)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, r.Disposals())

	stats, ok := Resource[UiSyncStats](app)
	require.True(t, ok)
	assert.Equal(t, 3, stats.Passes)
	assert.Equal(t, 2, stats.Allocations)
}

func TestUiModule_AllocationFailureIsLoggedAndRetried(t *testing.T) {
	var errOut bytes.Buffer
	app := NewApp()
	app.addResources(newLogger("test", false, &bytes.Buffer{}, &errOut))
	app.UseModules(AssetServerModule{}, HeadlessRendererModule{AllocationLimit: 3}, UiModule{})
	ctx, _ := Resource[RenderContext](app)
	r := ctx.Renderer.(*HeadlessRenderer)
	cmd := app.Commands()

	var ids []EntityId
	ids = append(ids, cmd.AddEntity(&Node{}))
	for i := 0; i < 2; i++ {
		ids = append(ids, cmd.AddEntity(&Node{}, &Parent{Entity: ids[len(ids)-1]}))
	}
	app.FlushCommands()
	app.Update()
	good, ok := r.RenderResources().GetNamedResource(ResourceUiInstances)
	require.True(t, ok)

	// Two more nodes exceed the limit.
	cmd.AddEntity(&Node{}, &Parent{Entity: ids[0]})
	cmd.AddEntity(&Node{}, &Parent{Entity: ids[0]})
	app.FlushCommands()
	app.Update()

	pub, _ := r.RenderResources().GetNamedResource(ResourceUiInstances)
	assert.Equal(t, good, pub)
	hb, ok := r.Buffer(pub)
	require.True(t, ok)
	assert.Equal(t, 3, hb.RecordCount)
	assert.Contains(t, errOut.String(), "ui instance sync")
	assert.Contains(t, errOut.String(), ErrAllocationFailed.Error())

	r.SetAllocationLimit(0)
	app.Update()
	pub, _ = r.RenderResources().GetNamedResource(ResourceUiInstances)
	hb, _ = r.Buffer(pub)
	assert.Equal(t, 5, hb.RecordCount)
}

func TestUiModule_ShutdownReleasesBuffer(t *testing.T) {
	app, r := newUiTestApp(t, HeadlessRendererModule{}, UiModule{})
	app.Commands().AddEntity(&Node{})
	app.FlushCommands()
	app.Update()
	require.Equal(t, 1, r.LiveBuffers())

	app.Shutdown()
	assert.Equal(t, 0, r.LiveBuffers())
	_, ok := r.RenderResources().GetNamedResource(ResourceUiInstances)
	assert.False(t, ok)
}

func TestUiModule_CustomDepth(t *testing.T) {
	app, r := newUiTestApp(t, HeadlessRendererModule{}, UiModule{DepthStart: 0.5, DepthStep: 0.25})
	cmd := app.Commands()
	root := cmd.AddEntity(&Node{})
	cmd.AddEntity(&Node{}, &Parent{Entity: root})
	app.FlushCommands()
	app.Update()

	pub, _ := r.RenderResources().GetNamedResource(ResourceUiInstances)
	hb, _ := r.Buffer(pub)
	instances := DecodeRectInstances(hb.Data)
	require.Len(t, instances, 2)
	assert.Equal(t, float32(0.5), instances[0].ZIndex)
	assert.Equal(t, float32(0.25), instances[1].ZIndex)
}
