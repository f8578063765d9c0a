package gekkoui

// UiModule keeps the UiInstances buffer in sync with the Node hierarchy once
// per frame. It needs AssetServerModule and a renderer installed first.
type UiModule struct {
	// DepthStart is the depth of the first rect. Zero means DefaultDepthStart.
	DepthStart float32
	// DepthStep is subtracted per rect. Zero means DefaultDepthStep.
	DepthStep float32
}

func (mod UiModule) Install(app *App, cmd *Commands) {
	assets, ok := Resource[AssetServer](app)
	if !ok {
		panic("UiModule requires AssetServerModule to be installed first")
	}
	renderCtx, ok := Resource[RenderContext](app)
	if !ok {
		panic("UiModule requires a renderer to be installed first")
	}

	encoder := NewInstanceEncoder()
	if mod.DepthStart != 0 {
		encoder.DepthStart = mod.DepthStart
	}
	if mod.DepthStep != 0 {
		encoder.DepthStep = mod.DepthStep
	}

	provider := NewUiResourceProvider(encoder, app.Logger())
	provider.Initialize(assets)

	cmd.AddResources(provider, provider.Stats())
	app.OnShutdown(func() {
		provider.Release(renderCtx.Renderer)
	})

	app.UseSystem(
		System(uiInstanceSyncSystem).
			InStage(PreRender).
			RunAlways(),
	)
}

// uiInstanceSyncSystem runs one synchronization pass. A failed allocation is
// logged and retried with fresh data next frame.
func uiInstanceSyncSystem(cmd *Commands, provider *UiResourceProvider, renderCtx *RenderContext) {
	if err := provider.Update(renderCtx.Renderer, SnapshotScene(cmd)); err != nil {
		cmd.Logger().Errorf("ui instance sync: %v", err)
	}
}
