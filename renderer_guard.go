package gekkoui

import (
	"fmt"
)

// RendererName identifies a concrete renderer implementation.
type RendererName string

const (
	RendererHeadless RendererName = "headless"
	RendererWGPU     RendererName = "wgpu"
)

// RendererTag marks that a renderer has been installed into the App.
// Only one renderer should be installed at a time.
type RendererTag struct {
	Name RendererName
}

// InstallRenderer publishes renderer as the App's RenderContext. Installing a
// second renderer panics; installing the same name twice is a no-op.
func InstallRenderer(app *App, name RendererName, renderer Renderer) {
	if app == nil {
		panic("InstallRenderer: app is nil")
	}
	if tag, ok := Resource[RendererTag](app); ok {
		if tag.Name != name {
			app.Logger().Errorf("Multiple renderers installed: %s and %s", tag.Name, name)
			panic(fmt.Sprintf("Multiple renderers installed: %s and %s", tag.Name, name))
		}
		return
	}
	app.addResources(&RendererTag{Name: name}, &RenderContext{Renderer: renderer})
	app.Logger().Infof("Renderer selected: %s", name)
}
