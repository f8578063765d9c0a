package gekkoui

import (
	"reflect"
)

type AppBuilder struct {
	app     *App
	modules []Module
}

// NewApp returns an App with the default stages and an empty world.
func NewApp() *App {
	return NewAppBuilder().Build()
}

func NewAppBuilder() *AppBuilder {
	ecs := MakeEcs()
	app := &App{
		resources:        make(map[reflect.Type]any),
		systemsStateless: make(map[string][]systemFn),
		ecs:              &ecs,
	}
	for _, stage := range defaultStages {
		app.stages = append(app.stages, stage)
		app.systemsStateless[stage.Name] = make([]systemFn, 0)
	}
	return &AppBuilder{app: app}
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

// Build installs modules in the order they were added.
func (b *AppBuilder) Build() *App {
	return b.app.UseModules(b.modules...)
}
