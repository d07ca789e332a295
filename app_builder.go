package framepipe

import (
	"reflect"
)

type AppBuilder struct {
	app     *App
	modules []Module
}

func NewAppBuilder() *AppBuilder {
	return &AppBuilder{app: &App{resources: make(map[reflect.Type]any)}}
}

// UseStates makes the app stateful over the inclusive range initial..final.
// Entering final ends Run after that frame.
func (b *AppBuilder) UseStates(initial, final State) *AppBuilder {
	b.app.stateful = true
	b.app.initialState = initial
	b.app.finalState = final
	return b
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

// Build creates the default stages and installs modules in the order given.
// Systems in the same stage run in registration order.
func (b *AppBuilder) Build() *App {
	app := b.app
	app.stages = make([]*stageSchedule, 0, len(DefaultStages))
	for _, stage := range DefaultStages {
		app.stages = append(app.stages, app.newStageSchedule(stage))
	}

	cmd := app.Commands()
	for _, m := range b.modules {
		m.Install(app, cmd)
	}
	return app
}
