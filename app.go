package framepipe

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
)

type systemFn any

// Module is a unit of setup: it adds resources and schedules systems.
type Module interface {
	Install(app *App, cmd *Commands)
}

// App owns the resources and the stage schedule and runs frames. Systems
// are plain functions whose pointer parameters are injected from resources.
type App struct {
	stateful     bool
	initialState State
	finalState   State
	state        State
	nextState    State
	transition   bool

	stages    []*stageSchedule
	resources map[reflect.Type]any

	started  bool
	exiting  bool
	frame    uint64
	closers  []func()
	closeOne sync.Once
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

// Run executes frames until a system calls Commands.Exit or the final state
// is reached, then closes the app.
func (app *App) Run() {
	app.start()
	defer app.Close()

	for !app.exiting {
		app.step()
	}
}

// RunFrames executes at most n frames and reports how many ran. It stops
// early when the app is exiting. The app stays open.
func (app *App) RunFrames(n int) int {
	app.start()

	ran := 0
	for ran < n && !app.exiting {
		app.step()
		ran++
	}
	return ran
}

// Frame returns the number of completed frames.
func (app *App) Frame() uint64 { return app.frame }

func (app *App) Exiting() bool { return app.exiting }

func (app *App) State() State { return app.state }

// OnClose registers fn to run once when the app shuts down. Closers run in
// reverse registration order.
func (app *App) OnClose(fn func()) {
	app.closers = append(app.closers, fn)
}

// Close runs the current state's exit systems, then every closer.
func (app *App) Close() {
	app.closeOne.Do(func() {
		if app.stateful && app.started {
			app.runStages(exit)
		}
		for i := len(app.closers) - 1; i >= 0; i-- {
			app.closers[i]()
		}
		app.closers = nil
	})
}

func (app *App) start() {
	if app.started {
		return
	}
	app.started = true

	if !app.stateful {
		app.Logger().Debugf("running %d stages, stateless", len(app.stages))
		return
	}
	app.Logger().Debugf("running %d stages, states %d..%d", len(app.stages), app.initialState, app.finalState)
	app.state = app.initialState
	app.runStages(enter)
}

func (app *App) step() {
	app.runStages(execute)
	app.frame++

	if !app.stateful {
		return
	}
	if app.transition {
		app.transition = false
		app.runStages(exit)
		app.state = app.nextState
		app.runStages(enter)
	}
	if app.state == app.finalState {
		app.exiting = true
	}
}

func (app *App) runStages(phase statePhase) {
	profiler := app.profiler()

	for _, s := range app.stages {
		runs := 1
		if phase == execute && s.stage.UpdateType == FixedUpdate {
			runs = app.fixedSteps()
		}
		if runs == 0 {
			continue
		}

		if profiler != nil {
			profiler.BeginScope(s.stage.Name)
		}
		for range runs {
			s.run(app, app.state, phase)
		}
		if profiler != nil {
			profiler.EndScope(s.stage.Name)
		}
	}
}

// fixedSteps is the number of FixedUpdate passes this frame. Without a
// FixedTime resource fixed stages run once per frame.
func (app *App) fixedSteps() int {
	if fixed, ok := Resource[FixedTime](app); ok {
		return fixed.Steps
	}
	return 1
}

func (app *App) profiler() *Profiler {
	p, _ := Resource[Profiler](app)
	return p
}

// changeState takes effect after the current frame.
func (app *App) changeState(next State) {
	app.nextState = next
	app.transition = true
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		t := reflect.TypeOf(resource)
		if t.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("%s is not a pointer", t))
		}
		if _, ok := app.resources[t.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", t))
		}
		app.resources[t.Elem()] = resource
	}
	return app
}

// Resource looks up the resource of type *T.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

var typeOfCommands = reflect.TypeFor[Commands]()

func (app *App) callSystem(system systemFn) {
	fn := reflect.ValueOf(system)
	fnType := fn.Type()

	args := make([]reflect.Value, fnType.NumIn())
	for i := range args {
		arg := fnType.In(i)
		if arg.Kind() != reflect.Pointer {
			app.unresolved(fn, arg)
		}
		if arg.Elem() == typeOfCommands {
			args[i] = reflect.ValueOf(app.Commands())
			continue
		}
		resource, ok := app.resources[arg.Elem()]
		if !ok {
			app.unresolved(fn, arg)
		}
		args[i] = reflect.ValueOf(resource)
	}
	fn.Call(args)
}

func (app *App) unresolved(fn reflect.Value, arg reflect.Type) {
	msg := fmt.Sprintf("unable to resolve system dependency %s for %s (%s)",
		arg, runtime.FuncForPC(fn.Pointer()).Name(), fn.Type())
	app.Logger().Errorf("%s", msg)
	panic(msg)
}
