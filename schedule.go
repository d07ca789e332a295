package framepipe

import (
	"fmt"
	"slices"
)

type State int

type UpdateType int

const (
	FixedUpdate UpdateType = iota
	DynamicUpdate
)

// Stage is a named slot in the frame. FixedUpdate stages run once per
// fixed simulation step, which may be zero or several times per frame.
type Stage struct {
	Name       string
	UpdateType UpdateType
}

var (
	Prelude    = Stage{Name: "Prelude", UpdateType: DynamicUpdate}
	PreUpdate  = Stage{Name: "PreUpdate", UpdateType: DynamicUpdate}
	Simulate   = Stage{Name: "Simulate", UpdateType: FixedUpdate}
	Update     = Stage{Name: "Update", UpdateType: DynamicUpdate}
	PostUpdate = Stage{Name: "PostUpdate", UpdateType: DynamicUpdate}
	PreRender  = Stage{Name: "PreRender", UpdateType: DynamicUpdate}
	Render     = Stage{Name: "Render", UpdateType: DynamicUpdate}
	PostRender = Stage{Name: "PostRender", UpdateType: DynamicUpdate}
	Finale     = Stage{Name: "Finale", UpdateType: DynamicUpdate}
)

var DefaultStages = []Stage{Prelude, PreUpdate, Simulate, Update, PostUpdate, PreRender, Render, PostRender, Finale}

type statePhase int

const (
	enter statePhase = iota
	execute
	exit
	phaseCount
)

type phaseSystems [phaseCount][]systemFn

// stageSchedule holds the systems registered in one stage. Ungated systems
// run on every execute pass, before the current state's systems.
type stageSchedule struct {
	stage   Stage
	ungated []systemFn
	byState map[State]*phaseSystems
}

func (s *stageSchedule) run(app *App, state State, phase statePhase) {
	if phase == execute {
		for _, system := range s.ungated {
			app.callSystem(system)
		}
	}
	if phases, ok := s.byState[state]; ok {
		for _, system := range phases[phase] {
			app.callSystem(system)
		}
	}
}

type systemScheduleBuilder struct {
	system systemFn
	stage  Stage
	gated  bool
	state  State
	phase  statePhase
}

type stateScheduleBuilder struct {
	state  State
	phase  statePhase
	always bool
}

func OnEnter(state State) stateScheduleBuilder {
	return stateScheduleBuilder{state: state, phase: enter}
}

func OnExecute(state State) stateScheduleBuilder {
	return stateScheduleBuilder{state: state, phase: execute}
}

func OnExit(state State) stateScheduleBuilder {
	return stateScheduleBuilder{state: state, phase: exit}
}

// Always runs a system every frame whatever the current state.
func Always() stateScheduleBuilder {
	return stateScheduleBuilder{always: true}
}

// System schedules fn in the Update stage unless InStage says otherwise.
// fn's parameters must be pointers to resources or *Commands.
func System(fn systemFn) systemScheduleBuilder {
	return systemScheduleBuilder{system: fn, stage: Update}
}

func (b systemScheduleBuilder) InStage(s Stage) systemScheduleBuilder {
	b.stage = s
	return b
}

func (b systemScheduleBuilder) InState(s stateScheduleBuilder) systemScheduleBuilder {
	b.gated = !s.always
	b.state = s.state
	b.phase = s.phase
	return b
}

func (b systemScheduleBuilder) RunAlways() systemScheduleBuilder {
	b.gated = false
	return b
}

type stagePosition int

const (
	stageBefore stagePosition = iota
	stageAfter
)

type stagePositionBuilder struct {
	position stagePosition
	target   Stage
}

func BeforeStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{position: stageBefore, target: s}
}

func AfterStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{position: stageAfter, target: s}
}

// UseStage inserts a custom stage next to an existing one.
func (app *App) UseStage(stage Stage, where stagePositionBuilder) *App {
	idx := slices.IndexFunc(app.stages, func(s *stageSchedule) bool {
		return s.stage.Name == where.target.Name
	})
	if idx < 0 {
		panic(fmt.Sprintf("stage %s not found", where.target.Name))
	}
	if where.position == stageAfter {
		idx++
	}
	app.stages = slices.Insert(app.stages, idx, app.newStageSchedule(stage))
	return app
}

func (app *App) UseSystem(b systemScheduleBuilder) *App {
	s := app.stageSchedule(b.stage.Name)
	if s == nil {
		panic(fmt.Sprintf("stage %s doesn't exist", b.stage.Name))
	}

	if !b.gated {
		s.ungated = append(s.ungated, b.system)
		return app
	}
	if !app.stateful {
		panic("stateful system scheduled in a stateless app")
	}
	phases, ok := s.byState[b.state]
	if !ok {
		panic(fmt.Sprintf("state %v doesn't exist", b.state))
	}
	phases[b.phase] = append(phases[b.phase], b.system)
	return app
}

func (app *App) newStageSchedule(stage Stage) *stageSchedule {
	s := &stageSchedule{stage: stage, byState: make(map[State]*phaseSystems)}
	if app.stateful {
		for state := app.initialState; state <= app.finalState; state++ {
			s.byState[state] = &phaseSystems{}
		}
	}
	return s
}

func (app *App) stageSchedule(name string) *stageSchedule {
	for _, s := range app.stages {
		if s.stage.Name == name {
			return s
		}
	}
	return nil
}
