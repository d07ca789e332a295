package framepipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingModule struct {
	name  string
	order *[]string
}

func (m recordingModule) Install(app *App, cmd *Commands) {
	*m.order = append(*m.order, m.name)
}

func TestAppBuilder_Stateless(t *testing.T) {
	app := NewAppBuilder().Build()

	assert.False(t, app.stateful)
	require.Len(t, app.stages, len(DefaultStages))
	for i, s := range app.stages {
		assert.Equal(t, DefaultStages[i], s.stage)
		assert.Empty(t, s.byState)
	}
	assert.Panics(t, func() {
		app.UseSystem(System(func() {}).InState(OnEnter(0)))
	}, "gated systems need states")
}

func TestAppBuilder_UseStates(t *testing.T) {
	app := NewAppBuilder().UseStates(1, 10).Build()

	assert.True(t, app.stateful)
	assert.Equal(t, State(1), app.initialState)
	assert.Equal(t, State(10), app.finalState)
	assert.Len(t, app.stageSchedule(Update.Name).byState, 10)
	assert.Panics(t, func() {
		app.UseSystem(System(func() {}).InState(OnExecute(11)))
	})
}

func TestAppBuilder_InstallsModulesInOrder(t *testing.T) {
	var order []string
	NewAppBuilder().
		UseModule(recordingModule{"time", &order}).
		UseModule(recordingModule{"viewport", &order}, recordingModule{"scene", &order}).
		Build()

	assert.Equal(t, []string{"time", "viewport", "scene"}, order)
}
