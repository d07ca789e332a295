package framepipe

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_LevelsAndPrefix(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewDefaultLoggerTo(&out, &errOut, "scene", false)

	l.Debugf("hidden %d", 1)
	l.Infof("created %d nodes", 3)
	l.Warnf("unknown font %q", "mono")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[scene] INFO: created 3 nodes")
	assert.Contains(t, errOut.String(), `[scene] WARN: unknown font "mono"`)

	l.SetDebug(true)
	l.Debugf("visible %d", 2)
	assert.Contains(t, out.String(), "[scene] DEBUG: visible 2")
}

func TestApp_LoggerFallsBackToNop(t *testing.T) {
	var nilApp *App
	assert.NotNil(t, nilApp.Logger())
	assert.False(t, NewAppBuilder().Build().Logger().DebugEnabled())

	custom := NewDefaultLoggerTo(&bytes.Buffer{}, &bytes.Buffer{}, "", true)
	app := NewAppBuilder().UseModule(LoggingModule{Logger: custom}).Build()
	assert.Same(t, custom, app.Logger())
}
