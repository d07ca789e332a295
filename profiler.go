package framepipe

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// profileAlpha weights the newest sample in a scope's moving average.
const profileAlpha = 0.1

type scopeTiming struct {
	started time.Time
	open    bool
	last    time.Duration
	avg     time.Duration
}

// Profiler keeps CPU time per named scope (last sample and a moving
// average) and integer counters. When installed, the app scopes every stage
// automatically.
type Profiler struct {
	scopes map[string]*scopeTiming
	order  []string
	counts map[string]int

	now func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		scopes: make(map[string]*scopeTiming),
		counts: make(map[string]int),
		now:    time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	s, ok := p.scopes[name]
	if !ok {
		s = &scopeTiming{}
		p.scopes[name] = s
		p.order = append(p.order, name)
	}
	s.started = p.now()
	s.open = true
}

// EndScope closes a scope opened by BeginScope; unmatched calls are ignored.
func (p *Profiler) EndScope(name string) {
	s, ok := p.scopes[name]
	if !ok || !s.open {
		return
	}
	s.open = false
	s.last = p.now().Sub(s.started)
	if s.avg == 0 {
		s.avg = s.last
	} else {
		s.avg += time.Duration(profileAlpha * float64(s.last-s.avg))
	}
}

// Last is the most recent duration of the named scope.
func (p *Profiler) Last(name string) time.Duration {
	if s, ok := p.scopes[name]; ok {
		return s.last
	}
	return 0
}

func (p *Profiler) Average(name string) time.Duration {
	if s, ok := p.scopes[name]; ok {
		return s.avg
	}
	return 0
}

// Scopes lists scope names in first-seen order.
func (p *Profiler) Scopes() []string { return slices.Clone(p.order) }

func (p *Profiler) SetCount(name string, count int) { p.counts[name] = count }
func (p *Profiler) AddCount(name string, delta int) { p.counts[name] += delta }
func (p *Profiler) Count(name string) int           { return p.counts[name] }

// Reset zeroes timings and counters but keeps scope order.
func (p *Profiler) Reset() {
	for _, s := range p.scopes {
		*s = scopeTiming{}
	}
	clear(p.counts)
}

func (p *Profiler) String() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.order {
		s := p.scopes[name]
		fmt.Fprintf(&sb, "  %-15s: %.2f ms (avg %.2f ms)\n", name, millis(s.last), millis(s.avg))
	}

	sb.WriteString("\nStats:\n")
	for _, name := range slices.Sorted(maps.Keys(p.counts)) {
		fmt.Fprintf(&sb, "  %-15s: %d\n", name, p.counts[name])
	}
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// ProfilerModule installs a Profiler. With ReportEvery > 0 the report is
// logged at debug level every that many frames.
type ProfilerModule struct {
	ReportEvery uint64
}

func (m ProfilerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewProfiler())
	if m.ReportEvery == 0 {
		return
	}
	cmd.UseSystem(System(func(p *Profiler) {
		if (app.Frame()+1)%m.ReportEvery == 0 {
			app.Logger().Debugf("frame %d\n%s", app.Frame()+1, p)
		}
	}).InStage(Finale))
}
