// Package headless provides an in-memory scene.Provider that records every
// backend mutation. It backs the headless demo mode and the cache tests.
package headless

import (
	"errors"
	"fmt"

	"github.com/gekko3d/framepipe/pipeline/scene"
	"github.com/google/uuid"
)

// ErrForeignHandle is returned when a handle was not minted by this recorder.
var ErrForeignHandle = errors.New("headless: handle not owned by recorder")

// Node is the recorder's backend resource.
type Node struct {
	ID       uuid.UUID
	Kind     scene.Kind
	At       scene.Placement
	Props    any
	Visible  bool
	Released bool
	Updates  int
}

// Op is one recorded provider call.
type Op struct {
	Name string
	ID   uuid.UUID
}

type Recorder struct {
	nodes map[uuid.UUID]*Node
	order []uuid.UUID
	ops   []Op

	// FailCreate, when set, is returned by the next Create* call and cleared.
	FailCreate error
	// FailUpdate is the same for the next Update* call.
	FailUpdate error
}

func NewRecorder() *Recorder {
	return &Recorder{
		nodes: make(map[uuid.UUID]*Node),
	}
}

func (r *Recorder) CreateRect(at scene.Placement, p scene.RectProps) (scene.Handle, error) {
	return r.create(scene.KindRect, at, p)
}

func (r *Recorder) UpdateRect(h scene.Handle, at scene.Placement, p scene.RectProps) error {
	return r.update(h, scene.KindRect, at, p)
}

func (r *Recorder) CreateGrid(at scene.Placement, p scene.GridProps) (scene.Handle, error) {
	return r.create(scene.KindGrid, at, p)
}

func (r *Recorder) UpdateGrid(h scene.Handle, at scene.Placement, p scene.GridProps) error {
	return r.update(h, scene.KindGrid, at, p)
}

func (r *Recorder) CreateText(at scene.Placement, p scene.TextProps) (scene.Handle, error) {
	return r.create(scene.KindText, at, p)
}

func (r *Recorder) UpdateText(h scene.Handle, at scene.Placement, p scene.TextProps) error {
	return r.update(h, scene.KindText, at, p)
}

func (r *Recorder) SetVisible(h scene.Handle, visible bool) {
	n, err := r.lookup(h)
	if err != nil {
		return
	}
	n.Visible = visible
	if visible {
		r.record("show", n.ID)
	} else {
		r.record("hide", n.ID)
	}
}

func (r *Recorder) Release(h scene.Handle) {
	n, err := r.lookup(h)
	if err != nil || n.Released {
		return
	}
	n.Released = true
	n.Visible = false
	r.record("release", n.ID)
}

func (r *Recorder) create(kind scene.Kind, at scene.Placement, props any) (scene.Handle, error) {
	if err := r.FailCreate; err != nil {
		r.FailCreate = nil
		return nil, err
	}
	n := &Node{
		ID:      uuid.New(),
		Kind:    kind,
		At:      at,
		Props:   props,
		Visible: true,
	}
	r.nodes[n.ID] = n
	r.order = append(r.order, n.ID)
	r.record("create_"+kind.String(), n.ID)
	return n, nil
}

func (r *Recorder) update(h scene.Handle, kind scene.Kind, at scene.Placement, props any) error {
	n, err := r.lookup(h)
	if err != nil {
		return err
	}
	if n.Kind != kind {
		return fmt.Errorf("headless: update %s on %s node %s", kind, n.Kind, n.ID)
	}
	if err := r.FailUpdate; err != nil {
		r.FailUpdate = nil
		return err
	}
	n.At = at
	n.Props = props
	n.Updates++
	r.record("update_"+kind.String(), n.ID)
	return nil
}

func (r *Recorder) lookup(h scene.Handle) (*Node, error) {
	n, ok := h.(*Node)
	if !ok || n == nil || r.nodes[n.ID] != n {
		return nil, ErrForeignHandle
	}
	return n, nil
}

func (r *Recorder) record(name string, id uuid.UUID) {
	r.ops = append(r.ops, Op{Name: name, ID: id})
}

// Ops returns every recorded call since the last ResetOps.
func (r *Recorder) Ops() []Op { return r.ops }

// Mutations is the number of recorded calls since the last ResetOps.
func (r *Recorder) Mutations() int { return len(r.ops) }

func (r *Recorder) ResetOps() { r.ops = r.ops[:0] }

// Count returns how many recorded calls had the given name.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, op := range r.ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

// Allocated is the number of handles ever created.
func (r *Recorder) Allocated() int { return len(r.order) }

// Visible returns the visible, unreleased nodes in creation order.
func (r *Recorder) Visible() []*Node {
	var out []*Node
	for _, id := range r.order {
		if n := r.nodes[id]; n.Visible && !n.Released {
			out = append(out, n)
		}
	}
	return out
}
