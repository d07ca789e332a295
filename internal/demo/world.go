// Package demo is the bouncing-box simulation the framedemo command renders.
// The simulation produces World snapshots; the render side only ever sees
// those snapshots.
package demo

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

type Box struct {
	ID    int        `json:"id"`
	Pos   mgl32.Vec2 `json:"pos"`
	Size  mgl32.Vec2 `json:"size"`
	Vel   mgl32.Vec2 `json:"vel"`
	Color mgl32.Vec4 `json:"color"`
}

// World is one simulation snapshot in design-space units.
type World struct {
	Tick   uint64  `json:"tick"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
	Boxes  []Box   `json:"boxes"`
}

// CloneWorld deep-copies w so the producer can keep mutating its boxes.
func CloneWorld(w World) World {
	w.Boxes = append([]Box(nil), w.Boxes...)
	return w
}

type Sim struct {
	world World
}

// NewSim places count boxes at random inside a width x height arena. The same
// seed always yields the same world.
func NewSim(count int, width, height float32, seed uint64) *Sim {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	w := World{Width: width, Height: height, Boxes: make([]Box, count)}

	for i := range w.Boxes {
		size := 8 + rng.Float32()*24
		w.Boxes[i] = Box{
			ID:   i,
			Pos:  mgl32.Vec2{rng.Float32() * (width - size), rng.Float32() * (height - size)},
			Size: mgl32.Vec2{size, size},
			Vel:  mgl32.Vec2{(rng.Float32()*2 - 1) * 120, (rng.Float32()*2 - 1) * 120},
			Color: mgl32.Vec4{
				0.3 + rng.Float32()*0.7,
				0.3 + rng.Float32()*0.7,
				0.3 + rng.Float32()*0.7,
				1,
			},
		}
	}
	return &Sim{world: w}
}

// Step advances the simulation by dt seconds, reflecting boxes off the walls.
func (s *Sim) Step(dt float32) {
	w := &s.world
	for i := range w.Boxes {
		b := &w.Boxes[i]
		b.Pos = b.Pos.Add(b.Vel.Mul(dt))

		maxX, maxY := w.Width-b.Size.X(), w.Height-b.Size.Y()
		if b.Pos[0] < 0 {
			b.Pos[0], b.Vel[0] = -b.Pos[0], -b.Vel[0]
		} else if b.Pos[0] > maxX {
			b.Pos[0], b.Vel[0] = 2*maxX-b.Pos[0], -b.Vel[0]
		}
		if b.Pos[1] < 0 {
			b.Pos[1], b.Vel[1] = -b.Pos[1], -b.Vel[1]
		} else if b.Pos[1] > maxY {
			b.Pos[1], b.Vel[1] = 2*maxY-b.Pos[1], -b.Vel[1]
		}
	}
	w.Tick++
}

func (s *Sim) Tick() uint64 { return s.world.Tick }

// World returns the live world. Its boxes alias the simulation's storage and
// change on the next Step.
func (s *Sim) World() World { return s.world }

// Snapshot copies the world into dst, reusing dst's box storage.
func (s *Sim) Snapshot(dst World) World {
	boxes := append(dst.Boxes[:0], s.world.Boxes...)
	dst = s.world
	dst.Boxes = boxes
	return dst
}
