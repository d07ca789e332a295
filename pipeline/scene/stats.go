package scene

// FrameStats counts cache decisions since the last BeginFrame.
type FrameStats struct {
	Created   int
	Rebuilt   int
	Skipped   int
	Shown     int
	Hidden    int
	Ephemeral int
	Nodes     int
}

// Mutations is the number of backend calls the frame cost.
func (s FrameStats) Mutations() int {
	return s.Created + s.Rebuilt + s.Shown + s.Hidden + s.Ephemeral
}

// Each reports every counter under a stable name, for profilers and logs.
func (s FrameStats) Each(fn func(name string, value int)) {
	fn("scene.created", s.Created)
	fn("scene.rebuilt", s.Rebuilt)
	fn("scene.skipped", s.Skipped)
	fn("scene.shown", s.Shown)
	fn("scene.hidden", s.Hidden)
	fn("scene.ephemeral", s.Ephemeral)
	fn("scene.nodes", s.Nodes)
}
