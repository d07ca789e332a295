package scene

import (
	"fmt"
	"sort"
)

// Logger is the subset of the host logger the cache reports through.
type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// Request carries the identity and placement of one upsert.
//
// Revision must be the viewport revision the placement was derived from. The
// caller bumps it only when the window→design mapping changes; bumping it
// every frame rebuilds every keyed node every frame and defeats the cache.
type Request struct {
	Key      string // empty: ephemeral node, created fresh and never reused
	Static   bool   // static nodes are never hidden by FinalizeFrame
	Revision uint64
	At       Placement
}

type tag uint8

const (
	tagDynamic tag = iota
	tagStatic
)

type record struct {
	key      string
	kind     Kind
	props    any
	revision uint64
	visible  bool
	tag      tag
	seen     uint64
	handle   Handle
	live     bool
}

// Cache keeps one backend node per key across frames and only touches the
// provider when a node's description or the viewport changed. Records live in
// a dense arena indexed by key; freed slots are reused.
//
// A frame is BeginFrame, any number of Upsert calls, then FinalizeFrame.
// The cache is not safe for concurrent use.
type Cache struct {
	provider Provider
	logger   Logger

	records []record
	index   map[string]int
	free    []int

	frame     uint64
	ephemeral []Handle

	stats FrameStats
}

type Option func(*Cache)

func WithLogger(l Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(provider Provider, opts ...Option) *Cache {
	c := &Cache{
		provider: provider,
		logger:   nopLogger{},
		index:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BeginFrame resets the active set and discards last frame's ephemeral nodes.
func (c *Cache) BeginFrame() {
	c.frame++
	for _, h := range c.ephemeral {
		c.discard(h)
	}
	c.ephemeral = c.ephemeral[:0]
	c.stats = FrameStats{}
}

func (c *Cache) UpsertRect(req Request, p RectProps) (Handle, error) {
	return c.upsert(KindRect, req, p,
		func() (Handle, error) { return c.provider.CreateRect(req.At, p) },
		func(h Handle) error { return c.provider.UpdateRect(h, req.At, p) },
	)
}

func (c *Cache) UpsertGrid(req Request, p GridProps) (Handle, error) {
	return c.upsert(KindGrid, req, p,
		func() (Handle, error) { return c.provider.CreateGrid(req.At, p) },
		func(h Handle) error { return c.provider.UpdateGrid(h, req.At, p) },
	)
}

func (c *Cache) UpsertText(req Request, p TextProps) (Handle, error) {
	return c.upsert(KindText, req, p,
		func() (Handle, error) { return c.provider.CreateText(req.At, p) },
		func(h Handle) error { return c.provider.UpdateText(h, req.At, p) },
	)
}

func (c *Cache) upsert(kind Kind, req Request, props any, create func() (Handle, error), update func(Handle) error) (Handle, error) {
	if req.Key == "" {
		h, err := create()
		if err != nil {
			return nil, fmt.Errorf("scene: create ephemeral %s: %w", kind, err)
		}
		c.ephemeral = append(c.ephemeral, h)
		c.stats.Ephemeral++
		return h, nil
	}

	idx, ok := c.index[req.Key]
	if !ok {
		h, err := create()
		if err != nil {
			return nil, fmt.Errorf("scene: create %s %q: %w", kind, req.Key, err)
		}
		idx = c.alloc()
		c.records[idx] = record{
			key:      req.Key,
			kind:     kind,
			props:    props,
			revision: req.Revision,
			visible:  true,
			handle:   h,
			live:     true,
		}
		c.index[req.Key] = idx
		c.stats.Created++
		c.logger.Debugf("scene: created %s node %q", kind, req.Key)
	} else {
		rec := &c.records[idx]
		switch {
		case rec.kind != kind:
			h, err := create()
			if err != nil {
				return nil, fmt.Errorf("scene: replace %s %q with %s: %w", rec.kind, req.Key, kind, err)
			}
			c.logger.Debugf("scene: node %q changed kind %s -> %s", req.Key, rec.kind, kind)
			c.discard(rec.handle)
			rec.kind = kind
			rec.handle = h
			rec.props = props
			rec.revision = req.Revision
			rec.visible = true
			c.stats.Created++
		case rec.props != props || rec.revision != req.Revision:
			if err := update(rec.handle); err != nil {
				return nil, fmt.Errorf("scene: update %s %q: %w", kind, req.Key, err)
			}
			rec.props = props
			rec.revision = req.Revision
			c.stats.Rebuilt++
		default:
			c.stats.Skipped++
		}
	}

	rec := &c.records[idx]
	if !rec.visible {
		c.provider.SetVisible(rec.handle, true)
		rec.visible = true
		c.stats.Shown++
	}
	rec.seen = c.frame
	if req.Static {
		rec.tag = tagStatic
	} else {
		rec.tag = tagDynamic
	}
	return rec.handle, nil
}

// FinalizeFrame hides every non-static node that was not upserted since
// BeginFrame. Hidden nodes keep their handle and reappear on the next upsert.
func (c *Cache) FinalizeFrame() {
	for i := range c.records {
		rec := &c.records[i]
		if !rec.live || rec.tag == tagStatic || rec.seen == c.frame || !rec.visible {
			continue
		}
		c.provider.SetVisible(rec.handle, false)
		rec.visible = false
		c.stats.Hidden++
	}
}

// Remove drops a keyed node and frees its backend resource. The cache never
// calls this itself; it exists for scene teardown.
func (c *Cache) Remove(key string) bool {
	idx, ok := c.index[key]
	if !ok {
		return false
	}
	c.discard(c.records[idx].handle)
	c.records[idx] = record{}
	delete(c.index, key)
	c.free = append(c.free, idx)
	return true
}

// Reset removes every node, keyed and ephemeral.
func (c *Cache) Reset() {
	for _, key := range c.Keys() {
		c.Remove(key)
	}
	for _, h := range c.ephemeral {
		c.discard(h)
	}
	c.ephemeral = c.ephemeral[:0]
}

func (c *Cache) alloc() int {
	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]
		return idx
	}
	c.records = append(c.records, record{})
	return len(c.records) - 1
}

func (c *Cache) discard(h Handle) {
	if r, ok := c.provider.(Releaser); ok {
		r.Release(h)
		return
	}
	c.provider.SetVisible(h, false)
}

// Handle returns the backend handle bound to key.
func (c *Cache) Handle(key string) (Handle, bool) {
	idx, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return c.records[idx].handle, true
}

func (c *Cache) Visible(key string) bool {
	idx, ok := c.index[key]
	return ok && c.records[idx].visible
}

func (c *Cache) Static(key string) bool {
	idx, ok := c.index[key]
	return ok && c.records[idx].tag == tagStatic
}

// Len is the number of keyed nodes, visible or not.
func (c *Cache) Len() int { return len(c.index) }

// Keys returns every keyed node in sorted order.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, len(c.index))
	for k := range c.index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ActiveKeys returns the keys upserted since the last BeginFrame.
func (c *Cache) ActiveKeys() []string {
	var keys []string
	for _, rec := range c.records {
		if rec.live && rec.seen == c.frame {
			keys = append(keys, rec.key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Ephemeral returns the unkeyed handles created this frame.
func (c *Cache) Ephemeral() []Handle { return c.ephemeral }

func (c *Cache) Stats() FrameStats {
	s := c.stats
	s.Nodes = len(c.index)
	return s
}
