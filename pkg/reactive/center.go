package reactive

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/vango-dev/vbind/pkg/metrics"
	"github.com/vango-dev/vbind/pkg/pubsub"
	"github.com/vango-dev/vbind/pkg/state"
)

// Mode selects how array length changes reach list observers.
type Mode int

const (
	// ModeNative notifies list observers synchronously.
	ModeNative Mode = iota

	// ModeFallback defers list and children notifications of array length
	// changes to the Queue.
	ModeFallback
)

// ParseMode maps a config value to a Mode. Unknown values select ModeNative.
func ParseMode(s string) Mode {
	if strings.EqualFold(s, "fallback") {
		return ModeFallback
	}
	return ModeNative
}

func (m Mode) String() string {
	if m == ModeFallback {
		return "fallback"
	}
	return "native"
}

// ListChange is delivered to list observers when an array's length changes or
// the array is replaced.
type ListChange struct {
	Length  int
	IsReset bool
}

// ChildChange is delivered to children observers after every mutation.
type ChildChange struct {
	// Key is the written path.
	Key string

	// Value is the written value.
	Value any

	// Target is the replaced value on resets and the array on deferred
	// length changes.
	Target any

	// Reset is set when a top-level instance key was reassigned.
	Reset bool
}

// Options configures an Instance and its Center.
type Options struct {
	Mode Mode

	// Bus receives the sweep events. Nil disables sweeps.
	Bus *pubsub.Bus

	// Queue receives deferred jobs. A private queue is created when nil.
	Queue *Queue

	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Center is the dependency graph of one instance: path subjects, list
// subjects and the children subject.
type Center struct {
	mode     Mode
	bus      *pubsub.Bus
	queue    *Queue
	logger   *slog.Logger
	metrics  metrics.Recorder
	instance *Instance

	subjects  map[string]*Subject
	templates map[string]*Subject
	children  Subject
	nodes     map[state.Container]*Node
}

func newCenter(opts Options, in *Instance) *Center {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queue := opts.Queue
	if queue == nil {
		queue = NewQueue()
	}
	return &Center{
		mode:      opts.Mode,
		bus:       opts.Bus,
		queue:     queue,
		logger:    logger,
		metrics:   metrics.Or(opts.Metrics),
		instance:  in,
		subjects:  make(map[string]*Subject),
		templates: make(map[string]*Subject),
		nodes:     make(map[state.Container]*Node),
	}
}

// Mode returns the notification mode.
func (c *Center) Mode() Mode { return c.mode }

// Bus returns the sweep bus, which may be nil.
func (c *Center) Bus() *pubsub.Bus { return c.bus }

// Queue returns the deferred job queue.
func (c *Center) Queue() *Queue { return c.queue }

// Logger returns the center's logger.
func (c *Center) Logger() *slog.Logger { return c.logger }

// Metrics returns the metrics recorder.
func (c *Center) Metrics() metrics.Recorder { return c.metrics }

// AddObserver registers fn for the normalized path. Paths whose first segment
// is not a key of the instance are not observable; ok is false and remove is a
// no-op for them.
func (c *Center) AddObserver(path string, fn Observer) (remove func(), ok bool) {
	path = NormalizePath(path)
	if path == "" || !c.instance.Has(FirstSegment(path)) {
		return func() {}, false
	}
	s, found := c.subjects[path]
	if !found {
		s = &Subject{}
		c.subjects[path] = s
	}
	return s.Add(fn), true
}

// AddListObserver registers fn for length changes of the array at path.
func (c *Center) AddListObserver(path string, fn func(ListChange) error) (remove func()) {
	path = NormalizePath(path)
	s, found := c.templates[path]
	if !found {
		s = &Subject{}
		c.templates[path] = s
	}
	return s.Add(func(v any) error { return fn(v.(ListChange)) })
}

// AddChildObserver registers fn for every mutation of the instance.
func (c *Center) AddChildObserver(fn func(ChildChange) error) (remove func()) {
	return c.children.Add(func(v any) error { return fn(v.(ChildChange)) })
}

// Observed reports how many path observers are registered for path.
func (c *Center) Observed(path string) int {
	if s, ok := c.subjects[NormalizePath(path)]; ok {
		return s.Len()
	}
	return 0
}

// NotifyAll runs the notification protocol for a write of value at path.
// target is the container that was written to, or the new value itself for
// resets.
func (c *Center) NotifyAll(target any, path string, value any, isReset bool) error {
	lengthChange := isReset || strings.HasSuffix(path, ".length")

	if err := c.notifyPath(path, value); err != nil {
		return err
	}
	if isReset || state.IsContainer(value) {
		if err := c.notifyBelow(path); err != nil {
			return err
		}
	}
	if err := c.sweep(); err != nil {
		return err
	}

	change := ChildChange{Key: path, Value: value}
	if isReset {
		change.Target = target
		change.Reset = true
	}

	arr, isArray := target.(*state.Array)
	if !isArray || !lengthChange {
		return c.notifyChildren(change)
	}

	if c.mode == ModeFallback {
		change.Target = target
		c.queue.Enqueue(func() error {
			if err := c.notifyChildren(change); err != nil {
				return err
			}
			return c.notifyList(arr, isReset)
		})
		return nil
	}
	if err := c.notifyList(arr, isReset); err != nil {
		return err
	}
	return c.notifyChildren(change)
}

func (c *Center) notifyPath(path string, value any) error {
	s, ok := c.subjects[path]
	if !ok || s.Len() == 0 {
		return nil
	}
	c.metrics.Notification(metrics.KindValue)
	return s.Notify(value)
}

// notifyBelow re-delivers current values to observers of paths nested under
// a replaced subtree. Paths that no longer exist are skipped.
func (c *Center) notifyBelow(path string) error {
	prefix := path + "."
	var paths []string
	for p, s := range c.subjects {
		if strings.HasPrefix(p, prefix) && s.Len() > 0 {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		v, ok := c.instance.Lookup(p)
		if !ok {
			continue
		}
		if err := c.notifyPath(p, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Center) sweep() error {
	if c.bus == nil {
		return nil
	}
	c.metrics.Notification(metrics.KindSweep)
	for _, event := range []string{pubsub.EventUpdateClass, pubsub.EventUpdateAttr, pubsub.EventUpdateShow} {
		if err := c.bus.Publish(event); err != nil {
			return err
		}
	}
	return nil
}

func (c *Center) notifyList(arr *state.Array, isReset bool) error {
	s, ok := c.templates[arr.Path()]
	if !ok || s.Len() == 0 {
		return nil
	}
	change := ListChange{Length: arr.Len(), IsReset: isReset}
	c.logger.Debug("list change", "path", arr.Path(), "length", change.Length, "reset", isReset)
	c.metrics.Notification(metrics.KindList)
	return s.Notify(change)
}

func (c *Center) notifyChildren(change ChildChange) error {
	if c.children.Len() == 0 {
		return nil
	}
	c.metrics.Notification(metrics.KindChildren)
	return c.children.Notify(change)
}

// Wrap returns the Node for containers and v unchanged otherwise. The same
// container always yields the same *Node.
func (c *Center) Wrap(v any) any {
	ct, ok := v.(state.Container)
	if !ok {
		return v
	}
	if n, ok := c.nodes[ct]; ok {
		return n
	}
	n := &Node{center: c, target: ct}
	c.nodes[ct] = n
	return n
}

// Unwrap returns the container behind a *Node and v unchanged otherwise.
func Unwrap(v any) any {
	if n, ok := v.(*Node); ok {
		return n.target
	}
	return v
}
