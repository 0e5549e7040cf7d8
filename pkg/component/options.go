package component

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/expr"
	"github.com/vango-dev/vbind/pkg/metrics"
	"github.com/vango-dev/vbind/pkg/pubsub"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

// Method is a component function callable from expressions as a method or a
// filter, exposable as a global.
type Method func(c *Component, args ...any) (any, error)

// Handler receives bus events subscribed through Options.On or On.
type Handler func(c *Component, args ...any) error

// EventHandler receives DOM events attached through Options.Events.
type EventHandler func(c *Component, e *dom.Event) error

// EventSpec attaches a DOM listener during initialisation. Selector picks
// the elements in the document; with ChildSelector set the listener is
// delegated to matching descendants.
type EventSpec struct {
	Selector      string
	Event         string
	ChildSelector string
	Handler       EventHandler
}

// Options configures a Component.
type Options struct {
	// Name identifies the component; a random UUID is used when empty.
	Name string

	Document *dom.Document

	// Root is the component element ($el).
	Root *html.Node

	// Prop is the argument passed by the parent: a map or *state.Object.
	// Keys of the form "parentKey:childKey" map a parent field onto a
	// differently named prop.
	Prop any

	PropTypes map[string]PropType

	// Data is the component's own initial data.
	Data *state.Object

	// Methods are callable from binding expressions; filters are methods
	// whose first argument is the filtered value.
	Methods map[string]Method

	// Expose lists methods published to Globals.
	Expose []string

	Events []EventSpec

	// On subscribes bus events.
	On map[string]Handler

	// Assign reads server-rendered content into the data instead of
	// rendering the data into the template.
	Assign bool

	Inited func(c *Component) error

	Mode      reactive.Mode
	Bus       *pubsub.Bus
	Queue     *reactive.Queue
	Globals   *Globals
	Evaluator expr.Evaluator
	Logger    *slog.Logger
	Metrics   metrics.Recorder
}

// MountType selects how Mount places the child element.
type MountType int

const (
	// MountAppend appends the child element to the slot.
	MountAppend MountType = iota

	// MountReplace replaces the slot with the child element.
	MountReplace
)

// MountOptions configures Mount.
type MountOptions struct {
	Type MountType

	// Name registers the child in the parent's Children.
	Name string
}
