package server

import (
	"github.com/luisarboleda17/socket-server/proto"
)

// Handler processes one decoded message. The result may be nil (no
// reply), a proto.Message (sent as-is), a map (sent as a JSONMessage),
// an iter.Seq[any] whose values are streamed as individual replies, or
// any other value sent as a TextMessage of its textual representation.
// A CloseMessage result closes the connection.
type Handler func(msg proto.Message) any

// HandlerRegistry maps incoming messages to handlers: one optional
// text handler, one optional JSON catch-all handler and named event
// handlers. Build it fully before starting the server; afterwards it
// is read-only and shared lock-free by every worker and connection.
type HandlerRegistry struct {
	text    Handler
	json    Handler
	events  map[string]Handler
	startup func()
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{events: make(map[string]Handler)}
}

// Text sets the handler for text messages.
func (r *HandlerRegistry) Text(h Handler) *HandlerRegistry {
	r.text = h
	return r
}

// JSON sets the catch-all handler for JSON messages. Named event
// handlers take precedence for their events.
func (r *HandlerRegistry) JSON(h Handler) *HandlerRegistry {
	r.json = h
	return r
}

// Event sets the handler invoked for events with the given name.
func (r *HandlerRegistry) Event(name string, h Handler) *HandlerRegistry {
	r.events[name] = h
	return r
}

// Startup sets a hook run once per worker before its accept loop.
func (r *HandlerRegistry) Startup(fn func()) *HandlerRegistry {
	r.startup = fn
	return r
}

// Resolve picks the handler for msg. Events route to their named
// handler first, then fall through to the JSON catch-all; plain text
// goes to the text handler; other JSON goes to the catch-all.
func (r *HandlerRegistry) Resolve(msg proto.Message) (Handler, bool) {
	switch m := msg.(type) {
	case proto.EventMessage:
		if h, ok := r.events[m.Name]; ok {
			return h, true
		}
		if r.json != nil {
			return r.json, true
		}
	case proto.TextMessage:
		if r.text != nil {
			return r.text, true
		}
	case proto.JSONMessage:
		if r.json != nil {
			return r.json, true
		}
	}
	return nil, false
}
