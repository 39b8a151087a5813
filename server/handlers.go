package server

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"reflect"

	"github.com/luisarboleda17/socket-server/proto"
)

// dispatch routes one decoded message in strict priority order:
// CloseMessage, named event handler, text handler, JSON catch-all.
// Unmatched messages are logged and dropped; the loop continues.
func (c *connection) dispatch(msg proto.Message) {
	if _, ok := msg.(proto.CloseMessage); ok {
		slog.Info("Close requested by peer", "worker", c.worker, "id", c.id)
		c.close(true)
		return
	}

	handler, ok := c.registry.Resolve(msg)
	if !ok {
		slog.Warn("No handler registered for message", "worker", c.worker, "id", c.id, "contentType", msg.ContentType())
		return
	}
	c.invoke(handler, msg)
}

// invoke runs a handler and sends its normalized results. A panic in
// user handler code is contained: it closes this connection but never
// takes the worker down with it.
func (c *connection) invoke(handler Handler, msg proto.Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Handler panicked", "worker", c.worker, "id", c.id, "panic", fmt.Sprint(r))
			c.close(true)
		}
	}()

	result := handler(msg)
	if result == nil {
		return
	}

	if seq, ok := result.(iter.Seq[any]); ok {
		for value := range seq {
			if !c.reply(value) {
				return
			}
		}
		return
	}
	c.reply(result)
}

// reply normalizes and sends one handler result. It reports false once
// the connection is closed so streamed results stop early.
func (c *connection) reply(value any) bool {
	msg := normalizeResult(value)
	if msg == nil {
		return true
	}

	if _, ok := msg.(proto.CloseMessage); ok {
		// The close itself notifies the peer; nothing else is sent.
		c.close(false)
		return false
	}

	if err := c.send(msg); err != nil {
		if errors.Is(err, proto.ErrNotReady) {
			// The result has nothing to send; skip it and keep going.
			slog.Debug("Skipping empty reply", "worker", c.worker, "id", c.id)
			return true
		}
		slog.Warn("Failed to send reply", "worker", c.worker, "id", c.id, "error", err.Error())
		c.close(true)
		return false
	}
	return true
}

// normalizeResult maps a handler result to a wire message: messages
// pass through, maps become JSON, everything else becomes text.
func normalizeResult(value any) proto.Message {
	if value == nil {
		return nil
	}
	if msg, ok := value.(proto.Message); ok {
		return msg
	}
	if reflect.ValueOf(value).Kind() == reflect.Map {
		return proto.JSONMessage{Value: value}
	}
	return proto.TextMessage{Text: fmt.Sprint(value)}
}
