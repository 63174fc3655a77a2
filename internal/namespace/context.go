package namespace

import (
	"github.com/dshills/keystate/internal/message"
)

// Context is passed to initiators in place of an implicit receiver.
// It stays valid after the initiator returns and may be used from other
// goroutines to dispatch later.
type Context struct {
	ns     *Namespace
	action *Action
}

// Namespace returns the namespace that owns the action.
func (c *Context) Namespace() *Namespace {
	return c.ns
}

// Action returns the action being initiated.
func (c *Context) Action() *Action {
	return c.action
}

// Type returns the action's type identifier.
func (c *Context) Type() string {
	return c.action.Type()
}

// State returns the owning namespace's current local state.
func (c *Context) State() (any, error) {
	return c.ns.GetState()
}

// Message builds a message tagged with the action's type.
func (c *Context) Message(payload any) *message.Message {
	msg := message.New(c.Type(), payload).WithSource(c.Type())
	return &msg
}

// Dispatch dispatches payload tagged with the action's type.
func (c *Context) Dispatch(payload any) error {
	return c.ns.Dispatch(*c.Message(payload))
}

// DispatchMessage dispatches msg as is. It can target any action in the tree.
func (c *Context) DispatchMessage(msg message.Message) error {
	return c.ns.Dispatch(msg)
}

// tag forces msg onto the action's type, filling in an ID when missing.
func (c *Context) tag(msg message.Message) message.Message {
	actionType := c.Type()
	if msg.ID == "" {
		fresh := message.New(actionType, msg.Payload)
		fresh.Source = msg.Source
		msg = fresh
	}
	if msg.Source == "" {
		msg.Source = actionType
	}
	return msg.WithType(actionType)
}
