// Package namespace composes the global state tree from named namespaces.
//
// Each namespace owns the slice of the global state at its path, a set of
// child namespaces and a set of actions. An action bundles an initiator,
// which turns call arguments into a message, with a pure reducer, which
// turns the namespace's local state and a message into new local state.
//
// # Assembly
//
//	root, _ := namespace.New("")
//	cart, _ := root.NewChild("cart", namespace.WithDefault(tree.Map{"items": []any{}}))
//	add, _ := cart.AddAction("add",
//	    namespace.WithInitiator(func(c *namespace.Context, args ...any) (*message.Message, error) {
//	        return c.Message(args[0]), nil
//	    }),
//	    namespace.WithReducer(appendItem))
//
// # Mounting
//
// Mount seals the topology, issues every action type ("cart/add"), builds the
// routing table from type to owning path, and installs the root's Reduce and
// the effective default state into a container:
//
//	d := dispatcher.NewWithDefaults()
//	if err := root.Mount(d); err != nil {
//	    return err
//	}
//	add.Initiate("pen")
//	items, _ := cart.GetState()
//
// # Routing
//
// Reduce looks the message type up in the routing table and walks down the
// owning path. Every namespace on the way hands its child the child's slice
// and writes the result back copy-on-write, so unrelated slices keep their
// identity. Unknown types are ignored.
package namespace
