// Package path provides the hierarchical location type used to address
// namespaces inside the global state tree.
//
// # Path Format
//
// Paths use slash-notation, one segment per namespace level:
//
//	cart
//	cart/items
//	settings/theme
//
// The root namespace has the empty path. Action type identifiers reuse the
// same notation with the action's local name as the final segment, so the
// "add" action of the "cart" namespace is identified as "cart/add".
//
// # Index
//
// Index is a segment trie keyed by Path. The namespace tree builds one when
// the root is mounted and uses it as the arena of namespaces, so routing a
// message never re-derives paths from the tree shape.
//
//	idx := path.NewIndex[*Node]()
//	idx.Insert(path.Join("cart"), cartNode)
//	node, ok := idx.Get(path.Path("cart"))
package path
