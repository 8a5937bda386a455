// Package document decodes JSON view documents into a tree of typed nodes.
//
// A document is a node object, optionally wrapped as {"root": node}:
//
//	{
//	  "type": "box",
//	  "props": {"color": "red"},
//	  "layout": {"flex-direction": "column", "padding": 8},
//	  "children": [{"type": "text", "props": {"value": "hi"}}]
//	}
//
// "kind" is accepted in place of "type". Props keep their declaration order
// and duplicates. String values are passed through unquoted; any other JSON
// value becomes its compact JSON text. Unknown node fields are ignored.
//
// Errors are *errors.Error values in the decode phase carrying the path of
// the offending node, such as root.children[1].
package document
