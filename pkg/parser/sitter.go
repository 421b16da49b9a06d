// Package parser implements the LanguageParser capability (spec §6.2): it
// walks tree-sitter syntax trees and normalizes them into Component and
// Relationship records for the indexing pipeline.
package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// NodeIterator walks a tree-sitter tree in depth-first, left-to-right order.
type NodeIterator struct {
	stack []*sitter.Node
}

// NewNodeIterator starts an iterator rooted at the given node.
func NewNodeIterator(root *sitter.Node) *NodeIterator {
	return &NodeIterator{stack: []*sitter.Node{root}}
}

// Next returns the next node in the walk, or nil when exhausted.
func (it *NodeIterator) Next() *sitter.Node {
	if len(it.stack) == 0 {
		return nil
	}
	node := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]

	for i := int(node.ChildCount()) - 1; i >= 0; i-- {
		if child := node.Child(i); child != nil {
			it.stack = append(it.stack, child)
		}
	}
	return node
}

// FindChildByType returns the first child (named or not) of the given type.
func FindChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// FindChildrenByType returns all children (named or not) of the given type.
func FindChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.Type() == nodeType {
			out = append(out, child)
		}
	}
	return out
}

// Content returns the source text spanned by node.
func Content(node *sitter.Node, source []byte) string {
	return node.Content(source)
}

// Span returns 1-based start/end lines and 0-based start/end columns.
func Span(node *sitter.Node) (startLine, endLine, startCol, endCol int) {
	start, end := node.StartPoint(), node.EndPoint()
	return int(start.Row) + 1, int(end.Row) + 1, int(start.Column), int(end.Column)
}
