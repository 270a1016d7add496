// Package tree provides a phylogenetic tree with branch lengths.
//
// Node ids follow the tips-first convention: tips occupy ids
// [0, NTips) and internal nodes occupy [NTips, NNodes). This is the
// ordering the ancestral reconstruction code relies on.
package tree

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Mode is a parser mode.
type Mode int

// Parser modes.
const (
	NORMAL Mode = iota
	LENGTH
)

// Tree is a rooted phylogenetic tree.
type Tree struct {
	*Node
	nodes     []*Node
	nTips     int
	nodeOrder []*Node
}

// NNodes returns the total number of nodes.
func (tree *Tree) NNodes() int {
	return len(tree.nodes)
}

// NTips returns the number of terminal nodes.
func (tree *Tree) NTips() int {
	return tree.nTips
}

// Nodes returns all nodes, indexed by node id.
func (tree *Tree) Nodes() []*Node {
	return tree.nodes
}

// GetNode returns a node given its id.
func (tree *Tree) GetNode(id int) *Node {
	return tree.nodes[id]
}

// Walker returns a channel with all nodes matching filter, in
// preorder.
func (tree *Tree) Walker(filter func(*Node) bool) <-chan *Node {
	ch := make(chan *Node, len(tree.nodes)+tree.Node.NSubNodes())
	tree.Walk(ch, filter)
	close(ch)
	return ch
}

// Terminals returns a channel with all terminal nodes.
func (tree *Tree) Terminals() <-chan *Node {
	return tree.Walker(func(node *Node) bool {
		return node.IsTerminal()
	})
}

// NodeOrder returns nodes in post-order: every node appears after all
// of its children, the root last. This is the order branch likelihood
// terms are accumulated in.
func (tree *Tree) NodeOrder() []*Node {
	if tree.nodeOrder == nil {
		tree.nodeOrder = appendPostOrder(make([]*Node, 0, len(tree.nodes)), tree.Node)
	}
	return tree.nodeOrder
}

func appendPostOrder(order []*Node, node *Node) []*Node {
	for _, child := range node.childNodes {
		order = appendPostOrder(order, child)
	}
	return append(order, node)
}

// index assigns node ids: tips first in preorder, then internal nodes
// in preorder.
func (tree *Tree) index() {
	tree.nodes = nil
	tree.nodeOrder = nil
	tree.nTips = 0
	for node := range tree.Walker(func(node *Node) bool {
		return node.IsTerminal()
	}) {
		node.Id = tree.nTips
		node.LeafId = tree.nTips
		tree.nodes = append(tree.nodes, node)
		tree.nTips++
	}
	id := tree.nTips
	for node := range tree.Walker(func(node *Node) bool {
		return !node.IsTerminal()
	}) {
		node.Id = id
		node.LeafId = -1
		tree.nodes = append(tree.nodes, node)
		id++
	}
}

// Copy creates an independent copy of the tree.
func (tree *Tree) Copy() (newTree *Tree) {
	newTree = &Tree{
		nodes: make([]*Node, len(tree.nodes)),
		nTips: tree.nTips,
	}
	for i, node := range tree.nodes {
		newTree.nodes[i] = node.Copy()
	}
	for i, node := range tree.nodes {
		newNode := newTree.nodes[i]
		for _, child := range node.childNodes {
			newNode.AddChild(newTree.nodes[child.Id])
		}
	}
	newTree.Node = newTree.nodes[tree.Node.Id]
	return
}

// Node is a single node of a phylogenetic tree.
type Node struct {
	Name         string
	BranchLength float64
	Parent       *Node
	childNodes   []*Node
	Id           int
	LeafId       int
}

// NewNode creates a new node with a given parent.
func NewNode(parent *Node) (node *Node) {
	return &Node{Parent: parent, LeafId: -1}
}

// Copy creates a copy of the node with empty parent and children.
func (node *Node) Copy() *Node {
	return &Node{
		Name:         node.Name,
		BranchLength: node.BranchLength,
		childNodes:   make([]*Node, 0, len(node.childNodes)),
		Id:           node.Id,
		LeafId:       node.LeafId,
	}
}

// AddChild adds a child node.
func (node *Node) AddChild(subNode *Node) {
	subNode.Parent = node
	node.childNodes = append(node.childNodes, subNode)
}

// ChildNodes returns all child nodes.
func (node *Node) ChildNodes() []*Node {
	return node.childNodes
}

// Walk sends all nodes of a subtree matching filter to a channel, in
// preorder.
func (node *Node) Walk(ch chan *Node, filter func(*Node) bool) {
	if filter == nil || filter(node) {
		ch <- node
	}
	for _, node := range node.childNodes {
		node.Walk(ch, filter)
	}
}

// NSubNodes returns the number of nodes in the subtree, including the
// node itself.
func (node *Node) NSubNodes() (size int) {
	for _, node := range node.childNodes {
		size += node.NSubNodes()
	}
	return size + 1
}

// IsRoot returns true if the node is a root node.
func (node *Node) IsRoot() bool {
	return node.Parent == nil
}

// IsTerminal returns true if the node is a tip.
func (node *Node) IsTerminal() bool {
	return len(node.childNodes) == 0
}

func (node *Node) String() (s string) {
	if node.IsTerminal() {
		return fmt.Sprintf("%s:%0.6f", node.Name, node.BranchLength)
	}
	s += "("
	for i, child := range node.childNodes {
		s += child.String()
		if i != len(node.childNodes)-1 {
			s += ","
		}
	}
	s += fmt.Sprintf("):%0.6f", node.BranchLength)
	if node.IsRoot() {
		s += ";"
	}
	return
}

// LongString returns an extended string representation of a node.
func (node *Node) LongString() (s string) {
	s = "<"
	if node.Parent == nil {
		s += "root, "
	}
	if node.Name != "" {
		s += "name=" + node.Name + ", "
	}
	s += fmt.Sprintf("Id=%v, BranchLength=%v", node.Id, node.BranchLength)
	if node.IsTerminal() {
		s += fmt.Sprintf(", LeafId=%v", node.LeafId)
	}
	s += ">"
	return
}

// IsSpecial returns true if a rune is a Newick special character.
func IsSpecial(c rune) bool {
	switch c {
	case '(', ')', ':', ';', ',':
		return true
	}
	return false
}

// NewickSplit is a bufio.SplitFunc tokenizing Newick format.
func NewickSplit(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	// Skip leading spaces; and return 1-char tokens.
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if IsSpecial(r) {
			return start + width, data[start : start+width], nil
		}
		if !unicode.IsSpace(r) {
			break
		}
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// Scan until space or special character.
	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if unicode.IsSpace(r) || IsSpecial(r) {
			return i, data[start:i], nil
		}
	}
	// If we're at EOF, we have a final, non-empty, non-terminated word. Return it.
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	// Request more data.
	return 0, nil, nil
}

// ParseNewick parses a tree in Newick format. Node ids are assigned
// with tips first (see the package documentation).
func ParseNewick(rd io.Reader) (tree *Tree, err error) {
	scanner := bufio.NewScanner(rd)
	scanner.Split(NewickSplit)

	node := NewNode(nil)
	tree = &Tree{Node: node}

	mode := NORMAL

	for scanner.Scan() {
		text := scanner.Text()
		switch text {
		case "(":
			subNode := NewNode(nil)
			node.AddChild(subNode)
			node = subNode
		case ",":
			if node.Parent == nil {
				return nil, errors.New("top level comma mismatch")
			}
			subNode := NewNode(nil)
			node.Parent.AddChild(subNode)
			node = subNode
		case ")":
			if node.Parent == nil {
				return nil, errors.New("brackets mismatch")
			}
			node = node.Parent
		case ":":
			mode = LENGTH
		case ";":
			tree.index()
			return tree, nil
		default:
			switch mode {
			case LENGTH:
				l, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, err
				}
				node.BranchLength = l
				mode = NORMAL
			default:
				node.Name = text
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}

	tree.index()
	return tree, nil
}
