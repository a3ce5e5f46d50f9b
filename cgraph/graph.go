package cgraph

import (
	"fmt"

	"github.com/switchpay/routing/types"
)

// NodeID indexes a node within one graph. IDs are only meaningful for the
// graph that issued them.
type NodeID int

type nodeKind int

const (
	nodeValue nodeKind = iota
	nodeAll
	nodeAny
	nodeNot
	nodeAmountRange
)

// amountRange is an inclusive bound on the payment amount. A nil bound is
// open on that side.
type amountRange struct {
	min *int64
	max *int64
}

type node struct {
	kind     nodeKind
	value    Value
	amount   amountRange
	children []NodeID
}

// Graph is the compiled constraint graph. Immutable after Build; safe for
// concurrent queries, each with its own Memoization.
type Graph struct {
	nodes []node
	roots map[types.ConnectorName][]NodeID
}

// Memoization caches node verdicts within a single query. It must not be
// shared across queries: verdicts depend on the context.
type Memoization map[NodeID]bool

// NewMemoization returns an empty per-query memoization table.
func NewMemoization() Memoization {
	return make(Memoization)
}

// CheckValueValidity reports whether the given connector is eligible under
// the context: true iff at least one of the connector's account roots is
// satisfied. A connector with no roots in the graph is ineligible.
func (g *Graph) CheckValueValidity(connector types.ConnectorName, ctx *Context, memo Memoization) (bool, error) {
	roots, ok := g.roots[connector]
	if !ok {
		return false, nil
	}
	for _, root := range roots {
		satisfied, err := g.eval(root, ctx, memo)
		if err != nil {
			return false, err
		}
		if satisfied {
			return true, nil
		}
	}
	return false, nil
}

// Connectors lists the connectors the graph holds roots for.
func (g *Graph) Connectors() []types.ConnectorName {
	out := make([]types.ConnectorName, 0, len(g.roots))
	for name := range g.roots {
		out = append(out, name)
	}
	return out
}

func (g *Graph) eval(id NodeID, ctx *Context, memo Memoization) (bool, error) {
	if id < 0 || int(id) >= len(g.nodes) {
		return false, fmt.Errorf("constraint graph node %d out of range", id)
	}
	if verdict, ok := memo[id]; ok {
		return verdict, nil
	}

	n := g.nodes[id]
	var verdict bool
	switch n.kind {
	case nodeValue:
		verdict = ctx.Holds(n.value)

	case nodeAll:
		verdict = true
		for _, child := range n.children {
			ok, err := g.eval(child, ctx, memo)
			if err != nil {
				return false, err
			}
			if !ok {
				verdict = false
				break
			}
		}

	case nodeAny:
		verdict = false
		for _, child := range n.children {
			ok, err := g.eval(child, ctx, memo)
			if err != nil {
				return false, err
			}
			if ok {
				verdict = true
				break
			}
		}

	case nodeNot:
		if len(n.children) != 1 {
			return false, fmt.Errorf("negation node %d has %d children", id, len(n.children))
		}
		inner, err := g.eval(n.children[0], ctx, memo)
		if err != nil {
			return false, err
		}
		verdict = !inner

	case nodeAmountRange:
		amount, present := ctx.Amount()
		if !present {
			verdict = true
			break
		}
		verdict = true
		if n.amount.min != nil && amount < *n.amount.min {
			verdict = false
		}
		if n.amount.max != nil && amount > *n.amount.max {
			verdict = false
		}

	default:
		return false, fmt.Errorf("constraint graph node %d has unknown kind", id)
	}

	memo[id] = verdict
	return verdict, nil
}

// GraphBuilder assembles a Graph. Not safe for concurrent use; the built
// Graph is.
type GraphBuilder struct {
	nodes []node
	roots map[types.ConnectorName][]NodeID
}

// NewGraphBuilder returns an empty builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{roots: make(map[types.ConnectorName][]NodeID)}
}

func (b *GraphBuilder) push(n node) NodeID {
	b.nodes = append(b.nodes, n)
	return NodeID(len(b.nodes) - 1)
}

// MakeValueNode adds a leaf asserting key == value.
func (b *GraphBuilder) MakeValueNode(v Value) NodeID {
	return b.push(node{kind: nodeValue, value: v})
}

// MakeAllNode adds a conjunction over children.
func (b *GraphBuilder) MakeAllNode(children []NodeID) NodeID {
	return b.push(node{kind: nodeAll, children: children})
}

// MakeAnyNode adds a disjunction over children.
func (b *GraphBuilder) MakeAnyNode(children []NodeID) NodeID {
	return b.push(node{kind: nodeAny, children: children})
}

// MakeNotNode adds a negation of child.
func (b *GraphBuilder) MakeNotNode(child NodeID) NodeID {
	return b.push(node{kind: nodeNot, children: []NodeID{child}})
}

// MakeAmountRangeNode adds an inclusive amount bound; nil means open.
func (b *GraphBuilder) MakeAmountRangeNode(min, max *int64) NodeID {
	return b.push(node{kind: nodeAmountRange, amount: amountRange{min: min, max: max}})
}

// AddConnectorRoot registers a root predicate for a connector. One root per
// merchant connector account.
func (b *GraphBuilder) AddConnectorRoot(connector types.ConnectorName, root NodeID) {
	b.roots[connector] = append(b.roots[connector], root)
}

// Build freezes the builder into an immutable Graph.
func (b *GraphBuilder) Build() *Graph {
	nodes := make([]node, len(b.nodes))
	copy(nodes, b.nodes)
	roots := make(map[types.ConnectorName][]NodeID, len(b.roots))
	for name, ids := range b.roots {
		roots[name] = append([]NodeID(nil), ids...)
	}
	return &Graph{nodes: nodes, roots: roots}
}
