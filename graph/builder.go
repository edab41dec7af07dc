package graph

import "fmt"

// Graph is an immutable, validated execution graph. Build it with a Builder.
type Graph struct {
	entry   string
	nodes   map[string]Node
	routing map[string]routes
}

// Entry returns the entry node id.
func (g *Graph) Entry() string { return g.entry }

// Node returns the node registered under id, or nil.
func (g *Graph) Node(id string) Node { return g.nodes[id] }

// Builder assembles a Graph. All structural errors are reported by Build,
// never at execution time.
type Builder struct {
	entry   string
	nodes   map[string]Node
	routing map[string]routes
	errs    []error
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:   map[string]Node{},
		routing: map[string]routes{},
	}
}

// AddNode registers a node under its own ID.
func (b *Builder) AddNode(n Node) *Builder {
	id := n.ID()
	if id == "" {
		b.errs = append(b.errs, fmt.Errorf("node with empty id"))
		return b
	}
	if _, exists := b.nodes[id]; exists {
		b.errs = append(b.errs, fmt.Errorf("duplicate node %q", id))
		return b
	}
	b.nodes[id] = n
	return b
}

// SetEntry marks the node execution starts from.
func (b *Builder) SetEntry(id string) *Builder {
	b.entry = id
	return b
}

// AddEdge appends a conditional edge from one node to another. Edges are
// evaluated in the order they were added.
func (b *Builder) AddEdge(from string, when Predicate, to string) *Builder {
	if when == nil {
		b.errs = append(b.errs, fmt.Errorf("edge %s -> %s has nil predicate", from, to))
		return b
	}
	r := b.routing[from]
	r.edges = append(r.edges, Edge{When: when, To: to})
	b.routing[from] = r
	return b
}

// SetDefault sets the mandatory fallback successor of a node, taken when no
// conditional edge matches.
func (b *Builder) SetDefault(from, to string) *Builder {
	r := b.routing[from]
	if r.hasDefault {
		b.errs = append(b.errs, fmt.Errorf("node %q already has a default edge", from))
		return b
	}
	r.defaultTo = to
	r.hasDefault = true
	b.routing[from] = r
	return b
}

// Build validates the graph and returns it. Validation enforces:
//   - the entry node exists
//   - every edge references registered nodes on both ends
//   - every node with outgoing edges also has a default edge (totality)
func (b *Builder) Build() (*Graph, error) {
	errs := append([]error(nil), b.errs...)

	if b.entry == "" {
		errs = append(errs, fmt.Errorf("no entry node set"))
	} else if _, ok := b.nodes[b.entry]; !ok {
		errs = append(errs, fmt.Errorf("entry node %q not registered", b.entry))
	}

	for from, r := range b.routing {
		if _, ok := b.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("edge source %q not registered", from))
		}
		for _, e := range r.edges {
			if _, ok := b.nodes[e.To]; !ok {
				errs = append(errs, fmt.Errorf("edge %s -> %s targets unregistered node", from, e.To))
			}
		}
		if len(r.edges) > 0 && !r.hasDefault {
			errs = append(errs, fmt.Errorf("node %q has conditional edges but no default", from))
		}
		if r.hasDefault {
			if _, ok := b.nodes[r.defaultTo]; !ok {
				errs = append(errs, fmt.Errorf("default edge %s -> %s targets unregistered node", from, r.defaultTo))
			}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid graph: %w", joinErrors(errs))
	}

	routing := make(map[string]routes, len(b.routing))
	for k, v := range b.routing {
		routing[k] = v
	}
	nodes := make(map[string]Node, len(b.nodes))
	for k, v := range b.nodes {
		nodes[k] = v
	}
	return &Graph{entry: b.entry, nodes: nodes, routing: routing}, nil
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
