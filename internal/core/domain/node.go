package domain

// TimeStamp is a file modification time in seconds since the epoch.
// Two values are reserved: MTimeUnknown (not yet statted) and MTimeMissing.
type TimeStamp int64

const (
	// MTimeUnknown marks a node that has not been statted yet.
	MTimeUnknown TimeStamp = -1
	// MTimeMissing marks a node whose file does not exist.
	MTimeMissing TimeStamp = 0
)

// Node is the in-memory handle for a file path.
type Node struct {
	Path  InternedString
	MTime TimeStamp
	Dirty bool

	// InEdge is the edge producing this node, nil for source files.
	InEdge *Edge
	// OutEdges are the edges consuming this node, in manifest order.
	OutEdges []*Edge
}

// StatusKnown reports whether the node has been statted.
func (n *Node) StatusKnown() bool {
	return n.MTime != MTimeUnknown
}

// Exists reports whether the file was present at the last stat.
func (n *Node) Exists() bool {
	return n.MTime > MTimeMissing
}

// ResetStat marks the node as not-yet-statted and clean.
func (n *Node) ResetStat() {
	n.MTime = MTimeUnknown
	n.Dirty = false
}
