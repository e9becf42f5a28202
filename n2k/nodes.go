package n2k

import (
	"encoding/binary"
	"sort"
	"sync"
)

// PGNISORequest is PGN 59904 ISO Request used to ask nodes to send given PGN
const PGNISORequest uint32 = 59904

// Node is bus participant identified by its 64-bit NAME from ISO Address Claim.
type Node struct {
	Source uint8
	NAME   uint64
	Claim  AddressClaim

	// LastSeen is timestamp of last frame sent by this node
	LastSeen uint32
}

// NodeTable tracks which node (NAME) currently owns which bus address. Nodes claim addresses with PGN 60928 and may
// move to other address when claim conflicts are resolved.
type NodeTable struct {
	mutex sync.Mutex

	bySource [AddressNull]*Node
	known    map[uint64]*Node
}

// NewNodeTable creates empty node table
func NewNodeTable() *NodeTable {
	return &NodeTable{
		known: make(map[uint64]*Node),
	}
}

// Process updates table with frame. Returns node that owns frame source address and true when frame was address
// claim that changed owner of that address.
func (t *NodeTable) Process(f Frame) (Node, bool, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	source := f.Source
	if source >= AddressNull { // 254 and 255 do not identify a node
		return Node{}, false, nil
	}

	if f.PGN != PGNISOAddressClaim {
		node := t.bySource[source]
		if node == nil {
			return Node{}, false, nil
		}
		node.LastSeen = f.Timestamp
		return *node, false, nil
	}

	claim := AddressClaim{}
	if err := claim.Decode(f); err != nil {
		return Node{}, false, err
	}
	name := binary.LittleEndian.Uint64(f.Data)

	node, ok := t.known[name]
	if !ok {
		node = &Node{NAME: name, Claim: claim}
		t.known[name] = node
	}
	node.LastSeen = f.Timestamp

	current := t.bySource[source]
	if current == node && node.Source == source {
		return *node, false, nil
	}
	if previous := t.bySource[node.Source]; previous == node { // node moved to new address
		t.bySource[node.Source] = nil
	}
	node.Source = source
	node.Claim = claim
	t.bySource[source] = node
	return *node, true, nil
}

// NodeBySource returns node that has claimed given address
func (t *NodeTable) NodeBySource(source uint8) (Node, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if source >= AddressNull || t.bySource[source] == nil {
		return Node{}, false
	}
	return *t.bySource[source], true
}

// Nodes returns nodes currently holding an address ordered by address
func (t *NodeTable) Nodes() []Node {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	result := make([]Node, 0, len(t.known))
	for _, n := range t.bySource {
		if n != nil {
			result = append(result, *n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Source < result[j].Source })
	return result
}

// ISORequest creates PGN 59904 frame requesting given PGN from destination (AddressGlobal asks from all nodes).
func ISORequest(pgn uint32, destination uint8) Frame {
	return Frame{
		Header: Header{
			PGN:         PGNISORequest,
			Priority:    6,
			Source:      AddressNull,
			Destination: destination,
		},
		Data: RawData{uint8(pgn), uint8(pgn >> 8), uint8(pgn >> 16)},
	}
}
