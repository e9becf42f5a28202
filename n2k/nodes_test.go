package n2k

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var exampleClaimData = RawData{0x2B, 0x90, 0x32, 0x22, 0x00, 0x9B, 0x50, 0xC0}

func claimFrame(source uint8, ts uint32, data RawData) Frame {
	return Frame{
		Header:    Header{PGN: PGNISOAddressClaim, Priority: 6, Source: source, Destination: AddressGlobal},
		Timestamp: ts,
		Data:      data,
	}
}

func TestNodeTable_Process(t *testing.T) {
	table := NewNodeTable()

	node, changed, err := table.Process(Frame{Header: Header{PGN: PGNVesselHeading, Source: 35}, Data: make(RawData, 8)})
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, Node{}, node)

	node, changed, err = table.Process(claimFrame(35, 100, exampleClaimData))
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint8(35), node.Source)
	assert.Equal(t, uint64(0xC0509B002232902B), node.NAME)
	assert.Equal(t, uint32(1216555), node.Claim.UniqueID)
	assert.Equal(t, uint32(100), node.LastSeen)

	// repeated claim of same address is not a change
	_, changed, err = table.Process(claimFrame(35, 200, exampleClaimData))
	assert.NoError(t, err)
	assert.False(t, changed)

	node, changed, err = table.Process(Frame{Header: Header{PGN: PGNVesselHeading, Source: 35}, Timestamp: 300, Data: make(RawData, 8)})
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, uint32(300), node.LastSeen)

	// node moves to new address
	node, changed, err = table.Process(claimFrame(36, 400, exampleClaimData))
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint8(36), node.Source)

	_, ok := table.NodeBySource(35)
	assert.False(t, ok)
	n, ok := table.NodeBySource(36)
	assert.True(t, ok)
	assert.Equal(t, uint64(0xC0509B002232902B), n.NAME)

	// other node claims address 35
	other := RawData{0x01, 0x00, 0x00, 0x00, 0x00, 0x9B, 0x50, 0xC0}
	_, changed, err = table.Process(claimFrame(35, 500, other))
	assert.NoError(t, err)
	assert.True(t, changed)

	nodes := table.Nodes()
	if assert.Len(t, nodes, 2) {
		assert.Equal(t, uint8(35), nodes[0].Source)
		assert.Equal(t, uint32(1), nodes[0].Claim.UniqueID)
		assert.Equal(t, uint8(36), nodes[1].Source)
	}
}

func TestNodeTable_ProcessErrors(t *testing.T) {
	table := NewNodeTable()

	_, changed, err := table.Process(claimFrame(35, 100, RawData{0x01, 0x02}))
	assert.ErrorIs(t, err, ErrPayloadTooShort)
	assert.False(t, changed)

	_, changed, err = table.Process(claimFrame(AddressNull, 100, exampleClaimData))
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, table.Nodes(), 0)
}

func TestISORequest(t *testing.T) {
	f := ISORequest(PGNISOAddressClaim, AddressGlobal)

	assert.Equal(t, Header{PGN: 59904, Priority: 6, Source: 254, Destination: 255}, f.Header)
	assert.Equal(t, RawData{0x00, 0xEE, 0x00}, f.Data)
}
