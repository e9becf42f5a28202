package n2k

import (
	"sync"
)

// fastPacketTimeoutMs is how old (in frame timestamp milliseconds) sequence may be before new frame with same
// source+PGN+sequence counter starts a new sequence
const fastPacketTimeoutMs = 750

type fastPacketSequence struct {
	header Header

	lastFrameTimestamp uint32
	// sequence is message counter to distinguish to which message frame belongs. 0-7. Frames from same source may arrive
	// out of order and without sequence counter it is hard to know if in which message this frame belongs.
	sequence uint8
	// length of data in all frames. Length is found as second byte in first frame
	length             uint8
	completeFramesMask uint32

	// Fast-Packet data is maximum of 32 frames. First frame 6 bytes and max 31 frame of 7 bytes. Last frame can be 1-7 bytes.
	receivedFramesMask  uint32 // each frame is single bit
	receivedFramesCount uint8
	data                [FastPacketMaxSize]byte
}

func (m *fastPacketSequence) Append(frame CANFrame) bool {
	if frame.Length < 2 {
		return false
	}
	sequence := frame.Data[0] >> 5 // last 3 bits (sequence counter range is 0-7)

	frameNr := frame.Data[0] & 0b0001_1111 // first 5 bits
	frameMask := uint32(1 << (frameNr))
	if m.receivedFramesMask&frameMask != 0 { // we have already seen that frame
		return m.completeFramesMask == m.receivedFramesMask
	}
	if m.receivedFramesMask == 0 {
		m.header = frame.Header
		m.sequence = sequence
	}
	m.receivedFramesMask |= frameMask
	m.receivedFramesCount++
	m.lastFrameTimestamp = frame.Timestamp

	if frameNr == 0 { // first frame initializes lengths ,so we know when sequence is complete
		// very first frame 0th, has 2 bytes for metadata (3 bits sequence counter, 5bits frame counter, 8bits length)
		// and 6 bytes actual data
		m.length = frame.Data[1]
		if m.length > FastPacketMaxSize {
			m.length = FastPacketMaxSize
		}

		frameCount := uint8(1)
		if m.length > 6 { // fast packet data is multiple frames long
			frameCount += (m.length - 6 + 6) / 7
		}
		m.completeFramesMask = ^(0xFFFFFFFF << frameCount)

		copy(m.data[:6], frame.Data[2:])
	} else { // subsequent frames, have 7 bytes of data, first byte is for sequence counter and frame counter
		start := 6 + int(frameNr-1)*7
		if start < len(m.data) {
			copy(m.data[start:], frame.Data[1:])
		}
	}

	return m.completeFramesMask == m.receivedFramesMask
}

func (m *fastPacketSequence) Reset() {
	m.lastFrameTimestamp = 0
	m.header = Header{}

	m.sequence = 0
	m.length = 0
	m.completeFramesMask = 0
	m.receivedFramesMask = 0
	m.receivedFramesCount = 0
	// we do not reset data here. data will be overridden
}

func (m *fastPacketSequence) To(to *Frame) {
	to.Timestamp = m.lastFrameTimestamp
	to.Header = m.header

	if cap(to.Data) < int(m.length) {
		to.Data = make([]byte, m.length)
	}
	to.Data = to.Data[:m.length]
	copy(to.Data, m.data[0:m.length])
}

// FastPacketAssembler assembles Fast-Packet CAN frames to complete Frames. Frames of PGNs that are not configured
// as Fast-Packet PGNs are passed through as is.
type FastPacketAssembler struct {
	// pgns is list of PGNs that are transferred as Fast-Packet frames and should be assembled
	pgns       []uint32
	inTransfer []*fastPacketSequence

	pool *sync.Pool
	lock sync.Mutex
}

// DefaultFastPacketPGNs is list of commonly seen Fast-Packet PGNs
var DefaultFastPacketPGNs = []uint32{
	126208, // NMEA Request/Command/Acknowledge group function
	126464, // PGN List
	126720, // Proprietary fast-packet addressed
	126983, // Alert
	126996, // Product Information
	126998, // Configuration Information
	127233, // Man Overboard Notification
	127237, // Heading/Track control
	127489, // Engine Parameters, Dynamic
	127496, // Trip Parameters, Vessel
	127506, // DC Detailed Status
	128275, // Distance Log
	129029, // GNSS Position Data
	129038, // AIS Class A Position Report
	129039, // AIS Class B Position Report
	129284, // Navigation Data
	129540, // GNSS Sats in View
	129794, // AIS Class A Static and Voyage Related Data
	130323, // Meteorological Station Data
}

func NewFastPacketAssembler(fpPGNs []uint32) *FastPacketAssembler {
	pool := new(sync.Pool)
	pool.New = func() any {
		return &fastPacketSequence{}
	}

	return &FastPacketAssembler{
		pgns:       append([]uint32{}, fpPGNs...),
		inTransfer: make([]*fastPacketSequence, 0, 10),

		pool: pool,
	}
}

// couldBeFastPacket checks if PGN is in ranges where Fast-Packet PGNs are defined (proprietary single frame 0xEF00
// and 0x1ED00-0x1FFFF)
func couldBeFastPacket(pgn uint32) bool {
	return pgn == 0xEF00 || (pgn >= 0x1ED00 && pgn <= 0x1FFFF)
}

func (a *FastPacketAssembler) Assemble(frame CANFrame, to *Frame) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	isFastPacket := false
	if couldBeFastPacket(frame.Header.PGN) {
		for _, pgn := range a.pgns {
			if pgn == frame.Header.PGN {
				isFastPacket = true
				break
			}
		}
	}
	if !isFastPacket {
		if cap(to.Data) < int(frame.Length) {
			to.Data = make([]byte, frame.Length)
		}
		to.Data = to.Data[:frame.Length]
		copy(to.Data, frame.Data[0:frame.Length])
		to.Timestamp = frame.Timestamp
		to.Header = frame.Header
		return true
	}

	// fast packet sequence is uniquely identified by: source+pgn+sequence+lastFrameTimestamp
	sequence := frame.Data[0] >> 5 // last 3 bits (sequence counter range is 0-7)

	var fp *fastPacketSequence
	idx := 0
	for i, tmpFp := range a.inTransfer {
		if tmpFp.header.Source != frame.Header.Source ||
			tmpFp.header.PGN != frame.Header.PGN ||
			tmpFp.sequence != sequence {
			continue
		}
		fp = a.inTransfer[i]
		idx = i
		if frame.Timestamp-fp.lastFrameTimestamp > fastPacketTimeoutMs { // sequence is too old to be this frame sequence
			fp.Reset()
		}
		break
	}
	if fp == nil {
		fp = a.pool.Get().(*fastPacketSequence)
		fp.Reset()
		a.inTransfer = append(a.inTransfer, fp)
		idx = len(a.inTransfer) - 1
	}
	isComplete := fp.Append(frame)
	if isComplete { // message is now complete
		fp.To(to) // copy data over to frame

		// remove item from in transfer list and put it back to pool
		a.inTransfer[idx] = a.inTransfer[len(a.inTransfer)-1]
		a.inTransfer = a.inTransfer[:len(a.inTransfer)-1]
		a.pool.Put(fp)
	}
	return isComplete
}
