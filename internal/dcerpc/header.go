package dcerpc

import (
	"encoding/binary"
	"math/bits"
)

// decodeHeader advances through the 16-octet common PDU header (spec
// §4.2). It has a fast path for when the whole header is available in
// one call, and a byte-wise slow path that resumes from
// p.bytesProcessed otherwise. Both paths must converge on the same
// decoded value; the slow path always accumulates big-endian and swaps
// once at the last byte if little-endian was signaled, matching the
// fast path's direct decode in the committed order.
func (p *Parser) decodeHeader(b []byte) int {
	if len(b) == 0 {
		return 0
	}

	if p.bytesProcessed == 0 && len(b) >= headerLen {
		p.header.RPCVers = b[0]
		p.header.RPCVersMinor = b[1]
		p.header.Type = PDUType(b[2])
		p.header.PFCFlags = b[3]
		copy(p.header.PackedDrep[:], b[4:8])

		if p.header.LittleEndian() {
			p.header.FragLength = binary.LittleEndian.Uint16(b[8:10])
			p.header.AuthLength = binary.LittleEndian.Uint16(b[10:12])
			p.header.CallID = binary.LittleEndian.Uint32(b[12:16])
		} else {
			p.header.FragLength = binary.BigEndian.Uint16(b[8:10])
			p.header.AuthLength = binary.BigEndian.Uint16(b[10:12])
			p.header.CallID = binary.BigEndian.Uint32(b[12:16])
		}
		p.bytesProcessed = headerLen
		return headerLen
	}

	n := 0
	for p.bytesProcessed < headerLen && n < len(b) {
		p.consumeHeaderByte(b[n])
		n++
		p.bytesProcessed++
	}
	return n
}

// consumeHeaderByte places one byte of the header at the offset given
// by p.bytesProcessed (the current slow-path cursor).
func (p *Parser) consumeHeaderByte(b byte) {
	switch p.bytesProcessed {
	case 0:
		p.header.RPCVers = b
	case 1:
		p.header.RPCVersMinor = b
	case 2:
		p.header.Type = PDUType(b)
	case 3:
		p.header.PFCFlags = b
	case 4, 5, 6, 7:
		p.header.PackedDrep[p.bytesProcessed-4] = b
	case 8:
		p.header.FragLength = uint16(b) << 8
	case 9:
		p.header.FragLength |= uint16(b)
	case 10:
		p.header.AuthLength = uint16(b) << 8
	case 11:
		p.header.AuthLength |= uint16(b)
	case 12:
		p.header.CallID = uint32(b) << 24
	case 13:
		p.header.CallID |= uint32(b) << 16
	case 14:
		p.header.CallID |= uint32(b) << 8
	case 15:
		p.header.CallID |= uint32(b)
		// Bytes 8-15 were accumulated as if big-endian; if the wire is
		// actually little-endian, reverse once to recover the true value.
		if p.header.LittleEndian() {
			p.header.FragLength = bits.ReverseBytes16(p.header.FragLength)
			p.header.AuthLength = bits.ReverseBytes16(p.header.AuthLength)
			p.header.CallID = bits.ReverseBytes32(p.header.CallID)
		}
	}
}
