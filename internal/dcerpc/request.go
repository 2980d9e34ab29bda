package dcerpc

// decodeRequestPrimary advances through the 8 octets following the
// header for REQUEST PDUs (spec §4.9): alloc_hint is skipped; context_id
// is read at header+4, not governed by packed_drep (matching the bind
// item's ctx_id, which the original never byte-swaps either); opnum is
// read at header+6 in the active endianness.
func (p *Parser) decodeRequestPrimary(b []byte) int {
	n := 0
	for p.bytesProcessed < requestPrimaryEnd && n < len(b) {
		off := p.bytesProcessed - headerLen
		c := b[n]
		switch off {
		case 4:
			p.scratchCtxID = uint16(c)
		case 5:
			p.scratchCtxID |= uint16(c) << 8
		case 6:
			if p.header.LittleEndian() {
				p.opnum = uint16(c)
			} else {
				p.opnum = uint16(c) << 8
			}
		case 7:
			if p.header.LittleEndian() {
				p.opnum |= uint16(c) << 8
			} else {
				p.opnum |= uint16(c)
			}
		}
		n++
		p.bytesProcessed++
	}
	return n
}

// decodeStub drains the REQUEST PDU's stub data, which is never
// interpreted (per-interface stub decoding is explicitly out of scope).
// stubBytesLeft is seeded by the dispatcher as fragLength-bytesProcessed
// at REQUEST-phase entry; it must not be confused with padLeft, which
// belongs to the BIND_ACK padding phase.
func (p *Parser) decodeStub(b []byte) int {
	n := 0
	for p.stubBytesLeft > 0 && n < len(b) {
		p.stubBytesLeft--
		n++
		p.bytesProcessed++
	}
	return n
}
