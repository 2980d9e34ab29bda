package dcerpc

// decodeBindAckPrimary advances through the 10 octets following the
// header for BIND_ACK/ALTER_CONTEXT_RESP PDUs (spec §4.5): max_xmit_frag,
// max_recv_frag and assoc_group_id are skipped; secondary_addr_len is
// read at header+8 in the active endianness and seeds
// secondary_addr_len_left.
func (p *Parser) decodeBindAckPrimary(b []byte) int {
	n := 0
	for p.bytesProcessed < bindAckPrimaryEnd && n < len(b) {
		off := p.bytesProcessed
		c := b[n]
		switch off - headerLen {
		case 8:
			if p.header.LittleEndian() {
				p.secondaryAddrLen = int(c)
			} else {
				p.secondaryAddrLen = int(c) << 8
			}
		case 9:
			if p.header.LittleEndian() {
				p.secondaryAddrLen |= int(c) << 8
			} else {
				p.secondaryAddrLen |= int(c)
			}
			p.secondaryAddrLenLeft = p.secondaryAddrLen
			p.secondaryAddr = make([]byte, 0, p.secondaryAddrLen)
		}
		n++
		p.bytesProcessed++
	}
	return n
}

// decodeSecondaryAddr consumes secondary_addr_len opaque bytes (spec
// §4.6), capturing a bounded copy (see SPEC_FULL.md's secondary-address
// supplement) rather than discarding them as the original parser does.
func (p *Parser) decodeSecondaryAddr(b []byte) int {
	n := 0
	for p.secondaryAddrLenLeft > 0 && n < len(b) {
		p.secondaryAddr = append(p.secondaryAddr, b[n])
		p.secondaryAddrLenLeft--
		n++
		p.bytesProcessed++
	}
	return n
}

// decodePad consumes the pad bytes computed by the dispatcher once the
// secondary address has been fully consumed (spec §4.6). The pad count
// is bytesProcessed % 4 (see beginPad), so the context-item count lands
// on a 4-octet boundary from the PDU start only when that remainder is
// 0 or 2.
func (p *Parser) decodePad(b []byte) int {
	n := 0
	for p.padLeft > 0 && n < len(b) {
		p.padLeft--
		n++
		p.bytesProcessed++
	}
	return n
}

// decodeCtxCount reads the 4-octet context-item count field of a
// BIND_ACK/ALTER_CONTEXT_RESP PDU (spec §4.7): the first octet is
// num_ctx_items, the remaining three are reserved/padding. It resumes
// from p.ctxBytesProcessed (reused here as a 0..3 cursor, reset by the
// dispatcher before the context-count phase begins).
func (p *Parser) decodeCtxCount(b []byte) int {
	n := 0
	for p.ctxBytesProcessed < ctxCountLen && n < len(b) {
		if p.ctxBytesProcessed == 0 {
			p.numCtxItems = int(b[n])
			p.numCtxItemsLeft = p.numCtxItems
		}
		n++
		p.ctxBytesProcessed++
		p.bytesProcessed++
	}
	return n
}

// decodeBindAckItem advances through one 24-octet BIND_ACK/
// ALTER_CONTEXT_RESP context item (spec §4.8), resuming from
// p.ctxBytesProcessed. result is decoded in the active endianness. On
// completion it matches the item to the interface record at ordinal
// (num_ctx_items - num_ctx_items_left) and patches that record's
// Result.
func (p *Parser) decodeBindAckItem(b []byte) int {
	n := 0
	for p.ctxBytesProcessed < bindAckItemLen && n < len(b) {
		off := p.ctxBytesProcessed
		c := b[n]
		switch off {
		case 0:
			if p.header.LittleEndian() {
				p.scratchResult = uint16(c)
			} else {
				p.scratchResult = uint16(c) << 8
			}
		case 1:
			if p.header.LittleEndian() {
				p.scratchResult |= uint16(c) << 8
			} else {
				p.scratchResult |= uint16(c)
			}
		default:
			// offsets 2-23: reserved + transfer-syntax trailer; skipped.
		}
		n++
		p.ctxBytesProcessed++
		p.bytesProcessed++
	}

	if p.ctxBytesProcessed == bindAckItemLen {
		p.patchInterfaceResult()
	}
	return n
}

// patchInterfaceResult performs the ordinal match of spec §4.8: the
// item matches the interface record whose ctx_id equals
// num_ctx_items - num_ctx_items_left, an O(N) linear scan.
func (p *Parser) patchInterfaceResult() {
	ordinal := uint16(p.numCtxItems - p.numCtxItemsLeft)
	for _, iface := range p.Interfaces {
		if iface.CtxID == ordinal {
			iface.Result = p.scratchResult
			if p.Observer != nil {
				p.Observer.OnInterfaceResult(p.curDir, iface)
			}
			break
		}
	}
	p.numCtxItemsLeft--
}
