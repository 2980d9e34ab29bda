package dcerpc

// decodeBindPrimary advances through the 12 octets following the header
// for BIND/ALTER_CONTEXT PDUs (spec §4.3): max_xmit_frag, max_recv_frag
// and assoc_group_id are skipped; num_ctx_items is read at header+8 and
// seeds num_ctx_items_left; the trailing 3 bytes are padding.
func (p *Parser) decodeBindPrimary(b []byte) int {
	n := 0
	for p.bytesProcessed < bindPrimaryEnd && n < len(b) {
		if p.bytesProcessed == headerLen+8 {
			p.numCtxItems = int(b[n])
			p.numCtxItemsLeft = p.numCtxItems
		}
		n++
		p.bytesProcessed++
	}
	return n
}

// decodeBindItem advances through one 44-octet BIND/ALTER_CONTEXT
// context item (spec §4.4), resuming from p.ctxBytesProcessed. On
// completion of the 44th byte it appends a new Interface record built
// from the scratch fields and decrements num_ctx_items_left. The
// returned byte count always reflects what was actually consumed from
// b, even when ok is false; the caller must use ok, not a zero count,
// to detect the append failure.
//
// ctx_id is NOT governed by packed_drep: the wire always encodes it low
// byte first, independent of the PDU's declared data representation
// (matching the original parser, which never swaps it).
func (p *Parser) decodeBindItem(b []byte) (n int, ok bool) {
	for p.ctxBytesProcessed < bindItemLen && n < len(b) {
		off := p.ctxBytesProcessed
		c := b[n]
		switch {
		case off == 0:
			p.scratchCtxID = uint16(c)
		case off == 1:
			p.scratchCtxID |= uint16(c) << 8
		case off == 2 || off == 3:
			// num_transact_items (u8) + reserved octet; skipped.
		case off >= 4 && off <= 19:
			p.scratchUUID[uuidWireToCanonical[off-4]] = c
		case off == 20:
			if p.header.LittleEndian() {
				p.scratchVersion = uint16(c)
			} else {
				p.scratchVersion = uint16(c) << 8
			}
		case off == 21:
			if p.header.LittleEndian() {
				p.scratchVersion |= uint16(c) << 8
			} else {
				p.scratchVersion |= uint16(c)
			}
		case off == 22:
			if p.header.LittleEndian() {
				p.scratchVersionMinor = uint16(c)
			} else {
				p.scratchVersionMinor = uint16(c) << 8
			}
		case off == 23:
			if p.header.LittleEndian() {
				p.scratchVersionMinor |= uint16(c) << 8
			} else {
				p.scratchVersionMinor |= uint16(c)
			}
		default:
			// offsets 24-43: abstract-syntax / transfer-syntax trailer; skipped.
		}
		n++
		p.ctxBytesProcessed++
		p.bytesProcessed++
	}

	if p.ctxBytesProcessed == bindItemLen {
		if !p.appendInterface() {
			return n, false
		}
	}
	return n, true
}

// uuidWireToCanonical maps each wire offset (0-15, relative to the start
// of the 16-byte UUID field) to the canonical storage index. The first
// three fields (u32, u16, u16) are stored little-endian on the wire and
// are byte-swizzled into canonical big-endian-printed order; the
// trailing 8 bytes are copied verbatim.
var uuidWireToCanonical = [16]int{
	3, 2, 1, 0, // u32, reversed
	5, 4, // u16, reversed
	7, 6, // u16, reversed
	8, 9, 10, 11, 12, 13, 14, 15, // raw
}

// appendInterface builds an Interface record from the current scratch
// fields, appends it to the flow's interface list, and decrements
// num_ctx_items_left. It returns false if the list has grown beyond
// maxInterfaces, the Go analogue of the original parser's allocation
// failure path.
func (p *Parser) appendInterface() bool {
	if len(p.Interfaces) >= maxInterfaces {
		return false
	}
	iface := &Interface{
		CtxID:        p.scratchCtxID,
		UUID:         p.scratchUUID,
		Version:      p.scratchVersion,
		VersionMinor: p.scratchVersionMinor,
	}
	p.Interfaces = append(p.Interfaces, iface)
	p.numCtxItemsLeft--
	if p.Observer != nil {
		p.Observer.OnInterface(p.curDir, iface)
	}
	return true
}
