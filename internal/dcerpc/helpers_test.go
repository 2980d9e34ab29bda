package dcerpc

// Byte-stream builders shared across the table-driven tests in this
// package. These mirror the wire layouts documented in header.go,
// bind.go, bindack.go and request.go rather than re-deriving them, so a
// layout bug would have to be made identically in both places to slip
// through.

func u16(v uint16, little bool) [2]byte {
	if little {
		return [2]byte{byte(v), byte(v >> 8)}
	}
	return [2]byte{byte(v >> 8), byte(v)}
}

func u32(v uint32, little bool) [4]byte {
	if little {
		return [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func drep(little bool) [4]byte {
	if little {
		return [4]byte{0x10, 0x00, 0x00, 0x00}
	}
	return [4]byte{0x00, 0x00, 0x00, 0x00}
}

// buildHeader returns the 16-octet common header.
func buildHeader(typ PDUType, pfcFlags byte, little bool, fragLength, authLength uint16, callID uint32) []byte {
	b := make([]byte, 0, headerLen)
	b = append(b, 5, 0) // rpc_vers, rpc_vers_minor
	b = append(b, byte(typ), pfcFlags)
	d := drep(little)
	b = append(b, d[:]...)
	fl := u16(fragLength, little)
	al := u16(authLength, little)
	ci := u32(callID, little)
	b = append(b, fl[:]...)
	b = append(b, al[:]...)
	b = append(b, ci[:]...)
	return b
}

// buildBindPrimary returns the 12-octet BIND/ALTER_CONTEXT body
// following the header.
func buildBindPrimary(numCtxItems byte) []byte {
	b := make([]byte, 0, bindPrimaryEnd-headerLen)
	b = append(b, 0, 0, 0, 0) // max_xmit_frag, max_recv_frag
	b = append(b, 0, 0, 0, 0) // assoc_group_id
	b = append(b, numCtxItems, 0, 0, 0)
	return b
}

// wireUUID swizzles a canonical UUID into its on-wire byte order.
func wireUUID(id UUID) []byte {
	w := make([]byte, 16)
	for wireOff, canonOff := range uuidWireToCanonical {
		w[wireOff] = id[canonOff]
	}
	return w
}

// buildBindItem returns one 44-octet BIND context item.
func buildBindItem(ctxID uint16, id UUID, version, versionMinor uint16, little bool) []byte {
	b := make([]byte, 0, bindItemLen)
	cid := u16(ctxID, true) // ctx_id is never endian-governed
	b = append(b, cid[:]...)
	b = append(b, 1, 0) // num_trans_items, reserved
	b = append(b, wireUUID(id)...)
	ver := u16(version, little)
	verMinor := u16(versionMinor, little)
	b = append(b, ver[:]...)
	b = append(b, verMinor[:]...)
	b = append(b, make([]byte, 20)...) // transfer syntax UUID + version
	return b
}

// buildBindAckPrimary returns the 10-octet BIND_ACK/ALTER_CONTEXT_RESP
// body following the header.
func buildBindAckPrimary(secondaryAddrLen uint16, little bool) []byte {
	b := make([]byte, 0, bindAckPrimaryEnd-headerLen)
	b = append(b, 0, 0, 0, 0) // max_xmit_frag, max_recv_frag
	b = append(b, 0, 0, 0, 0) // assoc_group_id
	sal := u16(secondaryAddrLen, little)
	b = append(b, sal[:]...)
	return b
}

// buildCtxCount returns the 4-octet context-item count field.
func buildCtxCount(numCtxItems byte) []byte {
	return []byte{numCtxItems, 0, 0, 0}
}

// buildBindAckItem returns one 24-octet BIND_ACK context item.
func buildBindAckItem(result uint16, little bool) []byte {
	b := make([]byte, 0, bindAckItemLen)
	r := u16(result, little)
	b = append(b, r[:]...)
	b = append(b, make([]byte, 22)...)
	return b
}

// buildRequestPrimary returns the 8-octet REQUEST body following the
// header.
func buildRequestPrimary(ctxID, opnum uint16, little bool) []byte {
	b := make([]byte, 0, requestPrimaryEnd-headerLen)
	b = append(b, 0, 0, 0, 0) // alloc_hint
	cid := u16(ctxID, true)   // ctx_id is never endian-governed
	b = append(b, cid[:]...)
	op := u16(opnum, little)
	b = append(b, op[:]...)
	return b
}

// pad4 computes the BIND_ACK padding the dispatcher inserts once the
// secondary address has been consumed, for building test fixtures that
// need to predict frag_length exactly. Matches beginPad's bytesProcessed
// % 4 (not its 4-complement).
func pad4(n int) int {
	return n % 4
}

// recordingObserver captures every callback Ingest fires, for assertions
// in the tests below.
type recordingObserver struct {
	headers          []Header
	headerDirs       []Direction
	interfaces       []*Interface
	interfaceDirs    []Direction
	interfaceResults []*Interface
	resultDirs       []Direction
	requests         []struct {
		dir   Direction
		ctxID uint16
		opnum uint16
	}
}

func (r *recordingObserver) OnHeader(dir Direction, h Header) {
	r.headers = append(r.headers, h)
	r.headerDirs = append(r.headerDirs, dir)
}

func (r *recordingObserver) OnInterface(dir Direction, iface *Interface) {
	r.interfaces = append(r.interfaces, iface)
	r.interfaceDirs = append(r.interfaceDirs, dir)
}

func (r *recordingObserver) OnInterfaceResult(dir Direction, iface *Interface) {
	r.interfaceResults = append(r.interfaceResults, iface)
	r.resultDirs = append(r.resultDirs, dir)
}

func (r *recordingObserver) OnRequest(dir Direction, ctxID uint16, opnum uint16) {
	r.requests = append(r.requests, struct {
		dir   Direction
		ctxID uint16
		opnum uint16
	}{dir, ctxID, opnum})
}

// ingestOneByteAtATime feeds data into p one byte per Ingest call,
// asserting each call reports exactly one byte consumed and no error,
// and returns the total consumed.
func ingestOneByteAtATime(p *Parser, dir Direction, data []byte) (int, error) {
	total := 0
	for i := range data {
		n, err := p.Ingest(dir, data[i:i+1])
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			break
		}
	}
	return total, nil
}
