package dcerpc

import "errors"

// ErrTooManyInterfaces is returned by Ingest when a BIND/ALTER_CONTEXT
// PDU advertises more context items than the parser is willing to track
// for one flow (see maxInterfaces). The current PDU is abandoned: bytes
// already processed are kept, the interface list already built is kept,
// and decoding resumes cleanly at the next PDU boundary.
var ErrTooManyInterfaces = errors.New("dcerpc: too many interfaces advertised")

// Ingest feeds the next contiguous, in-order slice of bytes for the
// given direction into the Parser and returns the number of bytes
// consumed. It always consumes the entire slice unless a single PDU's
// sub-decoder reports a protocol error, in which case decoding stops at
// the byte offset where the error occurred; the caller may continue
// calling Ingest with subsequent data for the same direction once the
// next PDU starts.
//
// Ingest never blocks and never retains data: every byte handed to it is
// either consumed into Parser state or, on error, simply not counted.
// Both directions of a flow share one Parser and must not call Ingest
// concurrently.
func (p *Parser) Ingest(dir Direction, data []byte) (int, error) {
	if p == nil {
		return 0, ErrNilParser
	}
	if p.closed {
		return 0, ErrClosed
	}
	p.curDir = dir

	total := 0
	for total < len(data) {
		b := data[total:]

		var n int
		switch p.phase {
		case phaseHeader:
			n = p.decodeHeader(b)
		case phaseBindPrimary:
			n = p.decodeBindPrimary(b)
		case phaseBindItem:
			var ok bool
			n, ok = p.decodeBindItem(b)
			if !ok {
				total += n
				p.abandonPDU()
				return total, ErrTooManyInterfaces
			}
		case phaseBindAckPrimary:
			n = p.decodeBindAckPrimary(b)
		case phaseSecondaryAddr:
			n = p.decodeSecondaryAddr(b)
		case phasePad:
			n = p.decodePad(b)
		case phaseCtxCount:
			n = p.decodeCtxCount(b)
		case phaseBindAckItem:
			n = p.decodeBindAckItem(b)
		case phaseRequest:
			n = p.decodeRequestPrimary(b)
		case phaseStub:
			n = p.decodeStub(b)
		case phaseSkip:
			n = p.decodeSkip(b)
		}

		total += n
		if n == 0 {
			// No sub-decoder can make progress on a non-empty slice in
			// any reachable state; treat it as exhausted input rather
			// than spin.
			break
		}
		p.advancePhase()
	}
	return total, nil
}

// advancePhase inspects the sub-boundary the most recent decode step may
// have just crossed and moves the dispatcher to the next phase. It also
// applies the one check that overrides every phase: once bytesProcessed
// reaches the PDU's declared frag_length, the PDU is complete regardless
// of what phase it was in, matching a PDU that is truncated relative to
// its own header's stated fields (spec's malformed-PDU case).
func (p *Parser) advancePhase() {
	switch p.phase {
	case phaseHeader:
		if p.bytesProcessed == headerLen {
			if p.Observer != nil {
				p.Observer.OnHeader(p.curDir, p.header)
			}
			p.enterBodyPhase()
		}
	case phaseBindPrimary:
		if p.bytesProcessed == bindPrimaryEnd {
			p.beginBindItemOrFinish()
		}
	case phaseBindItem:
		if p.ctxBytesProcessed == bindItemLen {
			p.ctxBytesProcessed = 0
			p.beginBindItemOrFinish()
		}
	case phaseBindAckPrimary:
		if p.bytesProcessed == bindAckPrimaryEnd {
			p.beginSecondaryAddrOrPad()
		}
	case phaseSecondaryAddr:
		if p.secondaryAddrLenLeft == 0 {
			p.beginPad()
		}
	case phasePad:
		if p.padLeft == 0 {
			p.ctxBytesProcessed = 0
			p.phase = phaseCtxCount
		}
	case phaseCtxCount:
		if p.ctxBytesProcessed == ctxCountLen {
			p.ctxBytesProcessed = 0
			p.beginBindAckItemOrFinish()
		}
	case phaseBindAckItem:
		if p.ctxBytesProcessed == bindAckItemLen {
			p.ctxBytesProcessed = 0
			p.beginBindAckItemOrFinish()
		}
	case phaseRequest:
		if p.bytesProcessed == requestPrimaryEnd {
			if p.Observer != nil {
				p.Observer.OnRequest(p.curDir, p.scratchCtxID, p.opnum)
			}
			p.stubBytesLeft = int(p.header.FragLength) - p.bytesProcessed
			if p.stubBytesLeft < 0 {
				p.stubBytesLeft = 0
			}
			p.phase = phaseStub
		}
	case phaseStub, phaseSkip:
		// no internal sub-boundary; only the frag_length check below applies.
	}

	// The header's own bytes may still be mid-decode (the slow path
	// writes FragLength progressively), so this check only applies once
	// the full header is known; checking it against a partially-decoded
	// FragLength would misfire.
	if p.bytesProcessed >= headerLen && p.bytesProcessed >= int(p.header.FragLength) {
		p.PDUCount[p.curDir]++
		p.resetForNextPDU()
	}
}

// enterBodyPhase chooses the next phase once the common header has been
// fully decoded, based on the PDU type (spec §4.1's dispatch table).
func (p *Parser) enterBodyPhase() {
	switch p.header.Type {
	case PDUTypeBind, PDUTypeAlterContext:
		p.phase = phaseBindPrimary
	case PDUTypeBindAck, PDUTypeAlterContextResp:
		p.phase = phaseBindAckPrimary
	case PDUTypeRequest:
		p.phase = phaseRequest
	default:
		p.phase = phaseSkip
	}
}

// beginBindItemOrFinish starts the next 44-octet BIND/ALTER_CONTEXT
// context item, or, if no items remain, moves to phaseSkip so the rest
// of the PDU is drained up to frag_length.
func (p *Parser) beginBindItemOrFinish() {
	if p.numCtxItemsLeft > 0 {
		p.phase = phaseBindItem
		return
	}
	p.phase = phaseSkip
}

// beginSecondaryAddrOrPad skips straight to the padding phase when
// secondary_addr_len is zero (spec §4.6's zero-padding case).
func (p *Parser) beginSecondaryAddrOrPad() {
	if p.secondaryAddrLenLeft > 0 {
		p.phase = phaseSecondaryAddr
		return
	}
	p.beginPad()
}

// beginPad computes the padding between the secondary address and the
// context-item count field as bytesProcessed mod 4, matching the
// original parser's sstate->pad = sstate->bytesprocessed % 4 exactly
// (not its 4-complement: the two only coincide when bytesProcessed % 4
// is 0 or 2, which an odd-length secondary address violates).
func (p *Parser) beginPad() {
	p.padLeft = p.bytesProcessed % 4
	if p.padLeft > 0 {
		p.phase = phasePad
		return
	}
	p.ctxBytesProcessed = 0
	p.phase = phaseCtxCount
}

// beginBindAckItemOrFinish starts the next 24-octet BIND_ACK/
// ALTER_CONTEXT_RESP context item, or leaves the PDU to be drained by
// the frag_length check if no items remain.
func (p *Parser) beginBindAckItemOrFinish() {
	if p.numCtxItemsLeft > 0 {
		p.phase = phaseBindAckItem
		return
	}
	p.phase = phaseSkip
}
