package dcerpc

import "errors"

// phase is the dispatcher's internal cursor into the current PDU. It is
// the Go-idiomatic equivalent of the original parser's byte-offset
// case-ladder: a tagged variant advanced by Ingest, rather than a single
// integer switch, while still honoring the same resumption contract.
type phase uint8

const (
	phaseHeader phase = iota
	phaseBindPrimary
	phaseBindItem
	phaseBindAckPrimary
	phaseSecondaryAddr
	phasePad
	phaseCtxCount
	phaseBindAckItem
	phaseRequest
	phaseStub
	phaseSkip // unknown PDU type or non-decoded phase for this PDU
)

// fixed-size spans, named after spec offsets measured from the start of
// the PDU (header included).
const (
	headerLen          = 16
	bindPrimaryEnd     = 28 // header + 12
	bindAckPrimaryEnd  = 26 // header + 10
	requestPrimaryEnd  = 24 // header + 8
	bindItemLen        = 44
	bindAckItemLen     = 24
	ctxCountLen        = 4

	// maxInterfaces bounds the interface list, which grows across every
	// BIND/ALTER_CONTEXT PDU of the flow. num_ctx_items is wire-encoded
	// as a single octet (max 255), so one PDU adds at most 255 records
	// and the cap is reached only after many PDUs on one flow; it stands
	// in for the original parser's calloc() failure path, which Go has
	// no direct analogue for.
	maxInterfaces = 1 << 16
)

// Parser holds all per-flow DCE/RPC state: the cumulative byte cursor,
// the scratch fields of the PDU currently being decoded, and the
// interface list accumulated across BIND/ALTER_CONTEXT PDUs for the
// lifetime of the flow. One Parser belongs to exactly one TCP flow;
// concurrent directions on the same flow must not call Ingest
// concurrently (see package capture for the caller-side serialization
// this assumes).
type Parser struct {
	// bytesProcessed is the cumulative offset within the current PDU,
	// reset to 0 once it reaches fragLength.
	bytesProcessed int
	header         Header

	phase phase

	// context-item cursor, reset to 0 between items.
	ctxBytesProcessed int
	numCtxItems       int
	numCtxItemsLeft   int

	// scratch fields for the context item under construction (BIND side).
	scratchCtxID        uint16
	scratchUUID         UUID
	scratchVersion      uint16
	scratchVersionMinor uint16

	// scratch field for the context item under construction (BIND_ACK side).
	scratchResult uint16

	secondaryAddrLen     int
	secondaryAddrLenLeft int
	// SecondaryAddr is a bounded copy of the BIND_ACK secondary address
	// bytes (see SPEC_FULL.md's "Secondary address capture" supplement).
	// It is reset at the start of each BIND_ACK/ALTER_CONTEXT_RESP PDU.
	secondaryAddr []byte

	pad     int
	padLeft int

	opnum         uint16
	stubBytesLeft int

	// Interfaces is the ordered list of interface records advertised by
	// BIND/ALTER_CONTEXT PDUs on this flow, patched in place by
	// BIND_ACK/ALTER_CONTEXT_RESP. It persists for the lifetime of the
	// flow; only Close releases it.
	Interfaces []*Interface

	// PDUCount counts fully-completed PDUs per direction, a cheap
	// bookkeeping field the original keeps alongside its per-flow state.
	PDUCount [2]uint64

	Observer Observer

	// curDir is the direction passed to the most recent Ingest call,
	// used only to label Observer callbacks.
	curDir Direction

	closed bool
}

// NewParser returns a zero-initialized flow state, ready to Ingest bytes
// from either direction. It is the Go equivalent of the original
// parser's state_alloc().
func NewParser() *Parser {
	return &Parser{}
}

// Close releases the interface list and marks the Parser unusable. It is
// the teardown entry point of the parser's external interface
// (state_free()); calling Ingest on a closed Parser returns an error.
func (p *Parser) Close() {
	if p == nil {
		return
	}
	p.Interfaces = nil
	p.closed = true
}

// Header returns the decoded common header of the PDU currently (or
// most recently) in progress. It is only meaningful once at least 16
// bytes of the current PDU have been processed; callers can check via
// HeaderKnown.
func (p *Parser) Header() Header { return p.header }

// HeaderKnown reports whether the 16-octet common header of the current
// PDU has been fully decoded.
func (p *Parser) HeaderKnown() bool { return p.bytesProcessed >= headerLen }

// Opnum returns the operation number of the REQUEST PDU currently (or
// most recently) in progress.
func (p *Parser) Opnum() uint16 { return p.opnum }

// RequestCtxID returns the presentation context id of the REQUEST PDU
// currently in progress. The value shares the context-item scratch
// field, so it reads 0 once that PDU completes and is overwritten by
// BIND/ALTER_CONTEXT items.
func (p *Parser) RequestCtxID() uint16 { return p.scratchCtxID }

// SecondaryAddr returns the secondary address bytes captured from the
// most recent BIND_ACK/ALTER_CONTEXT_RESP PDU.
func (p *Parser) SecondaryAddr() []byte { return p.secondaryAddr }

var (
	// ErrNilParser is returned by Ingest when called on a nil Parser,
	// the Go analogue of the original's "null parser-context" error.
	ErrNilParser = errors.New("dcerpc: nil parser")
	// ErrClosed is returned by Ingest once the Parser has been closed.
	ErrClosed = errors.New("dcerpc: parser closed")
)

// resetForNextPDU clears all per-PDU scratch state once bytesProcessed
// reaches the PDU's fragLength. The header, the interface list, the most
// recent REQUEST opnum and the most recent BIND_ACK secondary address
// persist across PDUs on the same flow.
func (p *Parser) resetForNextPDU() {
	p.bytesProcessed = 0
	p.ctxBytesProcessed = 0
	p.numCtxItems = 0
	p.numCtxItemsLeft = 0
	p.scratchCtxID = 0
	p.scratchUUID = UUID{}
	p.scratchVersion = 0
	p.scratchVersionMinor = 0
	p.scratchResult = 0
	p.secondaryAddrLen = 0
	p.secondaryAddrLenLeft = 0
	p.pad = 0
	p.padLeft = 0
	p.stubBytesLeft = 0
	p.phase = phaseHeader
}

// abandonPDU clears the current PDU's context-item iteration (the
// dispatcher's response to a sub-decoder signaling a protocol error) and
// forces a skip to the next PDU boundary once fragLength bytes have
// passed.
func (p *Parser) abandonPDU() {
	p.numCtxItemsLeft = 0
	p.phase = phaseSkip
}
