// Package dcerpc implements a streaming, byte-resumable parser for the
// DCE/RPC connection-oriented protocol as carried over TCP. A Parser
// consumes one TCP flow's bytes, in both directions, and extracts the
// 16-octet common header, the contents of BIND/ALTER_CONTEXT and their
// responses, and the identifying fields of REQUEST PDUs. Any byte of any
// field may arrive in any call to Ingest; the Parser always resumes
// exactly where the previous call left off.
//
// The package has no knowledge of sockets, TCP reassembly, or logging —
// callers (see internal/capture) are responsible for handing it
// contiguous, in-order byte slices per direction.
package dcerpc

import "fmt"

// Direction identifies which side of a TCP flow a slice of bytes came
// from. BIND/ALTER_CONTEXT PDUs travel ToServer; BIND_ACK/ALTER_CONTEXT_RESP
// travel ToClient.
type Direction uint8

const (
	ToServer Direction = iota
	ToClient
)

func (d Direction) String() string {
	if d == ToClient {
		return "to_client"
	}
	return "to_server"
}

// PDUType is the DCE/RPC PDU type octet. Only the five values below are
// decoded past the common header; all others are acknowledged and
// skipped.
type PDUType uint8

const (
	PDUTypeRequest          PDUType = 0
	PDUTypeBind             PDUType = 11
	PDUTypeBindAck          PDUType = 12
	PDUTypeAlterContext     PDUType = 14
	PDUTypeAlterContextResp PDUType = 15
)

func (t PDUType) String() string {
	switch t {
	case PDUTypeRequest:
		return "REQUEST"
	case PDUTypeBind:
		return "BIND"
	case PDUTypeBindAck:
		return "BIND_ACK"
	case PDUTypeAlterContext:
		return "ALTER_CONTEXT"
	case PDUTypeAlterContextResp:
		return "ALTER_CONTEXT_RESP"
	default:
		return fmt.Sprintf("PDUType(%d)", uint8(t))
	}
}

// UUID is a 128-bit DCE interface identifier, stored in the canonical
// printed byte order (b0 b1 b2 ... b15), never the on-wire swizzled
// order. See bind.go for the wire-to-canonical reassembly.
type UUID [16]byte

// String renders the UUID in canonical
// xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx form, matching the original
// parser's printUUID debug helper.
func (u UUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}

// Header is the fixed 16-octet common PDU header. It is only valid once
// the owning Parser has processed at least 16 bytes of the current PDU.
type Header struct {
	RPCVers      uint8
	RPCVersMinor uint8
	Type         PDUType
	PFCFlags     uint8
	PackedDrep   [4]byte
	FragLength   uint16
	AuthLength   uint16
	CallID       uint32
}

// LittleEndian reports whether packed_drep[0] selects little-endian
// integer encoding (0x10) for the remainder of this PDU's multi-octet
// fields.
func (h Header) LittleEndian() bool {
	return h.PackedDrep[0] == 0x10
}

// pfcFirstFrag and pfcLastFrag are the DCE 1.1 pfc_flags bit
// assignments; the parser only exposes them as accessors over the
// already-extracted octet and never attempts cross-fragment call
// correlation (out of scope).
const (
	pfcFirstFrag uint8 = 0x01
	pfcLastFrag  uint8 = 0x02
)

// IsFirstFrag reports whether this PDU is the first fragment of a
// logical DCE/RPC call.
func (h Header) IsFirstFrag() bool { return h.PFCFlags&pfcFirstFrag != 0 }

// IsLastFrag reports whether this PDU is the last fragment of a logical
// DCE/RPC call.
func (h Header) IsLastFrag() bool { return h.PFCFlags&pfcLastFrag != 0 }

// Interface is one advertised abstract-syntax/transfer-syntax pair from
// a BIND or ALTER_CONTEXT context item, with its acceptance result
// patched in once the matching BIND_ACK/ALTER_CONTEXT_RESP item arrives.
// Result defaults to 0 (accepted) until patched.
type Interface struct {
	CtxID        uint16
	UUID         UUID
	Version      uint16
	VersionMinor uint16
	Result       uint16
}

// Accepted reports whether the peer accepted this context item. Only
// meaningful after the matching BIND_ACK/ALTER_CONTEXT_RESP has been
// parsed; before that it is true by the zero-value default, matching the
// data model's "defaults to 0 until patched" invariant.
func (i *Interface) Accepted() bool { return i.Result == 0 }

// Observer receives notifications as the Parser completes decoding
// pieces of a PDU. It is the hand-off point the original DCE/RPC parser
// gives to its enclosing IDS engine; implementing Observer is optional —
// a nil Observer on a Parser is valid and simply receives no callbacks.
type Observer interface {
	// OnHeader is called once the 16-octet common header of a PDU is
	// fully decoded.
	OnHeader(dir Direction, h Header)
	// OnInterface is called each time a BIND/ALTER_CONTEXT context item
	// completes and a new Interface record is appended.
	OnInterface(dir Direction, iface *Interface)
	// OnInterfaceResult is called each time a BIND_ACK/ALTER_CONTEXT_RESP
	// item patches the Result field of a previously advertised Interface.
	OnInterfaceResult(dir Direction, iface *Interface)
	// OnRequest is called once a REQUEST PDU's ctx id and opnum are
	// decoded, before the stub data is drained.
	OnRequest(dir Direction, ctxID uint16, opnum uint16)
}
