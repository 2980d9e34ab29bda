// Package capture wires a live or offline packet source through TCP
// reassembly into one dcerpc.Parser per bidirectional flow. It owns
// everything the dcerpc package deliberately knows nothing about:
// sockets, fragment reordering, and flow lifetime.
package capture

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mellowdrifter/dcerpcsniff/internal/dcerpc"
	"github.com/mellowdrifter/dcerpcsniff/internal/metrics"
)

// dcerpcStream represents one bidirectional TCP connection. It implements
// reassembly.Stream and owns the single dcerpc.Parser shared by both
// directions of the flow, since Parser.Ingest already distinguishes
// ToServer from ToClient internally.
type dcerpcStream struct {
	bidiID  uuid.UUID
	netFlow gopacket.Flow

	// clientDir is the reassembly.TCPFlowDirection observed on the first
	// packet of the connection; bytes in that direction are handed to the
	// Parser as dcerpc.ToServer, and its Reverse() as dcerpc.ToClient.
	// Populated on the first call to Accept.
	clientDir reassembly.TCPFlowDirection
	haveDir   bool
	parser    *dcerpc.Parser
	log       *zap.SugaredLogger
	m         *metrics.Metrics
}

func newDCERPCStream(netFlow gopacket.Flow, log *zap.SugaredLogger, m *metrics.Metrics) *dcerpcStream {
	id := uuid.New()
	p := dcerpc.NewParser()
	p.Observer = newMetricsObserver(id.String(), log, m)
	m.IncActiveFlows()
	return &dcerpcStream{
		bidiID:  id,
		netFlow: netFlow,
		parser:  p,
		log:     log,
		m:       m,
	}
}

// Accept always forces the stream to start, matching a sniffer that may
// attach mid-connection and never observe the opening SYN.
func (s *dcerpcStream) Accept(tcp *layers.TCP, ci gopacket.CaptureInfo, dir reassembly.TCPFlowDirection,
	nextSeq reassembly.Sequence, start *bool, ac reassembly.AssemblerContext) bool {
	*start = true

	if !s.haveDir {
		s.clientDir = dir
		s.haveDir = true
	}
	return true
}

// ReassembledSG hands one reassembled, in-order chunk of a single
// direction to the flow's Parser. A non-zero skip means bytes were lost
// to the reassembler (out of the capture window or a forced flush);
// Ingest's resumption contract requires contiguous input, so such a
// chunk is dropped rather than handed to the Parser. The Parser has no
// resynchronisation of its own: later chunks of the flow continue from
// its existing cursor.
func (s *dcerpcStream) ReassembledSG(sg reassembly.ScatterGather, ac reassembly.AssemblerContext) {
	length, _ := sg.Lengths()
	dir, _, _, skip := sg.Info()
	if skip != 0 || length == 0 {
		return
	}

	data := sg.Fetch(length)
	wireDir := dcerpc.ToServer
	if dir != s.clientDir {
		wireDir = dcerpc.ToClient
	}

	s.m.RecordBytes(wireDir.String(), length)
	if _, err := s.parser.Ingest(wireDir, data); err != nil {
		s.m.RecordParseError(errKind(err))
		s.log.Warnw("dcerpc parse error, resyncing at next PDU", "flow", s.bidiID, "dir", wireDir, "error", err)
	}
}

// ReassemblyComplete releases the flow's Parser and always removes the
// connection from the pool; nothing here needs to see FIN-ACK stragglers.
func (s *dcerpcStream) ReassemblyComplete(ac reassembly.AssemblerContext) bool {
	s.parser.Close()
	s.m.DecActiveFlows()
	return true
}

func errKind(err error) string {
	return fmt.Sprintf("%v", err)
}

// dcerpcStreamFactory implements reassembly.StreamFactory, handing each
// new bidirectional flow its own dcerpcStream.
type dcerpcStreamFactory struct {
	log *zap.SugaredLogger
	m   *metrics.Metrics
}

func newStreamFactory(log *zap.SugaredLogger, m *metrics.Metrics) *dcerpcStreamFactory {
	return &dcerpcStreamFactory{log: log, m: m}
}

func (f *dcerpcStreamFactory) New(netFlow, transport gopacket.Flow, tcp *layers.TCP, ac reassembly.AssemblerContext) reassembly.Stream {
	return newDCERPCStream(netFlow, f.log, f.m)
}
