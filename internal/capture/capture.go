package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/reassembly"
	"go.uber.org/zap"

	"github.com/mellowdrifter/dcerpcsniff/internal/config"
	"github.com/mellowdrifter/dcerpcsniff/internal/metrics"
)

// flushEvery controls how many packets pass through Run between forced
// assembler flushes, bounding how long a flow can sit half-reassembled
// in memory when the peer never sends a FIN.
const flushEvery = 128

// closeInactiveTimeout and closePendingTimeout mirror the reassembly
// library's own FlushOptions knobs: a flow this idle is assumed dead.
const (
	closeInactiveTimeout = 2 * time.Minute
	closePendingTimeout  = 30 * time.Second
)

// Run opens cfg's packet source (live interface or offline pcap file),
// reassembles TCP streams, and feeds each one through a dcerpc.Parser
// until ctx is canceled or the packet source is exhausted (always true
// for an offline file, never for a live interface).
func Run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, m *metrics.Metrics) error {
	handle, err := openHandle(cfg)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	defer handle.Close()

	if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
		return fmt.Errorf("capture: set BPF filter %q: %w", cfg.BPFFilter, err)
	}

	streamFactory := newStreamFactory(log, m)
	streamPool := reassembly.NewStreamPool(streamFactory)
	assembler := reassembly.NewAssembler(streamPool)

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	source.NoCopy = true
	packets := source.Packets()

	count := 0
	for {
		select {
		case <-ctx.Done():
			assembler.FlushAll()
			return ctx.Err()
		case packet, ok := <-packets:
			if !ok {
				assembler.FlushAll()
				return nil
			}
			handlePacket(packet, assembler, log)
			count++
			if count%flushEvery == 0 {
				ref := packet.Metadata().CaptureInfo.Timestamp
				flushed, closed := assembler.FlushWithOptions(reassembly.FlushOptions{
					T:  ref.Add(-closePendingTimeout),
					TC: ref.Add(-closeInactiveTimeout),
				})
				log.Debugw("periodic flush", "flushed", flushed, "closed", closed)
			}
		}
	}
}

func handlePacket(packet gopacket.Packet, assembler *reassembly.Assembler, log *zap.SugaredLogger) {
	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return
	}
	tcp, ok := tcpLayer.(*layers.TCP)
	if !ok {
		return
	}
	netLayer := packet.NetworkLayer()
	if netLayer == nil {
		log.Debugw("tcp packet with no network layer, dropping")
		return
	}
	assembler.AssembleWithContext(netLayer.NetworkFlow(), tcp, &captureContext{
		CaptureInfo: packet.Metadata().CaptureInfo,
	})
}

// captureContext satisfies reassembly.AssemblerContext with nothing more
// than the capture timestamp the assembler itself requires.
type captureContext struct {
	gopacket.CaptureInfo
}

func (c *captureContext) GetCaptureInfo() gopacket.CaptureInfo { return c.CaptureInfo }

func openHandle(cfg *config.Config) (*pcap.Handle, error) {
	if cfg.PcapFile != "" {
		return pcap.OpenOffline(cfg.PcapFile)
	}
	inactive, err := pcap.NewInactiveHandle(cfg.Iface)
	if err != nil {
		return nil, fmt.Errorf("new inactive handle for %q: %w", cfg.Iface, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(int(cfg.SnapLen)); err != nil {
		return nil, fmt.Errorf("set snaplen: %w", err)
	}
	if err := inactive.SetPromisc(true); err != nil {
		return nil, fmt.Errorf("set promisc: %w", err)
	}
	if err := inactive.SetTimeout(time.Second); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("activate %q: %w", cfg.Iface, err)
	}
	return handle, nil
}
