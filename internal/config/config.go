package config

import (
	"flag"
	"fmt"
)

type Config struct {
	Iface         string // network interface to capture live traffic from
	PcapFile      string // offline pcap file to read instead of a live interface
	BPFFilter     string // berkeley packet filter applied to the capture
	ListenMetrics string // address the Prometheus /metrics server listens on
	LogLevel      string // "info", "debug", etc.
	SnapLen       int32  // per-packet capture snaplen
}

const (
	// DefaultSnapLen is large enough to capture a full-size Ethernet
	// frame without truncating the DCE/RPC payload it carries.
	DefaultSnapLen = int32(65536)
)

type bpfFilter []string

func (f *bpfFilter) String() string {
	return fmt.Sprint(*f)
}

func (f *bpfFilter) Set(value string) error {
	*f = append(*f, value)
	return nil
}

// Load reads config from flags, falling back to defaults for anything
// unset.
func Load() (*Config, error) {
	var filters bpfFilter
	cfg := &Config{
		BPFFilter:     "tcp",
		ListenMetrics: ":9273",
		LogLevel:      "info",
		SnapLen:       DefaultSnapLen,
	}

	iface := flag.String("iface", "", "network interface to capture from (mutually exclusive with -pcap)")
	pcapFile := flag.String("pcap", "", "offline pcap file to read instead of a live interface")
	listenMetrics := flag.String("listen-metrics", cfg.ListenMetrics, "address the /metrics endpoint listens on")
	loglevel := flag.String("loglevel", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Var(&filters, "bpf", "BPF filter term, ANDed with any others given (default: tcp)")

	flag.Parse()

	cfg.Iface = *iface
	cfg.PcapFile = *pcapFile
	cfg.ListenMetrics = *listenMetrics
	cfg.LogLevel = *loglevel

	if len(filters) > 0 {
		cfg.BPFFilter = joinBPF(filters)
	}

	if cfg.Iface == "" && cfg.PcapFile == "" {
		return nil, fmt.Errorf("config: one of -iface or -pcap is required")
	}
	if cfg.Iface != "" && cfg.PcapFile != "" {
		return nil, fmt.Errorf("config: -iface and -pcap are mutually exclusive")
	}

	return cfg, nil
}

func joinBPF(terms []string) string {
	joined := terms[0]
	for _, t := range terms[1:] {
		joined += " and " + t
	}
	return joined
}
