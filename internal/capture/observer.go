package capture

import (
	"go.uber.org/zap"

	"github.com/mellowdrifter/dcerpcsniff/internal/dcerpc"
	"github.com/mellowdrifter/dcerpcsniff/internal/metrics"
)

// metricsObserver wires a Parser's callbacks into the process-wide
// Prometheus metrics and structured log, one instance per TCP flow. It
// never retains the Header/Interface values it is handed; the Parser
// itself owns that state for the lifetime of the flow.
type metricsObserver struct {
	ident string
	log   *zap.SugaredLogger
	m     *metrics.Metrics
}

func newMetricsObserver(ident string, log *zap.SugaredLogger, m *metrics.Metrics) *metricsObserver {
	return &metricsObserver{ident: ident, log: log, m: m}
}

func (o *metricsObserver) OnHeader(dir dcerpc.Direction, h dcerpc.Header) {
	o.m.RecordPDU(dir.String(), h.Type.String())
	o.log.Debugw("pdu header", "flow", o.ident, "dir", dir, "type", h.Type, "call_id", h.CallID)
}

func (o *metricsObserver) OnInterface(dir dcerpc.Direction, iface *dcerpc.Interface) {
	o.m.RecordContextItemAdvertised()
	o.log.Debugw("interface advertised", "flow", o.ident, "dir", dir, "ctx_id", iface.CtxID, "uuid", iface.UUID.String())
}

func (o *metricsObserver) OnInterfaceResult(dir dcerpc.Direction, iface *dcerpc.Interface) {
	o.m.RecordContextItemResult(iface.Accepted())
	o.log.Debugw("interface result", "flow", o.ident, "dir", dir, "ctx_id", iface.CtxID, "result", iface.Result, "accepted", iface.Accepted())
}

func (o *metricsObserver) OnRequest(dir dcerpc.Direction, ctxID uint16, opnum uint16) {
	o.log.Debugw("request", "flow", o.ident, "dir", dir, "ctx_id", ctxID, "opnum", opnum)
}
