package dcerpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_OpnumInLargeFragment(t *testing.T) {
	const fragLen = 1024
	body := buildRequestPrimary(0, 9, true)
	stub := make([]byte, fragLen-headerLen-len(body))
	for i := range stub {
		stub[i] = byte(i)
	}
	hdr := buildHeader(PDUTypeRequest, pfcFirstFrag|pfcLastFrag, true, fragLen, 0, 55)
	raw := append(hdr, body...)
	raw = append(raw, stub...)
	require.Equal(t, fragLen, len(raw))

	obs := &recordingObserver{}
	p := NewParser()
	p.Observer = obs

	n, err := p.Ingest(ToServer, raw)
	require.NoError(t, err)
	assert.Equal(t, fragLen, n)

	require.Len(t, obs.requests, 1)
	assert.Equal(t, uint16(9), obs.requests[0].opnum)
	assert.Equal(t, ToServer, obs.requests[0].dir)
	assert.Equal(t, uint16(9), p.Opnum())
	assert.Equal(t, phaseHeader, p.phase, "stub drained, ready for the next PDU")
}

func TestRequest_OpnumResumptionAcrossSliceBoundary(t *testing.T) {
	body := buildRequestPrimary(3, 0xBEEF&0xFFFF, true)
	hdr := buildHeader(PDUTypeRequest, pfcFirstFrag|pfcLastFrag, true, uint16(headerLen+len(body)), 0, 1)
	raw := append(hdr, body...)

	whole := NewParser()
	n, err := whole.Ingest(ToServer, raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)

	split := NewParser()
	_, err = ingestOneByteAtATime(split, ToServer, raw)
	require.NoError(t, err)

	assert.Equal(t, whole.Opnum(), split.opnum)
}

func TestRequest_BigEndianOpnum(t *testing.T) {
	body := buildRequestPrimary(0, 42, false)
	hdr := buildHeader(PDUTypeRequest, pfcFirstFrag|pfcLastFrag, false, uint16(headerLen+len(body)), 0, 1)
	raw := append(hdr, body...)

	obs := &recordingObserver{}
	p := NewParser()
	p.Observer = obs
	_, err := p.Ingest(ToServer, raw)
	require.NoError(t, err)

	require.Len(t, obs.requests, 1)
	assert.Equal(t, uint16(42), obs.requests[0].opnum)
}
