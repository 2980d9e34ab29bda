package dcerpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUUID(seed byte) UUID {
	var u UUID
	for i := range u {
		u[i] = seed + byte(i)
	}
	return u
}

func buildBindPDU(little bool, items []struct {
	ctxID        uint16
	id           UUID
	version      uint16
	versionMinor uint16
}) []byte {
	body := buildBindPrimary(byte(len(items)))
	for _, it := range items {
		body = append(body, buildBindItem(it.ctxID, it.id, it.version, it.versionMinor, little)...)
	}
	hdr := buildHeader(PDUTypeBind, pfcFirstFrag|pfcLastFrag, little, uint16(headerLen+len(body)), 0, 1)
	return append(hdr, body...)
}

func TestBind_TwentyThreeContextItems(t *testing.T) {
	items := make([]struct {
		ctxID        uint16
		id           UUID
		version      uint16
		versionMinor uint16
	}, 23)
	for i := range items {
		items[i].ctxID = uint16(i)
		items[i].id = sampleUUID(byte(i))
		items[i].version = uint16(1)
		items[i].versionMinor = uint16(0)
	}
	raw := buildBindPDU(true, items)

	p := NewParser()
	obs := &recordingObserver{}
	p.Observer = obs

	n, err := p.Ingest(ToServer, raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)

	require.Len(t, p.Interfaces, 23)
	require.Len(t, obs.interfaces, 23)
	for i, iface := range p.Interfaces {
		assert.Equal(t, uint16(i), iface.CtxID)
		assert.Equal(t, items[i].id, iface.UUID)
		assert.True(t, iface.Accepted(), "defaults to accepted until a BIND_ACK patches it")
	}
}

func TestBind_SingleSliceVsByteAtATime(t *testing.T) {
	items := make([]struct {
		ctxID        uint16
		id           UUID
		version      uint16
		versionMinor uint16
	}, 24)
	for i := range items {
		items[i].ctxID = uint16(i)
		items[i].id = sampleUUID(byte(i * 3))
		items[i].version = uint16(3)
		items[i].versionMinor = uint16(0)
	}
	raw := buildBindPDU(true, items)
	require.Equal(t, 1084, len(raw), "fixture should match the documented 1084-byte scenario")

	whole := NewParser()
	n1, err := whole.Ingest(ToServer, raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n1)

	oneAtATime := NewParser()
	n2, err := ingestOneByteAtATime(oneAtATime, ToServer, raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n2)

	require.Len(t, whole.Interfaces, len(oneAtATime.Interfaces))
	for i := range whole.Interfaces {
		assert.Equal(t, *whole.Interfaces[i], *oneAtATime.Interfaces[i])
	}
}

func TestBind_UUIDSwizzleRoundTrip(t *testing.T) {
	want := UUID{
		0x12, 0x34, 0x56, 0x78,
		0x9a, 0xbc,
		0xde, 0xf0,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	}
	items := []struct {
		ctxID        uint16
		id           UUID
		version      uint16
		versionMinor uint16
	}{{0, want, 1, 0}}
	raw := buildBindPDU(true, items)

	// Split the single context item across the UUID field's own boundary
	// to ensure the swizzle table is applied identically whether the
	// field arrives whole or split mid-field.
	cut := headerLen + (bindPrimaryEnd - headerLen) + 4 + 8
	p := NewParser()
	n1, err := p.Ingest(ToServer, raw[:cut])
	require.NoError(t, err)
	assert.Equal(t, cut, n1)
	n2, err := p.Ingest(ToServer, raw[cut:])
	require.NoError(t, err)
	assert.Equal(t, len(raw)-cut, n2)

	require.Len(t, p.Interfaces, 1)
	assert.Equal(t, want, p.Interfaces[0].UUID)
	assert.Equal(t, "12345678-9abc-def0-0102-030405060708", p.Interfaces[0].UUID.String())
}

func TestBind_MalformedTruncatedRetainsPartialInterfaceList(t *testing.T) {
	items := []struct {
		ctxID        uint16
		id           UUID
		version      uint16
		versionMinor uint16
	}{
		{0, sampleUUID(1), 1, 0},
		{1, sampleUUID(2), 1, 0},
		{2, sampleUUID(3), 1, 0},
	}
	body := buildBindPrimary(byte(len(items)))
	for _, it := range items {
		body = append(body, buildBindItem(it.ctxID, it.id, it.version, it.versionMinor, true)...)
	}
	// Declare a frag_length that ends partway through the third item,
	// after the first two complete.
	truncatedAt := headerLen + (bindPrimaryEnd - headerLen) + 2*bindItemLen + 10
	hdr := buildHeader(PDUTypeBind, pfcFirstFrag|pfcLastFrag, true, uint16(truncatedAt), 0, 1)
	raw := append(hdr, body[:truncatedAt-headerLen]...)

	p := NewParser()
	n, err := p.Ingest(ToServer, raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)

	require.Len(t, p.Interfaces, 2, "the in-progress third item is dropped, the first two survive")
	assert.Equal(t, uint16(0), p.Interfaces[0].CtxID)
	assert.Equal(t, uint16(1), p.Interfaces[1].CtxID)

	// The parser is ready for the next PDU on the same flow.
	assert.Equal(t, phaseHeader, p.phase)
	assert.Equal(t, 0, p.bytesProcessed)
}
