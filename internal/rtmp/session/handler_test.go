package session

import (
	"testing"

	cerrors "github.com/alxayo/rtmpcodec/internal/errors"
	"github.com/alxayo/rtmpcodec/internal/rtmp/amf0"
	"github.com/alxayo/rtmpcodec/internal/rtmp/chunk"
	"github.com/alxayo/rtmpcodec/internal/rtmp/message"
	"github.com/alxayo/rtmpcodec/internal/rtmp/timestamp"
)

func newTestHandler() (*Handler, *chunk.Deserializer, *chunk.Serializer) {
	d := chunk.NewDeserializer()
	s := chunk.NewSerializer()
	h := NewHandler(d, s, WithFMSVersion("FMS/test"))
	return h, d, s
}

func handleMsg(t *testing.T, h *Handler, msg message.Typed) Outcome {
	t.Helper()
	outcome, err := h.Handle(Details{Message: msg})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	return outcome
}

func TestHandler_SetChunkSize(t *testing.T) {
	h, _, s := newTestHandler()
	d, ev := h.SetChunkSize(4096)

	scs, ok := d.Message.(message.SetChunkSize)
	if !ok || scs.Size != 4096 {
		t.Fatalf("unexpected message: %#v", d.Message)
	}
	if d.StreamID != 0 || d.Timestamp.Value() != 0 {
		t.Fatalf("control responses must go out on stream 0 at timestamp 0, got %+v", d)
	}
	if change, ok := ev.(SelfChunkSizeChanged); !ok || change.Size != 4096 {
		t.Fatalf("unexpected event: %#v", ev)
	}

	// The serializer's own state must have actually been updated, not just
	// the returned message.
	p := chunk.Payload{TypeID: 8, Data: make([]byte, 5000)}
	out, err := s.Serialize(p, true)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	// 4096-byte first chunk behind a 12-byte header, then one 1-byte basic
	// header and the remaining 904 bytes. The default 128 would give 5051.
	if want := 12 + 4096 + 1 + (5000 - 4096); len(out) != want {
		t.Fatalf("expected payload to be chunked at the new max chunk size: got %d bytes, want %d", len(out), want)
	}
}

func TestHandler_PeerSetChunkSize(t *testing.T) {
	h, d, _ := newTestHandler()
	outcome := handleMsg(t, h, message.SetChunkSize{Size: 1024})
	if len(outcome.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(outcome.Events))
	}
	if change, ok := outcome.Events[0].(PeerChunkSizeChanged); !ok || change.Size != 1024 {
		t.Fatalf("unexpected event: %#v", outcome.Events[0])
	}

	// Feed bytes to confirm the deserializer actually honors the new size:
	// a fresh Full chunk declaring a 2000-byte message should only consume
	// 1024 bytes of payload before yielding NotEnoughBytes (no payload yet).
	basic := []byte{0x03} // fmt0, csid 3
	header := make([]byte, 11)
	header[3], header[4], header[5] = 0, 0x07, 0xD0 // length 2000
	header[6] = 8                                   // audio
	payload := make([]byte, 1024)
	frame := append(append(basic, header...), payload...)
	got, err := d.Feed(frame)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no complete payload yet, got %d", len(got))
	}
}

func TestHandler_PingRequestGetsPingResponse(t *testing.T) {
	h, _, _ := newTestHandler()
	outcome := handleMsg(t, h, message.UserControl{Event: message.PingRequest{Timestamp: 777}})
	if len(outcome.ToSend) != 1 {
		t.Fatalf("expected a ping response, got %d messages", len(outcome.ToSend))
	}
	uc, ok := outcome.ToSend[0].Message.(message.UserControl)
	if !ok {
		t.Fatalf("got %T, want UserControl", outcome.ToSend[0].Message)
	}
	pong, ok := uc.Event.(message.PingResponse)
	if !ok || pong.Timestamp != 777 {
		t.Fatalf("expected PingResponse echoing 777, got %#v", uc.Event)
	}
}

func TestHandler_AcknowledgementTracked(t *testing.T) {
	h, _, _ := newTestHandler()
	outcome := handleMsg(t, h, message.Acknowledgement{SequenceNumber: 123456})
	if len(outcome.ToSend) != 0 || len(outcome.Events) != 0 {
		t.Fatalf("acknowledgement should be silent, got %+v", outcome)
	}
	if h.LastPeerAck() != 123456 {
		t.Fatalf("last peer ack = %d, want 123456", h.LastPeerAck())
	}
}

func TestHandler_PeerWindowAckTracked(t *testing.T) {
	h, _, _ := newTestHandler()
	outcome := handleMsg(t, h, message.WindowAcknowledgement{Size: 2500000})
	if len(outcome.ToSend) != 0 || len(outcome.Events) != 0 {
		t.Fatalf("peer window ack should be silent, got %+v", outcome)
	}
	if h.PeerWindowAckSize() != 2500000 {
		t.Fatalf("peer window ack size = %d, want 2500000", h.PeerWindowAckSize())
	}
}

func TestHandler_PeerBandwidthTracked(t *testing.T) {
	h, _, _ := newTestHandler()
	handleMsg(t, h, message.SetPeerBandwidth{Size: 1_000_000, LimitType: message.LimitSoft})
	size, limit := h.PeerDeclaredBandwidth()
	if size != 1_000_000 || limit != message.LimitSoft {
		t.Fatalf("peer bandwidth = (%d, %d), want (1000000, Soft)", size, limit)
	}
}

func TestHandler_AbortDiscardsPartialMessage(t *testing.T) {
	h, d, _ := newTestHandler()
	// Start a 6-byte message on csid 3 but deliver only the first chunk.
	d.SetPeerMaxChunkSize(3)
	first := []byte{3, 0, 0, 0, 0, 0, 6, 8, 0, 0, 0, 0, 1, 1, 1}
	if _, err := d.Feed(first); err != nil {
		t.Fatalf("feed: %v", err)
	}

	handleMsg(t, h, message.Abort{StreamID: 3})

	// After the abort, a fresh Full-header message on the same csid must
	// decode cleanly rather than being appended to the discarded remainder.
	fresh := []byte{3, 0, 0, 1, 0, 0, 2, 8, 0, 0, 0, 0, 9, 9}
	got, err := d.Feed(fresh)
	if err != nil {
		t.Fatalf("feed after abort: %v", err)
	}
	if len(got) != 1 || len(got[0].Data) != 2 {
		t.Fatalf("expected the fresh 2-byte message, got %+v", got)
	}
}

func TestHandler_ConnectSuccess(t *testing.T) {
	h, _, _ := newTestHandler()
	obj := amf0.NewObject().Set("app", amf0.String("live")).Set("tcUrl", amf0.String("rtmp://x/live"))
	cmd := message.Amf0Command{
		CommandName:   "connect",
		TransactionID: 1,
		CommandObject: obj,
	}

	outcome := handleMsg(t, h, cmd)
	if len(outcome.ToSend) != 2 {
		t.Fatalf("expected bandwidth + window ack messages, got %d", len(outcome.ToSend))
	}
	if _, ok := outcome.ToSend[0].Message.(message.SetPeerBandwidth); !ok {
		t.Fatalf("expected SetPeerBandwidth first, got %T", outcome.ToSend[0].Message)
	}
	if _, ok := outcome.ToSend[1].Message.(message.WindowAcknowledgement); !ok {
		t.Fatalf("expected WindowAcknowledgement second, got %T", outcome.ToSend[1].Message)
	}
	if len(outcome.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(outcome.Events))
	}
	reqEvent, ok := outcome.Events[0].(ConnectionRequested)
	if !ok {
		t.Fatalf("expected ConnectionRequested, got %#v", outcome.Events[0])
	}
	if reqEvent.ApplicationName != "live" {
		t.Fatalf("unexpected application name: %s", reqEvent.ApplicationName)
	}
	if h.ApplicationName() != "" {
		t.Fatalf("application name must not be set before accept, got %q", h.ApplicationName())
	}

	resp, err := h.AcceptRequest(reqEvent.RequestID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	result, ok := resp.Message.(message.Amf0Command)
	if !ok || result.CommandName != "_result" {
		t.Fatalf("unexpected response: %#v", resp.Message)
	}
	if result.TransactionID != 1 {
		t.Fatalf("transaction id not echoed: %v", result.TransactionID)
	}
	props, ok := result.CommandObject.(*amf0.Object)
	if !ok {
		t.Fatalf("command object not an Object: %#v", result.CommandObject)
	}
	if v, _ := props.Get("fmsVer"); v != amf0.String("FMS/test") {
		t.Fatalf("unexpected fmsVer: %#v", v)
	}
	if v, _ := props.Get("capabilities"); v != amf0.Number(31) {
		t.Fatalf("unexpected capabilities: %#v", v)
	}
	if len(result.AdditionalArguments) != 1 {
		t.Fatalf("expected one additional argument, got %d", len(result.AdditionalArguments))
	}
	info, ok := result.AdditionalArguments[0].(*amf0.Object)
	if !ok {
		t.Fatalf("status object not an Object: %#v", result.AdditionalArguments[0])
	}
	if v, _ := info.Get("code"); v != amf0.String("NetConnection.Connect.Success") {
		t.Fatalf("unexpected code: %#v", v)
	}
	if v, _ := info.Get("objectEncoding"); v != amf0.Number(0) {
		t.Fatalf("unexpected objectEncoding: %#v", v)
	}
	if h.ApplicationName() != "live" {
		t.Fatalf("application name after accept = %q, want \"live\"", h.ApplicationName())
	}

	// The request is now consumed; re-accepting must fail.
	if _, err := h.AcceptRequest(reqEvent.RequestID); err == nil {
		t.Fatalf("expected UnknownRequestId error on second accept")
	} else if kind, _ := cerrors.KindOf(err); kind != cerrors.KindUnknownRequestId {
		t.Fatalf("unexpected error kind: %v", err)
	}
}

func TestHandler_ConnectMalformed(t *testing.T) {
	h, _, _ := newTestHandler()
	cases := []struct {
		name string
		obj  amf0.Value
	}{
		{"not an object", amf0.Null{}},
		{"missing app", amf0.NewObject().Set("tcUrl", amf0.String("rtmp://x"))},
		{"app not a string", amf0.NewObject().Set("app", amf0.Number(5))},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			outcome := handleMsg(t, h, message.Amf0Command{
				CommandName:   "connect",
				TransactionID: 2,
				CommandObject: c.obj,
			})
			if len(outcome.Events) != 0 {
				t.Fatalf("malformed connect should not mint a request, got events %#v", outcome.Events)
			}
			if len(outcome.ToSend) != 1 {
				t.Fatalf("expected one error response, got %d", len(outcome.ToSend))
			}
			resp, ok := outcome.ToSend[0].Message.(message.Amf0Command)
			if !ok || resp.CommandName != "_error" {
				t.Fatalf("expected _error response, got %#v", outcome.ToSend[0].Message)
			}
			if resp.TransactionID != 2 {
				t.Fatalf("transaction id not echoed: %v", resp.TransactionID)
			}
		})
	}
}

func TestHandler_RejectRequest(t *testing.T) {
	h, _, _ := newTestHandler()
	obj := amf0.NewObject().Set("app", amf0.String("live"))
	outcome := handleMsg(t, h, message.Amf0Command{CommandName: "connect", TransactionID: 3, CommandObject: obj})
	reqID := outcome.Events[0].(ConnectionRequested).RequestID

	resp, err := h.RejectRequest(reqID, "application not found")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	cmd, ok := resp.Message.(message.Amf0Command)
	if !ok || cmd.CommandName != "_error" {
		t.Fatalf("unexpected reject response: %#v", resp.Message)
	}
	if h.ApplicationName() != "" {
		t.Fatalf("rejected connect must not set an application name")
	}
}

func TestHandler_UnknownCommandGetsErrorAndEvent(t *testing.T) {
	h, _, _ := newTestHandler()

	outcome, err := h.Handle(Details{StreamID: 7, Message: message.Amf0Command{
		CommandName:   "publish",
		TransactionID: 5,
		CommandObject: amf0.Null{},
	}})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(outcome.ToSend) != 1 {
		t.Fatalf("expected an _error response, got %d messages", len(outcome.ToSend))
	}
	resp := outcome.ToSend[0]
	cmd, ok := resp.Message.(message.Amf0Command)
	if !ok || cmd.CommandName != "_error" || cmd.TransactionID != 5 {
		t.Fatalf("unexpected response: %#v", resp.Message)
	}
	if resp.StreamID != 7 {
		t.Fatalf("error response must echo the incoming stream id, got %d", resp.StreamID)
	}
	if _, ok := outcome.Events[0].(UnhandleableAmf0Command); !ok {
		t.Fatalf("expected UnhandleableAmf0Command, got %#v", outcome.Events[0])
	}
}

func TestHandler_UnknownMessagePassedThrough(t *testing.T) {
	h, _, _ := newTestHandler()
	outcome := handleMsg(t, h, message.Unknown{MessageTypeID: 200, Data: []byte{1, 2, 3}})
	um, ok := outcome.Events[0].(UnhandleableMessage)
	if !ok || um.TypeID != 200 {
		t.Fatalf("expected UnhandleableMessage{200}, got %#v", outcome.Events[0])
	}
}

func TestHandler_AudioVideoMetadataEvents(t *testing.T) {
	h, _, _ := newTestHandler()

	outcome, _ := h.Handle(Details{StreamID: 1, Message: message.AudioData{Data: []byte{0xAF, 0x01}}})
	audio, ok := outcome.Events[0].(AudioReceived)
	if !ok || audio.StreamID != 1 {
		t.Fatalf("expected AudioReceived on stream 1, got %#v", outcome.Events[0])
	}

	outcome, _ = h.Handle(Details{StreamID: 1, Message: message.VideoData{Data: []byte{0x17, 0x01}}})
	if _, ok := outcome.Events[0].(VideoReceived); !ok {
		t.Fatalf("expected VideoReceived, got %#v", outcome.Events[0])
	}

	outcome, _ = h.Handle(Details{Message: message.Amf0Data{Values: []amf0.Value{amf0.String("onMetaData")}}})
	if _, ok := outcome.Events[0].(MetadataChanged); !ok {
		t.Fatalf("expected MetadataChanged, got %#v", outcome.Events[0])
	}
}

// TestHandler_WireLevelConnect drives the full loop a caller would: raw
// bytes through the deserializer, payloads through the message codec, typed
// messages through the handler, and its responses back out through the
// serializer.
func TestHandler_WireLevelConnect(t *testing.T) {
	h, d, s := newTestHandler()

	peerSer := chunk.NewSerializer()
	obj := amf0.NewObject().Set("app", amf0.String("live"))
	connect := message.Amf0Command{CommandName: "connect", TransactionID: 1, CommandObject: obj}
	payload, err := message.Encode(connect, timestamp.New(0), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	wire, err := peerSer.Serialize(payload, false)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	payloads, err := d.Feed(wire)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("expected one payload, got %d", len(payloads))
	}
	typed, err := message.Decode(payloads[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	outcome, err := h.Handle(Details{
		Timestamp: payloads[0].Timestamp,
		StreamID:  payloads[0].StreamID,
		Message:   typed,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	for _, out := range outcome.ToSend {
		p, err := message.Encode(out.Message, out.Timestamp, out.StreamID)
		if err != nil {
			t.Fatalf("encode response: %v", err)
		}
		if _, err := s.Serialize(p, false); err != nil {
			t.Fatalf("serialize response: %v", err)
		}
	}
	if len(outcome.Events) != 1 {
		t.Fatalf("expected ConnectionRequested, got %#v", outcome.Events)
	}
}

func TestAllocateRequestID_SkipsOccupiedSlots(t *testing.T) {
	h, _, _ := newTestHandler()
	h.pending[0] = &pendingRequest{}
	h.pending[1] = &pendingRequest{}
	id, err := h.allocateRequestID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 2 {
		t.Fatalf("expected first free id 2, got %d", id)
	}
}
