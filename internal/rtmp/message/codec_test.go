package message

import (
	"bytes"
	"testing"

	"github.com/alxayo/rtmpcodec/internal/rtmp/amf0"
	"github.com/alxayo/rtmpcodec/internal/rtmp/chunk"
	"github.com/alxayo/rtmpcodec/internal/rtmp/timestamp"
)

func roundTrip(t *testing.T, msg Typed) Typed {
	t.Helper()
	p, err := Encode(msg, timestamp.New(0), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(p)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestSetChunkSizeRoundTrip(t *testing.T) {
	got := roundTrip(t, SetChunkSize{Size: 4096})
	if got != (SetChunkSize{Size: 4096}) {
		t.Fatalf("got %#v", got)
	}
}

func TestSetChunkSizeTopBitRejected(t *testing.T) {
	_, err := Encode(SetChunkSize{Size: 1 << 31}, timestamp.New(0), 0)
	if err == nil {
		t.Fatal("expected InvalidChunkSize for size with top bit set")
	}
}

func TestSetPeerBandwidthFieldOrder(t *testing.T) {
	p, err := Encode(SetPeerBandwidth{Size: 2500000, LimitType: LimitDynamic}, timestamp.New(0), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(p.Data) != 5 {
		t.Fatalf("got %d bytes, want 5", len(p.Data))
	}
	if p.Data[4] != byte(LimitDynamic) {
		t.Fatalf("limit type must be the trailing byte, got %v", p.Data)
	}
}

func TestUserControlAllEventCodes(t *testing.T) {
	events := []UserControlEvent{
		StreamBegin{StreamID: 1},
		StreamEOF{StreamID: 1},
		StreamDry{StreamID: 1},
		SetBufferLength{StreamID: 1, BufferLength: 3000},
		StreamIsRecorded{StreamID: 1},
		PingRequest{Timestamp: 12345},
		PingResponse{Timestamp: 12345},
	}
	for _, e := range events {
		got := roundTrip(t, UserControl{Event: e})
		uc, ok := got.(UserControl)
		if !ok {
			t.Fatalf("got %T, want UserControl", got)
		}
		if uc.Event != e {
			t.Fatalf("got %#v, want %#v", uc.Event, e)
		}
	}
}

func TestUserControlUnknownCodeFails(t *testing.T) {
	p := chunk.Payload{TypeID: TypeUserControl, Data: []byte{0, 99, 0, 0, 0, 1}}
	_, err := Decode(p)
	if err == nil {
		t.Fatal("expected InvalidMessageFormat for unknown event code")
	}
}

func TestAmf0CommandRoundTrip(t *testing.T) {
	obj := amf0.NewObject().Set("app", amf0.String("live"))
	cmd := Amf0Command{
		CommandName:         "connect",
		TransactionID:       1,
		CommandObject:       obj,
		AdditionalArguments: []amf0.Value{amf0.Boolean(true)},
	}
	got := roundTrip(t, cmd)
	gotCmd, ok := got.(Amf0Command)
	if !ok {
		t.Fatalf("got %T, want Amf0Command", got)
	}
	if gotCmd.CommandName != "connect" || gotCmd.TransactionID != 1 {
		t.Fatalf("got %#v", gotCmd)
	}
	if len(gotCmd.AdditionalArguments) != 1 || gotCmd.AdditionalArguments[0] != amf0.Boolean(true) {
		t.Fatalf("unexpected additional arguments: %#v", gotCmd.AdditionalArguments)
	}
}

func TestAmf0CommandRejectsShortSequence(t *testing.T) {
	data, _ := amf0.Encode([]amf0.Value{amf0.String("connect")})
	_, err := Decode(chunk.Payload{TypeID: TypeAmf0Command, Data: data})
	if err == nil {
		t.Fatal("expected InvalidMessageFormat for fewer than 3 values")
	}
}

func TestUnknownTypePassesThrough(t *testing.T) {
	p := chunk.Payload{TypeID: 250, Data: []byte{1, 2, 3}}
	got, err := Decode(p)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	u, ok := got.(Unknown)
	if !ok {
		t.Fatalf("got %T, want Unknown", got)
	}
	if !bytes.Equal(u.Data, []byte{1, 2, 3}) || u.MessageTypeID != 250 {
		t.Fatalf("got %#v", u)
	}
}

func TestDetectAudioCodec(t *testing.T) {
	codec, err := DetectAudioCodec([]byte{0xAF, 0x01})
	if err != nil || codec != AudioCodecAAC {
		t.Fatalf("got %q, %v", codec, err)
	}
}

func TestDetectVideoCodec(t *testing.T) {
	codec, err := DetectVideoCodec([]byte{0x17})
	if err != nil || codec != VideoCodecAVC {
		t.Fatalf("got %q, %v", codec, err)
	}
}

func TestDetectVideoCodecHEVC(t *testing.T) {
	codec, err := DetectVideoCodec([]byte{0x1C})
	if err != nil || codec != VideoCodecHEVC {
		t.Fatalf("got %q, %v", codec, err)
	}
}

func TestDetectVideoCodecUnsupported(t *testing.T) {
	_, err := DetectVideoCodec([]byte{0x12})
	if err == nil {
		t.Fatal("expected error for unsupported codec id")
	}
}
