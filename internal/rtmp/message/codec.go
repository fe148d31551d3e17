package message

import (
	"encoding/binary"

	cerrors "github.com/alxayo/rtmpcodec/internal/errors"
	"github.com/alxayo/rtmpcodec/internal/rtmp/amf0"
	"github.com/alxayo/rtmpcodec/internal/rtmp/chunk"
	"github.com/alxayo/rtmpcodec/internal/rtmp/timestamp"
)

// maxChunkSizeValue is the largest SetChunkSize may legally carry: the top
// bit must be 0 per the protocol (size < 2^31).
const maxChunkSizeValue = 1<<31 - 1

// Decode maps a reassembled chunk.Payload to its typed message, dispatching
// on p.TypeID.
func Decode(p chunk.Payload) (Typed, error) {
	switch p.TypeID {
	case TypeSetChunkSize:
		if len(p.Data) != 4 {
			return nil, invalidFormat("message.decode", "SetChunkSize")
		}
		size := binary.BigEndian.Uint32(p.Data)
		if size > maxChunkSizeValue {
			return nil, invalidFormat("message.decode", "SetChunkSize: top bit must be 0")
		}
		return SetChunkSize{Size: size}, nil

	case TypeAbort:
		if len(p.Data) != 4 {
			return nil, invalidFormat("message.decode", "Abort")
		}
		return Abort{StreamID: binary.BigEndian.Uint32(p.Data)}, nil

	case TypeAcknowledgement:
		if len(p.Data) != 4 {
			return nil, invalidFormat("message.decode", "Acknowledgement")
		}
		return Acknowledgement{SequenceNumber: binary.BigEndian.Uint32(p.Data)}, nil

	case TypeUserControl:
		event, err := decodeUserControl(p.Data)
		if err != nil {
			return nil, err
		}
		return UserControl{Event: event}, nil

	case TypeWindowAcknowledgement:
		if len(p.Data) != 4 {
			return nil, invalidFormat("message.decode", "WindowAcknowledgement")
		}
		return WindowAcknowledgement{Size: binary.BigEndian.Uint32(p.Data)}, nil

	case TypeSetPeerBandwidth:
		if len(p.Data) != 5 {
			return nil, invalidFormat("message.decode", "SetPeerBandwidth")
		}
		return SetPeerBandwidth{
			Size:      binary.BigEndian.Uint32(p.Data[0:4]),
			LimitType: LimitType(p.Data[4]),
		}, nil

	case TypeAudioData:
		return AudioData{Data: p.Data}, nil

	case TypeVideoData:
		return VideoData{Data: p.Data}, nil

	case TypeAmf0Data:
		values, err := amf0.Decode(p.Data)
		if err != nil {
			return nil, err
		}
		return Amf0Data{Values: values}, nil

	case TypeAmf0Command:
		return decodeAmf0Command(p.Data)

	default:
		return Unknown{MessageTypeID: p.TypeID, Data: p.Data}, nil
	}
}

// Encode maps a typed message back to a chunk.Payload ready for the chunk
// serializer. ts and streamID supply the transport-framing context (wire
// timestamp and RTMP message stream id) that a typed message's own fields do
// not carry.
func Encode(msg Typed, ts timestamp.Timestamp, streamID uint32) (chunk.Payload, error) {
	var data []byte
	var err error

	switch m := msg.(type) {
	case SetChunkSize:
		if m.Size > maxChunkSizeValue {
			return chunk.Payload{}, cerrors.NewCodecError("message.encode", cerrors.KindInvalidChunkSize, m.Size, nil)
		}
		data = put32(m.Size)
	case Abort:
		data = put32(m.StreamID)
	case Acknowledgement:
		data = put32(m.SequenceNumber)
	case UserControl:
		data, err = encodeUserControl(m.Event)
	case WindowAcknowledgement:
		data = put32(m.Size)
	case SetPeerBandwidth:
		data = append(put32(m.Size), byte(m.LimitType))
	case AudioData:
		data = m.Data
	case VideoData:
		data = m.Data
	case Amf0Data:
		data, err = amf0.Encode(m.Values)
	case Amf0Command:
		data, err = encodeAmf0Command(m)
	case Unknown:
		data = m.Data
	default:
		return chunk.Payload{}, invalidFormat("message.encode", "unrecognized typed message")
	}
	if err != nil {
		return chunk.Payload{}, err
	}
	return chunk.Payload{
		Timestamp: ts,
		TypeID:    msg.typeID(),
		StreamID:  streamID,
		Data:      data,
	}, nil
}

func put32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func invalidFormat(op, detail string) error {
	return cerrors.NewCodecError(op, cerrors.KindInvalidMessageFormat, detail, nil)
}

func decodeUserControl(data []byte) (UserControlEvent, error) {
	if len(data) < 2 {
		return nil, invalidFormat("message.decode", "UserControl: missing event code")
	}
	code := binary.BigEndian.Uint16(data[0:2])
	body := data[2:]
	switch code {
	case EventStreamBegin:
		if len(body) != 4 {
			return nil, invalidFormat("message.decode", "StreamBegin")
		}
		return StreamBegin{StreamID: binary.BigEndian.Uint32(body)}, nil
	case EventStreamEOF:
		if len(body) != 4 {
			return nil, invalidFormat("message.decode", "StreamEOF")
		}
		return StreamEOF{StreamID: binary.BigEndian.Uint32(body)}, nil
	case EventStreamDry:
		if len(body) != 4 {
			return nil, invalidFormat("message.decode", "StreamDry")
		}
		return StreamDry{StreamID: binary.BigEndian.Uint32(body)}, nil
	case EventSetBufferLength:
		if len(body) != 8 {
			return nil, invalidFormat("message.decode", "SetBufferLength")
		}
		return SetBufferLength{
			StreamID:     binary.BigEndian.Uint32(body[0:4]),
			BufferLength: binary.BigEndian.Uint32(body[4:8]),
		}, nil
	case EventStreamIsRecorded:
		if len(body) != 4 {
			return nil, invalidFormat("message.decode", "StreamIsRecorded")
		}
		return StreamIsRecorded{StreamID: binary.BigEndian.Uint32(body)}, nil
	case EventPingRequest:
		if len(body) != 4 {
			return nil, invalidFormat("message.decode", "PingRequest")
		}
		return PingRequest{Timestamp: binary.BigEndian.Uint32(body)}, nil
	case EventPingResponse:
		if len(body) != 4 {
			return nil, invalidFormat("message.decode", "PingResponse")
		}
		return PingResponse{Timestamp: binary.BigEndian.Uint32(body)}, nil
	default:
		return nil, invalidFormat("message.decode", "UserControl: unknown event code")
	}
}

func encodeUserControl(event UserControlEvent) ([]byte, error) {
	code := make([]byte, 2)
	binary.BigEndian.PutUint16(code, event.eventCode())

	switch e := event.(type) {
	case StreamBegin:
		return append(code, put32(e.StreamID)...), nil
	case StreamEOF:
		return append(code, put32(e.StreamID)...), nil
	case StreamDry:
		return append(code, put32(e.StreamID)...), nil
	case SetBufferLength:
		return append(append(code, put32(e.StreamID)...), put32(e.BufferLength)...), nil
	case StreamIsRecorded:
		return append(code, put32(e.StreamID)...), nil
	case PingRequest:
		return append(code, put32(e.Timestamp)...), nil
	case PingResponse:
		return append(code, put32(e.Timestamp)...), nil
	default:
		return nil, invalidFormat("message.encode", "UserControl: unrecognized event")
	}
}

// decodeAmf0Command enforces the command envelope: the first value must be
// a string (command name), the second a number (transaction id), the third
// the command object (any AMF0 value); anything after that is an additional
// argument.
func decodeAmf0Command(data []byte) (Typed, error) {
	values, err := amf0.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(values) < 3 {
		return nil, invalidFormat("message.decode", "Amf0Command: fewer than 3 values")
	}
	name, ok := values[0].(amf0.String)
	if !ok {
		return nil, invalidFormat("message.decode", "Amf0Command: first value must be a string")
	}
	txID, ok := values[1].(amf0.Number)
	if !ok {
		return nil, invalidFormat("message.decode", "Amf0Command: second value must be a number")
	}
	return Amf0Command{
		CommandName:         string(name),
		TransactionID:       float64(txID),
		CommandObject:       values[2],
		AdditionalArguments: values[3:],
	}, nil
}

func encodeAmf0Command(m Amf0Command) ([]byte, error) {
	values := make([]amf0.Value, 0, 3+len(m.AdditionalArguments))
	values = append(values, amf0.String(m.CommandName), amf0.Number(m.TransactionID), m.CommandObject)
	values = append(values, m.AdditionalArguments...)
	return amf0.Encode(values)
}
