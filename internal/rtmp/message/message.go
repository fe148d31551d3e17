// Package message implements the typed message codec: the mapping between
// a chunk.Payload (timestamp, type id, stream id, opaque bytes) and a closed
// sum type of known RTMP protocol-control and media messages.
package message

import "github.com/alxayo/rtmpcodec/internal/rtmp/amf0"

// Type ids from the RTMP message header's type_id field.
const (
	TypeSetChunkSize          uint8 = 1
	TypeAbort                 uint8 = 2
	TypeAcknowledgement       uint8 = 3
	TypeUserControl           uint8 = 4
	TypeWindowAcknowledgement uint8 = 5
	TypeSetPeerBandwidth      uint8 = 6
	TypeAudioData             uint8 = 8
	TypeVideoData             uint8 = 9
	TypeAmf0Data              uint8 = 18
	TypeAmf0Command           uint8 = 20
)

// Typed is any decoded RTMP message. Concrete types implement an unexported
// marker method, making this a sealed interface: the set of variants below
// is exhaustive and the dispatch in Decode/Encode covers every one of them.
type Typed interface {
	typeID() uint8
}

// SetChunkSize (type 1) tells the peer the new maximum chunk payload size.
type SetChunkSize struct {
	Size uint32
}

func (SetChunkSize) typeID() uint8 { return TypeSetChunkSize }

// Abort (type 2) discards a message currently being assembled on a csid.
type Abort struct {
	StreamID uint32
}

func (Abort) typeID() uint8 { return TypeAbort }

// Acknowledgement (type 3) reports the total bytes received so far.
type Acknowledgement struct {
	SequenceNumber uint32
}

func (Acknowledgement) typeID() uint8 { return TypeAcknowledgement }

// UserControl (type 4) carries one of the seven user-control sub-events.
type UserControl struct {
	Event UserControlEvent
}

func (UserControl) typeID() uint8 { return TypeUserControl }

// WindowAcknowledgement (type 5) sets the peer's acknowledgement window size.
type WindowAcknowledgement struct {
	Size uint32
}

func (WindowAcknowledgement) typeID() uint8 { return TypeWindowAcknowledgement }

// LimitType is SetPeerBandwidth's limit-type byte.
type LimitType uint8

const (
	LimitHard    LimitType = 0
	LimitSoft    LimitType = 1
	LimitDynamic LimitType = 2
)

// SetPeerBandwidth (type 6) caps the peer's outbound bandwidth.
type SetPeerBandwidth struct {
	Size      uint32
	LimitType LimitType
}

func (SetPeerBandwidth) typeID() uint8 { return TypeSetPeerBandwidth }

// AudioData (type 8) carries one opaque audio frame.
type AudioData struct {
	Data []byte
}

func (AudioData) typeID() uint8 { return TypeAudioData }

// VideoData (type 9) carries one opaque video frame.
type VideoData struct {
	Data []byte
}

func (VideoData) typeID() uint8 { return TypeVideoData }

// Amf0Data (type 18) carries a sequence of AMF0 values with no command
// envelope (e.g. onMetaData).
type Amf0Data struct {
	Values []amf0.Value
}

func (Amf0Data) typeID() uint8 { return TypeAmf0Data }

// Amf0Command (type 20) is an RPC-style command: a name, a transaction id,
// a command object, and any number of additional arguments.
type Amf0Command struct {
	CommandName         string
	TransactionID       float64
	CommandObject       amf0.Value
	AdditionalArguments []amf0.Value
}

func (Amf0Command) typeID() uint8 { return TypeAmf0Command }

// Unknown passes through any type id this codec does not recognize so
// higher layers can still observe and relay it.
type Unknown struct {
	MessageTypeID uint8
	Data          []byte
}

func (u Unknown) typeID() uint8 { return u.MessageTypeID }
