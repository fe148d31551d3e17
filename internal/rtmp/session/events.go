package session

import "github.com/alxayo/rtmpcodec/internal/rtmp/amf0"

// Event is any application-visible occurrence the handler surfaces while
// processing peer messages. Concrete types implement an unexported marker
// method, sealing the set the way message.Typed and amf0.Value do.
type Event interface {
	sessionEvent()
}

// SelfChunkSizeChanged reports that this side's outbound chunk size changed,
// as a result of a local SetChunkSize call.
type SelfChunkSizeChanged struct {
	Size uint32
}

func (SelfChunkSizeChanged) sessionEvent() {}

// PeerChunkSizeChanged reports that the peer declared a new max chunk size
// via an inbound SetChunkSize message.
type PeerChunkSizeChanged struct {
	Size uint32
}

func (PeerChunkSizeChanged) sessionEvent() {}

// ConnectionRequested reports a well-formed "connect" command. The
// application must later call AcceptRequest or RejectRequest with RequestID.
type ConnectionRequested struct {
	RequestID       uint32
	ApplicationName string
}

func (ConnectionRequested) sessionEvent() {}

// AudioReceived reports one opaque audio frame.
type AudioReceived struct {
	StreamID uint32
	Data     []byte
}

func (AudioReceived) sessionEvent() {}

// VideoReceived reports one opaque video frame.
type VideoReceived struct {
	StreamID uint32
	Data     []byte
}

func (VideoReceived) sessionEvent() {}

// MetadataChanged reports an AMF0 data message (type 18), commonly an
// "onMetaData" payload describing the stream's audio/video parameters.
// Metadata is non-nil only when the values carried a recognizable
// onMetaData object; Values always holds the raw sequence.
type MetadataChanged struct {
	Values   []amf0.Value
	Metadata *StreamMetadata
}

func (MetadataChanged) sessionEvent() {}

// UnhandleableMessage reports a message whose type id the codec does not
// recognize (message.Unknown). It is not an error: the application may still
// act on it.
type UnhandleableMessage struct {
	TypeID uint8
}

func (UnhandleableMessage) sessionEvent() {}

// UnhandleableAmf0Command reports an AMF0 command whose name this handler
// does not implement (createStream, publish, play, and anything else beyond
// connect; see the scaffolding note in the session handler's doc comment).
type UnhandleableAmf0Command struct {
	CommandName string
}

func (UnhandleableAmf0Command) sessionEvent() {}
