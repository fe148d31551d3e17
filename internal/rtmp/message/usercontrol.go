package message

// UserControl event codes, u16 big-endian on the wire.
const (
	EventStreamBegin      uint16 = 0
	EventStreamEOF        uint16 = 1
	EventStreamDry        uint16 = 2
	EventSetBufferLength  uint16 = 3
	EventStreamIsRecorded uint16 = 4
	EventPingRequest      uint16 = 6
	EventPingResponse     uint16 = 7
)

// UserControlEvent is one of the seven known user-control sub-events.
// Concrete types implement an unexported marker method.
type UserControlEvent interface {
	eventCode() uint16
}

// StreamBegin (0) signals a stream has become usable.
type StreamBegin struct {
	StreamID uint32
}

func (StreamBegin) eventCode() uint16 { return EventStreamBegin }

// StreamEOF (1) signals playback of a stream has completed.
type StreamEOF struct {
	StreamID uint32
}

func (StreamEOF) eventCode() uint16 { return EventStreamEOF }

// StreamDry (2) signals no data is available on a stream right now.
type StreamDry struct {
	StreamID uint32
}

func (StreamDry) eventCode() uint16 { return EventStreamDry }

// SetBufferLength (3) tells the peer how large a client-side buffer to use,
// in milliseconds, for a given stream.
type SetBufferLength struct {
	StreamID     uint32
	BufferLength uint32
}

func (SetBufferLength) eventCode() uint16 { return EventSetBufferLength }

// StreamIsRecorded (4) signals a stream is a recorded (not live) stream.
type StreamIsRecorded struct {
	StreamID uint32
}

func (StreamIsRecorded) eventCode() uint16 { return EventStreamIsRecorded }

// PingRequest (6) asks the peer to respond with a PingResponse carrying the
// same timestamp.
type PingRequest struct {
	Timestamp uint32
}

func (PingRequest) eventCode() uint16 { return EventPingRequest }

// PingResponse (7) answers a PingRequest.
type PingResponse struct {
	Timestamp uint32
}

func (PingResponse) eventCode() uint16 { return EventPingResponse }
