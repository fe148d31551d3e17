// Package session implements the layer that consumes decoded typed messages
// and drives connection choreography: it produces response messages to send
// plus application-visible events, and hands the application outstanding
// request tokens it must later accept or reject. Publish/play stream
// choreography (RTMP 1.0 spec section 7.3) is deliberately left to the
// application layer; commands this handler has no choreography for are
// answered with an _error response and surfaced as events.
package session

import (
	"log/slog"

	cerrors "github.com/alxayo/rtmpcodec/internal/errors"
	"github.com/alxayo/rtmpcodec/internal/rtmp/amf0"
	"github.com/alxayo/rtmpcodec/internal/rtmp/chunk"
	"github.com/alxayo/rtmpcodec/internal/rtmp/message"
	"github.com/alxayo/rtmpcodec/internal/rtmp/timestamp"
)

// Defaults mirror common RTMP media server behavior; callers needing
// different values pass WithWindowAckSize/WithPeerBandwidth/WithFMSVersion.
const (
	DefaultWindowAckSize uint32 = 5_000_000
	DefaultPeerBandwidth uint32 = 5_000_000
	DefaultFMSVersion           = "FMS/3,5,7,7009"
)

// Details pairs a typed message with the transport framing context (wire
// timestamp and RTMP message stream id) it arrived or must be sent with.
type Details struct {
	Timestamp timestamp.Timestamp
	StreamID  uint32
	Message   message.Typed
}

// state tracks where the connection choreography currently stands.
type state int

const (
	stateStarted state = iota
	stateConnectionRequested
	stateConnectionAccepted
)

// requestKind discriminates the request shapes this handler mints tokens
// for. Only connect exists today; publish/play choreography would extend
// this, not replace it.
type requestKind int

const (
	requestKindConnect requestKind = iota
)

type pendingRequest struct {
	kind            requestKind
	transactionID   float64
	applicationName string
}

// Handler consumes decoded typed messages for one session: connect
// choreography, chunk-size negotiation in both directions, ping response,
// acknowledgement bookkeeping, and a wrapping request-id allocator for
// outstanding requests the application must accept or reject. It holds the
// Deserializer/Serializer pair for the session because chunk-size
// negotiation and abort handling must reach both.
type Handler struct {
	log          *slog.Logger
	deserializer *chunk.Deserializer
	serializer   *chunk.Serializer

	windowAckSize uint32
	peerBandwidth uint32
	fmsVersion    string

	state           state
	applicationName string

	// Peer-declared values, recorded as they arrive.
	peerWindowAckSize  uint32
	peerBandwidthSize  uint32
	peerBandwidthLimit message.LimitType
	lastPeerAck        uint32

	pending       map[uint32]*pendingRequest
	nextRequestID uint32
}

// Option configures a Handler at construction time.
type Option func(*Handler)

// WithLogger overrides the handler's logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithWindowAckSize overrides the WindowAcknowledgement size sent on connect.
func WithWindowAckSize(n uint32) Option {
	return func(h *Handler) { h.windowAckSize = n }
}

// WithPeerBandwidth overrides the SetPeerBandwidth size sent on connect.
func WithPeerBandwidth(n uint32) Option {
	return func(h *Handler) { h.peerBandwidth = n }
}

// WithFMSVersion overrides the fmsVer string reported in a connect success
// response.
func WithFMSVersion(v string) Option {
	return func(h *Handler) { h.fmsVersion = v }
}

// NewHandler returns a Handler bound to the given chunk Deserializer/
// Serializer pair. Both must belong to the same session.
func NewHandler(deserializer *chunk.Deserializer, serializer *chunk.Serializer, opts ...Option) *Handler {
	h := &Handler{
		log:           slog.Default(),
		deserializer:  deserializer,
		serializer:    serializer,
		windowAckSize: DefaultWindowAckSize,
		peerBandwidth: DefaultPeerBandwidth,
		fmsVersion:    DefaultFMSVersion,
		pending:       make(map[uint32]*pendingRequest),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ApplicationName returns the application name of an accepted connection,
// or "" before a connect request has been accepted.
func (h *Handler) ApplicationName() string {
	return h.applicationName
}

// LastPeerAck returns the sequence number from the most recent
// Acknowledgement the peer sent.
func (h *Handler) LastPeerAck() uint32 {
	return h.lastPeerAck
}

// PeerWindowAckSize returns the acknowledgement window the peer declared,
// or 0 if it has not sent one.
func (h *Handler) PeerWindowAckSize() uint32 {
	return h.peerWindowAckSize
}

// PeerDeclaredBandwidth returns the bandwidth cap and limit type the peer
// declared via SetPeerBandwidth, or (0, LimitHard) if it has not sent one.
func (h *Handler) PeerDeclaredBandwidth() (uint32, message.LimitType) {
	return h.peerBandwidthSize, h.peerBandwidthLimit
}

// Outcome bundles what handling one incoming message produced: messages the
// caller must encode and send, and events the application may act on.
type Outcome struct {
	ToSend []Details
	Events []Event
}

// SetChunkSize updates this side's outbound chunk size on the bound
// Serializer and returns the SetChunkSize message to send plus the
// SelfChunkSizeChanged event the application should observe.
func (h *Handler) SetChunkSize(n uint32) (Details, Event) {
	h.serializer.SetSelfMaxChunkSize(n)
	return control(message.SetChunkSize{Size: n}), SelfChunkSizeChanged{Size: n}
}

// Handle dispatches one decoded typed message, updating session state and
// returning any response messages to send plus application-visible events.
func (h *Handler) Handle(d Details) (Outcome, error) {
	switch m := d.Message.(type) {
	case message.SetChunkSize:
		h.deserializer.SetPeerMaxChunkSize(m.Size)
		return Outcome{Events: []Event{PeerChunkSizeChanged{Size: m.Size}}}, nil

	case message.Abort:
		h.log.Debug("abort received", "csid", m.StreamID)
		h.deserializer.Abort(m.StreamID)
		return Outcome{}, nil

	case message.Acknowledgement:
		h.lastPeerAck = m.SequenceNumber
		h.log.Debug("acknowledgement received", "seq", m.SequenceNumber)
		return Outcome{}, nil

	case message.WindowAcknowledgement:
		h.peerWindowAckSize = m.Size
		return Outcome{}, nil

	case message.SetPeerBandwidth:
		h.peerBandwidthSize = m.Size
		h.peerBandwidthLimit = m.LimitType
		return Outcome{}, nil

	case message.UserControl:
		return h.handleUserControl(m)

	case message.AudioData:
		return Outcome{Events: []Event{AudioReceived{StreamID: d.StreamID, Data: m.Data}}}, nil

	case message.VideoData:
		return Outcome{Events: []Event{VideoReceived{StreamID: d.StreamID, Data: m.Data}}}, nil

	case message.Amf0Data:
		return Outcome{Events: []Event{MetadataChanged{
			Values:   m.Values,
			Metadata: ExtractMetadata(m.Values),
		}}}, nil

	case message.Amf0Command:
		return h.handleCommand(d.StreamID, m)

	case message.Unknown:
		h.log.Debug("unhandleable message type", "type_id", m.MessageTypeID)
		return Outcome{Events: []Event{UnhandleableMessage{TypeID: m.MessageTypeID}}}, nil

	default:
		return Outcome{}, nil
	}
}

// handleUserControl answers PingRequest with PingResponse; the remaining
// events carry no choreography at this layer and are only logged.
func (h *Handler) handleUserControl(m message.UserControl) (Outcome, error) {
	switch e := m.Event.(type) {
	case message.PingRequest:
		h.log.Debug("ping request received", "ts", e.Timestamp)
		resp := message.UserControl{Event: message.PingResponse{Timestamp: e.Timestamp}}
		return Outcome{ToSend: []Details{control(resp)}}, nil
	case message.PingResponse:
		h.log.Debug("ping response received", "ts", e.Timestamp)
		return Outcome{}, nil
	default:
		h.log.Debug("user control event without choreography", "event", m.Event)
		return Outcome{}, nil
	}
}

// handleCommand routes "connect"; any other command name gets an _error
// response plus an UnhandleableAmf0Command event, so the application can
// still decide to act on it.
func (h *Handler) handleCommand(streamID uint32, cmd message.Amf0Command) (Outcome, error) {
	if cmd.CommandName != "connect" {
		h.log.Debug("unhandleable amf0 command", "name", cmd.CommandName)
		return Outcome{
			ToSend: []Details{errorResponse(streamID, cmd.TransactionID, amf0.Null{})},
			Events: []Event{UnhandleableAmf0Command{CommandName: cmd.CommandName}},
		}, nil
	}
	return h.handleConnect(streamID, cmd)
}

// handleConnect extracts app from the command object's property map: a
// string value mints a pending request and surfaces ConnectionRequested;
// anything else is answered with an AMF0 error response.
func (h *Handler) handleConnect(streamID uint32, cmd message.Amf0Command) (Outcome, error) {
	obj, ok := cmd.CommandObject.(*amf0.Object)
	if !ok {
		return Outcome{ToSend: []Details{errorResponse(streamID, cmd.TransactionID, amf0.Null{})}}, nil
	}
	appVal, ok := obj.Get("app")
	if !ok {
		return Outcome{ToSend: []Details{errorResponse(streamID, cmd.TransactionID, amf0.Null{})}}, nil
	}
	app, ok := appVal.(amf0.String)
	if !ok {
		return Outcome{ToSend: []Details{errorResponse(streamID, cmd.TransactionID, amf0.Null{})}}, nil
	}

	requestID, err := h.allocateRequestID()
	if err != nil {
		return Outcome{}, err
	}
	h.pending[requestID] = &pendingRequest{
		kind:            requestKindConnect,
		transactionID:   cmd.TransactionID,
		applicationName: string(app),
	}
	h.state = stateConnectionRequested

	return Outcome{
		ToSend: []Details{
			control(message.SetPeerBandwidth{Size: h.peerBandwidth, LimitType: message.LimitHard}),
			control(message.WindowAcknowledgement{Size: h.windowAckSize}),
		},
		Events: []Event{ConnectionRequested{RequestID: requestID, ApplicationName: string(app)}},
	}, nil
}

// AcceptRequest completes a pending request successfully, returning the
// response message the caller must encode and send to the peer.
func (h *Handler) AcceptRequest(requestID uint32) (Details, error) {
	req, ok := h.pending[requestID]
	if !ok {
		return Details{}, cerrors.NewCodecError("session.accept_request", cerrors.KindUnknownRequestId, requestID, nil)
	}
	delete(h.pending, requestID)

	switch req.kind {
	case requestKindConnect:
		h.state = stateConnectionAccepted
		h.applicationName = req.applicationName
		return h.connectSuccess(req.transactionID), nil
	default:
		return Details{}, cerrors.NewCodecError("session.accept_request", cerrors.KindUnknownRequestId, requestID, nil)
	}
}

// RejectRequest declines a pending request, returning the failure response
// message the caller must encode and send to the peer.
func (h *Handler) RejectRequest(requestID uint32, description string) (Details, error) {
	req, ok := h.pending[requestID]
	if !ok {
		return Details{}, cerrors.NewCodecError("session.reject_request", cerrors.KindUnknownRequestId, requestID, nil)
	}
	delete(h.pending, requestID)

	switch req.kind {
	case requestKindConnect:
		h.state = stateStarted
		resp := message.Amf0Command{
			CommandName:   "_error",
			TransactionID: req.transactionID,
			CommandObject: amf0.Null{},
			AdditionalArguments: []amf0.Value{
				statusObject("error", "NetConnection.Connect.Rejected", description),
			},
		}
		return control(resp), nil
	default:
		return Details{}, cerrors.NewCodecError("session.reject_request", cerrors.KindUnknownRequestId, requestID, nil)
	}
}

// connectSuccess builds the connect _result response: a command object
// carrying {fmsVer, capabilities: 31.0} and a first additional argument
// carrying the NetConnection.Connect.Success status object with
// objectEncoding: 0.0 (AMF0).
func (h *Handler) connectSuccess(transactionID float64) Details {
	props := amf0.NewObject().
		Set("fmsVer", amf0.String(h.fmsVersion)).
		Set("capabilities", amf0.Number(31))

	info := statusObject("status", "NetConnection.Connect.Success", "Connection succeeded")
	info.Set("objectEncoding", amf0.Number(0))

	return control(message.Amf0Command{
		CommandName:         "_result",
		TransactionID:       transactionID,
		CommandObject:       props,
		AdditionalArguments: []amf0.Value{info},
	})
}

// control wraps a protocol-level response in Details with timestamp 0 on
// message stream 0, where every control and NetConnection command lives.
func control(msg message.Typed) Details {
	return Details{Timestamp: timestamp.New(0), StreamID: 0, Message: msg}
}

func errorResponse(streamID uint32, transactionID float64, data amf0.Value) Details {
	return Details{
		Timestamp: timestamp.New(0),
		StreamID:  streamID,
		Message: message.Amf0Command{
			CommandName:   "_error",
			TransactionID: transactionID,
			CommandObject: data,
		},
	}
}

func statusObject(level, code, description string) *amf0.Object {
	return amf0.NewObject().
		Set("level", amf0.String(level)).
		Set("code", amf0.String(code)).
		Set("description", amf0.String(description))
}
