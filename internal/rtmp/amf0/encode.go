package amf0

import (
	"encoding/binary"
	"io"
	"math"

	cerrors "github.com/alxayo/rtmpcodec/internal/errors"
)

// Encode serializes values in order and returns the resulting bytes.
func Encode(values []Value) ([]byte, error) {
	var buf []byte
	for _, v := range values {
		var err error
		buf, err = appendValue(buf, v)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// EncodeTo serializes values in order directly to w. Writer failures are
// reported as the underlying error, wrapped.
func EncodeTo(w io.Writer, values []Value) error {
	buf, err := Encode(values)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return cerrors.NewCodecError("amf0.encode", cerrors.KindIo, nil, err)
	}
	return nil
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case Number:
		buf = append(buf, markerNumber)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(float64(val)))
		return append(buf, b[:]...), nil
	case Boolean:
		buf = append(buf, markerBoolean)
		if val {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case String:
		return appendString(buf, markerString, string(val))
	case *Object:
		return appendObject(buf, val)
	case Null:
		return append(buf, markerNull), nil
	default:
		return nil, cerrors.NewCodecError("amf0.encode", cerrors.KindUnknownMarker, nil, nil)
	}
}

// appendString writes an optional marker byte followed by a u16-length-
// prefixed UTF-8 string. Pass marker == 0 to omit it (used for property
// names, which are positional and never carry a marker byte).
func appendString(buf []byte, marker byte, s string) ([]byte, error) {
	if len(s) > maxStringLen {
		return nil, cerrors.NewCodecError("amf0.encode", cerrors.KindStringTooLong, len(s), nil)
	}
	if marker != 0 {
		buf = append(buf, marker)
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...), nil
}

func appendObject(buf []byte, obj *Object) ([]byte, error) {
	buf = append(buf, markerObject)
	var err error
	for _, key := range obj.Keys() {
		buf, err = appendString(buf, 0, key)
		if err != nil {
			return nil, err
		}
		val, _ := obj.Get(key)
		buf, err = appendValue(buf, val)
		if err != nil {
			return nil, err
		}
	}
	// Empty-name property + object-end marker sentinel.
	buf = append(buf, 0, 0, markerObjectEnd)
	return buf, nil
}
