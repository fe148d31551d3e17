package amf0

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	cerrors "github.com/alxayo/rtmpcodec/internal/errors"
)

// Decode parses data as a sequence of top-level AMF0 values, stopping at
// end-of-input. It recurses into objects until it sees the empty-name +
// object-end sentinel.
func Decode(data []byte) ([]Value, error) {
	d := &decoder{buf: data}
	var values []Value
	for d.pos < len(d.buf) {
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, cerrors.NewCodecError("amf0.decode", cerrors.KindUnexpectedEof, nil, io.ErrUnexpectedEOF)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readN(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, cerrors.NewCodecError("amf0.decode", cerrors.KindUnexpectedEof, nil, io.ErrUnexpectedEOF)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readUint16() (uint16, error) {
	b, err := d.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) readFloat64() (float64, error) {
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// readPropertyName reads a u16-length-prefixed UTF-8 string without a
// preceding marker byte, as used for object property names.
func (d *decoder) readPropertyName() (string, error) {
	n, err := d.readUint16()
	if err != nil {
		return "", err
	}
	b, err := d.readN(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", cerrors.NewCodecError("amf0.decode", cerrors.KindInvalidUtf8, nil, nil)
	}
	return string(b), nil
}

func (d *decoder) decodeValue() (Value, error) {
	marker, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch marker {
	case markerNumber:
		f, err := d.readFloat64()
		if err != nil {
			return nil, err
		}
		return Number(f), nil
	case markerBoolean:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return Boolean(b != 0), nil
	case markerString:
		s, err := d.readPropertyName()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case markerObject:
		return d.decodeObject()
	case markerNull:
		return Null{}, nil
	default:
		return nil, cerrors.NewCodecError("amf0.decode", cerrors.KindUnknownMarker, marker, nil)
	}
}

// decodeObject reads zero or more (name, value) pairs until it sees the
// empty-name + 0x09 end sentinel.
func (d *decoder) decodeObject() (Value, error) {
	obj := NewObject()
	for {
		name, err := d.readPropertyName()
		if err != nil {
			return nil, err
		}
		if name == "" {
			end, err := d.readByte()
			if err != nil {
				return nil, err
			}
			if end != markerObjectEnd {
				return nil, cerrors.NewCodecError("amf0.decode", cerrors.KindUnexpectedEmptyObjectPropertyName, nil, nil)
			}
			return obj, nil
		}
		val, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		obj.Set(name, val)
	}
}
