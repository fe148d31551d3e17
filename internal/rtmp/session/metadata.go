package session

import "github.com/alxayo/rtmpcodec/internal/rtmp/amf0"

// StreamMetadata holds the stream parameters an encoder announces in its
// onMetaData data message. Every field is optional: a nil pointer means the
// encoder did not declare that property.
type StreamMetadata struct {
	VideoWidth       *uint32
	VideoHeight      *uint32
	VideoCodec       *string
	VideoFrameRate   *float64
	VideoBitrateKbps *uint32
	AudioCodec       *string
	AudioBitrateKbps *uint32
	AudioSampleRate  *uint32
	AudioChannels    *uint32
	AudioIsStereo    *bool
	Encoder          *string
}

// ExtractMetadata scans the values of an AMF0 data message for an
// onMetaData payload and decodes its well-known properties. Encoders differ
// in shape: some send ["onMetaData", {...}], others wrap it as
// ["@setDataFrame", "onMetaData", {...}]. Returns nil when no onMetaData
// object is present.
func ExtractMetadata(values []amf0.Value) *StreamMetadata {
	for i, v := range values {
		name, ok := v.(amf0.String)
		if !ok || name != "onMetaData" {
			continue
		}
		if i+1 >= len(values) {
			return nil
		}
		obj, ok := values[i+1].(*amf0.Object)
		if !ok {
			return nil
		}
		return metadataFromObject(obj)
	}
	return nil
}

func metadataFromObject(obj *amf0.Object) *StreamMetadata {
	md := &StreamMetadata{}
	md.VideoWidth = uint32Prop(obj, "width")
	md.VideoHeight = uint32Prop(obj, "height")
	md.VideoFrameRate = numberProp(obj, "framerate")
	md.VideoBitrateKbps = uint32Prop(obj, "videodatarate")
	md.AudioBitrateKbps = uint32Prop(obj, "audiodatarate")
	md.AudioSampleRate = uint32Prop(obj, "audiosamplerate")
	md.AudioChannels = uint32Prop(obj, "audiochannels")
	md.Encoder = stringProp(obj, "encoder")

	if v, ok := obj.Get("stereo"); ok {
		if b, ok := v.(amf0.Boolean); ok {
			stereo := bool(b)
			md.AudioIsStereo = &stereo
		}
	}

	// Codec ids arrive as either a numeric FLV id or a string fourcc,
	// depending on the encoder.
	md.VideoCodec = codecProp(obj, "videocodecid")
	md.AudioCodec = codecProp(obj, "audiocodecid")
	return md
}

func numberProp(obj *amf0.Object, key string) *float64 {
	v, ok := obj.Get(key)
	if !ok {
		return nil
	}
	n, ok := v.(amf0.Number)
	if !ok {
		return nil
	}
	f := float64(n)
	return &f
}

func uint32Prop(obj *amf0.Object, key string) *uint32 {
	f := numberProp(obj, key)
	if f == nil || *f < 0 {
		return nil
	}
	u := uint32(*f)
	return &u
}

func stringProp(obj *amf0.Object, key string) *string {
	v, ok := obj.Get(key)
	if !ok {
		return nil
	}
	s, ok := v.(amf0.String)
	if !ok {
		return nil
	}
	str := string(s)
	return &str
}

// flvVideoCodecNames maps FLV numeric video codec ids to names.
var flvVideoCodecNames = map[uint32]string{
	7:  "H264",
	12: "H265",
}

// flvAudioCodecNames maps FLV numeric sound-format ids to names.
var flvAudioCodecNames = map[uint32]string{
	2:  "MP3",
	10: "AAC",
	11: "Speex",
}

func codecProp(obj *amf0.Object, key string) *string {
	v, ok := obj.Get(key)
	if !ok {
		return nil
	}
	switch c := v.(type) {
	case amf0.String:
		s := string(c)
		return &s
	case amf0.Number:
		var names map[uint32]string
		if key == "videocodecid" {
			names = flvVideoCodecNames
		} else {
			names = flvAudioCodecNames
		}
		if name, ok := names[uint32(c)]; ok {
			return &name
		}
		return nil
	default:
		return nil
	}
}
