package message

import "fmt"

// Audio/video codec identifiers recognized by the Detect* helpers below.
const (
	AudioCodecMP3   = "MP3"
	AudioCodecAAC   = "AAC"
	AudioCodecSpeex = "Speex"

	VideoCodecAVC  = "H264"
	VideoCodecHEVC = "H265"
)

// DetectAudioCodec inspects the opaque bytes of an AudioData message (the
// FLV audio tag body) and reports the codec named by its sound-format
// nibble. The codec layer treats AudioData.Data as opaque; this is a
// convenience for a session-handler application deciding how to log, route,
// or transcode a received frame, not something the codec itself requires to
// function.
func DetectAudioCodec(data []byte) (codec string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("message: empty audio payload")
	}
	switch (data[0] >> 4) & 0x0F {
	case 2:
		return AudioCodecMP3, nil
	case 10:
		return AudioCodecAAC, nil
	case 11:
		return AudioCodecSpeex, nil
	default:
		return "", fmt.Errorf("message: unsupported audio sound format id=%d", (data[0]>>4)&0x0F)
	}
}

// DetectVideoCodec inspects the opaque bytes of a VideoData message (the
// FLV video tag body) and reports the codec named by its codec-id nibble.
func DetectVideoCodec(data []byte) (codec string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("message: empty video payload")
	}
	switch data[0] & 0x0F {
	case 7:
		return VideoCodecAVC, nil
	case 12:
		return VideoCodecHEVC, nil
	default:
		return "", fmt.Errorf("message: unsupported video codec id=%d", data[0]&0x0F)
	}
}
