// Command rtmpdump decodes a raw RTMP chunk-stream byte file (or stdin) into
// its sequence of typed messages, exercising the chunk deserializer and
// message codec end to end without implicating handshake or transport: it
// is a demo harness for the core codec, not an RTMP server.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/alxayo/rtmpcodec/internal/logger"
	"github.com/alxayo/rtmpcodec/internal/rtmp/chunk"
	"github.com/alxayo/rtmpcodec/internal/rtmp/message"
)

// readChunkSize is how much raw input rtmpdump reads per Feed call. A small
// value exercises fragmentation handling the same way a live socket read
// would; it is independent of the RTMP chunk size the peer declares.
const readChunkSize = 4096

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "rtmpdump: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.WithComponent(logger.Logger(), "rtmpdump")

	in, err := openInput(cfg.inputPath)
	if err != nil {
		log.Error("failed to open input", "error", err)
		os.Exit(1)
	}
	defer in.Close()

	deserializer := chunk.NewDeserializer()
	deserializer.SetPeerMaxChunkSize(uint32(cfg.chunkSize))

	count, err := dump(in, deserializer, os.Stdout, log)
	if err != nil {
		log.Error("decode failed", "error", err, "messages_so_far", count)
		os.Exit(1)
	}
	log.Info("done", "messages", count)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// dump reads in from rd in readChunkSize-sized fragments, feeding each to
// deserializer and printing every decoded typed message to w.
func dump(rd io.Reader, deserializer *chunk.Deserializer, w io.Writer, log interface {
	Debug(string, ...any)
}) (int, error) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	buf := make([]byte, readChunkSize)
	count := 0
	for {
		n, readErr := rd.Read(buf)
		if n > 0 {
			payloads, err := deserializer.Feed(buf[:n])
			if err != nil {
				return count, err
			}
			for _, p := range payloads {
				typed, err := message.Decode(p)
				if err != nil {
					return count, err
				}
				// In-band chunk-size changes affect how the rest of the
				// capture parses; honor them the way a live session would.
				if scs, ok := typed.(message.SetChunkSize); ok {
					deserializer.SetPeerMaxChunkSize(scs.Size)
					log.Debug("peer chunk size changed", "size", scs.Size)
				}
				count++
				fmt.Fprintln(bw, describe(typed))
			}
		}
		if readErr == io.EOF {
			return count, nil
		}
		if readErr != nil {
			return count, readErr
		}
	}
}

// describe renders a typed message as one human-readable line. It exists
// for this demo binary only; the codec itself never formats messages.
func describe(t message.Typed) string {
	switch m := t.(type) {
	case message.SetChunkSize:
		return fmt.Sprintf("SetChunkSize size=%d", m.Size)
	case message.Abort:
		return fmt.Sprintf("Abort stream_id=%d", m.StreamID)
	case message.Acknowledgement:
		return fmt.Sprintf("Acknowledgement sequence_number=%d", m.SequenceNumber)
	case message.UserControl:
		return fmt.Sprintf("UserControl event=%#v", m.Event)
	case message.WindowAcknowledgement:
		return fmt.Sprintf("WindowAcknowledgement size=%d", m.Size)
	case message.SetPeerBandwidth:
		return fmt.Sprintf("SetPeerBandwidth size=%d limit_type=%d", m.Size, m.LimitType)
	case message.AudioData:
		codec, _ := message.DetectAudioCodec(m.Data)
		return fmt.Sprintf("AudioData bytes=%d codec=%s", len(m.Data), codec)
	case message.VideoData:
		codec, _ := message.DetectVideoCodec(m.Data)
		return fmt.Sprintf("VideoData bytes=%d codec=%s", len(m.Data), codec)
	case message.Amf0Data:
		return fmt.Sprintf("Amf0Data values=%d", len(m.Values))
	case message.Amf0Command:
		return fmt.Sprintf("Amf0Command name=%s tx=%g args=%d", m.CommandName, m.TransactionID, len(m.AdditionalArguments))
	case message.Unknown:
		return fmt.Sprintf("Unknown type_id=%d bytes=%d", m.MessageTypeID, len(m.Data))
	default:
		return fmt.Sprintf("%T", t)
	}
}
