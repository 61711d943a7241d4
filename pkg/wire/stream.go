package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/log"
)

// Stream framing constants.
const (
	// LengthPrefixSize is the size of the frame length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxFrameSize is the default maximum frame payload (64 MiB).
	DefaultMaxFrameSize = 64 << 20

	// MaxLogFrameDataSize is the maximum frame data copied into log events.
	MaxLogFrameDataSize = 4096
)

// Framing errors. Both also match errs.ErrCorruptData on the read side.
var (
	ErrFrameTooLarge  = errors.New("frame too large")
	ErrFrameTruncated = errors.New("frame truncated")
)

// Format selects the encoding of stream frames.
type Format uint8

const (
	FormatBinary Format = iota
	FormatCBOR
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatCBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// ParseFormat returns the format for a name ("binary", "bin", "cbor").
func ParseFormat(s string) (Format, error) {
	switch s {
	case "binary", "bin":
		return FormatBinary, nil
	case "cbor":
		return FormatCBOR, nil
	}
	return 0, fmt.Errorf("unknown wire format %q", s)
}

func (f Format) marshal(h *hash.Hash) ([]byte, error) {
	if f == FormatCBOR {
		return MarshalCBOR(h)
	}
	return Marshal(h)
}

func (f Format) unmarshal(data []byte) (*hash.Hash, error) {
	if f == FormatCBOR {
		return UnmarshalCBOR(data)
	}
	return Unmarshal(data)
}

type streamLog struct {
	logger log.Logger
	runID  string
	source string
}

func (s *streamLog) frame(format Format, dir log.Direction, data []byte) {
	if s.logger == nil {
		return
	}
	frameData, truncated := data, false
	if len(data) > MaxLogFrameDataSize {
		frameData, truncated = data[:MaxLogFrameDataSize], true
	}
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     s.runID,
		Direction: dir,
		Layer:     log.LayerCodec,
		Category:  log.CategoryFrame,
		Source:    s.source,
		Frame: &log.FrameEvent{
			Size:      LengthPrefixSize + len(data),
			Data:      frameData,
			Truncated: truncated,
			Format:    format.String(),
		},
	})
}

func (s *streamLog) failure(err error, context string) {
	if s.logger == nil {
		return
	}
	data := &log.ErrorEventData{Layer: log.LayerCodec, Message: err.Error(), Context: context}
	if k, ok := errs.KindOf(err); ok {
		data.Kind = k.String()
	}
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     s.runID,
		Layer:     log.LayerCodec,
		Category:  log.CategoryError,
		Source:    s.source,
		Error:     data,
	})
}

// Encoder writes length-prefixed frames, one hash per frame.
type Encoder struct {
	w            io.Writer
	format       Format
	maxFrameSize uint32
	mu           sync.Mutex
	log          streamLog
}

// NewEncoder creates an encoder writing binary frames to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, format: FormatBinary, maxFrameSize: DefaultMaxFrameSize}
}

// SetFormat switches the frame encoding.
func (e *Encoder) SetFormat(f Format) { e.format = f }

// SetMaxFrameSize limits the payload size of a frame.
func (e *Encoder) SetMaxFrameSize(n uint32) { e.maxFrameSize = n }

// SetLogger records every written frame. source names the stream in events.
// Pass nil to disable logging.
func (e *Encoder) SetLogger(logger log.Logger, source string) {
	e.log = streamLog{logger: logger, runID: log.NewRunID(), source: source}
}

// Encode writes h as one frame. It is safe for concurrent use.
func (e *Encoder) Encode(h *hash.Hash) error {
	payload, err := e.format.marshal(h)
	if err != nil {
		e.log.failure(err, "encode")
		return err
	}
	if uint64(len(payload)) > uint64(e.maxFrameSize) {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), e.maxFrameSize)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var prefix [LengthPrefixSize]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := e.w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := e.w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	e.log.frame(e.format, log.DirectionOut, payload)
	return nil
}

// Decoder reads frames written by an Encoder.
type Decoder struct {
	r            io.Reader
	format       Format
	maxFrameSize uint32
	prefix       [LengthPrefixSize]byte
	offset       int
	log          streamLog
}

// NewDecoder creates a decoder reading binary frames from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, format: FormatBinary, maxFrameSize: DefaultMaxFrameSize}
}

// SetFormat switches the frame encoding.
func (d *Decoder) SetFormat(f Format) { d.format = f }

// SetMaxFrameSize limits the payload size of a frame.
func (d *Decoder) SetMaxFrameSize(n uint32) { d.maxFrameSize = n }

// SetLogger records every read frame. Pass nil to disable logging.
func (d *Decoder) SetLogger(logger log.Logger, source string) {
	d.log = streamLog{logger: logger, runID: log.NewRunID(), source: source}
}

// Decode reads the next hash. It returns io.EOF at a clean end of stream.
// Offsets in CorruptData errors are relative to the start of the stream.
func (d *Decoder) Decode() (*hash.Hash, error) {
	start := d.offset
	if _, err := io.ReadFull(d.r, d.prefix[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errs.Wrap(errs.CorruptData, "", ErrFrameTruncated, "length prefix at offset %d", start)
		}
		return nil, fmt.Errorf("read length prefix: %w", err)
	}
	length := binary.LittleEndian.Uint32(d.prefix[:])
	if length > d.maxFrameSize {
		err := errs.Wrap(errs.CorruptData, "", ErrFrameTooLarge, "frame at offset %d: %d > %d", start, length, d.maxFrameSize)
		d.log.failure(err, "decode")
		return nil, err
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, errs.Wrap(errs.CorruptData, "", ErrFrameTruncated, "frame at offset %d", start)
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}
	d.offset += LengthPrefixSize + int(length)
	d.log.frame(d.format, log.DirectionIn, payload)

	h, err := d.format.unmarshal(payload)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) && e.Offset >= 0 {
			shifted := *e
			shifted.Offset += start + LengthPrefixSize
			err = &shifted
		}
		d.log.failure(err, "decode")
		return nil, err
	}
	return h, nil
}
