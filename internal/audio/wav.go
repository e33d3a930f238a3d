package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	unknownDataSize = 0xFFFFFFFF
)

var errNotRIFFWave = errors.New("missing RIFF/WAVE magic")

// Format is the header metadata of a validated WAV stream.
type Format struct {
	Channels    int
	SampleWidth int // bytes per sample
	SampleRate  int // Hz
	Frames      int64
}

// FrameSize is the number of bytes in one frame across all channels.
func (f Format) FrameSize() int {
	return f.Channels * f.SampleWidth
}

// FormatConstraints is the accepted input format. Values are never mutated after
// construction; DefaultConstraints hands out a fresh copy on every call.
type FormatConstraints struct {
	Channels    int
	SampleWidth int
	SampleRates []int
}

func DefaultConstraints() FormatConstraints {
	return FormatConstraints{
		Channels:    1,
		SampleWidth: 2,
		SampleRates: []int{8000, 16000, 32000, 44100, 48000},
	}
}

// Check applies the channel, sample width and sample rate checks in that order.
// The first failed check wins.
func (c FormatConstraints) Check(f Format) error {
	if f.Channels != c.Channels {
		return &ValidationError{Kind: KindChannelMismatch}
	}
	if f.SampleWidth != c.SampleWidth {
		return &ValidationError{Kind: KindSampleWidthMismatch}
	}
	if !slices.Contains(c.SampleRates, f.SampleRate) {
		return &ValidationError{
			Kind:       KindUnsupportedSampleRate,
			SampleRate: f.SampleRate,
			Supported:  slices.Clone(c.SampleRates),
		}
	}
	return nil
}

// Stream is an open, validated WAV resource positioned at its PCM data.
// A Stream is owned by one caller and must be closed.
type Stream struct {
	Format Format

	pcm    io.Reader
	closer io.Closer

	closeOnce sync.Once
	closeErr  error
}

// Open validates the WAV file at path against DefaultConstraints.
func Open(path string) (*Stream, error) {
	return OpenWith(path, DefaultConstraints())
}

// OpenWith validates the WAV file at path against c. The file is closed again
// when any check fails.
func OpenWith(path string, c FormatConstraints) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}

	stream, err := decode(f, c)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	stream.closer = f
	return stream, nil
}

// Decode validates an in-memory WAV payload against DefaultConstraints.
func Decode(data []byte) (*Stream, error) {
	return decode(bytes.NewReader(data), DefaultConstraints())
}

func decode(rs io.ReadSeeker, c FormatConstraints) (*Stream, error) {
	if err := checkMagic(rs); err != nil {
		return nil, invalidContainer(err)
	}

	dec := wav.NewDecoder(rs)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, invalidContainer(fmt.Errorf("read wav header: %w", err))
	}
	if dec.NumChans == 0 || dec.BitDepth == 0 || dec.SampleRate == 0 {
		return nil, invalidContainer(errors.New("missing or empty fmt chunk"))
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, invalidContainer(fmt.Errorf("unsupported wav audio format %d", dec.WavAudioFormat))
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, invalidContainer(fmt.Errorf("locate data chunk: %w", err))
	}
	if dec.PCMChunk == nil || dec.PCMChunk.R == nil {
		return nil, invalidContainer(errors.New("missing data chunk"))
	}

	format := Format{
		Channels:    int(dec.NumChans),
		SampleWidth: (int(dec.BitDepth) + 7) / 8,
		SampleRate:  int(dec.SampleRate),
	}
	if err := c.Check(format); err != nil {
		return nil, err
	}
	size, err := pcmExtent(rs)
	if err != nil {
		return nil, invalidContainer(err)
	}
	format.Frames = size / int64(format.FrameSize())

	return &Stream{
		Format: format,
		pcm:    io.LimitReader(rs, size),
	}, nil
}

// pcmExtent returns how many PCM bytes follow the data chunk header rs is
// positioned after, leaving rs at the first PCM byte. Streaming writers and
// interrupted recorders leave a size of 0 or 0xFFFFFFFF, and truncated files
// declare more than they hold; in those cases the data runs to end of file.
func pcmExtent(rs io.ReadSeeker) (int64, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("locate pcm data: %w", err)
	}
	if start < 4 {
		return 0, errors.New("data chunk header out of range")
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("measure pcm data: %w", err)
	}

	sizeField := make([]byte, 4)
	if _, err := rs.Seek(start-4, io.SeekStart); err != nil {
		return 0, fmt.Errorf("read data chunk size: %w", err)
	}
	if _, err := io.ReadFull(rs, sizeField); err != nil {
		return 0, fmt.Errorf("read data chunk size: %w", err)
	}

	available := end - start
	size := int64(binary.LittleEndian.Uint32(sizeField))
	if size == 0 || size == unknownDataSize || size > available {
		size = available
	}
	return size, nil
}

func checkMagic(rs io.ReadSeeker) error {
	header := make([]byte, 12)
	if _, err := io.ReadFull(rs, header); err != nil {
		return fmt.Errorf("read riff header: %w", err)
	}
	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return errNotRIFFWave
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind riff header: %w", err)
	}
	return nil
}

// ReadFrames reads up to n frames of raw little-endian PCM. At the end of the
// data it returns no bytes and io.EOF.
func (s *Stream) ReadFrames(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}

	buf := make([]byte, n*s.Format.FrameSize())
	read, err := io.ReadFull(s.pcm, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:read], nil
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	default:
		return buf[:read], fmt.Errorf("read pcm frames: %w", err)
	}
}

// Close releases the underlying resource. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}
