// Package audiotest builds WAV fixtures for tests.
package audiotest

import (
	"encoding/binary"
	"math"
)

// WAV assembles a canonical 44-byte-header RIFF/WAVE file around data.
func WAV(channels, bitsPerSample, sampleRate int, data []byte) []byte {
	bytesPerSample := (bitsPerSample + 7) / 8
	fmtChunkSize := 16
	riffSize := 4 + (8 + fmtChunkSize) + (8 + len(data))

	out := make([]byte, 12+8+fmtChunkSize+8+len(data))
	off := 0

	copy(out[off:], "RIFF")
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(riffSize))
	off += 4
	copy(out[off:], "WAVE")
	off += 4

	copy(out[off:], "fmt ")
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(fmtChunkSize))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], 1)
	off += 2
	binary.LittleEndian.PutUint16(out[off:], uint16(channels))
	off += 2
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate*channels*bytesPerSample))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], uint16(channels*bytesPerSample))
	off += 2
	binary.LittleEndian.PutUint16(out[off:], uint16(bitsPerSample))
	off += 2

	copy(out[off:], "data")
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(len(data)))
	off += 4
	copy(out[off:], data)

	return out
}

// MonoPCM16 encodes samples as a mono 16-bit WAV.
func MonoPCM16(samples []int16, sampleRate int) []byte {
	return WAV(1, 16, sampleRate, PCM16(samples))
}

// Silence returns a mono 16-bit WAV of frames zero samples.
func Silence(frames, sampleRate int) []byte {
	return WAV(1, 16, sampleRate, make([]byte, frames*2))
}

// PCM16 encodes samples as little-endian bytes.
func PCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Tone returns n samples of a sine wave at amplitude (0..1 of full scale).
func Tone(n, sampleRate int, freq, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return samples
}
