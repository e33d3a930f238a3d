package audio

import (
	"encoding/binary"
	"math"
)

// Level summarizes the loudness of a block of 16-bit PCM.
type Level struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// Silent reports whether the block is at or below thresholdDBFS. Peaks may
// exceed the threshold by 6 dB before the block counts as voiced.
func (l Level) Silent(thresholdDBFS float64) bool {
	if l.Samples == 0 {
		return true
	}
	if math.IsInf(l.RMSdBFS, -1) && math.IsInf(l.PeakdBFS, -1) {
		return true
	}
	return l.RMSdBFS <= thresholdDBFS && l.PeakdBFS <= thresholdDBFS+6
}

// MeasurePCM16 computes RMS and peak levels of little-endian signed 16-bit
// samples. A trailing odd byte is ignored.
func MeasurePCM16(pcm []byte) Level {
	var (
		peak       float64
		sumSquares float64
		samples    int64
	)

	for i := 0; i+2 <= len(pcm); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / 32768.0
		if abs := math.Abs(v); abs > peak {
			peak = abs
		}
		sumSquares += v * v
		samples++
	}

	if samples == 0 {
		return Level{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}
	}

	return Level{
		RMSdBFS:  amplitudeToDBFS(math.Sqrt(sumSquares / float64(samples))),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  samples,
	}
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
