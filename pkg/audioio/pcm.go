package audioio

import (
	"encoding/binary"
	"math"
)

const fullScale = math.MaxInt16

// pcmSamples decodes little-endian PCM16. A trailing odd byte is dropped.
func pcmSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// pcmBytes encodes samples as little-endian PCM16.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

// downmix averages interleaved stereo frames.
func downmix(stereo []int16) []int16 {
	out := make([]int16, len(stereo)/2)
	for i := range out {
		out[i] = int16((int32(stereo[2*i]) + int32(stereo[2*i+1])) / 2)
	}
	return out
}

// resample converts mono samples between rates by linear interpolation,
// which is enough for speech headed to a transcription service.
func resample(in []int16, from, to int) []int16 {
	if from == to || from <= 0 || to <= 0 || len(in) == 0 {
		return in
	}
	step := float64(from) / float64(to)
	n := int(float64(len(in)) / step)
	out := make([]int16, n)
	last := len(in) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		a, b := float64(in[j]), float64(in[j+1])
		out[i] = int16(a + (pos-float64(j))*(b-a))
	}
	return out
}

// rms is the root mean square of samples relative to full scale.
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / fullScale
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
