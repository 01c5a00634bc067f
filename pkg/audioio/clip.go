package audioio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWAV is returned when a buffer is not a PCM16 RIFF/WAVE file.
var ErrInvalidWAV = errors.New("audioio: invalid wav data")

// Clip is a recorded piece of PCM16 audio.
type Clip struct {
	// Samples contains interleaved PCM16 samples.
	Samples []int16

	// SampleRate is the sample rate of this clip.
	SampleRate int

	// Channels is the number of channels in this clip.
	Channels int
}

// Duration returns the length of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Level returns the RMS level of the clip in the range 0..1.
func (c Clip) Level() float64 {
	return rms(c.Samples)
}

// Mono returns the clip with stereo input averaged down to one channel.
func (c Clip) Mono() Clip {
	if c.Channels != 2 {
		return c
	}
	return Clip{Samples: downmix(c.Samples), SampleRate: c.SampleRate, Channels: 1}
}

// Resampled returns a mono copy of the clip at rate.
func (c Clip) Resampled(rate int) Clip {
	m := c.Mono()
	return Clip{Samples: resample(m.Samples, m.SampleRate, rate), SampleRate: rate, Channels: 1}
}

// WAV encodes the clip as a 16-bit PCM RIFF/WAVE file.
func (c Clip) WAV() []byte {
	data := pcmBytes(c.Samples)
	blockAlign := c.Channels * 2

	var buf bytes.Buffer
	buf.Grow(44 + len(data))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(c.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(c.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(c.SampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// DecodeWAV parses a PCM16 WAV file. Unknown chunks are skipped. A data chunk
// whose declared size runs past the buffer is truncated, which is what
// arecord produces when it writes to a pipe.
func DecodeWAV(b []byte) (Clip, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Clip{}, ErrInvalidWAV
	}

	var (
		clip   Clip
		gotFmt bool
		pos    = 12
	)
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(b) {
				return Clip{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			format := binary.LittleEndian.Uint16(b[body:])
			bits := binary.LittleEndian.Uint16(b[body+14:])
			if format != 1 || bits != 16 {
				return Clip{}, fmt.Errorf("%w: format %d, %d bits", ErrInvalidWAV, format, bits)
			}
			clip.Channels = int(binary.LittleEndian.Uint16(b[body+2:]))
			clip.SampleRate = int(binary.LittleEndian.Uint32(b[body+4:]))
			gotFmt = true
		case "data":
			if !gotFmt {
				return Clip{}, fmt.Errorf("%w: data before fmt", ErrInvalidWAV)
			}
			end := body + size
			if size == 0 || end > len(b) || end < body {
				end = len(b)
			}
			clip.Samples = pcmSamples(b[body:end])
			return clip, nil
		}

		next := body + size + size%2
		if next <= pos || next > len(b) {
			break
		}
		pos = next
	}
	return Clip{}, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
}
