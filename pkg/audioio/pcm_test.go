package audioio

import (
	"math"
	"slices"
	"testing"
)

func TestPCMBytes(t *testing.T) {
	b := pcmBytes([]int16{0x0102, -2})
	if want := []byte{0x02, 0x01, 0xfe, 0xff}; !slices.Equal(b, want) {
		t.Fatalf("bytes = % x, want % x", b, want)
	}
	if got := pcmSamples(append(b, 0x7f)); !slices.Equal(got, []int16{0x0102, -2}) {
		t.Errorf("samples = %v", got)
	}
}

func TestDownmix(t *testing.T) {
	if got := downmix([]int16{100, 200, -300, 301}); !slices.Equal(got, []int16{150, 0}) {
		t.Errorf("downmix = %v", got)
	}
}

func TestResample(t *testing.T) {
	ramp := make([]int16, 48000)
	for i := range ramp {
		ramp[i] = int16(i % 2000)
	}

	tests := []struct {
		name     string
		in       []int16
		from, to int
		wantLen  int
	}{
		{"same rate", ramp[:10], 16000, 16000, 10},
		{"48k to 16k", ramp, 48000, 16000, 16000},
		{"8k to 16k", ramp[:8000], 8000, 16000, 16000},
		{"empty", nil, 44100, 16000, 0},
		{"bad rate", ramp[:5], 0, 16000, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resample(tt.in, tt.from, tt.to); len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}

	// Upsampling a two-point ramp lands halfway between them.
	if got := resample([]int16{0, 100}, 1, 2); got[1] != 50 {
		t.Errorf("interpolated = %v", got)
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		in   []int16
		want float64
	}{
		{nil, 0},
		{[]int16{0, 0, 0}, 0},
		{[]int16{math.MaxInt16, -math.MaxInt16}, 1},
		{[]int16{math.MaxInt16 / 2, -math.MaxInt16 / 2}, 0.5},
	}
	for _, tt := range tests {
		if got := rms(tt.in); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("rms(%v) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func BenchmarkResample(b *testing.B) {
	in := make([]int16, 44100)
	for b.Loop() {
		resample(in, 44100, 16000)
	}
}
