package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"
	"testing"
	"time"
)

type fakeRun struct {
	name   string
	args   []string
	stdin  []byte
	stdout []byte
	stderr []byte
	err    error

	// remaining is the time left on the context's deadline, or 0.
	remaining time.Duration
}

func (f *fakeRun) run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	if d, ok := ctx.Deadline(); ok {
		f.remaining = time.Until(d)
	}
	if stdin != nil {
		f.stdin, _ = io.ReadAll(stdin)
	}
	return f.stdout, f.stderr, f.err
}

func newTestALSA(t *testing.T, f *fakeRun) *ALSA {
	t.Helper()
	a, err := NewALSA(DefaultConfig(), WithRunner(f.run))
	if err != nil {
		t.Fatalf("NewALSA: %v", err)
	}
	return a
}

func TestALSARecord(t *testing.T) {
	f := &fakeRun{stdout: Clip{Samples: []int16{1, 2, 3, 4}, SampleRate: 44100, Channels: 1}.WAV()}
	a := newTestALSA(t, f)

	clip, err := a.Record(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(clip.Samples) != 4 || clip.SampleRate != 44100 {
		t.Errorf("clip = %+v", clip)
	}

	if f.name != "arecord" {
		t.Errorf("command = %q", f.name)
	}
	joined := strings.Join(f.args, " ")
	for _, want := range []string{"-D plughw:3,0", "-d 5", "-f S16_LE", "-r 44100", "-c 1"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestALSARecordRoundsUpSeconds(t *testing.T) {
	f := &fakeRun{stdout: Clip{Samples: []int16{1}, SampleRate: 44100, Channels: 1}.WAV()}
	a := newTestALSA(t, f)

	if _, err := a.Record(context.Background(), 1500*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	i := slices.Index(f.args, "-d")
	if i < 0 || f.args[i+1] != "2" {
		t.Errorf("args = %v, want -d 2", f.args)
	}
}

func TestALSARecordEmpty(t *testing.T) {
	f := &fakeRun{stdout: Clip{SampleRate: 44100, Channels: 1}.WAV()}
	a := newTestALSA(t, f)

	if _, err := a.Record(context.Background(), time.Second); !errors.Is(err, ErrEmptyClip) {
		t.Errorf("err = %v, want ErrEmptyClip", err)
	}
}

func TestALSARecordBusy(t *testing.T) {
	f := &fakeRun{
		stderr: []byte("arecord: main:831: audio open error: Device or resource busy"),
		err:    errors.New("exit status 1"),
	}
	a := newTestALSA(t, f)

	_, err := a.Record(context.Background(), time.Second)
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CommandError", err)
	}
	if !ce.IsBusy() {
		t.Error("expected busy")
	}
	if ce.IsTimeout() {
		t.Error("did not expect timeout")
	}
}

func TestALSACommandNotFound(t *testing.T) {
	f := &fakeRun{err: fmt.Errorf("exec: %w", exec.ErrNotFound)}
	a := newTestALSA(t, f)

	if err := a.Play(context.Background(), []byte("RIFF")); !errors.Is(err, ErrCommandNotFound) {
		t.Errorf("err = %v, want ErrCommandNotFound", err)
	}
}

func TestALSAPlay(t *testing.T) {
	f := &fakeRun{}
	a := newTestALSA(t, f)

	wav := Clip{Samples: []int16{7}, SampleRate: 16000, Channels: 1}.WAV()
	if err := a.Play(context.Background(), wav); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if f.name != "aplay" {
		t.Errorf("command = %q", f.name)
	}
	if !slices.Contains(f.args, "plughw:2,0") {
		t.Errorf("args = %v", f.args)
	}
	if len(f.stdin) != len(wav) {
		t.Errorf("stdin = %d bytes, want %d", len(f.stdin), len(wav))
	}
}

func TestALSAPlayIsBounded(t *testing.T) {
	f := &fakeRun{}
	a := newTestALSA(t, f)

	// One second of audio may play for at most one second plus Grace.
	wav := Clip{Samples: make([]int16, 16000), SampleRate: 16000, Channels: 1}.WAV()
	if err := a.Play(context.Background(), wav); err != nil {
		t.Fatalf("Play: %v", err)
	}
	want := time.Second + DefaultConfig().Grace
	if f.remaining <= 0 || f.remaining > want {
		t.Errorf("deadline in %v, want within %v", f.remaining, want)
	}

	if err := a.Play(context.Background(), []byte("not a wav")); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if f.remaining <= 0 || f.remaining > maxPlayback {
		t.Errorf("deadline in %v, want within %v", f.remaining, maxPlayback)
	}
}

func TestALSAProbe(t *testing.T) {
	listing := "**** List of CAPTURE Hardware Devices ****\n" +
		"card 3: Device [USB PnP Sound Device], device 0: USB Audio [USB Audio]\n"

	tests := []struct {
		name    string
		run     fakeRun
		wantErr error
	}{
		{"card present", fakeRun{stdout: []byte(listing)}, nil},
		{"no soundcards", fakeRun{stderr: []byte("aplay: device_list:274: no soundcards found...")}, ErrNoSoundcard},
		{"other card only", fakeRun{stdout: []byte("card 0: bcm2835 [bcm2835 Headphones]\n")}, ErrNoSoundcard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestALSA(t, &tt.run)
			err := a.ProbeCapture(context.Background())
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestALSAProbeNamedDevice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlaybackDevice = "default"
	f := &fakeRun{stdout: []byte("card 0: bcm2835 [bcm2835 Headphones]\n")}
	a, err := NewALSA(cfg, WithRunner(f.run))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.ProbePlayback(context.Background()); err != nil {
		t.Errorf("ProbePlayback: %v", err)
	}
}

func TestNewALSAInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channels = 0
	if _, err := NewALSA(cfg); err == nil {
		t.Error("expected error for zero channels")
	}
}
