package ainex

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-ainex/internal/config"
	"github.com/teslashibe/go-ainex/pkg/device"
	"github.com/teslashibe/go-ainex/pkg/inference"
	"github.com/teslashibe/go-ainex/pkg/motion"
	"github.com/teslashibe/go-ainex/pkg/objects"
	"github.com/teslashibe/go-ainex/pkg/retry"
	"github.com/teslashibe/go-ainex/pkg/router"
	"github.com/teslashibe/go-ainex/pkg/web"
	"go.uber.org/goleak"
)

type testApp struct {
	*App
	fake  *device.Fake
	llm   *inference.Mock
	bus   *motion.MockBus
	store *objects.Store
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestApp(t *testing.T, mutate func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.SimInputFile = ""
	if mutate != nil {
		mutate(&cfg)
	}
	ta := &testApp{
		fake:  device.NewFake(),
		llm:   inference.NewMock(),
		bus:   motion.NewMockBus(),
		store: objects.NewStore(),
	}
	app, err := New(context.Background(), cfg,
		WithChannel(ta.fake),
		WithLLM(ta.llm),
		WithMotionBus(ta.bus),
		WithStore(ta.store),
		WithPause(time.Millisecond),
		WithLogger(discard()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	ta.App = app
	return ta
}

func TestStartGreets(t *testing.T) {
	a := newTestApp(t, nil)
	a.Start(context.Background())
	assert.Equal(t, []string{router.Greeting}, a.fake.Spoken())
}

func TestSessionFollowsConfig(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.WakeWord.Word = "robot"
		c.WakeWord.TimeoutSeconds = 45
		c.Voice.VoiceID = "nova"
		c.Voice.Speed = 1.3
		c.Motion.Enabled = false
	})
	s := a.Session()
	assert.Equal(t, "robot", s.WakeWord)
	assert.True(t, s.WakeWordEnabled)
	assert.Equal(t, 45*time.Second, s.WakeTimeout)
	assert.Equal(t, "nova", s.Voice.VoiceID)
	assert.InDelta(t, 1.3, s.Voice.Speed, 1e-9)
	assert.False(t, s.MotionEnabled)
}

func TestStepRoutesUtterance(t *testing.T) {
	a := newTestApp(t, nil)
	a.fake.Say("beta what do you see")

	out := a.Step(context.Background())
	assert.Equal(t, router.IntentIdentify, out.Intent)
	spoken := a.fake.Spoken()
	require.Len(t, spoken, 2)
	assert.Equal(t, router.Looking, spoken[0])
	assert.True(t, strings.HasPrefix(spoken[1], "I can see what appears to be"), spoken[1])
}

func TestStepWithNothingHeard(t *testing.T) {
	a := newTestApp(t, nil)
	out := a.Step(context.Background())
	assert.Equal(t, router.Intent(""), out.Intent)
	assert.Empty(t, a.fake.Spoken())
	assert.Equal(t, 1, a.fake.Listens())
}

func TestStepDropsWithoutWakeWord(t *testing.T) {
	a := newTestApp(t, nil)
	a.fake.Say("tell me a joke")
	out := a.Step(context.Background())
	assert.True(t, out.Dropped())
	assert.Empty(t, a.fake.Spoken())
}

func TestListenFailuresAreGated(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Web.Enabled = true })
	a.fake.ListenResult = &device.Result{
		Kind:      device.KindHardwareAbsent,
		Class:     device.ClassMicrophone,
		Signature: "microphone: no audio device",
		Err:       errors.New("no soundcards found"),
	}

	for range 3 {
		a.Step(context.Background())
	}
	st, ok := a.gate.Snapshot(retry.ClassMicrophone)
	require.True(t, ok)
	assert.Equal(t, "microphone: no audio device", st.Signature)

	var errs []web.LogEntry
	for _, l := range a.Dashboard().Logs() {
		if l.Type == "error" {
			errs = append(errs, l)
		}
	}
	assert.Len(t, errs, 1, "repeated failures within the backoff window are reported once")

	a.fake.ListenResult = nil
	a.Step(context.Background())
	st, _ = a.gate.Snapshot(retry.ClassMicrophone)
	assert.Empty(t, st.Signature, "a successful capture clears the backoff")
}

func TestStepDrivesMotion(t *testing.T) {
	a := newTestApp(t, nil)
	a.fake.Say("beta walk forward 2 steps")

	out := a.Step(context.Background())
	assert.Equal(t, router.IntentMotion, out.Intent)
	assert.Equal(t, 1, a.bus.Count(motion.TopicCmdVel))
	assert.Equal(t, "Moving forward for 2 steps.", a.fake.LastSpoken())
}

func TestMotionDisabledFallsBackToConversation(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Motion.Enabled = false })
	a.fake.Say("beta walk forward 2 steps")

	out := a.Step(context.Background())
	assert.Equal(t, router.IntentConversation, out.Intent)
	assert.Equal(t, "Mock response", a.fake.LastSpoken())
	assert.Empty(t, a.bus.Published())
}

func TestDashboardSeesSpeech(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Web.Enabled = true })
	a.fake.Say("beta")

	out := a.Step(context.Background())
	assert.Equal(t, router.IntentWake, out.Intent)

	dash := a.Dashboard()
	require.NotNil(t, dash)
	tr := dash.Transcript()
	require.Len(t, tr, 2)
	assert.Equal(t, web.TranscriptEntry{Time: tr[0].Time, Role: web.RoleUser, Text: "beta"}, tr[0])
	assert.Equal(t, web.TranscriptEntry{Time: tr[1].Time, Role: web.RoleRobot, Text: router.Listening}, tr[1])

	st := dash.State()
	assert.True(t, st.WakeWordActive)
	assert.Equal(t, "idle", st.Training)
	assert.Equal(t, "beta", st.LastHeard)
	assert.Equal(t, router.Listening, st.LastSaid)
	assert.True(t, st.MotionConnected)
}

func TestDashboardSeesFrames(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Web.Enabled = true })
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	a.fake.QueueFrame(device.Frame{JPEG: jpeg, Width: 640, Height: 480})
	a.fake.Say("beta what do you see")

	out := a.Step(context.Background())
	require.Equal(t, router.IntentIdentify, out.Intent)
	assert.Equal(t, jpeg, a.Dashboard().LastFrame())
}

func TestPlaceholderFramesStayOffDashboard(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Web.Enabled = true })
	a.fake.Say("beta what do you see")

	a.Step(context.Background())
	assert.Nil(t, a.Dashboard().LastFrame())
}

func TestCloseReleasesEverything(t *testing.T) {
	a := newTestApp(t, nil)
	require.NoError(t, a.Close())
	assert.True(t, a.fake.Closed())
	assert.True(t, a.bus.Closed())
}

func TestRunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	a := newTestApp(t, nil)
	a.fake.Say("beta")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.fake.Pending() == 0 && a.fake.Listens() > 1 },
		time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Contains(t, a.fake.Spoken(), router.Greeting)
	assert.Contains(t, a.fake.Spoken(), router.Listening)
}

// stallingLLM holds Chat until released and fails it if ctx was cancelled
// meanwhile, as the HTTP client would.
type stallingLLM struct {
	*inference.Mock
	started chan struct{}
	release chan struct{}
}

func (l *stallingLLM) Chat(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
	close(l.started)
	<-l.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Mock.Chat(ctx, req)
}

func TestShutdownLetsTheTurnFinish(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	llm := &stallingLLM{
		Mock:    inference.NewMock("Why did the robot cross the road?"),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	fake := device.NewFake()
	fake.Say("beta tell me a joke")

	cfg := config.Default()
	cfg.Audio.SimInputFile = ""
	a, err := New(context.Background(), cfg,
		WithChannel(fake),
		WithLLM(llm),
		WithMotionBus(motion.NewMockBus()),
		WithStore(objects.NewStore()),
		WithPause(time.Millisecond),
		WithLogger(discard()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()

	select {
	case <-llm.started:
	case <-time.After(5 * time.Second):
		t.Fatal("conversation never started")
	}
	cancel()
	close(llm.release)

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, "Why did the robot cross the road?", fake.LastSpoken())
	assert.Len(t, llm.Chats(), 1)
}
