package ainex

import (
	"context"
	"strings"
	"time"

	"github.com/teslashibe/go-ainex/pkg/device"
	"github.com/teslashibe/go-ainex/pkg/errtext"
	"github.com/teslashibe/go-ainex/pkg/retry"
	"github.com/teslashibe/go-ainex/pkg/router"
	"github.com/teslashibe/go-ainex/pkg/web"
	"golang.org/x/sync/errgroup"
)

type prober interface {
	Probe(ctx context.Context) device.Status
}

// Start probes the devices, reports a degraded start and greets the user.
func (a *App) Start(ctx context.Context) {
	if p, ok := a.channel.(prober); ok {
		a.devices = p.Probe(ctx)
		a.reportDevices()
	} else {
		a.devices = device.Status{Microphone: true, Speaker: true, Camera: true}
	}
	if a.llm == nil {
		a.logger.Warn("OPENAI_API_KEY not set; conversation, transcription and vision are unavailable")
	}
	a.logger.Info("starting",
		"simulation", a.cfg.Simulation,
		"wake_word", a.session.WakeWord,
		"wake_word_enabled", a.session.WakeWordEnabled,
		"motion", a.motion != nil,
		"trained_objects", a.store.Len(),
	)

	a.router.Say(ctx, a.session, router.Greeting)
	a.publishState()
}

func (a *App) reportDevices() {
	for _, d := range []struct {
		name    string
		present bool
	}{
		{"microphone", a.devices.Microphone},
		{"speaker", a.devices.Speaker},
		{"camera", a.devices.Camera},
	} {
		switch {
		case d.present:
		case a.cfg.Simulation:
			a.logger.Info("device not found, simulating it", "device", d.name)
		default:
			a.logger.Warn("device not found, running degraded", "device", d.name)
		}
	}
}

// Run starts the robot and loops until ctx is done. The dashboard and the
// staged-input watcher run alongside the loop.
func (a *App) Run(ctx context.Context) error {
	a.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)
	if a.web != nil {
		g.Go(func() error { return a.web.Run(ctx) })
	}
	if a.staging != nil && a.cfg.Audio.SimInputFile != "" {
		g.Go(func() error {
			if err := device.WatchFile(ctx, a.cfg.Audio.SimInputFile, a.staging, a.logger); err != nil {
				a.logger.Warn("staged input file disabled", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		a.loop(ctx)
		return nil
	})
	return g.Wait()
}

// loop checks for shutdown only between iterations. Each Step runs on a
// context that ignores the cancellation, so a sentence already heard is still
// answered; every device and service call keeps its own timeout.
func (a *App) loop(ctx context.Context) {
	for ctx.Err() == nil {
		a.Step(context.WithoutCancel(ctx))
		select {
		case <-ctx.Done():
		case <-time.After(a.pause):
		}
	}
}

// Step runs one iteration: listen, route what was heard, then enforce motion
// deadlines. The zero Outcome means nothing was heard.
func (a *App) Step(ctx context.Context) router.Outcome {
	var out router.Outcome

	speech, res := a.channel.CaptureSpeech(ctx, a.listenTimeout)
	switch {
	case !res.OK:
		if ctx.Err() == nil && a.gate.ShouldAct(retry.ClassMicrophone, res.Signature) {
			a.logger.Warn("listen failed", "signature", res.Signature, "kind", res.Kind, "error", res.Err)
			a.dashboardLog("error", a.translator.Translate(errtext.Microphone, res.Signature))
		}

	case strings.TrimSpace(speech.Text) == "":
		a.gate.Succeeded(retry.ClassMicrophone)

	default:
		a.gate.Succeeded(retry.ClassMicrophone)
		a.logger.Info("heard", "text", speech.Text, "source", speech.Source)
		if a.web != nil {
			a.web.AddTranscript(web.RoleUser, speech.Text)
		}
		out = a.router.Route(ctx, a.session, speech.Text)
		if !out.Dropped() {
			a.dashboardLog("info", "intent: "+string(out.Intent))
		}
	}

	if a.motion != nil {
		a.motion.CheckTimeouts()
	}
	a.publishState()
	return out
}

func (a *App) dashboardLog(kind, msg string) {
	if a.web != nil {
		a.web.AddLog(kind, msg)
	}
}

func (a *App) publishState() {
	if a.web == nil {
		return
	}
	s := a.session
	st := web.State{
		Simulation:      a.cfg.Simulation,
		Microphone:      a.devices.Microphone,
		Speaker:         a.devices.Speaker,
		Camera:          a.devices.Camera,
		WakeWord:        s.WakeWord,
		WakeWordEnabled: s.WakeWordEnabled,
		WakeWordActive:  s.WakeWordActive,
		Voice:           s.Voice.VoiceID,
		Speed:           s.Voice.Speed,
	}
	if s.Training != nil {
		st.Training = s.Training.State().String()
		st.TrainingObject = s.Training.Object()
	}
	if a.motion != nil {
		ms := a.motion.Status()
		st.MotionConnected = ms.Connected
		st.Moving = ms.Moving
		st.Tracking = ms.Tracking
		st.Action = ms.Action
	}
	a.web.UpdateState(func(cur *web.State) {
		st.LastHeard, st.LastSaid = cur.LastHeard, cur.LastSaid
		*cur = st
	})
}
