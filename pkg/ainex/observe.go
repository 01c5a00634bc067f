package ainex

import (
	"context"

	"github.com/teslashibe/go-ainex/pkg/device"
	"github.com/teslashibe/go-ainex/pkg/router"
	"github.com/teslashibe/go-ainex/pkg/vision"
	"github.com/teslashibe/go-ainex/pkg/web"
)

// observedSpeaker copies every spoken line to the dashboard transcript.
type observedSpeaker struct {
	next router.Speaker
	web  *web.Server
}

func (o *observedSpeaker) Speak(ctx context.Context, text string, voice device.VoiceSettings) device.Result {
	o.web.AddTranscript(web.RoleRobot, text)
	return o.next.Speak(ctx, text, voice)
}

// observedCamera shows the dashboard every real frame the robot looks at.
type observedCamera struct {
	next vision.Camera
	web  *web.Server
}

func (o *observedCamera) CaptureImage(ctx context.Context) (device.Frame, device.Result) {
	frame, res := o.next.CaptureImage(ctx)
	if res.OK && !frame.Placeholder {
		o.web.PublishFrame(frame.JPEG)
	}
	return frame, res
}

var (
	_ router.Speaker = (*observedSpeaker)(nil)
	_ vision.Camera  = (*observedCamera)(nil)
)
