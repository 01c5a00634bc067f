package camera

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// OpenCV opens a V4L camera through gocv.
func OpenCV(index int, cfg Config) (Device, error) {
	vc, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %d not opened", index)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	return &cvDevice{vc: vc, quality: cfg.Quality}, nil
}

type cvDevice struct {
	vc      *gocv.VideoCapture
	quality int
}

func (d *cvDevice) Read() (Frame, error) {
	img := gocv.NewMat()
	defer img.Close()

	if ok := d.vc.Read(&img); !ok || img.Empty() {
		return Frame{}, ErrEmptyFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), d.quality})
	if err != nil {
		return Frame{}, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())

	return Frame{
		JPEG:     jpeg,
		Width:    img.Cols(),
		Height:   img.Rows(),
		Captured: time.Now(),
	}, nil
}

func (d *cvDevice) Close() error {
	return d.vc.Close()
}
