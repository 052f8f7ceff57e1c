package encoder

import (
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/goshaderfx/options"
)

// Frame is one composited RGBA frame.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// Recorder pipes raw RGBA frames into an ffmpeg process.
type Recorder struct {
	width, height int
	frames        chan *Frame
	done          chan error
	written       int64
}

// getArgs picks the input description and the encoder for the current OS.
func getArgs(opts *options.HostOptions) (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", *opts.Width, *opts.Height),
		"r":       fmt.Sprint(*opts.FPS),
	}

	outputArgs = ffmpeg.KwArgs{"pix_fmt": "yuv420p"}
	hevc := *opts.Codec == "hevc"
	switch runtime.GOOS {
	case "darwin":
		if hevc {
			outputArgs["c:v"] = "hevc_videotoolbox"
		} else {
			outputArgs["c:v"] = "h264_videotoolbox"
		}
	default:
		if hevc {
			outputArgs["c:v"] = "libx265"
		} else {
			outputArgs["c:v"] = "libx264"
			outputArgs["tune"] = "zerolatency"
		}
	}

	if *opts.BitDepth > 8 {
		outputArgs["pix_fmt"] = "yuv420p10le"
		outputArgs["color_primaries"] = "bt2020"
		outputArgs["color_trc"] = "smpte2084"
		outputArgs["colorspace"] = "bt2020nc"
	}
	outputArgs["b:v"] = "25M"

	if hevc && strings.HasSuffix(*opts.OutputFile, ".mp4") {
		outputArgs["tag:v"] = "hvc1"
	}
	return
}

// NewRecorder starts ffmpeg writing to opts.OutputFile.
func NewRecorder(opts *options.HostOptions) (*Recorder, error) {
	if *opts.OutputFile == "" {
		return nil, fmt.Errorf("no output file")
	}
	if *opts.Width <= 0 || *opts.Height <= 0 || *opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid recording format %dx%d@%d", *opts.Width, *opts.Height, *opts.FPS)
	}

	r := &Recorder{
		width:  *opts.Width,
		height: *opts.Height,
		frames: make(chan *Frame, 4),
		done:   make(chan error, 1),
	}

	pipeReader, pipeWriter := io.Pipe()
	inputArgs, outputArgs := getArgs(opts)
	cmd := ffmpeg.Input("pipe:", inputArgs).
		Output(*opts.OutputFile, outputArgs).
		OverWriteOutput().WithInput(pipeReader).ErrorToStdOut()
	if *opts.FFMPEGPath != "" {
		cmd = cmd.SetFfmpegPath(*opts.FFMPEGPath)
	}

	errc := make(chan error, 1)
	go func() {
		err := cmd.Run()
		// unblock the writer if ffmpeg died early
		pipeReader.CloseWithError(io.ErrClosedPipe)
		errc <- err
	}()
	go r.run(pipeWriter, errc)

	log.Printf("Recording %dx%d@%d to %s with %s", r.width, r.height, *opts.FPS, *opts.OutputFile, outputArgs["c:v"])
	return r, nil
}

// WriteFrame queues one frame. pixels must hold width*height*4 bytes and is
// not retained after the call.
func (r *Recorder) WriteFrame(pixels []byte, pts int64) error {
	if want := r.width * r.height * 4; len(pixels) != want {
		return fmt.Errorf("frame %d has %d bytes, want %d", pts, len(pixels), want)
	}
	buf := make([]byte, len(pixels))
	copy(buf, pixels)
	r.frames <- &Frame{Pixels: buf, PTS: pts}
	return nil
}

func (r *Recorder) run(w *io.PipeWriter, errc <-chan error) {
	var werr error
	for frame := range r.frames {
		if werr != nil {
			continue
		}
		if _, err := w.Write(frame.Pixels); err != nil {
			werr = fmt.Errorf("failed to write frame %d to ffmpeg: %w", frame.PTS, err)
			log.Printf("Warning: %v", werr)
			continue
		}
		r.written++
	}
	w.Close()
	if err := <-errc; err != nil {
		r.done <- fmt.Errorf("ffmpeg failed: %w", err)
		return
	}
	r.done <- werr
}

// Close flushes the queued frames and waits for ffmpeg to exit.
func (r *Recorder) Close() error {
	close(r.frames)
	err := <-r.done
	log.Printf("Recorder wrote %d frames", r.written)
	return err
}
