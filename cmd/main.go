package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/richinsley/goshaderfx/audio"
	"github.com/richinsley/goshaderfx/encoder"
	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/gfx/glgfx"
	"github.com/richinsley/goshaderfx/gfx/soft"
	"github.com/richinsley/goshaderfx/glfwcontext"
	"github.com/richinsley/goshaderfx/graphics"
	"github.com/richinsley/goshaderfx/headless"
	"github.com/richinsley/goshaderfx/host"
	"github.com/richinsley/goshaderfx/mirror"
	"github.com/richinsley/goshaderfx/options"
	"github.com/richinsley/goshaderfx/shaderfilter"
	"github.com/richinsley/goshaderfx/sources"
)

const monitorRate = 48000

func init() {
	runtime.LockOSThread()
}

func parseOptions() *options.HostOptions {
	opts := &options.HostOptions{
		Help:             flag.Bool("help", false, "Show help message"),
		Backend:          flag.String("backend", "soft", "Render backend: soft, gl (GLFW window) or egl (headless, linux)"),
		Scene:            flag.String("scene", "", "TOML scene file (a built-in scene is used when empty)"),
		Duration:         flag.Float64("duration", 10.0, "Seconds to run, 0 runs until interrupted"),
		FPS:              flag.Int("fps", 30, "Frames per second"),
		Width:            flag.Int("width", 1280, "Width of the output"),
		Height:           flag.Int("height", 720, "Height of the output"),
		BitDepth:         flag.Int("bitdepth", 8, "Output bit depth (8 or 10)"),
		OutputFile:       flag.String("output", "", "Record the output to this file"),
		Codec:            flag.String("codec", "h264", "Video codec: h264 or hevc"),
		FFMPEGPath:       flag.String("ffmpeg", "", "Path to ffmpeg executable"),
		Visible:          flag.Bool("visible", false, "Show the output in a window (gl backend)"),
		AudioInputDevice: flag.String("audio-input", "", "Capture audio from the input device whose name contains this, \"null\" for silence"),
		Monitor:          flag.String("monitor", "", "Play back the audio of this source"),
		MeterInterval:    flag.Float64("meter", 0, "Log the output audio level every this many seconds"),
	}
	flag.Parse()
	return opts
}

// defaultScene is a colour background mirrored at the output size, with the
// capture source's audio mirrored alongside when one is configured.
func defaultScene(opts *options.HostOptions) *host.Scene {
	sc := &host.Scene{Output: "output"}
	sc.Sources = append(sc.Sources, host.SceneSource{
		ID:   sources.StillID,
		Name: "background",
		Settings: map[string]any{
			sources.KeyStillColor:  "#203040",
			sources.KeyStillWidth:  int64(640),
			sources.KeyStillHeight: int64(360),
		},
	})
	out := host.SceneSource{
		ID:   mirror.ID,
		Name: "output",
		Settings: map[string]any{
			mirror.KeySource:           "background",
			mirror.KeyScaling:          true,
			mirror.KeyScalingSize:      fmt.Sprintf("%dx%d", *opts.Width, *opts.Height),
			mirror.KeyScalingBounds:    int64(mirror.BoundsScaleInner),
			mirror.KeyScalingMethod:    int64(gfx.FilterBicubic),
			mirror.KeyScalingAlignment: int64(2),
		},
	}
	if *opts.AudioInputDevice != "" {
		sc.Sources = append(sc.Sources, host.SceneSource{
			ID:       sources.CaptureID,
			Name:     "mic",
			Settings: map[string]any{sources.KeyCaptureDevice: *opts.AudioInputDevice},
		})
		sc.Sources = append(sc.Sources, host.SceneSource{
			ID:   mirror.ID,
			Name: "mic-mirror",
			Settings: map[string]any{
				mirror.KeySource: "mic",
				mirror.KeyAudio:  true,
			},
		})
	}
	sc.Sources = append(sc.Sources, out)
	return sc
}

// newDevice creates the render device. The GL backends also return the
// window or pbuffer owning the context.
func newDevice(opts *options.HostOptions) (gfx.Device, graphics.Context, error) {
	switch *opts.Backend {
	case "soft":
		return soft.New(*opts.Width, *opts.Height), nil, nil
	case "gl":
		if err := glfwcontext.InitGraphics(); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize GLFW: %w", err)
		}
		ctx, err := glfwcontext.New(opts)
		if err != nil {
			glfwcontext.TerminateGraphics()
			return nil, nil, fmt.Errorf("failed to create window: %w", err)
		}
		ctx.MakeCurrent()
		w, h := ctx.GetFramebufferSize()
		dev, err := glgfx.New(w, h)
		if err != nil {
			ctx.Shutdown()
			glfwcontext.TerminateGraphics()
			return nil, nil, err
		}
		return dev, ctx, nil
	case "egl":
		ctx, err := headless.NewHeadless(*opts.Width, *opts.Height)
		if err != nil {
			return nil, nil, err
		}
		dev, err := glgfx.New(*opts.Width, *opts.Height)
		if err != nil {
			ctx.Shutdown()
			return nil, nil, err
		}
		return dev, ctx, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", *opts.Backend)
	}
}

// levelMeter keeps the latest output audio for periodic level logging.
type levelMeter struct {
	buffer *audio.SharedAudioBuffer
	meter  *audio.Meter
}

func newLevelMeter(src *host.Source) *levelMeter {
	m := &levelMeter{
		buffer: audio.NewSharedAudioBuffer(monitorRate),
		meter:  audio.NewMeter(0.8),
	}
	src.Audio.Add(func(f *audio.Frame) {
		m.buffer.Write(audio.DownmixToMono(f), true)
	})
	return m
}

func (m *levelMeter) log(name string) {
	sp := m.meter.Analyze(m.buffer.WindowPeek())
	loudest := 0
	for i, v := range sp.Bins {
		if v > sp.Bins[loudest] {
			loudest = i
		}
	}
	log.Printf("%s audio: rms %.1f dBFS, peak %.1f dBFS, loudest bin %d, %d samples", name, sp.RMS, sp.Peak, loudest, m.buffer.TotalSamplesWritten())
}

func run(opts *options.HostOptions) error {
	dev, win, err := newDevice(opts)
	if err != nil {
		return err
	}
	if _, ok := win.(*glfwcontext.Context); ok {
		defer glfwcontext.TerminateGraphics()
	}
	if win != nil {
		defer win.Shutdown()
	}
	if gd, ok := dev.(*glgfx.Device); ok {
		defer gd.Destroy()
	}

	h := host.New(dev)
	defer h.Shutdown()
	for _, f := range []*host.Factory{
		sources.StillFactory(),
		sources.CaptureFactory(nil),
		mirror.Factory(),
		shaderfilter.Factory(""),
	} {
		if err := h.Register(f); err != nil {
			return err
		}
	}

	sc := defaultScene(opts)
	if *opts.Scene != "" {
		if sc, err = host.LoadScene(*opts.Scene); err != nil {
			return err
		}
	}
	out, err := h.Build(sc)
	if err != nil {
		return err
	}
	if out == nil {
		return fmt.Errorf("scene has no output source")
	}
	out.Activate()
	defer out.Deactivate()

	rt, err := gfx.NewRenderTarget(dev, gfx.FormatRGBA, gfx.ZSNone)
	if err != nil {
		return err
	}
	defer rt.Destroy()

	if *opts.Monitor != "" {
		src := h.Source(*opts.Monitor)
		if src == nil {
			return fmt.Errorf("%w: monitor %q", host.ErrUnknownSource, *opts.Monitor)
		}
		player, err := audio.NewPlayer(monitorRate)
		if err != nil {
			return err
		}
		if err := player.Start(); err != nil {
			return err
		}
		defer player.Stop()
		src.Audio.Add(player.Write)
	}

	fps := *opts.FPS
	if fps <= 0 {
		return fmt.Errorf("invalid fps %d", fps)
	}

	var rec *encoder.Recorder
	reader, canRead := dev.(gfx.Reader)
	if *opts.OutputFile != "" {
		if !canRead {
			return fmt.Errorf("backend %s cannot read frames back for recording", *opts.Backend)
		}
		if rec, err = encoder.NewRecorder(opts); err != nil {
			return err
		}
	}

	var meter *levelMeter
	var meterSource string
	if *opts.MeterInterval > 0 {
		meterSource = out.Name()
		if *opts.Monitor != "" {
			meterSource = *opts.Monitor
		}
		meter = newLevelMeter(h.Source(meterSource))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	step := 1.0 / float64(fps)
	totalFrames := int(*opts.Duration * float64(fps))
	width, height := uint32(*opts.Width), uint32(*opts.Height)
	blank := make([]byte, *opts.Width * *opts.Height * 4)

	// recording renders as fast as ffmpeg takes frames, otherwise in real time
	var ticker *time.Ticker
	if rec == nil {
		ticker = time.NewTicker(time.Duration(step * float64(time.Second)))
		defer ticker.Stop()
	}

	log.Printf("Running %s at %dx%d@%d, output %s", *opts.Backend, width, height, fps, out.Name())
	lastMeter := 0.0
	frame := 0
	for ; totalFrames <= 0 || frame < totalFrames; frame++ {
		if ctx.Err() != nil || (win != nil && win.ShouldClose()) {
			break
		}

		h.Tick(step)
		tex := h.RenderTo(rt, out, width, height)

		if rec != nil {
			pixels := blank
			if tex != nil {
				if pixels, err = reader.ReadPixels(tex); err != nil {
					log.Printf("Warning: failed to read frame %d: %v", frame, err)
					pixels = blank
				}
			}
			if err := rec.WriteFrame(pixels, int64(frame)); err != nil {
				log.Printf("Warning: %v", err)
			}
		}
		if gd, ok := dev.(*glgfx.Device); ok {
			gd.Resize(win.GetFramebufferSize())
			gd.Present(tex)
			win.EndFrame()
		}

		now := float64(frame) * step
		if meter != nil && now-lastMeter >= *opts.MeterInterval {
			lastMeter = now
			meter.log(meterSource)
		}
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
			}
		}
	}
	log.Printf("Rendered %d frames", frame)

	if rec != nil {
		if err := rec.Close(); err != nil {
			return err
		}
		log.Printf("Successfully rendered to %s", *opts.OutputFile)
	}
	return nil
}

func main() {
	opts := parseOptions()
	if *opts.Help {
		fmt.Println("goshaderfx demo host: composes sources, shader filters and mirrors")
		flag.PrintDefaults()
		return
	}
	if err := run(opts); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
