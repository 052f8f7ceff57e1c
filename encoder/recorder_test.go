package encoder

import (
	"runtime"
	"testing"

	"github.com/richinsley/goshaderfx/options"
)

func testOptions(codec, output string, bitDepth int) *options.HostOptions {
	w, h, fps := 320, 240, 30
	empty := ""
	return &options.HostOptions{
		Width:      &w,
		Height:     &h,
		FPS:        &fps,
		BitDepth:   &bitDepth,
		Codec:      &codec,
		OutputFile: &output,
		FFMPEGPath: &empty,
	}
}

func TestGetArgsInput(t *testing.T) {
	in, out := getArgs(testOptions("h264", "out.mp4", 8))
	if in["f"] != "rawvideo" || in["pix_fmt"] != "rgba" || in["s"] != "320x240" || in["r"] != "30" {
		t.Errorf("input args %v", in)
	}
	if out["pix_fmt"] != "yuv420p" || out["b:v"] != "25M" {
		t.Errorf("output args %v", out)
	}
	if _, ok := out["tag:v"]; ok {
		t.Error("h264 got an hvc1 tag")
	}
}

func TestGetArgsCodec(t *testing.T) {
	_, out := getArgs(testOptions("hevc", "out.mp4", 10))
	want := "libx265"
	if runtime.GOOS == "darwin" {
		want = "hevc_videotoolbox"
	}
	if out["c:v"] != want {
		t.Errorf("codec %v, want %s", out["c:v"], want)
	}
	if out["tag:v"] != "hvc1" || out["pix_fmt"] != "yuv420p10le" || out["colorspace"] != "bt2020nc" {
		t.Errorf("output args %v", out)
	}

	_, out = getArgs(testOptions("hevc", "out.mkv", 8))
	if _, ok := out["tag:v"]; ok {
		t.Error("hvc1 tag outside mp4")
	}
}

func TestNewRecorderRejectsBadFormat(t *testing.T) {
	if _, err := NewRecorder(testOptions("h264", "", 8)); err == nil {
		t.Error("recorder without output file")
	}
	opts := testOptions("h264", "out.mp4", 8)
	*opts.FPS = 0
	if _, err := NewRecorder(opts); err == nil {
		t.Error("recorder with zero fps")
	}
}

func TestWriteFrameChecksSize(t *testing.T) {
	r := &Recorder{width: 2, height: 2, frames: make(chan *Frame, 1)}
	if err := r.WriteFrame(make([]byte, 15), 0); err == nil {
		t.Error("short frame accepted")
	}
	px := make([]byte, 16)
	if err := r.WriteFrame(px, 7); err != nil {
		t.Fatal(err)
	}
	px[0] = 9
	f := <-r.frames
	if f.PTS != 7 || f.Pixels[0] != 0 {
		t.Error("frame not copied")
	}
}
