package options

type HostOptions struct {
	Help             *bool
	Backend          *string // "soft" or "gl"
	Scene            *string // TOML scene file
	Duration         *float64
	FPS              *int
	Width            *int
	Height           *int
	BitDepth         *int
	OutputFile       *string // empty disables recording
	Codec            *string
	FFMPEGPath       *string
	Visible          *bool
	AudioInputDevice *string // portaudio device name substring, "null" for silence
	Monitor          *string // name of the source whose audio is played back
	MeterInterval    *float64
}
