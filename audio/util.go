package audio

// DownmixStereoToMono converts an interleaved stereo float32 buffer to mono
// by averaging the left and right channels.
func DownmixStereoToMono(stereo []float32) []float32 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}
	mono := make([]float32, len(stereo)/2)
	for i := 0; i < len(mono); i++ {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) * 0.5
	}
	return mono
}

// DownmixToMono averages every plane of f.
func DownmixToMono(f *Frame) []float32 {
	mono := make([]float32, f.Frames)
	if len(f.Planes) == 0 {
		return mono
	}
	scale := 1 / float32(len(f.Planes))
	for _, plane := range f.Planes {
		for i := 0; i < len(mono) && i < len(plane); i++ {
			mono[i] += plane[i] * scale
		}
	}
	return mono
}
