package audio

// Sample format helpers. The playback mixer works in the engine's configured
// geometry, so foreign buffers are converted once at submission time: channel
// fold/duplicate first, then a linear resample.

// bytesToInt16 converts little-endian PCM bytes to int16 samples.
func bytesToInt16(b []byte) []int16 {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}

	pcm := make([]int16, len(b)/2)
	for i := 0; i < len(pcm); i++ {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}

// remixChannels converts interleaved samples between mono and stereo.
// Mono to stereo duplicates each sample; stereo to mono averages each pair.
func remixChannels(samples []int16, from, to int) []int16 {
	if from == to {
		return samples
	}

	switch {
	case from == 1 && to == 2:
		out := make([]int16, len(samples)*2)
		for i, s := range samples {
			out[i*2] = s
			out[i*2+1] = s
		}
		return out
	case from == 2 && to == 1:
		out := make([]int16, len(samples)/2)
		for i := range out {
			out[i] = int16((int32(samples[i*2]) + int32(samples[i*2+1])) / 2)
		}
		return out
	default:
		// Unsupported layouts pass through untouched; the mixer only deals
		// in mono and stereo.
		return samples
	}
}

// resampleLinear converts interleaved samples from one rate to another using
// linear interpolation, good enough for voice-band audio without pulling in
// a DSP dependency.
func resampleLinear(samples []int16, channels, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 || channels <= 0 {
		return samples
	}

	inFrames := len(samples) / channels
	if inFrames == 0 {
		return samples
	}

	outFrames := inFrames * toRate / fromRate
	if outFrames == 0 {
		outFrames = 1
	}

	out := make([]int16, outFrames*channels)
	step := float64(inFrames-1) / float64(outFrames)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)

		next := idx + 1
		if next >= inFrames {
			next = inFrames - 1
		}

		for c := 0; c < channels; c++ {
			a := float64(samples[idx*channels+c])
			b := float64(samples[next*channels+c])
			out[i*channels+c] = int16(a + (b-a)*frac)
		}
	}
	return out
}

// toEngineFormat converts a submitted buffer into the engine's configured
// channel count and sample rate.
func toEngineFormat(samples []int16, channels, sampleRate int, cfg Config) []int16 {
	out := remixChannels(samples, channels, cfg.Channels)
	return resampleLinear(out, cfg.Channels, sampleRate, cfg.SampleRate)
}
