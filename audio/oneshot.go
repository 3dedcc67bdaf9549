package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// One-shot clips are 44.1kHz mono 16-bit PCM, the fixed format of bundled
// notification sounds.
const (
	clipSampleRate = 44100
	clipChannels   = 1
	cleanupSlackMs = 50
)

// PlayClip plays a 44.1kHz mono 16-bit PCM clip on the dedicated one-shot
// voice, opening the playback device first if needed. An in-progress clip is
// stopped and replaced; one-shots never queue behind each other. The clip
// buffer frees itself once the estimated playback duration has elapsed.
func (a *Audio) PlayClip(pcm []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.autoInitOutput() {
		return
	}

	main := a.out.main
	if main.playing {
		main.detachClip()
	}

	samples := toEngineFormat(bytesToInt16(pcm), clipChannels, clipSampleRate, a.cfg)
	main.attachClip(samples)

	durationMs := len(pcm) * 1000 / 2 / clipSampleRate
	if a.cleanup != nil {
		a.cleanup.Stop()
	}
	a.cleanup = time.AfterFunc(time.Duration(durationMs+cleanupSlackMs)*time.Millisecond, a.clipCleanup)
}

// PlayClipFile plays a sound file on the one-shot voice. WAV files are
// decoded; anything else is treated as raw 44.1kHz mono 16-bit PCM.
func (a *Audio) PlayClipFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open clip file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if decoder.IsValidFile() {
		pcm, err := decoder.FullPCMBuffer()
		if err != nil {
			return fmt.Errorf("failed to decode clip file: %w", err)
		}

		samples := make([]int16, len(pcm.Data))
		for i, s := range pcm.Data {
			samples[i] = int16(s)
		}
		a.playDecodedClip(samples, int(decoder.NumChans), int(decoder.SampleRate))
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read clip file: %w", err)
	}
	a.PlayClip(raw)
	return nil
}

// playDecodedClip attaches already-decoded samples in an arbitrary source
// format to the one-shot voice.
func (a *Audio) playDecodedClip(samples []int16, channels, sampleRate int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.autoInitOutput() {
		return
	}

	main := a.out.main
	if main.playing {
		main.detachClip()
	}
	main.attachClip(toEngineFormat(samples, channels, sampleRate, a.cfg))

	durationMs := 0
	if channels > 0 && sampleRate > 0 {
		durationMs = len(samples) * 1000 / channels / sampleRate
	}
	if a.cleanup != nil {
		a.cleanup.Stop()
	}
	a.cleanup = time.AfterFunc(time.Duration(durationMs+cleanupSlackMs)*time.Millisecond, a.clipCleanup)
}

// clipCleanup runs once the estimated clip duration has passed. If the voice
// has stopped by now its buffer is released; if it is still playing (or was
// replaced) the clip is left alone and the next PlayClip handles it.
func (a *Audio) clipCleanup() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.out == nil {
		return
	}
	if !a.out.main.playing {
		a.out.main.detachClip()
	}
}

// StartLoop makes the one-shot voice repeat its attached clip seamlessly.
func (a *Audio) StartLoop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.out == nil {
		return
	}
	a.out.main.looping = true
}

// StopLoop clears the looping flag and stops the one-shot voice.
func (a *Audio) StopLoop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.out == nil {
		return
	}
	a.out.main.looping = false
	a.out.main.playing = false
}
