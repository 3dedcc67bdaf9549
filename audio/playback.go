package audio

// playbackStream is the native seam for an open, running output stream. The
// engine renders into it through the data callback passed at open time.
type playbackStream interface {
	Stop() error
	Close() error
}

// playbackOpener opens a playback device by name and starts a stream that
// repeatedly invokes render with an interleaved int16 output buffer to fill.
type playbackOpener func(deviceName string, cfg Config, render func(out []int16)) (playbackStream, error)

// playbackSession owns everything tied to one open playback device: the
// native stream, the set of streaming voices and the dedicated one-shot
// voice. It dies as a whole when the device closes.
type playbackSession struct {
	stream      playbackStream
	voices      map[VoiceID]*voice
	main        *voice // dedicated one-shot voice
	initialized bool
}

// SubscribeOutput opens the playback device if needed and allocates a new
// voice, returning its identifier. Returns zero when the device cannot be
// opened; the caller observes no state change in that case.
func (a *Audio) SubscribeOutput() VoiceID {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.autoInitOutput() {
		a.log.Warn("Failed to subscribe to audio output device")
		return 0
	}

	id := a.nextVoiceID
	a.nextVoiceID++
	a.out.voices[id] = &voice{id: id}

	a.log.Debug("Audio voice created", "voice", id, "active", len(a.out.voices))
	return id
}

// UnsubscribeOutput releases a voice. Releasing the last voice tears down
// the whole playback session; this is the only path that closes playback.
func (a *Audio) UnsubscribeOutput(id VoiceID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.out == nil {
		if id != 0 {
			a.log.Warn("Trying to delete invalid audio voice", "voice", id)
		}
		return
	}

	if _, ok := a.out.voices[id]; ok {
		delete(a.out.voices, id)
		a.log.Debug("Audio voice deleted", "voice", id, "active", len(a.out.voices))
	} else if id != 0 {
		a.log.Warn("Trying to delete invalid audio voice", "voice", id)
	}

	if len(a.out.voices) == 0 {
		a.cleanupOutput()
	}
}

// PlayAudioBuffer queues one block of PCM on a voice, converting it to the
// engine's frame geometry. Submissions reclaim processed buffers first (all
// but one are released, the survivor is reused); past the in-flight cap with
// nothing processed, the frame is dropped. A voice that starved and stopped
// is restarted.
func (a *Audio) PlayAudioBuffer(id VoiceID, samples []int16, channels, sampleRate int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.out == nil || !a.out.initialized {
		return
	}

	v, ok := a.out.voices[id]
	if !ok {
		a.log.Warn("Buffer submitted for unknown audio voice", "voice", id)
		return
	}

	buf := v.reclaimBuffer()
	if buf == nil {
		// Backpressure: the queue is full and nothing has been rendered.
		return
	}

	buf.samples = append(buf.samples[:0], toEngineFormat(samples, channels, sampleRate, a.cfg)...)
	v.enqueue(buf)
}

// autoInitOutput opens the configured playback device if it is not open yet.
func (a *Audio) autoInitOutput() bool {
	if a.out != nil {
		return a.out.initialized
	}
	return a.initOutput(a.cfg.OutputDevice)
}

// initOutput opens a playback device and brings up the mixer session. The
// name "none" is the deliberate disabled "off" state and returns false
// without creating anything; an empty name resolves to the first enumerated
// playback device. The session is marked initialized only after every step
// succeeded, and the call-signaling layer is told to rebind its voices.
func (a *Audio) initOutput(deviceName string) bool {
	a.log.Debug("Opening audio output", "device", deviceName)

	if a.out != nil {
		a.log.Error("Audio output contract violation", "error", ErrPlaybackOpen)
		return false
	}

	if deviceName == "none" {
		return false
	}

	if deviceName == "" {
		names, err := a.listOutputs()
		if err != nil || len(names) == 0 {
			a.log.Warn("No playback devices found", "error", err)
			return false
		}
		deviceName = names[0]
	}

	sess := &playbackSession{
		voices: make(map[VoiceID]*voice),
		main:   &voice{},
	}

	stream, err := a.openPlayback(deviceName, a.cfg, a.renderOutput)
	if err != nil {
		a.log.Warn("Cannot open output audio device", "device", deviceName, "error", err)
		return false
	}
	sess.stream = stream
	a.out = sess

	a.volume = clampFloat(float64(a.cfg.OutputVolume)/100.0, 0, 1)

	if a.notifier != nil {
		// Previously issued voice identifiers are dead after a device
		// switch; the call layer has to re-subscribe each of them.
		a.notifier.OutputDevicesChanged()
	}

	sess.initialized = true
	a.log.Info("Opened audio output", "device", deviceName)
	return true
}

// cleanupOutput tears the playback session down in reverse order: stop the
// one-shot voice and drop its clip, cancel the pending cleanup, stop and
// close the native stream. Every native failure is a non-fatal warning.
// A no-op when playback is closed.
func (a *Audio) cleanupOutput() {
	if a.out == nil {
		return
	}

	a.out.initialized = false

	a.out.main.looping = false
	a.out.main.detachClip()
	if a.cleanup != nil {
		a.cleanup.Stop()
		a.cleanup = nil
	}

	if err := a.out.stream.Stop(); err != nil {
		a.log.Warn("Failed to stop audio output stream", "error", err)
	}
	a.log.Debug("Closing audio output")
	if err := a.out.stream.Close(); err != nil {
		a.log.Warn("Failed to close audio output", "error", err)
	}
	a.out = nil
}

// renderOutput is the stream data callback: it mixes every active voice into
// the device buffer and applies the master volume with int16 saturation.
//
// It runs on the native audio thread. The engine lock is only tried, never
// awaited: if another operation holds it, this period renders silence rather
// than stalling the device (a real-time callback must not block).
func (a *Audio) renderOutput(out []int16) {
	for i := range out {
		out[i] = 0
	}

	if !a.mu.TryLock() {
		return
	}
	defer a.mu.Unlock()

	if a.out == nil || !a.out.initialized {
		return
	}

	if cap(a.mixBuf) < len(out) {
		a.mixBuf = make([]int32, len(out))
	}
	acc := a.mixBuf[:len(out)]
	for i := range acc {
		acc[i] = 0
	}

	for _, v := range a.out.voices {
		v.mixInto(acc)
	}
	a.out.main.mixInto(acc)

	for i, s := range acc {
		scaled := int32(float64(s) * a.volume)
		switch {
		case scaled > 32767:
			out[i] = 32767
		case scaled < -32768:
			out[i] = -32768
		default:
			out[i] = int16(scaled)
		}
	}

	if a.filter != nil && a.cfg.FilterEnabled {
		a.refBuf = append(a.refBuf[:0], out...)
		a.filter.ProcessPlaybackReference(a.refBuf)
	}
}
