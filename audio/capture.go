package audio

import "math"

// captureDevice is the native seam for an open, streaming capture device.
// Implementations buffer captured samples internally; the tick polls
// Available and reads exactly one frame at a time.
type captureDevice interface {
	// Available returns the number of buffered sample frames ready to read.
	Available() int
	// ReadSamples fills dst with interleaved samples, returning how many
	// int16 values were written.
	ReadSamples(dst []int16) int
	Close() error
}

// captureOpener opens a capture device by name and starts it streaming.
type captureOpener func(deviceName string, cfg Config) (captureDevice, error)

// SubscribeInput registers a claim on the capture device, opening it with
// the configured device name if this is the first claim. An open failure is
// logged and leaves the state unchanged.
func (a *Audio) SubscribeInput() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.autoInitInput() {
		a.log.Warn("Failed to subscribe to audio input device")
		return
	}

	a.inSubs++
	a.log.Debug("Subscribed to audio input device", "subscriptions", a.inSubs)
}

// UnsubscribeInput releases one claim on the capture device and closes it
// when the last claim is gone. A no-op when there are no claims.
func (a *Audio) UnsubscribeInput() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.inSubs == 0 {
		return
	}

	a.inSubs--
	a.log.Debug("Unsubscribed from audio input device", "subscriptions", a.inSubs)

	if a.inSubs == 0 {
		a.cleanupInput()
	}
}

// autoInitInput opens the configured capture device if it is not open yet.
func (a *Audio) autoInitInput() bool {
	if a.in != nil {
		return true
	}
	return a.initInput(a.cfg.InputDevice)
}

// initInput opens a capture device. The name "none" is the deliberate
// disabled state and succeeds without opening anything; an empty name
// resolves to the first enumerated capture device. Opening while a session
// already exists is a contract violation and fails without touching it.
func (a *Audio) initInput(deviceName string) bool {
	a.log.Debug("Opening audio input", "device", deviceName)

	if deviceName == "none" {
		return true
	}

	if a.in != nil {
		a.log.Error("Audio input contract violation", "error", ErrCaptureOpen)
		return false
	}

	if deviceName == "" {
		names, err := a.listInputs()
		if err != nil || len(names) == 0 {
			a.log.Warn("No capture devices found", "error", err)
			return false
		}
		deviceName = names[0]
	}

	dev, err := a.openCapture(deviceName, a.cfg)
	if err != nil {
		a.log.Warn("Failed to initialize audio input device",
			"device", deviceName, "error", err)
		return false
	}

	a.in = dev
	a.gain.set(a.cfg.InputGain)
	a.log.Info("Opened audio input", "device", deviceName)
	return true
}

// cleanupInput closes the active capture device, warning on native failure.
// A no-op when capture is closed.
func (a *Audio) cleanupInput() {
	if a.in == nil {
		return
	}

	a.log.Debug("Closing audio input")
	if err := a.in.Close(); err != nil {
		a.log.Warn("Failed to close audio input", "error", err)
	}
	a.in = nil
}

// doCapture is the periodic tick body. Outside the polling state (device
// closed or no subscribers) it is a cheap no-op. With a full frame available
// it reads exactly one frame, runs the optional filter, applies gain with
// int16 saturation and publishes the frame to all handlers.
func (a *Audio) doCapture() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.in == nil || a.inSubs == 0 {
		return
	}

	frameSamples := a.cfg.FrameSamples()
	if a.in.Available() < frameSamples {
		return
	}

	buf := a.captureBuf
	n := a.in.ReadSamples(buf)
	if n < len(buf) {
		// Short read after a positive poll: skip this tick, the device
		// keeps accumulating.
		return
	}

	if a.filter != nil && a.cfg.FilterEnabled {
		a.filter.ProcessCaptured(buf)
	}

	factor := a.gain.factor
	for i, s := range buf {
		amp := math.Round(float64(s) * factor)
		switch {
		case amp > math.MaxInt16:
			buf[i] = math.MaxInt16
		case amp < math.MinInt16:
			buf[i] = math.MinInt16
		default:
			buf[i] = int16(amp)
		}
	}

	for _, h := range a.handlers {
		h(buf, frameSamples, a.cfg.Channels, a.cfg.SampleRate)
	}
}
