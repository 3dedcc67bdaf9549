// Package audio implements the real-time audio engine: capture and playback
// device lifecycle, reference-counted subscriptions, capture gain, per-voice
// playback buffer queues and one-shot notification sounds.
//
// One coarse mutex serializes every operation, including the periodic capture
// tick. No native call made under the lock blocks; missing data always means
// "try again next tick".
package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Config fixes the engine's frame geometry and carries the persisted device
// preferences it consults when a device is auto-opened. Immutable once the
// engine is constructed; device changes go through ReinitInput/ReinitOutput.
type Config struct {
	SampleRate    int
	Channels      int
	FrameDuration int // milliseconds

	// Device name selection: "none" disables the direction, an empty name
	// picks the first enumerated device.
	InputDevice  string
	OutputDevice string

	InputGain    float64 // dB, applied whenever capture opens
	MinInputGain float64 // dB, default -30
	MaxInputGain float64 // dB, default +30
	OutputVolume int     // 0..100, applied whenever playback opens

	FilterEnabled bool
}

// FrameSamples returns the per-channel sample count of one frame.
func (c Config) FrameSamples() int {
	return c.SampleRate * c.FrameDuration / 1000
}

// frameBufferLen returns the interleaved length of one frame.
func (c Config) frameBufferLen() int {
	return c.FrameSamples() * c.Channels
}

func (c Config) validate() error {
	if c.FrameSamples() <= 0 {
		return fmt.Errorf("%w: invalid frame size %d", ErrInvalidConfig, c.FrameSamples())
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrInvalidConfig, c.Channels)
	}
	return nil
}

// Audio is the audio engine. One instance per process, constructed at
// application start and handed by reference to collaborators.
type Audio struct {
	mu  sync.Mutex
	cfg Config
	log *slog.Logger

	gain   gainState
	volume float64 // master output volume, 0..1

	in     captureDevice // nil while capture is closed
	inSubs int

	out         *playbackSession // nil while playback is closed
	nextVoiceID VoiceID

	handlers    map[int]FrameHandler
	nextHandler int

	notifier Notifier
	filter   Filter

	// Native seams, replaceable in tests.
	openCapture  captureOpener
	openPlayback playbackOpener
	listInputs   func() ([]string, error)
	listOutputs  func() ([]string, error)

	captureBuf []int16     // scratch, one frame
	mixBuf     []int32     // scratch, mixer accumulator
	refBuf     []int16     // scratch, filter echo reference
	cleanup    *time.Timer // pending one-shot cleanup

	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// New constructs the engine and starts the capture tick, which fires twice
// per frame duration so at least one poll lands inside every production
// window. notifier and filter may be nil.
func New(cfg Config, notifier Notifier, filter Filter, log *slog.Logger) (*Audio, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MinInputGain == 0 && cfg.MaxInputGain == 0 {
		cfg.MinInputGain, cfg.MaxInputGain = defaultMinGain, defaultMaxGain
	}
	if log == nil {
		log = slog.Default()
	}

	a := &Audio{
		cfg:          cfg,
		log:          log,
		gain:         newGainState(cfg.MinInputGain, cfg.MaxInputGain),
		volume:       clampFloat(float64(cfg.OutputVolume)/100.0, 0, 1),
		nextVoiceID:  1,
		handlers:     make(map[int]FrameHandler),
		notifier:     notifier,
		filter:       filter,
		openCapture:  openMalgoCapture,
		openPlayback: openPortaudioPlayback,
		listInputs:   listCaptureDevices,
		listOutputs:  listPlaybackDevices,
		captureBuf:   make([]int16, cfg.frameBufferLen()),
		done:         make(chan struct{}),
	}
	a.gain.set(cfg.InputGain)

	a.wg.Add(1)
	go a.captureLoop()

	return a, nil
}

const (
	defaultMinGain = -30.0
	defaultMaxGain = 30.0
)

// captureLoop drives the periodic capture tick until Close.
func (a *Audio) captureLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(time.Duration(a.cfg.FrameDuration) * time.Millisecond / 2)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.doCapture()
		}
	}
}

// Close stops the capture tick and tears down both directions. Idempotent.
func (a *Audio) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.done)
	a.mu.Unlock()

	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cleanup != nil {
		a.cleanup.Stop()
		a.cleanup = nil
	}
	a.cleanupInput()
	a.cleanupOutput()
	return nil
}

// AddFrameHandler registers a handler for captured frames and returns a
// function that removes it again. Registration does not keep the capture
// device open; that is what SubscribeInput is for.
func (a *Audio) AddFrameHandler(h FrameHandler) (remove func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextHandler
	a.nextHandler++
	a.handlers[id] = h

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.handlers, id)
	}
}

// OutputVolume returns the master output volume (between 0 and 1), or 0 when
// no playback device is open.
func (a *Audio) OutputVolume() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.out == nil {
		return 0
	}
	return a.volume
}

// SetOutputVolume sets the master output volume (clamped to 0..1).
func (a *Audio) SetOutputVolume(volume float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume = clampFloat(volume, 0, 1)
}

// InputGain returns the capture gain in dB.
func (a *Audio) InputGain() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gain.gain
}

// SetInputGain sets the capture gain, clamped into the configured bounds.
func (a *Audio) SetInputGain(dB float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gain.set(dB)
}

// InputGainFactor returns the linear amplification factor derived from the
// current gain (10^(dB/20)).
func (a *Audio) InputGainFactor() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gain.factor
}

// MinInputGain returns the lower capture gain bound in dB.
func (a *Audio) MinInputGain() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gain.minDb
}

// SetMinInputGain sets the lower capture gain bound. The current gain is not
// reclamped until the next SetInputGain call.
func (a *Audio) SetMinInputGain(dB float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gain.setMin(dB)
}

// MaxInputGain returns the upper capture gain bound in dB.
func (a *Audio) MaxInputGain() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gain.maxDb
}

// SetMaxInputGain sets the upper capture gain bound, without reclamping.
func (a *Audio) SetMaxInputGain(dB float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gain.setMax(dB)
}

// IsInputReady reports whether the capture device is open and subscribed to.
func (a *Audio) IsInputReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.in != nil && a.inSubs > 0
}

// IsOutputReady reports whether the playback device is open.
func (a *Audio) IsOutputReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.out != nil && a.out.initialized
}

// InputDeviceNames enumerates the available capture device names.
func (a *Audio) InputDeviceNames() ([]string, error) {
	return a.listInputs()
}

// OutputDeviceNames enumerates the available playback device names.
func (a *Audio) OutputDeviceNames() ([]string, error) {
	return a.listOutputs()
}

// ReinitInput closes and reopens the capture device, atomically with respect
// to every other operation.
func (a *Audio) ReinitInput(deviceName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleanupInput()
	a.initInput(deviceName)
}

// ReinitOutput closes and reopens the playback device.
func (a *Audio) ReinitOutput(deviceName string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleanupOutput()
	return a.initOutput(deviceName)
}
