package audio

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// testConfig is the geometry used throughout the tests: 48kHz mono 20ms
// frames, i.e. 960 samples per frame.
func testConfig() Config {
	return Config{
		SampleRate:    48000,
		Channels:      1,
		FrameDuration: 20,
		OutputVolume:  100,
	}
}

// newTestAudio builds an engine without the background tick so tests can
// drive doCapture deterministically. The native seams fail until a test
// installs fakes.
func newTestAudio(t *testing.T, cfg Config) *Audio {
	t.Helper()

	if cfg.MinInputGain == 0 && cfg.MaxInputGain == 0 {
		cfg.MinInputGain, cfg.MaxInputGain = defaultMinGain, defaultMaxGain
	}

	a := &Audio{
		cfg:         cfg,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		gain:        newGainState(cfg.MinInputGain, cfg.MaxInputGain),
		volume:      clampFloat(float64(cfg.OutputVolume)/100.0, 0, 1),
		nextVoiceID: 1,
		handlers:    make(map[int]FrameHandler),
		openCapture: func(string, Config) (captureDevice, error) {
			return nil, errors.New("no capture fake installed")
		},
		openPlayback: func(string, Config, func([]int16)) (playbackStream, error) {
			return nil, errors.New("no playback fake installed")
		},
		listInputs:  func() ([]string, error) { return []string{"Fake Microphone"}, nil },
		listOutputs: func() ([]string, error) { return []string{"Fake Speakers"}, nil },
		captureBuf:  make([]int16, cfg.frameBufferLen()),
		done:        make(chan struct{}),
	}
	a.gain.set(cfg.InputGain)

	t.Cleanup(func() { _ = a.Close() })
	return a
}

// scriptedCapture reports a scripted sequence of available sample counts
// (the last entry repeats) and fills reads with a constant sample value.
type scriptedCapture struct {
	avail  []int
	call   int
	sample int16
	reads  int
	closed bool
}

func (s *scriptedCapture) Available() int {
	v := s.avail[len(s.avail)-1]
	if s.call < len(s.avail) {
		v = s.avail[s.call]
	}
	s.call++
	return v
}

func (s *scriptedCapture) ReadSamples(dst []int16) int {
	s.reads++
	for i := range dst {
		dst[i] = s.sample
	}
	return len(dst)
}

func (s *scriptedCapture) Close() error {
	s.closed = true
	return nil
}

func installCapture(a *Audio, dev *scriptedCapture) {
	a.openCapture = func(string, Config) (captureDevice, error) {
		return dev, nil
	}
}

// fakeStream records teardown calls; it never pulls from the mixer, which
// simulates a native layer reporting zero processed buffers.
type fakeStream struct {
	stopped bool
	closed  bool
}

func (f *fakeStream) Stop() error  { f.stopped = true; return nil }
func (f *fakeStream) Close() error { f.closed = true; return nil }

func installPlayback(a *Audio, stream *fakeStream) {
	a.openPlayback = func(string, Config, func([]int16)) (playbackStream, error) {
		return stream, nil
	}
}

type countingNotifier struct {
	changes int
}

func (n *countingNotifier) OutputDevicesChanged() { n.changes++ }

func TestNewRejectsInvalidGeometry(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(Config{SampleRate: 48000, Channels: 1}, nil, nil, log)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{SampleRate: 48000, Channels: 3, FrameDuration: 20}, nil, nil, log)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCloseIsIdempotent(t *testing.T) {
	a := newTestAudio(t, testConfig())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestCloseReleasesOpenDevices(t *testing.T) {
	a := newTestAudio(t, testConfig())
	dev := &scriptedCapture{avail: []int{0}}
	stream := &fakeStream{}
	installCapture(a, dev)
	installPlayback(a, stream)

	a.SubscribeInput()
	require.NotZero(t, a.SubscribeOutput())

	require.NoError(t, a.Close())
	require.True(t, dev.closed)
	require.True(t, stream.closed)
}

func TestReinitOutputInvalidatesVoices(t *testing.T) {
	a := newTestAudio(t, testConfig())
	n := &countingNotifier{}
	a.notifier = n
	installPlayback(a, &fakeStream{})

	id := a.SubscribeOutput()
	require.NotZero(t, id)
	require.Equal(t, 1, n.changes)

	require.True(t, a.ReinitOutput(""))
	require.Equal(t, 2, n.changes)

	// The old identifier is dead after the device switch.
	a.mu.Lock()
	_, ok := a.out.voices[id]
	a.mu.Unlock()
	require.False(t, ok)
	require.True(t, a.IsOutputReady())
}

func TestReinitOutputToNoneDisablesPlayback(t *testing.T) {
	a := newTestAudio(t, testConfig())
	installPlayback(a, &fakeStream{})

	require.NotZero(t, a.SubscribeOutput())
	require.False(t, a.ReinitOutput("none"))
	require.False(t, a.IsOutputReady())
}

func TestReinitInputAppliesNewDevice(t *testing.T) {
	a := newTestAudio(t, testConfig())
	first := &scriptedCapture{avail: []int{0}}
	installCapture(a, first)

	a.SubscribeInput()
	require.True(t, a.IsInputReady())

	second := &scriptedCapture{avail: []int{0}}
	installCapture(a, second)
	a.ReinitInput("Fake Microphone")

	require.True(t, first.closed)
	require.True(t, a.IsInputReady())
}

func TestOutputVolume(t *testing.T) {
	a := newTestAudio(t, testConfig())
	installPlayback(a, &fakeStream{})

	// No playback session: volume reads as zero.
	require.Zero(t, a.OutputVolume())

	require.NotZero(t, a.SubscribeOutput())
	require.InDelta(t, 1.0, a.OutputVolume(), 1e-9)

	a.SetOutputVolume(0.25)
	require.InDelta(t, 0.25, a.OutputVolume(), 1e-9)

	a.SetOutputVolume(7)
	require.InDelta(t, 1.0, a.OutputVolume(), 1e-9)
	a.SetOutputVolume(-3)
	require.Zero(t, a.OutputVolume())
}
