package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputGainFactor(t *testing.T) {
	a := newTestAudio(t, testConfig())

	for _, dB := range []float64{-30, -12.5, -6, 0, 3, 17.2, 30} {
		a.SetInputGain(dB)
		assert.InDelta(t, dB, a.InputGain(), 1e-9)
		assert.InDelta(t, math.Pow(10, dB/20), a.InputGainFactor(), 1e-9)
	}
}

func TestInputGainClampsToBounds(t *testing.T) {
	a := newTestAudio(t, testConfig())

	a.SetInputGain(-80)
	assert.InDelta(t, -30.0, a.InputGain(), 1e-9)

	a.SetInputGain(99)
	assert.InDelta(t, 30.0, a.InputGain(), 1e-9)
	assert.InDelta(t, math.Pow(10, 1.5), a.InputGainFactor(), 1e-9)
}

func TestGainBoundsDoNotReclampCurrentValue(t *testing.T) {
	a := newTestAudio(t, testConfig())

	a.SetInputGain(25)
	require.InDelta(t, 25.0, a.InputGain(), 1e-9)

	// Narrowing the bounds leaves the stored value alone...
	a.SetMaxInputGain(20)
	assert.InDelta(t, 25.0, a.InputGain(), 1e-9)
	assert.InDelta(t, 20.0, a.MaxInputGain(), 1e-9)

	// ...until the next explicit set, which clamps against the new bounds.
	a.SetInputGain(25)
	assert.InDelta(t, 20.0, a.InputGain(), 1e-9)

	a.SetMinInputGain(-10)
	a.SetInputGain(-25)
	assert.InDelta(t, -10.0, a.InputGain(), 1e-9)
}

func TestGainAppliedOnCaptureOpen(t *testing.T) {
	cfg := testConfig()
	cfg.InputGain = 12
	a := newTestAudio(t, cfg)
	installCapture(a, &scriptedCapture{avail: []int{0}})

	a.SubscribeInput()
	assert.InDelta(t, 12.0, a.InputGain(), 1e-9)
	assert.InDelta(t, math.Pow(10, 12.0/20), a.InputGainFactor(), 1e-9)
}
