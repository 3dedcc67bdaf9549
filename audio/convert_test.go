package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToInt16(t *testing.T) {
	got := bytesToInt16([]byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80})
	assert.Equal(t, []int16{1, -1, -32768}, got)

	// A trailing odd byte is discarded.
	got = bytesToInt16([]byte{0x02, 0x00, 0x7f})
	assert.Equal(t, []int16{2}, got)

	assert.Empty(t, bytesToInt16(nil))
}

func TestRemixChannels(t *testing.T) {
	mono := []int16{10, -20, 30}

	stereo := remixChannels(mono, 1, 2)
	assert.Equal(t, []int16{10, 10, -20, -20, 30, 30}, stereo)

	back := remixChannels(stereo, 2, 1)
	assert.Equal(t, mono, back)

	// Averaging rounds toward zero.
	assert.Equal(t, []int16{15}, remixChannels([]int16{10, 20}, 2, 1))

	// Same layout passes through untouched.
	same := remixChannels(mono, 1, 1)
	assert.Equal(t, mono, same)
}

func TestResampleLinearLength(t *testing.T) {
	in := make([]int16, 441)
	out := resampleLinear(in, 1, 44100, 48000)
	assert.Len(t, out, 480)

	down := resampleLinear(out, 1, 48000, 24000)
	assert.Len(t, down, 240)

	// Same rate is the identity.
	assert.Equal(t, in, resampleLinear(in, 1, 44100, 44100))
	assert.Empty(t, resampleLinear(nil, 1, 44100, 48000))
}

func TestResampleLinearPreservesConstantSignal(t *testing.T) {
	in := make([]int16, 100)
	for i := range in {
		in[i] = 1234
	}

	out := resampleLinear(in, 1, 44100, 48000)
	require.NotEmpty(t, out)
	for _, s := range out {
		assert.EqualValues(t, 1234, s)
	}
}

func TestResampleLinearStereoAlignment(t *testing.T) {
	// Left channel constant 100, right channel constant -100: channels
	// must not bleed into each other.
	in := make([]int16, 50*2)
	for i := 0; i < 50; i++ {
		in[i*2] = 100
		in[i*2+1] = -100
	}

	out := resampleLinear(in, 2, 48000, 44100)
	require.True(t, len(out)%2 == 0)
	for i := 0; i < len(out)/2; i++ {
		assert.EqualValues(t, 100, out[i*2])
		assert.EqualValues(t, -100, out[i*2+1])
	}
}

func TestToEngineFormat(t *testing.T) {
	cfg := testConfig() // 48kHz mono

	// 44.1kHz stereo in: folded then resampled.
	in := make([]int16, 441*2)
	for i := range in {
		in[i] = 500
	}
	out := toEngineFormat(in, 2, 44100, cfg)
	assert.Len(t, out, 480)
	assert.EqualValues(t, 500, out[0])
}
