// audio/interface.go
package audio

// VoiceID identifies a playback voice owned by the engine. Callers only ever
// hold the identifier; the engine owns the underlying buffers and invalidates
// all identifiers when the playback session is torn down. Zero is never a
// valid voice.
type VoiceID uint32

// FrameHandler receives one captured audio frame. The sample slice is only
// valid for the duration of the call; copy it if it must outlive the handler.
type FrameHandler func(samples []int16, sampleCount, channels, sampleRate int)

// Notifier is implemented by the call-signaling layer. OutputDevicesChanged
// fires after a playback device has been (re)opened, meaning every VoiceID
// handed out before is invalid and must be re-acquired.
//
// The engine invokes it with its internal lock held: implementations must
// only mark their cached identifiers stale and must not call back into the
// engine.
type Notifier interface {
	OutputDevicesChanged()
}

// Filter is an optional audio processing collaborator (echo cancellation,
// noise suppression). A nil Filter is a valid configuration, not an error.
//
// Both methods process samples in place and are called from time-critical
// paths under the engine lock; they must not block.
type Filter interface {
	// ProcessCaptured filters one captured frame before gain is applied.
	ProcessCaptured(samples []int16)
	// ProcessPlaybackReference receives rendered output samples as the echo
	// reference signal.
	ProcessPlaybackReference(samples []int16)
}
