package audio

// maxQueuedBuffers caps the number of in-flight buffers per voice. Once the
// cap is reached and nothing has been consumed, further submissions are
// dropped until the mixer catches up.
const maxQueuedBuffers = 16

// pcmBuffer is one queued block of samples, already in engine format.
// Buffers are recycled through the voice's processed list to keep steady
// playback allocation-free.
type pcmBuffer struct {
	samples []int16
}

// voice is a software playback channel. Call audio streams through the
// bounded queue; the dedicated one-shot voice instead plays a single
// attached clip, optionally looping.
//
// All fields are guarded by the engine lock.
type voice struct {
	id VoiceID

	// Streaming state.
	queued    []*pcmBuffer // in-flight, queued[0] is being rendered
	processed []*pcmBuffer // fully rendered, awaiting reclamation
	pos       int          // sample offset into the active buffer

	// One-shot state.
	clip    []int16 // attached static clip, nil when detached
	looping bool

	playing bool
}

// reclaimBuffer returns a buffer for the next submission following the
// recycle discipline: if any processed buffers exist, all but one are
// released and the survivor is reused. Otherwise a fresh buffer is allocated
// unless the in-flight queue is at capacity, in which case nil is returned
// and the caller must drop the frame.
func (v *voice) reclaimBuffer() *pcmBuffer {
	if len(v.processed) > 0 {
		buf := v.processed[0]
		v.processed = v.processed[:0]
		return buf
	}
	if len(v.queued) < maxQueuedBuffers {
		return &pcmBuffer{}
	}
	return nil
}

// enqueue appends a filled buffer and restarts the voice if it starved and
// stopped. Looping never applies to streamed buffers.
func (v *voice) enqueue(buf *pcmBuffer) {
	v.queued = append(v.queued, buf)
	v.looping = false
	if !v.playing {
		v.playing = true
	}
}

// attachClip replaces any in-progress clip with a new one and starts it from
// the beginning.
func (v *voice) attachClip(samples []int16) {
	v.clip = samples
	v.pos = 0
	v.playing = true
}

// detachClip stops one-shot playback and releases the clip samples.
func (v *voice) detachClip() {
	v.clip = nil
	v.pos = 0
	v.playing = false
}

// mixInto accumulates up to len(acc) samples of this voice into acc,
// advancing queue and clip positions. Exhausted stream buffers move to the
// processed list; a drained queue stops the voice until the next submission
// restarts it.
func (v *voice) mixInto(acc []int32) {
	if !v.playing {
		return
	}

	if v.clip != nil {
		v.mixClip(acc)
		return
	}

	filled := 0
	for filled < len(acc) && len(v.queued) > 0 {
		cur := v.queued[0]
		for filled < len(acc) && v.pos < len(cur.samples) {
			acc[filled] += int32(cur.samples[v.pos])
			filled++
			v.pos++
		}
		if v.pos >= len(cur.samples) {
			v.processed = append(v.processed, cur)
			v.queued = v.queued[1:]
			v.pos = 0
		}
	}
	if len(v.queued) == 0 {
		v.playing = false
	}
}

func (v *voice) mixClip(acc []int32) {
	if len(v.clip) == 0 {
		v.playing = false
		return
	}
	for i := range acc {
		if v.pos >= len(v.clip) {
			if !v.looping {
				v.playing = false
				return
			}
			v.pos = 0
		}
		acc[i] += int32(v.clip[v.pos])
		v.pos++
	}
}
