package converter

import "github.com/charlesvestal/sf2-to-opxy/pkg/dsp"

// loopState carries one region's loop bounds through the processing
// steps.
type loopState struct {
	Start, End int
	Enabled    bool
	OnRelease  bool
}

// processLoop validates loop bounds against the final frame count.
// A loop that collapses after clamping is disabled, not kept invalid.
func processLoop(ls loopState, framecount int, zone ZoneRef, log *Log) loopState {
	if !ls.Enabled || framecount <= 0 {
		return loopState{}
	}
	start, end := ls.Start, ls.End
	if start < 0 {
		start = 0
	} else if start > framecount-1 {
		start = framecount - 1
	}
	if end > framecount {
		end = framecount
	}
	if end <= start {
		log.warn(Warning{
			Preset: zone.Preset,
			Zone:   &zone,
			Reason: "invalid_loop",
			Before: []int{ls.Start, ls.End},
		})
		return loopState{}
	}
	return loopState{Start: start, End: end, Enabled: true, OnRelease: ls.OnRelease}
}

// snapToQuiet searches outward from target for the frame with the
// lowest amplitude, stopping early at the first frame at or below the
// near-silence threshold. The search never leaves [lo, hi].
func snapToQuiet(amp func(frame int) int, target, lo, hi, maxDistance, threshold int) int {
	if target < lo {
		target = lo
	} else if target > hi {
		target = hi
	}
	best := target
	bestAmp := amp(target)
	if bestAmp <= threshold {
		return target
	}
	for d := 1; d <= maxDistance; d++ {
		for _, f := range [2]int{target + d, target - d} {
			if f < lo || f > hi {
				continue
			}
			a := amp(f)
			if a <= threshold {
				return f
			}
			if a < bestAmp {
				best = f
				bestAmp = a
			}
		}
	}
	return best
}

// adjustLoopZeroCrossing snaps both loop bounds to near-silent frames
// so the loop seam does not click. The end search stays after the
// adjusted start; an adjustment that would invert the loop is
// discarded.
func (c *Converter) adjustLoopZeroCrossing(ls loopState, pcm []int, channels int, zone ZoneRef, log *Log) loopState {
	if !ls.Enabled || channels <= 0 {
		return ls
	}
	frames := len(pcm) / channels
	if frames < 2 {
		return ls
	}
	amp := func(frame int) int {
		return dsp.FrameAmplitude(pcm, frame, channels)
	}
	// The last audible frame of the loop is End-1 since End is
	// exclusive.
	endProbe := func(frame int) int {
		return amp(frame - 1)
	}

	maxDist := c.cfg.ZeroCrossingMaxDistance
	threshold := c.cfg.ZeroCrossingThreshold

	start := snapToQuiet(amp, ls.Start, 0, frames-1, maxDist, threshold)
	end := snapToQuiet(endProbe, ls.End, start+1, frames, maxDist, threshold)
	if end <= start {
		return ls
	}
	if start == ls.Start && end == ls.End {
		return ls
	}
	log.warn(Warning{
		Preset: zone.Preset,
		Zone:   &zone,
		Reason: "loop_zero_crossing_adjusted",
		Before: []int{ls.Start, ls.End},
		After:  []int{start, end},
	})
	return loopState{Start: start, End: end, Enabled: true, OnRelease: ls.OnRelease}
}

// ApplyLoopEndOffset shifts the loop end by a fixed offset, clamped
// so the result stays within (loopStart, framecount].
func ApplyLoopEndOffset(loopStart, loopEnd, framecount, offset int) int {
	end := loopEnd + offset
	if end < loopStart+1 {
		end = loopStart + 1
	}
	if end > framecount {
		end = framecount
	}
	return end
}
