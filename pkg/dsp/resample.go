// Package dsp implements the PCM signal processing used by the
// converter: sample-rate conversion and loop-point helpers.
package dsp

import "math"

// Method selects the resampling algorithm.
type Method string

const (
	// MethodLinear interpolates between neighbouring samples. Fast,
	// but aliases when downsampling.
	MethodLinear Method = "linear"
	// MethodSinc applies a Blackman-windowed sinc filter with proper
	// anti-aliasing on downsampling.
	MethodSinc Method = "sinc"
)

// DefaultSincTaps is the one-sided tap count for MethodSinc.
const DefaultSincTaps = 16

// ResampleLinear converts a single-channel sample stream from srcRate
// to dstRate by linear interpolation. Equal rates return a copy.
func ResampleLinear(samples []int, srcRate, dstRate int) []int {
	if srcRate == dstRate {
		out := make([]int, len(samples))
		copy(out, samples)
		return out
	}
	ratio := float64(dstRate) / float64(srcRate)
	outLen := int(float64(len(samples)) * ratio)
	out := make([]int, 0, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		i1 := i0 + 1
		if i1 > len(samples)-1 {
			i1 = len(samples) - 1
		}
		frac := srcPos - float64(i0)
		v := float64(samples[i0])*(1-frac) + float64(samples[i1])*frac
		out = append(out, int(math.Round(v)))
	}
	return out
}

// blackmanWindow generates a Blackman window of length n.
func blackmanWindow(n int) []float64 {
	if n <= 1 {
		return []float64{1.0}
	}
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		w[i] = 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	}
	return w
}

// firLowpassKernel designs a windowed-sinc FIR lowpass kernel of
// length 2*numTaps+1. cutoffFraction is relative to the sample rate
// (0 to 0.5). The kernel is normalized to unity gain at DC.
func firLowpassKernel(numTaps int, cutoffFraction float64) []float64 {
	n := 2*numTaps + 1
	window := blackmanWindow(n)
	kernel := make([]float64, n)
	fc2 := 2.0 * cutoffFraction
	sum := 0.0
	for i := 0; i < n; i++ {
		x := float64(i - numTaps)
		if x == 0 {
			kernel[i] = fc2 * window[i]
		} else {
			kernel[i] = math.Sin(math.Pi*fc2*x) / (math.Pi * x) * window[i]
		}
		sum += kernel[i]
	}
	if sum != 0 {
		for i := range kernel {
			kernel[i] /= sum
		}
	}
	return kernel
}

// ResampleSinc converts a single-channel sample stream using a
// Blackman-windowed sinc filter. Integer-ratio downsampling uses a
// convolve-then-decimate fast path; the general case evaluates a
// weighted sinc sum per output sample, normalized by the applied
// weights so edges stay correct. Output is clamped to 16-bit range.
func ResampleSinc(samples []int, srcRate, dstRate, numTaps int) []int {
	if srcRate == dstRate {
		out := make([]int, len(samples))
		copy(out, samples)
		return out
	}
	if numTaps <= 0 {
		numTaps = DefaultSincTaps
	}
	nIn := len(samples)
	ratio := float64(dstRate) / float64(srcRate)

	if srcRate > dstRate && srcRate%dstRate == 0 {
		factor := srcRate / dstRate
		cutoff := 0.5 / float64(factor) * 0.9 // margin below Nyquist
		kernel := firLowpassKernel(numTaps*factor, cutoff)
		half := len(kernel) / 2
		out := make([]int, 0, (nIn+factor-1)/factor)
		for i := 0; i < nIn; i += factor {
			acc := 0.0
			jLo := i - half
			if jLo < 0 {
				jLo = 0
			}
			jHi := i + half
			if jHi > nIn-1 {
				jHi = nIn - 1
			}
			for j := jLo; j <= jHi; j++ {
				acc += float64(samples[j]) * kernel[half+(j-i)]
			}
			out = append(out, clamp16(math.Round(acc)))
		}
		return out
	}

	outLen := int(float64(nIn) * ratio)
	if outLen == 0 {
		return nil
	}
	cutoff := 1.0
	if ratio < 1.0 {
		cutoff = ratio
	}
	half := int(float64(numTaps) / cutoff)
	window := blackmanWindow(2*half + 1)
	winCutoff := make([]float64, len(window))
	for i, w := range window {
		winCutoff[i] = w * cutoff
	}

	out := make([]int, 0, outLen)
	lastN := nIn - 1
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		center := int(srcPos)
		frac := srcPos - float64(center)

		jLo := -half
		if -center > jLo {
			jLo = -center
		}
		jHi := half
		if lastN-center < jHi {
			jHi = lastN - center
		}

		acc, wsum := 0.0, 0.0
		for j := jLo; j <= jHi; j++ {
			x := (float64(j) - frac) * cutoff
			px := math.Pi * x
			s := 1.0
			if px > 1e-10 || px < -1e-10 {
				s = math.Sin(px) / px
			}
			w := s * winCutoff[j+half]
			acc += float64(samples[center+j]) * w
			wsum += w
		}
		if wsum != 0 {
			acc /= wsum
		}
		out = append(out, clamp16(math.Round(acc)))
	}
	return out
}

func clamp16(v float64) int {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int(v)
}

// ResampleFrames converts possibly multi-channel interleaved PCM.
// Channels are split, resampled independently, and re-interleaved,
// truncated to the shortest channel.
func ResampleFrames(pcm []int, channels, srcRate, dstRate int, method Method, numTaps int) []int {
	if srcRate == dstRate {
		out := make([]int, len(pcm))
		copy(out, pcm)
		return out
	}
	if channels <= 1 {
		return resampleOne(pcm, srcRate, dstRate, method, numTaps)
	}

	resampled := make([][]int, channels)
	frames := -1
	for ch := 0; ch < channels; ch++ {
		chData := make([]int, 0, len(pcm)/channels)
		for i := ch; i < len(pcm); i += channels {
			chData = append(chData, pcm[i])
		}
		resampled[ch] = resampleOne(chData, srcRate, dstRate, method, numTaps)
		if frames < 0 || len(resampled[ch]) < frames {
			frames = len(resampled[ch])
		}
	}

	out := make([]int, 0, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out = append(out, resampled[ch][i])
		}
	}
	return out
}

func resampleOne(samples []int, srcRate, dstRate int, method Method, numTaps int) []int {
	if method == MethodSinc {
		return ResampleSinc(samples, srcRate, dstRate, numTaps)
	}
	return ResampleLinear(samples, srcRate, dstRate)
}

// FrameAmplitude returns the peak absolute sample value across the
// channels of one frame.
func FrameAmplitude(pcm []int, frame, channels int) int {
	start := frame * channels
	maxAmp := 0
	for i := start; i < start+channels && i < len(pcm); i++ {
		v := pcm[i]
		if v < 0 {
			v = -v
		}
		if v > maxAmp {
			maxAmp = v
		}
	}
	return maxAmp
}
