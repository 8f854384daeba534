package sf2

// decodedSample is a cached, untrimmed PCM decode of one mono sample
// or one linked stereo pair. Loop points and pitch correction come
// from the left (referenced) header.
type decodedSample struct {
	pcm             []int
	rate            int
	channels        int
	loopStart       int // frames, absolute within pcm
	loopEnd         int
	pitchCorrection int
}

type pairKey struct {
	left  int
	right int // -1 for mono
}

// decodePCM decodes the sample's raw bytes into signed integers.
// 24-bit banks carry the extra low byte in sm24; the decoded value is
// reduced to 16-bit significance like the converter's output format.
func (b *Bank) decodePCM(h sampleHeader) ([]int, bool) {
	n := h.end - h.start
	if n <= 0 || h.start < 0 || h.end*2 > len(b.smpl) {
		return nil, false
	}
	out := make([]int, n)
	switch b.sampleWidth {
	case 2:
		for i := 0; i < n; i++ {
			off := (h.start + i) * 2
			out[i] = int(int16(uint16(b.smpl[off]) | uint16(b.smpl[off+1])<<8))
		}
	case 3:
		if h.end > len(b.sm24) {
			return nil, false
		}
		for i := 0; i < n; i++ {
			off := (h.start + i) * 2
			hi := int32(int16(uint16(b.smpl[off]) | uint16(b.smpl[off+1])<<8))
			v := hi<<8 | int32(b.sm24[h.start+i])
			out[i] = int(v >> 8)
		}
	default:
		return nil, false
	}
	return out, true
}

// samplePair decodes sample idx, pairing it with its stereo link when
// the header marks it non-mono. Results are cached so repeated zone
// references do not decode twice.
func (b *Bank) samplePair(idx int, cache map[pairKey]*decodedSample) *decodedSample {
	if idx < 0 || idx >= len(b.shdrs) {
		return nil
	}
	h := b.shdrs[idx]
	if h.name == "EOS" || h.sampleType&sampleTypeROM != 0 {
		return nil
	}

	mono := h.sampleType&(sampleTypeLeft|sampleTypeRight) == 0
	key := pairKey{left: idx, right: -1}
	if !mono {
		key.right = h.link
	}
	if cached, ok := cache[key]; ok {
		return cached
	}

	pcm, ok := b.decodePCM(h)
	if !ok {
		return nil
	}
	ds := &decodedSample{
		pcm:             pcm,
		rate:            h.rate,
		channels:        1,
		loopStart:       h.loopStart - h.start,
		loopEnd:         h.loopEnd - h.start,
		pitchCorrection: h.pitchCorrection,
	}

	if !mono && h.link >= 0 && h.link < len(b.shdrs) {
		if rightPCM, ok := b.decodePCM(b.shdrs[h.link]); ok {
			frames := len(pcm)
			if len(rightPCM) < frames {
				frames = len(rightPCM)
			}
			interleaved := make([]int, 0, frames*2)
			for i := 0; i < frames; i++ {
				interleaved = append(interleaved, pcm[i], rightPCM[i])
			}
			ds.pcm = interleaved
			ds.channels = 2
		}
	}

	cache[key] = ds
	return ds
}
