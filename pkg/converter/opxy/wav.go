package opxy

import (
	"encoding/binary"
	"errors"
)

// ErrUnsupportedBitDepth is returned for any output depth other than
// the 16-bit PCM the target engine reads.
var ErrUnsupportedBitDepth = errors.New("only 16-bit WAV output supported")

// EncodeWAV renders interleaved integer samples as a little-endian
// PCM WAV container. Samples outside the 16-bit range are clamped.
func EncodeWAV(samples []int, sampleRate, channels, bitDepth int) ([]byte, error) {
	if bitDepth != 16 {
		return nil, ErrUnsupportedBitDepth
	}
	dataLen := len(samples) * 2
	buf := make([]byte, 0, 44+dataLen)

	le := binary.LittleEndian
	u32 := func(v uint32) []byte {
		var b [4]byte
		le.PutUint32(b[:], v)
		return b[:]
	}
	u16 := func(v uint16) []byte {
		var b [2]byte
		le.PutUint16(b[:], v)
		return b[:]
	}

	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2

	buf = append(buf, "RIFF"...)
	buf = append(buf, u32(uint32(36+dataLen))...)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...) // PCM
	buf = append(buf, u16(uint16(channels))...)
	buf = append(buf, u32(uint32(sampleRate))...)
	buf = append(buf, u32(uint32(byteRate))...)
	buf = append(buf, u16(uint16(blockAlign))...)
	buf = append(buf, u16(16)...)
	buf = append(buf, "data"...)
	buf = append(buf, u32(uint32(dataLen))...)

	for _, s := range samples {
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		var b [2]byte
		le.PutUint16(b[:], uint16(int16(s)))
		buf = append(buf, b[:]...)
	}
	return buf, nil
}
