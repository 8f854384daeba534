package sf2

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Hydra record sizes from the SoundFont 2 specification.
const (
	phdrSize = 38
	bagSize  = 4
	genSize  = 4
	instSize = 22
	shdrSize = 46
)

// sample types from shdr.sfSampleType
const (
	sampleTypeMono  = 1
	sampleTypeRight = 2
	sampleTypeLeft  = 4
	sampleTypeROM   = 0x8000
)

type presetHeader struct {
	name    string
	program int
	bank    int
	bagIdx  int
}

type instHeader struct {
	name   string
	bagIdx int
}

type bagRef struct {
	genIdx int
}

type genRec struct {
	oper   uint16
	amount [2]byte
}

type sampleHeader struct {
	name            string
	start, end      int // absolute sample-data indices
	loopStart       int
	loopEnd         int
	rate            int
	originalPitch   int
	pitchCorrection int // cents, signed
	link            int
	sampleType      int
}

// Bank is a parsed SoundFont file: the raw hydra structures plus the
// sample data chunks. It is the input to Resolve.
type Bank struct {
	presets []presetHeader
	pbags   []bagRef
	pgens   []genRec
	insts   []instHeader
	ibags   []bagRef
	igens   []genRec
	shdrs   []sampleHeader

	smpl []byte // 16-bit sample words
	sm24 []byte // optional low bytes for 24-bit banks

	sampleWidth int // bytes per source sample, 2 or 3
}

// ParseFile reads and parses a .sf2 file.
func ParseFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read soundfont: %w", err)
	}
	return Parse(data)
}

// Parse parses SoundFont data. It returns a fatal error for anything
// that is not a structurally valid bank; per-zone problems are left
// to the resolver.
func Parse(data []byte) (*Bank, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "sfbk" {
		return nil, ErrNotSoundFont
	}
	riffLen := int(binary.LittleEndian.Uint32(data[4:8]))
	if riffLen+8 > len(data) {
		return nil, ErrTruncated
	}

	b := &Bank{sampleWidth: 2}

	// Walk the LIST chunks inside the sfbk form.
	pos := 12
	for pos+8 <= len(data) {
		ckID := string(data[pos : pos+4])
		ckLen := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+ckLen > len(data) {
			return nil, ErrTruncated
		}
		if ckID == "LIST" && ckLen >= 4 {
			listType := string(data[body : body+4])
			sub := data[body+4 : body+ckLen]
			switch listType {
			case "sdta":
				if err := b.parseSdta(sub); err != nil {
					return nil, err
				}
			case "pdta":
				if err := b.parsePdta(sub); err != nil {
					return nil, err
				}
			}
		}
		pos = body + ckLen
		if ckLen%2 == 1 {
			pos++ // RIFF chunks are word aligned
		}
	}

	if len(b.presets) == 0 || len(b.shdrs) == 0 {
		return nil, ErrNotSoundFont
	}
	if len(b.sm24) > 0 {
		b.sampleWidth = 3
	}
	if b.sampleWidth != 2 && b.sampleWidth != 3 {
		return nil, fmt.Errorf("%w: %d bytes", ErrUnsupportedBitWidth, b.sampleWidth)
	}
	return b, nil
}

func (b *Bank) parseSdta(data []byte) error {
	for pos := 0; pos+8 <= len(data); {
		ckID := string(data[pos : pos+4])
		ckLen := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+ckLen > len(data) {
			return ErrTruncated
		}
		switch ckID {
		case "smpl":
			b.smpl = data[body : body+ckLen]
		case "sm24":
			b.sm24 = data[body : body+ckLen]
		}
		pos = body + ckLen
		if ckLen%2 == 1 {
			pos++
		}
	}
	return nil
}

func (b *Bank) parsePdta(data []byte) error {
	for pos := 0; pos+8 <= len(data); {
		ckID := string(data[pos : pos+4])
		ckLen := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+ckLen > len(data) {
			return ErrTruncated
		}
		chunk := data[body : body+ckLen]
		switch ckID {
		case "phdr":
			b.parsePhdr(chunk)
		case "pbag":
			b.pbags = parseBags(chunk)
		case "pgen":
			b.pgens = parseGens(chunk)
		case "inst":
			b.parseInst(chunk)
		case "ibag":
			b.ibags = parseBags(chunk)
		case "igen":
			b.igens = parseGens(chunk)
		case "shdr":
			b.parseShdr(chunk)
		}
		pos = body + ckLen
		if ckLen%2 == 1 {
			pos++
		}
	}
	return nil
}

func (b *Bank) parsePhdr(data []byte) {
	for i := 0; i+phdrSize <= len(data); i += phdrSize {
		rec := data[i : i+phdrSize]
		b.presets = append(b.presets, presetHeader{
			name:    zeroTerm(rec[0:20]),
			program: int(binary.LittleEndian.Uint16(rec[20:22])),
			bank:    int(binary.LittleEndian.Uint16(rec[22:24])),
			bagIdx:  int(binary.LittleEndian.Uint16(rec[24:26])),
		})
	}
}

func (b *Bank) parseInst(data []byte) {
	for i := 0; i+instSize <= len(data); i += instSize {
		rec := data[i : i+instSize]
		b.insts = append(b.insts, instHeader{
			name:   zeroTerm(rec[0:20]),
			bagIdx: int(binary.LittleEndian.Uint16(rec[20:22])),
		})
	}
}

func parseBags(data []byte) []bagRef {
	var bags []bagRef
	for i := 0; i+bagSize <= len(data); i += bagSize {
		bags = append(bags, bagRef{
			genIdx: int(binary.LittleEndian.Uint16(data[i : i+2])),
		})
	}
	return bags
}

func parseGens(data []byte) []genRec {
	var gens []genRec
	for i := 0; i+genSize <= len(data); i += genSize {
		gens = append(gens, genRec{
			oper:   binary.LittleEndian.Uint16(data[i : i+2]),
			amount: [2]byte{data[i+2], data[i+3]},
		})
	}
	return gens
}

func (b *Bank) parseShdr(data []byte) {
	for i := 0; i+shdrSize <= len(data); i += shdrSize {
		rec := data[i : i+shdrSize]
		b.shdrs = append(b.shdrs, sampleHeader{
			name:            zeroTerm(rec[0:20]),
			start:           int(binary.LittleEndian.Uint32(rec[20:24])),
			end:             int(binary.LittleEndian.Uint32(rec[24:28])),
			loopStart:       int(binary.LittleEndian.Uint32(rec[28:32])),
			loopEnd:         int(binary.LittleEndian.Uint32(rec[32:36])),
			rate:            int(binary.LittleEndian.Uint32(rec[36:40])),
			originalPitch:   int(rec[40]),
			pitchCorrection: int(int8(rec[41])),
			link:            int(binary.LittleEndian.Uint16(rec[42:44])),
			sampleType:      int(binary.LittleEndian.Uint16(rec[44:46])),
		})
	}
}

// zeroTerm decodes a fixed-width zero-terminated name field.
func zeroTerm(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
