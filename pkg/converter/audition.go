package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

const (
	auditionTicksPerQuarter = 480
	auditionTempo           = 120.0
)

// BuildAuditionSMF renders a standard MIDI file that plays the given
// keys in ascending order, one quarter note each. Loading it next to
// a converted preset sweeps every region once.
func BuildAuditionSMF(keys []int) ([]byte, error) {
	if len(keys) == 0 {
		return nil, errors.New("no keys to audition")
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(auditionTicksPerQuarter)

	var track smf.Track

	microsecondsPerBeat := uint32(60000000.0 / auditionTempo)
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	}))

	noteTicks := uint32(auditionTicksPerQuarter)
	gateTicks := noteTicks * 3 / 4

	channel := uint8(0)
	for i, key := range keys {
		if key < 0 || key > 127 {
			return nil, fmt.Errorf("key %d out of MIDI range", key)
		}
		delta := uint32(0)
		if i > 0 {
			delta = noteTicks - gateTicks
		}
		track.Add(delta, midi.NoteOn(channel, uint8(key), 100))
		track.Add(gateTicks, midi.NoteOff(channel, uint8(key)))
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("add audition track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write audition midi: %w", err)
	}
	return buf.Bytes(), nil
}

// AuditionKeys returns the distinct root keys of a preset in playing
// order.
func AuditionKeys(p *sf2.Preset) []int {
	seen := map[int]bool{}
	var keys []int
	for i := range p.Zones {
		k := p.Zones[i].RootKey
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	return keys
}

// WriteAuditionFile writes an audition MIDI file for one preset.
func WriteAuditionFile(p *sf2.Preset, path string) error {
	data, err := BuildAuditionSMF(AuditionKeys(p))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
