// Package sf2 parses SoundFont (.sf2) banks and resolves their
// preset/instrument/sample generator hierarchy into flat zones.
package sf2

import "errors"

// Fatal parse errors. Everything else is recorded in ParseLog and
// processing continues.
var (
	ErrNotSoundFont        = errors.New("not a valid SoundFont file")
	ErrUnsupportedBitWidth = errors.New("unsupported sample bit width")
	ErrTruncated           = errors.New("soundfont data truncated")
)

// Range is an inclusive low/high pair (MIDI key or velocity).
type Range struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// FullRange spans the whole MIDI value space.
var FullRange = Range{0, 127}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v int) bool {
	return r.Lo <= v && v <= r.Hi
}

// Intersect returns the overlap of two ranges. The result may be
// inverted (Lo > Hi) when the inputs do not overlap.
func (r Range) Intersect(other Range) Range {
	lo, hi := r.Lo, r.Hi
	if other.Lo > lo {
		lo = other.Lo
	}
	if other.Hi < hi {
		hi = other.Hi
	}
	return Range{lo, hi}
}

// Sample holds decoded PCM for one zone. Data is interleaved when
// Channels is 2. Loop points are frame indices relative to the
// (already trimmed) data.
type Sample struct {
	Name     string
	Data     []int
	Rate     int
	Channels int
}

// Frames returns the number of frames in the sample.
func (s *Sample) Frames() int {
	if s.Channels <= 0 {
		return 0
	}
	return len(s.Data) / s.Channels
}

// Envelope carries the raw generator values for one envelope kind.
// Each stage is optional; nil means the bank did not define it.
type Envelope struct {
	Present   bool
	DelayTC   *int // timecents
	AttackTC  *int
	HoldTC    *int
	DecayTC   *int
	SustainCB *int // centibels (volume) or the source's native unit
	ReleaseTC *int
}

// FXSend holds effect send amounts in percent (0-100).
type FXSend struct {
	Present bool
	Chorus  float64
	Reverb  float64
}

// Zone is the flattened result of merging the four generator bag
// levels for one sample reference.
type Zone struct {
	ID             int
	Preset         string
	Instrument     string
	RootKey        int
	KeyRange       Range
	VelRange       Range
	Sample         *Sample
	LoopStart      int
	LoopEnd        int
	LoopEnabled    bool
	LoopOnRelease  bool
	AmpEnv         Envelope
	ModEnv         Envelope
	FX             FXSend
	ExclusiveClass int
	CoarseTune     int
	FineTune       int // cents, includes the sample's pitch correction
}

// Preset is a named, ordered collection of resolved zones.
type Preset struct {
	Name    string
	Bank    int
	Program int
	IsDrum  bool
	Zones   []Zone
}

// SkippedZone records a zone dropped during resolution.
type SkippedZone struct {
	Preset      string `json:"preset"`
	Instrument  string `json:"instrument,omitempty"`
	Sample      string `json:"sample,omitempty"`
	Reason      string `json:"reason"`
	KeyRange    *Range `json:"key_range,omitempty"`
	VelRange    *Range `json:"vel_range,omitempty"`
	StartOffset int    `json:"start_offset,omitempty"`
	Frames      int    `json:"frames,omitempty"`
}

// ParseWarning records a non-fatal oddity noticed during resolution.
type ParseWarning struct {
	Preset     string `json:"preset"`
	Instrument string `json:"instrument,omitempty"`
	Sample     string `json:"sample,omitempty"`
	Reason     string `json:"reason"`
	FineCents  int    `json:"fine_cents,omitempty"`
	Trigger    string `json:"trigger,omitempty"`
}

// ParseLog accumulates resolver diagnostics.
type ParseLog struct {
	Warnings     []ParseWarning `json:"warnings"`
	SkippedZones []SkippedZone  `json:"skipped_zones"`
}

func (l *ParseLog) warn(w ParseWarning) { l.Warnings = append(l.Warnings, w) }
func (l *ParseLog) skip(s SkippedZone)  { l.SkippedZones = append(l.SkippedZones, s) }
