// Package converter drives the end-to-end conversion of resolved
// SoundFont presets into OP-XY preset bundles: velocity filtering,
// zone selection, envelope and effect aggregation, loop processing,
// and region assembly.
package converter

import (
	"github.com/charlesvestal/sf2-to-opxy/pkg/converter/opxy"
	"github.com/charlesvestal/sf2-to-opxy/pkg/dsp"
	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

// Velocity handling modes.
const (
	VelocityKeep  = "keep"  // one preset, filtered to matching zones
	VelocitySplit = "split" // one preset variant per target velocity
)

// Drum velocity selection modes.
const (
	DrumClosest = "closest" // best zone per root key by distance
	DrumStrict  = "strict"  // only zones covering a target velocity
)

// Forced conversion modes.
const (
	ModeAuto       = "auto"
	ModeDrum       = "drum"
	ModeInstrument = "instrument"
)

// PlaymodeAuto infers the engine playmode from preset names and
// exclusive classes.
const PlaymodeAuto = "auto"

// Keyboard mapping bounds and capacity of the target engine.
const (
	KeyboardMin      = 21
	KeyboardMax      = 108
	MaxKeyboardZones = 24
	DrumChunkSize    = 24
	DrumSlotBase     = 53
)

// Config holds every knob of a conversion run.
type Config struct {
	OutDir           string
	Velocities       []int
	VelocityMode     string // keep | split
	SampleRate       int    // 0 keeps the source rate
	BitDepth         int
	Resample         bool
	ResampleMethod   dsp.Method
	SincTaps         int
	DryRun           bool
	ForceMode        string // auto | drum | instrument
	Playmode         string // auto | poly | mono | legato
	DrumVelocityMode string // closest | strict

	ZeroCrossing            bool
	ZeroCrossingMaxDistance int
	ZeroCrossingThreshold   int
	LoopEndOffset           int

	Heuristic sf2.DrumHeuristic
}

// DefaultConfig returns the settings used when no flags are given.
func DefaultConfig() Config {
	return Config{
		OutDir:                  ".",
		Velocities:              []int{101},
		VelocityMode:            VelocityKeep,
		SampleRate:              22050,
		BitDepth:                16,
		Resample:                true,
		ResampleMethod:          dsp.MethodLinear,
		SincTaps:                dsp.DefaultSincTaps,
		ForceMode:               ModeAuto,
		Playmode:                PlaymodeAuto,
		DrumVelocityMode:        DrumClosest,
		ZeroCrossing:            true,
		ZeroCrossingMaxDistance: 1000,
		ZeroCrossingThreshold:   1,
		Heuristic:               sf2.DefaultDrumHeuristic(),
	}
}

// ZoneRef describes a zone in diagnostics output.
type ZoneRef struct {
	Preset     string     `json:"preset"`
	Instrument string     `json:"instrument,omitempty"`
	Sample     string     `json:"sample,omitempty"`
	RootKey    int        `json:"root_key"`
	KeyRange   *sf2.Range `json:"key_range,omitempty"`
	VelRange   *sf2.Range `json:"vel_range,omitempty"`
}

func refZone(z *sf2.Zone) ZoneRef {
	ref := ZoneRef{
		Preset:     z.Preset,
		Instrument: z.Instrument,
		RootKey:    z.RootKey,
		KeyRange:   &sf2.Range{Lo: z.KeyRange.Lo, Hi: z.KeyRange.Hi},
		VelRange:   &sf2.Range{Lo: z.VelRange.Lo, Hi: z.VelRange.Hi},
	}
	if z.Sample != nil {
		ref.Sample = z.Sample.Name
	}
	return ref
}

// Discard records a zone removed by selection, with the winning
// velocity range attached for drum tie-breaks.
type Discard struct {
	Reason           string     `json:"reason"`
	Zone             ZoneRef    `json:"zone"`
	SelectedVelRange *sf2.Range `json:"selected_vel_range,omitempty"`
}

// Warning records a non-fatal conversion oddity.
type Warning struct {
	Preset   string   `json:"preset,omitempty"`
	Reason   string   `json:"reason"`
	Zone     *ZoneRef `json:"zone,omitempty"`
	Variants int      `json:"variants,omitempty"`
	Missing  int      `json:"missing,omitempty"`
	Value    int      `json:"value,omitempty"`
	Before   []int    `json:"before,omitempty"`
	After    []int    `json:"after,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

// PresetSummary is the per-preset line of the conversion log.
type PresetSummary struct {
	Name      string               `json:"name"`
	Type      string               `json:"type"` // multisampler | drum
	ZonesSeen int                  `json:"zones_seen"`
	ZonesKept int                  `json:"zones_kept"`
	Regions   int                  `json:"regions"`
	Playmode  string               `json:"playmode,omitempty"`
	Envelope  *opxy.EnvelopeValues `json:"envelope,omitempty"`
	FX        *opxy.FXLevels       `json:"fx,omitempty"`
	OutputDir string               `json:"output_dir,omitempty"`
}

// Log accumulates all diagnostics of one conversion run.
type Log struct {
	Discarded []Discard       `json:"discarded"`
	Warnings  []Warning       `json:"warnings"`
	Presets   []PresetSummary `json:"presets"`
	Parse     *sf2.ParseLog   `json:"parse,omitempty"`
}

func (l *Log) discard(d Discard) { l.Discarded = append(l.Discarded, d) }
func (l *Log) warn(w Warning)    { l.Warnings = append(l.Warnings, w) }

// Converter runs the conversion pipeline with a fixed Config.
type Converter struct {
	cfg Config
}

// New creates a Converter. Zero-valued config fields fall back to
// their defaults.
func New(cfg Config) *Converter {
	def := DefaultConfig()
	if cfg.OutDir == "" {
		cfg.OutDir = def.OutDir
	}
	if len(cfg.Velocities) == 0 {
		cfg.Velocities = def.Velocities
	}
	if cfg.VelocityMode == "" {
		cfg.VelocityMode = def.VelocityMode
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.BitDepth == 0 {
		cfg.BitDepth = def.BitDepth
	}
	if cfg.ResampleMethod == "" {
		cfg.ResampleMethod = def.ResampleMethod
	}
	if cfg.SincTaps == 0 {
		cfg.SincTaps = def.SincTaps
	}
	if cfg.ForceMode == "" {
		cfg.ForceMode = def.ForceMode
	}
	if cfg.Playmode == "" {
		cfg.Playmode = def.Playmode
	}
	if cfg.DrumVelocityMode == "" {
		cfg.DrumVelocityMode = def.DrumVelocityMode
	}
	if cfg.ZeroCrossingMaxDistance == 0 {
		cfg.ZeroCrossingMaxDistance = def.ZeroCrossingMaxDistance
	}
	if len(cfg.Heuristic.NameTokens) == 0 && cfg.Heuristic.SingleNoteRatio == 0 {
		cfg.Heuristic = def.Heuristic
	}
	return &Converter{cfg: cfg}
}

// Heuristic exposes the drum classification thresholds in use.
func (c *Converter) Heuristic() sf2.DrumHeuristic {
	return c.cfg.Heuristic
}
