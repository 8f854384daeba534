// Package opxy renders converted presets into OP-XY .preset bundles:
// a patch.json parameter document plus one 16-bit WAV per region.
package opxy

// ModRoute is one modulation source routing in the engine block.
type ModRoute struct {
	Amount int `json:"amount"`
	Target int `json:"target"`
}

// Modulation is the engine's modulation matrix.
type Modulation struct {
	Aftertouch ModRoute `json:"aftertouch"`
	Modwheel   ModRoute `json:"modwheel"`
	Pitchbend  ModRoute `json:"pitchbend"`
	Velocity   ModRoute `json:"velocity"`
}

// Engine mirrors the engine block of an OP-XY patch document.
type Engine struct {
	Bendrange           int        `json:"bendrange"`
	Highpass            int        `json:"highpass"`
	Modulation          Modulation `json:"modulation"`
	Params              [8]int     `json:"params"`
	Playmode            string     `json:"playmode"`
	PortamentoAmount    int        `json:"portamento.amount"`
	PortamentoType      int        `json:"portamento.type"`
	Transpose           int        `json:"transpose"`
	TuningRoot          int        `json:"tuning.root"`
	TuningScale         int        `json:"tuning.scale"`
	VelocitySensitivity int        `json:"velocity.sensitivity"`
	Volume              int        `json:"volume"`
	Width               int        `json:"width"`
}

// EnvelopeValues is one mapped envelope, all values 0-32767.
type EnvelopeValues struct {
	Attack  int `json:"attack"`
	Decay   int `json:"decay"`
	Release int `json:"release"`
	Sustain int `json:"sustain"`
}

// EnvelopeBlock pairs the amplitude and filter envelopes.
type EnvelopeBlock struct {
	Amp    EnvelopeValues `json:"amp"`
	Filter EnvelopeValues `json:"filter"`
}

// FXBlock is the effects section. Params[6] carries the delay send,
// Params[7] the reverb send.
type FXBlock struct {
	Active bool   `json:"active"`
	Params [8]int `json:"params"`
	Type   string `json:"type"`
}

// LFOBlock is the LFO section, carried through from the template.
type LFOBlock struct {
	Active bool   `json:"active"`
	Params [8]int `json:"params"`
	Type   string `json:"type"`
}

// Patch is the full patch.json document.
type Patch struct {
	Engine   Engine        `json:"engine"`
	Envelope EnvelopeBlock `json:"envelope"`
	FX       FXBlock       `json:"fx"`
	LFO      LFOBlock      `json:"lfo"`
	Name     string        `json:"name"`
	Octave   int           `json:"octave"`
	Platform string        `json:"platform"`
	Regions  []any         `json:"regions"`
	Type     string        `json:"type"`
	Version  int           `json:"version"`
}

// MultisampleRegion is one keyboard-mapped slice in a multisampler
// patch.
type MultisampleRegion struct {
	Framecount     int    `json:"framecount"`
	Gain           int    `json:"gain"`
	HiKey          int    `json:"hikey"`
	LoKey          int    `json:"lokey"`
	LoopCrossfade  int    `json:"loop.crossfade"`
	LoopEnd        int    `json:"loop.end"`
	LoopOnRelease  bool   `json:"loop.onrelease"`
	LoopEnabled    bool   `json:"loop.enabled"`
	LoopStart      int    `json:"loop.start"`
	PitchKeycenter int    `json:"pitch.keycenter"`
	Reverse        bool   `json:"reverse"`
	Sample         string `json:"sample"`
	SampleEnd      int    `json:"sample.end"`
	SampleStart    int    `json:"sample.start"`
	Tune           int    `json:"tune"`
}

// DrumRegion is one fixed-slot voice in a drum patch.
type DrumRegion struct {
	FadeIn         int    `json:"fade.in"`
	FadeOut        int    `json:"fade.out"`
	Framecount     int    `json:"framecount"`
	HiKey          int    `json:"hikey"`
	LoKey          int    `json:"lokey"`
	Pan            int    `json:"pan"`
	PitchKeycenter int    `json:"pitch.keycenter"`
	Playmode       string `json:"playmode"`
	Reverse        bool   `json:"reverse"`
	Sample         string `json:"sample"`
	Transpose      int    `json:"transpose"`
	Tune           int    `json:"tune"`
	Gain           int    `json:"gain"`
	SampleStart    int    `json:"sample.start"`
	SampleEnd      int    `json:"sample.end"`
}

// defaultMultisample returns a fresh copy of the multisampler patch
// template. The literal is never shared; every call builds a new
// value that callers may mutate.
func defaultMultisample() Patch {
	return Patch{
		Engine: Engine{
			Bendrange: 13653,
			Modulation: Modulation{
				Aftertouch: ModRoute{Amount: 30719, Target: 4096},
				Modwheel:   ModRoute{Amount: 32767, Target: 10240},
				Pitchbend:  ModRoute{Amount: 16383, Target: 0},
				Velocity:   ModRoute{Amount: 16383, Target: 0},
			},
			Params:              [8]int{16384, 16384, 16384, 16384, 16384, 16384, 16384, 16384},
			Playmode:            "poly",
			PortamentoType:      32767,
			VelocitySensitivity: 10240,
			Volume:              16466,
			Width:               3072,
		},
		Envelope: EnvelopeBlock{
			Amp:    EnvelopeValues{Attack: 0, Decay: 20295, Release: 16383, Sustain: 14989},
			Filter: EnvelopeValues{Attack: 0, Decay: 16895, Release: 19968, Sustain: 16896},
		},
		FX:       FXBlock{Params: [8]int{19661, 0, 7391, 24063, 0, 32767, 0, 0}, Type: "svf"},
		LFO:      LFOBlock{Params: [8]int{19024, 32255, 4048, 17408, 0, 0, 0, 0}, Type: "element"},
		Platform: "OP-XY",
		Regions:  []any{},
		Type:     "multisampler",
		Version:  4,
	}
}

// defaultDrum returns a fresh copy of the drum patch template.
func defaultDrum() Patch {
	return Patch{
		Engine: Engine{
			Bendrange: 8191,
			Modulation: Modulation{
				Aftertouch: ModRoute{Amount: 16383, Target: 0},
				Modwheel:   ModRoute{Amount: 16383, Target: 0},
				Pitchbend:  ModRoute{Amount: 16383, Target: 0},
				Velocity:   ModRoute{Amount: 16383, Target: 0},
			},
			Params:              [8]int{16384, 16384, 16384, 16384, 16384, 16384, 16384, 16384},
			Playmode:            "poly",
			PortamentoType:      32767,
			VelocitySensitivity: 19660,
			Volume:              18348,
		},
		Envelope: EnvelopeBlock{
			Amp:    EnvelopeValues{Attack: 0, Decay: 0, Release: 1000, Sustain: 32767},
			Filter: EnvelopeValues{Attack: 0, Decay: 3276, Release: 23757, Sustain: 983},
		},
		FX:       FXBlock{Params: [8]int{22014, 0, 30285, 11880, 0, 32767, 0, 0}, Type: "ladder"},
		LFO:      LFOBlock{Params: [8]int{20309, 5679, 19114, 15807, 0, 0, 0, 12287}, Type: "random"},
		Platform: "OP-XY",
		Regions:  []any{},
		Type:     "drum",
		Version:  4,
	}
}
