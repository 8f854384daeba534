package opxy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Region is one playable slice handed over by the conversion
// pipeline, ready to be rendered as a WAV plus a region descriptor.
type Region struct {
	Sample        string // output WAV filename
	PCM           []int
	SampleRate    int
	Channels      int
	RootKey       int
	LoKey         int
	HiKey         int
	LoopStart     int
	LoopEnd       int
	LoopEnabled   bool
	LoopOnRelease bool
	Framecount    int
	SlotNote      int    // fixed MIDI slot for drum regions
	Playmode      string // drum region play mode, defaults to oneshot
}

// FXLevels carries the aggregated effect sends in target units plus
// the source percentages for diagnostics.
type FXLevels struct {
	DelaySend     int     `json:"delay_send"`
	ReverbSend    int     `json:"reverb_send"`
	ChorusPercent float64 `json:"chorus_percent"`
	ReverbPercent float64 `json:"reverb_percent"`
}

// PresetDoc is everything the writer needs for one preset bundle.
// Nil envelope/FX blocks fall back to the template defaults.
type PresetDoc struct {
	Name      string
	Regions   []Region
	AmpEnv    *EnvelopeValues
	FilterEnv *EnvelopeValues
	FX        *FXLevels
	Playmode  string
}

// DrumCenterKey is the fixed pitch keycenter of drum regions.
const DrumCenterKey = 60

// EnsurePresetDir appends the bundle extension marker when missing.
func EnsurePresetDir(path string) string {
	if strings.HasSuffix(path, ".preset") {
		return path
	}
	return path + ".preset"
}

// SanitizeName reduces a preset or sample name to a filesystem-safe
// token.
func SanitizeName(name string) string {
	var sb strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == '_', ch == '-', ch == ' ':
			sb.WriteRune(ch)
		default:
			sb.WriteRune('_')
		}
	}
	out := strings.TrimSpace(sb.String())
	out = strings.ReplaceAll(out, "  ", " ")
	out = strings.ReplaceAll(out, " ", "_")
	if out == "" {
		return "preset"
	}
	return out
}

func applyEnvelope(patch *Patch, amp, filter *EnvelopeValues) {
	if amp != nil {
		patch.Envelope.Amp = *amp
	}
	if filter != nil {
		patch.Envelope.Filter = *filter
	}
}

func applyFX(patch *Patch, fx *FXLevels) {
	if fx == nil {
		return
	}
	patch.FX.Params[6] = fx.DelaySend
	patch.FX.Params[7] = fx.ReverbSend
	patch.FX.Active = fx.DelaySend > 0 || fx.ReverbSend > 0
}

// WriteMultisample writes one multisampler bundle: the WAV per region
// and patch.json with keyboard-mapped region descriptors.
func WriteMultisample(doc *PresetDoc, outDir string) error {
	dir := EnsurePresetDir(outDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create preset dir: %w", err)
	}

	patch := defaultMultisample()
	patch.Name = doc.Name
	if doc.Playmode != "" {
		patch.Engine.Playmode = doc.Playmode
	}
	applyEnvelope(&patch, doc.AmpEnv, doc.FilterEnv)
	applyFX(&patch, doc.FX)

	for _, region := range doc.Regions {
		if err := writeRegionWAV(dir, region); err != nil {
			return err
		}
		patch.Regions = append(patch.Regions, MultisampleRegion{
			Framecount:     region.Framecount,
			HiKey:          region.HiKey,
			LoKey:          region.LoKey,
			LoopEnd:        region.LoopEnd,
			LoopOnRelease:  region.LoopOnRelease,
			LoopEnabled:    region.LoopEnabled,
			LoopStart:      region.LoopStart,
			PitchKeycenter: region.RootKey,
			Sample:         region.Sample,
			SampleEnd:      region.Framecount,
		})
	}

	return writePatch(dir, &patch)
}

// WriteDrum writes one drum bundle with fixed-slot region
// descriptors.
func WriteDrum(doc *PresetDoc, outDir string) error {
	dir := EnsurePresetDir(outDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create preset dir: %w", err)
	}

	patch := defaultDrum()
	patch.Name = doc.Name
	applyEnvelope(&patch, doc.AmpEnv, doc.FilterEnv)
	applyFX(&patch, doc.FX)

	for _, region := range doc.Regions {
		if err := writeRegionWAV(dir, region); err != nil {
			return err
		}
		playmode := region.Playmode
		if playmode == "" {
			playmode = "oneshot"
		}
		patch.Regions = append(patch.Regions, DrumRegion{
			Framecount:     region.Framecount,
			HiKey:          region.SlotNote,
			LoKey:          region.SlotNote,
			PitchKeycenter: DrumCenterKey,
			Playmode:       playmode,
			Sample:         region.Sample,
			SampleEnd:      region.Framecount,
		})
	}

	return writePatch(dir, &patch)
}

func writeRegionWAV(dir string, region Region) error {
	data, err := EncodeWAV(region.PCM, region.SampleRate, region.Channels, 16)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, region.Sample)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write region wav: %w", err)
	}
	return nil
}

func writePatch(dir string, patch *Patch) error {
	data, err := json.MarshalIndent(patch, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	path := filepath.Join(dir, "patch.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write patch.json: %w", err)
	}
	return nil
}
