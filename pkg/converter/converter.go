package converter

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/charlesvestal/sf2-to-opxy/pkg/converter/opxy"
	"github.com/charlesvestal/sf2-to-opxy/pkg/dsp"
	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

// ConvertFile parses one SoundFont bank and converts every preset in
// it. The returned log carries all diagnostics including the parser's
// own; the error is non-nil only for fatal conditions (unreadable or
// invalid input).
func (c *Converter) ConvertFile(path string) (*Log, error) {
	bank, err := sf2.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	presets, parseLog := bank.Resolve(c.cfg.Heuristic)
	log := &Log{Parse: parseLog}
	if err := c.ConvertPresets(presets, log); err != nil {
		return log, err
	}
	return log, nil
}

// ConvertPresets runs the conversion pipeline over already-resolved
// presets, appending diagnostics to log.
func (c *Converter) ConvertPresets(presets []sf2.Preset, log *Log) error {
	if c.cfg.BitDepth != 16 {
		log.warn(Warning{
			Reason: "unsupported_bit_depth",
			Value:  c.cfg.BitDepth,
			Detail: "falling back to 16-bit output",
		})
	}

	dirNames := map[string]int{}
	for i := range presets {
		p := &presets[i]
		isDrum := p.IsDrum
		switch c.cfg.ForceMode {
		case ModeDrum:
			isDrum = true
		case ModeInstrument:
			isDrum = false
		}
		if isDrum {
			if err := c.convertDrum(p, dirNames, log); err != nil {
				return err
			}
		} else {
			if err := c.convertMelodic(p, dirNames, log); err != nil {
				return err
			}
		}
	}
	return nil
}

// variant is one output preset: the full zone set in keep mode, or a
// per-velocity slice in split mode.
type variant struct {
	name      string
	zones     []*sf2.Zone
	targets   []int
	zonesSeen int
}

func (c *Converter) variants(p *sf2.Preset) []variant {
	// Zones are copied so root-key clamping does not mutate the
	// resolved preset.
	zones := make([]sf2.Zone, len(p.Zones))
	copy(zones, p.Zones)
	refs := make([]*sf2.Zone, len(zones))
	for i := range zones {
		refs[i] = &zones[i]
	}

	if c.cfg.VelocityMode == VelocitySplit && len(c.cfg.Velocities) > 0 {
		out := make([]variant, 0, len(c.cfg.Velocities))
		for _, v := range c.cfg.Velocities {
			out = append(out, variant{
				name:      fmt.Sprintf("%s_vel%d", p.Name, v),
				zones:     refs,
				targets:   []int{v},
				zonesSeen: len(refs),
			})
		}
		return out
	}
	return []variant{{name: p.Name, zones: refs, targets: c.cfg.Velocities, zonesSeen: len(refs)}}
}

func (c *Converter) convertMelodic(p *sf2.Preset, dirNames map[string]int, log *Log) error {
	for _, v := range c.variants(p) {
		var zones []*sf2.Zone
		for _, z := range v.zones {
			if velocityMatch(z.VelRange, v.targets) {
				zones = append(zones, z)
			} else {
				log.discard(Discard{Reason: "velocity_filter", Zone: refZone(z)})
			}
		}
		if len(zones) == 0 {
			log.warn(Warning{Preset: v.name, Reason: "no_zones"})
			continue
		}

		for _, z := range zones {
			if z.RootKey < KeyboardMin || z.RootKey > KeyboardMax {
				clamped := clampKey(z.RootKey, KeyboardMin, KeyboardMax)
				log.warn(Warning{
					Preset: v.name,
					Reason: "root_key_clamped",
					Zone:   ptrZoneRef(z),
					Before: []int{z.RootKey},
					After:  []int{clamped},
				})
				z.RootKey = clamped
			}
		}

		selected, dropped := SelectForKeyboard(zones, MaxKeyboardZones, KeyboardMin, KeyboardMax)
		for _, z := range dropped {
			log.discard(Discard{Reason: "zone_downselect", Zone: refZone(z)})
		}
		keyed := AssignKeyRanges(selected, KeyboardMin, KeyboardMax)

		ampEnv := deriveEnvelope(v.name, selected, func(z *sf2.Zone) *sf2.Envelope { return &z.AmpEnv }, "amp", log)
		filterEnv := deriveEnvelope(v.name, selected, func(z *sf2.Zone) *sf2.Envelope { return &z.ModEnv }, "filter", log)
		fx := deriveFX(v.name, selected, log)
		playmode := c.cfg.Playmode
		if playmode == PlaymodeAuto {
			playmode = autoPlaymode(p.Name, selected)
		}

		doc := &opxy.PresetDoc{
			Name:      v.name,
			AmpEnv:    ampEnv,
			FilterEnv: filterEnv,
			FX:        fx,
			Playmode:  playmode,
		}
		fileNames := map[string]int{}
		for _, kz := range keyed {
			region := c.buildRegion(kz.Zone, fileNames, log)
			region.LoKey = kz.LoKey
			region.HiKey = kz.HiKey
			doc.Regions = append(doc.Regions, region)
		}

		outDir := c.presetDir(v.name, dirNames)
		if !c.cfg.DryRun {
			if err := opxy.WriteMultisample(doc, outDir); err != nil {
				return fmt.Errorf("write preset %s: %w", v.name, err)
			}
		}
		log.Presets = append(log.Presets, PresetSummary{
			Name:      v.name,
			Type:      "multisampler",
			ZonesSeen: v.zonesSeen,
			ZonesKept: len(selected),
			Regions:   len(doc.Regions),
			Playmode:  playmode,
			Envelope:  ampEnv,
			FX:        fx,
			OutputDir: opxy.EnsurePresetDir(outDir),
		})
	}
	return nil
}

func (c *Converter) convertDrum(p *sf2.Preset, dirNames map[string]int, log *Log) error {
	for _, v := range c.variants(p) {
		zones := v.zones
		// Split variants filter strictly by velocity like melodic
		// presets do; the closest rule only applies in keep mode.
		if c.cfg.VelocityMode == VelocitySplit {
			zones = nil
			for _, z := range v.zones {
				if velocityMatch(z.VelRange, v.targets) {
					zones = append(zones, z)
				} else {
					log.discard(Discard{Reason: "velocity_filter", Zone: refZone(z)})
				}
			}
		}
		selected := SelectDrumByVelocity(zones, v.targets, c.cfg.DrumVelocityMode, log)
		if len(selected) == 0 {
			log.warn(Warning{Preset: v.name, Reason: "no_zones"})
			continue
		}
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].RootKey < selected[j].RootKey
		})

		classes := map[int]bool{}
		for _, z := range selected {
			if z.ExclusiveClass != 0 {
				classes[z.ExclusiveClass] = true
			}
		}
		if len(classes) > 1 {
			log.warn(Warning{
				Preset:   v.name,
				Reason:   "multiple_exclusive_classes",
				Variants: len(classes),
			})
		}

		ampEnv := deriveEnvelope(v.name, selected, func(z *sf2.Zone) *sf2.Envelope { return &z.AmpEnv }, "amp", log)
		filterEnv := deriveEnvelope(v.name, selected, func(z *sf2.Zone) *sf2.Envelope { return &z.ModEnv }, "filter", log)
		fx := deriveFX(v.name, selected, log)

		chunks := chunkZones(selected, DrumChunkSize)
		for ci, chunk := range chunks {
			name := v.name
			if len(chunks) > 1 {
				name = fmt.Sprintf("%s_%02d", v.name, ci+1)
			}
			doc := &opxy.PresetDoc{
				Name:      name,
				AmpEnv:    ampEnv,
				FilterEnv: filterEnv,
				FX:        fx,
			}
			fileNames := map[string]int{}
			for slot, z := range chunk {
				region := c.buildRegion(z, fileNames, log)
				region.SlotNote = DrumSlotBase + slot
				// Drum voices play one-shot; loops do not survive.
				region.LoopStart, region.LoopEnd = 0, 0
				region.LoopEnabled, region.LoopOnRelease = false, false
				if z.ExclusiveClass != 0 {
					region.Playmode = "group"
				}
				doc.Regions = append(doc.Regions, region)
			}

			outDir := c.presetDir(name, dirNames)
			if !c.cfg.DryRun {
				if err := opxy.WriteDrum(doc, outDir); err != nil {
					return fmt.Errorf("write preset %s: %w", name, err)
				}
			}
			log.Presets = append(log.Presets, PresetSummary{
				Name:      name,
				Type:      "drum",
				ZonesSeen: v.zonesSeen,
				ZonesKept: len(selected),
				Regions:   len(doc.Regions),
				Envelope:  ampEnv,
				FX:        fx,
				OutputDir: opxy.EnsurePresetDir(outDir),
			})
		}
	}
	return nil
}

// buildRegion resamples one zone's PCM, revalidates its loop against
// the new frame count, and produces the writable region.
func (c *Converter) buildRegion(z *sf2.Zone, fileNames map[string]int, log *Log) opxy.Region {
	pcm := z.Sample.Data
	rate := z.Sample.Rate
	channels := z.Sample.Channels
	ls := loopState{
		Start:     z.LoopStart,
		End:       z.LoopEnd,
		Enabled:   z.LoopEnabled,
		OnRelease: z.LoopOnRelease,
	}

	if c.cfg.Resample && c.cfg.SampleRate > 0 && rate != c.cfg.SampleRate {
		ratio := float64(c.cfg.SampleRate) / float64(rate)
		pcm = dsp.ResampleFrames(pcm, channels, rate, c.cfg.SampleRate, c.cfg.ResampleMethod, c.cfg.SincTaps)
		if ls.Enabled {
			ls.Start = int(math.Round(float64(ls.Start) * ratio))
			ls.End = int(math.Round(float64(ls.End) * ratio))
		}
		rate = c.cfg.SampleRate
	}

	framecount := 0
	if channels > 0 {
		framecount = len(pcm) / channels
	}
	ref := refZone(z)
	ls = processLoop(ls, framecount, ref, log)
	if ls.Enabled && c.cfg.ZeroCrossing {
		ls = c.adjustLoopZeroCrossing(ls, pcm, channels, ref, log)
	}
	if ls.Enabled && c.cfg.LoopEndOffset != 0 {
		ls.End = ApplyLoopEndOffset(ls.Start, ls.End, framecount, c.cfg.LoopEndOffset)
	}

	base := fmt.Sprintf("%s_%d", opxy.SanitizeName(z.Sample.Name), z.RootKey)
	return opxy.Region{
		Sample:        uniqueName(fileNames, base) + ".wav",
		PCM:           pcm,
		SampleRate:    rate,
		Channels:      channels,
		RootKey:       z.RootKey,
		LoopStart:     ls.Start,
		LoopEnd:       ls.End,
		LoopEnabled:   ls.Enabled,
		LoopOnRelease: ls.OnRelease,
		Framecount:    framecount,
	}
}

// presetDir reserves a unique output directory for one preset.
func (c *Converter) presetDir(presetName string, dirNames map[string]int) string {
	return filepath.Join(c.cfg.OutDir, uniqueName(dirNames, opxy.SanitizeName(presetName)))
}

func uniqueName(seen map[string]int, base string) string {
	n := seen[base]
	seen[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n)
}

func chunkZones(zones []*sf2.Zone, size int) [][]*sf2.Zone {
	var chunks [][]*sf2.Zone
	for start := 0; start < len(zones); start += size {
		end := start + size
		if end > len(zones) {
			end = len(zones)
		}
		chunks = append(chunks, zones[start:end])
	}
	return chunks
}

func ptrZoneRef(z *sf2.Zone) *ZoneRef {
	ref := refZone(z)
	return &ref
}
