package sf2

import (
	"fmt"
	"math"
	"strings"
)

// DrumHeuristic holds the thresholds used to classify presets outside
// bank 128 as drum kits. The values are empirical; changing them
// changes which presets convert as drums.
type DrumHeuristic struct {
	NameTokens       []string
	SingleNoteRatio  float64
	MinDistinctRoots int
}

// DefaultDrumHeuristic returns the standard classification thresholds.
func DefaultDrumHeuristic() DrumHeuristic {
	return DrumHeuristic{
		NameTokens:       []string{"drum", "drums", "kit", "perc", "percussion"},
		SingleNoteRatio:  0.70,
		MinDistinctRoots: 8,
	}
}

// Resolve walks the preset/instrument/sample hierarchy and produces
// flat presets with self-contained zones. Zone-level problems are
// skipped and recorded in the returned log; a preset with no
// surviving zones is omitted.
func (b *Bank) Resolve(heuristic DrumHeuristic) ([]Preset, *ParseLog) {
	log := &ParseLog{}
	cache := make(map[pairKey]*decodedSample)
	var presets []Preset
	zoneID := 0

	for pi := 0; pi+1 < len(b.presets); pi++ {
		ph := b.presets[pi]
		if ph.name == "EOP" {
			continue
		}

		var presetGlobal genBag
		var zones []Zone

		for bi := ph.bagIdx; bi < b.presets[pi+1].bagIdx && bi+1 < len(b.pbags); bi++ {
			presetBag := buildBag(b.pgens, b.pbags[bi].genIdx, b.pbags[bi+1].genIdx)
			instGen, ok := presetBag.get(genInstrument)
			if !ok {
				// A bag without an instrument reference supplies
				// defaults to the local bags that follow it.
				presetGlobal = presetBag
				continue
			}

			ii := instGen.word()
			if ii < 0 || ii+1 >= len(b.insts) {
				log.skip(SkippedZone{Preset: ph.name, Reason: "missing_instrument"})
				continue
			}
			inst := b.insts[ii]
			if inst.name == "EOI" {
				continue
			}

			var instGlobal genBag
			for ib := inst.bagIdx; ib < b.insts[ii+1].bagIdx && ib+1 < len(b.ibags); ib++ {
				instBag := buildBag(b.igens, b.ibags[ib].genIdx, b.ibags[ib+1].genIdx)
				sampleGen, ok := instBag.get(genSampleID)
				if !ok {
					instGlobal = instBag
					continue
				}

				zone, skipped := b.resolveZone(resolveInput{
					presetName:   ph.name,
					instName:     inst.name,
					sampleIdx:    sampleGen.word(),
					stack:        bagStack{presetGlobal, presetBag, instGlobal, instBag},
					cache:        cache,
				})
				if skipped != nil {
					log.skip(*skipped)
					continue
				}
				zone.ID = zoneID
				zoneID++
				if zone.FineTune%100 != 0 {
					log.warn(ParseWarning{
						Preset:     ph.name,
						Instrument: inst.name,
						Sample:     zone.Sample.Name,
						Reason:     "fine_tune_rounded",
						FineCents:  zone.FineTune,
					})
				}
				zones = append(zones, *zone)
			}
		}

		if len(zones) == 0 {
			continue
		}

		preset := Preset{
			Name:    ph.name,
			Bank:    ph.bank,
			Program: ph.program,
			Zones:   zones,
		}
		preset.IsDrum = classifyDrum(&preset, heuristic, log)
		presets = append(presets, preset)
	}

	return presets, log
}

type resolveInput struct {
	presetName string
	instName   string
	sampleIdx  int
	stack      bagStack
	cache      map[pairKey]*decodedSample
}

// resolveZone merges one concrete bag pair into a Zone, or returns
// the skip record explaining why it cannot become one.
func (b *Bank) resolveZone(in resolveInput) (*Zone, *SkippedZone) {
	pair := b.samplePair(in.sampleIdx, in.cache)
	if pair == nil {
		return nil, &SkippedZone{
			Preset:     in.presetName,
			Instrument: in.instName,
			Reason:     "missing_sample",
		}
	}
	sampleName := ""
	if in.sampleIdx >= 0 && in.sampleIdx < len(b.shdrs) {
		sampleName = b.shdrs[in.sampleIdx].name
	}
	if sampleName == "" {
		sampleName = fmt.Sprintf("sample_%d", in.sampleIdx)
	}

	stack := in.stack
	keyRange := stack.intersectRange(genKeyRange)
	velRange := stack.intersectRange(genVelRange)
	if keyRange.Lo > keyRange.Hi || velRange.Lo > velRange.Hi {
		return nil, &SkippedZone{
			Preset:     in.presetName,
			Instrument: in.instName,
			Sample:     sampleName,
			Reason:     "invalid_range",
			KeyRange:   &keyRange,
			VelRange:   &velRange,
		}
	}

	coarse := stack.sum(genCoarseTune)
	fine := stack.sum(genFineTune) + pair.pitchCorrection

	rootKey := b.shdrs[in.sampleIdx].originalPitch
	if a, ok := stack.firstWins(genOverridingRootKey); ok {
		rootKey = a.word()
	}
	rootKey += coarse + int(math.Round(float64(fine)/100))
	if rootKey < 0 {
		rootKey = 0
	} else if rootKey > 127 {
		rootKey = 127
	}

	startOffset := stack.sumOffset(genStartAddrOffset, genStartAddrCoarseOffset)
	endOffset := stack.sumOffset(genEndAddrOffset, genEndAddrCoarseOffset)
	loopStartOffset := stack.sumOffset(genStartLoopAddrOffset, genStartLoopCoarseOffset)
	loopEndOffset := stack.sumOffset(genEndLoopAddrOffset, genEndLoopCoarseOffset)

	totalFrames := len(pair.pcm) / pair.channels
	startFrame := startOffset
	if startFrame < 0 {
		startFrame = 0
	}
	if startFrame >= totalFrames {
		return nil, &SkippedZone{
			Preset:      in.presetName,
			Instrument:  in.instName,
			Sample:      sampleName,
			Reason:      "start_offset_oob",
			StartOffset: startOffset,
			Frames:      totalFrames,
		}
	}
	endFrame := totalFrames + endOffset
	if endFrame > totalFrames {
		endFrame = totalFrames
	}
	if endFrame < startFrame+1 {
		endFrame = startFrame + 1
	}

	loopStart := pair.loopStart + loopStartOffset - startFrame
	loopEnd := pair.loopEnd + loopEndOffset - startFrame

	pcm := pair.pcm[startFrame*pair.channels : endFrame*pair.channels]
	frameCount := len(pcm) / pair.channels
	if frameCount <= 0 {
		return nil, &SkippedZone{
			Preset:     in.presetName,
			Instrument: in.instName,
			Sample:     sampleName,
			Reason:     "empty_sample",
		}
	}

	sampleModes := 0
	if a, ok := stack.firstWins(genSampleModes); ok {
		sampleModes = a.word()
	}
	loopEnabled := false
	loopOnRelease := false
	if sampleModes&1 == 1 && loopStart < loopEnd {
		if loopStart < 0 {
			loopStart = 0
		} else if loopStart > frameCount-1 {
			loopStart = frameCount - 1
		}
		if loopEnd < loopStart+1 {
			loopEnd = loopStart + 1
		} else if loopEnd > frameCount {
			loopEnd = frameCount
		}
		loopEnabled = true
		loopOnRelease = sampleModes&2 != 0
	} else {
		loopStart, loopEnd = 0, 0
	}

	exclusiveClass := 0
	if a, ok := stack.firstWins(genExclusiveClass); ok {
		exclusiveClass = a.word()
	}

	fx := FXSend{}
	chorusRaw, chorusOK := stack.sumPresent(genChorusSend)
	reverbRaw, reverbOK := stack.sumPresent(genReverbSend)
	if chorusOK || reverbOK {
		fx.Present = true
		fx.Chorus = clampPercent(float64(chorusRaw) / 10)
		fx.Reverb = clampPercent(float64(reverbRaw) / 10)
	}

	return &Zone{
		Preset:     in.presetName,
		Instrument: in.instName,
		RootKey:    rootKey,
		KeyRange:   keyRange,
		VelRange:   velRange,
		Sample: &Sample{
			Name:     sampleName,
			Data:     pcm,
			Rate:     pair.rate,
			Channels: pair.channels,
		},
		LoopStart:      loopStart,
		LoopEnd:        loopEnd,
		LoopEnabled:    loopEnabled,
		LoopOnRelease:  loopOnRelease,
		AmpEnv:         stack.envelope(genDelayVolEnv, genAttackVolEnv, genHoldVolEnv, genDecayVolEnv, genSustainVolEnv, genReleaseVolEnv),
		ModEnv:         stack.envelope(genDelayModEnv, genAttackModEnv, genHoldModEnv, genDecayModEnv, genSustainModEnv, genReleaseModEnv),
		FX:             fx,
		ExclusiveClass: exclusiveClass,
		CoarseTune:     coarse,
		FineTune:       fine,
	}, nil
}

// sumPresent is sum plus a flag telling whether any bag defined the
// generator at all.
func (s bagStack) sumPresent(oper uint16) (int, bool) {
	total, found := 0, false
	for _, b := range s.all() {
		if a, ok := b.get(oper); ok {
			total += a.short()
			found = true
		}
	}
	return total, found
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// classifyDrum decides whether a preset converts as a drum kit.
// Bank 128 is authoritative; otherwise name tokens and zone shape are
// consulted, and any heuristic hit is logged with its trigger.
func classifyDrum(p *Preset, h DrumHeuristic, log *ParseLog) bool {
	if p.Bank == 128 {
		return true
	}

	names := []string{strings.ToLower(p.Name)}
	seen := map[string]bool{}
	for i := range p.Zones {
		n := strings.ToLower(p.Zones[i].Instrument)
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, token := range h.NameTokens {
		for _, name := range names {
			if strings.Contains(name, token) {
				log.warn(ParseWarning{
					Preset:  p.Name,
					Reason:  "drum_heuristic",
					Trigger: "name_token:" + token,
				})
				return true
			}
		}
	}

	if len(p.Zones) == 0 {
		return false
	}
	singleNote := 0
	roots := map[int]bool{}
	for i := range p.Zones {
		z := &p.Zones[i]
		if z.KeyRange.Lo == z.KeyRange.Hi {
			singleNote++
		}
		roots[z.RootKey] = true
	}
	minRoots := h.MinDistinctRoots
	if len(p.Zones) < minRoots {
		minRoots = len(p.Zones)
	}
	ratio := float64(singleNote) / float64(len(p.Zones))
	if ratio >= h.SingleNoteRatio && len(roots) >= minRoots {
		log.warn(ParseWarning{
			Preset:  p.Name,
			Reason:  "drum_heuristic",
			Trigger: "zone_shape",
		})
		return true
	}
	return false
}
