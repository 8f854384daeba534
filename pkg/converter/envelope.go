package converter

import (
	"math"
	"strings"

	"github.com/charlesvestal/sf2-to-opxy/pkg/converter/opxy"
	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

// Envelope curve constants, calibrated against the target hardware's
// measured attack response.
const (
	attackMinSeconds = 0.0111
	attackMaxSeconds = 360.0
	attackCurve      = 10.386
	releaseMaxSecs   = 30.0
)

// TimecentsToSeconds converts the source's logarithmic time unit.
func TimecentsToSeconds(tc int) float64 {
	return math.Pow(2, float64(tc)/1200)
}

// CentibelsToLevel converts an attenuation in centibels to a linear
// 0-1 level. Negative attenuation counts as full level.
func CentibelsToLevel(cb int) float64 {
	if cb < 0 {
		cb = 0
	}
	level := math.Pow(10, -float64(cb)/200)
	if level > 1 {
		return 1
	}
	if level < 0 {
		return 0
	}
	return level
}

// ScaleAttackSeconds maps an attack or decay duration in seconds to
// the engine's 0-32767 code using its logarithmic time curve.
func ScaleAttackSeconds(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	if seconds > attackMaxSeconds {
		seconds = attackMaxSeconds
	}
	if seconds <= attackMinSeconds {
		return 0
	}
	x := math.Log(seconds/attackMinSeconds) / attackCurve
	if x < 0 {
		x = 0
	} else if x > 1 {
		x = 1
	}
	return int(math.Round(x * 32767))
}

// ScaleReleaseSeconds maps a release duration in seconds to the
// engine's 0-32767 code. Zero means instant release, which the engine
// encodes as the maximum value.
func ScaleReleaseSeconds(seconds float64) int {
	if seconds <= 0 {
		return 32767
	}
	if seconds > releaseMaxSecs {
		seconds = releaseMaxSecs
	}
	ratio := seconds / releaseMaxSecs
	return int(math.Round((1 - math.Cbrt(ratio)) * 32767))
}

// MapFXSend maps a 0-100 percent send to the engine's 0-32767 level.
func MapFXSend(percent float64) int {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	return int(math.Round(percent / 100 * 32767))
}

func stageSeconds(tc *int) float64 {
	if tc == nil {
		return 0
	}
	return TimecentsToSeconds(*tc)
}

// mapEnvelope turns one zone's raw envelope generators into the
// engine's four-value block. Delay folds into attack, hold into
// decay.
func mapEnvelope(env *sf2.Envelope) opxy.EnvelopeValues {
	sustain := 32767
	if env.SustainCB != nil {
		sustain = int(math.Round(CentibelsToLevel(*env.SustainCB) * 32767))
	}
	return opxy.EnvelopeValues{
		Attack:  ScaleAttackSeconds(stageSeconds(env.DelayTC) + stageSeconds(env.AttackTC)),
		Decay:   ScaleAttackSeconds(stageSeconds(env.HoldTC) + stageSeconds(env.DecayTC)),
		Sustain: sustain,
		Release: ScaleReleaseSeconds(stageSeconds(env.ReleaseTC)),
	}
}

// deriveEnvelope aggregates one envelope kind across zones: the most
// frequent mapped tuple wins, ties broken by encounter order. Returns
// nil when no zone defines the envelope.
func deriveEnvelope(preset string, zones []*sf2.Zone, pick func(*sf2.Zone) *sf2.Envelope, kind string, log *Log) *opxy.EnvelopeValues {
	var variants []opxy.EnvelopeValues
	var counts []int
	missing := 0

	for _, z := range zones {
		env := pick(z)
		if !env.Present {
			missing++
			continue
		}
		mapped := mapEnvelope(env)
		found := false
		for i, v := range variants {
			if v == mapped {
				counts[i]++
				found = true
				break
			}
		}
		if !found {
			variants = append(variants, mapped)
			counts = append(counts, 1)
		}
	}

	if len(variants) == 0 {
		return nil
	}
	if len(variants) > 1 {
		log.warn(Warning{
			Preset:   preset,
			Reason:   "mixed_envelope",
			Variants: len(variants),
			Detail:   kind,
		})
	}
	if missing > 0 {
		log.warn(Warning{
			Preset:  preset,
			Reason:  "missing_envelope_zones",
			Missing: missing,
			Detail:  kind,
		})
	}

	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	chosen := variants[best]
	return &chosen
}

// deriveFX aggregates effect sends: the most frequent (chorus,reverb)
// percent pair wins. Chorus maps to the delay send, reverb to the
// reverb send.
func deriveFX(preset string, zones []*sf2.Zone, log *Log) *opxy.FXLevels {
	type pair struct{ chorus, reverb float64 }
	var variants []pair
	var counts []int

	for _, z := range zones {
		// A zone without sends votes for a silent (0,0) pair, so a
		// minority nonzero pair cannot win by default.
		var p pair
		if z.FX.Present {
			p = pair{z.FX.Chorus, z.FX.Reverb}
		}
		found := false
		for i, v := range variants {
			if v == p {
				counts[i]++
				found = true
				break
			}
		}
		if !found {
			variants = append(variants, p)
			counts = append(counts, 1)
		}
	}

	if len(variants) == 0 {
		return nil
	}
	if len(variants) > 1 {
		log.warn(Warning{
			Preset:   preset,
			Reason:   "mixed_fx_send",
			Variants: len(variants),
		})
	}

	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	chosen := variants[best]
	return &opxy.FXLevels{
		DelaySend:     MapFXSend(chosen.chorus),
		ReverbSend:    MapFXSend(chosen.reverb),
		ChorusPercent: chosen.chorus,
		ReverbPercent: chosen.reverb,
	}
}

// autoPlaymode infers the engine playmode from the preset name and
// exclusive classes of the surviving zones.
func autoPlaymode(presetName string, zones []*sf2.Zone) string {
	name := strings.ToLower(presetName)
	if strings.Contains(name, "legato") || strings.Contains(name, "porta") {
		return "legato"
	}
	if strings.Contains(name, "mono") {
		return "mono"
	}
	for _, z := range zones {
		if z.ExclusiveClass != 0 {
			return "mono"
		}
	}
	return "poly"
}
