package converter

import (
	"math"
	"sort"

	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

// KeyedZone is a zone with its assigned keyboard range.
type KeyedZone struct {
	Zone  *sf2.Zone
	LoKey int
	HiKey int
}

// SelectForKeyboard reduces a melodic zone set to at most maxCount
// zones whose root keys best cover [keyMin, keyMax]. Target keys are
// spaced evenly across the span; each target greedily claims the
// unused zone with the nearest root key. Returns the kept zones
// sorted by root key plus the discarded remainder.
func SelectForKeyboard(zones []*sf2.Zone, maxCount, keyMin, keyMax int) (selected, discarded []*sf2.Zone) {
	if len(zones) <= maxCount {
		return zones, nil
	}

	sorted := make([]*sf2.Zone, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RootKey < sorted[j].RootKey
	})

	span := float64(keyMax - keyMin)
	used := make([]bool, len(sorted))
	selected = make([]*sf2.Zone, 0, maxCount)
	for i := 0; i < maxCount; i++ {
		target := keyMin
		if maxCount > 1 {
			target = keyMin + int(math.Round(span*float64(i)/float64(maxCount-1)))
		}
		best := -1
		bestDist := 0
		for j, z := range sorted {
			if used[j] {
				continue
			}
			dist := z.RootKey - target
			if dist < 0 {
				dist = -dist
			}
			if best < 0 || dist < bestDist {
				best = j
				bestDist = dist
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		selected = append(selected, sorted[best])
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].RootKey < selected[j].RootKey
	})
	for j, z := range sorted {
		if !used[j] {
			discarded = append(discarded, z)
		}
	}
	return selected, discarded
}

// AssignKeyRanges spreads zones across the keyboard: each zone covers
// from the midpoint after its lower neighbour's root to the midpoint
// at its upper neighbour's root, with the outermost zones extended to
// the keyboard bounds.
func AssignKeyRanges(zones []*sf2.Zone, keyMin, keyMax int) []KeyedZone {
	sorted := make([]*sf2.Zone, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RootKey < sorted[j].RootKey
	})

	out := make([]KeyedZone, len(sorted))
	for i, z := range sorted {
		lo := keyMin
		if i > 0 {
			lo = (sorted[i-1].RootKey+z.RootKey)/2 + 1
		}
		hi := keyMax
		if i < len(sorted)-1 {
			hi = (z.RootKey + sorted[i+1].RootKey) / 2
		}
		out[i] = KeyedZone{Zone: z, LoKey: clampKey(lo, keyMin, keyMax), HiKey: clampKey(hi, keyMin, keyMax)}
	}
	return out
}

func clampKey(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// velocityDistance measures how far a velocity range is from the
// nearest target: zero when any target falls inside the range.
func velocityDistance(r sf2.Range, targets []int) int {
	best := 999
	for _, t := range targets {
		if r.Contains(t) {
			return 0
		}
		d := t - r.Hi
		if t < r.Lo {
			d = r.Lo - t
		}
		if d < best {
			best = d
		}
	}
	return best
}

func velocityMatch(r sf2.Range, targets []int) bool {
	for _, t := range targets {
		if r.Contains(t) {
			return true
		}
	}
	return false
}

// SelectDrumByVelocity keeps one zone per root key. In closest mode
// the winner minimizes (velocity distance, range width, descending
// range floor); losers are logged as discarded with the winning
// range. In strict mode only zones covering a target velocity
// survive, and a root key left with none is logged.
func SelectDrumByVelocity(zones []*sf2.Zone, targets []int, mode string, log *Log) []*sf2.Zone {
	var roots []int
	groups := make(map[int][]*sf2.Zone)
	for _, z := range zones {
		if _, ok := groups[z.RootKey]; !ok {
			roots = append(roots, z.RootKey)
		}
		groups[z.RootKey] = append(groups[z.RootKey], z)
	}

	var selected []*sf2.Zone
	for _, root := range roots {
		group := groups[root]

		if mode == DrumStrict {
			kept := false
			for _, z := range group {
				if velocityMatch(z.VelRange, targets) {
					selected = append(selected, z)
					kept = true
				} else {
					log.discard(Discard{Reason: "velocity_filter", Zone: refZone(z)})
				}
			}
			if !kept {
				log.warn(Warning{
					Preset: group[0].Preset,
					Reason: "drum_velocity_missing",
					Value:  root,
				})
			}
			continue
		}

		best := group[0]
		bestKey := drumChoiceKey(best, targets)
		for _, z := range group[1:] {
			key := drumChoiceKey(z, targets)
			if key.less(bestKey) {
				best = z
				bestKey = key
			}
		}
		winRange := best.VelRange
		for _, z := range group {
			if z == best {
				continue
			}
			log.discard(Discard{
				Reason:           "drum_velocity_choice",
				Zone:             refZone(z),
				SelectedVelRange: &sf2.Range{Lo: winRange.Lo, Hi: winRange.Hi},
			})
		}
		selected = append(selected, best)
	}
	return selected
}

type choiceKey struct {
	dist, width, negLo int
}

func drumChoiceKey(z *sf2.Zone, targets []int) choiceKey {
	return choiceKey{
		dist:  velocityDistance(z.VelRange, targets),
		width: z.VelRange.Hi - z.VelRange.Lo,
		negLo: -z.VelRange.Lo,
	}
}

func (k choiceKey) less(other choiceKey) bool {
	if k.dist != other.dist {
		return k.dist < other.dist
	}
	if k.width != other.width {
		return k.width < other.width
	}
	return k.negLo < other.negLo
}
