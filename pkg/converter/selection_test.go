package converter

import (
	"testing"

	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

func zoneAt(root int) *sf2.Zone {
	return &sf2.Zone{RootKey: root, KeyRange: sf2.FullRange, VelRange: sf2.FullRange}
}

func TestSelectForKeyboardUnderLimit(t *testing.T) {
	zones := []*sf2.Zone{zoneAt(40), zoneAt(60), zoneAt(80)}
	selected, discarded := SelectForKeyboard(zones, MaxKeyboardZones, KeyboardMin, KeyboardMax)
	if len(selected) != 3 || len(discarded) != 0 {
		t.Fatalf("got %d selected %d discarded, want 3/0", len(selected), len(discarded))
	}
}

func TestSelectForKeyboardDownselect(t *testing.T) {
	// Zones uniformly covering the keyboard, more than fit.
	var zones []*sf2.Zone
	for k := KeyboardMin; k <= KeyboardMax; k += 3 {
		zones = append(zones, zoneAt(k))
	}
	if len(zones) <= MaxKeyboardZones {
		t.Fatalf("test setup: need more than %d zones, have %d", MaxKeyboardZones, len(zones))
	}

	selected, discarded := SelectForKeyboard(zones, MaxKeyboardZones, KeyboardMin, KeyboardMax)
	if len(selected) != MaxKeyboardZones {
		t.Errorf("got %d selected, want exactly %d", len(selected), MaxKeyboardZones)
	}
	if len(selected)+len(discarded) != len(zones) {
		t.Errorf("selection lost zones: %d + %d != %d", len(selected), len(discarded), len(zones))
	}
	for i := 1; i < len(selected); i++ {
		if selected[i].RootKey < selected[i-1].RootKey {
			t.Fatalf("selected zones not sorted by root key at %d", i)
		}
	}
}

func TestAssignKeyRanges(t *testing.T) {
	zones := []*sf2.Zone{zoneAt(40), zoneAt(60), zoneAt(80)}
	keyed := AssignKeyRanges(zones, KeyboardMin, KeyboardMax)

	if keyed[0].LoKey != KeyboardMin {
		t.Errorf("first lokey = %d, want %d", keyed[0].LoKey, KeyboardMin)
	}
	if keyed[len(keyed)-1].HiKey != KeyboardMax {
		t.Errorf("last hikey = %d, want %d", keyed[len(keyed)-1].HiKey, KeyboardMax)
	}
	for i := 1; i < len(keyed); i++ {
		if keyed[i].LoKey != keyed[i-1].HiKey+1 {
			t.Errorf("ranges not contiguous at %d: %d..%d then %d..%d",
				i, keyed[i-1].LoKey, keyed[i-1].HiKey, keyed[i].LoKey, keyed[i].HiKey)
		}
	}
	// Midpoints: (40+60)/2 = 50 ends the first zone.
	if keyed[0].HiKey != 50 || keyed[1].LoKey != 51 {
		t.Errorf("midpoint split got %d/%d, want 50/51", keyed[0].HiKey, keyed[1].LoKey)
	}
}

func TestVelocityDistance(t *testing.T) {
	tests := []struct {
		name    string
		r       sf2.Range
		targets []int
		want    int
	}{
		{"inside", sf2.Range{Lo: 0, Hi: 127}, []int{101}, 0},
		{"below", sf2.Range{Lo: 110, Hi: 127}, []int{101}, 9},
		{"above", sf2.Range{Lo: 0, Hi: 63}, []int{101}, 38},
		{"nearest of several", sf2.Range{Lo: 0, Hi: 63}, []int{64, 120}, 1},
		{"no targets", sf2.Range{Lo: 0, Hi: 127}, nil, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := velocityDistance(tt.r, tt.targets); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func drumZone(root, velLo, velHi int) *sf2.Zone {
	return &sf2.Zone{
		Preset:   "Kit",
		RootKey:  root,
		KeyRange: sf2.Range{Lo: root, Hi: root},
		VelRange: sf2.Range{Lo: velLo, Hi: velHi},
	}
}

func TestSelectDrumByVelocityClosest(t *testing.T) {
	// Root 36: soft and loud layers, target 101 inside the loud one.
	// Root 38: neither covers the target; nearest range wins.
	zones := []*sf2.Zone{
		drumZone(36, 0, 63),
		drumZone(36, 64, 127),
		drumZone(38, 0, 40),
		drumZone(38, 41, 80),
	}
	log := &Log{}
	selected := SelectDrumByVelocity(zones, []int{101}, DrumClosest, log)

	if len(selected) != 2 {
		t.Fatalf("got %d selected, want 2", len(selected))
	}
	if selected[0].VelRange != (sf2.Range{Lo: 64, Hi: 127}) {
		t.Errorf("root 36 picked %+v, want the covering layer", selected[0].VelRange)
	}
	if selected[1].VelRange != (sf2.Range{Lo: 41, Hi: 80}) {
		t.Errorf("root 38 picked %+v, want the closest layer", selected[1].VelRange)
	}
	if len(log.Discarded) != 2 {
		t.Errorf("got %d discards, want 2", len(log.Discarded))
	}
	for _, d := range log.Discarded {
		if d.Reason != "drum_velocity_choice" {
			t.Errorf("discard reason %q, want drum_velocity_choice", d.Reason)
		}
		if d.SelectedVelRange == nil {
			t.Error("discard missing the winning velocity range")
		}
	}
}

func TestSelectDrumByVelocityTieBreaks(t *testing.T) {
	// Both layers cover the target: narrower range wins; at equal
	// width the higher floor wins.
	zones := []*sf2.Zone{
		drumZone(36, 0, 127),
		drumZone(36, 90, 110),
	}
	log := &Log{}
	selected := SelectDrumByVelocity(zones, []int{101}, DrumClosest, log)
	if len(selected) != 1 || selected[0].VelRange.Lo != 90 {
		t.Errorf("narrow layer should win, got %+v", selected[0].VelRange)
	}

	zones = []*sf2.Zone{
		drumZone(36, 80, 100),
		drumZone(36, 90, 110),
	}
	log = &Log{}
	selected = SelectDrumByVelocity(zones, []int{95}, DrumClosest, log)
	if len(selected) != 1 || selected[0].VelRange.Lo != 90 {
		t.Errorf("higher floor should win, got %+v", selected[0].VelRange)
	}
}

func TestSelectDrumByVelocityStrict(t *testing.T) {
	zones := []*sf2.Zone{
		drumZone(36, 64, 127),
		drumZone(38, 0, 63), // cannot match target 101
	}
	log := &Log{}
	selected := SelectDrumByVelocity(zones, []int{101}, DrumStrict, log)
	if len(selected) != 1 || selected[0].RootKey != 36 {
		t.Fatalf("got %d selected, want only root 36", len(selected))
	}

	missing := false
	for _, w := range log.Warnings {
		if w.Reason == "drum_velocity_missing" && w.Value == 38 {
			missing = true
		}
	}
	if !missing {
		t.Errorf("missing drum_velocity_missing warning for root 38: %+v", log.Warnings)
	}
	if len(log.Discarded) != 1 || log.Discarded[0].Reason != "velocity_filter" {
		t.Errorf("strict filtering logs velocity_filter discards, got %+v", log.Discarded)
	}
}
