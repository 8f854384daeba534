package converter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

func testSample(name string, frames int) *sf2.Sample {
	data := make([]int, frames)
	for i := range data {
		data[i] = (i%7 - 3) * 100
	}
	return &sf2.Sample{Name: name, Data: data, Rate: 22050, Channels: 1}
}

func melodicPreset(name string, zoneCount int) sf2.Preset {
	p := sf2.Preset{Name: name}
	span := KeyboardMax - KeyboardMin
	for i := 0; i < zoneCount; i++ {
		root := KeyboardMin + span*i/(zoneCount-1)
		p.Zones = append(p.Zones, sf2.Zone{
			ID:       i,
			Preset:   name,
			RootKey:  root,
			KeyRange: sf2.FullRange,
			VelRange: sf2.FullRange,
			Sample:   testSample("tone", 64),
		})
	}
	return p
}

func drumPreset(name string, rootCount int) sf2.Preset {
	p := sf2.Preset{Name: name, Bank: 128, IsDrum: true}
	id := 0
	for i := 0; i < rootCount; i++ {
		root := 36 + i
		for _, vel := range []sf2.Range{{Lo: 0, Hi: 63}, {Lo: 64, Hi: 127}} {
			p.Zones = append(p.Zones, sf2.Zone{
				ID:       id,
				Preset:   name,
				RootKey:  root,
				KeyRange: sf2.Range{Lo: root, Hi: root},
				VelRange: vel,
				Sample:   testSample("hit", 32),
			})
			id++
		}
	}
	return p
}

func readPatch(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "patch.json"))
	if err != nil {
		t.Fatalf("read patch.json: %v", err)
	}
	var patch map[string]any
	if err := json.Unmarshal(data, &patch); err != nil {
		t.Fatalf("unmarshal patch.json: %v", err)
	}
	return patch
}

func patchRegions(t *testing.T, patch map[string]any) []map[string]any {
	t.Helper()
	raw, ok := patch["regions"].([]any)
	if !ok {
		t.Fatalf("patch has no region list: %T", patch["regions"])
	}
	out := make([]map[string]any, len(raw))
	for i, r := range raw {
		out[i] = r.(map[string]any)
	}
	return out
}

func TestConvertEndToEnd(t *testing.T) {
	outDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.OutDir = outDir

	presets := []sf2.Preset{
		melodicPreset("Grand Piano", 30),
		drumPreset("Std Kit", 10),
	}

	log := &Log{}
	if err := New(cfg).ConvertPresets(presets, log); err != nil {
		t.Fatalf("convert: %v", err)
	}

	if len(log.Presets) != 2 {
		t.Fatalf("got %d preset summaries, want 2", len(log.Presets))
	}

	t.Run("melodic downselected with contiguous ranges", func(t *testing.T) {
		summary := log.Presets[0]
		if summary.Type != "multisampler" {
			t.Fatalf("type %q, want multisampler", summary.Type)
		}
		if summary.Regions > MaxKeyboardZones {
			t.Errorf("%d regions exceed the keyboard limit", summary.Regions)
		}

		patch := readPatch(t, summary.OutputDir)
		if patch["type"] != "multisampler" {
			t.Errorf("patch type %v", patch["type"])
		}
		regions := patchRegions(t, patch)
		if len(regions) != summary.Regions {
			t.Fatalf("patch has %d regions, summary says %d", len(regions), summary.Regions)
		}
		if int(regions[0]["lokey"].(float64)) != KeyboardMin {
			t.Errorf("first lokey %v, want %d", regions[0]["lokey"], KeyboardMin)
		}
		if int(regions[len(regions)-1]["hikey"].(float64)) != KeyboardMax {
			t.Errorf("last hikey %v, want %d", regions[len(regions)-1]["hikey"], KeyboardMax)
		}
		for i := 1; i < len(regions); i++ {
			prevHi := int(regions[i-1]["hikey"].(float64))
			lo := int(regions[i]["lokey"].(float64))
			if lo != prevHi+1 {
				t.Errorf("region %d not contiguous: lokey %d after hikey %d", i, lo, prevHi)
			}
		}
		for _, r := range regions {
			if _, err := os.Stat(filepath.Join(summary.OutputDir, r["sample"].(string))); err != nil {
				t.Errorf("region wav missing: %v", err)
			}
		}
	})

	t.Run("drum preset keeps one zone per root", func(t *testing.T) {
		summary := log.Presets[1]
		if summary.Type != "drum" {
			t.Fatalf("type %q, want drum", summary.Type)
		}
		if summary.Regions != 10 {
			t.Errorf("%d regions, want 10", summary.Regions)
		}

		patch := readPatch(t, summary.OutputDir)
		regions := patchRegions(t, patch)
		for i, r := range regions {
			want := DrumSlotBase + i
			if int(r["lokey"].(float64)) != want || int(r["hikey"].(float64)) != want {
				t.Errorf("region %d slot %v..%v, want %d", i, r["lokey"], r["hikey"], want)
			}
			if r["playmode"] != "oneshot" {
				t.Errorf("region %d playmode %v", i, r["playmode"])
			}
		}
	})

	t.Run("discards account for unselected zones", func(t *testing.T) {
		// 30 melodic zones minus 24 kept, plus one drum layer
		// discarded per root key.
		want := (30 - MaxKeyboardZones) + 10
		if len(log.Discarded) != want {
			t.Errorf("got %d discards, want %d", len(log.Discarded), want)
		}
	})
}

func TestConvertVelocitySplit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()
	cfg.VelocityMode = VelocitySplit
	cfg.Velocities = []int{40, 120}

	p := melodicPreset("Split Piano", 4)
	// Make half the zones soft-only so the variants differ.
	for i := 0; i < 2; i++ {
		p.Zones[i].VelRange = sf2.Range{Lo: 0, Hi: 64}
	}
	for i := 2; i < 4; i++ {
		p.Zones[i].VelRange = sf2.Range{Lo: 65, Hi: 127}
	}

	log := &Log{}
	if err := New(cfg).ConvertPresets([]sf2.Preset{p}, log); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(log.Presets) != 2 {
		t.Fatalf("got %d presets, want one per velocity", len(log.Presets))
	}
	if log.Presets[0].Name != "Split Piano_vel40" || log.Presets[1].Name != "Split Piano_vel120" {
		t.Errorf("variant names %q, %q", log.Presets[0].Name, log.Presets[1].Name)
	}
	for _, summary := range log.Presets {
		if summary.ZonesKept != 2 {
			t.Errorf("%s kept %d zones, want 2", summary.Name, summary.ZonesKept)
		}
	}
}

func TestConvertDrumVelocitySplit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()
	cfg.VelocityMode = VelocitySplit
	cfg.Velocities = []int{40, 120}

	p := sf2.Preset{Name: "Kit", Bank: 128, IsDrum: true}
	// Root 36 carries both layers, root 37 only a loud one.
	for _, vel := range []sf2.Range{{Lo: 0, Hi: 63}, {Lo: 64, Hi: 127}} {
		p.Zones = append(p.Zones, sf2.Zone{
			Preset:   "Kit",
			RootKey:  36,
			KeyRange: sf2.Range{Lo: 36, Hi: 36},
			VelRange: vel,
			Sample:   testSample("hit", 32),
		})
	}
	p.Zones = append(p.Zones, sf2.Zone{
		Preset:   "Kit",
		RootKey:  37,
		KeyRange: sf2.Range{Lo: 37, Hi: 37},
		VelRange: sf2.Range{Lo: 64, Hi: 127},
		Sample:   testSample("hit", 32),
	})

	log := &Log{}
	if err := New(cfg).ConvertPresets([]sf2.Preset{p}, log); err != nil {
		t.Fatalf("convert: %v", err)
	}

	if len(log.Presets) != 2 {
		t.Fatalf("got %d presets, want one per velocity", len(log.Presets))
	}
	soft, loud := log.Presets[0], log.Presets[1]
	if soft.Name != "Kit_vel40" || loud.Name != "Kit_vel120" {
		t.Fatalf("variant names %q, %q", soft.Name, loud.Name)
	}
	// The soft variant must drop root 37 entirely instead of keeping
	// its loud-only layer as the nearest match.
	if soft.Regions != 1 {
		t.Errorf("soft variant has %d regions, want 1", soft.Regions)
	}
	if loud.Regions != 2 {
		t.Errorf("loud variant has %d regions, want 2", loud.Regions)
	}
	filtered := 0
	for _, d := range log.Discarded {
		if d.Reason == "velocity_filter" {
			filtered++
		}
	}
	if filtered != 3 {
		t.Errorf("got %d velocity_filter discards, want 3", filtered)
	}
}

func TestConvertSplitSingleVelocity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()
	cfg.VelocityMode = VelocitySplit
	cfg.Velocities = []int{101}

	log := &Log{}
	if err := New(cfg).ConvertPresets([]sf2.Preset{melodicPreset("Piano", 4)}, log); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(log.Presets) != 1 || log.Presets[0].Name != "Piano_vel101" {
		t.Errorf("split with one velocity still suffixes the variant, got %+v", log.Presets)
	}
}

func TestConvertDryRun(t *testing.T) {
	outDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.OutDir = outDir
	cfg.DryRun = true

	log := &Log{}
	if err := New(cfg).ConvertPresets([]sf2.Preset{melodicPreset("Piano", 4)}, log); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(log.Presets) != 1 {
		t.Fatalf("got %d presets, want 1", len(log.Presets))
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run wrote %d entries", len(entries))
	}
}

func TestConvertRootKeyClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()

	p := sf2.Preset{Name: "Sub"}
	p.Zones = append(p.Zones, sf2.Zone{
		Preset:   "Sub",
		RootKey:  12, // below the keyboard
		KeyRange: sf2.FullRange,
		VelRange: sf2.FullRange,
		Sample:   testSample("sub", 32),
	})

	log := &Log{}
	if err := New(cfg).ConvertPresets([]sf2.Preset{p}, log); err != nil {
		t.Fatalf("convert: %v", err)
	}

	clamped := false
	for _, w := range log.Warnings {
		if w.Reason == "root_key_clamped" {
			clamped = true
		}
	}
	if !clamped {
		t.Errorf("missing root_key_clamped warning: %+v", log.Warnings)
	}
	// The resolved preset itself must stay untouched.
	if p.Zones[0].RootKey != 12 {
		t.Errorf("input preset mutated: root key %d", p.Zones[0].RootKey)
	}
}

func TestConvertForceMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()
	cfg.ForceMode = ModeDrum

	log := &Log{}
	if err := New(cfg).ConvertPresets([]sf2.Preset{melodicPreset("Piano", 4)}, log); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(log.Presets) != 1 || log.Presets[0].Type != "drum" {
		t.Errorf("forced drum conversion produced %+v", log.Presets)
	}
}

func TestConvertDrumExclusiveClassGroups(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()

	p := drumPreset("Hat Kit", 2)
	// Open and closed hats share a choke group on the first root.
	p.Zones[0].ExclusiveClass = 1
	p.Zones[1].ExclusiveClass = 1

	log := &Log{}
	if err := New(cfg).ConvertPresets([]sf2.Preset{p}, log); err != nil {
		t.Fatalf("convert: %v", err)
	}

	patch := readPatch(t, log.Presets[0].OutputDir)
	regions := patchRegions(t, patch)
	if len(regions) != 2 {
		t.Fatalf("got %d regions", len(regions))
	}
	if regions[0]["playmode"] != "group" {
		t.Errorf("choke-group region playmode %v, want group", regions[0]["playmode"])
	}
	if regions[1]["playmode"] != "oneshot" {
		t.Errorf("plain region playmode %v, want oneshot", regions[1]["playmode"])
	}
}

func TestConvertDrumChunking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()

	p := drumPreset("Big Kit", 30) // more roots than one patch holds
	log := &Log{}
	if err := New(cfg).ConvertPresets([]sf2.Preset{p}, log); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(log.Presets) != 2 {
		t.Fatalf("got %d chunks, want 2", len(log.Presets))
	}
	if log.Presets[0].Name != "Big Kit_01" || log.Presets[1].Name != "Big Kit_02" {
		t.Errorf("chunk names %q, %q", log.Presets[0].Name, log.Presets[1].Name)
	}
	if log.Presets[0].Regions != DrumChunkSize || log.Presets[1].Regions != 6 {
		t.Errorf("chunk regions %d, %d", log.Presets[0].Regions, log.Presets[1].Regions)
	}
}

func TestBuildAuditionSMF(t *testing.T) {
	data, err := BuildAuditionSMF([]int{60, 64, 67})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 4 || string(data[:4]) != "MThd" {
		t.Errorf("not a standard MIDI file: % x", data[:4])
	}

	if _, err := BuildAuditionSMF(nil); err == nil {
		t.Error("expected error for empty key list")
	}
}

func TestCalibrationCurveInverses(t *testing.T) {
	if got := AttackSecondsForCode(0); got != 0 {
		t.Errorf("attack code 0: got %f", got)
	}
	full := AttackSecondsForCode(32767)
	if full < 350 || full > 370 {
		t.Errorf("attack code 32767: got %fs, want about 360", full)
	}
	if got := ScaleAttackSeconds(AttackSecondsForCode(16000)); got < 15990 || got > 16010 {
		t.Errorf("attack round trip drifted: %d", got)
	}

	if got := ReleaseSecondsForCode(0); got != 30 {
		t.Errorf("release code 0: got %f, want 30", got)
	}
	if got := ReleaseSecondsForCode(32767); got != 0 {
		t.Errorf("release code 32767: got %f, want 0", got)
	}
	if got := ScaleReleaseSeconds(ReleaseSecondsForCode(16000)); got < 15990 || got > 16010 {
		t.Errorf("release round trip drifted: %d", got)
	}
}
