package opxy

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Grand Piano", "Grand_Piano"},
		{"Saw/Lead#1", "Saw_Lead_1"},
		{"  padded  ", "padded"},
		{"under_score-ok", "under_score-ok"},
		{"", "preset"},
		{"///", "___"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnsurePresetDir(t *testing.T) {
	if got := EnsurePresetDir("out/Piano"); got != "out/Piano.preset" {
		t.Errorf("got %q", got)
	}
	if got := EnsurePresetDir("out/Piano.preset"); got != "out/Piano.preset" {
		t.Errorf("suffix doubled: %q", got)
	}
}

func TestEncodeWAV(t *testing.T) {
	data, err := EncodeWAV([]int{0, 1000, -1000, 40000, -40000}, 22050, 1, 16)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("bad container header: % x", data[:12])
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 22050 {
		t.Errorf("rate = %d, want 22050", got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != 10 {
		t.Errorf("data length = %d, want 10", got)
	}
	// Out-of-range samples clamp instead of wrapping.
	if got := int16(binary.LittleEndian.Uint16(data[50:52])); got != 32767 {
		t.Errorf("clamped high = %d, want 32767", got)
	}
	if got := int16(binary.LittleEndian.Uint16(data[52:54])); got != -32768 {
		t.Errorf("clamped low = %d, want -32768", got)
	}

	if _, err := EncodeWAV(nil, 22050, 1, 24); err == nil {
		t.Error("expected error for 24-bit output")
	}
}

func testRegion(name string, frames int) Region {
	pcm := make([]int, frames)
	return Region{
		Sample:     name,
		PCM:        pcm,
		SampleRate: 22050,
		Channels:   1,
		RootKey:    60,
		LoKey:      21,
		HiKey:      108,
		Framecount: frames,
	}
}

func TestWriteMultisample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Piano")
	doc := &PresetDoc{
		Name:     "Piano",
		Playmode: "mono",
		Regions:  []Region{testRegion("tone_60.wav", 64)},
		FX:       &FXLevels{DelaySend: 0, ReverbSend: 5000},
	}
	if err := WriteMultisample(doc, dir); err != nil {
		t.Fatal(err)
	}

	bundle := dir + ".preset"
	if _, err := os.Stat(filepath.Join(bundle, "tone_60.wav")); err != nil {
		t.Errorf("region wav missing: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(bundle, "patch.json"))
	if err != nil {
		t.Fatal(err)
	}
	var patch Patch
	if err := json.Unmarshal(data, &patch); err != nil {
		t.Fatal(err)
	}
	if patch.Type != "multisampler" || patch.Platform != "OP-XY" || patch.Version != 4 {
		t.Errorf("template fields wrong: %+v", patch)
	}
	if patch.Name != "Piano" || patch.Engine.Playmode != "mono" {
		t.Errorf("overlay not applied: name %q playmode %q", patch.Name, patch.Engine.Playmode)
	}
	if !patch.FX.Active || patch.FX.Params[7] != 5000 {
		t.Errorf("fx overlay wrong: active %v params %v", patch.FX.Active, patch.FX.Params)
	}
	if len(patch.Regions) != 1 {
		t.Fatalf("got %d regions", len(patch.Regions))
	}
}

func TestWriteDrum(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Kit")
	region := testRegion("hit_0.wav", 32)
	region.SlotNote = 53
	doc := &PresetDoc{Name: "Kit", Regions: []Region{region}}
	if err := WriteDrum(doc, dir); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir+".preset", "patch.json"))
	if err != nil {
		t.Fatal(err)
	}
	var patch struct {
		Type    string `json:"type"`
		FX      FXBlock
		Regions []DrumRegion `json:"regions"`
	}
	if err := json.Unmarshal(data, &patch); err != nil {
		t.Fatal(err)
	}
	if patch.Type != "drum" {
		t.Errorf("type %q", patch.Type)
	}
	r := patch.Regions[0]
	if r.LoKey != 53 || r.HiKey != 53 {
		t.Errorf("slot mapping %d..%d, want 53..53", r.LoKey, r.HiKey)
	}
	if r.PitchKeycenter != DrumCenterKey || r.Playmode != "oneshot" {
		t.Errorf("keycenter %d playmode %q", r.PitchKeycenter, r.Playmode)
	}
}

func TestFXInactiveWhenZero(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Dry")
	doc := &PresetDoc{
		Name:    "Dry",
		Regions: []Region{testRegion("tone_60.wav", 16)},
		FX:      &FXLevels{},
	}
	if err := WriteMultisample(doc, dir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir+".preset", "patch.json"))
	if err != nil {
		t.Fatal(err)
	}
	var patch Patch
	if err := json.Unmarshal(data, &patch); err != nil {
		t.Fatal(err)
	}
	if patch.FX.Active {
		t.Error("fx marked active with zero sends")
	}
}
