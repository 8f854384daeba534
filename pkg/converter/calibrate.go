package converter

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/charlesvestal/sf2-to-opxy/pkg/converter/opxy"
)

// Calibration presets sweep a single envelope parameter across its
// code range so the hardware response can be measured against the
// curve constants.

const (
	calibToneHz      = 440.0
	calibToneSeconds = 2.0
	calibToneRate    = 22050
	calibToneAmp     = 16000
)

// CalibrationStep is one generated preset and its predicted timing.
type CalibrationStep struct {
	Preset          string  `json:"preset"`
	Code            int     `json:"code"`
	ExpectedSeconds float64 `json:"expected_seconds"`
}

// CalibrationManifest lists every generated calibration preset.
type CalibrationManifest struct {
	SampleRate int               `json:"sample_rate"`
	ToneHz     float64           `json:"tone_hz"`
	Attack     []CalibrationStep `json:"attack"`
	Release    []CalibrationStep `json:"release"`
}

// AttackSecondsForCode inverts the attack curve: the duration the
// engine should take for a given 0-32767 code.
func AttackSecondsForCode(code int) float64 {
	if code <= 0 {
		return 0
	}
	x := float64(code) / 32767
	return attackMinSeconds * math.Exp(attackCurve*x)
}

// ReleaseSecondsForCode inverts the release curve.
func ReleaseSecondsForCode(code int) float64 {
	ratio := 1 - float64(code)/32767
	return releaseMaxSecs * ratio * ratio * ratio
}

func calibTone() []int {
	n := int(calibToneSeconds * calibToneRate)
	pcm := make([]int, n)
	for i := range pcm {
		t := float64(i) / calibToneRate
		pcm[i] = int(math.Round(calibToneAmp * math.Sin(2*math.Pi*calibToneHz*t)))
	}
	return pcm
}

func calibRegion(pcm []int) opxy.Region {
	return opxy.Region{
		Sample:     "tone_60.wav",
		PCM:        pcm,
		SampleRate: calibToneRate,
		Channels:   1,
		RootKey:    60,
		LoKey:      KeyboardMin,
		HiKey:      KeyboardMax,
		Framecount: len(pcm),
	}
}

// GenerateCalibrationPresets writes `steps` attack presets and
// `steps` release presets sweeping the code range evenly, plus a
// manifest mapping each preset to its predicted duration.
func GenerateCalibrationPresets(outDir string, steps int) (*CalibrationManifest, error) {
	if steps < 2 {
		return nil, fmt.Errorf("need at least 2 calibration steps, got %d", steps)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create calibration dir: %w", err)
	}

	pcm := calibTone()
	manifest := &CalibrationManifest{SampleRate: calibToneRate, ToneHz: calibToneHz}

	for i := 0; i < steps; i++ {
		code := int(math.Round(32767 * float64(i) / float64(steps-1)))

		attackName := fmt.Sprintf("Attack_%05d", code)
		attackDoc := &opxy.PresetDoc{
			Name:    attackName,
			Regions: []opxy.Region{calibRegion(pcm)},
			AmpEnv:  &opxy.EnvelopeValues{Attack: code, Decay: 0, Sustain: 32767, Release: 16383},
		}
		if err := opxy.WriteMultisample(attackDoc, filepath.Join(outDir, attackName)); err != nil {
			return nil, err
		}
		manifest.Attack = append(manifest.Attack, CalibrationStep{
			Preset:          attackName,
			Code:            code,
			ExpectedSeconds: AttackSecondsForCode(code),
		})

		releaseName := fmt.Sprintf("Release_%05d", code)
		releaseDoc := &opxy.PresetDoc{
			Name:    releaseName,
			Regions: []opxy.Region{calibRegion(pcm)},
			AmpEnv:  &opxy.EnvelopeValues{Attack: 0, Decay: 0, Sustain: 32767, Release: code},
		}
		if err := opxy.WriteMultisample(releaseDoc, filepath.Join(outDir, releaseName)); err != nil {
			return nil, err
		}
		manifest.Release = append(manifest.Release, CalibrationStep{
			Preset:          releaseName,
			Code:            code,
			ExpectedSeconds: ReleaseSecondsForCode(code),
		})
	}

	if err := writeCalibrationManifest(outDir, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

func writeCalibrationManifest(outDir string, m *CalibrationManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "calibration-manifest.json"), data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("preset\tcode\texpected_seconds\n")
	for _, s := range m.Attack {
		fmt.Fprintf(&sb, "%s\t%d\t%.4f\n", s.Preset, s.Code, s.ExpectedSeconds)
	}
	for _, s := range m.Release {
		fmt.Fprintf(&sb, "%s\t%d\t%.4f\n", s.Preset, s.Code, s.ExpectedSeconds)
	}
	if err := os.WriteFile(filepath.Join(outDir, "calibration-manifest.txt"), []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("write manifest text: %w", err)
	}
	return nil
}
