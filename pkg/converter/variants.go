package converter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charlesvestal/sf2-to-opxy/pkg/converter/opxy"
)

// multisampleDoc shadows the generic region list with typed regions so
// loop fields survive a read-modify-write cycle.
type multisampleDoc struct {
	opxy.Patch
	Regions []opxy.MultisampleRegion `json:"regions"`
}

// MakeLoopOffsetVariants reads a written multisampler bundle and
// produces one sibling bundle per offset, identical except that every
// enabled loop end is shifted by that offset. The variants are meant
// for A/B listening when a loop seam is audible at the detected
// boundary.
func MakeLoopOffsetVariants(presetDir string, offsets []int) ([]string, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no loop offsets given")
	}
	bundle := opxy.EnsurePresetDir(presetDir)

	data, err := os.ReadFile(filepath.Join(bundle, "patch.json"))
	if err != nil {
		return nil, fmt.Errorf("read patch: %w", err)
	}
	var doc multisampleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}

	base := strings.TrimSuffix(bundle, ".preset")
	var created []string
	for _, offset := range offsets {
		if offset == 0 {
			continue
		}
		variant := doc
		variant.Regions = make([]opxy.MultisampleRegion, len(doc.Regions))
		copy(variant.Regions, doc.Regions)
		for i := range variant.Regions {
			r := &variant.Regions[i]
			if !r.LoopEnabled {
				continue
			}
			r.LoopEnd = ApplyLoopEndOffset(r.LoopStart, r.LoopEnd, r.Framecount, offset)
		}
		variant.Name = fmt.Sprintf("%s_off%+d", variant.Name, offset)

		dir := fmt.Sprintf("%s_off%+d.preset", base, offset)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return created, fmt.Errorf("create variant dir: %w", err)
		}
		if err := copyRegionWAVs(bundle, dir, variant.Regions); err != nil {
			return created, err
		}
		out, err := json.MarshalIndent(&variant, "", "  ")
		if err != nil {
			return created, fmt.Errorf("marshal variant patch: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "patch.json"), out, 0644); err != nil {
			return created, fmt.Errorf("write variant patch: %w", err)
		}
		created = append(created, dir)
	}
	return created, nil
}

func copyRegionWAVs(src, dst string, regions []opxy.MultisampleRegion) error {
	for _, r := range regions {
		data, err := os.ReadFile(filepath.Join(src, r.Sample))
		if err != nil {
			return fmt.Errorf("read region wav: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dst, r.Sample), data, 0644); err != nil {
			return fmt.Errorf("copy region wav: %w", err)
		}
	}
	return nil
}
