// Package main is the entry point for the sf2-to-opxy CLI
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charlesvestal/sf2-to-opxy/pkg/api"
	"github.com/charlesvestal/sf2-to-opxy/pkg/converter"
	"github.com/charlesvestal/sf2-to-opxy/pkg/dsp"
	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
	"github.com/charlesvestal/sf2-to-opxy/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outDir           string
	velocities       []int
	velocityMode     string
	sampleRate       int
	bitDepth         int
	noResample       bool
	resampleMethod   string
	sincTaps         int
	dryRun           bool
	forceMode        string
	playmode         string
	drumVelocityMode string
	zeroCrossing     bool
	zcMaxDistance    int
	zcThreshold      int
	loopEndOffset    int
	loopOffsets      []int
	inspectJSON      bool
	calibrateSteps   int
	serverPort       int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sf2-to-opxy",
	Short: "Convert SoundFont banks to OP-XY sampler presets",
	Long: `sf2-to-opxy converts SoundFont (.sf2) sample banks into OP-XY
.preset bundles, one per preset in the bank.

Melodic presets become multisampler patches with up to 24 keyboard
regions; drum presets become drum patches with fixed note slots.
Envelopes, loop points, tuning and effect sends are remapped into the
OP-XY engine's parameter space.

Examples:
  sf2-to-opxy convert piano.sf2 -o presets/
  sf2-to-opxy convert soundfonts/ --velocity-mode split --velocities 40,80,120
  sf2-to-opxy inspect piano.sf2 --json
  sf2-to-opxy audition piano.sf2 -o previews/
  sf2-to-opxy tui
  sf2-to-opxy serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var convertCmd = &cobra.Command{
	Use:   "convert <input.sf2 | directory> ...",
	Short: "Convert SoundFont files to OP-XY presets",
	Long: `Converts each input file (or every .sf2 file in an input directory)
and writes the preset bundles plus a conversion log into the output
directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <input.sf2>",
	Short: "List the presets and zones of a SoundFont bank",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var auditionCmd = &cobra.Command{
	Use:   "audition <input.sf2>",
	Short: "Generate MIDI preview files that sweep each preset's keys",
	Args:  cobra.ExactArgs(1),
	RunE:  runAudition,
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Generate envelope calibration presets",
	Long: `Writes presets that sweep the attack and release codes across their
range, plus a manifest with the predicted timing of each step. Used to
verify the envelope curve constants against the hardware.`,
	RunE: runCalibrate,
}

var loopVariantsCmd = &cobra.Command{
	Use:   "loopvariants <preset-dir> ...",
	Short: "Write loop-end offset variants of converted presets",
	Long: `Copies each multisampler bundle once per offset, shifting every
enabled loop end by that many frames. Useful for finding a cleaner
loop seam by ear when the detected boundary clicks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoopVariants,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	convertCmd.Flags().StringVarP(&outDir, "output", "o", ".", "Output directory")
	convertCmd.Flags().IntSliceVar(&velocities, "velocities", []int{101}, "Target velocities")
	convertCmd.Flags().StringVar(&velocityMode, "velocity-mode", converter.VelocityKeep, "Velocity handling (keep|split)")
	convertCmd.Flags().IntVar(&sampleRate, "sample-rate", 22050, "Output sample rate")
	convertCmd.Flags().IntVar(&bitDepth, "bit-depth", 16, "Output bit depth")
	convertCmd.Flags().BoolVar(&noResample, "no-resample", false, "Keep the source sample rate")
	convertCmd.Flags().StringVar(&resampleMethod, "resample-method", string(dsp.MethodLinear), "Resampler (linear|sinc)")
	convertCmd.Flags().IntVar(&sincTaps, "sinc-taps", dsp.DefaultSincTaps, "Sinc resampler tap count")
	convertCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the pipeline without writing presets")
	convertCmd.Flags().StringVar(&forceMode, "mode", converter.ModeAuto, "Force conversion mode (auto|drum|instrument)")
	convertCmd.Flags().StringVar(&playmode, "playmode", converter.PlaymodeAuto, "Engine playmode (auto|poly|mono|legato)")
	convertCmd.Flags().StringVar(&drumVelocityMode, "drum-velocity-mode", converter.DrumClosest, "Drum layer selection (closest|strict)")
	convertCmd.Flags().BoolVar(&zeroCrossing, "zero-crossing", true, "Snap loop points to near-silent frames")
	convertCmd.Flags().IntVar(&zcMaxDistance, "zero-crossing-distance", 1000, "Zero-crossing search window in frames")
	convertCmd.Flags().IntVar(&zcThreshold, "zero-crossing-threshold", 1, "Near-silence amplitude threshold")
	convertCmd.Flags().IntVar(&loopEndOffset, "loop-end-offset", 0, "Fixed offset applied to every loop end")

	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Emit JSON instead of a table")

	auditionCmd.Flags().StringVarP(&outDir, "output", "o", ".", "Output directory")

	loopVariantsCmd.Flags().IntSliceVar(&loopOffsets, "offsets", []int{-500, -100, 100, 500}, "Loop end offsets in frames")

	calibrateCmd.Flags().StringVarP(&outDir, "output", "o", "calibration", "Output directory")
	calibrateCmd.Flags().IntVar(&calibrateSteps, "steps", 8, "Calibration steps per parameter")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(auditionCmd)
	rootCmd.AddCommand(loopVariantsCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func buildConfig() converter.Config {
	cfg := converter.DefaultConfig()
	cfg.OutDir = outDir
	cfg.Velocities = velocities
	cfg.VelocityMode = velocityMode
	cfg.SampleRate = sampleRate
	cfg.BitDepth = bitDepth
	cfg.Resample = !noResample
	cfg.ResampleMethod = dsp.Method(resampleMethod)
	cfg.SincTaps = sincTaps
	cfg.DryRun = dryRun
	cfg.ForceMode = forceMode
	cfg.Playmode = playmode
	cfg.DrumVelocityMode = drumVelocityMode
	cfg.ZeroCrossing = zeroCrossing
	cfg.ZeroCrossingMaxDistance = zcMaxDistance
	cfg.ZeroCrossingThreshold = zcThreshold
	cfg.LoopEndOffset = loopEndOffset
	return cfg
}

// collectInputs expands directory arguments into their .sf2 files.
func collectInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.sf2"))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no .sf2 files in %s", arg)
		}
		inputs = append(inputs, matches...)
	}
	return inputs, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}

	conv := converter.New(buildConfig())
	merged := &converter.Log{}
	failed := 0
	for _, input := range inputs {
		fmt.Printf("Converting %s\n", input)
		log, err := conv.ConvertFile(input)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  %v\n", err)
			continue
		}
		mergeLogs(merged, log)
		for _, p := range log.Presets {
			fmt.Printf("  %-10s %-32s %d regions\n", p.Type, p.Name, p.Regions)
		}
	}

	if !dryRun {
		if err := writeConversionLog(outDir, merged); err != nil {
			return err
		}
	}
	fmt.Printf("Done: %d presets, %d warnings, %d discarded zones\n",
		len(merged.Presets), len(merged.Warnings), len(merged.Discarded))
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(inputs))
	}
	return nil
}

func mergeLogs(dst, src *converter.Log) {
	dst.Discarded = append(dst.Discarded, src.Discarded...)
	dst.Warnings = append(dst.Warnings, src.Warnings...)
	dst.Presets = append(dst.Presets, src.Presets...)
	if src.Parse != nil {
		if dst.Parse == nil {
			dst.Parse = &sf2.ParseLog{}
		}
		dst.Parse.Warnings = append(dst.Parse.Warnings, src.Parse.Warnings...)
		dst.Parse.SkippedZones = append(dst.Parse.SkippedZones, src.Parse.SkippedZones...)
	}
}

func writeConversionLog(dir string, log *converter.Log) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "conversion-log.json"), data, 0644); err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("presets:\n")
	for _, p := range log.Presets {
		fmt.Fprintf(&sb, "  %s (%s): %d/%d zones, %d regions -> %s\n",
			p.Name, p.Type, p.ZonesKept, p.ZonesSeen, p.Regions, p.OutputDir)
	}
	sb.WriteString("warnings:\n")
	for _, w := range log.Warnings {
		fmt.Fprintf(&sb, "  [%s] %s %s\n", w.Reason, w.Preset, w.Detail)
	}
	sb.WriteString("discarded:\n")
	for _, d := range log.Discarded {
		fmt.Fprintf(&sb, "  [%s] %s / %s / %s (root %d)\n",
			d.Reason, d.Zone.Preset, d.Zone.Instrument, d.Zone.Sample, d.Zone.RootKey)
	}
	return os.WriteFile(filepath.Join(dir, "conversion-log.txt"), []byte(sb.String()), 0644)
}

func runInspect(cmd *cobra.Command, args []string) error {
	bank, err := sf2.ParseFile(args[0])
	if err != nil {
		return err
	}
	presets, parseLog := bank.Resolve(sf2.DefaultDrumHeuristic())

	if inspectJSON {
		out := struct {
			Presets []inspectPreset `json:"presets"`
			Parse   *sf2.ParseLog   `json:"parse"`
		}{Parse: parseLog}
		for i := range presets {
			out.Presets = append(out.Presets, summarizePreset(&presets[i]))
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%-32s %5s %7s %5s %6s\n", "PRESET", "BANK", "PROGRAM", "DRUM", "ZONES")
	for i := range presets {
		p := &presets[i]
		fmt.Printf("%-32s %5d %7d %5v %6d\n", p.Name, p.Bank, p.Program, p.IsDrum, len(p.Zones))
	}
	fmt.Printf("\n%d presets, %d skipped zones, %d warnings\n",
		len(presets), len(parseLog.SkippedZones), len(parseLog.Warnings))
	return nil
}

type inspectPreset struct {
	Name    string `json:"name"`
	Bank    int    `json:"bank"`
	Program int    `json:"program"`
	IsDrum  bool   `json:"is_drum"`
	Zones   int    `json:"zones"`
}

func summarizePreset(p *sf2.Preset) inspectPreset {
	return inspectPreset{
		Name:    p.Name,
		Bank:    p.Bank,
		Program: p.Program,
		IsDrum:  p.IsDrum,
		Zones:   len(p.Zones),
	}
}

func runAudition(cmd *cobra.Command, args []string) error {
	bank, err := sf2.ParseFile(args[0])
	if err != nil {
		return err
	}
	presets, _ := bank.Resolve(sf2.DefaultDrumHeuristic())
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	for i := range presets {
		p := &presets[i]
		name := strings.ReplaceAll(p.Name, string(filepath.Separator), "_")
		path := filepath.Join(outDir, name+".mid")
		if err := converter.WriteAuditionFile(p, path); err != nil {
			return fmt.Errorf("audition %s: %w", p.Name, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func runLoopVariants(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		created, err := converter.MakeLoopOffsetVariants(arg, loopOffsets)
		if err != nil {
			return fmt.Errorf("variants for %s: %w", arg, err)
		}
		for _, dir := range created {
			fmt.Printf("Wrote %s\n", dir)
		}
	}
	return nil
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	manifest, err := converter.GenerateCalibrationPresets(outDir, calibrateSteps)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d calibration presets to %s\n",
		len(manifest.Attack)+len(manifest.Release), outDir)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
