package converter

import (
	"math"
	"testing"

	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

func TestScaleAttackSeconds(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    int
		lo, hi  int // range check when want < 0
	}{
		{name: "zero", seconds: 0, want: 0},
		{name: "below minimum", seconds: 0.005, want: 0},
		{name: "at maximum", seconds: 360, want: 32767},
		{name: "beyond maximum", seconds: 1000, want: 32767},
		{name: "two seconds", seconds: 2.0, want: -1, lo: 14000, hi: 18000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleAttackSeconds(tt.seconds)
			if tt.want >= 0 {
				if got != tt.want {
					t.Errorf("got %d, want %d", got, tt.want)
				}
				return
			}
			if got < tt.lo || got > tt.hi {
				t.Errorf("got %d, want within [%d,%d]", got, tt.lo, tt.hi)
			}
		})
	}
}

func TestScaleReleaseSeconds(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    int
		lo, hi  int
	}{
		{name: "zero is instant", seconds: 0, want: 32767},
		{name: "at maximum", seconds: 30, want: 0},
		{name: "beyond maximum", seconds: 60, want: 0},
		{name: "four seconds", seconds: 4.0, want: -1, lo: 15000, hi: 18000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleReleaseSeconds(tt.seconds)
			if tt.want >= 0 {
				if got != tt.want {
					t.Errorf("got %d, want %d", got, tt.want)
				}
				return
			}
			if got < tt.lo || got > tt.hi {
				t.Errorf("got %d, want within [%d,%d]", got, tt.lo, tt.hi)
			}
		})
	}
}

func TestTimecentsToSeconds(t *testing.T) {
	if got := TimecentsToSeconds(0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("0 timecents: got %f, want 1.0", got)
	}
	if got := TimecentsToSeconds(1200); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("1200 timecents: got %f, want 2.0", got)
	}
	if got := TimecentsToSeconds(-1200); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("-1200 timecents: got %f, want 0.5", got)
	}
}

func TestCentibelsToLevel(t *testing.T) {
	if got := CentibelsToLevel(0); got != 1.0 {
		t.Errorf("0 cb: got %f, want 1.0", got)
	}
	if got := CentibelsToLevel(-50); got != 1.0 {
		t.Errorf("negative cb: got %f, want 1.0", got)
	}
	// 200 cb = 20 dB attenuation = 0.1 linear
	if got := CentibelsToLevel(200); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("200 cb: got %f, want 0.1", got)
	}
}

func TestMapFXSend(t *testing.T) {
	tests := []struct {
		percent float64
		want    int
	}{
		{0, 0},
		{100, 32767},
		{150, 32767},
		{-10, 0},
		{50, 16384},
	}
	for _, tt := range tests {
		if got := MapFXSend(tt.percent); got != tt.want {
			t.Errorf("MapFXSend(%v) = %d, want %d", tt.percent, got, tt.want)
		}
	}
}

func intp(v int) *int { return &v }

func TestDeriveEnvelopeMostFrequent(t *testing.T) {
	// Two zones share one envelope, a third differs; the majority
	// tuple wins and the mix is warned about.
	common := sf2.Envelope{Present: true, AttackTC: intp(0), ReleaseTC: intp(0)}
	odd := sf2.Envelope{Present: true, AttackTC: intp(2400), ReleaseTC: intp(0)}
	zones := []*sf2.Zone{
		{AmpEnv: common},
		{AmpEnv: odd},
		{AmpEnv: common},
	}

	log := &Log{}
	env := deriveEnvelope("Test", zones, func(z *sf2.Zone) *sf2.Envelope { return &z.AmpEnv }, "amp", log)
	if env == nil {
		t.Fatal("expected an aggregated envelope")
	}
	want := mapEnvelope(&common)
	if *env != want {
		t.Errorf("got %+v, want %+v", *env, want)
	}

	found := false
	for _, w := range log.Warnings {
		if w.Reason == "mixed_envelope" && w.Variants == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("missing mixed_envelope warning, got %+v", log.Warnings)
	}
}

func TestDeriveEnvelopeAbsent(t *testing.T) {
	zones := []*sf2.Zone{{}, {}}
	log := &Log{}
	env := deriveEnvelope("Test", zones, func(z *sf2.Zone) *sf2.Envelope { return &z.AmpEnv }, "amp", log)
	if env != nil {
		t.Errorf("expected nil envelope, got %+v", *env)
	}
}

func TestDeriveFX(t *testing.T) {
	zones := []*sf2.Zone{
		{FX: sf2.FXSend{Present: true, Chorus: 20, Reverb: 40}},
		{FX: sf2.FXSend{Present: true, Chorus: 20, Reverb: 40}},
		{FX: sf2.FXSend{Present: true, Chorus: 50, Reverb: 0}},
	}
	log := &Log{}
	fx := deriveFX("Test", zones, log)
	if fx == nil {
		t.Fatal("expected aggregated fx")
	}
	if fx.DelaySend != MapFXSend(20) || fx.ReverbSend != MapFXSend(40) {
		t.Errorf("got sends %d/%d, want %d/%d", fx.DelaySend, fx.ReverbSend, MapFXSend(20), MapFXSend(40))
	}
	if len(log.Warnings) != 1 || log.Warnings[0].Reason != "mixed_fx_send" {
		t.Errorf("missing mixed_fx_send warning, got %+v", log.Warnings)
	}
}

func TestDeriveFXAbsentZonesOutvote(t *testing.T) {
	zones := []*sf2.Zone{
		{FX: sf2.FXSend{Present: true, Chorus: 50, Reverb: 10}},
		{},
		{},
	}
	log := &Log{}
	fx := deriveFX("Test", zones, log)
	if fx == nil {
		t.Fatal("expected aggregated fx")
	}
	// Two silent zones outvote the single zone with sends.
	if fx.DelaySend != 0 || fx.ReverbSend != 0 {
		t.Errorf("got sends %d/%d, want 0/0", fx.DelaySend, fx.ReverbSend)
	}
	if len(log.Warnings) != 1 || log.Warnings[0].Reason != "mixed_fx_send" {
		t.Errorf("missing mixed_fx_send warning, got %+v", log.Warnings)
	}
}

func TestAutoPlaymode(t *testing.T) {
	tests := []struct {
		name   string
		preset string
		zones  []*sf2.Zone
		want   string
	}{
		{"legato by name", "Legato Strings", nil, "legato"},
		{"portamento by name", "Porta Lead", nil, "legato"},
		{"mono by name", "Mono Bass", nil, "mono"},
		{"mono by exclusive class", "Strings", []*sf2.Zone{{ExclusiveClass: 1}}, "mono"},
		{"default poly", "Strings", []*sf2.Zone{{}}, "poly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := autoPlaymode(tt.preset, tt.zones); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
