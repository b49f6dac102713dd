package command

import (
	"errors"
	"path/filepath"
	"reflect"
	"regexp"
	"slices"
	"testing"
	"time"
)

var fixedClock = func() time.Time { return time.UnixMilli(1700000000123) }

func fixedNamer(dir string) *TempNamer {
	return &TempNamer{Dir: dir, Prefix: "fiberpath", Now: fixedClock}
}

func TestPlan_DefaultOutput(t *testing.T) {
	dir := t.TempDir()
	spec := Plan(PlanParams{Input: "part.wind"}, NewTempNamer(dir, "", false))

	args := spec.Args()
	if len(args) != 6 {
		t.Fatalf("Args() = %v, want 6 elements", args)
	}
	if args[0] != "plan" || args[1] != "part.wind" {
		t.Errorf("Args() prefix = %v", args[:2])
	}
	if args[2] != "--output" || args[4] != "--json" {
		t.Errorf("Args() should end in --output <generated> --json, got %v", args)
	}

	pattern := regexp.MustCompile(`^fiberpath-\d+\.gcode$`)
	if filepath.Dir(args[3]) != dir || !pattern.MatchString(filepath.Base(args[3])) {
		t.Errorf("generated output %q does not match %s in %s", args[3], pattern, dir)
	}
	if slices.Contains(args, "--axis-format") {
		t.Error("no --axis-format expected when none was given")
	}
	if spec.Output() != args[3] {
		t.Errorf("Output() = %q, want %q", spec.Output(), args[3])
	}
	if !spec.JSON() {
		t.Error("plan should request JSON")
	}
}

func TestPlan_ExplicitOutputAndAxisFormat(t *testing.T) {
	namer := &TempNamer{Now: func() time.Time {
		t.Fatal("namer must not be consulted when output is given")
		return time.Time{}
	}}
	spec := Plan(PlanParams{Input: "in.wind", Output: "/work/out.gcode", AxisFormat: "xyz"}, namer)

	want := []string{"plan", "in.wind", "--output", "/work/out.gcode", "--json", "--axis-format", "xyz"}
	if got := spec.Args(); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}
}

func TestSimulate(t *testing.T) {
	spec := Simulate(SimulateParams{Path: "a.gcode"})
	want := []string{"simulate", "a.gcode", "--json"}
	if got := spec.Args(); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}
	if spec.Output() != "" {
		t.Errorf("Output() = %q, want empty", spec.Output())
	}
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	spec := Preview(PreviewParams{Path: "a.gcode", Scale: 0.5}, fixedNamer(dir))

	want := []string{"plot", "a.gcode", "--output", filepath.Join(dir, "fiberpath-1700000000123.png"), "--scale", "0.5"}
	if got := spec.Args(); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}
	if spec.JSON() {
		t.Error("plot prints no JSON")
	}
	if spec.Operation() != OpPreview {
		t.Errorf("Operation() = %q", spec.Operation())
	}
}

func TestFormatScale(t *testing.T) {
	tests := map[float64]string{1: "1", 0.5: "0.5", 2.25: "2.25", 0.1: "0.1", 1e-7: "0.0000001"}
	for in, want := range tests {
		if got := FormatScale(in); got != want {
			t.Errorf("FormatScale(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestStream(t *testing.T) {
	tests := []struct {
		name string
		p    StreamParams
		want []string
	}{
		{
			name: "port",
			p:    StreamParams{Path: "a.gcode", Port: "COM3", BaudRate: 115200},
			want: []string{"stream", "a.gcode", "--baud-rate", "115200", "--json", "--port", "COM3"},
		},
		{
			name: "dry run wins over port",
			p:    StreamParams{Path: "a.gcode", Port: "COM3", BaudRate: 250000, DryRun: true},
			want: []string{"stream", "a.gcode", "--baud-rate", "250000", "--json", "--dry-run"},
		},
		{
			name: "dry run without port",
			p:    StreamParams{Path: "a.gcode", BaudRate: 9600, DryRun: true},
			want: []string{"stream", "a.gcode", "--baud-rate", "9600", "--json", "--dry-run"},
		},
		{
			name: "neither",
			p:    StreamParams{Path: "a.gcode", BaudRate: 9600},
			want: []string{"stream", "a.gcode", "--baud-rate", "9600", "--json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Stream(tt.p).Args()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %v, want %v", got, tt.want)
			}
			if tt.p.DryRun && slices.Contains(got, "--port") {
				t.Error("--port must never accompany --dry-run")
			}
		})
	}
}

func TestValidateAndVersion(t *testing.T) {
	if got := Validate(ValidateParams{Path: "x.wind"}).Args(); !reflect.DeepEqual(got, []string{"validate", "x.wind"}) {
		t.Errorf("Validate Args() = %v", got)
	}
	v := Version()
	if got := v.Args(); !reflect.DeepEqual(got, []string{"--version"}) {
		t.Errorf("Version Args() = %v", got)
	}
	if v.JSON() {
		t.Error("--version prints no JSON")
	}
}

func TestSpec_ArgsReturnsCopy(t *testing.T) {
	spec := Simulate(SimulateParams{Path: "a.gcode"})
	args := spec.Args()
	args[1] = "tampered"
	if spec.Args()[1] != "a.gcode" {
		t.Error("mutating Args() result changed the Spec")
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"plan ok", PlanParams{Input: "a"}.Validate(), false},
		{"plan xab", PlanParams{Input: "a", AxisFormat: "xab"}.Validate(), false},
		{"plan no input", PlanParams{}.Validate(), true},
		{"plan bad axis", PlanParams{Input: "a", AxisFormat: "abc"}.Validate(), true},
		{"simulate no path", SimulateParams{}.Validate(), true},
		{"preview zero scale", PreviewParams{Path: "a"}.Validate(), true},
		{"preview negative scale", PreviewParams{Path: "a", Scale: -1}.Validate(), true},
		{"preview ok", PreviewParams{Path: "a", Scale: 1}.Validate(), false},
		{"stream zero baud", StreamParams{Path: "a"}.Validate(), true},
		{"stream ok", StreamParams{Path: "a", BaudRate: 115200}.Validate(), false},
		{"validate no path", ValidateParams{}.Validate(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", tt.err, tt.wantErr)
			}
			if tt.err != nil && !errors.Is(tt.err, ErrInvalidParams) {
				t.Errorf("error %v should match ErrInvalidParams", tt.err)
			}
		})
	}
}
