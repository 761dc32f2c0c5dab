package chromium

import (
	"testing"

	"github.com/goliatone/go-pagecache/pagecache"
)

func TestParseLengthInches(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{input: "1in", want: 1},
		{input: "25.4mm", want: 1},
		{input: "2.54cm", want: 1},
		{input: "72pt", want: 1},
		{input: "96px", want: 1},
		{input: "2", want: 2},
	}

	for _, tc := range tests {
		got, err := parseLengthInches(tc.input)
		if err != nil {
			t.Fatalf("parseLengthInches(%q): %v", tc.input, err)
		}
		if diff := got - tc.want; diff > 0.0001 || diff < -0.0001 {
			t.Fatalf("parseLengthInches(%q): expected %f, got %f", tc.input, tc.want, got)
		}
	}

	for _, bad := range []string{"", "ten", "1furlong"} {
		if _, err := parseLengthInches(bad); pagecache.KindFromError(err) != pagecache.KindValidation {
			t.Fatalf("parseLengthInches(%q): expected validation error, got %v", bad, err)
		}
	}
}

func TestBuildPrintToPDFParams_Defaults(t *testing.T) {
	params, err := buildPrintToPDFParams(DefaultPDFOptions())
	if err != nil {
		t.Fatalf("buildPrintToPDFParams: %v", err)
	}
	if params.PaperWidth != 8.27 || params.PaperHeight != 11.69 {
		t.Fatalf("expected A4 paper, got width=%f height=%f", params.PaperWidth, params.PaperHeight)
	}
	if !params.PrintBackground {
		t.Fatalf("expected print background true")
	}
	if params.Scale != 1 {
		t.Fatalf("expected scale 1, got %f", params.Scale)
	}
}

func TestBuildPrintToPDFParams_Overrides(t *testing.T) {
	opts := MergePDFOptions(DefaultPDFOptions(), pagecache.PDFOptions{
		PageSize:  "letter",
		Landscape: boolPtr(true),
		MarginTop: "10mm",
	})
	params, err := buildPrintToPDFParams(opts)
	if err != nil {
		t.Fatalf("buildPrintToPDFParams: %v", err)
	}
	if params.PaperWidth != 8.5 || params.PaperHeight != 11 {
		t.Fatalf("expected letter paper, got width=%f height=%f", params.PaperWidth, params.PaperHeight)
	}
	if !params.Landscape {
		t.Fatalf("expected landscape")
	}
	if params.MarginTop == 0 {
		t.Fatalf("expected margin top to be set")
	}
	if !params.PrintBackground {
		t.Fatalf("expected default print background to survive merge")
	}
}

func TestBuildPrintToPDFParams_Invalid(t *testing.T) {
	cases := []pagecache.PDFOptions{
		{Scale: 3},
		{PageSize: "B5"},
		{MarginLeft: "1furlong"},
	}
	for _, opts := range cases {
		if _, err := buildPrintToPDFParams(opts); pagecache.KindFromError(err) != pagecache.KindValidation {
			t.Fatalf("options %+v: expected validation error, got %v", opts, err)
		}
	}
}

func TestFlagsFromArgs(t *testing.T) {
	flags := flagsFromArgs([]string{"--disable-gpu", "", "  ", "--window-size=1280,720", "--"})
	if len(flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(flags))
	}
	if flags[0].Name != "disable-gpu" || flags[0].Value != true {
		t.Fatalf("unexpected bare flag %+v", flags[0])
	}
	if flags[1].Name != "window-size" || flags[1].Value != "1280,720" {
		t.Fatalf("unexpected valued flag %+v", flags[1])
	}
	if got := len(allocatorOptions(flags)); got != 2 {
		t.Fatalf("expected 2 allocator options, got %d", got)
	}
}

func TestLaunchFlags_DisableSandbox(t *testing.T) {
	flags := launchFlags(true, []string{"--disable-gpu"})
	values := map[string]any{}
	for _, flag := range flags {
		values[flag.Name] = flag.Value
	}
	for _, name := range []string{"no-sandbox", "disable-setuid-sandbox"} {
		if values[name] != true {
			t.Fatalf("expected %s to be enabled, got %v", name, values[name])
		}
	}
	if values["headless"] != true {
		t.Fatalf("expected headless flag, got %v", values["headless"])
	}
	if values["disable-gpu"] != true {
		t.Fatalf("expected extra args to be appended, got %v", flags)
	}
	if got := launchFlags(false, nil)[0]; got.Name != "headless" || got.Value != false {
		t.Fatalf("expected headless=false, got %+v", got)
	}
}
