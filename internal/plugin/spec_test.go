package plugin

import (
	"testing"
)

func floatSpec(name string, def, min, max float64) ParamSpec {
	return ParamSpec{Name: name, Kind: KindFloat, Default: def, Min: min, Max: max}
}

func TestParamSpecValidateBounds(t *testing.T) {
	cases := []struct {
		name    string
		spec    ParamSpec
		wantErr bool
	}{
		{"float in range", floatSpec("x", 1.0, 0, 2), false},
		{"float below min", floatSpec("x", -1.0, 0, 2), true},
		{"float above max", floatSpec("x", 3.0, 0, 2), true},
		{"int default as int", ParamSpec{Name: "n", Kind: KindInt, Default: 5, Min: 3, Max: 31}, false},
		{"int default missing", ParamSpec{Name: "n", Kind: KindInt, Min: 3, Max: 31}, true},
		{"bool ok", ParamSpec{Name: "b", Kind: KindBool, Default: false}, false},
		{"bool default missing", ParamSpec{Name: "b", Kind: KindBool}, true},
		{"select ok", ParamSpec{Name: "s", Kind: KindSelect, Default: "a",
			Options: []Option{{Value: "a"}, {Value: "b"}}}, false},
		{"select default not an option", ParamSpec{Name: "s", Kind: KindSelect, Default: "z",
			Options: []Option{{Value: "a"}}}, true},
		{"select no options", ParamSpec{Name: "s", Kind: KindSelect, Default: "a"}, true},
		{"range ok", ParamSpec{Name: "r", Kind: KindRange, Min: 0, Max: 1,
			DefaultLow: 0.1, DefaultHigh: 0.3}, false},
		{"range low above high", ParamSpec{Name: "r", Kind: KindRange, Min: 0, Max: 1,
			DefaultLow: 0.5, DefaultHigh: 0.3}, true},
		{"range high above max", ParamSpec{Name: "r", Kind: KindRange, Min: 0, Max: 1,
			DefaultLow: 0.1, DefaultHigh: 1.5}, true},
		{"empty name", floatSpec("", 1, 0, 2), true},
		{"unknown kind", ParamSpec{Name: "k", Kind: "mystery"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDescriptorValidateDuplicateParams(t *testing.T) {
	d := Descriptor{
		Name: "thing",
		Params: []ParamSpec{
			floatSpec("amount", 1, 0, 2),
			floatSpec("amount", 1, 0, 2),
		},
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected duplicate param error")
	}

	d.Params = d.Params[:1]
	if err := d.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeParamsFillsDefaults(t *testing.T) {
	desc := Descriptor{
		Name: "adjust",
		Params: []ParamSpec{
			floatSpec("brightness", 0, -100, 100),
			{Name: "invert", Kind: KindBool, Default: false},
		},
	}

	got := NormalizeParams(desc, map[string]any{"brightness": 40.0})
	if got["brightness"] != 40.0 {
		t.Fatalf("given value replaced: %v", got["brightness"])
	}
	if got["invert"] != false {
		t.Fatalf("default not filled: %v", got["invert"])
	}
}

func TestNormalizeParamsNoClamping(t *testing.T) {
	desc := Descriptor{Name: "adjust", Params: []ParamSpec{floatSpec("brightness", 0, -100, 100)}}

	got := NormalizeParams(desc, map[string]any{"brightness": 9999.0})
	if got["brightness"] != 9999.0 {
		t.Fatalf("out-of-range value must pass through verbatim, got %v", got["brightness"])
	}
}

func TestNormalizeParamsRangeSynthesis(t *testing.T) {
	desc := Descriptor{
		Name: "edges",
		Params: []ParamSpec{
			{Name: "threshold", Kind: KindRange, Min: 0, Max: 1, DefaultLow: 0.1, DefaultHigh: 0.3},
		},
	}

	got := NormalizeParams(desc, nil)
	if got["threshold_low"] != 0.1 || got["threshold_high"] != 0.3 {
		t.Fatalf("range defaults not synthesized: %v", got)
	}
	if _, ok := got["threshold"]; ok {
		t.Fatal("base range key must not be emitted")
	}

	got = NormalizeParams(desc, map[string]any{"threshold_low": 0.2})
	if got["threshold_low"] != 0.2 {
		t.Fatalf("given low replaced: %v", got["threshold_low"])
	}
	if got["threshold_high"] != 0.3 {
		t.Fatalf("missing high not synthesized: %v", got["threshold_high"])
	}
}

func TestNormalizeParamsUnknownKeysPassThrough(t *testing.T) {
	desc := Descriptor{Name: "noop"}
	got := NormalizeParams(desc, map[string]any{"mystery": 42})
	if got["mystery"] != 42 {
		t.Fatalf("unknown key dropped: %v", got)
	}
}

func TestParamAccessors(t *testing.T) {
	params := map[string]any{
		"f":    2.5,
		"json": float64(7), // ints arrive as float64 off the wire
		"b":    true,
		"s":    "nearest",
	}

	if v := FloatParam(params, "f", 0); v != 2.5 {
		t.Fatalf("FloatParam = %v", v)
	}
	if v := IntParam(params, "json", 0); v != 7 {
		t.Fatalf("IntParam = %v", v)
	}
	if v := BoolParam(params, "b", false); !v {
		t.Fatal("BoolParam lost value")
	}
	if v := StringParam(params, "s", ""); v != "nearest" {
		t.Fatalf("StringParam = %v", v)
	}
	if v := FloatParam(params, "missing", 1.25); v != 1.25 {
		t.Fatalf("FloatParam fallback = %v", v)
	}
	if v := BoolParam(params, "f", true); !v {
		t.Fatal("BoolParam must fall back on wrong type")
	}
}
