package schema

import (
	"encoding/json"
	"testing"
)

func TestColor_Disambiguation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Color
	}{
		{"rgbww", `{"r":255,"g":0,"b":128,"cw":32,"ww":16}`, RGBWW(255, 0, 128, 32, 16)},
		{"rgbw", `{"r":255,"g":0,"b":128,"w":64}`, RGBW(255, 0, 128, 64)},
		{"rgb", `{"r":255,"g":0,"b":128}`, RGB(255, 0, 128)},
		{"hs", `{"h":180,"s":0.5}`, HS(180, 0.5)},
		{"xy", `{"x":0.3,"y":0.6}`, XY(0.3, 0.6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Color
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal(%s) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestColor_RejectsAmbiguousKeys(t *testing.T) {
	inputs := []string{
		`{"r":255,"g":0}`,                               // incomplete rgb
		`{"r":255,"g":0,"b":128,"h":10}`,                // foreign key alongside rgb
		`{"h":180,"s":0.5,"v":1}`,                       // hsv is not an encoding
		`{"x":0.3}`,                                     // incomplete xy
		`{"r":255,"g":0,"b":128,"cw":32,"ww":16,"w":0}`, // six keys match nothing
		`{}`,
		`"red"`,
	}

	for _, input := range inputs {
		var c Color
		if err := json.Unmarshal([]byte(input), &c); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", input)
		}
	}
}

func TestColor_RoundTrip(t *testing.T) {
	colors := []Color{
		RGBWW(1, 2, 3, 4, 5),
		RGBW(10, 20, 30, 40),
		RGB(255, 0, 128),
		HS(359.5, 99),
		XY(0.123, 0.456),
	}

	for _, want := range colors {
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal(%#v) error = %v", want, err)
		}
		var got Color
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", data, err)
		}
		if got != want {
			t.Errorf("round trip %s: got %#v, want %#v", data, got, want)
		}
	}
}

func TestColor_ToHass(t *testing.T) {
	c := RGBWW(255, 0, 128, 32, 16)
	want := []float32{255, 0, 128, 32, 16}
	got := c.ToHass()
	if len(got) != len(want) {
		t.Fatalf("ToHass() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToHass()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if key := c.HassServiceDataKey(); key != "rgbww_color" {
		t.Errorf("HassServiceDataKey() = %q, want %q", key, "rgbww_color")
	}
}

func TestColorFromSlice(t *testing.T) {
	tests := []struct {
		name   string
		mode   ColorMode
		data   []float32
		want   Color
		wantOK bool
	}{
		{"rgb", ModeRgb, []float32{255, 0, 128}, RGB(255, 0, 128), true},
		{"hs", ModeHs, []float32{180, 50}, HS(180, 50), true},
		{"xy", ModeXy, []float32{0.3, 0.6}, XY(0.3, 0.6), true},
		{"rgbw", ModeRgbw, []float32{1, 2, 3, 4}, RGBW(1, 2, 3, 4), true},
		{"rgbww", ModeRgbww, []float32{1, 2, 3, 4, 5}, RGBWW(1, 2, 3, 4, 5), true},
		{"length mismatch", ModeRgb, []float32{255, 0}, Color{}, false},
		{"color_temp has no coordinates", ModeColorTemp, []float32{370}, Color{}, false},
		{"brightness has no coordinates", ModeBrightness, nil, Color{}, false},
		{"onoff has no coordinates", ModeOnOff, nil, Color{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ColorFromSlice(tt.mode, tt.data)
			if ok != tt.wantOK {
				t.Fatalf("ColorFromSlice(%v, %v) ok = %v, want %v", tt.mode, tt.data, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ColorFromSlice(%v, %v) = %#v, want %#v", tt.mode, tt.data, got, tt.want)
			}
		})
	}
}

func TestLightState_JSON(t *testing.T) {
	brightness := 0.5
	color := RGB(255, 0, 128)
	state := LightState{On: true, Brightness: &brightness, Color: &color}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	want := `{"on":true,"brightness":0.5,"color":{"r":255,"g":0,"b":128}}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var got LightState
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if got.On != state.On || *got.Brightness != *state.Brightness || *got.Color != *state.Color {
		t.Errorf("round trip = %#v, want %#v", got, state)
	}
}

func TestLightState_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(LightState{On: false})
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(data) != `{"on":false}` {
		t.Errorf("Marshal = %s, want {\"on\":false}", data)
	}
}
