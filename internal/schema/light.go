package schema

import (
	"encoding/json"
	"fmt"
)

// LightState is the retained state of a tanuki.light, published under
// the "state" key. On/off is duplicated on tanuki.on_off.
type LightState struct {
	On bool `json:"on"`
	// Brightness level, 0.0 to 1.0.
	Brightness *float64 `json:"brightness,omitempty"`
	Color      *Color   `json:"color,omitempty"`
}

// LightCommand asks a light to change state, published under the
// "command" key.
type LightCommand struct {
	On    bool   `json:"on"`
	Color *Color `json:"color,omitempty"`
}

// ColorMode names a color encoding. The values follow Home Assistant's
// color_mode attribute; color_temp, brightness and onoff carry no
// color coordinates.
type ColorMode string

const (
	ModeRgbww      ColorMode = "rgbww"
	ModeRgbw       ColorMode = "rgbw"
	ModeRgb        ColorMode = "rgb"
	ModeHs         ColorMode = "hs"
	ModeXy         ColorMode = "xy"
	ModeColorTemp  ColorMode = "color_temp"
	ModeBrightness ColorMode = "brightness"
	ModeOnOff      ColorMode = "onoff"
)

// Color is one of five coordinate encodings. The JSON form is
// untagged: the variant is decided by exactly which keys are present,
// and objects with missing, mixed, or foreign keys are rejected.
//
//	{r, g, b, cw, ww} → RGBWW    {r, g, b, w} → RGBW    {r, g, b} → RGB
//	{h, s} → HS                  {x, y} → XY
type Color struct {
	mode               ColorMode
	r, g, b, cw, ww, w uint8
	h, s, x, y         float32
}

// RGBWW is red, green, blue, cool white, warm white, each 0-255.
func RGBWW(r, g, b, cw, ww uint8) Color {
	return Color{mode: ModeRgbww, r: r, g: g, b: b, cw: cw, ww: ww}
}

// RGBW is red, green, blue, white, each 0-255.
func RGBW(r, g, b, w uint8) Color {
	return Color{mode: ModeRgbw, r: r, g: g, b: b, w: w}
}

// RGB is red, green, blue, each 0-255.
func RGB(r, g, b uint8) Color {
	return Color{mode: ModeRgb, r: r, g: g, b: b}
}

// HS is hue (0-360) and saturation (0-100).
func HS(h, s float32) Color {
	return Color{mode: ModeHs, h: h, s: s}
}

// XY is a CIE 1931 color space coordinate pair (0.0-1.0).
func XY(x, y float32) Color {
	return Color{mode: ModeXy, x: x, y: y}
}

// Mode returns the encoding of the color.
func (c Color) Mode() ColorMode { return c.mode }

// ToHass flattens the color into the numeric list Home Assistant's
// light services expect for the matching *_color field.
func (c Color) ToHass() []float32 {
	switch c.mode {
	case ModeRgbww:
		return []float32{float32(c.r), float32(c.g), float32(c.b), float32(c.cw), float32(c.ww)}
	case ModeRgbw:
		return []float32{float32(c.r), float32(c.g), float32(c.b), float32(c.w)}
	case ModeRgb:
		return []float32{float32(c.r), float32(c.g), float32(c.b)}
	case ModeHs:
		return []float32{c.h, c.s}
	case ModeXy:
		return []float32{c.x, c.y}
	}
	return nil
}

// HassServiceDataKey names the service-data field carrying ToHass.
func (c Color) HassServiceDataKey() string {
	switch c.mode {
	case ModeRgbww:
		return "rgbww_color"
	case ModeRgbw:
		return "rgbw_color"
	case ModeRgb:
		return "rgb_color"
	case ModeHs:
		return "hs_color"
	case ModeXy:
		return "xy_color"
	}
	return ""
}

// ColorFromSlice builds a Color from a Home Assistant color_mode and
// the matching attribute list. Modes without coordinates (color_temp,
// brightness, onoff) and length mismatches return false.
func ColorFromSlice(mode ColorMode, data []float32) (Color, bool) {
	switch {
	case mode == ModeRgbww && len(data) == 5:
		return RGBWW(uint8(data[0]), uint8(data[1]), uint8(data[2]), uint8(data[3]), uint8(data[4])), true
	case mode == ModeRgbw && len(data) == 4:
		return RGBW(uint8(data[0]), uint8(data[1]), uint8(data[2]), uint8(data[3])), true
	case mode == ModeRgb && len(data) == 3:
		return RGB(uint8(data[0]), uint8(data[1]), uint8(data[2])), true
	case mode == ModeHs && len(data) == 2:
		return HS(data[0], data[1]), true
	case mode == ModeXy && len(data) == 2:
		return XY(data[0], data[1]), true
	}
	return Color{}, false
}

func (c Color) MarshalJSON() ([]byte, error) {
	switch c.mode {
	case ModeRgbww:
		return json.Marshal(struct {
			R  uint8 `json:"r"`
			G  uint8 `json:"g"`
			B  uint8 `json:"b"`
			CW uint8 `json:"cw"`
			WW uint8 `json:"ww"`
		}{c.r, c.g, c.b, c.cw, c.ww})
	case ModeRgbw:
		return json.Marshal(struct {
			R uint8 `json:"r"`
			G uint8 `json:"g"`
			B uint8 `json:"b"`
			W uint8 `json:"w"`
		}{c.r, c.g, c.b, c.w})
	case ModeRgb:
		return json.Marshal(struct {
			R uint8 `json:"r"`
			G uint8 `json:"g"`
			B uint8 `json:"b"`
		}{c.r, c.g, c.b})
	case ModeHs:
		return json.Marshal(struct {
			H float32 `json:"h"`
			S float32 `json:"s"`
		}{c.h, c.s})
	case ModeXy:
		return json.Marshal(struct {
			X float32 `json:"x"`
			Y float32 `json:"y"`
		}{c.x, c.y})
	}
	return nil, fmt.Errorf("cannot marshal zero color")
}

// colorKeys maps each variant to its exact key set.
var colorKeys = []struct {
	mode ColorMode
	keys []string
}{
	{ModeRgbww, []string{"r", "g", "b", "cw", "ww"}},
	{ModeRgbw, []string{"r", "g", "b", "w"}},
	{ModeRgb, []string{"r", "g", "b"}},
	{ModeHs, []string{"h", "s"}},
	{ModeXy, []string{"x", "y"}},
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var fields map[string]float64
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("color must be an object of numbers: %w", err)
	}

	for _, variant := range colorKeys {
		if len(fields) != len(variant.keys) {
			continue
		}
		ok := true
		for _, k := range variant.keys {
			if _, present := fields[k]; !present {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		switch variant.mode {
		case ModeRgbww:
			*c = RGBWW(uint8(fields["r"]), uint8(fields["g"]), uint8(fields["b"]),
				uint8(fields["cw"]), uint8(fields["ww"]))
		case ModeRgbw:
			*c = RGBW(uint8(fields["r"]), uint8(fields["g"]), uint8(fields["b"]), uint8(fields["w"]))
		case ModeRgb:
			*c = RGB(uint8(fields["r"]), uint8(fields["g"]), uint8(fields["b"]))
		case ModeHs:
			*c = HS(float32(fields["h"]), float32(fields["s"]))
		case ModeXy:
			*c = XY(float32(fields["x"]), float32(fields["y"]))
		}
		return nil
	}

	return fmt.Errorf("color keys %s match no color encoding", data)
}
