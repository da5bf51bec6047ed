package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// SensorValue is either a number or a boolean, serialised as the bare
// JSON value with no wrapper.
type SensorValue struct {
	number  float64
	boolean bool
	isBool  bool
}

// Number makes a numeric sensor value.
func Number(v float64) SensorValue { return SensorValue{number: v} }

// Boolean makes a boolean sensor value.
func Boolean(v bool) SensorValue { return SensorValue{boolean: v, isBool: true} }

// IsBool reports whether the value is a boolean.
func (v SensorValue) IsBool() bool { return v.isBool }

// Float returns the numeric value, or 0 for booleans.
func (v SensorValue) Float() float64 { return v.number }

// Bool returns the boolean value, or false for numbers.
func (v SensorValue) Bool() bool { return v.boolean }

func (v SensorValue) MarshalJSON() ([]byte, error) {
	if v.isBool {
		return json.Marshal(v.boolean)
	}
	return json.Marshal(v.number)
}

func (v *SensorValue) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Boolean(b)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	return fmt.Errorf("sensor value must be a number or boolean, got %s", data)
}

// SensorPayload is one reading on a tanuki.sensor topic. The topic's
// final segment names the measurement (temperature, humidity, ...).
type SensorPayload struct {
	Value     SensorValue `json:"value"`
	Unit      string      `json:"unit"`
	Timestamp time.Time   `json:"timestamp"`
}
