// Package bthome ingests BTHome v2 sensor advertisements from BLE and
// publishes the decoded readings on the Tanuki data plane.
//
// BTHome devices broadcast service data under UUID 0x181c: a small
// device-info header followed by TLV records, each carrying an object
// id and a fixed-point value.
package bthome

import (
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/darkwater/tanuki/internal/schema"
)

// ObjectKind names a decoded BTHome measurement.
type ObjectKind int

const (
	Battery ObjectKind = iota
	Temperature
	Humidity
	Voltage
	Power
	RSSI
)

// Object is one decoded measurement from an advertisement.
type Object struct {
	Kind  ObjectKind
	Value schema.SensorValue
}

// Topic is the measurement key the object publishes under.
func (o Object) Topic() string {
	switch o.Kind {
	case Battery:
		return "battery"
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case Voltage:
		return "voltage"
	case Power:
		return "power"
	case RSSI:
		return "rssi"
	}
	return "unknown"
}

// Unit is the measurement unit, empty for booleans.
func (o Object) Unit() string {
	switch o.Kind {
	case Battery, Humidity:
		return "%"
	case Temperature:
		return "°C"
	case Voltage:
		return "V"
	case RSSI:
		return "dBm"
	}
	return ""
}

// RSSIObject wraps a signal-strength reading as a synthetic object;
// it is appended to each update alongside the advertised records.
func RSSIObject(rssi int) Object {
	return Object{Kind: RSSI, Value: schema.Number(float64(rssi))}
}

// Decode parses a BTHome v2 service-data blob into measurements. The
// three-byte device-info header is skipped; then each record is a
// one-byte header (low 5 bits length, high 3 bits type code) followed
// by an object id and the value bytes. Unknown object ids, unsupported
// length/type combinations, and truncated records are logged and
// skipped without aborting the sequence.
func Decode(data []byte, logger *slog.Logger) []Object {
	if logger == nil {
		logger = slog.Default()
	}

	if len(data) < 3 {
		logger.Warn("service data shorter than device info header", "len", len(data))
		return nil
	}
	data = data[3:]

	var out []Object

	for len(data) > 0 {
		header := data[0]
		data = data[1:]

		length := int(header & 0b11111)
		typeCode := header >> 5

		if length > len(data) {
			logger.Warn("truncated record", "length", length, "remaining", len(data))
			break
		}
		record := data[:length]
		data = data[length:]

		if length < 1 {
			logger.Warn("empty record")
			continue
		}
		objectID := record[0]
		value := record[1:]

		var raw float64
		switch {
		case length == 2 && typeCode == 0:
			raw = float64(value[0])
		case length == 3 && typeCode == 0:
			raw = float64(binary.LittleEndian.Uint16(value))
		case length == 2 && typeCode == 1:
			raw = float64(int8(value[0]))
		case length == 3 && typeCode == 1:
			raw = float64(int16(binary.LittleEndian.Uint16(value)))
		case length == 5 && typeCode == 2:
			raw = float64(math.Float32frombits(binary.LittleEndian.Uint32(value)))
		default:
			logger.Warn("unimplemented length/type combo", "length", length, "type", typeCode)
			continue
		}

		switch objectID {
		case 0x01:
			out = append(out, Object{Kind: Battery, Value: schema.Number(raw)})
		case 0x02:
			out = append(out, Object{Kind: Temperature, Value: schema.Number(raw * 0.01)})
		case 0x03:
			out = append(out, Object{Kind: Humidity, Value: schema.Number(raw * 0.01)})
		case 0x0c:
			out = append(out, Object{Kind: Voltage, Value: schema.Number(raw * 0.001)})
		case 0x10:
			out = append(out, Object{Kind: Power, Value: schema.Boolean(raw > 0)})
		default:
			logger.Warn("unknown object id", "object_id", objectID)
		}
	}

	return out
}
