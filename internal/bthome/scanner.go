package bthome

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// Update is one decoded BTHome advertisement: the peripheral's
// identity plus its measurements, including the synthetic rssi object.
type Update struct {
	Name      string
	Address   string
	Objects   []Object
	Timestamp time.Time
}

// bthomeUUID is the BTHome v2 service-data UUID.
var bthomeUUID = ble.UUID16(0x181c)

// Scanner yields BTHome updates. The BLE-backed implementation is
// NewScanner; tests substitute their own.
type Scanner interface {
	// Scan delivers updates until ctx is cancelled or the platform
	// fails. It blocks for the duration of the scan.
	Scan(ctx context.Context, updates chan<- Update) error
}

// deviceFactory opens the platform BLE device. A variable so tests
// can substitute a fake without bluetooth hardware.
var deviceFactory = func() (ble.Device, error) {
	return linux.NewDevice()
}

type bleScanner struct {
	logger *slog.Logger
}

// NewScanner returns a scanner over the platform BLE adapter.
func NewScanner(logger *slog.Logger) Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &bleScanner{logger: logger}
}

func (s *bleScanner) Scan(ctx context.Context, updates chan<- Update) error {
	dev, err := deviceFactory()
	if err != nil {
		return fmt.Errorf("open bluetooth adapter: %w", err)
	}
	ble.SetDefaultDevice(dev)
	defer dev.Stop()

	handler := func(a ble.Advertisement) {
		for _, sd := range a.ServiceData() {
			if !sd.UUID.Equal(bthomeUUID) {
				continue
			}

			name := a.LocalName()
			if name == "" {
				s.logger.Warn("advertisement without local name", "address", a.Addr().String())
				continue
			}

			objects := Decode(sd.Data, s.logger)
			objects = append(objects, RSSIObject(a.RSSI()))

			select {
			case updates <- Update{
				Name:      name,
				Address:   a.Addr().String(),
				Objects:   objects,
				Timestamp: time.Now().UTC(),
			}:
			case <-ctx.Done():
			}
		}
	}

	if err := ble.Scan(ctx, true, handler, nil); err != nil && ctx.Err() == nil {
		return fmt.Errorf("ble scan: %w", err)
	}
	return ctx.Err()
}
