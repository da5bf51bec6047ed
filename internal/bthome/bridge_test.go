package bthome

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/packets"

	"github.com/darkwater/tanuki/internal/schema"
)

// fakeBroker accepts one MQTT session on a loopback listener and
// records every publish.
type fakeBroker struct {
	addr string
	pubs chan *packets.Publish
}

func startFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	b := &fakeBroker{addr: ln.Addr().String(), pubs: make(chan *packets.Publish, 64)}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		cp, err := packets.ReadPacket(conn)
		if err != nil {
			return
		}
		if _, ok := cp.Content.(*packets.Connect); !ok {
			return
		}
		connack := packets.NewControlPacket(packets.CONNACK)
		if _, err := connack.WriteTo(conn); err != nil {
			return
		}

		for {
			cp, err := packets.ReadPacket(conn)
			if err != nil {
				return
			}
			if p, ok := cp.Content.(*packets.Publish); ok {
				b.pubs <- p
			}
		}
	}()

	return b
}

func (b *fakeBroker) nextPublish(t *testing.T) *packets.Publish {
	t.Helper()
	select {
	case p := <-b.pubs:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
		return nil
	}
}

// stubScanner delivers a fixed set of updates, then blocks.
type stubScanner struct {
	updates []Update
}

func (s *stubScanner) Scan(ctx context.Context, out chan<- Update) error {
	for _, u := range s.updates {
		select {
		case out <- u:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestBridge_PublishesMappedDevice(t *testing.T) {
	broker := startFakeBroker(t)

	timestamp := time.Date(2024, 4, 5, 22, 54, 38, 0, time.UTC)
	scanner := &stubScanner{updates: []Update{{
		Name:    "ATC_164B6D",
		Address: "a4:c1:38:16:4b:6d",
		Objects: []Object{
			{Kind: Temperature, Value: schema.Number(25.36)},
			RSSIObject(-67),
		},
		Timestamp: timestamp,
	}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			MQTTAddr: broker.addr,
			Devices: []DeviceMap{
				{Match: "ATC_164B6D", ID: "atc_balcony", Name: "ATC Balcony"},
			},
			Scanner: scanner,
			Logger:  discardLogger(),
		})
	}()

	wantTopics := []string{
		"tanuki/entities/atc_balcony/$meta/status",
		"tanuki/entities/atc_balcony/$meta/name",
		"tanuki/entities/atc_balcony/$meta/type",
		"tanuki/entities/atc_balcony/$meta/provider",
		"tanuki/entities/atc_balcony/tanuki.sensor/$meta/version",
		"tanuki/entities/atc_balcony/tanuki.sensor/temperature",
		"tanuki/entities/atc_balcony/tanuki.sensor/rssi",
	}

	for _, want := range wantTopics {
		pub := broker.nextPublish(t)
		if pub.Topic != want {
			t.Fatalf("publish topic = %q, want %q", pub.Topic, want)
		}
		if pub.QoS != 1 || !pub.Retain {
			t.Errorf("%s qos/retain = %d/%v, want 1/true", pub.Topic, pub.QoS, pub.Retain)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop on cancel")
	}
}

func TestBridge_FallsBackToSnakeCasedName(t *testing.T) {
	broker := startFakeBroker(t)

	scanner := &stubScanner{updates: []Update{{
		Name:      "ATC_2DB3D7",
		Address:   "a4:c1:38:2d:b3:d7",
		Objects:   []Object{{Kind: Humidity, Value: schema.Number(50.6)}},
		Timestamp: time.Now().UTC(),
	}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Run(ctx, Config{
		MQTTAddr: broker.addr,
		Scanner:  scanner,
		Logger:   discardLogger(),
	})

	pub := broker.nextPublish(t)
	if !strings.HasPrefix(pub.Topic, "tanuki/entities/atc_2db3d7/") {
		t.Errorf("publish topic = %q, want entity atc_2db3d7", pub.Topic)
	}
}
