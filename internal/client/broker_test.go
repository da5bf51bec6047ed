package client

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/packets"
)

// testBroker is the far side of a net.Pipe speaking just enough MQTT
// v5 to exercise the client: it answers CONNECT with CONNACK and
// records everything else.
type testBroker struct {
	conn     net.Conn
	connects chan *packets.Connect
	pubs     chan *packets.Publish
	subs     chan *packets.Subscribe
	acks     chan any
}

func newTestConnection(t *testing.T, opts ...ConnectOption) (*Connection, *testBroker) {
	t.Helper()

	clientSide, brokerSide := net.Pipe()
	b := &testBroker{
		conn:     brokerSide,
		connects: make(chan *packets.Connect, 1),
		pubs:     make(chan *packets.Publish, 64),
		subs:     make(chan *packets.Subscribe, 64),
		acks:     make(chan any, 64),
	}

	go func() {
		cp, err := packets.ReadPacket(brokerSide)
		if err != nil {
			return
		}
		connect, ok := cp.Content.(*packets.Connect)
		if !ok {
			return
		}
		b.connects <- connect

		connack := packets.NewControlPacket(packets.CONNACK)
		if _, err := connack.WriteTo(brokerSide); err != nil {
			return
		}

		for {
			cp, err := packets.ReadPacket(brokerSide)
			if err != nil {
				return
			}
			switch p := cp.Content.(type) {
			case *packets.Publish:
				b.pubs <- p
			case *packets.Subscribe:
				b.subs <- p
			default:
				b.acks <- cp.Content
			}
		}
	}()

	cfg := connectConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := connectOver(clientSide, "test-client", cfg)
	if err != nil {
		t.Fatalf("connectOver() error = %v", err)
	}

	t.Cleanup(func() {
		clientSide.Close()
		brokerSide.Close()
	})

	return c, b
}

func (b *testBroker) nextPublish(t *testing.T) *packets.Publish {
	t.Helper()
	select {
	case p := <-b.pubs:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
		return nil
	}
}

func (b *testBroker) nextSubscribe(t *testing.T) *packets.Subscribe {
	t.Helper()
	select {
	case s := <-b.subs:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribe")
		return nil
	}
}

func (b *testBroker) nextAck(t *testing.T) any {
	t.Helper()
	select {
	case a := <-b.acks:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for acknowledgment")
		return nil
	}
}

// sendPublish writes an inbound PUBLISH to the client, optionally
// tagged with a subscription identifier.
func (b *testBroker) sendPublish(t *testing.T, topic string, payload []byte, qos byte, subID int) {
	t.Helper()

	pub := packets.NewControlPacket(packets.PUBLISH)
	p := pub.Content.(*packets.Publish)
	p.Topic = topic
	p.Payload = payload
	p.QoS = qos
	if qos > 0 {
		p.PacketID = 42
	}
	if subID != 0 {
		p.Properties = &packets.Properties{SubscriptionIdentifier: &subID}
	}

	if _, err := pub.WriteTo(b.conn); err != nil {
		t.Fatalf("broker write publish: %v", err)
	}
}
