package telemetry

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// bufferCapacity bounds the number of messages held while disconnected.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	pumpTopic     string
	snapshotTopic string
	systemTopic   string

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker. device
// names the topic prefix: garden/<device>/...
func NewRealPublisher(broker, device string) (*RealPublisher, error) {
	p := &RealPublisher{
		pumpTopic:     fmt.Sprintf("garden/%s/%s", device, TopicPumpEvents),
		snapshotTopic: fmt.Sprintf("garden/%s/%s", device, TopicSnapshots),
		systemTopic:   fmt.Sprintf("garden/%s/%s", device, TopicSystem),
		buffer:        newRingBuffer(bufferCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("garden-controller-" + device).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			p.replayBuffered()
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// LogPumpEvent sends a pump on/off event at QoS 1 so watering history
// survives brief broker outages.
func (p *RealPublisher) LogPumpEvent(ts time.Time, on bool, trigger, ruleID string) error {
	payload, err := FormatPumpPayload(ts, on, trigger, ruleID)
	if err != nil {
		return fmt.Errorf("format pump payload: %w", err)
	}
	return p.publish(p.pumpTopic, payload, 1, false)
}

// PublishSnapshot sends a sensor snapshot at QoS 0 (losing one is harmless).
func (p *RealPublisher) PublishSnapshot(snap Snapshot) error {
	payload, err := FormatSnapshotPayload(snap)
	if err != nil {
		return fmt.Errorf("format snapshot payload: %w", err)
	}
	return p.publish(p.snapshotTopic, payload, 0, false)
}

// PublishSystem sends a system lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(p.systemTopic, payload, 1, event.Retained)
}

func (p *RealPublisher) publish(topic string, payload []byte, qos byte, retained bool) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.buffer.len()
		p.mu.Unlock()
		return fmt.Errorf("not connected, buffered (%d pending)", n)
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// replayBuffered sends everything that accumulated while disconnected.
func (p *RealPublisher) replayBuffered() {
	p.mu.Lock()
	msgs := p.buffer.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	log.Printf("telemetry: replaying %d buffered messages", len(msgs))
	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("telemetry: replay timeout on %s", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("telemetry: replay failed on %s: %v", m.topic, err)
		}
	}
}

// IsConnected reports whether the MQTT connection is active.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
