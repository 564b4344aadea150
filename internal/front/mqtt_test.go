package front

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluxgatelabs/coilscope/internal/bus"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

func TestBrokerTopicMapping(t *testing.T) {
	p := &MQTTPublisher{cfg: MQTTConfig{TopicPrefix: "lab/coilscope"}}
	assert.Equal(t, "lab/coilscope/bfield/data", p.brokerTopic(bus.TopicBField))

	// Trailing slash in the prefix does not double up
	p = &MQTTPublisher{cfg: MQTTConfig{TopicPrefix: "coilscope/"}}
	assert.Equal(t, "coilscope/calculation/command", p.brokerTopic(bus.TopicCalculationCommand))
}

func TestNewMQTTPublisherRequiresBroker(t *testing.T) {
	_, err := NewMQTTPublisher(MQTTConfig{}, bus.New(1), &logging.NoOpLogger{})
	assert.Error(t, err)
}
