package messaging

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverNATS selects the NATS backend.
	DriverNATS = "nats"
	// DriverKafka selects the Kafka backend.
	DriverKafka = "kafka"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions groups config for supported messaging backends.
type FactoryOptions struct {
	NATS  NATSConfig
	Kafka KafkaConfig
}

// NewFromDriver constructs a Publisher by driver name.
func NewFromDriver(driver string, opts FactoryOptions) (Publisher, error) {
	switch strings.TrimSpace(driver) {
	case DriverNATS:
		return NewNATS(opts.NATS)
	case DriverKafka:
		return NewKafka(opts.Kafka)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
