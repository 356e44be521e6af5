package services

// EventPublisher publishes order lifecycle events to the message broker.
// Satisfied by *rabbitmq.Client; mocked in tests.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}
