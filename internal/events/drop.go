package events

import "context"

// DropBackend discards every published event. Used when no broker is
// configured.
type DropBackend struct{}

// NewDropBackend constructs a DropBackend.
func NewDropBackend() *DropBackend {
	return &DropBackend{}
}

// Publish discards the message.
func (d *DropBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return "", nil
}

// Subscribe blocks until the context is cancelled; no messages are ever
// delivered.
func (d *DropBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close is a no-op.
func (d *DropBackend) Close() error {
	return nil
}
