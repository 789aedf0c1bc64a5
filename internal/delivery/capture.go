// internal/delivery/capture.go
package delivery

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Capture is a Mailer that records every message. Tests and dry runs use
// it in place of a real provider.
type Capture struct {
	mu       sync.Mutex
	messages []Message

	// SendFunc, when set, decides the outcome per message.
	SendFunc func(msg Message) (string, error)
}

func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) Send(ctx context.Context, msg Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendFunc != nil {
		id, err := c.SendFunc(msg)
		if err != nil {
			return "", err
		}
		c.messages = append(c.messages, msg)
		return id, nil
	}
	c.messages = append(c.messages, msg)
	return uuid.New().String(), nil
}

// Messages returns everything sent so far.
func (c *Capture) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
