package delivery

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Console prints messages to a writer instead of sending them. It is the
// development and desktop default.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Deliver(_ context.Context, to, subject, body string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.w, "EMAIL SENT TO %s\nSubject: %s\n\n%s\n", to, subject, body)
	return err == nil
}
