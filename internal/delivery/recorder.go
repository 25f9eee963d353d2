package delivery

import (
	"context"
	"regexp"
	"sync"
)

// Sent is one message captured by a Recorder.
type Sent struct {
	To      string
	Subject string
	Body    string
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// Code extracts the 6-digit code from the body, or "".
func (s Sent) Code() string {
	return codePattern.FindString(s.Body)
}

// Recorder keeps every message in memory. Fail makes subsequent deliveries
// report failure while still recording them.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Fail bool
}

func (r *Recorder) Deliver(_ context.Context, to, subject, body string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{To: to, Subject: subject, Body: body})
	return !r.Fail
}

// Messages returns a copy of everything delivered so far.
func (r *Recorder) Messages() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Last returns the newest message sent to the address.
func (r *Recorder) Last(to string) (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].To == to {
			return r.sent[i], true
		}
	}
	return Sent{}, false
}
