package banner

import (
	"sync"
	"time"
)

const (
	DefaultDuration = 4 * time.Second

	ThrottledMessage = "You're sending messages too quickly. Please wait a moment."
	GenericMessage   = "Something went wrong. Please try again shortly."
)

// Banner is a single transient error message. While one is visible a new one
// is dropped; it disappears on its own once its duration has elapsed.
type Banner struct {
	mu       sync.Mutex
	text     string
	until    time.Time
	duration time.Duration
	now      func() time.Time
}

type Option func(*Banner)

func WithDuration(d time.Duration) Option {
	return func(b *Banner) {
		if d > 0 {
			b.duration = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Banner) {
		b.now = now
	}
}

func New(opts ...Option) *Banner {
	b := &Banner{duration: DefaultDuration, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Show displays msg unless another banner is still visible. It reports
// whether msg was accepted.
func (b *Banner) Show(msg string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.visibleAt(now) {
		return false
	}
	b.text = msg
	b.until = now.Add(b.duration)
	return true
}

// Text returns the visible message, or "" once it has been dismissed.
func (b *Banner) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.visibleAt(b.now()) {
		b.text = ""
		return ""
	}
	return b.text
}

func (b *Banner) Dismiss() {
	b.mu.Lock()
	b.text = ""
	b.until = time.Time{}
	b.mu.Unlock()
}

func (b *Banner) visibleAt(now time.Time) bool {
	return b.text != "" && now.Before(b.until)
}
