package banner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBanner_AutoDismiss(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	b := New(WithClock(clock.Now))

	assert.True(t, b.Show(ThrottledMessage))
	assert.Equal(t, ThrottledMessage, b.Text())

	clock.Advance(3999 * time.Millisecond)
	assert.Equal(t, ThrottledMessage, b.Text())

	clock.Advance(time.Millisecond)
	assert.Empty(t, b.Text())
}

func TestBanner_KeepsFirstMessageWhileVisible(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	b := New(WithClock(clock.Now))

	assert.True(t, b.Show(GenericMessage))
	assert.False(t, b.Show(ThrottledMessage))
	assert.Equal(t, GenericMessage, b.Text())

	clock.Advance(DefaultDuration)
	assert.True(t, b.Show(ThrottledMessage))
	assert.Equal(t, ThrottledMessage, b.Text())
}

func TestBanner_CustomDurationAndDismiss(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	b := New(WithClock(clock.Now), WithDuration(time.Second))

	b.Show(GenericMessage)
	clock.Advance(time.Second)
	assert.Empty(t, b.Text())

	b.Show(GenericMessage)
	b.Dismiss()
	assert.Empty(t, b.Text())
	assert.True(t, b.Show(ThrottledMessage))
}
