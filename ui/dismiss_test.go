package ui

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type fired struct {
	mu  sync.Mutex
	ids []string
}

func (f *fired) record(id string) {
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()
}

func (f *fired) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func TestDismisser_FiresOnce(t *testing.T) {
	defer goleak.VerifyNone(t)
	var f fired
	x := newDismisser(f.record)

	x.schedule("a", 5*time.Millisecond)

	assert.Eventually(t, func() bool { return len(f.list()) == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, x.pending())
	x.close()
	assert.Equal(t, []string{"a"}, f.list())
}

func TestDismisser_RescheduleReplaces(t *testing.T) {
	defer goleak.VerifyNone(t)
	var f fired
	x := newDismisser(f.record)

	x.schedule("a", time.Hour)
	x.schedule("a", 5*time.Millisecond)

	assert.Eventually(t, func() bool { return len(f.list()) == 1 }, time.Second, time.Millisecond)
	x.close()
}

func TestDismisser_CancelAndClose(t *testing.T) {
	defer goleak.VerifyNone(t)
	var f fired
	x := newDismisser(f.record)

	x.schedule("a", 10*time.Millisecond)
	x.schedule("b", 10*time.Millisecond)
	x.schedule("c", time.Hour)
	x.cancel("a")
	assert.Equal(t, 2, x.pending())

	x.cancelAll()
	assert.Zero(t, x.pending())

	x.close()
	x.schedule("d", time.Millisecond)
	assert.Zero(t, x.pending(), "closed dismisser rejects new timers")

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, f.list())
}
