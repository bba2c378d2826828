package scheduling

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const slotLockStripes = 64

// slotLocks serializes booking admission per (doctor, date, slot start) so
// two concurrent requests for the same slot cannot both pass the capacity
// check before either insert lands. Stripes bound memory: unrelated slots may
// share a mutex, which only costs a little contention.
//
// This guards a single process. Running multiple instances against one
// database would need a database-side constraint instead.
type slotLocks struct {
	stripes [slotLockStripes]sync.Mutex
}

func newSlotLocks() *slotLocks { return &slotLocks{} }

func (l *slotLocks) keyFor(doctorID uuid.UUID, date time.Time, start TimeOfDay) uint32 {
	h := fnv.New32a()
	h.Write(doctorID[:])
	fmt.Fprintf(h, "%s|%d", date.Format("2006-01-02"), int(start))
	return h.Sum32() % slotLockStripes
}

func (l *slotLocks) lock(doctorID uuid.UUID, date time.Time, start TimeOfDay) func() {
	m := &l.stripes[l.keyFor(doctorID, date, start)]
	m.Lock()
	return m.Unlock
}
