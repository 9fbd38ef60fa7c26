// Package batch moves statement imports off the coordinating goroutine.
// Files are grouped into one batch per target account; batches run one at a
// time on a worker that owns its own database connection and reports back
// over a typed channel.
package batch

import (
	"github.com/google/uuid"

	"github.com/cleared-dev/mt940import/internal/accounts"
	"github.com/cleared-dev/mt940import/internal/model"
)

// ImportBatch is the set of files destined for one account.
type ImportBatch struct {
	ID      string
	Account model.BankAccount
	Files   []string
}

// Queue is a FIFO of pending batches. Only the coordinator touches it.
type Queue struct {
	batches []ImportBatch
}

// Push appends a batch.
func (q *Queue) Push(b ImportBatch) {
	q.batches = append(q.batches, b)
}

// Pop removes and returns the oldest batch.
func (q *Queue) Pop() (ImportBatch, bool) {
	if len(q.batches) == 0 {
		return ImportBatch{}, false
	}
	b := q.batches[0]
	q.batches = q.batches[1:]
	return b, true
}

// Len returns the number of pending batches.
func (q *Queue) Len() int { return len(q.batches) }

// Clear drops every pending batch and returns how many were dropped.
func (q *Queue) Clear() int {
	n := len(q.batches)
	q.batches = nil
	return n
}

// Session is the coordinator's state for one import operation.
type Session struct {
	// Active is the account currently selected by the user, if any.
	Active *model.BankAccount
	Queue  Queue
}

// Schedule groups assignments into one batch per account and queues them.
// Batches are ordered by the first file routed to their account; files keep
// their selection order inside a batch.
func (s *Session) Schedule(assignments []accounts.Assignment) []ImportBatch {
	index := make(map[int64]int)
	var batches []ImportBatch
	for _, a := range assignments {
		i, ok := index[a.Account.ID]
		if !ok {
			i = len(batches)
			index[a.Account.ID] = i
			batches = append(batches, ImportBatch{ID: uuid.NewString(), Account: a.Account})
		}
		batches[i].Files = append(batches[i].Files, a.File)
	}
	for _, b := range batches {
		s.Queue.Push(b)
	}
	return batches
}
