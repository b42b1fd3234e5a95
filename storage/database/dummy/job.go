package dummydb

import (
	"context"

	"github.com/trezcool/curricula/core/coverage"
)

// jobStore keeps recalculation jobs in memory. Jobs never expire.
type jobStore struct {
	db *jobTable
}

var _ coverage.JobStore = (*jobStore)(nil) // interface compliance check

func NewJobStore(db *DB) *jobStore {
	return &jobStore{db: db.job}
}

func (store *jobStore) SaveJob(_ context.Context, job coverage.Job) error {
	store.db.Lock()
	defer store.db.Unlock()

	j := job
	store.db.table[j.ID] = &j
	return nil
}

func (store *jobStore) GetJob(_ context.Context, id string) (coverage.Job, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	if j, ok := store.db.table[id]; ok {
		return *j, nil
	}
	return coverage.Job{}, coverage.ErrJobNotFound
}
