package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/coverage"
)

const jobKeyPrefix = "curricula:recalc-job:"

// jobStore keeps recalculation jobs as JSON values that expire after ttl.
type jobStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

var _ coverage.JobStore = (*jobStore)(nil) // interface compliance check

// NewJobStore connects to redis and checks that it is reachable.
func NewJobStore(conf *core.Config) (*jobStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        conf.Redis.Addr,
		Password:    conf.Redis.Password,
		DB:          conf.Redis.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", conf.Redis.Addr)
	}
	return NewJobStoreFromClient(rdb, conf.Redis.JobTTL), nil
}

func NewJobStoreFromClient(rdb *goredis.Client, ttl time.Duration) *jobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &jobStore{rdb: rdb, ttl: ttl}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func (store *jobStore) SaveJob(ctx context.Context, job coverage.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "encoding job")
	}
	if err = store.rdb.Set(ctx, jobKey(job.ID), raw, store.ttl).Err(); err != nil {
		return errors.Wrapf(err, "saving job %s", job.ID)
	}
	return nil
}

func (store *jobStore) GetJob(ctx context.Context, id string) (coverage.Job, error) {
	raw, err := store.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return coverage.Job{}, coverage.ErrJobNotFound
		}
		return coverage.Job{}, errors.Wrapf(err, "getting job %s", id)
	}

	var job coverage.Job
	if err = json.Unmarshal(raw, &job); err != nil {
		return coverage.Job{}, errors.Wrapf(err, "decoding job %s", id)
	}
	return job, nil
}

func (store *jobStore) Close() error {
	return store.rdb.Close()
}
