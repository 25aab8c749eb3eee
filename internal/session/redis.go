package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const examSessionKeyPrefix = "exam:session:"

// RedisStore keeps exam sessions in Redis so in-flight attempts survive a
// gateway restart. Entries expire after ttl; an expired entry simply pushes
// scoring onto the course-snapshot fallback path.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(studentID, courseID int64) string {
	return fmt.Sprintf("%s%d:%d", examSessionKeyPrefix, studentID, courseID)
}

func (r *RedisStore) Put(ctx context.Context, studentID, courseID int64, s ExamSession) error {
	buf, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(studentID, courseID), buf, r.ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, studentID, courseID int64) (ExamSession, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(studentID, courseID)).Bytes()
	if err == redis.Nil {
		return ExamSession{}, false, nil
	}
	if err != nil {
		return ExamSession{}, false, err
	}
	var s ExamSession
	if err := json.Unmarshal(raw, &s); err != nil {
		// Corrupt value: treat as absent rather than blocking submission.
		return ExamSession{}, false, nil
	}
	return s, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, studentID, courseID int64) error {
	return r.client.Del(ctx, redisKey(studentID, courseID)).Err()
}
