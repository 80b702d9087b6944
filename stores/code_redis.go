package stores

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	oa "github.com/ayursutra/ayurauth"
)

// redisCmdable is the slice of the redis client the code store uses,
// small enough to fake in tests.
type redisCmdable interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisCodeStore keeps verification records in Redis so several app
// instances can share one code table. The record's own expiry
// timestamp travels in the value: the redis key TTL is only a
// janitorial backstop, generous enough that a lazily-expired record is
// still present to be reported as expired rather than not_found.
type RedisCodeStore struct {
	client redisCmdable
	prefix string

	now func() time.Time
}

// redisBackstopTTL is how long a record lingers past issuance before
// redis reaps it outright.
const redisBackstopTTL = 24 * time.Hour

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{
		client: client,
		prefix: "verify:code:",
		now:    time.Now,
	}
}

func (s *RedisCodeStore) key(email string) string {
	return s.prefix + email
}

func (s *RedisCodeStore) Issue(ctx context.Context, email string) (*oa.VerificationRecord, error) {
	code, err := oa.GenerateCode()
	if err != nil {
		return nil, err
	}
	rec := &oa.VerificationRecord{
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().Add(oa.CodeTTL),
	}
	value := fmt.Sprintf("%s|%d", rec.Code, rec.ExpiresAt.Unix())
	if err := s.client.Set(ctx, s.key(email), value, redisBackstopTTL).Err(); err != nil {
		return nil, fmt.Errorf("storing verification code: %w", err)
	}
	return rec, nil
}

func (s *RedisCodeStore) Validate(ctx context.Context, email, code string) error {
	value, err := s.client.Get(ctx, s.key(email)).Result()
	if err == redis.Nil {
		return oa.NewAuthError(oa.ErrCodeNoPendingCode, "No verification code found for this email", "email")
	}
	if err != nil {
		return fmt.Errorf("loading verification code: %w", err)
	}

	stored, expiresAt, parseErr := parseCodeValue(value)
	if parseErr != nil {
		// Unreadable record: drop it and treat as absent.
		s.client.Del(ctx, s.key(email))
		return oa.NewAuthError(oa.ErrCodeNoPendingCode, "No verification code found for this email", "email")
	}
	if s.now().After(expiresAt) {
		s.client.Del(ctx, s.key(email))
		return oa.NewAuthError(oa.ErrCodeExpiredCode, "Verification code has expired. Please request a new one.", "code")
	}
	if stored != code {
		return oa.NewAuthError(oa.ErrCodeInvalidCode, "Invalid verification code. Please try again.", "code")
	}
	if err := s.client.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("consuming verification code: %w", err)
	}
	return nil
}

func parseCodeValue(value string) (code string, expiresAt time.Time, err error) {
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return "", time.Time{}, fmt.Errorf("malformed code record")
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed code expiry")
	}
	return parts[0], time.Unix(unix, 0), nil
}
