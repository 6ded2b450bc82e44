package adjustment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// FormStore persists form snapshots in Redis keyed by operator
// session, so the workflow survives across requests. Writes are
// last-write-wins, mirroring the single in-memory state object the
// screen works against.
type FormStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFormStore constructs the store.
func NewFormStore(client *redis.Client, ttl time.Duration) *FormStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FormStore{client: client, ttl: ttl}
}

// Load returns the form for the session, or a fresh idle form when
// none is stored.
func (s *FormStore) Load(ctx context.Context, sessionID string) (*Form, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("adjustment: form store not initialised")
	}
	if sessionID == "" {
		return nil, errors.New("adjustment: session id required")
	}
	payload, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewForm(), nil
		}
		return nil, err
	}
	var form Form
	if err := json.Unmarshal(payload, &form); err != nil {
		return nil, err
	}
	if form.State == "" {
		form.State = FormIdle
	}
	return &form, nil
}

// Save writes the form snapshot.
func (s *FormStore) Save(ctx context.Context, sessionID string, form *Form) error {
	if s == nil || s.client == nil {
		return errors.New("adjustment: form store not initialised")
	}
	if sessionID == "" {
		return errors.New("adjustment: session id required")
	}
	data, err := json.Marshal(form)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err()
}

// Delete drops the stored form.
func (s *FormStore) Delete(ctx context.Context, sessionID string) error {
	if s == nil || s.client == nil {
		return nil
	}
	err := s.client.Del(ctx, s.key(sessionID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (s *FormStore) key(sessionID string) string {
	return "adjustment:form:" + sessionID
}
