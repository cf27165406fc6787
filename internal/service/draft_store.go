package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leonard05717/appointment/internal/booking"
	"github.com/leonard05717/appointment/pkg/redis"
)

// DraftStore 按用户保存预约向导工作副本，不存在时返回新草稿
type DraftStore interface {
	Get(ctx context.Context, userID uint) (*booking.Draft, error)
	Save(ctx context.Context, userID uint, d *booking.Draft) error
	Delete(ctx context.Context, userID uint) error
}

const defaultDraftTTL = 2 * time.Hour

// ── Redis 实现 ──

// draftKV Redis 客户端中草稿存储用到的部分
type draftKV interface {
	SetJSON(ctx context.Context, key string, data []byte, ttl time.Duration) error
	GetJSON(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type redisDraftStore struct {
	kv  draftKV
	ttl time.Duration
}

// NewRedisDraftStore 草稿保存在 Redis，多实例共享
func NewRedisDraftStore(kv draftKV, ttl time.Duration) DraftStore {
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	return &redisDraftStore{kv: kv, ttl: ttl}
}

func draftKey(userID uint) string {
	return fmt.Sprintf("booking:draft:%d", userID)
}

func (s *redisDraftStore) Get(ctx context.Context, userID uint) (*booking.Draft, error) {
	data, err := s.kv.GetJSON(ctx, draftKey(userID))
	if errors.Is(err, redis.ErrNotFound) {
		return booking.NewDraft(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取预约草稿失败: %w", err)
	}
	d := booking.NewDraft()
	if err := json.Unmarshal(data, d); err != nil {
		// 损坏的草稿直接丢弃
		return booking.NewDraft(), nil
	}
	if d.Reasons == nil {
		d.Reasons = []string{}
	}
	return d, nil
}

func (s *redisDraftStore) Save(ctx context.Context, userID uint, d *booking.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.kv.SetJSON(ctx, draftKey(userID), data, s.ttl)
}

func (s *redisDraftStore) Delete(ctx context.Context, userID uint) error {
	return s.kv.Delete(ctx, draftKey(userID))
}

// ── 进程内实现 ──

type memoryDraft struct {
	draft   booking.Draft
	expires time.Time
}

type memoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[uint]memoryDraft
}

// NewMemoryDraftStore 未配置 Redis 时使用，重启后草稿丢失
func NewMemoryDraftStore(ttl time.Duration, now func() time.Time) DraftStore {
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	if now == nil {
		now = time.Now
	}
	return &memoryDraftStore{ttl: ttl, now: now, drafts: make(map[uint]memoryDraft)}
}

func (s *memoryDraftStore) Get(_ context.Context, userID uint) (*booking.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[userID]
	if !ok || !s.now().Before(entry.expires) {
		delete(s.drafts, userID)
		return booking.NewDraft(), nil
	}
	d := cloneDraft(&entry.draft)
	return d, nil
}

func (s *memoryDraftStore) Save(_ context.Context, userID uint, d *booking.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[userID] = memoryDraft{draft: *cloneDraft(d), expires: s.now().Add(s.ttl)}
	return nil
}

func (s *memoryDraftStore) Delete(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, userID)
	return nil
}

func cloneDraft(d *booking.Draft) *booking.Draft {
	c := *d
	c.Reasons = append([]string{}, d.Reasons...)
	if d.Identity != nil {
		id := *d.Identity
		c.Identity = &id
	}
	return &c
}
