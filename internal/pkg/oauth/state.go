package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	stateKeyPrefix = "powerplan:oauth:state:"
	stateTTL       = 10 * time.Minute
)

var (
	ErrInvalidState   = errors.New("invalid or expired state")
	ErrUnsafeRedirect = errors.New("redirect target not allowed")
)

// StateStore 一次性 OAuth state，同时保存登录成功后的回跳地址。
// 回跳地址会携带 token，只允许站内相对路径或白名单 origin。
type StateStore struct {
	rdb     *redis.Client
	origins map[string]struct{}
}

func NewStateStore(rdb *redis.Client, allowedOrigins ...string) *StateStore {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	return &StateStore{rdb: rdb, origins: origins}
}

func (s *StateStore) checkRedirect(redirect string) error {
	if redirect == "" {
		return nil
	}
	u, err := url.Parse(redirect)
	if err != nil {
		return ErrUnsafeRedirect
	}
	if u.Scheme == "" && u.Host == "" {
		if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(redirect, "//") {
			return ErrUnsafeRedirect
		}
		return nil
	}
	if _, ok := s.origins[u.Scheme+"://"+u.Host]; !ok {
		return ErrUnsafeRedirect
	}
	return nil
}

// GenerateState 生成 state 并记录回跳地址
func (s *StateStore) GenerateState(ctx context.Context, redirect string) (string, error) {
	if err := s.checkRedirect(redirect); err != nil {
		return "", err
	}

	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := hex.EncodeToString(buf[:])

	if err := s.rdb.Set(ctx, stateKeyPrefix+state, redirect, stateTTL).Err(); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

// ValidateState 消费 state，返回回跳地址
func (s *StateStore) ValidateState(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrInvalidState
	}

	redirect, err := s.rdb.GetDel(ctx, stateKeyPrefix+state).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrInvalidState
	case err != nil:
		return "", fmt.Errorf("load state: %w", err)
	}
	return redirect, nil
}
