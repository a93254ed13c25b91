// Package tokencache shares management API access tokens between processes via Redis
package tokencache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	keyPrefix = "devicecode:token:"

	// ExpiryMargin is subtracted from a token's lifetime so a cached token
	// is never handed out just before it expires
	ExpiryMargin = 30 * time.Second

	// opTimeout bounds each Redis call made from Token
	opTimeout = 2 * time.Second
)

// cachedToken is the stored form of an oauth2.Token
type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
}

// RedisTokenSource caches tokens from a base source in Redis
type RedisTokenSource struct {
	client *redis.Client
	base   oauth2.TokenSource
	key    string
	logger *zap.Logger

	mu sync.Mutex
}

// Key derives the cache key for a client ID and audience
func Key(clientID, audience string) string {
	sum := sha256.Sum256([]byte(clientID + "\x00" + audience))
	return keyPrefix + hex.EncodeToString(sum[:16])
}

// NewRedisTokenSource wraps base. key is usually built with Key.
func NewRedisTokenSource(client *redis.Client, base oauth2.TokenSource, key string, logger *zap.Logger) *RedisTokenSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTokenSource{
		client: client,
		base:   base,
		key:    key,
		logger: logger,
	}
}

// Token returns the cached token while it is valid past ExpiryMargin,
// otherwise a fresh one from the base source. Redis failures are logged
// and never fail the call.
func (s *RedisTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	token, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("reading cached token", zap.String("key", s.key), zap.Error(err))
	}
	if token != nil {
		return token, nil
	}

	token, err = s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("fetching token: %w", err)
	}

	if err := s.save(ctx, token); err != nil {
		s.logger.Warn("caching token", zap.String("key", s.key), zap.Error(err))
	}

	return token, nil
}

func (s *RedisTokenSource) load(ctx context.Context) (*oauth2.Token, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting token: %w", err)
	}

	var cached cachedToken
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("unmarshaling token: %w", err)
	}

	if cached.AccessToken == "" || time.Until(cached.Expiry) <= ExpiryMargin {
		return nil, nil
	}

	return &oauth2.Token{
		AccessToken: cached.AccessToken,
		TokenType:   cached.TokenType,
		Expiry:      cached.Expiry,
	}, nil
}

func (s *RedisTokenSource) save(ctx context.Context, token *oauth2.Token) error {
	// Tokens without an expiry are not shared
	if token.Expiry.IsZero() {
		return nil
	}

	ttl := time.Until(token.Expiry) - ExpiryMargin
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(cachedToken{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
	})
	if err != nil {
		return fmt.Errorf("marshaling token: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	return nil
}

// CheckHealth verifies Redis connectivity
func (s *RedisTokenSource) CheckHealth(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
