package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jmartynas/socials/internal/config"
	"github.com/jmartynas/socials/internal/errs"
	"github.com/jmartynas/socials/strategy"
)

const (
	CookieName = "oauth_sid"
	DefaultTTL = strategy.StateMaxAge * time.Second
)

// Connect opens the redis client and checks it answers.
func Connect(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisStateStore keeps authorization states in redis. The browser only
// carries an opaque session id.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewRedisStateStore(client *redis.Client, log logrus.FieldLogger) *RedisStateStore {
	return &RedisStateStore{
		client: client,
		ttl:    DefaultTTL,
		log:    log.WithField("thread", "state"),
	}
}

func (s *RedisStateStore) Put(w http.ResponseWriter, r *http.Request, provider, state string) error {
	sid := sessionID(r)
	if sid == uuid.Nil {
		sid = uuid.New()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    sid.String(),
			Path:     "/",
			MaxAge:   int(s.ttl / time.Second),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
	key := stateKey(sid, provider)
	if err := s.client.WithContext(r.Context()).Set(key, state, s.ttl).Err(); err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	s.log.WithField("provider", provider).Debug("state stored")
	return nil
}

func (s *RedisStateStore) Take(_ http.ResponseWriter, r *http.Request, provider string) (string, error) {
	sid := sessionID(r)
	if sid == uuid.Nil {
		return "", strategy.ErrMissingState
	}
	key := stateKey(sid, provider)

	pipe := s.client.WithContext(r.Context()).TxPipeline()
	get := pipe.Get(key)
	pipe.Del(key)
	if _, err := pipe.Exec(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: %w", errs.ErrStateNotFound, strategy.ErrMissingState)
		}
		return "", fmt.Errorf("take state: %w", err)
	}
	return get.Val(), nil
}

func sessionID(r *http.Request) uuid.UUID {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func stateKey(sid uuid.UUID, provider string) string {
	return "oauth2:state:" + sid.String() + ":" + provider
}
