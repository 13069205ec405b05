package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"quizdumps/internal/errors"
)

const (
	DefaultCookieName = "quiz_session"
	DefaultKeyPrefix  = "quiz_app_"
	DefaultTTL        = 30 * time.Minute

	sidBytes = 24
)

type Config struct {
	Redis      redis.UniversalClient
	CookieName string
	KeyPrefix  string
	TTL        time.Duration

	// Now is test-only; defaults to time.Now.
	Now func() time.Time
}

// Store persists sessions as JSON records in redis, keyed by a prefixed
// opaque identifier carried in an HTTP-only cookie.
type Store struct {
	redis  redis.UniversalClient
	cookie string
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(c Config) *Store {
	s := &Store{
		redis:  c.Redis,
		cookie: c.CookieName,
		prefix: c.KeyPrefix,
		ttl:    c.TTL,
		now:    c.Now,
	}
	if s.cookie == "" {
		s.cookie = DefaultCookieName
	}
	if s.prefix == "" {
		s.prefix = DefaultKeyPrefix
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// record is the persisted session document. Expiration is stored inside
// the record as well as on the redis key, so a record that outlives its
// logical lifetime is still treated as absent on load.
type record struct {
	Data       map[string]json.RawMessage `json:"data"`
	Expiration time.Time                  `json:"expiration"`
}

// Load resolves the request's session. A missing cookie mints a fresh
// identifier with an empty session; nothing is persisted until Save.
func (s *Store) Load(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(s.cookie)
	if err != nil || c.Value == "" {
		sid, err := newSID()
		if err != nil {
			return nil, errors.Internal(fmt.Errorf("session: mint sid: %w", err))
		}
		return newSession(sid, nil), nil
	}

	sid := c.Value
	b, err := s.redis.Get(ctx, s.key(sid)).Bytes()
	if err == redis.Nil {
		return newSession(sid, nil), nil
	}
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("session: load %s", s.key(sid)),
			errors.WithCause(err),
		)
	}

	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		// A corrupt record is unrecoverable; start over with the same sid.
		return newSession(sid, nil), nil
	}
	if !rec.Expiration.IsZero() && s.now().After(rec.Expiration) {
		return newSession(sid, nil), nil
	}

	return newSession(sid, rec.Data), nil
}

// Save persists the session and refreshes the cookie. An empty session
// deletes any persisted record and clears the cookie. The write happens
// on every request, so the TTL is refreshed even by read-only requests.
func (s *Store) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess.Len() == 0 {
		if err := s.redis.Del(ctx, s.key(sess.sid)).Err(); err != nil {
			return errors.New(errors.CodeUnavailable,
				errors.WithMessagef("session: delete %s", s.key(sess.sid)),
				errors.WithCause(err),
			)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     s.cookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		return nil
	}

	expiration := s.now().Add(s.ttl)
	b, err := json.Marshal(record{Data: sess.values, Expiration: expiration})
	if err != nil {
		return errors.Internal(fmt.Errorf("session: marshal record: %w", err))
	}

	if err := s.redis.Set(ctx, s.key(sess.sid), b, s.ttl).Err(); err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("session: save %s", s.key(sess.sid)),
			errors.WithCause(err),
		)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    sess.sid,
		Path:     "/",
		Expires:  expiration,
		HttpOnly: true,
	})
	return nil
}

func (s *Store) key(sid string) string {
	return s.prefix + sid
}

func newSID() (string, error) {
	b := make([]byte, sidBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
