package session

import (
	"encoding/json"

	"quizdumps/internal/domain"
)

// Well-known session keys. The names are part of the persisted record
// format, so renaming them invalidates live sessions.
const (
	keyLoggedIn       = "loggedin"
	keyAccountID      = "id"
	keyUsername       = "username"
	keySelectedQuiz   = "selected_quiz"
	keyQuestions      = "questions"
	keyUserAnswers    = "user_answers"
	keyTotalQuestions = "total_questions"
	keyFlashes        = "_flashes"
)

// Session is the per-browser key-value state carried across requests.
// Known keys have typed accessors; anything else goes through the open
// Get/Set map.
type Session struct {
	sid    string
	values map[string]json.RawMessage
}

func newSession(sid string, values map[string]json.RawMessage) *Session {
	if values == nil {
		values = make(map[string]json.RawMessage)
	}
	return &Session{sid: sid, values: values}
}

// NewBlank returns an empty session bound to sid, unbacked by any
// store. Tests drive the quiz flow with it directly.
func NewBlank(sid string) *Session {
	return newSession(sid, nil)
}

// ID returns the opaque session identifier. It is stable for the
// lifetime of a browser session.
func (s *Session) ID() string { return s.sid }

// Len returns the number of stored keys. A zero-length session is
// deleted on save.
func (s *Session) Len() int { return len(s.values) }

// Set stores v under key, JSON-encoded.
func (s *Session) Set(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		// Session values are plain data; a marshal failure is a
		// programming error.
		panic(err)
	}
	s.values[key] = b
}

// Get decodes the value under key into dst and reports whether the key
// was present and decodable.
func (s *Session) Get(key string, dst any) bool {
	raw, ok := s.values[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// Delete removes key from the session.
func (s *Session) Delete(key string) {
	delete(s.values, key)
}

func (s *Session) LoggedIn() bool {
	var v bool
	return s.Get(keyLoggedIn, &v) && v
}

// SetIdentity marks the session authenticated.
func (s *Session) SetIdentity(accountID, username string) {
	s.Set(keyLoggedIn, true)
	s.Set(keyAccountID, accountID)
	s.Set(keyUsername, username)
}

// ClearIdentity removes the identity keys, leaving the rest of the
// session intact.
func (s *Session) ClearIdentity() {
	s.Delete(keyLoggedIn)
	s.Delete(keyAccountID)
	s.Delete(keyUsername)
}

func (s *Session) AccountID() string {
	var v string
	s.Get(keyAccountID, &v)
	return v
}

func (s *Session) Username() string {
	var v string
	s.Get(keyUsername, &v)
	return v
}

func (s *Session) SelectedQuiz() (domain.Category, bool) {
	var v domain.Category
	ok := s.Get(keySelectedQuiz, &v)
	return v, ok
}

func (s *Session) SetSelectedQuiz(c domain.Category) {
	s.Set(keySelectedQuiz, c)
}

// Round returns the in-progress round state, if any.
func (s *Session) Round() (domain.RoundState, bool) {
	var r domain.RoundState
	if !s.Get(keyQuestions, &r.Questions) {
		return domain.RoundState{}, false
	}
	s.Get(keyUserAnswers, &r.Answers)
	s.Get(keyTotalQuestions, &r.TotalQuestions)
	return r, true
}

func (s *Session) SetRound(r domain.RoundState) {
	s.Set(keyQuestions, r.Questions)
	s.Set(keyUserAnswers, r.Answers)
	s.Set(keyTotalQuestions, r.TotalQuestions)
}

func (s *Session) ClearRound() {
	s.Delete(keyQuestions)
	s.Delete(keyUserAnswers)
	s.Delete(keyTotalQuestions)
}

// AddFlash queues a one-shot message for the next rendered page.
func (s *Session) AddFlash(msg string) {
	var msgs []string
	s.Get(keyFlashes, &msgs)
	msgs = append(msgs, msg)
	s.Set(keyFlashes, msgs)
}

// Flashes returns queued messages and removes them from the session.
func (s *Session) Flashes() []string {
	var msgs []string
	if !s.Get(keyFlashes, &msgs) {
		return nil
	}
	s.Delete(keyFlashes)
	return msgs
}
