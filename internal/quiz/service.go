package quiz

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"quizdumps/internal/domain"
	"quizdumps/internal/errors"
	"quizdumps/internal/event"
	"quizdumps/internal/session"
)

// Catalog loads quiz content for a category.
type Catalog interface {
	ListDumps(ctx context.Context) ([]domain.Dump, error)
	ListQuizzes(ctx context.Context, c domain.Category) ([]domain.Quiz, error)
	// GetQuiz returns the quiz metadata or a CodeNotFound error.
	GetQuiz(ctx context.Context, c domain.Category, quizID string) (domain.Quiz, error)
	// FirstQuestionSet returns the question pool of the category's first
	// question-set document, or a CodeNotFound error when the category
	// has none.
	FirstQuestionSet(ctx context.Context, c domain.Category) ([]domain.Question, error)
}

type Config struct {
	Catalog  Catalog
	EventBus *event.Bus

	// Rand is test-only; defaults to a time-seeded source.
	Rand *rand.Rand
}

// Service drives the quiz flow: category selection, round start,
// per-question navigation and scoring. All round state lives in the
// session, never in the service.
type Service struct {
	catalog Catalog
	eb      *event.Bus
	rnd     *rand.Rand
}

func NewService(c Config) *Service {
	s := &Service{
		catalog: c.Catalog,
		eb:      c.EventBus,
		rnd:     c.Rand,
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// ListDumps groups all dump documents round-robin into four buckets for
// the listing page.
func (s *Service) ListDumps(ctx context.Context) ([4][]domain.Dump, error) {
	dumps, err := s.catalog.ListDumps(ctx)
	if err != nil {
		return [4][]domain.Dump{}, err
	}

	var buckets [4][]domain.Dump
	for i, d := range dumps {
		buckets[i%4] = append(buckets[i%4], d)
	}
	return buckets, nil
}

// SelectQuiz stores the chosen category in the session and returns the
// category's quiz listing. Re-selecting overwrites the previous choice
// and discards any in-progress round.
func (s *Service) SelectQuiz(ctx context.Context, sess *session.Session, c domain.Category) ([]domain.Quiz, error) {
	if !domain.ValidCategory(c) {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("Invalid quiz selection"))
	}

	sess.SetSelectedQuiz(c)
	sess.ClearRound()

	return s.catalog.ListQuizzes(ctx, c)
}

// PlayQuiz returns the quiz document for display. The session is not
// mutated.
func (s *Service) PlayQuiz(ctx context.Context, sess *session.Session, quizID string) (domain.Quiz, error) {
	c, ok := sess.SelectedQuiz()
	if !ok {
		return domain.Quiz{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("No quiz category selected."))
	}

	q, err := s.catalog.GetQuiz(ctx, c, quizID)
	if errors.Is(err, errors.CodeNotFound) {
		return domain.Quiz{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("No quiz found with the ID '%s' in category '%s'.", quizID, c))
	}
	if err != nil {
		return domain.Quiz{}, err
	}

	return q, nil
}

// StartRound initializes a fresh round from the category's question
// pool and stores it in the session. The quiz_id route parameter is
// accepted but does not narrow the pool; every round draws from the
// first question-set document of the category.
func (s *Service) StartRound(ctx context.Context, sess *session.Session, _ string) error {
	c, ok := sess.SelectedQuiz()
	if !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("No quiz category selected."))
	}

	questions, err := s.catalog.FirstQuestionSet(ctx, c)
	if err != nil && !errors.Is(err, errors.CodeNotFound) {
		return err
	}
	if len(questions) == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("No questions found for the selected quiz."))
	}

	shuffled := s.shuffle(questions)
	sess.SetRound(domain.RoundState{
		Questions:      shuffled,
		Answers:        make([]*string, len(shuffled)),
		TotalQuestions: len(shuffled),
	})

	return nil
}

// shuffle returns an unbiased Fisher-Yates permutation of a copy of qs.
func (s *Service) shuffle(qs []domain.Question) []domain.Question {
	shuffled := make([]domain.Question, len(qs))
	copy(shuffled, qs)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}

// QuestionAt returns question n (1-based) of the in-session round.
func (s *Service) QuestionAt(sess *session.Session, n int) (domain.Question, int, error) {
	round, ok := sess.Round()
	if !ok {
		return domain.Question{}, 0, errors.New(errors.CodeNotFound,
			errors.WithMessagef("No questions found."))
	}

	if n <= 0 || n > len(round.Questions) {
		return domain.Question{}, 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("Invalid question number."))
	}

	return round.Questions[n-1], round.TotalQuestions, nil
}

// RecordAnswer stores the submitted answer for question n, overwriting
// any earlier one, and returns the next question number along with
// whether the round is complete. A nil answer records "unanswered".
func (s *Service) RecordAnswer(sess *session.Session, n int, answer *string) (int, bool, error) {
	round, ok := sess.Round()
	if !ok {
		return 0, false, errors.New(errors.CodeNotFound,
			errors.WithMessagef("No questions found."))
	}

	if n <= 0 || n > len(round.Questions) {
		return 0, false, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("Invalid question number."))
	}

	round.Answers[n-1] = answer
	sess.SetRound(round)

	next := n + 1
	return next, next > len(round.Questions), nil
}

// Results scores the in-session round. Pure over session state; the
// round is not cleared. A round.scored event is published for the
// history recorder.
func (s *Service) Results(ctx context.Context, sess *session.Session, username string) (domain.RoundResult, error) {
	round, ok := sess.Round()
	if !ok || round.Answers == nil {
		return domain.RoundResult{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("No answers found."))
	}

	result := score(round, username)
	result.Category, _ = sess.SelectedQuiz()
	result.CompletedAt = time.Now().UTC()

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventRoundScored{Result: result})
	}

	return result, nil
}

func score(round domain.RoundState, username string) domain.RoundResult {
	questions, answers := round.Questions, round.Answers

	correct := 0
	breakdown := make([]domain.QuestionResult, 0, len(questions))
	for i, q := range questions {
		var isCorrect bool
		if i < len(answers) && answers[i] != nil {
			isCorrect = *answers[i] == q.CorrectOption
		}
		if isCorrect {
			correct++
		}

		var guess *string
		if i < len(answers) {
			guess = answers[i]
		}
		breakdown = append(breakdown, domain.QuestionResult{
			Number:        i + 1,
			Question:      q.Question,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			UserGuess:     guess,
			IsCorrect:     isCorrect,
		})
	}

	total := len(questions)
	pct := 0
	if total > 0 {
		pct = int(decimal.NewFromInt(int64(correct * 100)).
			Div(decimal.NewFromInt(int64(total))).
			Round(0).
			IntPart())
	}

	return domain.RoundResult{
		Username:     username,
		Score:        pct,
		TotalCorrect: correct,
		TotalWrong:   total - correct,
		Total:        total,
		Breakdown:    breakdown,
	}
}
