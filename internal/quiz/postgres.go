package quiz

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizdumps/internal/domain"
	"quizdumps/internal/errors"
)

// PostgresCatalog serves quiz content from postgres. Question sets are
// stored as jsonb documents, preserving their original document shape.
type PostgresCatalog struct {
	db *pgxpool.Pool
}

func NewPostgresCatalog(db *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) ListDumps(ctx context.Context) ([]domain.Dump, error) {
	const stmt = `
SELECT title, description, num_dumps, category
FROM dumps
ORDER BY dump_id;`

	rows, err := c.db.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Dump, error) {
		var d domain.Dump
		if err := r.Scan(&d.Title, &d.Description, &d.NumDumps, &d.Category); err != nil {
			return domain.Dump{}, err
		}
		return d, nil
	})
}

func (c *PostgresCatalog) ListQuizzes(ctx context.Context, cat domain.Category) ([]domain.Quiz, error) {
	const stmt = `
SELECT quiz_id, title, description
FROM quizzes
WHERE category = $1
ORDER BY quiz_id;`

	rows, err := c.db.Query(ctx, stmt, string(cat))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Quiz, error) {
		q := domain.Quiz{Category: cat}
		if err := r.Scan(&q.QuizID, &q.Title, &q.Description); err != nil {
			return domain.Quiz{}, err
		}
		return q, nil
	})
}

func (c *PostgresCatalog) GetQuiz(ctx context.Context, cat domain.Category, quizID string) (domain.Quiz, error) {
	const stmt = `
SELECT quiz_id, title, description
FROM quizzes
WHERE category = $1 AND quiz_id = $2;`

	q := domain.Quiz{Category: cat}
	err := c.db.QueryRow(ctx, stmt, string(cat), quizID).Scan(&q.QuizID, &q.Title, &q.Description)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: category=%s id=%s", cat, quizID))
	}
	if err != nil {
		return domain.Quiz{}, err
	}

	return q, nil
}

func (c *PostgresCatalog) FirstQuestionSet(ctx context.Context, cat domain.Category) ([]domain.Question, error) {
	const stmt = `
SELECT questions
FROM question_sets
WHERE category = $1
ORDER BY set_id
LIMIT 1;`

	var raw []byte
	err := c.db.QueryRow(ctx, stmt, string(cat)).Scan(&raw)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no question set: category=%s", cat))
	}
	if err != nil {
		return nil, err
	}

	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("decode question set: category=%s: %w", cat, err)
	}

	return questions, nil
}
