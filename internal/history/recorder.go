package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizdumps/internal/domain"
	"quizdumps/internal/event"
)

type Config struct {
	EventBus *event.Bus
	DB       *pgxpool.Pool
}

// Recorder persists scored rounds. It hangs off the event bus so
// scoring stays a pure read over session state.
type Recorder struct {
	db *pgxpool.Pool
}

func NewRecorder(c Config) *Recorder {
	r := &Recorder{db: c.DB}

	c.EventBus.Subscribe(domain.EventNameRoundScored, func(ctx context.Context, e event.Event) error {
		return r.Record(ctx, e.(domain.EventRoundScored).Result)
	})

	return r
}

func (r *Recorder) Record(ctx context.Context, res domain.RoundResult) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate result ID: %w", err)
	}

	const stmt = `
INSERT INTO results (result_id, username, category, score, total_correct, total_wrong, total_questions, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err = r.db.Exec(ctx, stmt,
		id, res.Username, string(res.Category),
		res.Score, res.TotalCorrect, res.TotalWrong, res.Total,
		res.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	return nil
}
