package domain

const (
	EventNameRoundScored = "round.scored"
)

type EventRoundScored struct {
	Result RoundResult
}

func (EventRoundScored) Name() string { return EventNameRoundScored }
