package providers

import (
	"context"
	"log"
)

// AchievementFacts are the per-player facts handed to the achievement
// engine when a game finishes.
type AchievementFacts struct {
	PerfectGame bool `json:"perfect_game"`
	Won         bool `json:"won"`
	Score       int  `json:"score"`
	Rank        int  `json:"rank"`
}

// AchievementTrigger is the external achievement engine collaborator,
// called once per player at game finish. Returns the ids of newly awarded
// achievements.
type AchievementTrigger interface {
	Evaluate(ctx context.Context, userID uint, facts AchievementFacts) ([]string, error)
}

// LogAchievementTrigger is the default trigger when no achievement engine
// is wired; it only logs the facts.
type LogAchievementTrigger struct{}

func (LogAchievementTrigger) Evaluate(ctx context.Context, userID uint, facts AchievementFacts) ([]string, error) {
	log.Printf("achievements: user %d finished rank=%d score=%d perfect=%t",
		userID, facts.Rank, facts.Score, facts.PerfectGame)
	return nil, nil
}
