package services

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/benoftheworld/instant-music/models"
)

// Evaluation is the outcome of scoring one submitted answer. Accuracy is
// a factor in [0, 2]: 1.0 for a plain correct answer, below 1.0 for
// partial credit (tolerant year guesses, fuzzy matches), 2.0 for the
// free-text double-guess bonus.
type Evaluation struct {
	IsCorrect bool    `json:"is_correct"`
	Accuracy  float64 `json:"accuracy"`
}

// Year tolerance bands. Deliberately coarse steps, not continuous decay.
const (
	yearBandCloseDiff   = 2
	yearBandCloseFactor = 0.75
	yearBandFarDiff     = 5
	yearBandFarFactor   = 0.4
)

// Rank bonuses for the first three correct answers of a round, in
// submission order.
var rankBonuses = [...]int{10, 5, 2}

// Evaluator scores answers. It is a pure function holder: identical
// inputs always produce identical output.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// dualGuess is the free-text answer payload for Classic/Fast rounds where
// the player may guess both the artist and the title.
type dualGuess struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Evaluate scores a submitted answer against a round.
func (e *Evaluator) Evaluate(mode models.GameMode, answerMode models.AnswerMode, round *models.Round, submitted string) Evaluation {
	switch mode {
	case models.ModeYearGuess:
		// Year rounds use tolerance bands even in MCQ mode.
		return evaluateYear(submitted, round.CorrectAnswer)

	case models.ModeClassic, models.ModeFast:
		if answerMode == models.AnswerMCQ {
			return exactMatch(submitted, round.CorrectAnswer)
		}
		return evaluateDualGuess(submitted, round)

	case models.ModeLyrics, models.ModeKaraoke:
		if answerMode == models.AnswerMCQ {
			return exactMatch(submitted, round.CorrectAnswer)
		}
		matched, sim := matchText(submitted, round.CorrectAnswer)
		if !matched {
			return Evaluation{}
		}
		return Evaluation{IsCorrect: true, Accuracy: sim}
	}

	return Evaluation{}
}

// Points converts an evaluation and a response time into points. Base
// points decay 3 per second from 100 down to a floor of 10; any correct
// answer is worth at least 5.
func (e *Evaluator) Points(ev Evaluation, responseTime float64) int {
	if ev.Accuracy <= 0 {
		return 0
	}

	if responseTime < 0 {
		responseTime = 0
	}
	base := 100 - int(responseTime*3)
	if base < 10 {
		base = 10
	}

	points := int(float64(base) * ev.Accuracy)
	if points < 5 {
		points = 5
	}
	return points
}

// RankBonus returns the extra points for being the n-th correct responder
// of a round, where priorCorrect is how many correct answers the round
// already had at submission time.
func RankBonus(priorCorrect int) int {
	if priorCorrect >= 0 && priorCorrect < len(rankBonuses) {
		return rankBonuses[priorCorrect]
	}
	return 0
}

func exactMatch(submitted, correct string) Evaluation {
	if submitted == correct {
		return Evaluation{IsCorrect: true, Accuracy: 1.0}
	}
	return Evaluation{}
}

func evaluateYear(submitted, correct string) Evaluation {
	given, err := strconv.Atoi(strings.TrimSpace(submitted))
	if err != nil {
		return Evaluation{}
	}
	want, err := strconv.Atoi(strings.TrimSpace(correct))
	if err != nil {
		return Evaluation{}
	}

	diff := given - want
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return Evaluation{IsCorrect: true, Accuracy: 1.0}
	case diff <= yearBandCloseDiff:
		return Evaluation{IsCorrect: true, Accuracy: yearBandCloseFactor}
	case diff <= yearBandFarDiff:
		return Evaluation{IsCorrect: true, Accuracy: yearBandFarFactor}
	}
	return Evaluation{}
}

// evaluateDualGuess handles free-text Classic/Fast answers. The payload
// may be a JSON object carrying separate title and artist guesses; both
// right doubles the credit. A plain string is matched against the round's
// correct answer only.
func evaluateDualGuess(submitted string, round *models.Round) Evaluation {
	var guess dualGuess
	if err := json.Unmarshal([]byte(submitted), &guess); err == nil &&
		(guess.Title != "" || guess.Artist != "") {
		titleOK := false
		artistOK := false
		if guess.Title != "" {
			titleOK, _ = matchText(guess.Title, round.TrackName)
		}
		if guess.Artist != "" {
			artistOK, _ = matchText(guess.Artist, round.ArtistName)
		}

		switch {
		case titleOK && artistOK:
			return Evaluation{IsCorrect: true, Accuracy: 2.0}
		case titleOK || artistOK:
			return Evaluation{IsCorrect: true, Accuracy: 1.0}
		}
		return Evaluation{}
	}

	matched, sim := matchText(submitted, round.CorrectAnswer)
	if !matched {
		return Evaluation{}
	}
	return Evaluation{IsCorrect: true, Accuracy: sim}
}
