package models

// GameMode selects how rounds are generated and scored.
type GameMode string

const (
	ModeClassic   GameMode = "classic"
	ModeFast      GameMode = "fast"
	ModeYearGuess GameMode = "year_guess"
	ModeLyrics    GameMode = "lyrics"
	ModeKaraoke   GameMode = "karaoke"
)

// Valid reports whether m is one of the known game modes.
func (m GameMode) Valid() bool {
	switch m {
	case ModeClassic, ModeFast, ModeYearGuess, ModeLyrics, ModeKaraoke:
		return true
	}
	return false
}

// MinPlayers returns the minimum number of players required to start a
// room in this mode. Karaoke is playable solo.
func (m GameMode) MinPlayers() int {
	if m == ModeKaraoke {
		return 1
	}
	return 2
}

// RequiresSource reports whether the mode needs a configured track source
// (playlist) to generate rounds. Karaoke draws from the curated catalogue.
func (m GameMode) RequiresSource() bool {
	return m != ModeKaraoke
}

// AnswerMode selects how players answer: multiple choice or free text.
type AnswerMode string

const (
	AnswerMCQ      AnswerMode = "mcq"
	AnswerFreeText AnswerMode = "text"
)

func (a AnswerMode) Valid() bool {
	return a == AnswerMCQ || a == AnswerFreeText
}

// GuessTarget is what the player must guess in Classic/Fast MCQ rounds.
type GuessTarget string

const (
	GuessTitle  GuessTarget = "title"
	GuessArtist GuessTarget = "artist"
)

func (g GuessTarget) Valid() bool {
	return g == GuessTitle || g == GuessArtist
}

// RoomStatus is the lifecycle state of a Room. Transitions are monotonic:
// waiting -> in_progress -> finished, with waiting -> cancelled also legal.
type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusInProgress RoomStatus = "in_progress"
	StatusFinished   RoomStatus = "finished"
	StatusCancelled  RoomStatus = "cancelled"
)

// QuestionType tags what kind of question a round asks.
type QuestionType string

const (
	QuestionGuessTitle  QuestionType = "guess_title"
	QuestionGuessArtist QuestionType = "guess_artist"
	QuestionGuessYear   QuestionType = "guess_year"
	QuestionLyricsBlank QuestionType = "lyrics_blank"
	QuestionKaraoke     QuestionType = "karaoke"
)
