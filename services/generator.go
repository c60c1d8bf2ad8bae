package services

import (
	"context"
	"log"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/benoftheworld/instant-music/models"
	"github.com/benoftheworld/instant-music/providers"
)

const (
	// minUsableTracks is the smallest pool that can still produce a
	// 4-option question (1 correct + 3 distractors).
	minUsableTracks = 4

	playlistFetchLimit = 50

	// Release years outside this window are treated as catalog noise.
	minReleaseYear = 1950
	maxReleaseYear = 2030

	// yearOffsetAttempts bounds the search for distinct wrong years.
	yearOffsetAttempts = 30

	// Catalogue query used for karaoke rooms without a playlist.
	karaokeSearchQuery = "karaoke hits"
)

// yearOffsets is the fixed set of deltas used to fabricate plausible
// wrong years. All lie outside the widest tolerance band.
var yearOffsets = []int{-12, -10, -8, -7, -6, 6, 7, 8, 10, 12}

// boringWords are stop-listed words (English and French) that make dull
// lyric blanks.
var boringWords = map[string]bool{
	"i": true, "a": true, "the": true, "an": true, "is": true, "it": true,
	"in": true, "on": true, "to": true, "of": true, "and": true, "or": true,
	"at": true, "my": true, "me": true, "we": true, "he": true, "be": true,
	"do": true, "so": true, "no": true, "oh": true, "you": true, "for": true,
	"are": true, "but": true, "not": true, "all": true, "can": true,
	"had": true, "was": true, "has": true, "his": true, "her": true,
	"she": true, "out": true, "got": true, "like": true, "just": true,
	"yeah": true, "ooh": true, "hey": true, "mmm": true, "hmm": true,
	"ah": true, "uh": true,
	"je": true, "tu": true, "il": true, "le": true, "la": true, "de": true,
	"et": true, "un": true, "ne": true, "se": true, "ce": true, "en": true,
	"du": true, "au": true, "ma": true, "sa": true, "si": true, "ou": true,
	"ni": true, "que": true, "qui": true, "les": true, "des": true,
	"une": true, "pas": true, "son": true, "par": true, "sur": true,
	"mais": true, "pour": true,
}

// Generator builds the round sequence for a room from the external
// catalog and lyrics collaborators. All provider calls happen here,
// before the first round starts; nothing external runs on the answer
// path.
type Generator struct {
	catalog providers.Catalog
	lyrics  providers.LyricsProvider
}

func NewGenerator(catalog providers.Catalog, lyrics providers.LyricsProvider) *Generator {
	return &Generator{catalog: catalog, lyrics: lyrics}
}

// Generate materializes the room's rounds, numbered contiguously from 1.
func (g *Generator) Generate(ctx context.Context, room *models.Room) ([]models.Round, error) {
	tracks, err := g.fetchTracks(ctx, room)
	if err != nil {
		return nil, err
	}

	// Tracks without a playable preview cannot be quizzed on.
	usable := tracks[:0]
	for _, track := range tracks {
		if track.PreviewURL != "" {
			usable = append(usable, track)
		}
	}
	if len(usable) < minUsableTracks {
		log.Printf("generator: room %s has %d usable tracks, need %d", room.Code, len(usable), minUsableTracks)
		return nil, ErrInsufficientTracks
	}

	rand.Shuffle(len(usable), func(i, j int) {
		usable[i], usable[j] = usable[j], usable[i]
	})

	var rounds []models.Round
	for _, track := range usable {
		if len(rounds) >= room.NumRounds {
			break
		}

		var round *models.Round
		switch room.Mode {
		case models.ModeClassic, models.ModeFast:
			round = g.buildGuessRound(track, usable, room.GuessTarget)
		case models.ModeYearGuess:
			round = g.buildYearRound(ctx, track)
		case models.ModeLyrics:
			round = g.buildLyricsRound(ctx, track, usable, room.LyricsWordCount)
		case models.ModeKaraoke:
			round = g.buildKaraokeRound(ctx, track, usable)
		}
		if round == nil {
			continue
		}

		round.RoomID = room.ID
		round.Number = len(rounds) + 1
		round.Duration = room.RoundDuration
		// Free-text rounds carry no option set; the distractor pass above
		// still gates on having enough distinct material.
		if room.AnswerMode == models.AnswerFreeText {
			round.Options = nil
		}
		rounds = append(rounds, *round)
	}

	if len(rounds) == 0 {
		return nil, ErrInsufficientTracks
	}
	return rounds, nil
}

// fetchTracks loads the track pool, trying one alternate search query
// when the primary playlist lookup fails.
func (g *Generator) fetchTracks(ctx context.Context, room *models.Room) ([]providers.Track, error) {
	if room.Mode == models.ModeKaraoke && room.PlaylistID == "" {
		tracks, err := g.catalog.SearchTracks(ctx, karaokeSearchQuery, playlistFetchLimit)
		if err != nil {
			return nil, providerErr("karaoke catalogue unavailable", err)
		}
		return tracks, nil
	}

	tracks, err := g.catalog.PlaylistTracks(ctx, room.PlaylistID, playlistFetchLimit)
	if err == nil {
		return tracks, nil
	}
	log.Printf("generator: playlist %s fetch failed, trying search fallback: %v", room.PlaylistID, err)

	// Single fallback, no retry loop.
	query := room.Name
	if query == "" {
		query = room.PlaylistID
	}
	tracks, searchErr := g.catalog.SearchTracks(ctx, query, playlistFetchLimit)
	if searchErr != nil {
		return nil, providerErr("track source unavailable", err)
	}
	return tracks, nil
}

// buildGuessRound builds a Classic/Fast round asking for the title or the
// artist, with three distractors sampled from the rest of the pool.
func (g *Generator) buildGuessRound(track providers.Track, pool []providers.Track, target models.GuessTarget) *models.Round {
	value := func(t providers.Track) string {
		if target == models.GuessArtist {
			return t.ArtistLine()
		}
		return t.Title
	}

	correct := value(track)
	wrongs := sampleDistractors(correct, track.ID, pool, value)
	if wrongs == nil {
		return nil
	}

	questionType := models.QuestionGuessTitle
	questionText := "What is the title of this track?"
	if target == models.GuessArtist {
		questionType = models.QuestionGuessArtist
		questionText = "Who performs this track?"
	}

	return &models.Round{
		TrackID:       track.ID,
		TrackName:     track.Title,
		ArtistName:    track.ArtistLine(),
		CorrectAnswer: correct,
		Options:       shuffledOptions(correct, wrongs),
		QuestionType:  questionType,
		QuestionText:  questionText,
		PreviewURL:    track.PreviewURL,
		CoverURL:      track.CoverURL,
	}
}

func (g *Generator) buildYearRound(ctx context.Context, track providers.Track) *models.Round {
	year, err := g.catalog.TrackYear(ctx, track.ID)
	if err != nil {
		log.Printf("generator: year lookup failed for track %s: %v", track.ID, err)
		return nil
	}
	if year < minReleaseYear || year > maxReleaseYear {
		return nil
	}

	wrongYears := make(map[int]bool)
	for attempt := 0; attempt < yearOffsetAttempts && len(wrongYears) < 3; attempt++ {
		candidate := year + yearOffsets[rand.Intn(len(yearOffsets))]
		if candidate < minReleaseYear || candidate > maxReleaseYear || candidate == year {
			continue
		}
		wrongYears[candidate] = true
	}
	if len(wrongYears) < 3 {
		return nil
	}

	wrongs := make([]string, 0, len(wrongYears))
	for y := range wrongYears {
		wrongs = append(wrongs, strconv.Itoa(y))
	}

	return &models.Round{
		TrackID:       track.ID,
		TrackName:     track.Title,
		ArtistName:    track.ArtistLine(),
		CorrectAnswer: strconv.Itoa(year),
		Options:       shuffledOptions(strconv.Itoa(year), wrongs),
		QuestionType:  models.QuestionGuessYear,
		QuestionText:  "What year was this track released?",
		PreviewURL:    track.PreviewURL,
		CoverURL:      track.CoverURL,
		Extra:         models.RoundExtra{ToleranceYears: yearBandFarDiff},
	}
}

func (g *Generator) buildLyricsRound(ctx context.Context, track providers.Track, pool []providers.Track, blankWords int) *models.Round {
	text, err := g.lyrics.Lyrics(ctx, track.ArtistLine(), track.Title)
	if err != nil {
		log.Printf("generator: lyrics fetch failed for %s - %s: %v", track.ArtistLine(), track.Title, err)
		return nil
	}
	if text == "" {
		return nil
	}

	if blankWords < 1 {
		blankWords = 1
	}

	blank := makeLyricsBlank(text, blankWords, otherTitleWords(track.ID, pool))
	if blank == nil {
		return nil
	}

	return &models.Round{
		TrackID:       track.ID,
		TrackName:     track.Title,
		ArtistName:    track.ArtistLine(),
		CorrectAnswer: blank.phrase,
		Options:       blank.options,
		QuestionType:  models.QuestionLyricsBlank,
		QuestionText:  "Complete the lyrics:",
		PreviewURL:    track.PreviewURL,
		CoverURL:      track.CoverURL,
		Extra:         models.RoundExtra{Snippet: blank.snippet},
	}
}

func (g *Generator) buildKaraokeRound(ctx context.Context, track providers.Track, pool []providers.Track) *models.Round {
	round := g.buildGuessRound(track, pool, models.GuessTitle)
	if round == nil {
		return nil
	}
	round.QuestionType = models.QuestionKaraoke
	round.QuestionText = "Sing along, then name this track"

	synced, err := g.lyrics.SyncedLyrics(ctx, track.ArtistLine(), track.Title)
	if err != nil {
		log.Printf("generator: synced lyrics fetch failed for %s - %s: %v", track.ArtistLine(), track.Title, err)
	}
	if len(synced) > 0 {
		round.Extra = models.RoundExtra{SyncedLyrics: synced, ClipDurationMS: track.DurationMS}
		return round
	}

	// No synced lyrics: fall back to a plain-text excerpt.
	if text, err := g.lyrics.Lyrics(ctx, track.ArtistLine(), track.Title); err == nil && text != "" {
		round.Extra = models.RoundExtra{Snippet: lyricsExcerpt(text), ClipDurationMS: track.DurationMS}
	}
	return round
}

// sampleDistractors picks 3 distinct wrong values from the pool,
// excluding exact (case-sensitive) duplicates of the correct value.
// Returns nil when fewer than 3 exist.
func sampleDistractors(correct, correctTrackID string, pool []providers.Track, value func(providers.Track) string) []string {
	others := make([]providers.Track, 0, len(pool))
	for _, t := range pool {
		if t.ID != correctTrackID {
			others = append(others, t)
		}
	}
	rand.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	var wrongs []string
	seen := map[string]bool{correct: true}
	for _, t := range others {
		v := value(t)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		wrongs = append(wrongs, v)
		if len(wrongs) == 3 {
			return wrongs
		}
	}
	return nil
}

func shuffledOptions(correct string, wrongs []string) []string {
	options := append([]string{correct}, wrongs...)
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

type lyricsBlank struct {
	snippet string
	phrase  string
	options []string
}

var wordCleanRe = regexp.MustCompile(`[^a-zA-ZÀ-ÿ']`)
var phraseCleanRe = regexp.MustCompile(`[^a-zA-ZÀ-ÿ' -]`)
var lyricWordRe = regexp.MustCompile(`[a-zA-ZÀ-ÿ'-]+`)

// makeLyricsBlank builds a fill-in-the-blank question from lyrics: it
// blanks a contiguous phrase of blankWords interesting words from one of
// the first qualifying lines and fabricates three wrong phrases of the
// same length.
func makeLyricsBlank(lyrics string, blankWords int, extraWords []string) *lyricsBlank {
	var lines []string
	for _, line := range strings.Split(lyrics, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 15 {
			lines = append(lines, line)
		}
	}
	if len(lines) > 15 {
		lines = lines[:15]
	}

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) < 2+blankWords {
			continue
		}

		// Candidate sequences: contiguous, all words interesting.
		type candidate struct {
			start int
			seq   []string
		}
		var candidates []candidate
		for start := 0; start+blankWords <= len(words); start++ {
			seq := words[start : start+blankWords]
			if !interestingSequence(seq) {
				continue
			}
			candidates = append(candidates, candidate{start: start, seq: seq})
		}
		if len(candidates) == 0 {
			continue
		}

		chosen := candidates[rand.Intn(len(candidates))]

		cleanWords := make([]string, len(chosen.seq))
		for i, w := range chosen.seq {
			cleanWords[i] = phraseCleanRe.ReplaceAllString(w, "")
		}
		phrase := strings.Join(cleanWords, " ")

		display := make([]string, 0, len(words))
		display = append(display, words[:chosen.start]...)
		display = append(display, "_____")
		display = append(display, words[chosen.start+blankWords:]...)
		snippet := strings.Join(display, " ")

		wrongs := wrongPhrases(lyrics, phrase, blankWords, extraWords)
		if len(wrongs) < 3 {
			continue
		}

		return &lyricsBlank{
			snippet: snippet,
			phrase:  phrase,
			options: shuffledOptions(phrase, wrongs[:3]),
		}
	}
	return nil
}

func interestingSequence(seq []string) bool {
	for _, w := range seq {
		clean := strings.ToLower(wordCleanRe.ReplaceAllString(w, ""))
		if len(clean) < 1 || boringWords[clean] {
			return false
		}
	}
	return true
}

// wrongPhrases samples same-length n-grams: first from the lyrics
// themselves, then topped up from other tracks' title words. Duplicates
// are dropped case-insensitively.
func wrongPhrases(lyrics, correctPhrase string, blankWords int, extraWords []string) []string {
	var candidates []string

	lyricWords := lyricWordRe.FindAllString(lyrics, -1)
	candidates = append(candidates, ngramPhrases(lyricWords, blankWords, 6)...)
	candidates = append(candidates, ngramPhrases(extraWords, blankWords, 6)...)

	seen := map[string]bool{strings.ToLower(correctPhrase): true}
	var wrongs []string
	for _, phrase := range candidates {
		low := strings.ToLower(phrase)
		if seen[low] {
			continue
		}
		seen[low] = true
		wrongs = append(wrongs, phrase)
	}
	return wrongs
}

func ngramPhrases(words []string, n, limit int) []string {
	var phrases []string
	for i := 0; i+n <= len(words); i++ {
		seq := words[i : i+n]
		if !interestingSequence(seq) {
			continue
		}
		phrases = append(phrases, strings.Join(seq, " "))
	}
	rand.Shuffle(len(phrases), func(i, j int) { phrases[i], phrases[j] = phrases[j], phrases[i] })
	if len(phrases) > limit {
		phrases = phrases[:limit]
	}
	return phrases
}

// otherTitleWords flattens the titles of every other track in the pool.
func otherTitleWords(trackID string, pool []providers.Track) []string {
	var words []string
	for _, t := range pool {
		if t.ID == trackID {
			continue
		}
		words = append(words, strings.Fields(t.Title)...)
	}
	return words
}

func lyricsExcerpt(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 15 {
			return line
		}
	}
	return ""
}
