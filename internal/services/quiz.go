package services

import (
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/entwine-app/entwine/internal/apperr"
	"github.com/entwine-app/entwine/internal/database"
	"github.com/entwine-app/entwine/internal/events"
	"github.com/entwine-app/entwine/internal/logger"
	"github.com/entwine-app/entwine/internal/models"
	"github.com/entwine-app/entwine/internal/quiz"
)

// DefaultRoundsPerPlayer is how many full picker rotations a game runs.
const DefaultRoundsPerPlayer = 3

const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const sessionColumns = `id, creator_id, status, current_round,
	current_question_id, current_picker_id, join_code, created_at, updated_at`

const questionColumns = `id, category_id, question_text, points, consequence, ordinal, created_at`

// QuizService runs the "knowing you" game: turn rotation, category picks,
// answer collection and fuzzy rescoring against the picker's canonical
// answer.
type QuizService struct {
	db              *database.DB
	events          events.Publisher
	log             *logger.Log
	now             func() time.Time
	roundsPerPlayer int
}

func NewQuizService(db *database.DB, pub events.Publisher, roundsPerPlayer int) *QuizService {
	if pub == nil {
		pub = events.Nop{}
	}
	if roundsPerPlayer <= 0 {
		roundsPerPlayer = DefaultRoundsPerPlayer
	}
	return &QuizService{
		db:              db,
		events:          pub,
		log:             logger.New(),
		now:             time.Now,
		roundsPerPlayer: roundsPerPlayer,
	}
}

// ListCategories returns the question categories.
func (s *QuizService) ListCategories() ([]models.QuestionCategory, error) {
	categories := []models.QuestionCategory{}
	err := s.db.Select(&categories, `SELECT id, category, name, description FROM question_categories ORDER BY id`)
	if err != nil {
		return nil, apperr.Persistence("failed to list categories", err)
	}
	return categories, nil
}

// CreateSession opens a waiting session with a short join code. The creator
// is seated as the first player.
func (s *QuizService) CreateSession(creatorID int) (*models.GameSession, error) {
	now := s.now().UTC()
	session := &models.GameSession{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		Status:    models.SessionStatusWaiting,
		JoinCode:  newJoinCode(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO game_sessions (id, creator_id, status, current_round, join_code, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)`,
		session.ID, session.CreatorID, session.Status, session.JoinCode, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, apperr.Persistence("failed to create session", err)
	}

	_, err = tx.Exec(`INSERT INTO game_players (session_id, user_id, position) VALUES (?, ?, 0)`,
		session.ID, creatorID)
	if err != nil {
		return nil, apperr.Persistence("failed to seat creator", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("failed to commit session", err)
	}

	return session, nil
}

// Join seats a user in a waiting session by join code. Joining twice is a
// no-op.
func (s *QuizService) Join(joinCode string, userID int) (*models.GameSession, error) {
	var session models.GameSession
	err := s.db.Get(&session, `SELECT `+sessionColumns+` FROM game_sessions WHERE join_code = ?`, joinCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "no game with code %s", joinCode)
	} else if err != nil {
		return nil, apperr.Persistence("failed to load session", err)
	}

	if session.Status != models.SessionStatusWaiting {
		return nil, apperr.New(apperr.KindInvalidState, "game is %s, can no longer join", session.Status)
	}

	players, err := s.sessionPlayers(s.db, session.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if p.UserID == userID {
			return &session, nil
		}
	}

	_, err = s.db.Exec(`INSERT INTO game_players (session_id, user_id, position) VALUES (?, ?, ?)`,
		session.ID, userID, len(players))
	if err != nil {
		return nil, apperr.Persistence("failed to join session", err)
	}

	return &session, nil
}

// Start moves a waiting session into play. The creator picks first.
func (s *QuizService) Start(sessionID string, userID int) (*models.RoundResult, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.CreatorID != userID {
		return nil, apperr.New(apperr.KindNotYourTurn, "only the creator can start the game")
	}
	if session.Status != models.SessionStatusWaiting {
		return nil, apperr.New(apperr.KindInvalidState, "game is %s, cannot start", session.Status)
	}

	players, err := s.sessionPlayers(s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, apperr.New(apperr.KindInvalidState, "game has no players")
	}

	picker := players[0]
	now := s.now().UTC()
	_, err = s.db.Exec(`
		UPDATE game_sessions SET status = ?, current_round = 1, current_picker_id = ?, updated_at = ?
		WHERE id = ?`,
		models.SessionStatusInProgress, picker.UserID, now, sessionID)
	if err != nil {
		return nil, apperr.Persistence("failed to start session", err)
	}

	return &models.RoundResult{
		Round:          1,
		PickerID:       picker.UserID,
		PickerUsername: picker.Username,
		SessionStatus:  models.SessionStatusInProgress,
	}, nil
}

// PickCategory lets the current picker draw a random unused question from a
// category. The submitted label is fuzzily resolved against known
// categories.
func (s *QuizService) PickCategory(sessionID string, userID int, categoryLabel string) (*models.RoundResult, error) {
	categoryID, err := s.resolveCategory(categoryLabel)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	session, err := s.getSessionTx(tx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusInProgress {
		return nil, apperr.New(apperr.KindInvalidState, "game is %s", session.Status)
	}
	if session.CurrentPickerID == nil || *session.CurrentPickerID != userID {
		return nil, apperr.New(apperr.KindNotYourTurn, "it is not your turn to pick")
	}
	if session.CurrentQuestionID != nil {
		return nil, apperr.New(apperr.KindInvalidState, "a question is already in play")
	}

	var question models.Question
	err = tx.Get(&question, `
		SELECT `+questionColumns+` FROM questions
		WHERE category_id = ?
		  AND id NOT IN (SELECT question_id FROM player_answers WHERE session_id = ?)
		ORDER BY RANDOM() LIMIT 1`,
		categoryID, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindQuestionPoolExhausted, "no unused questions left in this category")
	} else if err != nil {
		return nil, apperr.Persistence("failed to draw question", err)
	}

	now := s.now().UTC()
	_, err = tx.Exec(`UPDATE game_sessions SET current_question_id = ?, updated_at = ? WHERE id = ?`,
		question.ID, now, sessionID)
	if err != nil {
		return nil, apperr.Persistence("failed to set question", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("failed to commit pick", err)
	}

	pickerName := s.usernameOf(userID)
	s.events.Publish(events.GameTopic(sessionID), events.Event{
		Type: events.TypeRoundStarted,
		Data: map[string]any{
			"session_id":      sessionID,
			"round":           session.CurrentRound,
			"question_id":     question.ID,
			"question_text":   question.QuestionText,
			"points":          question.Points,
			"picker_username": pickerName,
		},
	})

	return &models.RoundResult{
		Round:          session.CurrentRound,
		PickerID:       userID,
		PickerUsername: pickerName,
		Question:       &question,
		SessionStatus:  session.Status,
	}, nil
}

// SubmitAnswer stores or overwrites a player's answer to the current
// question and applies the scoring protocol: the picker's answer is
// canonical and rescores everyone; non-picker answers score against the
// current canonical or defer until one exists.
func (s *QuizService) SubmitAnswer(sessionID string, userID int, answerText string) (*models.AnswerResult, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	session, err := s.getSessionTx(tx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusInProgress {
		return nil, apperr.New(apperr.KindInvalidState, "game is %s", session.Status)
	}
	if session.CurrentQuestionID == nil {
		return nil, apperr.New(apperr.KindInvalidState, "no question in play")
	}

	players, err := s.sessionPlayers(tx, sessionID)
	if err != nil {
		return nil, err
	}
	isPlayer := false
	for _, p := range players {
		if p.UserID == userID {
			isPlayer = true
			break
		}
	}
	if !isPlayer {
		return nil, apperr.New(apperr.KindNotAParticipant, "user is not in this game")
	}

	questionID := *session.CurrentQuestionID
	var question models.Question
	if err := tx.Get(&question, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, questionID); err != nil {
		return nil, apperr.Persistence("failed to load question", err)
	}

	pickerID := 0
	if session.CurrentPickerID != nil {
		pickerID = *session.CurrentPickerID
	}

	now := s.now().UTC()
	answerID, err := s.upsertAnswer(tx, sessionID, userID, questionID, answerText, now)
	if err != nil {
		return nil, err
	}

	result := &models.AnswerResult{AnswerID: answerID}

	if userID == pickerID {
		// The picker sets the standard and never scores against it.
		if _, err := tx.Exec(`UPDATE player_answers SET points_awarded = 0 WHERE id = ?`, answerID); err != nil {
			return nil, apperr.Persistence("failed to zero picker answer", err)
		}

		// Every already-submitted answer is rescored against the new
		// canonical text, including ones that were deferred.
		others := []models.PlayerAnswer{}
		err = tx.Select(&others, `
			SELECT id, session_id, player_id, question_id, answer_text, points_awarded, created_at, updated_at
			FROM player_answers WHERE session_id = ? AND question_id = ? AND player_id != ?`,
			sessionID, questionID, pickerID)
		if err != nil {
			return nil, apperr.Persistence("failed to load answers for rescoring", err)
		}
		for _, other := range others {
			points := quiz.AwardPoints(other.AnswerText, answerText, question.Points)
			if _, err := tx.Exec(`UPDATE player_answers SET points_awarded = ?, updated_at = ? WHERE id = ?`,
				points, now, other.ID); err != nil {
				return nil, apperr.Persistence("failed to rescore answer", err)
			}
		}
	} else {
		var canonical string
		err = tx.Get(&canonical, `
			SELECT answer_text FROM player_answers
			WHERE session_id = ? AND question_id = ? AND player_id = ?`,
			sessionID, questionID, pickerID)
		if errors.Is(err, sql.ErrNoRows) {
			// Deferred: scored retroactively once the picker answers.
			result.Deferred = true
		} else if err != nil {
			return nil, apperr.Persistence("failed to load canonical answer", err)
		} else {
			result.PointsAwarded = quiz.AwardPoints(answerText, canonical, question.Points)
		}
		if _, err := tx.Exec(`UPDATE player_answers SET points_awarded = ?, updated_at = ? WHERE id = ?`,
			result.PointsAwarded, now, answerID); err != nil {
			return nil, apperr.Persistence("failed to score answer", err)
		}
	}

	var answered int
	err = tx.Get(&answered, `
		SELECT COUNT(DISTINCT player_id) FROM player_answers
		WHERE session_id = ? AND question_id = ?`, sessionID, questionID)
	if err != nil {
		return nil, apperr.Persistence("failed to count answers", err)
	}
	result.RoundCompleted = answered == len(players)

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("failed to commit answer", err)
	}

	username := s.usernameOf(userID)
	s.events.Publish(events.GameTopic(sessionID), events.Event{
		Type: events.TypeAnswerSubmitted,
		Data: map[string]any{
			"session_id": sessionID,
			"username":   username,
			"round":      session.CurrentRound,
		},
	})

	if result.RoundCompleted {
		scores, err := s.Scores(sessionID)
		if err != nil {
			s.log.WithError(err).Warn("failed to compute scores for broadcast")
		} else {
			result.Scores = scores
			s.events.Publish(events.GameTopic(sessionID), events.Event{
				Type: events.TypeRoundCompleted,
				Data: map[string]any{
					"session_id": sessionID,
					"round":      session.CurrentRound,
					"scores":     scores,
				},
			})
		}
	}

	return result, nil
}

// AdvanceRound rotates the picker, clears the question and bumps the round
// counter; the session completes after the configured number of full
// rotations.
func (s *QuizService) AdvanceRound(sessionID string, userID int) (*models.RoundResult, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	session, err := s.getSessionTx(tx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusInProgress {
		return nil, apperr.New(apperr.KindInvalidState, "game is %s", session.Status)
	}
	if session.CurrentPickerID == nil || *session.CurrentPickerID != userID {
		return nil, apperr.New(apperr.KindNotYourTurn, "only the current picker can advance the round")
	}

	players, err := s.sessionPlayers(tx, sessionID)
	if err != nil {
		return nil, err
	}

	pickerIdx := 0
	for i, p := range players {
		if p.UserID == userID {
			pickerIdx = i
			break
		}
	}
	next := players[(pickerIdx+1)%len(players)]

	newRound := session.CurrentRound + 1
	status := models.SessionStatusInProgress
	totalRounds := len(players) * s.roundsPerPlayer
	if newRound > totalRounds {
		status = models.SessionStatusCompleted
	}

	now := s.now().UTC()
	_, err = tx.Exec(`
		UPDATE game_sessions SET status = ?, current_round = ?, current_question_id = NULL, current_picker_id = ?, updated_at = ?
		WHERE id = ?`,
		status, newRound, next.UserID, now, sessionID)
	if err != nil {
		return nil, apperr.Persistence("failed to advance round", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("failed to commit round advance", err)
	}

	if status == models.SessionStatusCompleted {
		scores, err := s.Scores(sessionID)
		if err != nil {
			s.log.WithError(err).Warn("failed to compute final scores")
		}
		s.events.Publish(events.GameTopic(sessionID), events.Event{
			Type: events.TypeGameEnded,
			Data: map[string]any{"session_id": sessionID, "scores": scores},
		})
	} else {
		s.events.Publish(events.GameTopic(sessionID), events.Event{
			Type: events.TypeNextRound,
			Data: map[string]any{
				"session_id":      sessionID,
				"round":           newRound,
				"picker_username": next.Username,
			},
		})
	}

	return &models.RoundResult{
		Round:          newRound,
		PickerID:       next.UserID,
		PickerUsername: next.Username,
		SessionStatus:  status,
	}, nil
}

// GetState returns the session view for one of its players.
func (s *QuizService) GetState(sessionID string, userID int) (*models.SessionState, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	players, err := s.sessionPlayers(s.db, sessionID)
	if err != nil {
		return nil, err
	}
	isPlayer := false
	for _, p := range players {
		if p.UserID == userID {
			isPlayer = true
			break
		}
	}
	if !isPlayer {
		return nil, apperr.New(apperr.KindNotAParticipant, "user is not in this game")
	}

	state := &models.SessionState{
		Session:        *session,
		Players:        players,
		CurrentAnswers: []models.PlayerAnswer{},
	}

	if session.CurrentQuestionID != nil {
		var question models.Question
		if err := s.db.Get(&question, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, *session.CurrentQuestionID); err != nil {
			return nil, apperr.Persistence("failed to load question", err)
		}
		state.CurrentQuestion = &question

		err = s.db.Select(&state.CurrentAnswers, `
			SELECT id, session_id, player_id, question_id, answer_text, points_awarded, created_at, updated_at
			FROM player_answers WHERE session_id = ? AND question_id = ? ORDER BY created_at`,
			sessionID, *session.CurrentQuestionID)
		if err != nil {
			return nil, apperr.Persistence("failed to load answers", err)
		}
	}

	scores, err := s.Scores(sessionID)
	if err != nil {
		return nil, err
	}
	state.Scores = scores

	return state, nil
}

// Scores totals awarded points per player username.
func (s *QuizService) Scores(sessionID string) (map[string]int, error) {
	rows := []struct {
		Username string `db:"username"`
		Total    int    `db:"total"`
	}{}
	err := s.db.Select(&rows, `
		SELECT u.username AS username, COALESCE(SUM(pa.points_awarded), 0) AS total
		FROM game_players gp
		JOIN users u ON u.id = gp.user_id
		LEFT JOIN player_answers pa ON pa.session_id = gp.session_id AND pa.player_id = gp.user_id
		WHERE gp.session_id = ?
		GROUP BY u.username`, sessionID)
	if err != nil {
		return nil, apperr.Persistence("failed to compute scores", err)
	}

	scores := make(map[string]int, len(rows))
	for _, r := range rows {
		scores[r.Username] = r.Total
	}
	return scores, nil
}

func (s *QuizService) getSession(id string) (*models.GameSession, error) {
	var session models.GameSession
	err := s.db.Get(&session, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "game session not found")
	} else if err != nil {
		return nil, apperr.Persistence("failed to load session", err)
	}
	return &session, nil
}

func (s *QuizService) getSessionTx(tx *sqlx.Tx, id string) (*models.GameSession, error) {
	var session models.GameSession
	err := tx.Get(&session, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "game session not found")
	} else if err != nil {
		return nil, apperr.Persistence("failed to load session", err)
	}
	return &session, nil
}

// selecter lets lookups run inside or outside a transaction.
type selecter interface {
	Select(dest interface{}, query string, args ...interface{}) error
}

func (s *QuizService) sessionPlayers(q selecter, sessionID string) ([]models.GamePlayer, error) {
	players := []models.GamePlayer{}
	err := q.Select(&players, `
		SELECT gp.session_id, gp.user_id, gp.position, u.username
		FROM game_players gp JOIN users u ON u.id = gp.user_id
		WHERE gp.session_id = ? ORDER BY gp.position`, sessionID)
	if err != nil {
		return nil, apperr.Persistence("failed to load players", err)
	}
	return players, nil
}

// upsertAnswer keeps one row per (session, player, question); resubmission
// overwrites the text and the row is rescored by the caller.
func (s *QuizService) upsertAnswer(tx *sqlx.Tx, sessionID string, playerID, questionID int, text string, now time.Time) (string, error) {
	var existingID string
	err := tx.Get(&existingID, `
		SELECT id FROM player_answers WHERE session_id = ? AND player_id = ? AND question_id = ?`,
		sessionID, playerID, questionID)
	if err == nil {
		if _, err := tx.Exec(`UPDATE player_answers SET answer_text = ?, updated_at = ? WHERE id = ?`,
			text, now, existingID); err != nil {
			return "", apperr.Persistence("failed to update answer", err)
		}
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", apperr.Persistence("failed to look up answer", err)
	}

	id := uuid.NewString()
	_, err = tx.Exec(`
		INSERT INTO player_answers (id, session_id, player_id, question_id, answer_text, points_awarded, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		id, sessionID, playerID, questionID, text, now, now)
	if err != nil {
		return "", apperr.Persistence("failed to insert answer", err)
	}
	return id, nil
}

// resolveCategory fuzzily maps a submitted label onto a seeded category id.
func (s *QuizService) resolveCategory(label string) (int, error) {
	categories, err := s.ListCategories()
	if err != nil {
		return 0, err
	}

	known := make(map[string]string, len(categories))
	idBySlug := make(map[string]int, len(categories))
	for _, c := range categories {
		known[c.Category] = c.Name
		idBySlug[c.Category] = c.ID
	}

	slug := quiz.NewCategoryResolver(known).Resolve(label)
	if slug == "" {
		return 0, apperr.New(apperr.KindNotFound, "unknown category %q", label)
	}
	return idBySlug[slug], nil
}

func (s *QuizService) usernameOf(id int) string {
	var username string
	if err := s.db.Get(&username, `SELECT username FROM users WHERE id = ?`, id); err != nil {
		return "unknown"
	}
	return username
}

func newJoinCode() string {
	code := make([]byte, 6)
	for i := range code {
		code[i] = joinCodeAlphabet[rand.Intn(len(joinCodeAlphabet))]
	}
	return string(code)
}
