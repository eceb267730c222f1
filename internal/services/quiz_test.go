package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entwine-app/entwine/internal/apperr"
	"github.com/entwine-app/entwine/internal/database"
)

func seedCategory(t *testing.T, db *database.DB, slug, name string, questions ...string) int {
	t.Helper()
	res, err := db.Exec(`INSERT INTO question_categories (category, name) VALUES (?, ?)`, slug, name)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	for i, text := range questions {
		_, err := db.Exec(`INSERT INTO questions (category_id, question_text, points, ordinal) VALUES (?, ?, 3, ?)`,
			id, text, i+1)
		require.NoError(t, err)
	}
	return int(id)
}

func startedGame(t *testing.T, svc *QuizService, creator int, others ...int) string {
	t.Helper()
	session, err := svc.CreateSession(creator)
	require.NoError(t, err)
	for _, id := range others {
		_, err := svc.Join(session.JoinCode, id)
		require.NoError(t, err)
	}
	_, err = svc.Start(session.ID, creator)
	require.NoError(t, err)
	return session.ID
}

func TestCreateAndJoinSession(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob")

	session, err := svc.CreateSession(ids[0])
	require.NoError(t, err)
	assert.Len(t, session.JoinCode, 6)
	assert.Equal(t, 0, session.CurrentRound)

	joined, err := svc.Join(session.JoinCode, ids[1])
	require.NoError(t, err)
	assert.Equal(t, session.ID, joined.ID)

	// Joining twice is a no-op.
	_, err = svc.Join(session.JoinCode, ids[1])
	require.NoError(t, err)

	state, err := svc.GetState(session.ID, ids[0])
	require.NoError(t, err)
	require.Len(t, state.Players, 2)
	assert.Equal(t, "alice", state.Players[0].Username)
	assert.Equal(t, "bob", state.Players[1].Username)

	_, err = svc.Join("NOPE42", ids[1])
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestJoinAfterStartRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob", "carol")

	session, err := svc.CreateSession(ids[0])
	require.NoError(t, err)
	_, err = svc.Join(session.JoinCode, ids[1])
	require.NoError(t, err)
	_, err = svc.Start(session.ID, ids[0])
	require.NoError(t, err)

	_, err = svc.Join(session.JoinCode, ids[2])
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestStartOnlyByCreator(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob")

	session, err := svc.CreateSession(ids[0])
	require.NoError(t, err)
	_, err = svc.Join(session.JoinCode, ids[1])
	require.NoError(t, err)

	_, err = svc.Start(session.ID, ids[1])
	assert.True(t, apperr.Is(err, apperr.KindNotYourTurn))

	result, err := svc.Start(session.ID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, result.Round)
	assert.Equal(t, ids[0], result.PickerID)
}

func TestRoundScoring(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob", "carol")
	seedCategory(t, db, "colors", "Colors", "What is my favorite color?")
	sessionID := startedGame(t, svc, ids[0], ids[1], ids[2])

	// Only the picker draws a question.
	_, err := svc.PickCategory(sessionID, ids[1], "colors")
	assert.True(t, apperr.Is(err, apperr.KindNotYourTurn))

	round, err := svc.PickCategory(sessionID, ids[0], "colors")
	require.NoError(t, err)
	require.NotNil(t, round.Question)
	assert.Equal(t, "What is my favorite color?", round.Question.QuestionText)

	// Bob answers before the picker: scoring is deferred.
	bobAnswer, err := svc.SubmitAnswer(sessionID, ids[1], "blu")
	require.NoError(t, err)
	assert.True(t, bobAnswer.Deferred)
	assert.Equal(t, 0, bobAnswer.PointsAwarded)
	assert.False(t, bobAnswer.RoundCompleted)

	// The picker's answer is canonical and rescores bob retroactively.
	aliceAnswer, err := svc.SubmitAnswer(sessionID, ids[0], "blue")
	require.NoError(t, err)
	assert.False(t, aliceAnswer.RoundCompleted)

	carolAnswer, err := svc.SubmitAnswer(sessionID, ids[2], "purple")
	require.NoError(t, err)
	assert.Equal(t, 0, carolAnswer.PointsAwarded)
	assert.True(t, carolAnswer.RoundCompleted)

	scores, err := svc.Scores(sessionID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"alice": 0, "bob": 3, "carol": 0}, scores)
}

func TestAnswerResubmissionRescores(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob")
	seedCategory(t, db, "colors", "Colors", "What is my favorite color?")
	sessionID := startedGame(t, svc, ids[0], ids[1])

	_, err := svc.PickCategory(sessionID, ids[0], "colors")
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(sessionID, ids[1], "green")
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(sessionID, ids[0], "green")
	require.NoError(t, err)

	scores, err := svc.Scores(sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, scores["bob"])

	// The picker changes their mind; bob's stored answer is rescored
	// against the new canonical text.
	_, err = svc.SubmitAnswer(sessionID, ids[0], "blue")
	require.NoError(t, err)

	scores, err = svc.Scores(sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, scores["bob"])
}

func TestSubmitAnswerGuards(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob", "mallory")
	seedCategory(t, db, "colors", "Colors", "What is my favorite color?")
	sessionID := startedGame(t, svc, ids[0], ids[1])

	// No question in play yet.
	_, err := svc.SubmitAnswer(sessionID, ids[1], "blue")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	_, err = svc.PickCategory(sessionID, ids[0], "colors")
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(sessionID, ids[2], "blue")
	assert.True(t, apperr.Is(err, apperr.KindNotAParticipant))
}

func TestAdvanceRoundRotatesPicker(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob", "carol")
	seedCategory(t, db, "colors", "Colors", "q1", "q2", "q3")
	sessionID := startedGame(t, svc, ids[0], ids[1], ids[2])

	_, err := svc.AdvanceRound(sessionID, ids[1])
	assert.True(t, apperr.Is(err, apperr.KindNotYourTurn))

	result, err := svc.AdvanceRound(sessionID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 2, result.Round)
	assert.Equal(t, ids[1], result.PickerID)

	result, err = svc.AdvanceRound(sessionID, ids[1])
	require.NoError(t, err)
	assert.Equal(t, ids[2], result.PickerID)

	// The rotation wraps back to the creator.
	result, err = svc.AdvanceRound(sessionID, ids[2])
	require.NoError(t, err)
	assert.Equal(t, ids[0], result.PickerID)
}

func TestGameCompletesAfterFullRotations(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 1)
	ids := seedUsers(t, db, "alice", "bob")
	sessionID := startedGame(t, svc, ids[0], ids[1])

	result, err := svc.AdvanceRound(sessionID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "in_progress", result.SessionStatus)

	result, err = svc.AdvanceRound(sessionID, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "completed", result.SessionStatus)

	_, err = svc.AdvanceRound(sessionID, ids[0])
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestQuestionPoolExhausted(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob")
	seedCategory(t, db, "colors", "Colors", "What is my favorite color?")
	sessionID := startedGame(t, svc, ids[0], ids[1])

	_, err := svc.PickCategory(sessionID, ids[0], "colors")
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(sessionID, ids[0], "blue")
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(sessionID, ids[1], "blue")
	require.NoError(t, err)

	_, err = svc.AdvanceRound(sessionID, ids[0])
	require.NoError(t, err)

	// The only question already has answers recorded.
	_, err = svc.PickCategory(sessionID, ids[1], "colors")
	assert.True(t, apperr.Is(err, apperr.KindQuestionPoolExhausted))
}

func TestPickCategoryFuzzyLabel(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob")
	seedCategory(t, db, "romantic_knowing", "Romantic Knowing", "Where was our first date?")
	sessionID := startedGame(t, svc, ids[0], ids[1])

	round, err := svc.PickCategory(sessionID, ids[0], "Romantic Knowing")
	require.NoError(t, err)
	require.NotNil(t, round.Question)
}

func TestGetStateRejectsOutsiders(t *testing.T) {
	db := newTestDB(t)
	svc := NewQuizService(db, nil, 0)
	ids := seedUsers(t, db, "alice", "bob", "mallory")
	sessionID := startedGame(t, svc, ids[0], ids[1])

	_, err := svc.GetState(sessionID, ids[2])
	assert.True(t, apperr.Is(err, apperr.KindNotAParticipant))
}
