package models

import (
	"time"
)

// Game session status values. Transitions are monotonic:
// waiting -> in_progress -> completed.
const (
	SessionStatusWaiting    = "waiting"
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
)

// QuestionCategory groups questions into pickable pools.
type QuestionCategory struct {
	ID          int    `json:"id" db:"id"`
	Category    string `json:"category" db:"category"` // slug, e.g. "romantic_knowing"
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Question belongs to one category. Points is the maximum award per answer.
type Question struct {
	ID           int       `json:"id" db:"id"`
	CategoryID   int       `json:"category_id" db:"category_id"`
	QuestionText string    `json:"question_text" db:"question_text"`
	Points       int       `json:"points" db:"points"`
	Consequence  string    `json:"consequence" db:"consequence"`
	Ordinal      int       `json:"ordinal" db:"ordinal"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// GameSession is a multiplayer round container. The current picker both
// chooses the category and holds the turn, so one column tracks both roles.
type GameSession struct {
	ID                string     `json:"id" db:"id"`
	CreatorID         int        `json:"creator_id" db:"creator_id"`
	Status            string     `json:"status" db:"status"`
	CurrentRound      int        `json:"current_round" db:"current_round"`
	CurrentQuestionID *int       `json:"current_question_id" db:"current_question_id"`
	CurrentPickerID   *int       `json:"current_picker_id" db:"current_picker_id"`
	JoinCode          string     `json:"join_code" db:"join_code"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// GamePlayer is a session membership row; Position fixes the turn order.
type GamePlayer struct {
	SessionID string `json:"session_id" db:"session_id"`
	UserID    int    `json:"user_id" db:"user_id"`
	Position  int    `json:"position" db:"position"`
	Username  string `json:"username" db:"username"`
}

// PlayerAnswer is one user's answer to one question within one session.
// Unique per (session, player, question); resubmission overwrites the row.
type PlayerAnswer struct {
	ID            string    `json:"id" db:"id"`
	SessionID     string    `json:"session_id" db:"session_id"`
	PlayerID      int       `json:"player_id" db:"player_id"`
	QuestionID    int       `json:"question_id" db:"question_id"`
	AnswerText    string    `json:"answer_text" db:"answer_text"`
	PointsAwarded int       `json:"points_awarded" db:"points_awarded"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// AnswerResult is returned after an answer submission.
type AnswerResult struct {
	AnswerID       string         `json:"answer_id"`
	PointsAwarded  int            `json:"points_awarded"`
	Deferred       bool           `json:"deferred"` // no canonical answer yet
	RoundCompleted bool           `json:"round_completed"`
	Scores         map[string]int `json:"scores,omitempty"`
}

// RoundResult is returned when a round is started or advanced.
type RoundResult struct {
	Round          int       `json:"round"`
	PickerID       int       `json:"picker_id"`
	PickerUsername string    `json:"picker_username"`
	Question       *Question `json:"question,omitempty"`
	SessionStatus  string    `json:"session_status"`
}

// SessionState is the full session view for players.
type SessionState struct {
	Session         GameSession    `json:"session"`
	Players         []GamePlayer   `json:"players"`
	CurrentQuestion *Question      `json:"current_question,omitempty"`
	CurrentAnswers  []PlayerAnswer `json:"current_answers"`
	Scores          map[string]int `json:"scores"`
}
