package models

import (
	"time"
)

// Garden status values. Transitions are monotonic:
// pending -> active -> (bloomed | abandoned) -> archived.
const (
	GardenStatusPending   = "pending"
	GardenStatusActive    = "active"
	GardenStatusBloomed   = "bloomed"
	GardenStatusAbandoned = "abandoned"
	GardenStatusArchived  = "archived"
)

// Health status values, derived from days since the last care action.
const (
	HealthThriving  = "thriving"
	HealthHealthy   = "healthy"
	HealthDeclining = "declining"
	HealthWilting   = "wilting"
	HealthDead      = "dead"
)

// Bloom type values.
const (
	BloomPending      = "pending"
	BloomPerfect      = "perfect"
	BloomPartial      = "partial"
	BloomAutoComplete = "auto_complete"
)

// CareActionWater is the only action type with growth mechanics attached.
const CareActionWater = "water"

// Plant is an immutable seed template. Many gardens reference one plant.
type Plant struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Emoji          string    `json:"emoji" db:"emoji"`
	Description    string    `json:"description" db:"description"`
	DurationDays   int       `json:"duration_days" db:"duration_days"`
	BaseGrowthRate float64   `json:"base_growth_rate" db:"base_growth_rate"` // fraction per day, e.g. 0.14
	Difficulty     string    `json:"difficulty" db:"difficulty"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Garden is a co-growing session between exactly two users and one plant.
type Garden struct {
	ID                  string     `json:"id" db:"id"`
	UserAID             int        `json:"user_a_id" db:"user_a_id"`
	UserBID             int        `json:"user_b_id" db:"user_b_id"`
	PlantID             string     `json:"plant_id" db:"plant_id"`
	Status              string     `json:"status" db:"status"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	AcceptedAt          *time.Time `json:"accepted_at" db:"accepted_at"`
	PlantedAAt          *time.Time `json:"planted_a_at" db:"planted_a_at"`
	PlantedBAt          *time.Time `json:"planted_b_at" db:"planted_b_at"`
	BothPlantedAt       *time.Time `json:"both_planted_at" db:"both_planted_at"`
	InvitationMessage   string     `json:"invitation_message" db:"invitation_message"`
	InvitationExpiresAt *time.Time `json:"invitation_expires_at" db:"invitation_expires_at"`
}

// HasParticipant reports whether userID is one of the garden's two users.
func (g *Garden) HasParticipant(userID int) bool {
	return userID == g.UserAID || userID == g.UserBID
}

// PartnerOf returns the other participant's id.
func (g *Garden) PartnerOf(userID int) int {
	if userID == g.UserAID {
		return g.UserBID
	}
	return g.UserAID
}

// Terminal reports whether the garden can no longer change growth state.
func (g *Garden) Terminal() bool {
	switch g.Status {
	case GardenStatusBloomed, GardenStatusAbandoned, GardenStatusArchived:
		return true
	}
	return false
}

// GrowthState is the derived progression state attached 1:1 to a garden.
type GrowthState struct {
	GardenID string `json:"garden_id" db:"garden_id"`

	// Stage progression (1-5)
	CurrentStage   int       `json:"current_stage" db:"current_stage"`
	StageStartedAt time.Time `json:"stage_started_at" db:"stage_started_at"`

	// Growth percentage (0.0 - 100.0)
	GrowthPercentage float64   `json:"growth_percentage" db:"growth_percentage"`
	GrowthUpdatedAt  time.Time `json:"growth_updated_at" db:"growth_updated_at"`

	// Streak tracking. LastStreakDay records the last UTC day on which both
	// participants watered, so the daily increment stays idempotent.
	CurrentStreakDays int        `json:"current_streak_days" db:"current_streak_days"`
	StreakStartedAt   *time.Time `json:"streak_started_at" db:"streak_started_at"`
	LastStreakDay     *time.Time `json:"last_streak_day" db:"last_streak_day"`
	AllTimeMaxStreak  int        `json:"all_time_max_streak" db:"all_time_max_streak"`

	// Health & visual state
	HealthStatus     string     `json:"health_status" db:"health_status"`
	LastCareActionAt *time.Time `json:"last_care_action_at" db:"last_care_action_at"`

	// Bloom state
	IsBloomed       bool       `json:"is_bloomed" db:"is_bloomed"`
	BloomType       string     `json:"bloom_type" db:"bloom_type"`
	BloomTimestamp  *time.Time `json:"bloom_timestamp" db:"bloom_timestamp"`
	BloomedAtStreak int        `json:"bloomed_at_streak" db:"bloomed_at_streak"`
	FinalCareScore  int        `json:"final_care_score" db:"final_care_score"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CareAction is one append-only care event. Rows are never mutated after the
// water pipeline commits them.
type CareAction struct {
	ID             string    `json:"id" db:"id"`
	GardenID       string    `json:"garden_id" db:"garden_id"`
	UserID         int       `json:"user_id" db:"user_id"`
	ActionType     string    `json:"action_type" db:"action_type"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	PointsEarned   int       `json:"points_earned" db:"points_earned"`
	GrowthDelta    float64   `json:"growth_delta" db:"growth_delta"`
	IsSynchronized bool      `json:"is_synchronized" db:"is_synchronized"`
}

// CreateGardenRequest is the payload for inviting a partner.
type CreateGardenRequest struct {
	PartnerID int    `json:"partner_id"`
	PlantID   string `json:"plant_id"`
	Message   string `json:"message"`
}

// WaterResult is returned by the care action pipeline.
type WaterResult struct {
	CareActionID     string  `json:"care_action_id"`
	GrowthPercentage float64 `json:"growth_percentage"`
	CurrentStage     int     `json:"current_stage"`
	StreakDays       int     `json:"streak_days"`
	IsBloomed        bool    `json:"is_bloomed"`
	BloomType        string  `json:"bloom_type"`
	HealthStatus     string  `json:"health_status"`
	Synchronized     bool    `json:"synchronized"`
}

// PlantResult reports plant-confirmation progress.
type PlantResult struct {
	BothPlanted      bool    `json:"both_planted"`
	GrowthPercentage float64 `json:"growth_percentage"`
}

// GardenDetail bundles a garden with its growth state and plant template.
type GardenDetail struct {
	Garden      Garden       `json:"garden"`
	GrowthState *GrowthState `json:"growth_state,omitempty"`
	Plant       Plant        `json:"plant"`
}
