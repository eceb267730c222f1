package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/entwine-app/entwine/internal/apperr"
	"github.com/entwine-app/entwine/internal/database"
	"github.com/entwine-app/entwine/internal/events"
	"github.com/entwine-app/entwine/internal/growth"
	"github.com/entwine-app/entwine/internal/logger"
	"github.com/entwine-app/entwine/internal/models"
)

// invitationTTL is how long a garden invitation stays acceptable.
const invitationTTL = 7 * 24 * time.Hour

const gardenColumns = `id, user_a_id, user_b_id, plant_id, status, created_at,
	accepted_at, planted_a_at, planted_b_at, both_planted_at,
	invitation_message, invitation_expires_at`

const growthStateColumns = `garden_id, current_stage, stage_started_at,
	growth_percentage, growth_updated_at, current_streak_days,
	streak_started_at, last_streak_day, all_time_max_streak, health_status,
	last_care_action_at, is_bloomed, bloom_type, bloom_timestamp,
	bloomed_at_streak, final_care_score, updated_at`

// GardenService orchestrates the shared-garden lifecycle and the care-action
// pipeline. Time-based transitions (health decay, streak breaks, abandonment)
// are recomputed lazily on every read and write.
type GardenService struct {
	db               *database.DB
	events           events.Publisher
	log              *logger.Log
	now              func() time.Time
	abandonAfterDays int
}

func NewGardenService(db *database.DB, pub events.Publisher) *GardenService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &GardenService{
		db:               db,
		events:           pub,
		log:              logger.New(),
		now:              time.Now,
		abandonAfterDays: growth.DefaultAbandonAfterDays,
	}
}

// SetAbandonAfterDays overrides the inactivity window used for auto-abandon.
func (s *GardenService) SetAbandonAfterDays(days int) {
	if days > 0 {
		s.abandonAfterDays = days
	}
}

// ListPlants returns all seed templates.
func (s *GardenService) ListPlants() ([]models.Plant, error) {
	plants := []models.Plant{}
	err := s.db.Select(&plants, `SELECT id, name, emoji, description, duration_days, base_growth_rate, difficulty, created_at FROM plants ORDER BY name`)
	if err != nil {
		return nil, apperr.Persistence("failed to list plants", err)
	}
	return plants, nil
}

// Invite creates a pending garden from the inviter to a partner.
func (s *GardenService) Invite(userID int, req models.CreateGardenRequest) (*models.Garden, error) {
	if req.PartnerID == userID {
		return nil, apperr.New(apperr.KindInvalidState, "cannot invite yourself to a garden")
	}

	var exists int
	if err := s.db.Get(&exists, `SELECT COUNT(*) FROM users WHERE id = ?`, req.PartnerID); err != nil {
		return nil, apperr.Persistence("failed to look up partner", err)
	}
	if exists == 0 {
		return nil, apperr.New(apperr.KindNotFound, "user %d not found", req.PartnerID)
	}

	if err := s.db.Get(&exists, `SELECT COUNT(*) FROM plants WHERE id = ?`, req.PlantID); err != nil {
		return nil, apperr.Persistence("failed to look up plant", err)
	}
	if exists == 0 {
		return nil, apperr.New(apperr.KindNotFound, "plant %q not found", req.PlantID)
	}

	now := s.now().UTC()
	expires := now.Add(invitationTTL)
	garden := &models.Garden{
		ID:                  uuid.NewString(),
		UserAID:             userID,
		UserBID:             req.PartnerID,
		PlantID:             req.PlantID,
		Status:              models.GardenStatusPending,
		CreatedAt:           now,
		InvitationMessage:   req.Message,
		InvitationExpiresAt: &expires,
	}

	_, err := s.db.Exec(`
		INSERT INTO gardens (id, user_a_id, user_b_id, plant_id, status, created_at, invitation_message, invitation_expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		garden.ID, garden.UserAID, garden.UserBID, garden.PlantID,
		garden.Status, garden.CreatedAt, garden.InvitationMessage, garden.InvitationExpiresAt,
	)
	if err != nil {
		return nil, apperr.Persistence("failed to create garden", err)
	}

	return garden, nil
}

// ListGardens returns the gardens the user participates in.
func (s *GardenService) ListGardens(userID int) ([]models.Garden, error) {
	gardens := []models.Garden{}
	err := s.db.Select(&gardens,
		`SELECT `+gardenColumns+` FROM gardens WHERE user_a_id = ? OR user_b_id = ? ORDER BY created_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, apperr.Persistence("failed to list gardens", err)
	}
	return gardens, nil
}

// Accept lets the invited partner activate a pending garden. Accepting also
// creates the garden's growth state.
func (s *GardenService) Accept(gardenID string, userID int) (*models.Garden, error) {
	garden, err := s.getGarden(s.db.DB, gardenID)
	if err != nil {
		return nil, err
	}

	if garden.UserBID != userID {
		return nil, apperr.New(apperr.KindNotAParticipant, "only the invited user can accept")
	}
	if garden.Status != models.GardenStatusPending {
		return nil, apperr.New(apperr.KindInvalidState, "garden is %s, cannot accept", garden.Status)
	}

	now := s.now().UTC()
	if garden.InvitationExpiresAt != nil && now.After(*garden.InvitationExpiresAt) {
		return nil, apperr.New(apperr.KindInvalidState, "invitation has expired")
	}

	garden.Status = models.GardenStatusActive
	garden.AcceptedAt = &now
	garden.InvitationExpiresAt = nil

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE gardens SET status = ?, accepted_at = ?, invitation_expires_at = NULL WHERE id = ?`,
		garden.Status, garden.AcceptedAt, garden.ID)
	if err != nil {
		return nil, apperr.Persistence("failed to accept garden", err)
	}

	_, err = tx.Exec(`
		INSERT INTO growth_states (garden_id, current_stage, stage_started_at, growth_percentage, growth_updated_at, health_status, bloom_type, updated_at)
		VALUES (?, 1, ?, 0, ?, ?, ?, ?)`,
		garden.ID, now, now, models.HealthHealthy, models.BloomPending, now,
	)
	if err != nil {
		return nil, apperr.Persistence("failed to create growth state", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("failed to commit accept", err)
	}

	return garden, nil
}

// ConfirmPlant records one participant's planting confirmation. Planting is
// complete once both have confirmed; initial growth is one day's base rate.
func (s *GardenService) ConfirmPlant(gardenID string, userID int) (*models.PlantResult, error) {
	garden, err := s.getGarden(s.db.DB, gardenID)
	if err != nil {
		return nil, err
	}
	if !garden.HasParticipant(userID) {
		return nil, apperr.New(apperr.KindNotAParticipant, "user is not part of this garden")
	}
	if garden.Status != models.GardenStatusActive {
		return nil, apperr.New(apperr.KindInvalidState, "garden must be active to plant")
	}

	now := s.now().UTC()
	if userID == garden.UserAID && garden.PlantedAAt == nil {
		garden.PlantedAAt = &now
	}
	if userID == garden.UserBID && garden.PlantedBAt == nil {
		garden.PlantedBAt = &now
	}

	bothPlanted := garden.PlantedAAt != nil && garden.PlantedBAt != nil
	if bothPlanted && garden.BothPlantedAt == nil {
		garden.BothPlantedAt = &now
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE gardens SET planted_a_at = ?, planted_b_at = ?, both_planted_at = ? WHERE id = ?`,
		garden.PlantedAAt, garden.PlantedBAt, garden.BothPlantedAt, garden.ID)
	if err != nil {
		return nil, apperr.Persistence("failed to record planting", err)
	}

	result := &models.PlantResult{BothPlanted: bothPlanted}
	if bothPlanted {
		plant, err := s.getPlant(tx, garden.PlantID)
		if err != nil {
			return nil, err
		}
		result.GrowthPercentage = plant.BaseGrowthRate * 100

		_, err = tx.Exec(`UPDATE growth_states SET growth_percentage = ?, growth_updated_at = ?, updated_at = ? WHERE garden_id = ?`,
			result.GrowthPercentage, now, now, garden.ID)
		if err != nil {
			return nil, apperr.Persistence("failed to initialize growth", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("failed to commit planting", err)
	}

	return result, nil
}

// Get returns garden details after running the lazy recompute pass (health,
// streak decay, auto-abandon). State is always correct on read even when no
// background sweep ran.
func (s *GardenService) Get(gardenID string, userID int) (*models.GardenDetail, error) {
	garden, err := s.getGarden(s.db.DB, gardenID)
	if err != nil {
		return nil, err
	}
	if !garden.HasParticipant(userID) {
		return nil, apperr.New(apperr.KindNotAParticipant, "user is not part of this garden")
	}

	plant, err := s.getPlant(s.db.DB, garden.PlantID)
	if err != nil {
		return nil, err
	}

	detail := &models.GardenDetail{Garden: *garden, Plant: *plant}

	gs, err := s.getGrowthState(s.db.DB, garden.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return detail, nil
	} else if err != nil {
		return nil, apperr.Persistence("failed to load growth state", err)
	}

	if err := s.refreshDerivedState(garden, gs); err != nil {
		return nil, err
	}

	detail.Garden = *garden
	detail.GrowthState = gs
	return detail, nil
}

// History returns the most recent care actions, newest first.
func (s *GardenService) History(gardenID string, userID int) ([]models.CareAction, error) {
	garden, err := s.getGarden(s.db.DB, gardenID)
	if err != nil {
		return nil, err
	}
	if !garden.HasParticipant(userID) {
		return nil, apperr.New(apperr.KindNotAParticipant, "user is not part of this garden")
	}

	actions := []models.CareAction{}
	err = s.db.Select(&actions, `
		SELECT id, garden_id, user_id, action_type, timestamp, points_earned, growth_delta, is_synchronized
		FROM care_actions WHERE garden_id = ? ORDER BY timestamp DESC LIMIT 50`, gardenID)
	if err != nil {
		return nil, apperr.Persistence("failed to load care history", err)
	}
	return actions, nil
}

// Archive moves a terminal garden into the archived state.
func (s *GardenService) Archive(gardenID string, userID int) error {
	garden, err := s.getGarden(s.db.DB, gardenID)
	if err != nil {
		return err
	}
	if !garden.HasParticipant(userID) {
		return apperr.New(apperr.KindNotAParticipant, "user is not part of this garden")
	}
	if garden.Status != models.GardenStatusBloomed && garden.Status != models.GardenStatusAbandoned {
		return apperr.New(apperr.KindInvalidState, "garden is %s, only bloomed or abandoned gardens can be archived", garden.Status)
	}

	_, err = s.db.Exec(`UPDATE gardens SET status = ? WHERE id = ?`, models.GardenStatusArchived, gardenID)
	if err != nil {
		return apperr.Persistence("failed to archive garden", err)
	}
	return nil
}

// Water runs the full care-action pipeline in one transaction: validate,
// log the action, recompute growth, stage, bloom, streak and health, then
// persist the action, growth state and garden together.
func (s *GardenService) Water(gardenID string, userID int) (*models.WaterResult, error) {
	now := s.now().UTC()
	dayStart, dayEnd := utcDayBounds(now)

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	garden, err := s.getGarden(tx, gardenID)
	if err != nil {
		return nil, err
	}

	if !garden.HasParticipant(userID) {
		return nil, apperr.New(apperr.KindNotAParticipant, "user is not part of this garden")
	}
	if garden.Status != models.GardenStatusActive {
		return nil, apperr.New(apperr.KindInvalidState, "garden is %s, cannot care for it", garden.Status)
	}

	var watered int
	err = tx.Get(&watered, `
		SELECT COUNT(*) FROM care_actions
		WHERE garden_id = ? AND user_id = ? AND action_type = ? AND timestamp >= ? AND timestamp < ?`,
		gardenID, userID, models.CareActionWater, dayStart, dayEnd)
	if err != nil {
		return nil, apperr.Persistence("failed to check today's actions", err)
	}
	if watered > 0 {
		return nil, apperr.New(apperr.KindAlreadyActedToday, "already watered today")
	}

	action := &models.CareAction{
		ID:           uuid.NewString(),
		GardenID:     gardenID,
		UserID:       userID,
		ActionType:   models.CareActionWater,
		Timestamp:    now,
		PointsEarned: growth.PointsPerWater,
	}
	_, err = tx.Exec(`
		INSERT INTO care_actions (id, garden_id, user_id, action_type, timestamp, points_earned, growth_delta, is_synchronized)
		VALUES (?, ?, ?, ?, ?, ?, 0, FALSE)`,
		action.ID, action.GardenID, action.UserID, action.ActionType, action.Timestamp, action.PointsEarned)
	if err != nil {
		return nil, apperr.Persistence("failed to record care action", err)
	}

	gs, err := s.getGrowthState(tx, gardenID)
	if err != nil {
		return nil, apperr.Persistence("failed to load growth state", err)
	}
	plant, err := s.getPlant(tx, garden.PlantID)
	if err != nil {
		return nil, err
	}

	gs.LastCareActionAt = &now

	// Each participant waters at most once per day, so the acting user's
	// count for today is exactly the action just created.
	calc := growth.CalculateDailyGrowth(garden, gs, plant, 1, now)
	oldPercentage := gs.GrowthPercentage
	gs.GrowthPercentage = calc.NewPercentage
	gs.GrowthUpdatedAt = now
	action.GrowthDelta = calc.NewPercentage - oldPercentage

	if calc.StageAdvance && gs.CurrentStage < growth.MaxStage {
		gs.CurrentStage++
		gs.StageStartedAt = now
	}

	if gs.GrowthPercentage >= 100 {
		gs.IsBloomed = true
		gs.BloomTimestamp = &now
		gs.BloomedAtStreak = gs.CurrentStreakDays

		var totalActions int
		if err := tx.Get(&totalActions, `SELECT COUNT(*) FROM care_actions WHERE garden_id = ?`, gardenID); err != nil {
			return nil, apperr.Persistence("failed to count care actions", err)
		}
		gs.FinalCareScore = totalActions * growth.PointsPerWater

		var partnerWatered int
		err = tx.Get(&partnerWatered, `
			SELECT COUNT(*) FROM care_actions
			WHERE garden_id = ? AND user_id = ? AND action_type = ? AND timestamp >= ? AND timestamp < ?`,
			gardenID, garden.PartnerOf(userID), models.CareActionWater, dayStart, dayEnd)
		if err != nil {
			return nil, apperr.Persistence("failed to check partner's actions", err)
		}
		if partnerWatered > 0 {
			gs.BloomType = models.BloomPerfect
		} else {
			gs.BloomType = models.BloomPartial
		}
		garden.Status = models.GardenStatusBloomed
	}

	var distinctWaterers int
	err = tx.Get(&distinctWaterers, `
		SELECT COUNT(DISTINCT user_id) FROM care_actions
		WHERE garden_id = ? AND action_type = ? AND timestamp >= ? AND timestamp < ?`,
		gardenID, models.CareActionWater, dayStart, dayEnd)
	if err != nil {
		return nil, apperr.Persistence("failed to count waterers", err)
	}

	streak := growth.UpdateStreak(gs, distinctWaterers, now)
	action.IsSynchronized = streak.BothParticipated

	gs.HealthStatus = growth.HealthStatus(gs, now)

	// A user just acted, so this never fires here; kept so the write path
	// shares the same checks as the lazy read path and the sweep.
	if growth.AbandonDue(garden, gs, now, s.abandonAfterDays) {
		garden.Status = models.GardenStatusAbandoned
	}

	gs.UpdatedAt = now

	_, err = tx.Exec(`UPDATE care_actions SET growth_delta = ?, is_synchronized = ? WHERE id = ?`,
		action.GrowthDelta, action.IsSynchronized, action.ID)
	if err != nil {
		return nil, apperr.Persistence("failed to update care action", err)
	}
	if err := s.saveGrowthState(tx, gs); err != nil {
		return nil, err
	}
	_, err = tx.Exec(`UPDATE gardens SET status = ? WHERE id = ?`, garden.Status, garden.ID)
	if err != nil {
		return nil, apperr.Persistence("failed to update garden", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("failed to commit care action", err)
	}

	result := &models.WaterResult{
		CareActionID:     action.ID,
		GrowthPercentage: gs.GrowthPercentage,
		CurrentStage:     gs.CurrentStage,
		StreakDays:       gs.CurrentStreakDays,
		IsBloomed:        gs.IsBloomed,
		BloomType:        gs.BloomType,
		HealthStatus:     gs.HealthStatus,
		Synchronized:     action.IsSynchronized,
	}

	s.events.Publish(events.GardenTopic(gardenID), events.Event{
		Type: events.TypeGardenUpdated,
		Data: result,
	})

	return result, nil
}

// SweepAbandoned applies the auto-abandon check to every non-terminal garden.
// Returns the number of gardens transitioned.
func (s *GardenService) SweepAbandoned() (int, error) {
	gardens := []models.Garden{}
	err := s.db.Select(&gardens,
		`SELECT `+gardenColumns+` FROM gardens WHERE status IN (?, ?)`,
		models.GardenStatusPending, models.GardenStatusActive)
	if err != nil {
		return 0, apperr.Persistence("failed to list gardens for sweep", err)
	}

	now := s.now().UTC()
	abandoned := 0
	for i := range gardens {
		garden := &gardens[i]
		gs, err := s.getGrowthState(s.db.DB, garden.ID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		} else if err != nil {
			return abandoned, apperr.Persistence("failed to load growth state", err)
		}

		if growth.AbandonDue(garden, gs, now, s.abandonAfterDays) {
			if _, err := s.db.Exec(`UPDATE gardens SET status = ? WHERE id = ?`, models.GardenStatusAbandoned, garden.ID); err != nil {
				return abandoned, apperr.Persistence("failed to abandon garden", err)
			}
			abandoned++
		}
	}
	return abandoned, nil
}

// refreshDerivedState recomputes health, streak decay and abandonment on
// read, persisting only when something changed.
func (s *GardenService) refreshDerivedState(garden *models.Garden, gs *models.GrowthState) error {
	now := s.now().UTC()
	changed := false

	if health := growth.HealthStatus(gs, now); health != gs.HealthStatus {
		gs.HealthStatus = health
		changed = true
	}

	// A streak only survives while every intervening day was synchronized;
	// reads apply the break lazily.
	if gs.CurrentStreakDays > 0 && gs.LastStreakDay != nil {
		var distinct int
		dayStart, dayEnd := utcDayBounds(now)
		err := s.db.Get(&distinct, `
			SELECT COUNT(DISTINCT user_id) FROM care_actions
			WHERE garden_id = ? AND action_type = ? AND timestamp >= ? AND timestamp < ?`,
			garden.ID, models.CareActionWater, dayStart, dayEnd)
		if err != nil {
			return apperr.Persistence("failed to count waterers", err)
		}
		before := gs.CurrentStreakDays
		growth.UpdateStreak(gs, distinct, now)
		if gs.CurrentStreakDays != before {
			changed = true
		}
	}

	if growth.AbandonDue(garden, gs, now, s.abandonAfterDays) {
		garden.Status = models.GardenStatusAbandoned
		if _, err := s.db.Exec(`UPDATE gardens SET status = ? WHERE id = ?`, garden.Status, garden.ID); err != nil {
			return apperr.Persistence("failed to abandon garden", err)
		}
	}

	if changed {
		gs.UpdatedAt = now
		if err := s.saveGrowthState(s.db.DB, gs); err != nil {
			return err
		}
	}
	return nil
}

type queryer interface {
	sqlx.Queryer
	Get(dest interface{}, query string, args ...interface{}) error
}

func (s *GardenService) getGarden(q queryer, id string) (*models.Garden, error) {
	var garden models.Garden
	err := q.Get(&garden, `SELECT `+gardenColumns+` FROM gardens WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "garden not found")
	} else if err != nil {
		return nil, apperr.Persistence("failed to load garden", err)
	}
	return &garden, nil
}

func (s *GardenService) getGrowthState(q queryer, gardenID string) (*models.GrowthState, error) {
	var gs models.GrowthState
	err := q.Get(&gs, `SELECT `+growthStateColumns+` FROM growth_states WHERE garden_id = ?`, gardenID)
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

func (s *GardenService) getPlant(q queryer, id string) (*models.Plant, error) {
	var plant models.Plant
	err := q.Get(&plant, `SELECT id, name, emoji, description, duration_days, base_growth_rate, difficulty, created_at FROM plants WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "plant %q not found", id)
	} else if err != nil {
		return nil, apperr.Persistence("failed to load plant", err)
	}
	return &plant, nil
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (s *GardenService) saveGrowthState(e execer, gs *models.GrowthState) error {
	_, err := e.Exec(`
		UPDATE growth_states SET
			current_stage = ?, stage_started_at = ?, growth_percentage = ?,
			growth_updated_at = ?, current_streak_days = ?, streak_started_at = ?,
			last_streak_day = ?, all_time_max_streak = ?, health_status = ?,
			last_care_action_at = ?, is_bloomed = ?, bloom_type = ?,
			bloom_timestamp = ?, bloomed_at_streak = ?, final_care_score = ?, updated_at = ?
		WHERE garden_id = ?`,
		gs.CurrentStage, gs.StageStartedAt, gs.GrowthPercentage,
		gs.GrowthUpdatedAt, gs.CurrentStreakDays, gs.StreakStartedAt,
		gs.LastStreakDay, gs.AllTimeMaxStreak, gs.HealthStatus,
		gs.LastCareActionAt, gs.IsBloomed, gs.BloomType,
		gs.BloomTimestamp, gs.BloomedAtStreak, gs.FinalCareScore, gs.UpdatedAt,
		gs.GardenID,
	)
	if err != nil {
		return apperr.Persistence("failed to save growth state", err)
	}
	return nil
}

// utcDayBounds returns the [start, end) of the UTC calendar day containing t.
func utcDayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
