package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/entwine-app/entwine/internal/apperr"
	"github.com/entwine-app/entwine/internal/database"
	"github.com/entwine-app/entwine/internal/models"
)

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser registers a username for an identity minted upstream.
func (s *UserService) CreateUser(username string) (*models.User, error) {
	user := &models.User{
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, created_at) VALUES (?, ?)`,
		user.Username, user.CreatedAt,
	)
	if err != nil {
		return nil, apperr.Persistence("failed to create user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, apperr.Persistence("failed to get user ID", err)
	}
	user.ID = int(id)

	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(id int) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT id, username, created_at FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "user %d not found", id)
	} else if err != nil {
		return nil, apperr.Persistence("failed to get user", err)
	}

	return &user, nil
}

// UsernameOf returns the display name for an id, with a stable fallback for
// identities that never registered a username.
func (s *UserService) UsernameOf(id int) string {
	var username string
	err := s.db.Get(&username, `SELECT username FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Sprintf("user-%d", id)
	}
	return username
}
