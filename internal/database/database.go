package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sqlx.DB
}

// New opens the SQLite database and ensures the schema exists.
func New(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		databaseURL = "entwine.db"
	}

	db, err := sqlx.Connect("sqlite3", databaseURL+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every pooled connection to :memory: would get its own empty database.
	if strings.Contains(databaseURL, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dbWrapper := &DB{DB: db}

	if err := dbWrapper.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return dbWrapper, nil
}

// createTables creates the necessary database tables
func (db *DB) createTables() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	plantsTable := `
	CREATE TABLE IF NOT EXISTS plants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		emoji TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		duration_days INTEGER NOT NULL,
		base_growth_rate REAL NOT NULL,
		difficulty TEXT NOT NULL DEFAULT 'medium',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	gardensTable := `
	CREATE TABLE IF NOT EXISTS gardens (
		id TEXT PRIMARY KEY,
		user_a_id INTEGER NOT NULL,
		user_b_id INTEGER NOT NULL,
		plant_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		accepted_at DATETIME,
		planted_a_at DATETIME,
		planted_b_at DATETIME,
		both_planted_at DATETIME,
		invitation_message TEXT NOT NULL DEFAULT '',
		invitation_expires_at DATETIME,
		FOREIGN KEY (user_a_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (user_b_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (plant_id) REFERENCES plants(id)
	);`

	growthStatesTable := `
	CREATE TABLE IF NOT EXISTS growth_states (
		garden_id TEXT PRIMARY KEY,
		current_stage INTEGER NOT NULL DEFAULT 1,
		stage_started_at DATETIME NOT NULL,
		growth_percentage REAL NOT NULL DEFAULT 0,
		growth_updated_at DATETIME NOT NULL,
		current_streak_days INTEGER NOT NULL DEFAULT 0,
		streak_started_at DATETIME,
		last_streak_day DATETIME,
		all_time_max_streak INTEGER NOT NULL DEFAULT 0,
		health_status TEXT NOT NULL DEFAULT 'healthy',
		last_care_action_at DATETIME,
		is_bloomed BOOLEAN NOT NULL DEFAULT FALSE,
		bloom_type TEXT NOT NULL DEFAULT 'pending',
		bloom_timestamp DATETIME,
		bloomed_at_streak INTEGER NOT NULL DEFAULT 0,
		final_care_score INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (garden_id) REFERENCES gardens(id) ON DELETE CASCADE
	);`

	careActionsTable := `
	CREATE TABLE IF NOT EXISTS care_actions (
		id TEXT PRIMARY KEY,
		garden_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		action_type TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		points_earned INTEGER NOT NULL DEFAULT 0,
		growth_delta REAL NOT NULL DEFAULT 0,
		is_synchronized BOOLEAN NOT NULL DEFAULT FALSE,
		FOREIGN KEY (garden_id) REFERENCES gardens(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`

	categoriesTable := `
	CREATE TABLE IF NOT EXISTS question_categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);`

	questionsTable := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category_id INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 1,
		consequence TEXT NOT NULL DEFAULT '',
		ordinal INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (category_id) REFERENCES question_categories(id) ON DELETE CASCADE
	);`

	sessionsTable := `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		creator_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'waiting',
		current_round INTEGER NOT NULL DEFAULT 0,
		current_question_id INTEGER,
		current_picker_id INTEGER,
		join_code TEXT UNIQUE NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (creator_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (current_question_id) REFERENCES questions(id)
	);`

	playersTable := `
	CREATE TABLE IF NOT EXISTS game_players (
		session_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (session_id, user_id),
		FOREIGN KEY (session_id) REFERENCES game_sessions(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`

	answersTable := `
	CREATE TABLE IF NOT EXISTS player_answers (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		player_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		answer_text TEXT NOT NULL DEFAULT '',
		points_awarded INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (session_id, player_id, question_id),
		FOREIGN KEY (session_id) REFERENCES game_sessions(id) ON DELETE CASCADE,
		FOREIGN KEY (player_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);`

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_gardens_user_a ON gardens(user_a_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_gardens_user_b ON gardens(user_b_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_care_actions_garden ON care_actions(garden_id, timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_care_actions_user ON care_actions(user_id, timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_join_code ON game_sessions(join_code);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_session_question ON player_answers(session_id, question_id);`,
	}

	tables := []string{
		usersTable, plantsTable, gardensTable, growthStatesTable,
		careActionsTable, categoriesTable, questionsTable,
		sessionsTable, playersTable, answersTable,
	}

	for _, query := range tables {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
