package store

import (
	"fmt"
	"strings"
)

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS admins (
			id {{id}},
			email {{str}} NOT NULL UNIQUE,
			password_hash {{str}} NOT NULL,
			name {{str}} NOT NULL DEFAULT '',
			is_active {{bool}} NOT NULL DEFAULT TRUE,
			last_login_at {{ts}} NULL,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS developers (
			id {{id}},
			name {{str}} NOT NULL,
			email {{str}} NOT NULL UNIQUE,
			password_hash {{str}} NOT NULL,
			company {{str}} NOT NULL DEFAULT '',
			website {{str}} NOT NULL DEFAULT '',
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS api_keys (
			id {{id}},
			developer_id {{ref}} NOT NULL,
			key_hash {{str}} NOT NULL UNIQUE,
			key_prefix {{str}} NOT NULL,
			label {{str}} NOT NULL DEFAULT '',
			is_active {{bool}} NOT NULL DEFAULT TRUE,
			last_used {{ts}} NULL,
			created_at {{ts}} NOT NULL,
			FOREIGN KEY (developer_id) REFERENCES developers(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id {{id}},
			developer_id {{ref}} NOT NULL,
			title {{str}} NOT NULL,
			is_active {{bool}} NOT NULL DEFAULT TRUE,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL,
			FOREIGN KEY (developer_id) REFERENCES developers(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS chat_messages (
			id {{id}},
			session_id {{ref}} NOT NULL,
			role {{str}} NOT NULL CHECK (role IN ('user', 'assistant')),
			content TEXT NOT NULL,
			tokens INTEGER NOT NULL DEFAULT 0,
			created_at {{ts}} NOT NULL,
			FOREIGN KEY (session_id) REFERENCES chat_sessions(id)
		)`,

		`CREATE TABLE IF NOT EXISTS manufacturers (
			id {{id}},
			name {{str}} NOT NULL UNIQUE,
			country {{str}} NOT NULL DEFAULT '',
			description TEXT NOT NULL,
			founded_year INTEGER NULL,
			is_active {{bool}} NOT NULL DEFAULT TRUE,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id {{id}},
			name {{str}} NOT NULL UNIQUE,
			description TEXT NOT NULL,
			is_active {{bool}} NOT NULL DEFAULT TRUE,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS aircraft (
			id {{id}},
			manufacturer_id {{ref}} NOT NULL,
			category_id {{ref}} NOT NULL,
			model_name {{str}} NOT NULL,
			description TEXT NOT NULL,
			year_introduced INTEGER NULL,
			max_passengers INTEGER NULL,
			cruise_speed {{float}} NULL,
			max_altitude {{float}} NULL,
			range_km {{float}} NULL,
			engines INTEGER NULL,
			engine_type {{str}} NOT NULL DEFAULT '',
			image_url {{str}} NOT NULL DEFAULT '',
			is_active {{bool}} NOT NULL DEFAULT TRUE,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL,
			FOREIGN KEY (manufacturer_id) REFERENCES manufacturers(id),
			FOREIGN KEY (category_id) REFERENCES categories(id)
		)`,

		`CREATE INDEX idx_api_keys_developer ON api_keys(developer_id)`,
		`CREATE INDEX idx_chat_sessions_developer ON chat_sessions(developer_id)`,
		`CREATE INDEX idx_chat_messages_session ON chat_messages(session_id)`,
		`CREATE INDEX idx_aircraft_manufacturer ON aircraft(manufacturer_id)`,
		`CREATE INDEX idx_aircraft_category ON aircraft(category_id)`,
	}

	for _, m := range migrations {
		stmt := s.dialect.types.Replace(m)
		if _, err := s.db.Exec(stmt); err != nil {
			// Index creation is not idempotent on every dialect; an index
			// that already exists is a no-op.
			if isAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate key name")
}
