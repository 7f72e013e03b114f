package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
)

// ErrProfileNotFound is returned when no profile matches the given ID.
var ErrProfileNotFound = errors.New("profile not found")

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	niche            TEXT NOT NULL DEFAULT '',
	expertise_areas  TEXT NOT NULL DEFAULT '[]',
	platforms        TEXT NOT NULL DEFAULT '[]',
	languages        TEXT NOT NULL DEFAULT '[]',
	cultural_context TEXT NOT NULL DEFAULT '',
	lead_magnets     TEXT NOT NULL DEFAULT '[]',
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_profile
	ON conversations(profile_id, created_at);
`

// Store persists profiles and conversation history. SQLite allows a single
// writer, so the connection pool is pinned to one connection.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if needed) the store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("profile")
	logger.Info("profile store opened at %s", path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProfile inserts a new profile or updates an existing one (matched by
// ID). The returned profile carries the assigned ID and timestamps.
func (s *Store) SaveProfile(ctx context.Context, p *UserProfile) (*UserProfile, error) {
	now := time.Now().UTC()

	expertise, platforms, languages, magnets, err := marshalLists(p)
	if err != nil {
		return nil, err
	}

	if p.ID == 0 {
		p.CreatedAt = now
		p.UpdatedAt = now
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO profiles (name, niche, expertise_areas, platforms, languages, cultural_context, lead_magnets, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Name, p.Niche, expertise, platforms, languages, p.CulturalContext, magnets, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert profile: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("profile insert id: %w", err)
		}
		p.ID = id
		return p, nil
	}

	p.UpdatedAt = now
	_, err = s.db.ExecContext(ctx,
		`UPDATE profiles SET name=?, niche=?, expertise_areas=?, platforms=?, languages=?, cultural_context=?, lead_magnets=?, updated_at=?
		 WHERE id=?`,
		p.Name, p.Niche, expertise, platforms, languages, p.CulturalContext, magnets, now, p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile %d: %w", p.ID, err)
	}
	return p, nil
}

// GetProfile loads a profile by ID.
func (s *Store) GetProfile(ctx context.Context, id int64) (*UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, niche, expertise_areas, platforms, languages, cultural_context, lead_magnets, created_at, updated_at
		 FROM profiles WHERE id=?`, id)
	return scanProfile(row)
}

// LatestProfile returns the most recently updated profile, or
// ErrProfileNotFound when the store is empty.
func (s *Store) LatestProfile(ctx context.Context) (*UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, niche, expertise_areas, platforms, languages, cultural_context, lead_magnets, created_at, updated_at
		 FROM profiles ORDER BY updated_at DESC LIMIT 1`)
	return scanProfile(row)
}

// AppendConversation stores one chat turn for the profile.
func (s *Store) AppendConversation(ctx context.Context, profileID int64, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (profile_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		profileID, role, content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append conversation: %w", err)
	}
	return nil
}

// RecentConversation returns up to limit turns for the profile, oldest first.
func (s *Store) RecentConversation(ctx context.Context, profileID int64, limit int) ([]ConversationTurn, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profile_id, role, content, created_at FROM (
			SELECT id, profile_id, role, content, created_at
			FROM conversations WHERE profile_id=? ORDER BY created_at DESC, id DESC LIMIT ?
		 ) ORDER BY created_at ASC, id ASC`,
		profileID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var turns []ConversationTurn
	for rows.Next() {
		var t ConversationTurn
		if err := rows.Scan(&t.ID, &t.ProfileID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}
	return turns, nil
}

func marshalLists(p *UserProfile) (expertise, platforms, languages, magnets string, err error) {
	enc := func(v []string) (string, error) {
		if v == nil {
			v = []string{}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal profile list: %w", err)
		}
		return string(b), nil
	}
	if expertise, err = enc(p.ExpertiseAreas); err != nil {
		return
	}
	if platforms, err = enc(p.Platforms); err != nil {
		return
	}
	if languages, err = enc(p.Languages); err != nil {
		return
	}
	magnets, err = enc(p.LeadMagnets)
	return
}

func scanProfile(row *sql.Row) (*UserProfile, error) {
	var p UserProfile
	var expertise, platforms, languages, magnets string
	err := row.Scan(&p.ID, &p.Name, &p.Niche, &expertise, &platforms, &languages, &p.CulturalContext, &magnets, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	for dst, src := range map[*[]string]string{
		&p.ExpertiseAreas: expertise,
		&p.Platforms:      platforms,
		&p.Languages:      languages,
		&p.LeadMagnets:    magnets,
	} {
		if err := json.Unmarshal([]byte(src), dst); err != nil {
			return nil, fmt.Errorf("decode profile list: %w", err)
		}
	}
	return &p, nil
}
