// Package store provides SQLite-backed persistence for profiles, jobs,
// scholarships, and notifications.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS student_profiles (
		user_id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		skills_json TEXT NOT NULL DEFAULT '[]',
		ats_score INTEGER
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		company TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		posted_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scholarships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL DEFAULT '',
		deadline TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		read INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_posted ON jobs(posted_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Profile is a student profile row.
type Profile struct {
	UserID     string        `db:"user_id" json:"userId"`
	FullName   string        `db:"full_name" json:"fullName"`
	Bio        string        `db:"bio" json:"bio"`
	SkillsJSON string        `db:"skills_json" json:"-"`
	ATSScore   sql.NullInt64 `db:"ats_score" json:"atsScore"`
}

// Skills decodes the profile's skill list.
func (p *Profile) Skills() []string {
	var skills []string
	if err := json.Unmarshal([]byte(p.SkillsJSON), &skills); err != nil {
		return []string{}
	}
	return skills
}

// Job is a posted job row.
type Job struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Company     string `db:"company" json:"company"`
	Location    string `db:"location" json:"location"`
	Description string `db:"description" json:"description"`
	PostedAt    int64  `db:"posted_at" json:"postedAt"`
}

// Scholarship is a scholarship listing row.
type Scholarship struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Provider    string `db:"provider" json:"provider"`
	Amount      string `db:"amount" json:"amount"`
	Deadline    string `db:"deadline" json:"deadline"`
	Description string `db:"description" json:"description"`
}

// Notification is a per-user notification row.
type Notification struct {
	ID        int64  `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"userId"`
	Kind      string `db:"kind" json:"kind"`
	Title     string `db:"title" json:"title"`
	Body      string `db:"body" json:"body"`
	Read      bool   `db:"read" json:"read"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
}

// GetProfile returns the profile for a user, or ErrNotFound.
func (db *DB) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := db.conn.GetContext(ctx, &p,
		"SELECT user_id, full_name, bio, skills_json, ats_score FROM student_profiles WHERE user_id = ?",
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile creates or replaces a profile's descriptive fields,
// preserving any existing ATS score.
func (db *DB) UpsertProfile(ctx context.Context, userID, fullName, bio string, skills []string) error {
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO student_profiles (user_id, full_name, bio, skills_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			full_name = excluded.full_name,
			bio = excluded.bio,
			skills_json = excluded.skills_json`,
		userID, fullName, bio, string(skillsJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// UpsertATSScore records the latest resume analysis score for a user,
// creating an empty profile row when none exists.
func (db *DB) UpsertATSScore(ctx context.Context, userID string, score int) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO student_profiles (user_id, ats_score)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET ats_score = excluded.ats_score`,
		userID, score,
	)
	if err != nil {
		return fmt.Errorf("upsert ats score: %w", err)
	}
	return nil
}

// CreateJob inserts a job posting and returns its id.
func (db *DB) CreateJob(ctx context.Context, job *Job) (int64, error) {
	if job.PostedAt == 0 {
		job.PostedAt = time.Now().Unix()
	}
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO jobs (title, company, location, description, posted_at) VALUES (?, ?, ?, ?, ?)",
		job.Title, job.Company, job.Location, job.Description, job.PostedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job id: %w", err)
	}
	job.ID = id
	return id, nil
}

// ListJobs returns jobs newest first.
func (db *DB) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	jobs := []Job{}
	err := db.conn.SelectContext(ctx, &jobs,
		"SELECT id, title, company, location, description, posted_at FROM jobs ORDER BY posted_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// CreateScholarship inserts a scholarship listing and returns its id.
func (db *DB) CreateScholarship(ctx context.Context, s *Scholarship) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO scholarships (title, provider, amount, deadline, description) VALUES (?, ?, ?, ?, ?)",
		s.Title, s.Provider, s.Amount, s.Deadline, s.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("create scholarship: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("scholarship id: %w", err)
	}
	s.ID = id
	return id, nil
}

// ListScholarships returns all scholarship listings.
func (db *DB) ListScholarships(ctx context.Context) ([]Scholarship, error) {
	scholarships := []Scholarship{}
	err := db.conn.SelectContext(ctx, &scholarships,
		"SELECT id, title, provider, amount, deadline, description FROM scholarships ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("list scholarships: %w", err)
	}
	return scholarships, nil
}

// CreateNotification inserts a notification for a user and returns its id.
func (db *DB) CreateNotification(ctx context.Context, n *Notification) (int64, error) {
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO notifications (user_id, kind, title, body, created_at) VALUES (?, ?, ?, ?, ?)",
		n.UserID, n.Kind, n.Title, n.Body, n.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("create notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("notification id: %w", err)
	}
	n.ID = id
	return id, nil
}

// ListNotifications returns a user's notifications, newest first.
func (db *DB) ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	notifications := []Notification{}
	err := db.conn.SelectContext(ctx, &notifications,
		"SELECT id, user_id, kind, title, body, read, created_at FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flags a notification as read.
func (db *DB) MarkNotificationRead(ctx context.Context, userID string, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
