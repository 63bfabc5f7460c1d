package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

var (
	// ErrDuplicateEmail is returned when a member with the same e-mail already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNotFound is returned by lookups with no matching row.
	ErrNotFound = errors.New("registration not found")

	// ErrWrongPassword is returned by CheckPassword on a mismatch.
	ErrWrongPassword = errors.New("wrong password")
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS submission (
	id TEXT PRIMARY KEY,
	wizard_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS member_registration (
	id TEXT PRIMARY KEY,
	submission_id TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL,
	display_name TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	sports TEXT NOT NULL DEFAULT '[]',
	membership_plan TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	FOREIGN KEY (submission_id) REFERENCES submission(id)
);
`

// Member is a stored registration.
type Member struct {
	ID             string
	SubmissionID   string
	Email          string
	FullName       string
	DisplayName    string
	Sports         []string
	MembershipPlan string
	CreatedAt      time.Time
}

// Sink implements ports.Submitter by writing submissions to SQLite.
// Every payload is kept in the submission table with sensitive keys removed;
// member registrations are also decoded into member_registration with a
// bcrypt password hash.
type Sink struct {
	db        *sql.DB
	cost      int
	sensitive map[string]bool
	now       func() time.Time
}

// Option configures the Sink.
type Option func(*Sink)

// WithBcryptCost overrides the password hashing cost (tests use bcrypt.MinCost).
func WithBcryptCost(cost int) Option {
	return func(s *Sink) {
		s.cost = cost
	}
}

// WithSensitiveKeys lists payload keys never written to the submission table.
func WithSensitiveKeys(keys ...string) Option {
	return func(s *Sink) {
		for _, k := range keys {
			s.sensitive[k] = true
		}
	}
}

// Open opens (or creates) the database at dsn and initializes the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Sink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s, err := New(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database and initializes the schema.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Sink, error) {
	s := &Sink{
		db:        db,
		cost:      bcrypt.DefaultCost,
		sensitive: map[string]bool{"password": true, "confirmPassword": true},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Submit stores the payload. For member registrations a duplicate e-mail
// fails with ErrDuplicateEmail and nothing is written.
func (s *Sink) Submit(ctx context.Context, wizardID string, payload domain.Payload) error {
	var reg *registration.Registration
	if wizardID == registration.WizardID {
		var err error
		if reg, err = registration.Decode(payload); err != nil {
			return err
		}
	}

	stored, err := json.Marshal(s.redact(payload))
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	submissionID := uuid.NewString()
	createdAt := s.now().UTC().Format(time.RFC3339)

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO submission (id, wizard_id, payload, created_at) VALUES (?, ?, ?, ?)",
		submissionID, wizardID, string(stored), createdAt,
	); err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	if reg != nil {
		if err := s.insertMember(ctx, tx, submissionID, createdAt, reg); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Sink) insertMember(ctx context.Context, tx *sql.Tx, submissionID, createdAt string, reg *registration.Registration) error {
	email := normalizeEmail(reg.Email)

	var exists int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM member_registration WHERE email = ?", email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateEmail
	}

	hash := ""
	if reg.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		hash = string(b)
	}

	sports, err := json.Marshal(orEmpty(reg.Sports))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO member_registration
		(id, submission_id, email, full_name, display_name, password_hash, sports, membership_plan, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), submissionID, email, reg.FullName, reg.DisplayName(), hash, string(sports), reg.MembershipPlan, createdAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

func (s *Sink) redact(payload domain.Payload) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if !s.sensitive[k] {
			out[k] = v
		}
	}
	return out
}

// FindByEmail returns the member registered with email.
func (s *Sink) FindByEmail(ctx context.Context, email string) (*Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, submission_id, email, full_name, display_name, sports, membership_plan, created_at
		FROM member_registration WHERE email = ?`, normalizeEmail(email))

	var m Member
	var sports, createdAt string
	err := row.Scan(&m.ID, &m.SubmissionID, &m.Email, &m.FullName, &m.DisplayName, &sports, &m.MembershipPlan, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sports), &m.Sports); err != nil {
		return nil, fmt.Errorf("corrupt sports column: %w", err)
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at column: %w", err)
	}
	return &m, nil
}

// CheckPassword verifies plaintext against the stored hash for email.
func (s *Sink) CheckPassword(ctx context.Context, email, plaintext string) error {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT password_hash FROM member_registration WHERE email = ?", normalizeEmail(email)).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// Payload returns the stored (redacted) payload of a submission.
func (s *Sink) Payload(ctx context.Context, submissionID string) (domain.Payload, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM submission WHERE id = ?", submissionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	if err != nil {
		return nil, err
	}
	var payload domain.Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("corrupt payload column: %w", err)
	}
	return payload, nil
}

// Count returns the number of stored submissions for wizardID.
func (s *Sink) Count(ctx context.Context, wizardID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM submission WHERE wizard_id = ?", wizardID).Scan(&n)
	return n, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
