package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joacominatel/dbdash/internal/database"
)

// Roles known to the API.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is a dashboard account. The password hash never leaves the store.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ValidRole reports whether role can be stored. The empty role means none.
func ValidRole(role string) bool {
	return role == "" || role == RoleAdmin || role == RoleViewer
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Statements are written with ? placeholders and rebound per backend.
const (
	queryCreateUsersPostgres = `
		CREATE TABLE IF NOT EXISTS users(
			id SERIAL PRIMARY KEY,
			email VARCHAR(100) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(20)
		)`
	queryInsertUser   = `INSERT INTO users(email, password, role) VALUES (?, ?, ?) RETURNING id`
	querySelectByMail = `SELECT id, email, password, role FROM users WHERE email = ?`
	querySelectByID   = `SELECT id, email, role FROM users WHERE id = ?`
	querySelectAll    = `SELECT id, email, role FROM users ORDER BY id`
	queryUpdateRole   = `UPDATE users SET role = ? WHERE id = ?`
	queryDeleteUser   = `DELETE FROM users WHERE id = ?`
	queryCountUsers   = `SELECT count(*) AS n FROM users`
)

// Store keeps users in the connected database's users table.
type Store struct {
	conn database.Conn
}

// NewStore creates a Store over conn.
func NewStore(conn database.Conn) *Store {
	return &Store{conn: conn}
}

// Migrate creates the users table where the backend does not bootstrap it.
func (s *Store) Migrate(ctx context.Context) error {
	if s.conn.Backend() != database.Postgres {
		return nil
	}
	if _, err := s.conn.Execute(ctx, queryCreateUsersPostgres); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

// Create adds a user with a hashed password.
func (s *Store) Create(ctx context.Context, email, password, role string) (User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return User{}, errors.New("email must not be empty")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	records, err := s.query(ctx, queryInsertUser, database.Str(email), database.Str(hash), roleValue(role))
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	if len(records) != 1 {
		return User{}, fmt.Errorf("create user: expected one id, got %d rows", len(records))
	}

	id, ok := intField(records[0], "id")
	if !ok {
		return User{}, fmt.Errorf("create user: missing id")
	}
	return User{ID: id, Email: email, Role: role}, nil
}

// Authenticate returns the user whose email and password match.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	records, err := s.query(ctx, querySelectByMail, database.Str(normalizeEmail(email)))
	if err != nil {
		return User{}, fmt.Errorf("authenticate: %w", err)
	}
	if len(records) == 0 {
		return User{}, ErrInvalidCredentials
	}

	hash, _ := stringField(records[0], "password")
	if !CheckPassword(hash, password) {
		return User{}, ErrInvalidCredentials
	}
	return userFromRecord(records[0]), nil
}

// FindByID returns the user with the given id.
func (s *Store) FindByID(ctx context.Context, id int64) (User, error) {
	records, err := s.query(ctx, querySelectByID, database.Int(id))
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	if len(records) == 0 {
		return User{}, ErrUserNotFound
	}
	return userFromRecord(records[0]), nil
}

// List returns all users ordered by id.
func (s *Store) List(ctx context.Context) ([]User, error) {
	records, err := s.query(ctx, querySelectAll)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]User, 0, len(records))
	for _, rec := range records {
		users = append(users, userFromRecord(rec))
	}
	return users, nil
}

// Count returns the number of users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	records, err := s.query(ctx, queryCountUsers)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	n, _ := intField(records[0], "n")
	return n, nil
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, id int64, role string) error {
	n, err := s.conn.Execute(ctx, s.rebind(queryUpdateRole), roleValue(role), database.Int(id))
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user.
func (s *Store) Delete(ctx context.Context, id int64) error {
	n, err := s.conn.Execute(ctx, s.rebind(queryDeleteUser), database.Int(id))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...database.Value) ([]database.Record, error) {
	rows, err := s.conn.QueryAll(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	return s.conn.Decode(rows)
}

func (s *Store) rebind(q string) string {
	return database.Rebind(s.conn.Backend(), q)
}

func userFromRecord(rec database.Record) User {
	id, _ := intField(rec, "id")
	email, _ := stringField(rec, "email")
	role, _ := stringField(rec, "role")
	return User{ID: id, Email: email, Role: role}
}

func intField(rec database.Record, name string) (int64, bool) {
	v, ok := rec.Get(name)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

func stringField(rec database.Record, name string) (string, bool) {
	v, ok := rec.Get(name)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// roleValue stores an empty role as NULL.
func roleValue(role string) database.Value {
	if role == "" {
		return database.Null(database.KindString)
	}
	return database.Str(role)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
