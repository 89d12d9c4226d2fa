package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/rah-0/orbit/internal/models"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteRepository is a UserRepository backed by a SQLite database.
type SQLiteRepository struct {
	dbConn *sqlx.DB
	now    func() time.Time
}

var _ UserRepository = (*SQLiteRepository)(nil)

// dbUser represents a user as stored in the database.
type dbUser struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	CreatedAt int64     `db:"created_at"` // unix milliseconds
}

func toDomainUser(u *dbUser) *models.User {
	return &models.User{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: time.UnixMilli(u.CreatedAt).UTC(),
	}
}

// Open connects to the SQLite database at path and applies pending migrations.
// WAL mode, a 5s busy timeout and foreign keys are set on the connection.
func Open(path string) (*SQLiteRepository, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to db : %w", err)
	}

	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting dialect for migrations : %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migration : %w", err)
	}

	return &SQLiteRepository{dbConn: db, now: time.Now}, nil
}

// Close terminates the database connection.
func (repo *SQLiteRepository) Close() error {
	if err := repo.dbConn.Close(); err != nil {
		return fmt.Errorf("closing repo : %w", err)
	}
	return nil
}

func (repo *SQLiteRepository) FindOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating uuid: %w", err)
	}

	insert := `INSERT INTO users(id, email, created_at) VALUES (?, ?, ?) ON CONFLICT(email) DO NOTHING`
	if _, err := repo.dbConn.ExecContext(ctx, insert, id, email, repo.now().UnixMilli()); err != nil {
		return nil, fmt.Errorf("creating user %s: %w", email, err)
	}

	var user dbUser
	query := `SELECT id, email, created_at FROM users WHERE email = ?`
	if err := repo.dbConn.GetContext(ctx, &user, query, email); err != nil {
		return nil, fmt.Errorf("getting user %s: %w", email, err)
	}
	return toDomainUser(&user), nil
}

func (repo *SQLiteRepository) BookTrip(ctx context.Context, userID uuid.UUID, launchID int) error {
	query := `INSERT INTO trips(user_id, launch_id, booked_at) VALUES (?, ?, ?) ON CONFLICT(user_id, launch_id) DO NOTHING`

	if _, err := repo.dbConn.ExecContext(ctx, query, userID, launchID, repo.now().UnixMilli()); err != nil {
		return fmt.Errorf("booking launch %d: %w", launchID, err)
	}
	return nil
}

func (repo *SQLiteRepository) CancelTrip(ctx context.Context, userID uuid.UUID, launchID int) (bool, error) {
	query := `DELETE FROM trips WHERE user_id = ? AND launch_id = ?`

	result, err := repo.dbConn.ExecContext(ctx, query, userID, launchID)
	if err != nil {
		return false, fmt.Errorf("cancelling launch %d: %w", launchID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fetching rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (repo *SQLiteRepository) GetLaunchIDsByUser(ctx context.Context, userID uuid.UUID) ([]int, error) {
	ids := []int{}
	query := `SELECT launch_id FROM trips WHERE user_id = ? ORDER BY booked_at, rowid`

	if err := repo.dbConn.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("getting trips: %w", err)
	}
	return ids, nil
}

func (repo *SQLiteRepository) IsBookedOnLaunch(ctx context.Context, userID uuid.UUID, launchID int) (bool, error) {
	var one int
	query := `SELECT 1 FROM trips WHERE user_id = ? AND launch_id = ?`

	err := repo.dbConn.GetContext(ctx, &one, query, userID, launchID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking booking for launch %d: %w", launchID, err)
	}
	return true, nil
}
