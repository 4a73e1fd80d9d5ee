package profile

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"meal-intake/internal/pkg/common"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // modernc 驅動
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLStore 以 SQLite 儲存使用者飲食資料
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore 開啟資料庫並執行遷移
func NewSQLStore(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	common.LogInfo("飲食資料庫已就緒", zap.String("path", dbPath))
	return &SQLStore{db: db}, nil
}

// runMigrations 套用內嵌的遷移檔
func runMigrations(dbPath string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+dbPath)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Get 讀取資料
func (s *SQLStore) Get(ctx context.Context, userID string) (*Profile, error) {
	var dietary, allergies string
	var updated time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT dietary_restrictions, allergies, updated_at FROM user_profile WHERE user_id = ?`,
		userID,
	).Scan(&dietary, &allergies, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	p := &Profile{UserID: userID, UpdatedAt: updated}
	if err := json.Unmarshal([]byte(dietary), &p.DietaryRestrictions); err != nil {
		return nil, fmt.Errorf("invalid dietary_restrictions column: %w", err)
	}
	if err := json.Unmarshal([]byte(allergies), &p.Allergies); err != nil {
		return nil, fmt.Errorf("invalid allergies column: %w", err)
	}
	return p, nil
}

// Upsert 新增或更新資料
func (s *SQLStore) Upsert(ctx context.Context, p *Profile) error {
	dietary, err := json.Marshal(nonNil(p.DietaryRestrictions))
	if err != nil {
		return err
	}
	allergies, err := json.Marshal(nonNil(p.Allergies))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_profile (user_id, dietary_restrictions, allergies, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			dietary_restrictions = excluded.dietary_restrictions,
			allergies = excluded.allergies,
			updated_at = excluded.updated_at`,
		p.UserID, string(dietary), string(allergies), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Ping 檢查資料庫連線
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 關閉資料庫
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
