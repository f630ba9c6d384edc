package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	// database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// goose keeps its settings in package globals.
var migrateMu sync.Mutex

// SQLStore keeps panels in SQLite or PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver Driver
	logger *logrus.Logger
}

// OpenSQL connects and migrates. For SQLite the DSN is a file path and its
// directory is created if needed.
func OpenSQL(ctx context.Context, driver Driver, dsn string, logger *logrus.Logger) (*SQLStore, error) {
	var db *sql.DB
	var err error

	switch driver {
	case DriverSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("sqlite store requires a database path")
		}
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set WAL mode: %w", err)
		}

	case DriverPostgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	s := NewSQLStore(db, driver, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database without running migrations.
func NewSQLStore(db *sql.DB, driver Driver, logger *logrus.Logger) *SQLStore {
	return &SQLStore{db: db, driver: driver, logger: logger}
}

// Migrate applies the embedded schema migrations.
func (s *SQLStore) Migrate(ctx context.Context) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(s.logger)

	dialect := "postgres"
	if s.driver == DriverSQLite {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const historyQuery = `
	SELECT p.visit_date, m.analyte, m.value
	FROM panels p
	LEFT JOIN measurements m ON m.panel_id = p.id
	ORDER BY p.visit_date, m.position`

func (s *SQLStore) PanelHistory(ctx context.Context) (model.History, error) {
	rows, err := s.db.QueryContext(ctx, historyQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query panels: %w", err)
	}
	defer rows.Close()

	history := model.History{}
	var current *model.Panel
	for rows.Next() {
		var visitDate string
		var analyte sql.NullString
		var value sql.NullFloat64
		if err := rows.Scan(&visitDate, &analyte, &value); err != nil {
			return nil, fmt.Errorf("failed to scan panel row: %w", err)
		}

		date, err := model.ParseDate(visitDate)
		if err != nil {
			s.logger.WithField("visit_date", visitDate).Warn("Skipping panel with unreadable date")
			continue
		}
		if current == nil || !current.Date.Equal(date) {
			history = append(history, model.Panel{Date: date})
			current = &history[len(history)-1]
		}
		if analyte.Valid && value.Valid {
			current.Values = append(current.Values, model.Measurement{Analyte: analyte.String, Value: value.Float64})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read panels: %w", err)
	}

	s.logger.WithField("panels", len(history)).Debug("Loaded panel history")
	return history, nil
}

func (s *SQLStore) SavePanel(ctx context.Context, panel model.Panel) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	visitDate := panel.Date.Format(model.DateLayout)

	var panelID string
	err = tx.QueryRowContext(ctx, s.rebind("SELECT id FROM panels WHERE visit_date = ?"), visitDate).Scan(&panelID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		panelID = uuid.New().String()
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO panels (id, visit_date) VALUES (?, ?)"), panelID, visitDate); err != nil {
			return fmt.Errorf("failed to insert panel: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up panel: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM measurements WHERE panel_id = ?"), panelID); err != nil {
			return fmt.Errorf("failed to clear measurements: %w", err)
		}
	}

	insert := s.rebind("INSERT INTO measurements (panel_id, position, analyte, value) VALUES (?, ?, ?, ?)")
	for i, m := range panel.Values {
		if _, err := tx.ExecContext(ctx, insert, panelID, i, m.Analyte, m.Value); err != nil {
			return fmt.Errorf("failed to insert %s: %w", m.Analyte, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit panel: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"panel_id":   panelID,
		"visit_date": visitDate,
		"analytes":   len(panel.Values),
	}).Debug("Saved panel")
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
