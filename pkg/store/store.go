// Package store loads and persists panel history.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/sirupsen/logrus"
)

var ErrReadOnly = errors.New("store is read-only")

// Reader supplies the chronological panel history.
type Reader interface {
	PanelHistory(ctx context.Context) (model.History, error)
}

// Writer records a panel. A panel whose date already exists replaces the stored one.
type Writer interface {
	SavePanel(ctx context.Context, panel model.Panel) error
}

type Store interface {
	Reader
	Writer
	Close() error
}

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverFile     Driver = "file"
)

type Config struct {
	Driver    Driver
	DSN       string
	File      string
	Delimiter rune // CSV delimiter for the file driver
}

// Open returns the store selected by cfg.Driver. SQL stores are migrated before use.
func Open(ctx context.Context, cfg Config, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres, "":
		driver := cfg.Driver
		if driver == "" {
			driver = DriverSQLite
		}
		return OpenSQL(ctx, driver, cfg.DSN, logger)
	case DriverFile:
		if cfg.File == "" {
			return nil, fmt.Errorf("file store requires a path")
		}
		return NewFileStore(cfg.File, cfg.Delimiter, logger), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s (supported: sqlite, postgres, file)", cfg.Driver)
	}
}

// normalize orders panels by date and keeps the last panel recorded for any
// repeated date. Keys that could not be read as numbers are logged.
func normalize(history model.History, logger *logrus.Logger) model.History {
	for _, p := range history {
		for _, key := range p.Skipped {
			logger.WithFields(logrus.Fields{
				"date": p.Date.Format(model.DateLayout),
				"key":  key,
			}).Warn("Skipping non-numeric lab value")
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})

	out := make(model.History, 0, len(history))
	for _, p := range history {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			logger.WithField("date", p.Date.Format(model.DateLayout)).Warn("Duplicate panel date, keeping the later entry")
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
