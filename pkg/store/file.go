package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/sirupsen/logrus"
)

// FileStore reads history from a JSON array of flat panel objects or from a
// CSV file in the export format. It does not accept writes.
type FileStore struct {
	path      string
	delimiter rune
	logger    *logrus.Logger
}

// NewFileStore reads path on every load. delimiter applies to CSV files; 0
// means a comma.
func NewFileStore(path string, delimiter rune, logger *logrus.Logger) *FileStore {
	return &FileStore{path: path, delimiter: delimiter, logger: logger}
}

func (f *FileStore) PanelHistory(ctx context.Context) (model.History, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	history, err := ReadHistory(file, f.path, f.delimiter)
	if err != nil {
		return nil, err
	}
	return normalize(history, f.logger), nil
}

func (f *FileStore) SavePanel(ctx context.Context, panel model.Panel) error {
	return ErrReadOnly
}

func (f *FileStore) Close() error {
	return nil
}

// ReadHistory decodes a history file, picking the format from the file name.
// CSV cells are split on delimiter, or on commas when it is 0.
func ReadHistory(r io.Reader, name string, delimiter rune) (model.History, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		h, err := labs.ParseCSV(r, delimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return h, nil
	case ".json", "":
		var h model.History
		if err := json.NewDecoder(r).Decode(&h); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if h == nil {
			h = model.History{}
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unsupported history file type: %s", name)
	}
}
