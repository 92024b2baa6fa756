package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
)

var ErrInvalidExport = errors.New("invalid employee export")

// LocalSource reads legacy records from a JSON array exported from master_employee,
// using the same column names as the data layer.
type LocalSource struct {
	BaseDir string
	Path    string
}

func NewLocalSource(baseDir, path string) *LocalSource {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalSource{BaseDir: baseDir, Path: path}
}

type exportedEmployee struct {
	ID       *int64  `json:"id"`
	Email    *string `json:"email"`
	FullName string  `json:"full_name"`
	Password *string `json:"password"`
	UserID   *string `json:"user_id"`
}

func (s *LocalSource) FetchUnmigratedRecords(ctx context.Context) ([]domain.LegacyRecord, error) {
	path := s.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.BaseDir, s.Path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	token, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: read json start token: %v", ErrInvalidExport, err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidExport)
	}

	records := make([]domain.LegacyRecord, 0)
	for index := 0; dec.More(); index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var row exportedEmployee
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("%w: decode employee at index %d: %v", ErrInvalidExport, index, err)
		}
		if row.ID == nil {
			return nil, fmt.Errorf("%w: employee at index %d has no id", ErrInvalidExport, index)
		}

		record := domain.LegacyRecord{
			ID:               *row.ID,
			FullName:         row.FullName,
			PasswordHash:     row.Password,
			LinkedIdentityID: row.UserID,
		}
		if row.Email != nil {
			record.Email = *row.Email
		}
		records = append(records, record)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: read json end token: %v", ErrInvalidExport, err)
	}

	return records, nil
}
