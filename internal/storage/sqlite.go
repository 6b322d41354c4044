// Package storage implements session.Store on SQLite via GORM.
//
// One row per session holds state, one holds metrics, and a single-row
// table holds the latest-session pointer. Saves run in transactions so
// a concurrently polling reader always sees a complete record.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/CodexForgeBR/module-loop/internal/session"
	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// SQLiteStore implements session.Store using GORM over SQLite.
type SQLiteStore struct {
	db *gorm.DB
}

// Compile-time interface check.
var _ session.Store = (*SQLiteStore)(nil)

// Open creates (or opens) the session database at dbPath, enabling WAL
// mode and migrating the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}

	// WAL mode for concurrent readers alongside the orchestration loop.
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(
		&sessionStateModel{},
		&sessionMetricsModel{},
		&latestPointerModel{},
		&quarantinedSessionModel{},
	); err != nil {
		return nil, fmt.Errorf("migrate session schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveState upserts the state row for st's session id.
func (s *SQLiteStore) SaveState(ctx context.Context, st *session.State) error {
	row := sessionStateModel{
		SessionID:       st.ID.String(),
		Module:          st.Module,
		Phase:           string(st.Phase),
		Step:            int(st.Step),
		ActiveComponent: st.ActiveComponent,
		CreatedAt:       st.CreatedAt,
		UpdatedAt:       st.UpdatedAt,
		IsComplete:      st.IsComplete,
		LastCommitSha:   st.LastTaskCompletionCommitSha,
		PlanFileHash:    st.PlanFileHash,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save session state %s: %w", st.ID, err)
	}
	return nil
}

// LoadState reads and validates the state row for id.
func (s *SQLiteStore) LoadState(ctx context.Context, id session.ID) (*session.State, error) {
	var row sessionStateModel
	err := s.db.WithContext(ctx).First(&row, "session_id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session state %s: %w", id, err)
	}

	st := &session.State{
		ID:                          id,
		Module:                      row.Module,
		Phase:                       workflow.Phase(row.Phase),
		Step:                        workflow.Step(row.Step),
		ActiveComponent:             row.ActiveComponent,
		CreatedAt:                   row.CreatedAt,
		UpdatedAt:                   row.UpdatedAt,
		IsComplete:                  row.IsComplete,
		LastTaskCompletionCommitSha: row.LastCommitSha,
		PlanFileHash:                row.PlanFileHash,
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

// SaveMetrics upserts the metrics row for m's session id.
func (s *SQLiteStore) SaveMetrics(ctx context.Context, m *session.Metrics) error {
	row := sessionMetricsModel{
		SessionID:       m.SessionID.String(),
		InputTokens:     m.InputTokens,
		OutputTokens:    m.OutputTokens,
		PremiumRequests: m.PremiumRequests,
		Iterations:      m.Iterations,
		UpdatedAt:       m.UpdatedAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save session metrics %s: %w", m.SessionID, err)
	}
	return nil
}

// LoadMetrics reads the metrics row for id.
func (s *SQLiteStore) LoadMetrics(ctx context.Context, id session.ID) (*session.Metrics, error) {
	var row sessionMetricsModel
	err := s.db.WithContext(ctx).First(&row, "session_id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session metrics %s: %w", id, err)
	}

	return &session.Metrics{
		SessionID:       id,
		InputTokens:     row.InputTokens,
		OutputTokens:    row.OutputTokens,
		PremiumRequests: row.PremiumRequests,
		Iterations:      row.Iterations,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

// List enumerates all known session ids, oldest first. Rows whose id no
// longer parses are skipped; they remain addressable only through the
// quarantine table.
func (s *SQLiteStore) List(ctx context.Context) ([]session.ID, error) {
	var rows []sessionStateModel
	err := s.db.WithContext(ctx).
		Select("session_id").
		Order("created_at asc, session_id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	ids := make([]session.ID, 0, len(rows))
	for _, row := range rows {
		id, err := session.ParseID(row.SessionID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes a session's state and metrics rows.
func (s *SQLiteStore) Delete(ctx context.Context, id session.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		key := id.String()
		if err := tx.Delete(&sessionStateModel{}, "session_id = ?", key).Error; err != nil {
			return fmt.Errorf("delete session state %s: %w", id, err)
		}
		if err := tx.Delete(&sessionMetricsModel{}, "session_id = ?", key).Error; err != nil {
			return fmt.Errorf("delete session metrics %s: %w", id, err)
		}
		return nil
	})
}

// Quarantine moves a session's raw state row into the quarantine table,
// preserving the payload as JSON, then removes the live rows. A latest
// pointer referencing the session is cleared so resume flows unblock.
func (s *SQLiteStore) Quarantine(ctx context.Context, id session.ID, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		key := id.String()

		var row sessionStateModel
		payload := ""
		err := tx.First(&row, "session_id = ?", key).Error
		switch {
		case err == nil:
			raw, mErr := json.Marshal(row)
			if mErr != nil {
				return fmt.Errorf("serialize quarantine payload %s: %w", id, mErr)
			}
			payload = string(raw)
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Nothing readable to preserve; record the reason anyway.
		default:
			return fmt.Errorf("read session %s for quarantine: %w", id, err)
		}

		q := quarantinedSessionModel{
			SessionID:     key,
			Reason:        reason,
			Payload:       payload,
			QuarantinedAt: time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&q).Error; err != nil {
			return fmt.Errorf("quarantine session %s: %w", id, err)
		}

		if err := tx.Delete(&sessionStateModel{}, "session_id = ?", key).Error; err != nil {
			return fmt.Errorf("remove quarantined state %s: %w", id, err)
		}
		if err := tx.Delete(&sessionMetricsModel{}, "session_id = ?", key).Error; err != nil {
			return fmt.Errorf("remove quarantined metrics %s: %w", id, err)
		}
		if err := tx.Delete(&latestPointerModel{}, "id = 1 AND session_id = ?", key).Error; err != nil {
			return fmt.Errorf("clear latest pointer for %s: %w", id, err)
		}
		return nil
	})
}

// SetLatest upserts the single-row latest-session pointer.
func (s *SQLiteStore) SetLatest(ctx context.Context, id session.ID) error {
	row := latestPointerModel{ID: 1, SessionID: id.String(), UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("set latest pointer: %w", err)
	}
	return nil
}

// Latest reads the latest-session pointer.
func (s *SQLiteStore) Latest(ctx context.Context) (session.ID, bool, error) {
	var row latestPointerModel
	err := s.db.WithContext(ctx).First(&row, "id = 1").Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.ID{}, false, nil
	}
	if err != nil {
		return session.ID{}, false, fmt.Errorf("read latest pointer: %w", err)
	}

	id, err := session.ParseID(row.SessionID)
	if err != nil {
		return session.ID{}, false, fmt.Errorf("latest pointer is malformed: %w", err)
	}
	return id, true, nil
}

// QuarantinedReason returns the recorded reason for a quarantined
// session, or ErrNotFound. Used by session inspection commands.
func (s *SQLiteStore) QuarantinedReason(ctx context.Context, id session.ID) (string, error) {
	var row quarantinedSessionModel
	err := s.db.WithContext(ctx).First(&row, "session_id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", session.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read quarantined session %s: %w", id, err)
	}
	return row.Reason, nil
}
