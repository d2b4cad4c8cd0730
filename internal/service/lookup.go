package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cardoc/cardoc-go/internal/datastore"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
	"github.com/cardoc/cardoc-go/internal/observability/metrics"
	"github.com/cardoc/cardoc-go/internal/tutorials"
)

// Get returns the stored response of diagnostic id. A failed diagnosis has
// no stored response and is returned with its status only.
func (d *Diagnoser) Get(ctx context.Context, id string) (*Response, error) {
	if d.store == nil {
		return nil, ErrPersistenceDisabled
	}
	if strings.TrimSpace(id) == "" {
		return nil, errors.ValidationError("diagnostic id is required")
	}

	var record *datastore.DiagnosticRecord
	err := d.timed(metrics.OpDbQuery, func() error {
		var err error
		record, err = d.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if record.Result == "" {
		return &Response{
			DiagnosticID:     record.ID,
			UserID:           record.UserID,
			DiagnosisType:    record.DiagnosisType,
			Status:           record.Status,
			DetectedIssues:   []string{},
			UrgencyLevel:     record.UrgencyLevel,
			Recommendations:  []string{},
			YouTubeTutorials: []tutorials.Tutorial{},
			CreatedAt:        record.CreatedAt,
		}, nil
	}

	var resp Response
	if err := json.Unmarshal([]byte(record.Result), &resp); err != nil {
		return nil, errors.New(err).
			Component("service").
			Category(errors.CategoryDatabase).
			Context("operation", "decode_record").
			Context("diagnostic_id", id).
			Build()
	}
	resp.Cached = false
	return &resp, nil
}

// History lists the newest diagnoses of userID. limit <= 0 selects the
// datastore default.
func (d *Diagnoser) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if d.store == nil {
		return nil, ErrPersistenceDisabled
	}
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	var records []datastore.DiagnosticRecord
	err := d.timed(metrics.OpDbQuery, func() error {
		var err error
		records, err = d.store.ListByUser(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for i := range records {
		r := &records[i]
		entries = append(entries, HistoryEntry{
			DiagnosticID:    r.ID,
			DiagnosisType:   r.DiagnosisType,
			Status:          r.Status,
			UrgencyLevel:    r.UrgencyLevel,
			ConfidenceScore: r.Confidence,
			CreatedAt:       r.CreatedAt.UTC(),
		})
	}
	return entries, nil
}

// Delete removes diagnostic id and its archived upload.
func (d *Diagnoser) Delete(ctx context.Context, id string) error {
	if d.store == nil {
		return ErrPersistenceDisabled
	}

	var record *datastore.DiagnosticRecord
	err := d.timed(metrics.OpDbQuery, func() error {
		var err error
		record, err = d.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	if err := d.timed(metrics.OpDbDelete, func() error {
		return d.store.Delete(ctx, id)
	}); err != nil {
		return err
	}

	if d.archive != nil && record.ArchivePath != "" {
		key := strings.TrimPrefix(record.ArchivePath, d.archive.Name()+":")
		if err := d.archive.Delete(ctx, key); err != nil {
			d.log.WithContext(ctx).Warn("failed to delete archived upload",
				logger.String("diagnostic_id", id),
				logger.Error(err))
		}
	}
	return nil
}
