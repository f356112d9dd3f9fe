package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DBSink stores security events in a SQL database. The schema is
// created on construction if missing.
type DBSink struct {
	db *sql.DB
}

// NewDBSink creates a database-backed audit sink.
func NewDBSink(db *sql.DB) (*DBSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	sink := &DBSink{db: db}
	if err := sink.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure security_events table: %w", err)
	}
	return sink, nil
}

func (s *DBSink) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS security_events (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		event_type TEXT NOT NULL,
		status TEXT NOT NULL,
		user_id TEXT,
		resource_id TEXT,
		message TEXT,
		details TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_security_events_timestamp ON security_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_security_events_user_id ON security_events(user_id);
	CREATE INDEX IF NOT EXISTS idx_security_events_event_type ON security_events(event_type);
	`
	_, err := s.db.Exec(query)
	return err
}

// Log inserts the event.
func (s *DBSink) Log(ctx context.Context, event *SecurityEvent) error {
	var detailsJSON []byte
	if event.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO security_events (id, timestamp, event_type, status, user_id, resource_id, message, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		string(event.Event),
		string(event.Status),
		event.UserID,
		event.ResourceID,
		event.Message,
		string(detailsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}

// Search returns events matching the filter, newest first.
func (s *DBSink) Search(ctx context.Context, filter SearchFilter) ([]*SecurityEvent, error) {
	query := `
		SELECT id, timestamp, event_type, status, user_id, resource_id, message, details
		FROM security_events WHERE 1=1
	`
	var args []interface{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, string(filter.EventType))
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		query += " AND timestamp >= ?"
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		query += " AND timestamp <= ?"
		args = append(args, *filter.Until)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}
	defer rows.Close()

	var events []*SecurityEvent
	for rows.Next() {
		var event SecurityEvent
		var detailsJSON sql.NullString
		if err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.Event,
			&event.Status,
			&event.UserID,
			&event.ResourceID,
			&event.Message,
			&detailsJSON,
		); err != nil {
			return nil, err
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &event.Details); err != nil {
				event.Details = nil
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// SearchFilter selects events for DBSink.Search.
type SearchFilter struct {
	UserID    string
	EventType EventType
	Status    EventStatus
	Since     *time.Time
	Until     *time.Time
	Limit     int
}

// Close closes the underlying database handle.
func (s *DBSink) Close() error {
	return s.db.Close()
}
