package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const taskColumns = "id, status, priority_class, source_kind, source_ref, mode, title, description, source_id, model, retry_count, diagnostic_json, created_at, updated_at"

// timeLayout is fixed width so stored values sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id          string
		statusStr   string
		priorityStr string
		sourceKind  string
		sourceRef   string
		modeStr     string
		title       sql.NullString
		description sql.NullString
		sourceID    sql.NullString
		model       sql.NullString
		retryCount  int
		diagnostic  sql.NullString
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&priorityStr,
		&sourceKind,
		&sourceRef,
		&modeStr,
		&title,
		&description,
		&sourceID,
		&model,
		&retryCount,
		&diagnostic,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:          id,
		Status:      Status(statusStr),
		Priority:    Priority(priorityStr),
		Source:      Source{Kind: SourceKind(sourceKind), Ref: sourceRef},
		Mode:        Mode(modeStr),
		Title:       title.String,
		Description: description.String,
		SourceID:    sourceID.String,
		Model:       model.String,
		RetryCount:  retryCount,
	}
	if diagnostic.Valid && diagnostic.String != "" {
		var diag Diagnostic
		if err := json.Unmarshal([]byte(diagnostic.String), &diag); err == nil {
			task.Diagnostic = &diag
		} else {
			task.Diagnostic = &Diagnostic{Message: diagnostic.String}
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

func scanTasks(rows *sql.Rows) ([]*Task, error) {
	defer rows.Close()
	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
