package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
)

const orderByCreatedAtDesc = " ORDER BY created_at DESC"

// escapeLikePattern neutralizes % and _ in user-supplied search terms so
// they match literally instead of acting as LIKE wildcards.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// wrapLikePattern escapes a term and wraps it for substring search.
func wrapLikePattern(s string) string {
	return "%" + escapeLikePattern(s) + "%"
}

// Null-column helpers shared by the repositories. The users and projects
// tables store their document columns as JSONB and use NULL for absent
// optional values, so every optional field goes through one of these.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeValue(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

// nullBytes maps an empty slice to NULL so JSONB columns distinguish
// "never written" from "written empty".
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// toJSONB marshals a document for a JSONB column; nil stays nil.
func toJSONB(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// fromJSONB unmarshals a JSONB column into target; NULL columns leave the
// target untouched.
func fromJSONB(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
