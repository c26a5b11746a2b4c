package sqlutil

import (
	"database/sql"
	"time"
)

// ToSqlInt64 converts a Go int64 pointer to sql.NullInt64
func ToSqlInt64(val *int64) sql.NullInt64 {
	if val == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *val, Valid: true}
}

// FromSqlInt64 converts sql.NullInt64 to Go int64 pointer
func FromSqlInt64(val sql.NullInt64) *int64 {
	if !val.Valid {
		return nil
	}
	n := val.Int64
	return &n
}

// ToSqlTime treats the zero time as NULL
func ToSqlTime(val time.Time) sql.NullTime {
	if val.IsZero() {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: val, Valid: true}
}

// FromSqlTime converts sql.NullTime to Go time, zero when NULL
func FromSqlTime(val sql.NullTime) time.Time {
	if !val.Valid {
		return time.Time{}
	}
	return val.Time
}
