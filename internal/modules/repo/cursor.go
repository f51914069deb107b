package repo

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrConflict is returned when a conditional update matched no row.
var ErrConflict = errors.New("conflicting state")

// withCursor applies (created_at, id) keyset pagination and ordering.
func withCursor(q *gorm.DB, table string, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) *gorm.DB {
	col := func(c string) string {
		if table == "" {
			return c
		}
		return table + "." + c
	}

	if !afterCreatedAt.IsZero() && afterID != uuid.Nil {
		op := ">"
		if timeDesc {
			op = "<"
		}
		q = q.Where(
			"(("+col("created_at")+" "+op+" ?) OR ("+col("created_at")+" = ? AND "+col("id")+" "+op+" ?))",
			afterCreatedAt, afterCreatedAt, afterID,
		)
	}

	orderBy := col("created_at") + " ASC, " + col("id") + " ASC"
	if timeDesc {
		orderBy = col("created_at") + " DESC, " + col("id") + " DESC"
	}
	return q.Order(orderBy).Limit(limit)
}
