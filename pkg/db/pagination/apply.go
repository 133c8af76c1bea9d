package pagination

import (
	"time"

	"gorm.io/gorm"
)

// Apply decodes the page token and constrains the statement to rows after
// the cursor, fetching one extra row so callers can detect another page.
func Apply(stmt *gorm.DB, page Pagination) (*gorm.DB, error) {
	size := page.PageSize
	if size <= 0 {
		size = 10
	}
	if size > 250 {
		size = 250
	}

	if page.PageToken != "" {
		cursor, err := DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.CreatedAt != "" {
			createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
			if err != nil {
				return nil, err
			}
			stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
		}
	}

	return stmt.Limit(size + 1), nil
}
