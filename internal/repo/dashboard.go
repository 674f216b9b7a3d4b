package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
)

// GroupCount is one bucket of a GROUP BY over a nullable column. A nil Key
// is the bucket of rows with no value.
type GroupCount struct {
	Key   *string
	Count int64
}

// CountAllContents returns the total number of content rows.
func CountAllContents(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Content{}).Count(&n).Error
	return n, err
}

// contactGroupColumns whitelists the columns ContactsGroupedBy accepts.
var contactGroupColumns = map[string]bool{"segment": true, "investor_status": true}

// ContactsGroupedBy counts contacts per value of col, which must be
// "segment" or "investor_status".
func ContactsGroupedBy(ctx context.Context, db *gorm.DB, col string) ([]GroupCount, error) {
	if !contactGroupColumns[col] {
		return nil, fmt.Errorf("repo: cannot group contacts by %q", col)
	}
	out := []GroupCount{}
	err := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Select(col + " AS key, COUNT(*) AS count").
		Group(col).
		Scan(&out).Error
	return out, err
}
