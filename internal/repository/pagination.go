package repository

import "gorm.io/gorm"

// Paginate limits a query to one page. A non-positive size returns every row.
func Paginate(page, size int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if size <= 0 {
			return db
		}
		return db.Offset((max(page, 1) - 1) * size).Limit(size)
	}
}
