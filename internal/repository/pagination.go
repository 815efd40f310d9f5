package repository

import "gorm.io/gorm"

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page <= 0 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

// pageCapacity sizes result slices; unbounded listings start empty.
func pageCapacity(pageSize int) int {
	if pageSize <= 0 || pageSize > 100 {
		return 0
	}
	return pageSize
}
