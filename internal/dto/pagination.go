package dto

import (
	"math"
	"strconv"

	"gorm.io/datatypes"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta derives the page count from the total.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page <= 0 {
		page = 1
	}
	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: 1}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return meta
}

func floatMapFromJSON(data datatypes.JSONMap) map[string]float64 {
	result := make(map[string]float64)
	if data == nil {
		return result
	}
	for key, raw := range data {
		switch value := raw.(type) {
		case float64:
			result[key] = value
		case int:
			result[key] = float64(value)
		case int64:
			result[key] = float64(value)
		case string:
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				result[key] = parsed
			}
		}
	}
	return result
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}
