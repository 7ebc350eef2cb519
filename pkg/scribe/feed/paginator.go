package feed

import (
	"strconv"

	"github.com/mfedorov/scribe/pkg/scribe/models"
	"gorm.io/gorm"
)

// Page is one chunk of an ordered post collection.
type Page struct {
	Posts      []models.Post `json:"posts"`
	Number     int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	TotalCount int64         `json:"total_count"`
	HasNext    bool          `json:"has_next"`
	HasPrev    bool          `json:"has_prev"`
}

// ParsePage interprets a raw page query parameter. A missing, non-numeric,
// or non-positive value means page 1.
func ParsePage(pageParam string) int {
	if parsed, err := strconv.Atoi(pageParam); err == nil && parsed > 1 {
		return parsed
	}
	return 1
}

// PageCount returns how many pages the query spans at the given page size,
// along with the total row count. An empty collection still counts as one
// page.
func PageCount(query *gorm.DB, pageSize int) (int, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	return totalPages, total, nil
}

// Paginate slices the given ordered query into the requested page.
//
// Page numbers are 1-indexed. A missing, non-numeric, or non-positive page
// parameter means page 1. A page number past the end clamps to the last
// page rather than failing. An empty collection yields exactly one empty
// page, "1 of 1".
func Paginate(query *gorm.DB, pageSize int, pageParam string) (*Page, error) {
	return PaginateAt(query, pageSize, ParsePage(pageParam))
}

// PaginateAt is Paginate with the page number already parsed.
func PaginateAt(query *gorm.DB, pageSize, number int) (*Page, error) {
	totalPages, total, err := PageCount(query, pageSize)
	if err != nil {
		return nil, err
	}

	if number < 1 {
		number = 1
	}
	if number > totalPages {
		number = totalPages
	}

	var posts []models.Post
	offset := (number - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&posts).Error; err != nil {
		return nil, err
	}

	return &Page{
		Posts:      posts,
		Number:     number,
		TotalPages: totalPages,
		TotalCount: total,
		HasNext:    number < totalPages,
		HasPrev:    number > 1,
	}, nil
}
