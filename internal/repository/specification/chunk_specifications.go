package specification

import (
	"gorm.io/gorm"
)

// ByDocId filters chunks belonging to one document.
type ByDocId struct {
	DocId string
}

func (s ByDocId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("doc_id = ?", s.DocId)
}

// InDocumentOrder orders by the natural key, useful for stable listings.
type InDocumentOrder struct{}

func (s InDocumentOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("doc_id ASC, chunk_id ASC")
}

// Pagination limits and offsets a listing.
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}
