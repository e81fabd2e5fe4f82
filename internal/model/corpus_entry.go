package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// CorpusSource is the origin of a literature record.
type CorpusSource string

const (
	SourceArxiv           CorpusSource = "arxiv"
	SourcePubmed          CorpusSource = "pubmed"
	SourceCrossref        CorpusSource = "crossref"
	SourceSemanticScholar CorpusSource = "semantic_scholar"
	SourceManual          CorpusSource = "manual"
)

// CorpusEntry is a literature record. Only CitationCount changes after the
// entry is indexed.
type CorpusEntry struct {
	ID            string          `gorm:"primaryKey" json:"entry_id" validate:"required,max=256"`
	Source        CorpusSource    `gorm:"not null" json:"source" validate:"required,oneof=arxiv pubmed crossref semantic_scholar manual"`
	Title         string          `gorm:"not null" json:"title" validate:"required"`
	PublishedAt   time.Time       `gorm:"index:idx_corpus_entries_published_at" json:"published_at"`
	Category      string          `gorm:"index:idx_corpus_entries_category" json:"category"`
	Embedding     pgvector.Vector `gorm:"type:vector" json:"embedding"`
	CitationCount int64           `gorm:"not null;default:0" json:"citation_count" validate:"gte=0"`
	CreatedAt     time.Time       `json:"-"`
	UpdatedAt     time.Time       `json:"-"`
}

func (CorpusEntry) TableName() string {
	return "corpus_entries"
}
