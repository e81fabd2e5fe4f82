package v1

import "time"

// Document is the head record of a proposal.
type Document struct {
	Id            string     `json:"id"`
	HeadVersionId string     `json:"head_version_id"`
	HeadSequence  int64      `json:"head_sequence"`
	OwnerId       string     `json:"owner_id"`
	State         string     `json:"state"`
	Title         string     `json:"title,omitempty"`
	ResearchField string     `json:"research_field,omitempty"`
	FundingAgency string     `json:"funding_agency,omitempty"`
	Keywords      []string   `json:"keywords,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Version is an immutable snapshot of a proposal.
type Version struct {
	Id              string            `json:"id"`
	DocumentId      string            `json:"document_id"`
	Sequence        int64             `json:"sequence"`
	ParentVersionId string            `json:"parent_version_id,omitempty"`
	Fingerprint     string            `json:"fingerprint"`
	CreatedBy       string            `json:"created_by,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	Sections        map[string]string `json:"sections,omitempty"`
}

type CreateDocumentRequest struct {
	OwnerId       string            `json:"owner_id"`
	Title         string            `json:"title,omitempty"`
	ResearchField string            `json:"research_field,omitempty"`
	FundingAgency string            `json:"funding_agency,omitempty"`
	Keywords      []string          `json:"keywords,omitempty"`
	Sections      map[string]string `json:"sections,omitempty"`
	CreatedBy     string            `json:"created_by,omitempty"`
}

type CreateDocumentResponse struct {
	Document *Document `json:"document"`
}

type GetDocumentRequest struct {
	Id string `json:"id"`
}

type GetDocumentResponse struct {
	Document *Document `json:"document"`
	// Sections of the head version.
	Sections map[string]string `json:"sections,omitempty"`
}

type ListDocumentsRequest struct {
	OwnerId string `json:"owner_id"`
	State   string `json:"state,omitempty"`
	// Query matches the title or the research field.
	Query   string `json:"query,omitempty"`
	OrderBy string `json:"order_by,omitempty"`
	Desc    bool   `json:"desc,omitempty"`
	Offset  int    `json:"offset,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type ListDocumentsResponse struct {
	Documents []*Document `json:"documents"`
	// Total counts every document matching the filters.
	Total int64 `json:"total"`
}

type DocumentStatisticsRequest struct {
	OwnerId string `json:"owner_id"`
}

type DocumentStatisticsResponse struct {
	Total   int64            `json:"total"`
	ByState map[string]int64 `json:"by_state"`
}

type DuplicateDocumentRequest struct {
	Id        string `json:"id"`
	Title     string `json:"title,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

type DuplicateDocumentResponse struct {
	Document *Document `json:"document"`
}

type UpdateDocumentRequest struct {
	Id                string            `json:"id"`
	ExpectedVersionId string            `json:"expected_version_id"`
	Sections          map[string]string `json:"sections"`
	CreatedBy         string            `json:"created_by,omitempty"`
}

type UpdateDocumentResponse struct {
	Version *Version `json:"version"`
}

type TransitionDocumentRequest struct {
	Id                string `json:"id"`
	ExpectedVersionId string `json:"expected_version_id"`
	State             string `json:"state"`
}

type TransitionDocumentResponse struct {
	Document *Document `json:"document"`
}

type DeleteDocumentRequest struct {
	Id string `json:"id"`
	// Erase purges the document with its versions and references instead
	// of soft deleting it.
	Erase bool `json:"erase,omitempty"`
}

type DeleteDocumentResponse struct {
	Document *Document `json:"document,omitempty"`
}

type GetVersionRequest struct {
	Id string `json:"id"`
}

type GetVersionResponse struct {
	Version *Version `json:"version"`
}

type ListVersionsRequest struct {
	DocumentId string `json:"document_id"`
}

type ListVersionsResponse struct {
	// Versions from the head back to sequence 1.
	Versions []*Version `json:"versions"`
}

// CorpusEntry is a literature record.
type CorpusEntry struct {
	Id            string    `json:"id"`
	Source        string    `json:"source"`
	Title         string    `json:"title"`
	PublishedAt   time.Time `json:"published_at"`
	Category      string    `json:"category,omitempty"`
	Embedding     []float32 `json:"embedding,omitempty"`
	CitationCount int64     `json:"citation_count"`
}

type IngestEntryRequest struct {
	Entry *CorpusEntry `json:"entry"`
}

type IngestEntryResponse struct{}

type GetEntryRequest struct {
	Id string `json:"id"`
}

type GetEntryResponse struct {
	Entry *CorpusEntry `json:"entry"`
}

type RefreshCitationsRequest struct {
	Id            string `json:"id"`
	CitationCount int64  `json:"citation_count"`
}

type RefreshCitationsResponse struct{}

type RetractEntryRequest struct {
	Id string `json:"id"`
}

type RetractEntryResponse struct{}

type SearchRequest struct {
	Embedding     []float32  `json:"embedding"`
	K             int        `json:"k"`
	Categories    []string   `json:"categories,omitempty"`
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	WithProposals bool       `json:"with_proposals,omitempty"`
}

type SearchHit struct {
	Entry       *CorpusEntry `json:"entry"`
	Similarity  float64      `json:"similarity"`
	DocumentIds []string     `json:"document_ids,omitempty"`
}

type SearchResponse struct {
	Hits []*SearchHit `json:"hits"`
}

type RecommendRequest struct {
	DocumentId string `json:"document_id"`
	K          int    `json:"k"`
}

type IndexStatsRequest struct{}

type IndexStatsResponse struct {
	Generation  uint64 `json:"generation"`
	Lists       int    `json:"lists"`
	Entries     int    `json:"entries"`
	MinListSize int    `json:"min_list_size"`
	MaxListSize int    `json:"max_list_size"`
	Rebuilding  bool   `json:"rebuilding"`
}

// Reference links a proposal to a corpus entry.
type Reference struct {
	DocumentId     string    `json:"document_id"`
	EntryId        string    `json:"entry_id"`
	RelevanceScore float64   `json:"relevance_score"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type LinkRequest struct {
	DocumentId     string  `json:"document_id"`
	EntryId        string  `json:"entry_id"`
	RelevanceScore float64 `json:"relevance_score"`
	CreatedBy      string  `json:"created_by,omitempty"`
}

type LinkResponse struct {
	Reference *Reference `json:"reference"`
}

type UnlinkRequest struct {
	DocumentId string `json:"document_id"`
	EntryId    string `json:"entry_id"`
}

type UnlinkResponse struct{}

type TopReferencesRequest struct {
	DocumentId string `json:"document_id"`
	K          int    `json:"k"`
}

type TopReferencesResponse struct {
	References []*Reference `json:"references"`
}

type TrendsRequest struct {
	// WindowHours overrides the configured bucket width.
	WindowHours int `json:"window_hours,omitempty"`
	Top         int `json:"top,omitempty"`
}

type Trend struct {
	Bucket       time.Time `json:"bucket"`
	Size         int       `json:"size"`
	PreviousSize int       `json:"previous_size"`
	Growth       float64   `json:"growth"`
	Categories   []string  `json:"categories,omitempty"`
	Members      []string  `json:"members"`
}

type TrendsResponse struct {
	Entries int      `json:"entries"`
	Buckets int      `json:"buckets"`
	Rising  []*Trend `json:"rising"`
}
