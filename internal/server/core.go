package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	v1 "github.com/emrgen/grantcore/apis/v1"
	"github.com/emrgen/grantcore/internal/model"
	"github.com/emrgen/grantcore/internal/service"
	"github.com/emrgen/grantcore/internal/trend"
)

var _ v1.CoreServer = (*Core)(nil)

// NewCore creates the grpc handlers over the services.
func NewCore(documents *service.DocumentService, references *service.ReferenceService, corpus *service.CorpusService, aggregator trend.Aggregator) *Core {
	return &Core{
		documents:  documents,
		references: references,
		corpus:     corpus,
		aggregator: aggregator,
	}
}

// Core implements the grantcore.v1.Core service. Handlers return service
// errors; the error interceptor turns them into status codes.
type Core struct {
	documents  *service.DocumentService
	references *service.ReferenceService
	corpus     *service.CorpusService
	aggregator trend.Aggregator
}

func (c *Core) CreateDocument(ctx context.Context, req *v1.CreateDocumentRequest) (*v1.CreateDocumentResponse, error) {
	doc, err := c.documents.Create(ctx, service.CreateParams{
		OwnerID:       req.OwnerId,
		Title:         req.Title,
		ResearchField: req.ResearchField,
		FundingAgency: req.FundingAgency,
		Keywords:      req.Keywords,
		Sections:      req.Sections,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	return &v1.CreateDocumentResponse{Document: documentToProto(doc)}, nil
}

func (c *Core) GetDocument(ctx context.Context, req *v1.GetDocumentRequest) (*v1.GetDocumentResponse, error) {
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, err
	}
	doc, err := c.documents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := c.documents.Sections(ctx, doc.HeadVersionID)
	if err != nil {
		return nil, err
	}
	return &v1.GetDocumentResponse{Document: documentToProto(doc), Sections: sections}, nil
}

func (c *Core) ListDocuments(ctx context.Context, req *v1.ListDocumentsRequest) (*v1.ListDocumentsResponse, error) {
	docs, total, err := c.documents.List(ctx, service.ListParams{
		OwnerID: req.OwnerId,
		State:   model.LifecycleState(req.State),
		Query:   req.Query,
		OrderBy: req.OrderBy,
		Desc:    req.Desc,
		Offset:  req.Offset,
		Limit:   req.Limit,
	})
	if err != nil {
		return nil, err
	}
	res := &v1.ListDocumentsResponse{Documents: make([]*v1.Document, len(docs)), Total: total}
	for i, doc := range docs {
		res.Documents[i] = documentToProto(doc)
	}
	return res, nil
}

func (c *Core) DocumentStatistics(ctx context.Context, req *v1.DocumentStatisticsRequest) (*v1.DocumentStatisticsResponse, error) {
	stats, err := c.documents.Statistics(ctx, req.OwnerId)
	if err != nil {
		return nil, err
	}
	res := &v1.DocumentStatisticsResponse{Total: stats.Total, ByState: make(map[string]int64, len(stats.ByState))}
	for state, n := range stats.ByState {
		res.ByState[string(state)] = n
	}
	return res, nil
}

func (c *Core) DuplicateDocument(ctx context.Context, req *v1.DuplicateDocumentRequest) (*v1.DuplicateDocumentResponse, error) {
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, err
	}
	doc, err := c.documents.Duplicate(ctx, id, req.Title, req.CreatedBy)
	if err != nil {
		return nil, err
	}
	return &v1.DuplicateDocumentResponse{Document: documentToProto(doc)}, nil
}

func (c *Core) UpdateDocument(ctx context.Context, req *v1.UpdateDocumentRequest) (*v1.UpdateDocumentResponse, error) {
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, err
	}
	expected, err := parseID("expected_version_id", req.ExpectedVersionId)
	if err != nil {
		return nil, err
	}
	version, err := c.documents.Update(ctx, id, expected, req.Sections, req.CreatedBy)
	if err != nil {
		return nil, err
	}
	return &v1.UpdateDocumentResponse{Version: versionToProto(version, nil)}, nil
}

func (c *Core) TransitionDocument(ctx context.Context, req *v1.TransitionDocumentRequest) (*v1.TransitionDocumentResponse, error) {
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, err
	}
	expected, err := parseID("expected_version_id", req.ExpectedVersionId)
	if err != nil {
		return nil, err
	}
	doc, err := c.documents.Transition(ctx, id, expected, model.LifecycleState(req.State))
	if err != nil {
		return nil, err
	}
	return &v1.TransitionDocumentResponse{Document: documentToProto(doc)}, nil
}

func (c *Core) DeleteDocument(ctx context.Context, req *v1.DeleteDocumentRequest) (*v1.DeleteDocumentResponse, error) {
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, err
	}
	if req.Erase {
		if err := c.documents.Erase(ctx, id); err != nil {
			return nil, err
		}
		return &v1.DeleteDocumentResponse{}, nil
	}
	doc, err := c.documents.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	return &v1.DeleteDocumentResponse{Document: documentToProto(doc)}, nil
}

func (c *Core) GetVersion(ctx context.Context, req *v1.GetVersionRequest) (*v1.GetVersionResponse, error) {
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, err
	}
	version, err := c.documents.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := c.documents.Sections(ctx, id)
	if err != nil {
		return nil, err
	}
	return &v1.GetVersionResponse{Version: versionToProto(version, sections)}, nil
}

func (c *Core) ListVersions(ctx context.Context, req *v1.ListVersionsRequest) (*v1.ListVersionsResponse, error) {
	id, err := parseID("document_id", req.DocumentId)
	if err != nil {
		return nil, err
	}
	versions, err := c.documents.Chain(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &v1.ListVersionsResponse{Versions: make([]*v1.Version, len(versions))}
	for i, version := range versions {
		res.Versions[i] = versionToProto(version, nil)
	}
	return res, nil
}

func (c *Core) IngestEntry(ctx context.Context, req *v1.IngestEntryRequest) (*v1.IngestEntryResponse, error) {
	err := c.corpus.Ingest(ctx, entryFromProto(req.Entry))
	if err != nil {
		return nil, err
	}
	return &v1.IngestEntryResponse{}, nil
}

func (c *Core) GetEntry(ctx context.Context, req *v1.GetEntryRequest) (*v1.GetEntryResponse, error) {
	entry, err := c.corpus.Get(ctx, req.Id)
	if err != nil {
		return nil, err
	}
	return &v1.GetEntryResponse{Entry: entryToProto(entry, true)}, nil
}

func (c *Core) RefreshCitations(ctx context.Context, req *v1.RefreshCitationsRequest) (*v1.RefreshCitationsResponse, error) {
	if err := c.corpus.RefreshCitations(ctx, req.Id, req.CitationCount); err != nil {
		return nil, err
	}
	return &v1.RefreshCitationsResponse{}, nil
}

func (c *Core) RetractEntry(ctx context.Context, req *v1.RetractEntryRequest) (*v1.RetractEntryResponse, error) {
	if err := c.corpus.Retract(ctx, req.Id); err != nil {
		return nil, err
	}
	return &v1.RetractEntryResponse{}, nil
}

func (c *Core) Search(ctx context.Context, req *v1.SearchRequest) (*v1.SearchResponse, error) {
	query := service.SearchRequest{
		Embedding:     req.Embedding,
		K:             req.K,
		Categories:    req.Categories,
		WithProposals: req.WithProposals,
	}
	if req.From != nil {
		query.From = *req.From
	}
	if req.To != nil {
		query.To = *req.To
	}

	results, err := c.corpus.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return searchToProto(results), nil
}

func (c *Core) Recommend(ctx context.Context, req *v1.RecommendRequest) (*v1.SearchResponse, error) {
	id, err := parseID("document_id", req.DocumentId)
	if err != nil {
		return nil, err
	}
	results, err := c.corpus.Recommend(ctx, id, req.K)
	if err != nil {
		return nil, err
	}
	return searchToProto(results), nil
}

func (c *Core) IndexStats(_ context.Context, _ *v1.IndexStatsRequest) (*v1.IndexStatsResponse, error) {
	stats := c.corpus.IndexStats()
	return &v1.IndexStatsResponse{
		Generation:  stats.Generation,
		Lists:       stats.Lists,
		Entries:     stats.Entries,
		MinListSize: stats.MinListSize,
		MaxListSize: stats.MaxListSize,
		Rebuilding:  stats.Rebuilding,
	}, nil
}

func (c *Core) Link(ctx context.Context, req *v1.LinkRequest) (*v1.LinkResponse, error) {
	id, err := parseID("document_id", req.DocumentId)
	if err != nil {
		return nil, err
	}
	ref, err := c.references.Link(ctx, id, req.EntryId, req.RelevanceScore, model.ReferenceOrigin(req.CreatedBy))
	if err != nil {
		return nil, err
	}
	return &v1.LinkResponse{Reference: referenceToProto(ref)}, nil
}

func (c *Core) Unlink(ctx context.Context, req *v1.UnlinkRequest) (*v1.UnlinkResponse, error) {
	id, err := parseID("document_id", req.DocumentId)
	if err != nil {
		return nil, err
	}
	if err := c.references.Unlink(ctx, id, req.EntryId); err != nil {
		return nil, err
	}
	return &v1.UnlinkResponse{}, nil
}

func (c *Core) TopReferences(ctx context.Context, req *v1.TopReferencesRequest) (*v1.TopReferencesResponse, error) {
	id, err := parseID("document_id", req.DocumentId)
	if err != nil {
		return nil, err
	}
	refs, err := c.references.TopReferences(ctx, id, req.K)
	if err != nil {
		return nil, err
	}
	res := &v1.TopReferencesResponse{References: make([]*v1.Reference, len(refs))}
	for i, ref := range refs {
		res.References[i] = referenceToProto(ref)
	}
	return res, nil
}

// Trends aggregates the current index snapshot on demand.
func (c *Core) Trends(ctx context.Context, req *v1.TrendsRequest) (*v1.TrendsResponse, error) {
	aggregator := c.aggregator
	if req.WindowHours > 0 {
		aggregator.Window = time.Duration(req.WindowHours) * time.Hour
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := aggregator.Run(c.corpus.Snapshot())
	rising := report.Rising
	if req.Top > 0 && len(rising) > req.Top {
		rising = rising[:req.Top]
	}

	res := &v1.TrendsResponse{
		Entries: report.Entries,
		Buckets: len(report.Buckets),
		Rising:  make([]*v1.Trend, len(rising)),
	}
	for i, t := range rising {
		res.Rising[i] = &v1.Trend{
			Bucket:       t.Bucket,
			Size:         t.Size,
			PreviousSize: t.PreviousSize,
			Growth:       t.Growth,
			Categories:   t.Categories,
			Members:      t.Members,
		}
	}
	return res, nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %v", service.ErrInvalidArgument, field, err)
	}
	return id, nil
}

func documentToProto(doc *model.Document) *v1.Document {
	return &v1.Document{
		Id:            doc.ID.String(),
		HeadVersionId: doc.HeadVersionID.String(),
		HeadSequence:  doc.HeadSequence,
		OwnerId:       doc.OwnerID,
		State:         string(doc.State),
		Title:         doc.Title,
		ResearchField: doc.ResearchField,
		FundingAgency: doc.FundingAgency,
		Keywords:      doc.KeywordList(),
		SubmittedAt:   doc.SubmittedAt,
		DeletedAt:     doc.SoftDeletedAt,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func versionToProto(version *model.Version, sections map[string]string) *v1.Version {
	res := &v1.Version{
		Id:          version.ID.String(),
		DocumentId:  version.DocumentID.String(),
		Sequence:    version.Sequence,
		Fingerprint: version.Fingerprint,
		CreatedBy:   version.CreatedBy,
		CreatedAt:   version.CreatedAt,
		Sections:    sections,
	}
	if version.ParentVersionID != nil {
		res.ParentVersionId = version.ParentVersionID.String()
	}
	return res
}

func entryFromProto(entry *v1.CorpusEntry) *model.CorpusEntry {
	return &model.CorpusEntry{
		ID:            entry.Id,
		Source:        model.CorpusSource(entry.Source),
		Title:         entry.Title,
		PublishedAt:   entry.PublishedAt.UTC(),
		Category:      entry.Category,
		Embedding:     pgvector.NewVector(entry.Embedding),
		CitationCount: entry.CitationCount,
	}
}

func entryToProto(entry *model.CorpusEntry, embedding bool) *v1.CorpusEntry {
	res := &v1.CorpusEntry{
		Id:            entry.ID,
		Source:        string(entry.Source),
		Title:         entry.Title,
		PublishedAt:   entry.PublishedAt,
		Category:      entry.Category,
		CitationCount: entry.CitationCount,
	}
	if embedding {
		res.Embedding = entry.Embedding.Slice()
	}
	return res
}

func searchToProto(results []service.SearchResult) *v1.SearchResponse {
	res := &v1.SearchResponse{Hits: make([]*v1.SearchHit, len(results))}
	for i, result := range results {
		hit := &v1.SearchHit{
			Entry:      entryToProto(result.Entry, false),
			Similarity: result.Similarity,
		}
		for _, id := range result.Documents {
			hit.DocumentIds = append(hit.DocumentIds, id.String())
		}
		res.Hits[i] = hit
	}
	return res
}

func referenceToProto(ref *model.Reference) *v1.Reference {
	return &v1.Reference{
		DocumentId:     ref.DocumentID.String(),
		EntryId:        ref.EntryID,
		RelevanceScore: ref.RelevanceScore,
		CreatedBy:      string(ref.CreatedBy),
		CreatedAt:      ref.CreatedAt,
		UpdatedAt:      ref.UpdatedAt,
	}
}
