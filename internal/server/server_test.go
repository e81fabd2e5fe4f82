package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	v1 "github.com/emrgen/grantcore/apis/v1"
	"github.com/emrgen/grantcore/internal/config"
	"github.com/emrgen/grantcore/internal/service"
	"github.com/emrgen/grantcore/internal/store"
	"github.com/emrgen/grantcore/internal/tester"
)

const dim = 4

func testConfig() *config.Config {
	return &config.Config{
		Compression:         "zstd",
		VectorDimension:     dim,
		IndexLists:          2,
		IndexSearchLists:    2,
		IndexSeed:           1,
		RebuildFactor:       4,
		TrendWindow:         24 * time.Hour,
		TrendMatchThreshold: 0.8,
		DecayHalfLife:       time.Hour,
	}
}

func newTestClient(t *testing.T) (v1.CoreClient, *grpc.ClientConn) {
	t.Helper()
	tester.Quiet(t)

	app, err := newApp(context.Background(), testConfig(), store.NewMemoryStore())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	listener := bufconn.Listen(1 << 20)
	grpcServer, _ := NewGrpcServer(app)
	go func() {
		_ = grpcServer.Serve(listener)
	}()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return v1.NewCoreClient(conn), conn
}

func TestCore_Documents(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	created, err := client.CreateDocument(ctx, &v1.CreateDocumentRequest{
		OwnerId:  "ada",
		Title:    "Quantum sensing",
		Keywords: []string{"quantum", "sensing"},
		Sections: map[string]string{"summary": "v1"},
	})
	require.NoError(t, err)
	doc := created.Document
	assert.Equal(t, "draft", doc.State)
	assert.Equal(t, int64(1), doc.HeadSequence)
	assert.Equal(t, []string{"quantum", "sensing"}, doc.Keywords)
	v1ID := doc.HeadVersionId

	updated, err := client.UpdateDocument(ctx, &v1.UpdateDocumentRequest{
		Id:                doc.Id,
		ExpectedVersionId: v1ID,
		Sections:          map[string]string{"summary": "v2"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version.Sequence)
	assert.Equal(t, v1ID, updated.Version.ParentVersionId)

	// a stale write reports the head it lost against
	_, err = client.UpdateDocument(ctx, &v1.UpdateDocumentRequest{
		Id:                doc.Id,
		ExpectedVersionId: v1ID,
		Sections:          map[string]string{"summary": "v2b"},
	})
	assert.Equal(t, codes.Aborted, status.Code(err))
	current, ok := v1.CurrentVersion(err)
	require.True(t, ok)
	assert.Equal(t, updated.Version.Id, current)

	got, err := client.GetDocument(ctx, &v1.GetDocumentRequest{Id: doc.Id})
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Sections["summary"])

	versions, err := client.ListVersions(ctx, &v1.ListVersionsRequest{DocumentId: doc.Id})
	require.NoError(t, err)
	require.Len(t, versions.Versions, 2)
	assert.Equal(t, int64(2), versions.Versions[0].Sequence)
	assert.Equal(t, int64(1), versions.Versions[1].Sequence)

	first, err := client.GetVersion(ctx, &v1.GetVersionRequest{Id: v1ID})
	require.NoError(t, err)
	assert.Equal(t, "v1", first.Version.Sections["summary"])

	head := updated.Version.Id
	for _, state := range []string{"generating", "reviewing", "completed", "submitted"} {
		res, err := client.TransitionDocument(ctx, &v1.TransitionDocumentRequest{
			Id:                doc.Id,
			ExpectedVersionId: head,
			State:             state,
		})
		require.NoError(t, err, state)
		assert.Equal(t, state, res.Document.State)
	}

	_, err = client.UpdateDocument(ctx, &v1.UpdateDocumentRequest{
		Id:                doc.Id,
		ExpectedVersionId: head,
		Sections:          map[string]string{"summary": "late"},
	})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.DeleteDocument(ctx, &v1.DeleteDocumentRequest{Id: doc.Id})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.DeleteDocument(ctx, &v1.DeleteDocumentRequest{Id: doc.Id, Erase: true})
	require.NoError(t, err)
	_, err = client.GetDocument(ctx, &v1.GetDocumentRequest{Id: doc.Id})
	assert.Equal(t, codes.NotFound, status.Code(err))

	listed, err := client.ListDocuments(ctx, &v1.ListDocumentsRequest{OwnerId: "ada"})
	require.NoError(t, err)
	assert.Empty(t, listed.Documents)
}

func TestCore_ListStatisticsDuplicate(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		created, err := client.CreateDocument(ctx, &v1.CreateDocumentRequest{
			OwnerId:       "ada",
			Title:         fmt.Sprintf("Tidal energy %d", i),
			ResearchField: "Oceanography",
			Sections:      map[string]string{"summary": "s"},
		})
		require.NoError(t, err)
		ids = append(ids, created.Document.Id)
	}
	first, err := client.GetDocument(ctx, &v1.GetDocumentRequest{Id: ids[0]})
	require.NoError(t, err)
	_, err = client.TransitionDocument(ctx, &v1.TransitionDocumentRequest{
		Id:                ids[0],
		ExpectedVersionId: first.Document.HeadVersionId,
		State:             "generating",
	})
	require.NoError(t, err)

	listed, err := client.ListDocuments(ctx, &v1.ListDocumentsRequest{OwnerId: "ada", OrderBy: "title", Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), listed.Total)
	require.Len(t, listed.Documents, 1)
	assert.Equal(t, "Tidal energy 1", listed.Documents[0].Title)

	listed, err = client.ListDocuments(ctx, &v1.ListDocumentsRequest{OwnerId: "ada", State: "generating"})
	require.NoError(t, err)
	require.Len(t, listed.Documents, 1)
	assert.Equal(t, ids[0], listed.Documents[0].Id)

	stats, err := client.DocumentStatistics(ctx, &v1.DocumentStatisticsRequest{OwnerId: "ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByState["draft"])
	assert.Equal(t, int64(1), stats.ByState["generating"])
	assert.Zero(t, stats.ByState["submitted"])

	dup, err := client.DuplicateDocument(ctx, &v1.DuplicateDocumentRequest{Id: ids[0], CreatedBy: "grace"})
	require.NoError(t, err)
	assert.Equal(t, "Tidal energy 0 (copy)", dup.Document.Title)
	assert.Equal(t, "draft", dup.Document.State)
	got, err := client.GetDocument(ctx, &v1.GetDocumentRequest{Id: dup.Document.Id})
	require.NoError(t, err)
	assert.Equal(t, "s", got.Sections["summary"])

	_, err = client.ListDocuments(ctx, &v1.ListDocumentsRequest{OwnerId: "ada", Offset: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = client.ListDocuments(ctx, &v1.ListDocumentsRequest{OwnerId: "ada", OrderBy: "owner_id"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = client.DocumentStatistics(ctx, &v1.DocumentStatisticsRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = client.DuplicateDocument(ctx, &v1.DuplicateDocumentRequest{Id: uuid.NewString()})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestCore_InvalidRequests(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.CreateDocument(ctx, &v1.CreateDocumentRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetDocument(ctx, &v1.GetDocumentRequest{Id: "not-a-uuid"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetDocument(ctx, &v1.GetDocumentRequest{Id: uuid.NewString()})
	assert.Equal(t, codes.NotFound, status.Code(err))

	created, err := client.CreateDocument(ctx, &v1.CreateDocumentRequest{OwnerId: "ada"})
	require.NoError(t, err)
	_, err = client.TransitionDocument(ctx, &v1.TransitionDocumentRequest{
		Id:                created.Document.Id,
		ExpectedVersionId: created.Document.HeadVersionId,
		State:             "submitted",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Search(ctx, &v1.SearchRequest{Embedding: []float32{1, 0}, K: 1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Search(ctx, &v1.SearchRequest{Embedding: []float32{1, 0, 0, 0}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCore_Corpus(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 8; i++ {
		embedding := []float32{0.1, 0.1, 0.1, 0.1}
		embedding[i%dim] = float32(1 + i)
		_, err := client.IngestEntry(ctx, &v1.IngestEntryRequest{Entry: &v1.CorpusEntry{
			Id:          fmt.Sprintf("arxiv:%d", i),
			Source:      "arxiv",
			Title:       fmt.Sprintf("paper %d", i),
			PublishedAt: at.Add(time.Duration(i) * time.Hour),
			Category:    "cs.LG",
			Embedding:   embedding,
		}})
		require.NoError(t, err)
	}

	_, err := client.IngestEntry(ctx, &v1.IngestEntryRequest{Entry: &v1.CorpusEntry{
		Id: "bad", Source: "arxiv", Title: "bad", Embedding: []float32{0, 0, 0, 0},
	}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	doc, err := client.CreateDocument(ctx, &v1.CreateDocumentRequest{OwnerId: "ada"})
	require.NoError(t, err)
	_, err = client.Link(ctx, &v1.LinkRequest{DocumentId: doc.Document.Id, EntryId: "arxiv:0", RelevanceScore: 0.9})
	require.NoError(t, err)
	_, err = client.Link(ctx, &v1.LinkRequest{DocumentId: doc.Document.Id, EntryId: "arxiv:0", RelevanceScore: 1.5})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	found, err := client.Search(ctx, &v1.SearchRequest{
		Embedding:     []float32{1, 0.1, 0.1, 0.1},
		K:             3,
		WithProposals: true,
	})
	require.NoError(t, err)
	require.Len(t, found.Hits, 3)
	assert.Equal(t, "arxiv:0", found.Hits[0].Entry.Id)
	assert.Equal(t, []string{doc.Document.Id}, found.Hits[0].DocumentIds)
	assert.GreaterOrEqual(t, found.Hits[0].Similarity, found.Hits[1].Similarity)

	recommended, err := client.Recommend(ctx, &v1.RecommendRequest{DocumentId: doc.Document.Id, K: 2})
	require.NoError(t, err)
	require.NotEmpty(t, recommended.Hits)
	for _, hit := range recommended.Hits {
		assert.NotEqual(t, "arxiv:0", hit.Entry.Id)
	}

	refs, err := client.TopReferences(ctx, &v1.TopReferencesRequest{DocumentId: doc.Document.Id, K: 5})
	require.NoError(t, err)
	require.Len(t, refs.References, 1)
	assert.Equal(t, "user", refs.References[0].CreatedBy)

	_, err = client.RefreshCitations(ctx, &v1.RefreshCitationsRequest{Id: "arxiv:1", CitationCount: 12})
	require.NoError(t, err)
	entry, err := client.GetEntry(ctx, &v1.GetEntryRequest{Id: "arxiv:1"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), entry.Entry.CitationCount)
	assert.Len(t, entry.Entry.Embedding, dim)

	stats, err := client.IndexStats(ctx, &v1.IndexStatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Entries)

	trends, err := client.Trends(ctx, &v1.TrendsRequest{Top: 1})
	require.NoError(t, err)
	assert.Equal(t, 8, trends.Entries)
	assert.Len(t, trends.Rising, 1)

	_, err = client.RetractEntry(ctx, &v1.RetractEntryRequest{Id: "arxiv:0"})
	require.NoError(t, err)
	refs, err = client.TopReferences(ctx, &v1.TopReferencesRequest{DocumentId: doc.Document.Id, K: 5})
	require.NoError(t, err)
	assert.Empty(t, refs.References)

	_, err = client.Unlink(ctx, &v1.UnlinkRequest{DocumentId: doc.Document.Id, EntryId: "arxiv:0"})
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	_, conn := newTestClient(t)

	res, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: v1.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.Status)
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{service.ErrVersionConflict, codes.Aborted},
		{service.ErrDocumentSealed, codes.FailedPrecondition},
		{service.ErrDocumentDeleted, codes.FailedPrecondition},
		{fmt.Errorf("wrapped: %w", service.ErrInvalidTransition), codes.InvalidArgument},
		{service.ErrInvalidArgument, codes.InvalidArgument},
		{service.ErrDimensionMismatch, codes.InvalidArgument},
		{service.ErrDegenerateVector, codes.InvalidArgument},
		{service.ErrEncoding, codes.InvalidArgument},
		{service.ErrNotFound, codes.NotFound},
		{service.ErrStorageUnavailable, codes.Unavailable},
		{service.ErrCorruptChain, codes.DataLoss},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, status.Code(toStatus(tc.err)), tc.err.Error())
	}
	assert.NoError(t, toStatus(nil))

	head := uuid.New()
	err := toStatus(&service.VersionConflictError{DocumentID: uuid.New(), Expected: uuid.New(), Current: head})
	current, ok := v1.CurrentVersion(err)
	require.True(t, ok)
	assert.Equal(t, head.String(), current)
}
