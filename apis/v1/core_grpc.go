package v1

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "grantcore.v1.Core"

const (
	Core_CreateDocument_FullMethodName     = "/grantcore.v1.Core/CreateDocument"
	Core_GetDocument_FullMethodName        = "/grantcore.v1.Core/GetDocument"
	Core_ListDocuments_FullMethodName      = "/grantcore.v1.Core/ListDocuments"
	Core_UpdateDocument_FullMethodName     = "/grantcore.v1.Core/UpdateDocument"
	Core_TransitionDocument_FullMethodName = "/grantcore.v1.Core/TransitionDocument"
	Core_DeleteDocument_FullMethodName     = "/grantcore.v1.Core/DeleteDocument"
	Core_GetVersion_FullMethodName         = "/grantcore.v1.Core/GetVersion"
	Core_ListVersions_FullMethodName       = "/grantcore.v1.Core/ListVersions"
	Core_DocumentStatistics_FullMethodName = "/grantcore.v1.Core/DocumentStatistics"
	Core_DuplicateDocument_FullMethodName  = "/grantcore.v1.Core/DuplicateDocument"
	Core_IngestEntry_FullMethodName        = "/grantcore.v1.Core/IngestEntry"
	Core_GetEntry_FullMethodName           = "/grantcore.v1.Core/GetEntry"
	Core_RefreshCitations_FullMethodName   = "/grantcore.v1.Core/RefreshCitations"
	Core_RetractEntry_FullMethodName       = "/grantcore.v1.Core/RetractEntry"
	Core_Search_FullMethodName             = "/grantcore.v1.Core/Search"
	Core_Recommend_FullMethodName          = "/grantcore.v1.Core/Recommend"
	Core_IndexStats_FullMethodName         = "/grantcore.v1.Core/IndexStats"
	Core_Link_FullMethodName               = "/grantcore.v1.Core/Link"
	Core_Unlink_FullMethodName             = "/grantcore.v1.Core/Unlink"
	Core_TopReferences_FullMethodName      = "/grantcore.v1.Core/TopReferences"
	Core_Trends_FullMethodName             = "/grantcore.v1.Core/Trends"
)

// CoreServer is the server API for the grantcore.v1.Core service.
type CoreServer interface {
	CreateDocument(context.Context, *CreateDocumentRequest) (*CreateDocumentResponse, error)
	GetDocument(context.Context, *GetDocumentRequest) (*GetDocumentResponse, error)
	ListDocuments(context.Context, *ListDocumentsRequest) (*ListDocumentsResponse, error)
	UpdateDocument(context.Context, *UpdateDocumentRequest) (*UpdateDocumentResponse, error)
	TransitionDocument(context.Context, *TransitionDocumentRequest) (*TransitionDocumentResponse, error)
	DeleteDocument(context.Context, *DeleteDocumentRequest) (*DeleteDocumentResponse, error)
	GetVersion(context.Context, *GetVersionRequest) (*GetVersionResponse, error)
	ListVersions(context.Context, *ListVersionsRequest) (*ListVersionsResponse, error)
	DocumentStatistics(context.Context, *DocumentStatisticsRequest) (*DocumentStatisticsResponse, error)
	DuplicateDocument(context.Context, *DuplicateDocumentRequest) (*DuplicateDocumentResponse, error)
	IngestEntry(context.Context, *IngestEntryRequest) (*IngestEntryResponse, error)
	GetEntry(context.Context, *GetEntryRequest) (*GetEntryResponse, error)
	RefreshCitations(context.Context, *RefreshCitationsRequest) (*RefreshCitationsResponse, error)
	RetractEntry(context.Context, *RetractEntryRequest) (*RetractEntryResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	Recommend(context.Context, *RecommendRequest) (*SearchResponse, error)
	IndexStats(context.Context, *IndexStatsRequest) (*IndexStatsResponse, error)
	Link(context.Context, *LinkRequest) (*LinkResponse, error)
	Unlink(context.Context, *UnlinkRequest) (*UnlinkResponse, error)
	TopReferences(context.Context, *TopReferencesRequest) (*TopReferencesResponse, error)
	Trends(context.Context, *TrendsRequest) (*TrendsResponse, error)
}

// unary builds the method descriptor of a unary rpc.
func unary[Req, Resp any](name, fullMethod string, call func(CoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CoreServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Core_ServiceDesc is the grpc.ServiceDesc for the grantcore.v1.Core service.
var Core_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateDocument", Core_CreateDocument_FullMethodName, CoreServer.CreateDocument),
		unary("GetDocument", Core_GetDocument_FullMethodName, CoreServer.GetDocument),
		unary("ListDocuments", Core_ListDocuments_FullMethodName, CoreServer.ListDocuments),
		unary("UpdateDocument", Core_UpdateDocument_FullMethodName, CoreServer.UpdateDocument),
		unary("TransitionDocument", Core_TransitionDocument_FullMethodName, CoreServer.TransitionDocument),
		unary("DeleteDocument", Core_DeleteDocument_FullMethodName, CoreServer.DeleteDocument),
		unary("GetVersion", Core_GetVersion_FullMethodName, CoreServer.GetVersion),
		unary("ListVersions", Core_ListVersions_FullMethodName, CoreServer.ListVersions),
		unary("DocumentStatistics", Core_DocumentStatistics_FullMethodName, CoreServer.DocumentStatistics),
		unary("DuplicateDocument", Core_DuplicateDocument_FullMethodName, CoreServer.DuplicateDocument),
		unary("IngestEntry", Core_IngestEntry_FullMethodName, CoreServer.IngestEntry),
		unary("GetEntry", Core_GetEntry_FullMethodName, CoreServer.GetEntry),
		unary("RefreshCitations", Core_RefreshCitations_FullMethodName, CoreServer.RefreshCitations),
		unary("RetractEntry", Core_RetractEntry_FullMethodName, CoreServer.RetractEntry),
		unary("Search", Core_Search_FullMethodName, CoreServer.Search),
		unary("Recommend", Core_Recommend_FullMethodName, CoreServer.Recommend),
		unary("IndexStats", Core_IndexStats_FullMethodName, CoreServer.IndexStats),
		unary("Link", Core_Link_FullMethodName, CoreServer.Link),
		unary("Unlink", Core_Unlink_FullMethodName, CoreServer.Unlink),
		unary("TopReferences", Core_TopReferences_FullMethodName, CoreServer.TopReferences),
		unary("Trends", Core_Trends_FullMethodName, CoreServer.Trends),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "grantcore/v1/core.json",
}

func RegisterCoreServer(s grpc.ServiceRegistrar, srv CoreServer) {
	s.RegisterService(&Core_ServiceDesc, srv)
}

// CoreClient is the client API for the grantcore.v1.Core service.
type CoreClient interface {
	CreateDocument(ctx context.Context, in *CreateDocumentRequest, opts ...grpc.CallOption) (*CreateDocumentResponse, error)
	GetDocument(ctx context.Context, in *GetDocumentRequest, opts ...grpc.CallOption) (*GetDocumentResponse, error)
	ListDocuments(ctx context.Context, in *ListDocumentsRequest, opts ...grpc.CallOption) (*ListDocumentsResponse, error)
	UpdateDocument(ctx context.Context, in *UpdateDocumentRequest, opts ...grpc.CallOption) (*UpdateDocumentResponse, error)
	TransitionDocument(ctx context.Context, in *TransitionDocumentRequest, opts ...grpc.CallOption) (*TransitionDocumentResponse, error)
	DeleteDocument(ctx context.Context, in *DeleteDocumentRequest, opts ...grpc.CallOption) (*DeleteDocumentResponse, error)
	GetVersion(ctx context.Context, in *GetVersionRequest, opts ...grpc.CallOption) (*GetVersionResponse, error)
	ListVersions(ctx context.Context, in *ListVersionsRequest, opts ...grpc.CallOption) (*ListVersionsResponse, error)
	DocumentStatistics(ctx context.Context, in *DocumentStatisticsRequest, opts ...grpc.CallOption) (*DocumentStatisticsResponse, error)
	DuplicateDocument(ctx context.Context, in *DuplicateDocumentRequest, opts ...grpc.CallOption) (*DuplicateDocumentResponse, error)
	IngestEntry(ctx context.Context, in *IngestEntryRequest, opts ...grpc.CallOption) (*IngestEntryResponse, error)
	GetEntry(ctx context.Context, in *GetEntryRequest, opts ...grpc.CallOption) (*GetEntryResponse, error)
	RefreshCitations(ctx context.Context, in *RefreshCitationsRequest, opts ...grpc.CallOption) (*RefreshCitationsResponse, error)
	RetractEntry(ctx context.Context, in *RetractEntryRequest, opts ...grpc.CallOption) (*RetractEntryResponse, error)
	Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error)
	Recommend(ctx context.Context, in *RecommendRequest, opts ...grpc.CallOption) (*SearchResponse, error)
	IndexStats(ctx context.Context, in *IndexStatsRequest, opts ...grpc.CallOption) (*IndexStatsResponse, error)
	Link(ctx context.Context, in *LinkRequest, opts ...grpc.CallOption) (*LinkResponse, error)
	Unlink(ctx context.Context, in *UnlinkRequest, opts ...grpc.CallOption) (*UnlinkResponse, error)
	TopReferences(ctx context.Context, in *TopReferencesRequest, opts ...grpc.CallOption) (*TopReferencesResponse, error)
	Trends(ctx context.Context, in *TrendsRequest, opts ...grpc.CallOption) (*TrendsResponse, error)
}

type coreClient struct {
	cc grpc.ClientConnInterface
}

func NewCoreClient(cc grpc.ClientConnInterface) CoreClient {
	return &coreClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coreClient) CreateDocument(ctx context.Context, in *CreateDocumentRequest, opts ...grpc.CallOption) (*CreateDocumentResponse, error) {
	return invoke[CreateDocumentResponse](ctx, c.cc, Core_CreateDocument_FullMethodName, in, opts)
}

func (c *coreClient) GetDocument(ctx context.Context, in *GetDocumentRequest, opts ...grpc.CallOption) (*GetDocumentResponse, error) {
	return invoke[GetDocumentResponse](ctx, c.cc, Core_GetDocument_FullMethodName, in, opts)
}

func (c *coreClient) ListDocuments(ctx context.Context, in *ListDocumentsRequest, opts ...grpc.CallOption) (*ListDocumentsResponse, error) {
	return invoke[ListDocumentsResponse](ctx, c.cc, Core_ListDocuments_FullMethodName, in, opts)
}

func (c *coreClient) UpdateDocument(ctx context.Context, in *UpdateDocumentRequest, opts ...grpc.CallOption) (*UpdateDocumentResponse, error) {
	return invoke[UpdateDocumentResponse](ctx, c.cc, Core_UpdateDocument_FullMethodName, in, opts)
}

func (c *coreClient) TransitionDocument(ctx context.Context, in *TransitionDocumentRequest, opts ...grpc.CallOption) (*TransitionDocumentResponse, error) {
	return invoke[TransitionDocumentResponse](ctx, c.cc, Core_TransitionDocument_FullMethodName, in, opts)
}

func (c *coreClient) DeleteDocument(ctx context.Context, in *DeleteDocumentRequest, opts ...grpc.CallOption) (*DeleteDocumentResponse, error) {
	return invoke[DeleteDocumentResponse](ctx, c.cc, Core_DeleteDocument_FullMethodName, in, opts)
}

func (c *coreClient) GetVersion(ctx context.Context, in *GetVersionRequest, opts ...grpc.CallOption) (*GetVersionResponse, error) {
	return invoke[GetVersionResponse](ctx, c.cc, Core_GetVersion_FullMethodName, in, opts)
}

func (c *coreClient) ListVersions(ctx context.Context, in *ListVersionsRequest, opts ...grpc.CallOption) (*ListVersionsResponse, error) {
	return invoke[ListVersionsResponse](ctx, c.cc, Core_ListVersions_FullMethodName, in, opts)
}

func (c *coreClient) DocumentStatistics(ctx context.Context, in *DocumentStatisticsRequest, opts ...grpc.CallOption) (*DocumentStatisticsResponse, error) {
	return invoke[DocumentStatisticsResponse](ctx, c.cc, Core_DocumentStatistics_FullMethodName, in, opts)
}

func (c *coreClient) DuplicateDocument(ctx context.Context, in *DuplicateDocumentRequest, opts ...grpc.CallOption) (*DuplicateDocumentResponse, error) {
	return invoke[DuplicateDocumentResponse](ctx, c.cc, Core_DuplicateDocument_FullMethodName, in, opts)
}

func (c *coreClient) IngestEntry(ctx context.Context, in *IngestEntryRequest, opts ...grpc.CallOption) (*IngestEntryResponse, error) {
	return invoke[IngestEntryResponse](ctx, c.cc, Core_IngestEntry_FullMethodName, in, opts)
}

func (c *coreClient) GetEntry(ctx context.Context, in *GetEntryRequest, opts ...grpc.CallOption) (*GetEntryResponse, error) {
	return invoke[GetEntryResponse](ctx, c.cc, Core_GetEntry_FullMethodName, in, opts)
}

func (c *coreClient) RefreshCitations(ctx context.Context, in *RefreshCitationsRequest, opts ...grpc.CallOption) (*RefreshCitationsResponse, error) {
	return invoke[RefreshCitationsResponse](ctx, c.cc, Core_RefreshCitations_FullMethodName, in, opts)
}

func (c *coreClient) RetractEntry(ctx context.Context, in *RetractEntryRequest, opts ...grpc.CallOption) (*RetractEntryResponse, error) {
	return invoke[RetractEntryResponse](ctx, c.cc, Core_RetractEntry_FullMethodName, in, opts)
}

func (c *coreClient) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c.cc, Core_Search_FullMethodName, in, opts)
}

func (c *coreClient) Recommend(ctx context.Context, in *RecommendRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c.cc, Core_Recommend_FullMethodName, in, opts)
}

func (c *coreClient) IndexStats(ctx context.Context, in *IndexStatsRequest, opts ...grpc.CallOption) (*IndexStatsResponse, error) {
	return invoke[IndexStatsResponse](ctx, c.cc, Core_IndexStats_FullMethodName, in, opts)
}

func (c *coreClient) Link(ctx context.Context, in *LinkRequest, opts ...grpc.CallOption) (*LinkResponse, error) {
	return invoke[LinkResponse](ctx, c.cc, Core_Link_FullMethodName, in, opts)
}

func (c *coreClient) Unlink(ctx context.Context, in *UnlinkRequest, opts ...grpc.CallOption) (*UnlinkResponse, error) {
	return invoke[UnlinkResponse](ctx, c.cc, Core_Unlink_FullMethodName, in, opts)
}

func (c *coreClient) TopReferences(ctx context.Context, in *TopReferencesRequest, opts ...grpc.CallOption) (*TopReferencesResponse, error) {
	return invoke[TopReferencesResponse](ctx, c.cc, Core_TopReferences_FullMethodName, in, opts)
}

func (c *coreClient) Trends(ctx context.Context, in *TrendsRequest, opts ...grpc.CallOption) (*TrendsResponse, error) {
	return invoke[TrendsResponse](ctx, c.cc, Core_Trends_FullMethodName, in, opts)
}
