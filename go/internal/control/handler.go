package control

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified name of the host control service
const ServiceName = "courtside.control.v1.MatchControlService"

const (
	CreateMatchProcedure     = "/" + ServiceName + "/CreateMatch"
	ResumeMatchProcedure     = "/" + ServiceName + "/ResumeMatch"
	ExecuteProcedure         = "/" + ServiceName + "/Execute"
	GetMatchProcedure        = "/" + ServiceName + "/GetMatch"
	ListLiveMatchesProcedure = "/" + ServiceName + "/ListLiveMatches"
)

// MatchControlServiceHandler is implemented by Service
type MatchControlServiceHandler interface {
	CreateMatch(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error)
	ResumeMatch(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error)
	Execute(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error)
	GetMatch(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error)
	ListLiveMatches(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error)
}

// NewMatchControlServiceHandler builds the HTTP handler for the service and
// returns the path to mount it on
func NewMatchControlServiceHandler(svc MatchControlServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	createMatch := connect.NewUnaryHandler(CreateMatchProcedure, svc.CreateMatch, opts...)
	resumeMatch := connect.NewUnaryHandler(ResumeMatchProcedure, svc.ResumeMatch, opts...)
	execute := connect.NewUnaryHandler(ExecuteProcedure, svc.Execute, opts...)
	getMatch := connect.NewUnaryHandler(GetMatchProcedure, svc.GetMatch, opts...)
	listLive := connect.NewUnaryHandler(ListLiveMatchesProcedure, svc.ListLiveMatches, opts...)

	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CreateMatchProcedure:
			createMatch.ServeHTTP(w, r)
		case ResumeMatchProcedure:
			resumeMatch.ServeHTTP(w, r)
		case ExecuteProcedure:
			execute.ServeHTTP(w, r)
		case GetMatchProcedure:
			getMatch.ServeHTTP(w, r)
		case ListLiveMatchesProcedure:
			listLive.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// Client is a thin Connect client for the control service
type Client struct {
	createMatch *connect.Client[structpb.Struct, structpb.Struct]
	resumeMatch *connect.Client[structpb.Struct, structpb.Struct]
	execute     *connect.Client[structpb.Struct, structpb.Struct]
	getMatch    *connect.Client[structpb.Struct, structpb.Struct]
	listLive    *connect.Client[structpb.Struct, structpb.Struct]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	return &Client{
		createMatch: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CreateMatchProcedure, opts...),
		resumeMatch: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ResumeMatchProcedure, opts...),
		execute:     connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ExecuteProcedure, opts...),
		getMatch:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+GetMatchProcedure, opts...),
		listLive:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ListLiveMatchesProcedure, opts...),
	}
}

func (c *Client) CreateMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(ctx, c.createMatch, req)
}

func (c *Client) ResumeMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(ctx, c.resumeMatch, req)
}

func (c *Client) Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(ctx, c.execute, req)
}

func (c *Client) GetMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(ctx, c.getMatch, req)
}

func (c *Client) ListLiveMatches(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(ctx, c.listLive, req)
}

func call(ctx context.Context, client *connect.Client[structpb.Struct, structpb.Struct], req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	resp, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
