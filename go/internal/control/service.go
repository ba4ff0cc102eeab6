package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/courtside/go/internal/host"
	"github.com/mcdev12/courtside/go/internal/match"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/viewer"
)

// MatchApp defines what the service layer needs from the host application
type MatchApp interface {
	CreateMatch(ctx context.Context, req host.NewMatchRequest) (*models.MatchDocument, error)
	Resume(ctx context.Context, code string) (*models.MatchDocument, error)
	Execute(ctx context.Context, code string, cmd match.Command) (*models.MatchDocument, error)
	Get(ctx context.Context, code string) (*models.MatchDocument, error)
	ListLive(ctx context.Context) ([]models.MatchDocument, error)
	Rules() match.Ruleset
}

// CreateMatchRequest is the JSON shape carried in the CreateMatch struct
type CreateMatchRequest struct {
	Code     string               `json:"code,omitempty"`
	Settings models.MatchSettings `json:"settings"`
	TeamA    models.Team          `json:"teamA"`
	TeamB    models.Team          `json:"teamB"`
}

type ExecuteRequest struct {
	Code    string               `json:"code"`
	Command match.CommandPayload `json:"command"`
}

type CodeRequest struct {
	Code string `json:"code"`
}

// MatchResponse carries the stored document and its rendered view
type MatchResponse struct {
	Match *models.MatchDocument `json:"match"`
	View  viewer.View           `json:"view"`
}

type ListLiveResponse struct {
	Matches []models.MatchDocument `json:"matches"`
}

// Service implements the MatchControlService Connect handlers
type Service struct {
	app MatchApp
}

func NewService(app MatchApp) *Service {
	return &Service{app: app}
}

var _ MatchControlServiceHandler = (*Service)(nil)

// CreateMatch opens a new match and starts hosting it
func (s *Service) CreateMatch(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in CreateMatchRequest
	if err := fromStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	doc, err := s.app.CreateMatch(ctx, host.NewMatchRequest{
		Code:     in.Code,
		Settings: in.Settings,
		TeamA:    in.TeamA,
		TeamB:    in.TeamB,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.matchResponse(doc)
}

// ResumeMatch takes over hosting of an existing match
func (s *Service) ResumeMatch(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in CodeRequest
	if err := fromStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	doc, err := s.app.Resume(ctx, in.Code)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.matchResponse(doc)
}

// Execute applies one operator command
func (s *Service) Execute(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in ExecuteRequest
	if err := fromStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	cmd, err := match.ParseCommand(in.Command)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	doc, err := s.app.Execute(ctx, in.Code, cmd)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.matchResponse(doc)
}

// GetMatch returns the current document of a match
func (s *Service) GetMatch(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in CodeRequest
	if err := fromStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	doc, err := s.app.Get(ctx, in.Code)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.matchResponse(doc)
}

// ListLiveMatches returns the live-games feed
func (s *Service) ListLiveMatches(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	docs, err := s.app.ListLive(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	out, err := toStruct(ListLiveResponse{Matches: docs})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func (s *Service) matchResponse(doc *models.MatchDocument) (*connect.Response[structpb.Struct], error) {
	out, err := toStruct(MatchResponse{Match: doc, View: viewer.Project(doc, s.app.Rules())})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// toConnectError maps host and engine errors onto Connect codes
func toConnectError(err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, host.ErrInvalidCode),
		errors.Is(err, models.ErrInvalidSettings),
		errors.Is(err, models.ErrInvalidRoster),
		errors.Is(err, match.ErrInvalidCommand),
		errors.Is(err, match.ErrInvalidDelta),
		errors.Is(err, match.ErrPlayerNotFound):
		code = connect.CodeInvalidArgument
	case errors.Is(err, host.ErrCodeTaken):
		code = connect.CodeAlreadyExists
	case errors.Is(err, host.ErrMatchNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, host.ErrMatchLocked),
		errors.Is(err, host.ErrFenced),
		errors.Is(err, host.ErrSessionClosed),
		errors.Is(err, match.ErrMatchFinal),
		errors.Is(err, match.ErrDecisionRequired):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	default:
		log.Error().Err(err).Msg("control request failed")
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}

func fromStruct(s *structpb.Struct, v interface{}) error {
	if s == nil {
		return nil
	}
	raw, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
