package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/courtside/go/internal/host"
	"github.com/mcdev12/courtside/go/internal/match"
	"github.com/mcdev12/courtside/go/internal/replicator"
	"github.com/mcdev12/courtside/go/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mem := store.NewMemoryStore()
	repl := replicator.New(mem)
	ctx, cancel := context.WithCancel(context.Background())
	go repl.Run(ctx)

	app := host.NewApp(match.NewEngine(match.DefaultRuleset(), match.DefaultTickUnit), repl, nil)
	mux := http.NewServeMux()
	path, handler := NewMatchControlServiceHandler(NewService(app))
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		app.Shutdown()
		cancel()
		_ = repl.Close()
	})
	return NewClient(srv.Client(), srv.URL)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func createRequest(t *testing.T, code string) *structpb.Struct {
	return mustStruct(t, map[string]interface{}{
		"code": code,
		"settings": map[string]interface{}{
			"gameName":              "League night",
			"periodDurationMinutes": 12,
			"shotClockSeconds":      24,
			"periodType":            "quarter",
		},
		"teamA": map[string]interface{}{
			"name": "Hawks",
			"roster": []interface{}{
				map[string]interface{}{"id": "p1", "name": "Ana", "jerseyNumber": 4},
			},
		},
		"teamB": map[string]interface{}{"name": "Owls"},
	})
}

func decodeMatch(t *testing.T, s *structpb.Struct) MatchResponse {
	t.Helper()
	var out MatchResponse
	if err := fromStruct(s, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestCreateExecuteGet(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	created, err := client.CreateMatch(ctx, createRequest(t, "CTL234"))
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	resp := decodeMatch(t, created)
	if resp.Match.Code != "CTL234" || resp.View.GameClock != "12:00" {
		t.Fatalf("unexpected create response %+v", resp.View)
	}
	if resp.Match.LastUpdate == 0 {
		t.Fatalf("lastUpdate lost in transit")
	}

	executed, err := client.Execute(ctx, mustStruct(t, map[string]interface{}{
		"code": "CTL234",
		"command": map[string]interface{}{
			"kind": "points", "team": "A", "delta": 2, "playerId": "p1",
		},
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	resp = decodeMatch(t, executed)
	if resp.View.TeamA.Score != 2 || resp.Match.TeamA.Roster[0].Points != 2 {
		t.Fatalf("points not applied: %+v", resp.View.TeamA)
	}

	got, err := client.GetMatch(ctx, mustStruct(t, map[string]interface{}{"code": "ctl234"}))
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if decodeMatch(t, got).Match.TeamA.Score != 2 {
		t.Fatalf("GetMatch returned a stale document")
	}

	live, err := client.ListLiveMatches(ctx, nil)
	if err != nil {
		t.Fatalf("ListLiveMatches: %v", err)
	}
	var list ListLiveResponse
	if err := fromStruct(live, &list); err != nil {
		t.Fatalf("decode live: %v", err)
	}
	if len(list.Matches) != 1 || list.Matches[0].Code != "CTL234" {
		t.Fatalf("unexpected live list %+v", list.Matches)
	}
}

func TestErrorCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.CreateMatch(ctx, createRequest(t, "ERR234")); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	execute := func(cmd map[string]interface{}) error {
		_, err := client.Execute(ctx, mustStruct(t, map[string]interface{}{"code": "ERR234", "command": cmd}))
		return err
	}

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{"code taken", func() error {
			_, err := client.CreateMatch(ctx, createRequest(t, "ERR234"))
			return err
		}, connect.CodeAlreadyExists},
		{"bad settings", func() error {
			req := createRequest(t, "BAD234")
			req.Fields["settings"].GetStructValue().Fields["shotClockSeconds"] = structpb.NewNumberValue(0)
			_, err := client.CreateMatch(ctx, req)
			return err
		}, connect.CodeInvalidArgument},
		{"unknown match", func() error {
			_, err := client.GetMatch(ctx, mustStruct(t, map[string]interface{}{"code": "NPE234"}))
			return err
		}, connect.CodeNotFound},
		{"invalid code", func() error {
			_, err := client.GetMatch(ctx, mustStruct(t, map[string]interface{}{"code": "nope"}))
			return err
		}, connect.CodeInvalidArgument},
		{"bad delta", func() error {
			return execute(map[string]interface{}{"kind": "points", "team": "A", "delta": 4})
		}, connect.CodeInvalidArgument},
		{"unknown player", func() error {
			return execute(map[string]interface{}{"kind": "foul", "team": "A", "delta": 1, "playerId": "ghost"})
		}, connect.CodeInvalidArgument},
		{"decision required", func() error {
			for i := 0; i < 3; i++ {
				if err := execute(map[string]interface{}{"kind": "advance_period"}); err != nil {
					return err
				}
			}
			return execute(map[string]interface{}{"kind": "advance_period"})
		}, connect.CodeFailedPrecondition},
		{"final", func() error {
			if err := execute(map[string]interface{}{"kind": "end_match"}); err != nil {
				return err
			}
			return execute(map[string]interface{}{"kind": "possession"})
		}, connect.CodeFailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := connect.CodeOf(err); got != tt.want {
				t.Fatalf("code %s, want %s (%v)", got, tt.want, err)
			}
		})
	}
}

func TestResumeLockedMatch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.CreateMatch(ctx, createRequest(t, "RSM234")); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	// already hosted here, so resuming hands back the local session
	got, err := client.ResumeMatch(ctx, mustStruct(t, map[string]interface{}{"code": "RSM234"}))
	if err != nil {
		t.Fatalf("ResumeMatch: %v", err)
	}
	if decodeMatch(t, got).Match.HostSession == "" {
		t.Fatalf("resumed match has no host session")
	}
}
