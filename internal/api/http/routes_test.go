package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-forecast-qa/internal/qa"
	"github.com/i474232898/weather-forecast-qa/internal/store"
	"github.com/i474232898/weather-forecast-qa/internal/weather"
)

type stubResolver struct{}

func (stubResolver) Name() string { return "stub" }

func (stubResolver) Resolve(ctx context.Context, query string) (weather.Coordinates, error) {
	if query == "Huntington Beach, CA" {
		return weather.Coordinates{Latitude: 33.6595, Longitude: -117.9988}, nil
	}
	return weather.Coordinates{}, weather.ErrLocationNotFound
}

type stubFetcher struct {
	err error
}

func (stubFetcher) Name() string { return "stub" }

func (f stubFetcher) Fetch(ctx context.Context, coords weather.Coordinates) (weather.RawForecastDataset, error) {
	if f.err != nil {
		return weather.RawForecastDataset{}, f.err
	}
	return weather.RawForecastDataset{
		Metadata: weather.Metadata{Office: "LOX", GridX: 149, GridY: 41},
		TimeZone: "America/Los_Angeles",
		DailyPeriods: []weather.Period{
			{Number: 1, Name: "Today", StartTime: "2025-01-17T06:00:00-08:00"},
			{
				Number: 2, Name: "Saturday", StartTime: "2025-01-18T06:00:00-08:00",
				Temperature: floatPtr(68), TemperatureUnit: "F", WindSpeed: "5 mph", WindDirection: "W",
				ShortForecast: "Sunny", DetailedForecast: "Sunny, with a high near 68.",
			},
		},
		HourlyPeriods: []weather.Period{
			{Number: 1, StartTime: "2025-01-17T10:00:00-08:00"},
			{Number: 2, StartTime: "2025-01-25T10:00:00-08:00"},
		},
		GridSeries: map[string]json.RawMessage{
			"temperature": json.RawMessage(`{"uom":"wmoUnit:degC","values":[]}`),
			"visibility":  json.RawMessage(`{"uom":"wmoUnit:m","values":[]}`),
		},
		FetchStatus: map[string]string{"forecast": "ok"},
	}, nil
}

func floatPtr(v float64) *float64 {
	return &v
}

type stubGenerator struct {
	chunks []string
	err    error
	prompt qa.Prompt
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) GenerateStream(ctx context.Context, p qa.Prompt, onChunk func(string) error) (string, error) {
	g.prompt = p
	if g.err != nil {
		return "", g.err
	}
	var sb strings.Builder
	for _, c := range g.chunks {
		sb.WriteString(c)
		if err := onChunk(c); err != nil {
			return sb.String(), err
		}
	}
	return sb.String(), nil
}

type testServer struct {
	app      *fiber.App
	sessions *store.MemoryStore
	gen      *stubGenerator
}

func newTestServer(t *testing.T, fetcher stubFetcher) *testServer {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	sessions := store.NewMemoryStore(10, time.Hour)
	gen := &stubGenerator{chunks: []string{"Expect ", "sunshine."}}
	now := time.Date(2025, 1, 17, 18, 0, 0, 0, time.UTC)

	RegisterRoutes(app, Deps{
		Weather:  weather.NewService(stubResolver{}, fetcher, nil, nil),
		Sessions: sessions,
		QA:       qa.NewOrchestrator(gen, nil),
		Now:      func() time.Time { return now },
	})
	return &testServer{app: app, sessions: sessions, gen: gen}
}

func (s *testServer) do(t *testing.T, method, target, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func (s *testServer) createSession(t *testing.T) sessionResponse {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/v1/sessions", `{"location":"Huntington Beach, CA"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return out
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t, stubFetcher{})

	sess := s.createSession(t)
	if sess.ID == "" || sess.Office != "LOX" || sess.GridX != 149 {
		t.Errorf("unexpected session: %+v", sess)
	}
	if sess.TimeZone != "America/Los_Angeles" {
		t.Errorf("unexpected time zone %q", sess.TimeZone)
	}
	if len(sess.History) != 0 {
		t.Errorf("new session should have no history, got %+v", sess.History)
	}
}

func TestCreateSessionErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		fetcher stubFetcher
		status  int
	}{
		{"malformed body", `{`, stubFetcher{}, http.StatusBadRequest},
		{"blank location", `{"location":"   "}`, stubFetcher{}, http.StatusBadRequest},
		{"unknown location", `{"location":"Atlantis"}`, stubFetcher{}, http.StatusNotFound},
		{"upstream failure", `{"location":"33.6595,-117.9988"}`, stubFetcher{err: errors.New("boom")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.fetcher)
			resp := s.do(t, http.MethodPost, "/api/v1/sessions", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, resp.StatusCode)
			}
			if s.sessions.Len() != 0 {
				t.Error("no session should be created on error")
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	s := newTestServer(t, stubFetcher{})
	sess := s.createSession(t)

	if resp := s.do(t, http.MethodGet, "/api/v1/sessions/"+sess.ID, ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if resp := s.do(t, http.MethodDelete, "/api/v1/sessions/"+sess.ID, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	if resp := s.do(t, http.MethodGet, "/api/v1/sessions/"+sess.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
	if resp := s.do(t, http.MethodDelete, "/api/v1/sessions/"+sess.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestReducedForecast(t *testing.T) {
	s := newTestServer(t, stubFetcher{})
	sess := s.createSession(t)

	resp := s.do(t, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/forecast", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var out struct {
		Daily  []json.RawMessage          `json:"daily"`
		Hourly []weather.Period           `json:"hourly"`
		Grid   map[string]json.RawMessage `json:"grid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode forecast: %v", err)
	}
	if len(out.Daily) != 2 {
		t.Errorf("expected 2 daily periods, got %d", len(out.Daily))
	}
	if len(out.Hourly) != 1 || out.Hourly[0].Number != 1 {
		t.Errorf("expected only the in-window hourly period, got %+v", out.Hourly)
	}
	if _, ok := out.Grid["temperature"]; !ok || len(out.Grid) != 1 {
		t.Errorf("expected only allow-listed grid variables, got %v", out.Grid)
	}
}

func TestSummary(t *testing.T) {
	s := newTestServer(t, stubFetcher{})
	sess := s.createSession(t)

	resp := s.do(t, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/summary", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if !strings.HasPrefix(out["summary"], "Saturday will bring sunny.") {
		t.Errorf("unexpected summary %q", out["summary"])
	}
}

func TestAskStreamsAnswerAndRecordsTurns(t *testing.T) {
	s := newTestServer(t, stubFetcher{})
	sess := s.createSession(t)

	resp := s.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/questions", `{"question":"  Will it rain tomorrow?  "}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "Expect sunshine." {
		t.Errorf("unexpected answer %q", body)
	}

	if !strings.Contains(s.gen.prompt.System, "Friday January 17, 2025") {
		t.Errorf("system prompt should use the forecast-local date: %q", s.gen.prompt.System)
	}
	if s.gen.prompt.Question != "Will it rain tomorrow?" {
		t.Errorf("unexpected question %q", s.gen.prompt.Question)
	}

	got, err := s.sessions.Get(sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []qa.Turn{
		{Role: qa.RoleUser, Content: "Will it rain tomorrow?"},
		{Role: qa.RoleAssistant, Content: "Expect sunshine."},
	}
	if len(got.History) != len(want) || got.History[0] != want[0] || got.History[1] != want[1] {
		t.Errorf("unexpected history %+v", got.History)
	}
}

func TestAskFailureKeepsHistory(t *testing.T) {
	s := newTestServer(t, stubFetcher{})
	s.gen.err = errors.New("quota exceeded")
	sess := s.createSession(t)

	resp := s.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/questions", `{"question":"Wind?"}`)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "[answer generation failed]") {
		t.Errorf("expected failure marker, got %q", body)
	}

	got, _ := s.sessions.Get(sess.ID)
	if len(got.History) != 0 {
		t.Errorf("failed answers should not be recorded, got %+v", got.History)
	}
}

func TestAskValidation(t *testing.T) {
	s := newTestServer(t, stubFetcher{})
	sess := s.createSession(t)

	if resp := s.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/questions", `{"question":" "}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	if resp := s.do(t, http.MethodPost, "/api/v1/sessions/missing/questions", `{"question":"Wind?"}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}
