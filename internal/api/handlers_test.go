package api

import (
	"bytes"
	"context"
	"directoryhub/internal/activity"
	"directoryhub/internal/engine"
	"directoryhub/internal/models"
	"directoryhub/internal/pipeline"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
)

func testData() *models.DashboardData {
	return engine.Rollup([]models.TypeStateCount{
		{Type: "vehicle", State: "Texas", Count: 12},
		{Type: "vehicle", State: "California", Count: 9},
		{Type: "vehicle", State: "Florida", Count: 8},
		{Type: "vehicle", State: "Ohio", Count: 5},
		{Type: "vehicle", State: "Michigan", Count: 4},
		{Type: "vehicle", State: "Illinois", Count: 3},
		{Type: "vehicle", State: "Georgia", Count: 3},
		{Type: "vehicle", State: "Pennsylvania", Count: 2},
		{Type: "vehicle", State: "New York", Count: 1},
		{Type: "vehicle", State: "Tennessee", Count: 1},
		{Type: "realestate", State: "Florida", Count: 4},
		{Type: "realestate", State: "Texas", Count: 2},
	})
}

type testServer struct {
	e *echo.Echo
	h *Handler
}

// newTestServer wires the handler to a pipeline that fetches from the
// handler itself, the way the server runs by default.
func newTestServer(t *testing.T, data *models.DashboardData, upstream string) *testServer {
	t.Helper()
	e := echo.New()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	if upstream == "" {
		upstream = srv.URL
	}

	ring := activity.NewRing(activity.DefaultCapacity)
	loader := pipeline.NewLoader(pipeline.NewFetcher(upstream, time.Second), nil)
	h := NewHandler(data, pipeline.NewBoard(loader, ring, nil), ring)
	h.RegisterRoutes(e, 0)
	return &testServer{e: e, h: h}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestDataRoutesWaitForETL(t *testing.T) {
	s := newTestServer(t, nil, "")
	for _, path := range []string{"/data/state-distribution", "/data/business-types", "/api/chart-data"} {
		if rec := s.do(http.MethodGet, path, ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s before ETL: want 503, got %d", path, rec.Code)
		}
	}
	if rec := s.do(http.MethodGet, "/data/sample-state-distribution", ""); rec.Code != http.StatusOK {
		t.Errorf("sample must always be served, got %d", rec.Code)
	}

	s.h.SetData(testData())
	if rec := s.do(http.MethodGet, "/data/state-distribution", ""); rec.Code != http.StatusOK {
		t.Errorf("after ETL: want 200, got %d", rec.Code)
	}
}

func TestGetStateDistribution(t *testing.T) {
	s := newTestServer(t, testData(), "")

	rec := s.do(http.MethodGet, "/data/state-distribution/realestate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	p := decode[models.ChartPayload](t, rec)
	if !reflect.DeepEqual(p.Labels, []string{"Florida", "Texas"}) {
		t.Errorf("unexpected labels %v", p.Labels)
	}
	s0 := p.Datasets[0]
	if s0.Label != "realestate by State" || s0.BackgroundColor[0] != "rgba(30, 87, 153, 0.8)" || s0.BorderColor[1] != "rgba(125, 185, 235, 1)" {
		t.Errorf("unexpected series %+v", s0)
	}

	if rec := s.do(http.MethodGet, "/data/state-distribution/food_truck", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown type: want 404, got %d", rec.Code)
	}
}

func TestGetBusinessTypes(t *testing.T) {
	s := newTestServer(t, testData(), "")
	p := decode[models.ChartPayload](t, s.do(http.MethodGet, "/data/business-types", ""))
	if !reflect.DeepEqual(p.Labels, []string{"vehicle", "realestate"}) || p.Datasets[0].Data[0] != 48 {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestGetChartData(t *testing.T) {
	s := newTestServer(t, testData(), "")

	all := decode[models.ChartDataPayload](t, s.do(http.MethodGet, "/api/chart-data", ""))
	if all.Labels[0] != "Texas" || all.Values[0] != 14 {
		t.Errorf("unscoped series: %v %v", all.Labels, all.Values)
	}
	if _, ok := all.BusinessTypes["all"]; ok {
		t.Error("businessTypes must not repeat the unscoped series")
	}
	if got := all.BusinessTypes["realestate"]; !reflect.DeepEqual(got.Values, []float64{4, 2}) {
		t.Errorf("realestate: %+v", got)
	}

	scoped := decode[models.ChartDataPayload](t, s.do(http.MethodGet, "/api/chart-data?type=realestate", ""))
	if !reflect.DeepEqual(scoped.Labels, []string{"Florida", "Texas"}) {
		t.Errorf("scoped labels %v", scoped.Labels)
	}

	none := decode[models.ChartDataPayload](t, s.do(http.MethodGet, "/api/chart-data?type=food_truck", ""))
	if len(none.Labels) != 0 {
		t.Errorf("unknown type must be empty, got %v", none.Labels)
	}
}

func TestDashboardFlow(t *testing.T) {
	s := newTestServer(t, testData(), "")

	rec := s.do(http.MethodPost, "/dashboard/business-chart/category", `{"category":"vehicle"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("category: want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	st := decode[stateResponse](t, rec)
	if st.Tier != pipeline.TierPrimary || st.Warning != "" || st.CategoryName != "Vehicle Dealerships" {
		t.Errorf("unexpected state %+v", st)
	}
	if !st.ShowAxes || st.ShowLegend {
		t.Errorf("bar must show axes only: %+v", st)
	}
	if len(st.Options) != 3+10 {
		t.Errorf("want 13 filter options, got %d", len(st.Options))
	}

	st = decode[stateResponse](t, s.do(http.MethodPost, "/dashboard/business-chart/filter", `{"selector":"bottom5"}`))
	want := []string{"New York", "Tennessee", "Pennsylvania", "Illinois", "Georgia"}
	if !reflect.DeepEqual(st.Dataset.Labels, want) || st.Applied == nil || !*st.Applied {
		t.Errorf("bottom5: want %v got %v", want, st.Dataset.Labels)
	}

	st = decode[stateResponse](t, s.do(http.MethodPost, "/dashboard/business-chart/filter", `{"selector":"state_Texas"}`))
	if st.Applied == nil || *st.Applied || st.Filter != pipeline.FilterBottom {
		t.Errorf("lookup miss must be a no-op: %+v", st)
	}

	st = decode[stateResponse](t, s.do(http.MethodPost, "/dashboard/business-chart/type", `{"kind":"pie"}`))
	if st.Kind != pipeline.KindPie || st.ShowAxes || !st.ShowLegend {
		t.Errorf("pie must show legend only: %+v", st)
	}

	rec = s.do(http.MethodGet, "/dashboard/business-chart/export.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: want 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, pipeline.ExportFilename) {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("export is not a PNG")
	}

	entries := decode[[]models.ActivityEntry](t, s.do(http.MethodGet, "/data/recent-activity", ""))
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	wantActions := []string{
		"Downloaded business distribution chart",
		"Switched business chart to pie",
		"Filtered business chart by Vehicle Dealerships",
	}
	if !reflect.DeepEqual(actions, wantActions) {
		t.Errorf("activity: want %v got %v", wantActions, actions)
	}
}

func TestDashboardPreconditionMiss(t *testing.T) {
	s := newTestServer(t, testData(), "")
	if rec := s.do(http.MethodGet, "/dashboard/fresh/export.png", ""); rec.Code != http.StatusNoContent {
		t.Errorf("export before render: want 204, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/dashboard/fresh/filter", `{"selector":"top5"}`); rec.Code != http.StatusNoContent {
		t.Errorf("filter before render: want 204, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/dashboard/fresh/type", `{"kind":"line"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind: want 400, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/dashboard/bad.id/state", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad container: want 400, got %d", rec.Code)
	}
}

func TestDashboardPageShowsSampleWarning(t *testing.T) {
	// No ETL data yet: the primary endpoint answers 503, the sample one works.
	s := newTestServer(t, nil, "")
	rec := s.do(http.MethodGet, "/dashboard/business-chart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, pipeline.SampleWarning) {
		t.Error("page must carry the sample-data warning")
	}
	if !strings.Contains(body, `/dashboard/business-chart/chart.html`) {
		t.Error("page must embed the chart")
	}

	rec = s.do(http.MethodGet, "/dashboard/business-chart/chart.html", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "California") {
		t.Errorf("chart page: %d", rec.Code)
	}
}

func TestDashboardTerminalFailure(t *testing.T) {
	// Nothing listens on the upstream, so only embedded data is available.
	s := newTestServer(t, testData(), "http://127.0.0.1:1")

	rec := s.do(http.MethodPost, "/dashboard/c/category", `{"category":"food_truck"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
	if st := decode[stateResponse](t, rec); st.Loaded || st.Error == "" {
		t.Errorf("want error state, got %+v", st)
	}

	page := s.do(http.MethodGet, "/dashboard/c", "")
	if !strings.Contains(page.Body.String(), "Error loading chart data") {
		t.Error("page must show the inline error")
	}
	if rec := s.do(http.MethodGet, "/dashboard/c/export.png", ""); rec.Code != http.StatusNoContent {
		t.Errorf("export after failure: want 204, got %d", rec.Code)
	}
}

func TestFormPostRedirects(t *testing.T) {
	s := newTestServer(t, testData(), "")
	req := httptest.NewRequest(http.MethodPost, "/dashboard/c/category", strings.NewReader(url.Values{"category": {"realestate"}}.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/dashboard/c" {
		t.Fatalf("want redirect, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	st := decode[stateResponse](t, s.do(http.MethodGet, "/dashboard/c/state", ""))
	if st.Category != "realestate" {
		t.Errorf("form value not applied: %+v", st)
	}
}

func TestMutationRateLimit(t *testing.T) {
	e := echo.New()
	ring := activity.NewRing(0)
	h := NewHandler(testData(), pipeline.NewBoard(pipeline.NewLoader(nil, nil), ring, nil), ring)
	h.RegisterRoutes(e, 1)

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/dashboard/c/filter", strings.NewReader(`{"selector":"all"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] == http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}
}

func TestDashboardCategoriesFollowIndex(t *testing.T) {
	// testData has no apartment listings; the embedded index does.
	s := newTestServer(t, testData(), "http://127.0.0.1:1")
	if body := s.do(http.MethodGet, "/dashboard/c", "").Body.String(); strings.Contains(body, "Apartment Rentals") {
		t.Fatal("selector should list the aggregate's types before the index loads")
	}

	s.h.board.LoadIndex(context.Background())
	rec := s.do(http.MethodGet, "/dashboard/c", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`value="apartment"`, "Apartment Rentals", `value="vehicle"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}
