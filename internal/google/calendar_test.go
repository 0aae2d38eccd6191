package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gdqcal/internal/document"
	"gdqcal/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCalendarAPI is a minimal in-memory stand-in for the Calendar v3 REST API.
type fakeCalendarAPI struct {
	mu       sync.Mutex
	requests []string
	inserted []*calendar.Event
	updated  []*calendar.Event
	acls     []*calendar.AclRule
	failIDs  map[string]bool
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/users/me/calendarList":
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]any{
				"items":         []map[string]string{{"id": "cal-a", "summary": "Other"}},
				"nextPageToken": "p2",
			})
			return
		}
		writeJSON(w, map[string]any{
			"items": []map[string]string{{"id": "cal-b", "summary": "AGDQ 2024 Schedule"}},
		})

	case r.Method == http.MethodPost && r.URL.Path == "/calendars":
		var cal calendar.Calendar
		_ = json.NewDecoder(r.Body).Decode(&cal)
		cal.Id = "new-cal"
		writeJSON(w, cal)

	case r.Method == http.MethodPost && r.URL.Path == "/calendars/new-cal/acl":
		var rule calendar.AclRule
		_ = json.NewDecoder(r.Body).Decode(&rule)
		f.acls = append(f.acls, &rule)
		writeJSON(w, rule)

	case r.Method == http.MethodGet && r.URL.Path == "/calendars/cal-b/events":
		if r.URL.Query().Get("showDeleted") != "true" {
			http.Error(w, `{"error":{"code":400,"message":"showDeleted expected"}}`, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]any{
				"items":         []map[string]string{{"id": "e1"}, {"id": "e2"}},
				"nextPageToken": "p2",
			})
			return
		}
		writeJSON(w, map[string]any{"items": []map[string]string{{"id": "e3"}}})

	case r.Method == http.MethodPost && r.URL.Path == "/calendars/cal-b/events":
		var ev calendar.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		if f.failIDs[ev.Id] {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"error":{"code":409,"message":"The requested identifier already exists."}}`)
			return
		}
		f.inserted = append(f.inserted, &ev)
		writeJSON(w, ev)

	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/calendars/cal-b/events/"):
		var ev calendar.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		f.updated = append(f.updated, &ev)
		writeJSON(w, ev)

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"not found"}}`)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, api *fakeCalendarAPI) *CalendarClient {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewClientWithOptions(context.Background(), testLogger(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return c
}

func TestListCalendars_AllPages(t *testing.T) {
	c := newTestClient(t, &fakeCalendarAPI{})

	cals, err := c.ListCalendars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CalendarInfo{
		{ID: "cal-a", Summary: "Other"},
		{ID: "cal-b", Summary: "AGDQ 2024 Schedule"},
	}, cals)
}

func TestCreateCalendarAndACL(t *testing.T) {
	api := &fakeCalendarAPI{}
	c := newTestClient(t, api)
	ctx := context.Background()

	id, err := c.CreateCalendar(ctx, "AGDQ 2024 Schedule", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "new-cal", id)

	require.NoError(t, c.SetDefaultReadACL(ctx, id))
	require.Len(t, api.acls, 1)
	assert.Equal(t, "reader", api.acls[0].Role)
	assert.Equal(t, "default", api.acls[0].Scope.Type)
}

func TestListEventIDs_AllPages(t *testing.T) {
	c := newTestClient(t, &fakeCalendarAPI{})

	ids, err := c.ListEventIDs(context.Background(), "cal-b")
	require.NoError(t, err)
	assert.Equal(t, reconcile.NewIDSet("e1", "e2", "e3"), ids)
}

func TestListEventIDs_Error(t *testing.T) {
	c := newTestClient(t, &fakeCalendarAPI{})

	_, err := c.ListEventIDs(context.Background(), "missing")
	assert.Error(t, err)
}

func TestExecuteBatch(t *testing.T) {
	api := &fakeCalendarAPI{failIDs: map[string]bool{"bad": true}}
	c := newTestClient(t, api)

	payload := func(id string) document.Payload {
		return document.Payload{
			ID:          id,
			Summary:     "Hollow Knight with Alice",
			Description: "Runner: Alice",
			Start:       "2024-01-01T10:00:00-05:00",
			End:         "2024-01-01T11:00:00-05:00",
		}
	}
	ops := []reconcile.Op{
		{Kind: reconcile.Create, Payload: payload("new1")},
		{Kind: reconcile.Create, Payload: payload("bad")},
		{Kind: reconcile.Update, Payload: payload("old1")},
	}

	results := c.ExecuteBatch(context.Background(), "cal-b", ops)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err, "a failing op is reported")
	assert.NoError(t, results[2].Err, "later ops still run")
	for i := range ops {
		assert.Equal(t, ops[i], results[i].Op)
	}

	require.Len(t, api.inserted, 1)
	ev := api.inserted[0]
	assert.Equal(t, "new1", ev.Id)
	assert.Equal(t, "confirmed", ev.Status)
	assert.Equal(t, "transparent", ev.Transparency)
	assert.Equal(t, "public", ev.Visibility)
	assert.Equal(t, "2024-01-01T10:00:00-05:00", ev.Start.DateTime)

	require.Len(t, api.updated, 1)
	assert.Equal(t, "old1", api.updated[0].Id)
	assert.Contains(t, api.requests, "PUT /calendars/cal-b/events/old1")
}
