package publish

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type davRecorder struct {
	mu     sync.Mutex
	status int
	method string
	path   string
	user   string
	pass   string
	agent  string
	body   []byte
}

func (d *davRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.method = r.Method
	d.path = r.URL.Path
	d.user, d.pass, _ = r.BasicAuth()
	d.agent = r.Header.Get("User-Agent")
	d.body, _ = io.ReadAll(r.Body)
	if d.status != 0 {
		w.WriteHeader(d.status)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func TestPublish(t *testing.T) {
	rec := &davRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	p, err := NewPublisher(testLogger(), srv.URL+"/dav/calendars/", "me", "secret", "gdqcal-test")
	require.NoError(t, err)

	data := []byte("\xEF\xBB\xBFBEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	require.NoError(t, p.Publish(context.Background(), "2024-AGDQ.ics", data))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/dav/calendars/2024-AGDQ.ics", rec.path)
	assert.Equal(t, "me", rec.user)
	assert.Equal(t, "secret", rec.pass)
	assert.Equal(t, "gdqcal-test", rec.agent)
	assert.Equal(t, data, rec.body)
}

func TestPublish_ServerError(t *testing.T) {
	srv := httptest.NewServer(&davRecorder{status: http.StatusForbidden})
	defer srv.Close()

	p, err := NewPublisher(testLogger(), srv.URL+"/dav/", "me", "wrong", "gdqcal-test")
	require.NoError(t, err)

	err = p.Publish(context.Background(), "2024-AGDQ.ics", []byte("x"))
	assert.Error(t, err)
}
