package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"drawflow-backend/internal/config"
	"drawflow-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientWithoutEndpoint(t *testing.T) {
	assert.Nil(t, NewClient(config.AuditConfig{}))
}

func TestRecordPostsEvent(t *testing.T) {
	got := make(chan model.SaveEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var ev model.SaveEvent
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		got <- ev
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(config.AuditConfig{Endpoint: srv.URL, Timeout: time.Second})
	require.NotNil(t, c)

	want := model.SaveEvent{Filename: "flow", Format: "drawio", SessionID: "s1"}
	c.Record(context.Background(), want)

	select {
	case ev := <-got:
		assert.Equal(t, want, ev)
	case <-time.After(time.Second):
		t.Fatal("audit endpoint not called")
	}
}

func TestSendReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(config.AuditConfig{Endpoint: srv.URL})
	err := c.send(context.Background(), model.SaveEvent{Filename: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	// Record swallows the same failure
	c.Record(context.Background(), model.SaveEvent{Filename: "x"})

	unreachable := NewClient(config.AuditConfig{Endpoint: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond})
	assert.Error(t, unreachable.send(context.Background(), model.SaveEvent{}))
}
