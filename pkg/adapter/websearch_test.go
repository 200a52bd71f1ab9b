package adapter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/adapter"
)

func TestWebSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"AbstractText": "Lisbon is the capital of Portugal.",
			"RelatedTopics": [
				{"Text": "Lisbon Cathedral"},
				{"Topics": [{"Text": "Belem Tower"}, {"Text": "Alfama"}]}
			]
		}`))
	}))
	defer srv.Close()

	ws := adapter.NewWebSearch(adapter.WithWebSearchURL(srv.URL), adapter.WithMaxSnippets(3))
	result, err := ws.Search(context.Background(), "lisbon sights")
	gt.NoError(t, err)
	gt.Equal(t, gotQuery, "lisbon sights")
	gt.Equal(t, result, "Lisbon is the capital of Portugal.\nLisbon Cathedral\nBelem Tower")
}

func TestWebSearchNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"AbstractText": "", "RelatedTopics": []}`))
	}))
	defer srv.Close()

	result, err := adapter.NewWebSearch(adapter.WithWebSearchURL(srv.URL)).Search(context.Background(), "zzz")
	gt.NoError(t, err)
	gt.Equal(t, result, "")
}

func TestWebSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := adapter.NewWebSearch(adapter.WithWebSearchURL(srv.URL)).Search(context.Background(), "q")
	gt.Error(t, err)
}
