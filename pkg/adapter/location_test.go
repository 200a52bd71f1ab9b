package adapter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/model"
)

func TestIPLocator(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"ip":"203.0.113.1","city":"Lisbon","region":"Lisbon","country":"PT"}`))
	}))
	defer srv.Close()

	loc, err := adapter.NewIPLocator(adapter.WithIPLocatorURL(srv.URL), adapter.WithIPInfoToken("secret")).
		Locate(context.Background())
	gt.NoError(t, err)
	gt.V(t, loc).NotNil()
	gt.Equal(t, *loc, model.Location{City: "Lisbon", Region: "Lisbon", Country: "PT"})
	gt.Equal(t, auth, "Bearer secret")
}

func TestIPLocatorUnknownCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"10.0.0.1","bogon":true}`))
	}))
	defer srv.Close()

	loc, err := adapter.NewIPLocator(adapter.WithIPLocatorURL(srv.URL)).Locate(context.Background())
	gt.NoError(t, err)
	gt.True(t, loc == nil)
}
