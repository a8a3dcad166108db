package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jjenkins/rtharvest/internal/config"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserAgent = "rtharvest-test/1.0"

func newTestClient(t *testing.T, baseURL string, retries int) *RTClient {
	t.Helper()
	c := NewRTClient(config.APIConfig{
		BaseURL:    baseURL,
		UserAgent:  testUserAgent,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	}, logger.NewNop())
	c.backoff = time.Millisecond
	return c
}

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/oigusakt_otsing/1/otsi", r.URL.Path)
		assert.Equal(t, "seadus", q.Get("dokument"))
		assert.Equal(t, "2024-01-01", q.Get("kehtiv"))
		assert.Equal(t, "2", q.Get("leht"))
		assert.Equal(t, "50", q.Get("limiit"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"oigusaktid": [
			{"globaalID": 1, "pealkiri": "Esimene", "kehtivus": {"algus": "2020-01-01"}},
			{"globaalID": true},
			{"id": "x-2", "pealkiri": "Teine"}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/oigusakt_otsing/1/otsi", 1)
	page, err := c.FetchPage(context.Background(), PageQuery{DocumentType: "seadus", AsOfDate: "2024-01-01", Page: 2, PageSize: 50})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 3, page.Received)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "1", page.Items[0].UniqueID())
	assert.Equal(t, "2020-01-01", page.Items[0].EntryIntoForceDate())
	assert.Equal(t, "x-2", page.Items[1].UniqueID())
	assert.JSONEq(t, `{"id": "x-2", "pealkiri": "Teine"}`, string(page.Items[1].Raw))
}

func TestFetchPageOmitsEmptyAsOfDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["kehtiv"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"oigusaktid": []}`))
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv.URL, 1).FetchPage(context.Background(), PageQuery{DocumentType: "seadus", Page: 1, PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Received)
}

func TestFetchPageMissingListIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"metaandmed": {}}`))
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv.URL, 1).FetchPage(context.Background(), PageQuery{Page: 1, PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Received)
}

func TestFetchPageInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 1).FetchPage(context.Background(), PageQuery{Page: 1, PageSize: 100})
	assert.ErrorContains(t, err, "failed to parse page 1 response")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("text"))
	}))
	defer srv.Close()

	body, err := newTestClient(t, srv.URL, 3).FetchDocument(context.Background(), srv.URL+"/doc")
	require.NoError(t, err)
	assert.Equal(t, "text", body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 2).FetchDocument(context.Background(), srv.URL+"/doc")
	assert.ErrorContains(t, err, "failed after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 3).FetchDocument(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchDocumentHeadersAndSuccessCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, acceptDocument, r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestClient(t, srv.URL, 1).FetchDocument(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
}

func TestFetchDocumentDecodesCharset(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        string
	}{
		{name: "windows-1252", contentType: "text/plain; charset=windows-1252", body: []byte{'p', 0xf5, 'h', 'i'}, want: "põhi"},
		{name: "iso-8859-15", contentType: "text/html; charset=ISO-8859-15", body: []byte{0xdc, 'l', 'e'}, want: "Üle"},
		{name: "utf-8 declared", contentType: "application/xml; charset=utf-8", body: []byte("Õigus"), want: "Õigus"},
		{name: "no charset is utf-8", contentType: "text/plain", body: []byte("Šahh"), want: "Šahh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write(tt.body)
			}))
			defer srv.Close()

			body, err := newTestClient(t, srv.URL, 1).FetchDocument(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, body)
		})
	}
}
