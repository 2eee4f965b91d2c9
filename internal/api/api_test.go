package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inkwell-cms/inkwell/internal/metrics"
	"github.com/inkwell-cms/inkwell/internal/resource"
	"github.com/inkwell-cms/inkwell/internal/store"
)

type testServer struct {
	api     *API
	gateway *store.Gateway
	logs    *observer.ObservedLogs
}

func newTestServer(t *testing.T, configure ...func(*Options)) *testServer {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	gateway := store.NewGateway(store.NewMemoryDriver())
	opts := Options{
		Registry: resource.MustNewRegistry(resource.DefaultDefinitions()),
		Store:    gateway,
		Logger:   zap.New(core),
	}
	for _, fn := range configure {
		fn(&opts)
	}
	return &testServer{api: New(opts), gateway: gateway, logs: logs}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}
	rec := httptest.NewRecorder()
	s.api.ServeHTTP(rec, req)
	return rec
}

// seed inserts a record directly through the gateway
func (s *testServer) seed(t *testing.T, collection string, record store.Record) string {
	t.Helper()
	coll, err := s.gateway.Collection(context.Background(), collection)
	require.NoError(t, err)
	inserted, err := coll.Insert(context.Background(), record)
	require.NoError(t, err)
	return inserted.ID()
}

type body map[string]any

func decode(t *testing.T, rec *httptest.ResponseRecorder) body {
	t.Helper()
	var out body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errs, ok := decode(t, rec)["errors"].([]any)
	require.True(t, ok, rec.Body.String())
	require.Len(t, errs, 1)
	return errs[0].(map[string]any)["detail"].(string)
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	data, ok := decode(t, rec)["data"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return data
}

func TestCreate_AssignsID(t *testing.T) {
	s := newTestServer(t)
	tagID := s.seed(t, "tags", store.Record{"name": "go"})

	rec := s.do(t, http.MethodPost, "/api/stories", `{
		"data": {
			"type": "stories",
			"attributes": {"title": "Hello", "body": "World"},
			"relationships": {"tags": {"data": [{"type": "tags", "id": "`+tagID+`"}]}}
		}
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.api+json", rec.Header().Get("Content-Type"))

	data := dataOf(t, rec)
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "stories", data["type"])
	assert.Equal(t, map[string]any{"title": "Hello", "body": "World"}, data["attributes"])
	assert.Equal(t, "http://example.com/api/stories/"+id, data["links"].(map[string]any)["self"])

	rels := data["relationships"].(map[string]any)
	assert.Equal(t, []any{map[string]any{"type": "tags", "id": tagID}}, rels["tags"].(map[string]any)["data"])
	assert.Nil(t, rels["author"].(map[string]any)["data"])

	show := s.do(t, http.MethodGet, "/api/stories/"+id, "")
	require.Equal(t, http.StatusOK, show.Code)
	assert.Equal(t, "Hello", dataOf(t, show)["attributes"].(map[string]any)["title"])
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		detail string
	}{
		{
			name:   "client id",
			path:   "/api/stories",
			body:   `{"data": {"type": "stories", "id": "abc", "attributes": {"title": "x"}}}`,
			status: http.StatusBadRequest,
			detail: MsgClientID,
		},
		{
			name:   "missing data",
			path:   "/api/stories",
			body:   `{"meta": {}}`,
			status: http.StatusBadRequest,
			detail: "No data member was found in the request.",
		},
		{
			name:   "missing type",
			path:   "/api/stories",
			body:   `{"data": {"attributes": {"title": "x"}}}`,
			status: http.StatusBadRequest,
			detail: "All data payloads must contain the `type` member.",
		},
		{
			name:   "unknown type",
			path:   "/api/widgets",
			body:   `{"data": {"type": "widgets"}}`,
			status: http.StatusNotFound,
			detail: "No API resource exists for type: widgets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.detail, errorDetail(t, rec))
		})
	}
}

func TestCreate_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/stories", `{"data": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate_BodyLimits(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.MaxBodyBytes = 64 })

	big := `{"data": {"type": "stories", "attributes": {"title": "` + strings.Repeat("x", 128) + `"}}}`
	rec := s.do(t, http.MethodPost, "/api/stories", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, MsgBodyTooLarge, errorDetail(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	s.api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestList(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/tags", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["data"])

	first := s.seed(t, "tags", store.Record{"name": "first"})
	second := s.seed(t, "tags", store.Record{"name": "second"})

	rec = s.do(t, http.MethodGet, "/api/tags", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, first, data[0].(map[string]any)["id"])
	assert.Equal(t, second, data[1].(map[string]any)["id"])
	assert.Equal(t, "http://example.com/api/tags", decode(t, rec)["links"].(map[string]any)["self"])
}

func TestShow_IsIdempotent(t *testing.T) {
	s := newTestServer(t)
	id := s.seed(t, "people", store.Record{"name": "Ada", "email": nil})

	first := s.do(t, http.MethodGet, "/api/people/"+id, "")
	second := s.do(t, http.MethodGet, "/api/people/"+id, "")

	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, map[string]any{"name": "Ada"}, dataOf(t, first)["attributes"])
}

func TestShow_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/stories/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No record found for ID: missing", errorDetail(t, rec))

	rec = s.do(t, http.MethodGet, "/api/widgets/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No API resource exists for type: widgets", errorDetail(t, rec))
}

func TestUpdate_MergesAttributes(t *testing.T) {
	s := newTestServer(t)
	authorID := s.seed(t, "people", store.Record{"name": "Grace"})
	id := s.seed(t, "stories", store.Record{"title": "Old", "body": "Keep me"})

	rec := s.do(t, http.MethodPatch, "/api/stories/"+id, `{
		"data": {
			"type": "stories",
			"id": "`+id+`",
			"attributes": {"title": "New"},
			"relationships": {"author": {"data": {"type": "people", "id": "`+authorID+`"}}}
		}
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	assert.Equal(t, map[string]any{"title": "New", "body": "Keep me"}, data["attributes"])
	author := data["relationships"].(map[string]any)["author"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "people", "id": authorID}, author["data"])
}

func TestUpdate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		detail string
	}{
		{
			name:   "missing id",
			path:   "/api/stories/1",
			body:   `{"data": {"type": "stories", "attributes": {"title": "x"}}}`,
			status: http.StatusBadRequest,
			detail: MsgUpdateID,
		},
		{
			name:   "id mismatch",
			path:   "/api/stories/1",
			body:   `{"data": {"type": "stories", "id": "2"}}`,
			status: http.StatusBadRequest,
			detail: MsgIDMismatch,
		},
		{
			name:   "unknown type",
			path:   "/api/widgets/1",
			body:   `{"data": {"type": "widgets", "id": "1"}}`,
			status: http.StatusNotFound,
			detail: "No API resource exists for type: widgets",
		},
		{
			name:   "missing record",
			path:   "/api/stories/1",
			body:   `{"data": {"type": "stories", "id": "1", "attributes": {"title": "x"}}}`,
			status: http.StatusNotFound,
			detail: "No record found for ID: 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.detail, errorDetail(t, rec))
		})
	}
}

func TestRemove(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/api/tags/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := s.seed(t, "tags", store.Record{"name": "gone"})
	rec = s.do(t, http.MethodDelete, "/api/tags/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/tags/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRelationship_ToMany(t *testing.T) {
	s := newTestServer(t)
	goID := s.seed(t, "tags", store.Record{"name": "go"})
	webID := s.seed(t, "tags", store.Record{"name": "web"})
	id := s.seed(t, "stories", store.Record{
		"title": "Tagged",
		"tags":  []any{map[string]any{"id": webID, "type": "tags"}, map[string]any{"id": goID, "type": "tags"}},
	})

	rec := s.do(t, http.MethodGet, "/api/stories/"+id+"/relationships/tags", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, webID, data[0].(map[string]any)["id"])
	assert.Equal(t, goID, data[1].(map[string]any)["id"])
	assert.Equal(t, "tags", data[0].(map[string]any)["type"])

	related := s.do(t, http.MethodGet, "/api/stories/"+id+"/tags", "")
	require.Equal(t, http.StatusOK, related.Code)
	assert.Equal(t, decode(t, rec)["data"], decode(t, related)["data"])
}

func TestRelationship_EmptyToManyDefaultsToEmptyArray(t *testing.T) {
	s := newTestServer(t)
	id := s.seed(t, "stories", store.Record{"title": "Untagged"})

	rec := s.do(t, http.MethodGet, "/api/stories/"+id+"/relationships/tags", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(mustMarshal(t, decode(t, rec)["data"])))
}

func TestRelationship_MissingIDsOmitted(t *testing.T) {
	s := newTestServer(t)
	goID := s.seed(t, "tags", store.Record{"name": "go"})
	id := s.seed(t, "stories", store.Record{
		"tags": []any{map[string]any{"id": "deleted", "type": "tags"}, map[string]any{"id": goID, "type": "tags"}},
	})

	rec := s.do(t, http.MethodGet, "/api/stories/"+id+"/relationships/tags", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, goID, data[0].(map[string]any)["id"])
}

func TestRelationship_DanglingToOneDegradesToNull(t *testing.T) {
	s := newTestServer(t)
	id := s.seed(t, "stories", store.Record{
		"title":  "Orphan",
		"author": map[string]any{"id": "nobody", "type": "people"},
	})

	rec := s.do(t, http.MethodGet, "/api/stories/"+id+"/relationships/author", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Contains(t, got, "data")
	assert.Nil(t, got["data"])
	assert.Equal(t, 1, s.logs.FilterMessage("related record unavailable").Len())
}

// failingCollections serves every collection from the wrapped gateway except
// the named one, which fails to open or fails its reads.
type failingCollections struct {
	Collections
	name     string
	openFail bool
}

func (f failingCollections) Collection(ctx context.Context, name string) (store.Collection, error) {
	if name == f.name && f.openFail {
		return nil, errors.New("dial tcp 10.0.0.1:6379: connection refused")
	}
	coll, err := f.Collections.Collection(ctx, name)
	if err != nil || name != f.name {
		return coll, err
	}
	return failingReads{Collection: coll}, nil
}

type failingReads struct {
	store.Collection
}

func (failingReads) FindOne(context.Context, string) (store.Record, error) {
	return nil, errors.New("read tcp: i/o timeout")
}

func (failingReads) Find(context.Context, store.Query) ([]store.Record, error) {
	return nil, errors.New("read tcp: i/o timeout")
}

func TestRelationship_ToOneStoreFailureDegradesToNull(t *testing.T) {
	for _, tc := range []struct {
		name     string
		openFail bool
	}{
		{"collection unavailable", true},
		{"lookup fails", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, func(o *Options) {
				o.Store = failingCollections{Collections: o.Store, name: "people", openFail: tc.openFail}
			})
			authorID := s.seed(t, "people", store.Record{"name": "Ada"})
			id := s.seed(t, "stories", store.Record{"author": map[string]any{"id": authorID, "type": "people"}})

			rec := s.do(t, http.MethodGet, "/api/stories/"+id+"/relationships/author", "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			got := decode(t, rec)
			assert.Contains(t, got, "data")
			assert.Nil(t, got["data"])
			assert.Equal(t, 1, s.logs.FilterMessage("related record unavailable").Len())
		})
	}
}

func TestRelationship_ToManyStoreFailure(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.Store = failingCollections{Collections: o.Store, name: "tags"}
	})
	tagID := s.seed(t, "tags", store.Record{"name": "go"})
	id := s.seed(t, "stories", store.Record{"tags": []any{map[string]any{"id": tagID, "type": "tags"}}})

	rec := s.do(t, http.MethodGet, "/api/stories/"+id+"/relationships/tags", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgInternal, errorDetail(t, rec))
}

func TestRelationship_ToOne(t *testing.T) {
	s := newTestServer(t)
	authorID := s.seed(t, "people", store.Record{"name": "Ada"})
	id := s.seed(t, "stories", store.Record{"author": map[string]any{"id": authorID, "type": "people"}})

	rec := s.do(t, http.MethodGet, "/api/stories/"+id+"/relationships/author", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataOf(t, rec)
	assert.Equal(t, authorID, data["id"])
	assert.Equal(t, "people", data["type"])
	assert.Equal(t, map[string]any{"name": "Ada"}, data["attributes"])
}

func TestRelationship_Errors(t *testing.T) {
	s := newTestServer(t)
	id := s.seed(t, "stories", store.Record{"title": "x"})

	rec := s.do(t, http.MethodGet, "/api/stories/"+id+"/relationships/editor", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The relationship 'editor' does not exist on model 'stories'", errorDetail(t, rec))

	rec = s.do(t, http.MethodGet, "/api/stories/missing/relationships/tags", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/widgets/1/relationships/tags", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRelationshipMutation_NotImplemented(t *testing.T) {
	s := newTestServer(t)

	for _, method := range []string{http.MethodPost, http.MethodPatch} {
		rec := s.do(t, method, "/api/stories/1/tags", `{"data": []}`)
		assert.Equal(t, http.StatusNotImplemented, rec.Code, method)
		assert.Equal(t, ErrNotImplemented.Error(), errorDetail(t, rec))
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"people": "http://example.com/api/people",
		"stories": "http://example.com/api/stories",
		"tags": "http://example.com/api/tags"
	}`, rec.Body.String())
}

func TestCustomPrefix(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.Prefix = "/v1/" })
	id := s.seed(t, "tags", store.Record{"name": "go"})

	rec := s.do(t, http.MethodGet, "/v1/tags/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://example.com/v1/tags/"+id, dataOf(t, rec)["links"].(map[string]any)["self"])

	rec = s.do(t, http.MethodGet, "/api/tags/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.Metrics = metrics.New() })

	rec := s.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	s.do(t, http.MethodGet, "/api/tags", "")
	rec = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `inkwell_http_requests_total{method="GET",status="200"}`)
}

// brokenStore fails to hand out any collection
type brokenStore struct{}

func (brokenStore) Collection(context.Context, string) (store.Collection, error) {
	return nil, errors.New("dial tcp 10.0.0.1:5432: connection refused")
}

func TestStoreFailure_HidesCause(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.Store = brokenStore{} })

	rec := s.do(t, http.MethodGet, "/api/stories", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgInternal, errorDetail(t, rec))
	assert.NotContains(t, rec.Body.String(), "connection refused")

	failures := s.logs.FilterMessage("request failed").All()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].ContextMap()["error"], "connection refused")
	assert.NotEmpty(t, failures[0].ContextMap()["request_id"])
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	names := map[string]bool{}
	for _, route := range s.api.Routes() {
		if route.Name != "" {
			names[route.Name] = true
		}
	}
	for _, want := range []string{"index", "list", "create", "show", "update", "delete", "relationship", "related"} {
		assert.True(t, names[want], want)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestShow_ConditionalGet(t *testing.T) {
	s := newTestServer(t)
	id := s.seed(t, "tags", store.Record{"name": "go"})

	first := s.do(t, http.MethodGet, "/api/tags/"+id, "")
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/tags/"+id, nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	s.api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	s.do(t, http.MethodPatch, "/api/tags/"+id, `{"data": {"type": "tags", "id": "`+id+`", "attributes": {"name": "golang"}}}`)
	rec = httptest.NewRecorder()
	s.api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))
}
