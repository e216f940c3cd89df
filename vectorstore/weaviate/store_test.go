// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package weaviate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docraptor/ai/mock"
	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWeaviate is an in-memory stand-in for the Weaviate endpoints the store uses.
type fakeWeaviate struct {
	mu sync.Mutex

	schema        bool
	schemaCreates int
	objects       map[string]map[string]any
	creates       int
	batches       int
	lastGraphQL   string
	lastHeaders   http.Header

	getStatus     int // non-zero forces GET object to answer with this status
	createStatus  int // non-zero forces POST object to answer with this status
	schemaStatus  int // non-zero forces POST schema to answer with this status
	batchReject   string
	graphQLStatus int
	graphQLBody   string
}

func newFakeWeaviate() *fakeWeaviate {
	return &fakeWeaviate{objects: map[string]map[string]any{}}
}

func (f *fakeWeaviate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastHeaders = r.Header.Clone()

	p := r.URL.Path
	isObject := strings.HasPrefix(p, "/v1/objects/")
	switch {
	case r.Method == http.MethodGet && p == "/v1/meta":
		_, _ = w.Write([]byte(`{"version":"1.27.0"}`))

	case r.Method == http.MethodGet && p == "/v1/schema":
		classes := []map[string]string{}
		if f.schema {
			classes = append(classes, map[string]string{"class": "Documentation"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"classes": classes})

	case r.Method == http.MethodGet && p == "/v1/schema/Documentation":
		if !f.schema {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"class":"Documentation"}`))

	case r.Method == http.MethodPost && p == "/v1/schema":
		f.schemaCreates++
		if f.schemaStatus != 0 {
			http.Error(w, `{"error":[{"message":"class name Documentation already exists"}]}`, f.schemaStatus)
			return
		}
		f.schema = true
		_, _ = w.Write([]byte(`{"class":"Documentation"}`))

	case (r.Method == http.MethodHead || r.Method == http.MethodGet) && isObject:
		if f.getStatus != 0 {
			http.Error(w, "boom", f.getStatus)
			return
		}
		if _, ok := f.objects[path.Base(p)]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPost && p == "/v1/objects":
		f.creates++
		if f.createStatus != 0 {
			http.Error(w, "write refused", f.createStatus)
			return
		}
		var obj map[string]any
		_ = json.NewDecoder(r.Body).Decode(&obj)
		f.objects[obj["id"].(string)] = obj
		_ = json.NewEncoder(w).Encode(obj)

	case r.Method == http.MethodDelete && isObject:
		id := path.Base(p)
		if _, ok := f.objects[id]; !ok {
			http.Error(w, `{"error":[{"message":"not found"}]}`, http.StatusNotFound)
			return
		}
		delete(f.objects, id)
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPost && p == "/v1/batch/objects":
		f.batches++
		var req struct {
			Objects []map[string]any `json:"objects"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := make([]map[string]any, len(req.Objects))
		for i, obj := range req.Objects {
			id := obj["id"].(string)
			res := map[string]any{}
			if f.batchReject != "" && i == 0 {
				res["errors"] = map[string]any{"error": []map[string]string{{"message": f.batchReject}}}
			} else {
				f.objects[id] = obj
			}
			out[i] = map[string]any{"class": "Documentation", "id": id, "result": res}
		}
		_ = json.NewEncoder(w).Encode(out)

	case r.Method == http.MethodPost && p == "/v1/graphql":
		var req struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.lastGraphQL = req.Query
		if f.graphQLStatus != 0 {
			http.Error(w, "graphql down", f.graphQLStatus)
			return
		}
		body := f.graphQLBody
		if body == "" {
			body = `{"data":{"Get":{"Documentation":[]}}}`
		}
		_, _ = w.Write([]byte(body))

	default:
		http.Error(w, "unexpected "+r.Method+" "+p, http.StatusTeapot)
	}
}

func setupStore(t *testing.T, fake *fakeWeaviate, opts ...Option) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(context.Background(), srv.URL, opts...)
	require.NoError(t, err)
	return s
}

var testMeta = core.Metadata{Title: "Intro", URL: "https://docs.example.com/intro", Source: "docs.example.com", Version: "latest"}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.ErrorIs(t, err, ErrBaseURLRequired)

	_, err = New(context.Background(), "localhost-without-scheme")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestNew_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(newFakeWeaviate())
	addr := srv.URL
	srv.Close()

	_, err := New(context.Background(), addr, WithTimeout(time.Second))
	assert.ErrorIs(t, err, core.ErrTransient)
}

func TestEnsureSchema_CreatesOnce(t *testing.T) {
	fake := newFakeWeaviate()
	s := setupStore(t, fake)

	assert.True(t, fake.schema)
	assert.Equal(t, 1, fake.schemaCreates)

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.Equal(t, 1, fake.schemaCreates, "existing schema should not be recreated")
}

func TestEnsureSchema_AlreadyExistsIsSuccess(t *testing.T) {
	fake := newFakeWeaviate()
	fake.schemaStatus = http.StatusUnprocessableEntity
	setupStore(t, fake)
	assert.Equal(t, 1, fake.schemaCreates)
}

func TestEnsureSchema_OtherFailure(t *testing.T) {
	fake := newFakeWeaviate()
	fake.schemaStatus = http.StatusInternalServerError
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := New(context.Background(), srv.URL)
	assert.ErrorIs(t, err, core.ErrTransient)
}

func TestStore_SendsAuthHeaders(t *testing.T) {
	fake := newFakeWeaviate()
	setupStore(t, fake, WithAPIKey("wv-key"), WithOpenAIKey("sk-test"))

	assert.Equal(t, "Bearer wv-key", fake.lastHeaders.Get("Authorization"))
	assert.Equal(t, "sk-test", fake.lastHeaders.Get("X-OpenAI-Api-Key"))
}

func TestAddDocument_StoresAndDeduplicates(t *testing.T) {
	fake := newFakeWeaviate()
	s := setupStore(t, fake)
	ctx := context.Background()

	first, err := s.AddDocument(ctx, "hello", testMeta)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeStored, first.Outcome)
	assert.Equal(t, core.StoreIDFor("hello", testMeta), first.StoreID)
	assert.NotEmpty(t, first.DocumentID)

	second, err := s.AddDocument(ctx, "hello", testMeta)
	require.NoError(t, err)
	assert.Equal(t, first.StoreID, second.StoreID)
	assert.NotEqual(t, first.DocumentID, second.DocumentID, "document ids are random")
	assert.Equal(t, core.OutcomeStored, second.Outcome)

	assert.Equal(t, 1, fake.creates, "second add should not write")
	assert.Len(t, fake.objects, 1)
}

func TestAddDocument_MetadataChangesID(t *testing.T) {
	fake := newFakeWeaviate()
	s := setupStore(t, fake)

	other := testMeta
	other.Version = "v2"
	a, err := s.AddDocument(context.Background(), "hello", testMeta)
	require.NoError(t, err)
	b, err := s.AddDocument(context.Background(), "hello", other)
	require.NoError(t, err)
	assert.NotEqual(t, a.StoreID, b.StoreID)
}

func TestAddDocument_CreateFailureIsReported(t *testing.T) {
	fake := newFakeWeaviate()
	fake.createStatus = http.StatusInternalServerError
	s := setupStore(t, fake)

	rec, err := s.AddDocument(context.Background(), "hello", testMeta)
	require.NoError(t, err, "write failures are reported through the outcome")
	assert.Equal(t, core.OutcomeFailed, rec.Outcome)
	assert.False(t, rec.Stored())
	assert.Contains(t, rec.Warning, "write refused")
	assert.NotEmpty(t, rec.StoreID)
	assert.NotEmpty(t, rec.DocumentID)
}

func TestAddDocument_CheckFailureStillWrites(t *testing.T) {
	fake := newFakeWeaviate()
	fake.getStatus = http.StatusInternalServerError
	s := setupStore(t, fake)

	rec, err := s.AddDocument(context.Background(), "hello", testMeta)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeStoredWithWarning, rec.Outcome)
	assert.True(t, rec.Stored())
	assert.NotEmpty(t, rec.Warning)
	assert.Equal(t, 1, fake.creates)
}

func TestAddDocument_RejectsBlankContent(t *testing.T) {
	s := setupStore(t, newFakeWeaviate())
	_, err := s.AddDocument(context.Background(), "  \n", testMeta)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestAddDocument_WithEmbedderSendsVector(t *testing.T) {
	fake := newFakeWeaviate()
	embedder := mock.NewMockEmbedder()
	s := setupStore(t, fake, WithEmbedder(embedder))

	rec, err := s.AddDocument(context.Background(), "hello", testMeta)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallCount())
	assert.Len(t, fake.objects[rec.StoreID]["vector"], 8)
}

func TestBatchAddDocuments(t *testing.T) {
	fake := newFakeWeaviate()
	s := setupStore(t, fake)

	docs := []core.Document{
		{Content: "alpha", Metadata: testMeta},
		{Content: "beta", Metadata: testMeta},
	}
	records, err := s.BatchAddDocuments(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, core.StoreIDFor("alpha", testMeta), records[0].StoreID)
	assert.Equal(t, core.StoreIDFor("beta", testMeta), records[1].StoreID)
	assert.Equal(t, 1, fake.batches)
	assert.Len(t, fake.objects, 2)

	props := fake.objects[records[0].StoreID]["properties"].(map[string]any)
	assert.Equal(t, "alpha", props["content"])
	assert.Equal(t, "docs.example.com", props["source"])
}

func TestBatchAddDocuments_Empty(t *testing.T) {
	fake := newFakeWeaviate()
	s := setupStore(t, fake)

	records, err := s.BatchAddDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, fake.batches)
}

func TestBatchAddDocuments_RejectedObjectFailsBatch(t *testing.T) {
	fake := newFakeWeaviate()
	fake.batchReject = "invalid property"
	s := setupStore(t, fake)

	records, err := s.BatchAddDocuments(context.Background(), []core.Document{
		{Content: "alpha", Metadata: testMeta},
		{Content: "beta", Metadata: testMeta},
	})
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.Contains(t, err.Error(), "invalid property")
	assert.Nil(t, records)
}

func TestBatchAddDocuments_EmbedderFailure(t *testing.T) {
	fake := newFakeWeaviate()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	s := setupStore(t, fake, WithEmbedder(embedder))

	_, err := s.BatchAddDocuments(context.Background(), []core.Document{{Content: "alpha", Metadata: testMeta}})
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.Zero(t, fake.batches)
}

func TestDeleteDocument(t *testing.T) {
	fake := newFakeWeaviate()
	s := setupStore(t, fake)
	ctx := context.Background()

	rec, err := s.AddDocument(ctx, "hello", testMeta)
	require.NoError(t, err)

	ok, err := s.DeleteDocument(ctx, rec.StoreID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, fake.objects)

	ok, err = s.DeleteDocument(ctx, rec.StoreID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.DeleteDocument(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

const twoHits = `{"data":{"Get":{"Documentation":[
 {"content":"alpha","title":"A","url":"https://x.dev/a","source":"x.dev","version":"latest","_additional":{"id":"id-a","certainty":0.91}},
 {"content":"beta","title":"","url":"https://x.dev/b","source":"x.dev","version":"","_additional":{"id":"id-b","certainty":1.2}},
 {"title":"no content","_additional":{"id":"id-c","certainty":0.5}}
]}}}`

func TestSearchSimilar_Results(t *testing.T) {
	fake := newFakeWeaviate()
	fake.graphQLBody = twoHits
	s := setupStore(t, fake)

	resp, err := s.SearchSimilar(context.Background(), `how do I "install"?`, 3, nil)
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	require.Len(t, resp.Results, 2, "hits without content are skipped")
	assert.Equal(t, 2, resp.Total)

	assert.Equal(t, "id-a", resp.Results[0].ID)
	assert.InDelta(t, 0.91, resp.Results[0].Score, 1e-9)
	assert.Equal(t, "x.dev", resp.Results[0].Metadata.Source)
	assert.Equal(t, 1.0, resp.Results[1].Score, "certainty is clamped")
	assert.Equal(t, "Untitled", resp.Results[1].Metadata.Title)
	assert.Equal(t, core.DefaultVersion, resp.Results[1].Metadata.Version)

	assert.Contains(t, fake.lastGraphQL, "nearText")
	assert.Contains(t, fake.lastGraphQL, `install`)
	assert.Regexp(t, `limit:\s*3`, fake.lastGraphQL)
	assert.NotContains(t, fake.lastGraphQL, "where")
}

func TestSearchSimilar_FilterWhitelist(t *testing.T) {
	fake := newFakeWeaviate()
	fake.graphQLBody = twoHits
	s := setupStore(t, fake)

	sourceClause := regexp.MustCompile(`path:\s*\["source"\]`)
	versionClause := regexp.MustCompile(`path:\s*\["version"\]`)

	_, err := s.SearchSimilar(context.Background(), "q", 5, map[string]string{"source": "x.dev", "author": "eve"})
	require.NoError(t, err)
	assert.Regexp(t, sourceClause, fake.lastGraphQL)
	assert.Regexp(t, `operator:\s*Equal`, fake.lastGraphQL)
	assert.Regexp(t, `valueText:\s*"x\.dev"`, fake.lastGraphQL)
	assert.NotRegexp(t, `operator:\s*And`, fake.lastGraphQL)
	assert.NotContains(t, fake.lastGraphQL, "author")

	_, err = s.SearchSimilar(context.Background(), "q", 5, map[string]string{"version": "v1", "source": "x.dev"})
	require.NoError(t, err)
	assert.Regexp(t, `operator:\s*And`, fake.lastGraphQL)
	assert.Regexp(t, sourceClause, fake.lastGraphQL)
	assert.Regexp(t, versionClause, fake.lastGraphQL)
	assert.Regexp(t, `valueText:\s*"v1"`, fake.lastGraphQL)
	src := sourceClause.FindStringIndex(fake.lastGraphQL)
	ver := versionClause.FindStringIndex(fake.lastGraphQL)
	assert.Less(t, src[0], ver[0], "operands are ordered by key")

	_, err = s.SearchSimilar(context.Background(), "q", 5, map[string]string{"author": "eve"})
	require.NoError(t, err)
	assert.NotContains(t, fake.lastGraphQL, "where", "only non-whitelisted keys means no filter")
}

func TestSearchSimilar_FallbackOnError(t *testing.T) {
	fake := newFakeWeaviate()
	fake.graphQLStatus = http.StatusInternalServerError
	s := setupStore(t, fake)

	resp, err := s.SearchSimilar(context.Background(), "q", 10, nil)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.DegradedReason, "backend error")
	require.Len(t, resp.Results, 5)
	for _, r := range resp.Results {
		assert.Equal(t, vectorstore.FallbackSource, r.Metadata.Source)
	}
}

func TestSearchSimilar_FallbackOnEmpty(t *testing.T) {
	s := setupStore(t, newFakeWeaviate())

	resp, err := s.SearchSimilar(context.Background(), "q", 2, nil)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Len(t, resp.Results, 2)
}

func TestSearchSimilar_GraphQLErrors(t *testing.T) {
	fake := newFakeWeaviate()
	fake.graphQLBody = `{"errors":[{"message":"no such class"}]}`
	s := setupStore(t, fake, WithFallback(false))

	_, err := s.SearchSimilar(context.Background(), "q", 2, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such class")
}

func TestSearchSimilar_FallbackDisabled(t *testing.T) {
	fake := newFakeWeaviate()
	s := setupStore(t, fake, WithFallback(false))

	resp, err := s.SearchSimilar(context.Background(), "q", 2, nil)
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	assert.Empty(t, resp.Results)

	fake.graphQLStatus = http.StatusBadGateway
	_, err = s.SearchSimilar(context.Background(), "q", 2, nil)
	assert.ErrorIs(t, err, core.ErrTransient)
}

func TestSearchSimilar_WithEmbedderUsesNearVector(t *testing.T) {
	fake := newFakeWeaviate()
	fake.graphQLBody = twoHits
	embedder := mock.NewMockEmbedder()
	s := setupStore(t, fake, WithEmbedder(embedder))

	_, err := s.SearchSimilar(context.Background(), "q", 2, nil)
	require.NoError(t, err)
	assert.Contains(t, fake.lastGraphQL, "nearVector")
	assert.NotContains(t, fake.lastGraphQL, "nearText")
	assert.Equal(t, 1, embedder.CallCount())
}
