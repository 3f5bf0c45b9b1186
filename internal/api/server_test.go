package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pbaille/expertkb/internal/store"
	"github.com/pbaille/expertkb/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const animals = `
1 if Legs: 4 and Sound: Meow then Animal: Cat
2 if Legs: 4 and Sound: Woof then Animal: Dog
3 if Legs: 2 then Animal: Bird
advice Legs: "How many legs?"
advice Sound: "What sound does it make?"
advice Animal: "Which animal?"
tip Sound: "Listen closely"
change Animal: "Pick another animal"
`

type fixture struct {
	ws     *workspace.Workspace
	store  *store.Store
	server *Server
}

func newFixture(t *testing.T, withStore bool) *fixture {
	t.Helper()

	f := &fixture{}
	if withStore {
		s, err := store.New(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		f.store = s
	}
	f.ws = workspace.New(workspace.Options{Store: f.store})
	f.server = New(f.ws, Options{Store: f.store, AllowedOrigins: []string{"*"}})
	return f
}

func (f *fixture) load(t *testing.T, text string) {
	t.Helper()
	_, err := f.ws.LoadText(context.Background(), "animals.kb", text)
	require.NoError(t, err)
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "entries")

	f.load(t, animals)
	rec = f.do(t, http.MethodGet, "/health", "")
	decode(t, rec, &body)
	assert.Equal(t, float64(3), body["entries"])
	assert.Equal(t, "animals.kb", body["location"])
}

func TestGetKB(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/kb", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.load(t, animals)
	rec = f.do(t, http.MethodGet, "/kb", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body KBResponse
	decode(t, rec, &body)
	assert.Len(t, body.Entries, 3)
	assert.Equal(t, "Cat", body.Entries[0].Value)

	require.Len(t, body.Categories, 3)
	assert.Equal(t, CategoryValues{Name: "Legs", Values: []string{"4", "2"}}, body.Categories[0])
	assert.Equal(t, CategoryValues{Name: "Sound", Values: []string{"Meow", "Woof"}}, body.Categories[1])
	assert.Equal(t, CategoryValues{Name: "Animal", Values: []string{"Cat", "Dog", "Bird"}}, body.Categories[2])

	assert.Equal(t, "How many legs?", body.Questions["Legs"])
	assert.Equal(t, "Listen closely", body.Tips["Sound"])
	assert.Equal(t, "Pick another animal", body.Changes["Animal"])
}

func TestPutKB(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPut, "/kb?location=uploaded.kb", animals)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "uploaded.kb", body["location"])
	assert.Equal(t, float64(3), body["entries"])
	assert.Equal(t, float64(3), body["questions"])
	assert.NotEmpty(t, body["source_id"])

	require.NotNil(t, f.ws.Current())
	assert.Equal(t, "uploaded.kb", f.ws.Current().Location)
}

func TestPutKBSyntaxErrorKeepsCurrent(t *testing.T) {
	f := newFixture(t, false)
	f.load(t, animals)

	rec := f.do(t, http.MethodPut, "/kb", "1 if Legs: 4\nthen Animal")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body SyntaxErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, 2, body.Line)
	assert.Equal(t, 12, body.Column)
	assert.NotEmpty(t, body.Error)

	assert.Equal(t, 3, f.ws.DB().Len())
}

func TestListQuestions(t *testing.T) {
	f := newFixture(t, false)
	f.load(t, animals)

	rec := f.do(t, http.MethodGet, "/questions?target=Animal", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Target    string   `json:"target"`
		Targets   []string `json:"targets"`
		Questions []struct {
			Category string   `json:"category"`
			Prompt   string   `json:"prompt"`
			Tip      string   `json:"tip"`
			Choices  []string `json:"choices"`
		} `json:"questions"`
	}
	decode(t, rec, &body)

	assert.Equal(t, "Animal", body.Target)
	assert.Equal(t, []string{"Legs", "Sound", "Animal"}, body.Targets)
	require.Len(t, body.Questions, 2)
	assert.Equal(t, "Legs", body.Questions[0].Category)
	assert.Equal(t, []string{"4", "2"}, body.Questions[0].Choices)
	assert.Equal(t, "Listen closely", body.Questions[1].Tip)

	rec = f.do(t, http.MethodGet, "/questions?target=Colour", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolve(t *testing.T) {
	f := newFixture(t, true)
	f.load(t, animals)

	rec := f.do(t, http.MethodPost, "/resolve",
		`{"target":"Animal","answers":[{"category":"Legs","value":"4"},{"category":"Sound","value":"Woof"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ok map[string]string
	decode(t, rec, &ok)
	assert.Equal(t, "Dog", ok["conclusion"])

	rec = f.do(t, http.MethodPost, "/resolve",
		`{"target":"Animal","answers":[{"category":"Legs","value":"2"},{"category":"Sound","value":"Meow"}]}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var nf NotFoundResponse
	decode(t, rec, &nf)
	assert.Equal(t, "Animal", nf.Target)
	assert.Len(t, nf.Query, 2)
	assert.Contains(t, nf.Error, "didn't find anything")

	rec = f.do(t, http.MethodGet, "/history?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var history struct {
		Queries []struct {
			Target string `json:"target"`
			Found  bool   `json:"found"`
		} `json:"queries"`
		Limit int `json:"limit"`
	}
	decode(t, rec, &history)
	assert.Equal(t, 10, history.Limit)
	require.Len(t, history.Queries, 2)
	for _, q := range history.Queries {
		assert.Equal(t, "Animal", q.Target)
	}
}

func TestResolveErrors(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/resolve", `{"answers":[]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.load(t, animals)
	rec = f.do(t, http.MethodPost, "/resolve", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No confirmed constraints: the first entry matches vacuously
	rec = f.do(t, http.MethodPost, "/resolve", `{"answers":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok map[string]string
	decode(t, rec, &ok)
	assert.Equal(t, "Cat", ok["conclusion"])
}

func TestHistoryWithoutStore(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/history", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/sources", "").Code)
}

func TestListSources(t *testing.T) {
	f := newFixture(t, true)
	f.load(t, animals)
	f.load(t, animals)

	rec := f.do(t, http.MethodGet, "/sources?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sources []struct {
			Location string `json:"location"`
			Content  string `json:"content"`
		} `json:"sources"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "animals.kb", body.Sources[0].Location)
	assert.Empty(t, body.Sources[0].Content)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, false)
	f.server.allowedOrigins = []string{"http://localhost:5173"}

	req := httptest.NewRequest(http.MethodOptions, "/resolve", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPutKBTooLarge(t *testing.T) {
	f := newFixture(t, false)
	f.server.maxSourceBytes = 16

	rec := f.do(t, http.MethodPut, "/kb", animals)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, f.ws.Current())
}

func TestReloadKB(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/kb/reload", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	path := filepath.Join(t.TempDir(), "animals.kb")
	require.NoError(t, os.WriteFile(path, []byte(animals), 0o644))
	_, err := f.ws.Load(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("1 then Animal: Fish"), 0o644))
	rec = f.do(t, http.MethodPost, "/kb/reload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, float64(1), body["entries"])
	assert.Equal(t, true, body["reloadable"])

	require.NoError(t, os.WriteFile(path, []byte("1 if broken"), 0o644))
	rec = f.do(t, http.MethodPost, "/kb/reload", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, f.ws.DB().Len())
}

func TestReloadIgnoresUploadLocation(t *testing.T) {
	f := newFixture(t, false)

	secret := filepath.Join(t.TempDir(), "secret.kb")
	require.NoError(t, os.WriteFile(secret, []byte("1 then Secret: Leaked"), 0o644))

	rec := f.do(t, http.MethodPut, "/kb?location="+secret, animals)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/kb/reload", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.ws.DB().Values("Secret"))
	assert.Equal(t, 3, f.ws.DB().Len())
}

func TestGetSource(t *testing.T) {
	f := newFixture(t, true)
	f.load(t, animals)

	id := *f.ws.Current().SourceID
	rec := f.do(t, http.MethodGet, "/sources/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ID       string `json:"id"`
		Location string `json:"location"`
		Content  string `json:"content"`
	}
	decode(t, rec, &body)
	assert.Equal(t, id, body.ID)
	assert.Equal(t, "animals.kb", body.Location)
	assert.Equal(t, animals, body.Content)

	rec = f.do(t, http.MethodGet, "/sources/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
