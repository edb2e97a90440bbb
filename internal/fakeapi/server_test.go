package fakeapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rim/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testCollections = []types.CollectionConfig{
	{Name: "User", IDKey: "ID"},
	{Name: "Archive", IDKey: "ID", SoftDelete: true},
	{Name: "Membership", LeftKey: "user_id", RightKey: "team_id"},
}

func serve(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, any) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var decoded any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

func TestCreateAssignsID(t *testing.T) {
	s := New(testCollections, nil)

	w, got := serve(t, s, http.MethodPost, "/users", `{"ID":"newRIMObject","name":"Bob"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	doc := got.(map[string]any)
	assert.NotEqual(t, "newRIMObject", doc["ID"])
	assert.NotEmpty(t, doc["ID"])
	assert.Equal(t, "Bob", doc["name"])
	assert.Len(t, s.Docs("User"), 1)
}

func TestCreateKeepsClientIDAndRejectsDuplicates(t *testing.T) {
	s := New(testCollections, nil)

	w, _ := serve(t, s, http.MethodPost, "/users", `{"ID":"u1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, got := serve(t, s, http.MethodPost, "/users", `{"ID":"u1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, got.(map[string]any)["error"], "u1")
}

func TestCreateRejectsInvalidJSON(t *testing.T) {
	s := New(testCollections, nil)
	w, _ := serve(t, s, http.MethodPost, "/users", `{"ID":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadUpdateDelete(t *testing.T) {
	s := New(testCollections, nil)
	require.NoError(t, s.Seed("User", types.Document{"ID": "u1", "name": "Ann", "age": 30}))

	w, got := serve(t, s, http.MethodGet, "/users/u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ann", got.(map[string]any)["name"])

	w, got = serve(t, s, http.MethodPut, "/users/u1", `{"name":"Anne"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"ID": "u1", "name": "Anne", "age": float64(30)}, got)

	w, _ = serve(t, s, http.MethodPut, "/users/u1", `{"ID":"u2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(t, s, http.MethodDelete, "/users/u1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, s.Docs("User"))

	w, _ = serve(t, s, http.MethodGet, "/users/u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = serve(t, s, http.MethodPut, "/users/u1", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = serve(t, s, http.MethodDelete, "/users/u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSoftDelete(t *testing.T) {
	s := New(testCollections, nil)
	require.NoError(t, s.Seed("Archive", types.Document{"ID": "a1"}))

	w, _ := serve(t, s, http.MethodDelete, "/archives/a1", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	docs := s.Docs("Archive")
	require.Len(t, docs, 1)
	assert.Equal(t, true, docs[0][DeletedKey])
}

func TestCompositeRoutes(t *testing.T) {
	s := New(testCollections, nil)

	w, _ := serve(t, s, http.MethodPost, "/memberships", `{"user_id":"u1","team_id":"t1","role":"lead"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, got := serve(t, s, http.MethodGet, "/memberships/u1/t1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lead", got.(map[string]any)["role"])

	w, _ = serve(t, s, http.MethodDelete, "/memberships/u1/t1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSearch(t *testing.T) {
	s := New(testCollections, nil)
	require.NoError(t, s.Seed("User",
		types.Document{"ID": "u1", "name": "Ann"},
		types.Document{"ID": "u2", "name": "Bob"},
		types.Document{"ID": "u3", "name": "Bobby"},
	))

	w, got := serve(t, s, http.MethodGet, "/users?search_text=BOB", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := got.([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "u2", list[0].(map[string]any)["ID"])

	_, got = serve(t, s, http.MethodGet, "/users", "")
	assert.Len(t, got.([]any), 3)
}

func TestHydrateAndLogin(t *testing.T) {
	s := New(testCollections, nil)
	require.NoError(t, s.Seed("User", types.Document{"ID": "u1"}))

	w, got := serve(t, s, http.MethodGet, "/hydrate", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := got.(map[string]any)
	assert.Len(t, env["Users"], 1)
	assert.Contains(t, env, "Archives")
	assert.Contains(t, env, "Memberships")

	w, _ = serve(t, s, http.MethodPost, "/login", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, got = serve(t, s, http.MethodPost, "/login", `{"user":"ann"}`)
	require.Equal(t, http.StatusOK, w.Code)
	env = got.(map[string]any)
	assert.NotEmpty(t, env["token"])
	assert.Len(t, env["Users"], 1)

	w, _ = serve(t, s, http.MethodPost, "/logout", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSeedUnknownCollection(t *testing.T) {
	s := New(testCollections, nil)
	assert.ErrorIs(t, s.Seed("Nope", types.Document{}), types.ErrUnknownCollection)
	assert.Nil(t, s.Docs("Nope"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(testCollections, nil)
	router := s.Router()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `rim_fakeapi_requests_total{method="GET",route="/users",status="OK"} 1`), w.Body.String())
}
