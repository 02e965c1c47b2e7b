package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/export"
	"github.com/koustreak/DryDB/internal/gateway"
	"github.com/koustreak/DryDB/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t       *testing.T
	srv     *Server
	handler http.Handler
	store   *history.Store
	dbPath  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := history.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	dir := t.TempDir()
	gw := gateway.New()
	t.Cleanup(gw.Disconnect)

	srv := New(Config{}, gw,
		WithHistory(store),
		WithExporter(export.NewExporter(filepath.Join(dir, "exports"))),
	)
	return &harness{
		t:       t,
		srv:     srv,
		handler: srv.Handler(),
		store:   store,
		dbPath:  filepath.Join(dir, "app.db"),
	}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) connect(save bool) connectResponse {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/connect", map[string]any{
		"dialect":  "sqlite",
		"database": h.dbPath,
		"save":     save,
	})
	require.Equal(h.t, http.StatusOK, rec.Code)
	resp := decode[connectResponse](h.t, rec)
	require.True(h.t, resp.Connected, resp.Error)
	return resp
}

func (h *harness) query(sql string) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.do(http.MethodPost, "/api/query", queryRequest{SQL: sql})
}

func (h *harness) seed() {
	h.t.Helper()
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users(id), total REAL)`,
		`INSERT INTO users (id, name) VALUES (1, 'Ana'), (2, 'Luis')`,
	} {
		rec := h.query(stmt)
		require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(errs.ErrNoActiveSession))
	assert.Equal(t, http.StatusBadRequest, statusFor(errs.New(errs.ErrKindInvalidInput, "x")))
	assert.Equal(t, http.StatusNotFound, statusFor(errs.New(errs.ErrKindNotFound, "x")))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(errs.New(errs.ErrKindTimeout, "x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errs.New(errs.ErrKindQueryFailed, "x")))
}

func TestDisconnectedRequests(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[connectResponse](t, rec).Connected)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/schema"},
		{http.MethodGet, "/api/credentials"},
	} {
		rec := h.do(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, tc.path)
		assert.Equal(t, "no_session", decode[errorBody](t, rec).Kind)
	}

	rec = h.query("SELECT 1")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConnectFailureIsData(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/connect", map[string]any{"dialect": "oracle", "database": "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[connectResponse](t, rec)
	assert.False(t, resp.Connected)
	assert.Contains(t, resp.Error, "unsupported_dialect")
	assert.Empty(t, resp.ConnectionID)
}

func TestConnectRejectsUnknownFields(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/connect", map[string]any{"dialect": "sqlite", "bogus": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectSchemaAndQuery(t *testing.T) {
	h := newHarness(t)
	resp := h.connect(true)
	require.NotEmpty(t, resp.ConnectionID)
	assert.Equal(t, database.DialectSQLite, resp.Dialect)

	h.seed()

	rec := h.do(http.MethodGet, "/api/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	schema := decode[database.DatabaseSchema](t, rec)
	require.Len(t, schema.Tables, 2)

	rec = h.query("SELECT id, name FROM users ORDER BY id;")
	require.Equal(t, http.StatusOK, rec.Code)
	rs := decode[database.ResultSet](t, rec)
	assert.Equal(t, []string{"id", "name"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, "Ana", rs.Rows[0]["name"])

	rec = h.query("SELEC 1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "query_failed", decode[errorBody](t, rec).Kind)

	rec = h.do(http.MethodGet, "/api/connections/"+resp.ConnectionID+"/queries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queries := decode[[]history.QueryRecord](t, rec)
	require.Len(t, queries, 5)
	assert.Equal(t, "SELEC 1", queries[0].Query)
	assert.False(t, queries[0].Success)
	assert.True(t, queries[1].Success)
}

func TestUnsavedConnectionSkipsHistory(t *testing.T) {
	h := newHarness(t)
	resp := h.connect(false)
	assert.Empty(t, resp.ConnectionID)

	h.seed()

	rec := h.do(http.MethodGet, "/api/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]history.Connection](t, rec))
}

func TestReconnectReusesSavedConnection(t *testing.T) {
	h := newHarness(t)
	first := h.connect(true)

	rec := h.do(http.MethodPost, "/api/disconnect", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	second := h.connect(false)
	assert.Equal(t, first.ConnectionID, second.ConnectionID)

	id, err := h.store.CurrentConnectionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ConnectionID, id)
}

func TestConnectSaved(t *testing.T) {
	h := newHarness(t)
	first := h.connect(true)
	h.do(http.MethodPost, "/api/disconnect", nil)

	rec := h.do(http.MethodPost, "/api/connections/"+first.ConnectionID+"/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[connectResponse](t, rec)
	assert.True(t, resp.Connected)
	assert.Equal(t, first.ConnectionID, resp.ConnectionID)

	rec = h.do(http.MethodPost, "/api/connections/missing/connect", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCredentialsAreRedacted(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/connect", map[string]any{
		"dialect":  "sqlite",
		"database": h.dbPath,
		"password": "hunter2",
	})
	require.True(t, decode[connectResponse](t, rec).Connected)

	rec = h.do(http.MethodGet, "/api/credentials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	creds := decode[database.Credentials](t, rec)
	assert.Equal(t, "********", creds.Password)
	assert.Equal(t, h.dbPath, creds.Database)
}

func TestDeleteConnectionAndQuery(t *testing.T) {
	h := newHarness(t)
	resp := h.connect(true)
	h.seed()

	queries, err := h.store.QueriesByConnection(context.Background(), resp.ConnectionID)
	require.NoError(t, err)
	require.NotEmpty(t, queries)

	rec := h.do(http.MethodDelete, "/api/queries/"+queries[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodDelete, "/api/queries/"+queries[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, "/api/connections/"+resp.ConnectionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/api/status", nil)
	status := decode[connectResponse](t, rec)
	assert.True(t, status.Connected)
	assert.Empty(t, status.ConnectionID)
}

func TestBuild(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/build", map[string]any{
		"statementKind": "SELECT",
		"tables":        []string{"users"},
		"fields":        []string{"id", "name"},
		"conditions":    []map[string]string{{"field": "id", "operator": ">", "value": "5"}},
		"limit":         10,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[buildResponse](t, rec)
	assert.Equal(t, "SELECT id, name\nFROM users\nWHERE id > 5\nLIMIT 10;", resp.SQL)
	assert.True(t, resp.Executable)

	rec = h.do(http.MethodPost, "/api/build", map[string]any{
		"statementKind": "DELETE",
		"tables":        []string{"users", "orders"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[buildResponse](t, rec).Executable)

	rec = h.do(http.MethodPost, "/api/build", map[string]any{
		"statementKind": "SELECT",
		"tables":        []string{"users"},
		"conditions":    []map[string]string{{"field": "id", "operator": "BETWEEN", "value": "1"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChoices(t *testing.T) {
	h := newHarness(t)
	h.connect(false)
	h.seed()

	rec := h.do(http.MethodGet, "/api/choices?table=users,orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[choicesResponse](t, rec)
	assert.Contains(t, resp.Fields, "users.name")
	assert.Contains(t, resp.Fields, "orders.total")
	require.Len(t, resp.Joins, 1)
	assert.Equal(t, "orders", resp.Joins[0].RightTable)
}

func TestExport(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/export", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.connect(false)
	h.seed()
	require.Equal(t, http.StatusOK, h.query("SELECT * FROM users").Code)

	rec = h.do(http.MethodPost, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[export.Result](t, rec)
	assert.Equal(t, 2, res.Rows)
	assert.FileExists(t, res.Path)
}

func TestHistoryDisabled(t *testing.T) {
	srv := New(Config{}, gateway.New())
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/connections", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
