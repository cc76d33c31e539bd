package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/service"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func newRosterRouter(t *testing.T, exportsEnabled bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := service.NewMetricsService()
	store := repository.NewRosterRepository()
	store.Subscribe(metrics.ObserveRosterEvent)
	session := service.NewSessionService(store, service.NewRosterValidator(nil), service.NewQueryEngine("en"), metrics, zap.NewNop())
	exports := service.NewExportService(session, nil, metrics, service.ExportConfig{Enabled: exportsEnabled}, zap.NewNop(), nil, nil)

	r := gin.New()
	Register(r, "/api/v1", Handlers{
		Roster:  NewRosterHandler(session),
		Exports: NewExportHandler(exports),
		Metrics: NewMetricsHandler(metrics),
	})
	return r
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func listRolls(t *testing.T, r *gin.Engine) []string {
	t.Helper()
	w := perform(r, http.MethodGet, "/api/v1/students", "")
	require.Equal(t, http.StatusOK, w.Code)
	var students []models.Student
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &students))
	out := make([]string, 0, len(students))
	for _, s := range students {
		out = append(out, s.Roll)
	}
	return out
}

func TestRosterHandlerCreateAndDuplicate(t *testing.T) {
	r := newRosterRouter(t, true)

	w := perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1","name":"Alice","dept":"CSE","year":"1","cgpa":8.5}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1","name":"Other","dept":"ECE","year":"2","cgpa":"7"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, models.MsgUnique, env.Error.Fields["roll"])

	assert.Equal(t, []string{"R1"}, listRolls(t, r))
}

func TestRosterHandlerCreateReportsEveryField(t *testing.T) {
	r := newRosterRouter(t, true)

	w := perform(r, http.MethodPost, "/api/v1/students", `{"roll":"","name":"Bob","dept":"XYZ","year":"1","cgpa":11}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, map[string]string{
		"roll": models.MsgRequired,
		"dept": models.MsgRequired,
		"cgpa": models.MsgOutOfRange,
	}, env.Error.Fields)
	assert.Empty(t, listRolls(t, r))
}

func TestRosterHandlerMalformedBody(t *testing.T) {
	r := newRosterRouter(t, true)
	w := perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRosterHandlerEditFlow(t *testing.T) {
	r := newRosterRouter(t, true)
	perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1","name":"Alice","dept":"CSE","year":"1","cgpa":8.5}`)
	perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R2","name":"Bob","dept":"ECE","year":"2","cgpa":7}`)

	w := perform(r, http.MethodPost, "/api/v1/session/edit/R1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var edit struct {
		Form    models.StudentInput `json:"form"`
		Session models.SessionState `json:"session"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &edit))
	assert.Equal(t, "Alice", edit.Form.Name)
	assert.Equal(t, "8.5", edit.Form.CGPA)
	assert.Equal(t, models.ModeEditing, edit.Session.Mode)
	assert.Equal(t, "R1", edit.Session.EditingRoll)

	w = perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1","name":"Alice","dept":"CSE","year":"1","cgpa":9.1}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/students/R1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var student models.Student
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &student))
	assert.Equal(t, 9.1, student.CGPA)
	assert.Equal(t, []string{"R1", "R2"}, listRolls(t, r))

	w = perform(r, http.MethodGet, "/api/v1/session", "")
	var state models.SessionState
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &state))
	assert.Equal(t, models.ModeIdle, state.Mode)
}

func TestRosterHandlerStartEditUnknownRoll(t *testing.T) {
	r := newRosterRouter(t, true)
	w := perform(r, http.MethodPost, "/api/v1/session/edit/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRosterHandlerCancelEdit(t *testing.T) {
	r := newRosterRouter(t, true)
	perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1","name":"Alice","dept":"CSE","year":"1","cgpa":8.5}`)
	perform(r, http.MethodPost, "/api/v1/session/edit/R1", "")

	w := perform(r, http.MethodDelete, "/api/v1/session/edit", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state models.SessionState
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &state))
	assert.Equal(t, models.ModeIdle, state.Mode)
	assert.Empty(t, state.EditingRoll)
}

func TestRosterHandlerValidateDoesNotSave(t *testing.T) {
	r := newRosterRouter(t, true)
	w := perform(r, http.MethodPost, "/api/v1/session/validate", `{"roll":"R1","name":"","dept":"CSE","year":"1","cgpa":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		Valid  bool              `json:"valid"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.False(t, result.Valid)
	assert.Equal(t, models.MsgRequired, result.Fields["name"])
	assert.Equal(t, models.MsgRequired, result.Fields["cgpa"])
	assert.Empty(t, listRolls(t, r))
}

func TestRosterHandlerQueryIntents(t *testing.T) {
	r := newRosterRouter(t, true)
	perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1","name":"Alice","dept":"CSE","year":"1","cgpa":9}`)
	perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R2","name":"Bob","dept":"ECE","year":"2","cgpa":7}`)
	perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R3","name":"Cara","dept":"CSE","year":"2","cgpa":8}`)

	w := perform(r, http.MethodPut, "/api/v1/session/filters/dept", `{"value":"CSE"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"R1", "R3"}, listRolls(t, r))

	w = perform(r, http.MethodPost, "/api/v1/session/sort", `{"field":"cgpa"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"R3", "R1"}, listRolls(t, r))

	perform(r, http.MethodPost, "/api/v1/session/sort", `{"field":"cgpa"}`)
	assert.Equal(t, []string{"R1", "R3"}, listRolls(t, r))

	w = perform(r, http.MethodPut, "/api/v1/session/search", `{"query":"car"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"R3"}, listRolls(t, r))

	w = perform(r, http.MethodGet, "/api/v1/students", "")
	meta := decode(t, w).Meta
	assert.EqualValues(t, 3, meta["total"])
	assert.EqualValues(t, 1, meta["visible"])

	w = perform(r, http.MethodDelete, "/api/v1/session/filters", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"R1", "R2", "R3"}, listRolls(t, r))
}

func TestRosterHandlerRejectsUnknownQueryFields(t *testing.T) {
	r := newRosterRouter(t, true)

	w := perform(r, http.MethodPost, "/api/v1/session/sort", `{"field":"dept"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/session/sort", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPut, "/api/v1/session/filters/cgpa", `{"value":"9"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPut, "/api/v1/session/filters/year", `{"value":"7"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRosterHandlerDelete(t *testing.T) {
	r := newRosterRouter(t, true)
	perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1","name":"Alice","dept":"CSE","year":"1","cgpa":9}`)

	w := perform(r, http.MethodDelete, "/api/v1/students/R1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, listRolls(t, r))

	w = perform(r, http.MethodDelete, "/api/v1/students/R1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/students/R1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportHandlerCSV(t *testing.T) {
	r := newRosterRouter(t, true)
	perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1","name":"Alice","dept":"CSE","year":"1","cgpa":9}`)

	w := perform(r, http.MethodGet, "/api/v1/exports/students?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="roster-r1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "false", w.Header().Get("X-Cache-Hit"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Roll,Name,Department,Year,CGPA\n"))
	assert.Contains(t, w.Body.String(), "R1,Alice,CSE,1,9.00")

	w = perform(r, http.MethodGet, "/api/v1/exports/students?format=xlsx", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerDisabled(t *testing.T) {
	r := newRosterRouter(t, false)
	w := perform(r, http.MethodGet, "/api/v1/exports/students", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoints(t *testing.T) {
	r := newRosterRouter(t, true)
	perform(r, http.MethodPost, "/api/v1/students", `{"roll":"R1","name":"Alice","dept":"CSE","year":"1","cgpa":9}`)

	w := perform(r, http.MethodGet, "/api/v1/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.RosterMetrics
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &snap))
	assert.Equal(t, 1, snap.RosterSize)

	w = perform(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "roster_records 1")

	w = perform(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRosterHandlerRollWithSlash(t *testing.T) {
	r := newRosterRouter(t, true)
	w := perform(r, http.MethodPost, "/api/v1/students", `{"roll":"CSE/21/001","name":"Alice","dept":"CSE","year":"1","cgpa":8.5}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/students/CSE%2F21%2F001", "")
	require.Equal(t, http.StatusOK, w.Code)
	var student models.Student
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &student))
	assert.Equal(t, "CSE/21/001", student.Roll)

	w = perform(r, http.MethodPost, "/api/v1/session/edit/CSE%2F21%2F001", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/students", `{"roll":"CSE/21/001","name":"Alicia","dept":"CSE","year":"1","cgpa":8.5}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodDelete, "/api/v1/students/CSE%2F21%2F001", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, listRolls(t, r))

	w = perform(r, http.MethodGet, "/api/v1/students/R%201", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}
