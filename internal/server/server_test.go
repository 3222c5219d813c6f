package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/calcgrid/internal/registry"
	"github.com/vk/calcgrid/internal/server"
	"github.com/vk/calcgrid/internal/session"
	"github.com/vk/calcgrid/internal/snapshot"
	"github.com/vk/calcgrid/modules/ohms_law"
)

type emitted struct {
	room, event string
	payload     any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) Emit(room, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{room, event, payload})
}

func (r *recordingEmitter) of(event string) []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []emitted
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func newTestServer(t *testing.T, opts ...server.Option) (*server.Server, *recordingEmitter) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.RegisterModules(&ohms_law.Module{}))
	em := &recordingEmitter{}
	opts = append([]server.Option{server.WithEmitter(em)}, opts...)
	return server.New(context.Background(), reg, opts...), em
}

func do(t *testing.T, s *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) session.State {
	t.Helper()
	var st session.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func variable(st session.State, name string) session.VariableState {
	for _, v := range st.Variables {
		if v.Name == name {
			return v
		}
	}
	return session.VariableState{}
}

func TestHealthAndCatalogue(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/calculators", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var infos []registry.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "ohms_law", infos[0].Name)

	w = do(t, s, http.MethodGet, "/calculators?search=RESISTOR", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "ohms_law", infos[0].Name)

	w = do(t, s, http.MethodGet, "/calculators?search=humidity", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSnapshotSessions(t *testing.T) {
	// --- Arrange ---
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodPost, "/sessions", map[string]any{
		"calculator": "ohms_law",
		"values":     map[string]string{"voltage": "5"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// --- Act ---
	w = do(t, s, http.MethodGet, "/sessions/snapshot", nil)

	// --- Assert ---
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/toml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "[[calculator]]")
	snaps, err := snapshot.Decode(w.Body)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, s.Sessions().Snapshots(), snaps)
}

func TestSessionLifecycle(t *testing.T) {
	// --- Arrange ---
	s, em := newTestServer(t)

	// --- Act: open ---
	w := do(t, s, http.MethodPost, "/sessions", map[string]any{
		"calculator": "ohms_law",
		"values":     map[string]string{"voltage": "5"},
	})

	// --- Assert ---
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := decodeState(t, w)
	assert.Equal(t, "50 Ω", variable(st, "resistance").Formatted)
	id := st.ID
	assert.Len(t, em.of(server.EventDirectionChanged), 4)
	for _, e := range em.of(server.EventValueChanged) {
		assert.Equal(t, id, e.room)
	}

	// --- Act: toggle and edit ---
	w = do(t, s, http.MethodPut, "/sessions/"+id+"/groups/vir", map[string]string{"output": "voltage"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, s, http.MethodPut, "/sessions/"+id+"/variables/current", map[string]string{"value": "200"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// --- Assert ---
	st = decodeState(t, w)
	assert.Equal(t, "10 V", variable(st, "voltage").Formatted)
	assert.Equal(t, "output", variable(st, "voltage").Direction)
	values := em.of(server.EventValueChanged)
	last := values[len(values)-1].payload.(server.ValuePayload)
	assert.Contains(t, []string{"voltage", "power"}, last.Variable)

	// --- Act: unit ---
	w = do(t, s, http.MethodPut, "/sessions/"+id+"/variables/voltage/unit", map[string]string{"unit": "mV"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10000 mV", variable(decodeState(t, w), "voltage").Formatted)

	// --- Act: close ---
	w = do(t, s, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/sessions", map[string]any{"calculator": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/sessions", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/sessions", map[string]any{"calculator": "ohms_law"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeState(t, w).ID

	w = do(t, s, http.MethodPut, "/sessions/"+id+"/variables/resistance", map[string]string{"value": "1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, http.MethodPut, "/sessions/"+id+"/variables/nope", map[string]string{"value": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPut, "/sessions/"+id+"/groups/nope", map[string]string{"output": "voltage"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditRateLimit(t *testing.T) {
	// --- Arrange ---
	// A near-zero rate leaves only the burst.
	s, _ := newTestServer(t, server.WithEditRate(0.001, 2))
	w := do(t, s, http.MethodPost, "/sessions", map[string]any{"calculator": "ohms_law"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeState(t, w).ID
	path := "/sessions/" + id + "/variables/voltage"

	// --- Act ---
	first := do(t, s, http.MethodPut, path, map[string]string{"value": "5"})
	second := do(t, s, http.MethodPut, path, map[string]string{"value": "6"})
	third := do(t, s, http.MethodPut, path, map[string]string{"value": "7"})

	// --- Assert ---
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Contains(t, third.Body.String(), "too many edits")

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/sessions/"+id, nil).Code)
}
