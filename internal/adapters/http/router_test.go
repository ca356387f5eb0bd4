package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tavernkeep/tavern/internal/app"
	"github.com/tavernkeep/tavern/internal/config"
	"github.com/tavernkeep/tavern/internal/core"
	"github.com/tavernkeep/tavern/internal/domain"
	"github.com/tavernkeep/tavern/internal/storage/sqlite"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tavern.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := core.NewHub()
	logs := app.NewCombatLog(store, hub)
	rng := rand.New(rand.NewSource(1))
	coord := &app.Coordinator{
		Store:     store,
		Hub:       hub,
		Registry:  app.NewRegistry(),
		Directory: app.NewDirectory(store, rng),
		Combat:    app.NewCombat(store, hub, logs, func() int { return 10 }),
		Logs:      logs,
	}
	cfg := &config.Config{
		Mode:       "release",
		StaticPath: t.TempDir(),
		Secret:     "test-secret",
	}
	return Setup(context.Background(), cfg, coord)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestCreateAndResolveSession(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{"name": "Goblin Ambush", "hostName": "Mira"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	created := decodeBody[domain.Session](t, w)
	if !domain.IsValidRoomCode(created.RoomCode) {
		t.Fatalf("room code %q invalid", created.RoomCode)
	}

	w = doJSON(t, r, http.MethodGet, "/api/sessions/code/"+created.RoomCode, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve status = %d", w.Code)
	}
	resolved := decodeBody[domain.Session](t, w)
	if resolved.ID != created.ID || resolved.Name != "Goblin Ambush" {
		t.Fatalf("resolved = %+v", resolved)
	}

	if w = doJSON(t, r, http.MethodGet, "/api/sessions/code/000000", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown code status = %d, want 404", w.Code)
	}
	if w = doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{"hostName": "Mira"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing name status = %d, want 400", w.Code)
	}
}

func TestJoinUntilFull(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{"name": "Full Table"})
	created := decodeBody[domain.Session](t, w)
	path := fmt.Sprintf("/api/sessions/%s/members", created.ID)

	for i := 0; i < domain.MaxMembers; i++ {
		if w = doJSON(t, r, http.MethodPost, path, nil); w.Code != http.StatusCreated {
			t.Fatalf("join %d status = %d, body %s", i, w.Code, w.Body.String())
		}
	}
	if w = doJSON(t, r, http.MethodPost, path, nil); w.Code != http.StatusForbidden {
		t.Fatalf("join past capacity status = %d, want 403", w.Code)
	}
	if w = doJSON(t, r, http.MethodPost, "/api/sessions/missing/members", nil); w.Code != http.StatusNotFound {
		t.Fatalf("join unknown session status = %d, want 404", w.Code)
	}
}

func TestCharacterAndState(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{"name": "Sheets", "hostName": "Mira"})
	created := decodeBody[domain.Session](t, w)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sessions/%s/members", created.ID), nil)
	member := decodeBody[domain.Member](t, w)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/members/%s/character", member.ID),
		gin.H{"name": "Aria", "hp": 10, "maxHp": 10})
	if w.Code != http.StatusCreated {
		t.Fatalf("create character status = %d, body %s", w.Code, w.Body.String())
	}
	if w = doJSON(t, r, http.MethodPost, "/api/members/missing/character", gin.H{"name": "X"}); w.Code != http.StatusNotFound {
		t.Fatalf("character for unknown member status = %d, want 404", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/sessions/%s/state", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state status = %d, body %s", w.Code, w.Body.String())
	}
	var state struct {
		Session   domain.Session    `json:"session"`
		Members   []domain.Member   `json:"members"`
		TurnState *domain.TurnState `json:"turnState"`
		CombatLog []string          `json:"combatLog"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Session.ID != created.ID {
		t.Fatalf("state session = %+v", state.Session)
	}
	if len(state.Members) != 1 || state.Members[0].Character == nil || state.Members[0].Character.Name != "Aria" {
		t.Fatalf("state members = %+v", state.Members)
	}
	// No combat yet: the reload still carries a concrete inactive state.
	if state.TurnState == nil || state.TurnState.Active {
		t.Fatalf("state turn state = %+v", state.TurnState)
	}
	if len(state.CombatLog) != 0 {
		t.Fatalf("state combat log = %v", state.CombatLog)
	}
}

func TestRollEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/roll", gin.H{"expr": "2d6+3"})
	if w.Code != http.StatusOK {
		t.Fatalf("roll status = %d, body %s", w.Code, w.Body.String())
	}
	var result struct {
		Total    int   `json:"total"`
		Rolls    []int `json:"rolls"`
		Modifier int   `json:"modifier"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode roll: %v", err)
	}
	if len(result.Rolls) != 2 || result.Modifier != 3 {
		t.Fatalf("roll result = %+v", result)
	}
	sum := result.Modifier
	for _, v := range result.Rolls {
		if v < 1 || v > 6 {
			t.Fatalf("die out of range: %d", v)
		}
		sum += v
	}
	if result.Total != sum {
		t.Fatalf("total = %d, want %d", result.Total, sum)
	}

	if w = doJSON(t, r, http.MethodPost, "/api/roll", gin.H{"expr": "d6"}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid expr status = %d, want 400", w.Code)
	}
}
