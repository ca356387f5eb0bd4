package http

import (
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/app"
	"github.com/tavernkeep/tavern/internal/dice"
	"github.com/tavernkeep/tavern/internal/domain"
)

type SessionController struct {
	coord *app.Coordinator

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSessionController(coord *app.Coordinator) *SessionController {
	return &SessionController{
		coord: coord,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type createSessionRequest struct {
	Name     string `json:"name" binding:"required"`
	HostName string `json:"hostName"`
}

func (ctl *SessionController) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
		return
	}

	session, err := ctl.coord.Directory.CreateSession(c.Request.Context(), req.Name, req.HostName)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNameEmpty) || errors.Is(err, domain.ErrNameTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (ctl *SessionController) resolveByCode(c *gin.Context) {
	session, err := ctl.coord.Directory.ResolveByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("resolve by code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (ctl *SessionController) join(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))
	member, err := ctl.coord.Directory.Join(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, domain.ErrRoomFull):
			c.JSON(http.StatusForbidden, gin.H{"error": "room is full"})
		default:
			log.Error().Err(err).Str("module", "adapters.http").Msg("join session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join session"})
		}
		return
	}
	c.JSON(http.StatusCreated, member)
}

type createCharacterRequest struct {
	Name  string `json:"name" binding:"required"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"maxHp"`
}

func (ctl *SessionController) createCharacter(c *gin.Context) {
	memberID := domain.MemberID(c.Param("id"))
	if _, err := ctl.coord.Store.MemberByID(c.Request.Context(), memberID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("lookup member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create character"})
		return
	}

	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
		return
	}

	character := domain.NewCharacter(memberID, req.Name, req.HP, req.MaxHP)
	if err := ctl.coord.Store.CreateCharacter(c.Request.Context(), character); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create character")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create character"})
		return
	}
	c.JSON(http.StatusCreated, character)
}

// sessionState is the full reload every client performs on connect: the
// channel carries deltas only, so this is the reconciliation path.
type sessionState struct {
	Session   *domain.Session   `json:"session"`
	Members   []domain.Member   `json:"members"`
	TurnState *domain.TurnState `json:"turnState"`
	CombatLog []string          `json:"combatLog"`
}

func (ctl *SessionController) state(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := domain.SessionID(c.Param("id"))

	session, err := ctl.coord.Store.SessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("load session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load state"})
		return
	}

	members, err := ctl.coord.Store.Members(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("load members")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load state"})
		return
	}

	ts, err := ctl.coord.Store.TurnState(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		ts = &domain.TurnState{SessionID: sessionID}
	} else if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("load turn state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load state"})
		return
	}

	combatLog, err := ctl.coord.Store.CombatLog(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("load combat log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load state"})
		return
	}

	c.JSON(http.StatusOK, sessionState{
		Session:   session,
		Members:   members,
		TurnState: ts,
		CombatLog: combatLog,
	})
}

type rollRequest struct {
	Expr string `json:"expr" binding:"required"`
}

func (ctl *SessionController) roll(c *gin.Context) {
	var req rollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing expr"})
		return
	}

	ctl.mu.Lock()
	result, err := dice.Roll(req.Expr, ctl.rng)
	ctl.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dice expression"})
		return
	}
	c.JSON(http.StatusOK, result)
}
