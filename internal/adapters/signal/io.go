package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsConn) {
	pingPeriod := ctl.pingPeriod
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Info().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cid core.ChannelID, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("channel", string(cid)).Msg("readPump closing")
		// ctx may already be cancelled here; the disconnect still has
		// to reach the store.
		ctl.handleDisconnect(context.Background(), cid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("channel", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("channel", string(cid)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(ctx, cid, c, data)
		}
	}
}

func (ctl *Controller) handleEvent(ctx context.Context, cid core.ChannelID, c *WsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case "dm:join":
		ctl.handleHostJoin(ctx, cid, c, data)
	case "player:join":
		ctl.handlePlayerJoin(ctx, cid, c, data)
	case "dm:start-combat":
		ctl.handleStartCombat(ctx, cid, c, data)
	case "dm:end-combat":
		ctl.handleEndCombat(ctx, cid, c, data)
	case "dm:next-turn":
		ctl.handleNextTurn(ctx, cid, c, data)
	case "dm:update-initiative":
		ctl.handleUpdateInitiative(ctx, cid, c, data)
	case "player:roll-initiative":
		ctl.handleRollInitiative(ctx, cid, c, data)
	case "dm:combat-log":
		ctl.handleCombatLog(ctx, cid, c, data)
	case "dm:update-game-state", "dm:update-monster", "dm:update-item",
		"dm:award-xp", "dm:give-loot", "player:action":
		ctl.handleRelay(cid, c, env.Type, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}
