package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/core"
	"github.com/tavernkeep/tavern/internal/domain"
)

// relayOut maps pass-through inbound events to the name the rest of the
// session receives them under. Payloads are opaque to the server; state
// for these lives with whichever party owns it and is mirrored to the
// store through the HTTP API.
var relayOut = map[string]string{
	"dm:update-game-state": "game-state:updated",
	"dm:update-monster":    "monster:updated",
	"dm:update-item":       "item:updated",
	"dm:award-xp":          "xp:awarded",
	"dm:give-loot":         "loot:received",
	"player:action":        "player:action-pending",
}

func (ctl *Controller) handleRelay(cid core.ChannelID, c *WsConn, inType string, data []byte) {
	sessionID, _, _, ok := ctl.Coord.Registry.BindingOf(cid)
	if !ok {
		ctl.sendError(c, "not joined")
		return
	}

	type payload struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		Data      json.RawMessage  `json:"data"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	out, err := json.Marshal(payload{
		Type:      relayOut[inType],
		SessionID: sessionID,
		Data:      p.Data,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal relay")
		return
	}
	if group, ok := ctl.Coord.Hub.Get(sessionID); ok {
		group.Broadcast(cid, out)
	}
}
