package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/types"
	"github.com/stakevault/nft-staking-service/internal/utils"
)

// subscriberBufferSize is the per-connection event backlog. A subscriber that
// falls further behind than this loses events and must re-sync from the
// /v1/events journal.
const subscriberBufferSize = 32

// SubscribeEvents upgrades the connection to a websocket and streams ledger
// events as they are committed. The feed is best effort; the archived journal
// is the source of truth.
func (h *Handler) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return h.isAllowedOrigin(r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the handshake error to the client.
		log.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan types.Event, subscriberBufferSize)
	h.bus.Subscribe(ch)
	defer h.bus.Unsubscribe(ch)

	// The read loop exists to surface the client closing the connection;
	// inbound messages are not part of the protocol.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case event := <-ch:
			if err := conn.WriteJSON(event); err != nil {
				log.Ctx(r.Context()).Debug().Err(err).Msg("websocket write failed, dropping subscriber")
				return
			}
		}
	}
}

func (h *Handler) isAllowedOrigin(origin string) bool {
	// Non-browser clients send no Origin header.
	if origin == "" {
		return true
	}
	allowed := h.config.Server.AllowedOrigins
	return utils.Contains(allowed, "*") || utils.Contains(allowed, origin)
}
