package realtime

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type positionFrame struct {
	Position map[string]float64 `json:"position"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// HandlePositionSocket upgrades GET /ws/position. Every client text message
// is treated as a keep-alive and answered with the current position, or an
// error frame when no mission has emitted one.
func HandlePositionSocket(b *Broadcaster, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		b.Register(conn)
		defer b.Unregister(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			var payload []byte
			if pos, ok := b.source.CurrentPosition(); ok {
				payload, err = json.Marshal(positionFrame{
					Position: map[string]float64{"lat": pos.Lat, "lng": pos.Lng},
				})
			} else {
				payload, err = json.Marshal(errorFrame{Error: "No active position"})
			}
			if err != nil {
				log.WithError(err).Error("marshaling position frame")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
