package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fosdem/glupload/lib/upload"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(req *http.Request) bool {
		return true
	},
}

// MethodChangedEvent is sent to websocket clients when the session picks
// another upload method.
type MethodChangedEvent struct {
	Event string `json:"event"`
	upload.MethodEvent
}

// PublishMethodEvent queues ev for every websocket client. Clients that do
// not keep up miss events.
func (a *Api) PublishMethodEvent(ev upload.MethodEvent) {
	packet, err := json.Marshal(MethodChangedEvent{Event: "method-changed", MethodEvent: ev})
	if err != nil {
		return
	}
	a.wsMu.Lock()
	defer a.wsMu.Unlock()
	for _, send := range a.wsClients {
		select {
		case send <- packet:
		default:
		}
	}
}

// @Summary	Open websocket for realtime status information
// @Router		/api/ws [get]
// @Param		Upgrade	header	string	true	"websocket"
// @Tags		base
// @Success	101
func (a *Api) handleWebsocket(w http.ResponseWriter, req *http.Request) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("couldn't make websocket: %s", err))
		return
	}
	send := make(chan []byte, 16)
	a.setWsClient(ws, send)
	done := make(chan struct{})
	go a.websocketWriter(ws, send, done)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			break
		}
		a.logger.Debug(fmt.Sprintf("Received: %s", msg))
	}
	a.setWsClient(ws, nil)
	close(done)
}

func (a *Api) setWsClient(ws *websocket.Conn, send chan []byte) {
	a.wsMu.Lock()
	if send != nil {
		a.wsClients[ws] = send
	} else {
		delete(a.wsClients, ws)
	}
	n := len(a.wsClients)
	a.wsMu.Unlock()
	a.Stats.SetWsClients(n)
}

func (a *Api) websocketWriter(ws *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	pingTicker := time.NewTicker(2 * time.Second)
	defer func() {
		pingTicker.Stop()
		err := ws.Close()
		if err != nil {
			a.logger.Debug(fmt.Sprintf("could not close websocket: %s", err))
		}
	}()
	timeout := 10 * time.Second
	write := func(packet []byte) bool {
		err := ws.SetWriteDeadline(time.Now().Add(timeout))
		if err != nil {
			a.logger.Warn(fmt.Sprintf("could not set write deadline: %s", err))
			return false
		}
		return ws.WriteMessage(websocket.TextMessage, packet) == nil
	}

	for {
		select {
		case <-done:
			return
		case packet := <-send:
			if !write(packet) {
				return
			}
		case <-pingTicker.C:
			packet, err := json.Marshal(a.Stats.Snapshot())
			if err != nil || !write(packet) {
				return
			}
		}
	}
}
