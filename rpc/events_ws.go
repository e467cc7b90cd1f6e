package rpc

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cosmicpool/cosmicpool/types"
)

const (
	wsWriteWait   = 5 * time.Second
	wsPingPeriod  = 30 * time.Second
	wsReplayBatch = 100
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

/*
eventStream sends the event log starting from the "from" query parameter and
then keeps streaming new events as they are accepted. Each message is a JSON
encoded EventResponse, sequence numbers are strictly increasing without gaps.
*/
func (api *ledgerAPI) eventStream(w http.ResponseWriter, r *http.Request) {
	next, err := parseUint(r.URL.Query().Get(paramFrom), 1)
	if err != nil {
		api.rw.InvalidParamResponse(w, paramFrom, err)
		return
	}
	if next == 0 {
		next = 1
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		api.log.Debug("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// server read timeout also applies to the hijacked connection, from now on
	// the peer must answer pings instead
	readWait := wsPingPeriod + wsWriteWait
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	// the client is not expected to send anything, reading is needed to
	// process control frames and to notice when the connection goes away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(from uint64) (uint64, error) {
		for {
			events, err := api.ledger.Events(from, wsReplayBatch)
			if err != nil {
				return from, err
			}
			for _, ev := range events {
				if from, err = sendEvent(conn, ev); err != nil {
					return from, err
				}
			}
			if len(events) < wsReplayBatch {
				return from, nil
			}
		}
	}

	// subscribe before replaying so nothing accepted meanwhile is missed
	sub := api.ledger.Subscribe()
	defer func() { sub.Close() }()
	if next, err = send(next); err != nil {
		api.log.Debug("event stream: %v", err)
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case ev, ok := <-sub.C:
			if !ok {
				// dropped for being too slow, catch up from the log
				sub = api.ledger.Subscribe()
				if next, err = send(next); err != nil {
					api.log.Debug("event stream: %v", err)
					return
				}
				continue
			}
			switch {
			case ev.DepositCount < next:
				continue
			case ev.DepositCount > next:
				next, err = send(next)
			default:
				next, err = sendEvent(conn, ev)
			}
			if err != nil {
				api.log.Debug("event stream: %v", err)
				return
			}
		}
	}
}

func sendEvent(conn *websocket.Conn, ev *types.DepositEvent) (uint64, error) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(NewEventResponse(ev)); err != nil {
		return ev.DepositCount, err
	}
	return ev.DepositCount + 1, nil
}
