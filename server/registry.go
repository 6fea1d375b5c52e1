package server

import (
	"fmt"
	"sync"
	"time"

	"evcs/internal"
	"evcs/utility"
)

// Session is a live charge point connection. The registry is the single
// owner of the transport handle; handlers borrow it per call.
type Session struct {
	ws            *WebSocket
	connectedAt   time.Time
	lastHeartbeat time.Time
}

type SessionInfo struct {
	ChargePointId string    `json:"charge_point_id"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	IsConnected   bool      `json:"is_connected"`
	Transactions  int64     `json:"transactions"`
}

type Registry struct {
	sessions map[string]*Session
	mutex    sync.Mutex
	database internal.Database
	logger   internal.LogHandler
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) SetDatabase(database internal.Database) {
	r.database = database
}

func (r *Registry) SetLogger(logger internal.LogHandler) {
	r.logger = logger
}

// Register records a new session. A reconnect replaces the previous entry;
// last connection wins and the stale socket is closed.
func (r *Registry) Register(chargePointId string, ws *WebSocket) {
	r.mutex.Lock()
	prior, ok := r.sessions[chargePointId]
	now := time.Now().UTC()
	r.sessions[chargePointId] = &Session{
		ws:            ws,
		connectedAt:   now,
		lastHeartbeat: now,
	}
	count := len(r.sessions)
	r.mutex.Unlock()

	if ok && prior.ws != ws && !prior.ws.IsClosed() {
		prior.ws.markClosed()
		_ = prior.ws.conn.Close()
		if r.logger != nil {
			r.logger.Warn(fmt.Sprintf("replaced stale session for %s", chargePointId))
		}
	}
	observeConnections(count)
	r.setConnected(chargePointId, true, now)
}

// Heartbeat refreshes liveness. Unknown identities are a no-op.
func (r *Registry) Heartbeat(chargePointId string) {
	r.mutex.Lock()
	session, ok := r.sessions[chargePointId]
	now := time.Now().UTC()
	if ok {
		session.lastHeartbeat = now
	}
	r.mutex.Unlock()
	if !ok {
		return
	}
	if r.database != nil {
		chargePoint, err := r.database.GetChargePoint(chargePointId)
		if err == nil && chargePoint != nil {
			chargePoint.LastHeartbeat = now
			if err = r.database.UpdateChargePoint(chargePoint); err != nil && r.logger != nil {
				r.logger.Error("updating heartbeat", err)
			}
		}
	}
}

// Lookup returns the live socket. Absence is a normal outcome callers
// branch on, signalled as a NotConnected error.
func (r *Registry) Lookup(chargePointId string) (*WebSocket, error) {
	r.mutex.Lock()
	session, ok := r.sessions[chargePointId]
	r.mutex.Unlock()
	if !ok || session.ws.IsClosed() {
		return nil, utility.NotConnectedErr(fmt.Sprintf("charge point %s is not connected", chargePointId))
	}
	return session.ws, nil
}

// Unregister drops a session on transport close. The socket is matched so
// a close racing a reconnect cannot drop the fresh session.
func (r *Registry) Unregister(chargePointId string, ws *WebSocket) {
	r.mutex.Lock()
	session, ok := r.sessions[chargePointId]
	if ok && session.ws == ws {
		delete(r.sessions, chargePointId)
	} else {
		ok = false
	}
	count := len(r.sessions)
	r.mutex.Unlock()
	if !ok {
		return
	}
	observeConnections(count)
	r.setConnected(chargePointId, false, time.Now().UTC())
	if r.logger != nil {
		r.logger.Debug(fmt.Sprintf("session closed for %s", chargePointId))
	}
}

// ListAll takes a snapshot under the lock and counts transactions outside
// it, so a slow store cannot block connects.
func (r *Registry) ListAll() []SessionInfo {
	r.mutex.Lock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for id, session := range r.sessions {
		infos = append(infos, SessionInfo{
			ChargePointId: id,
			ConnectedAt:   session.connectedAt,
			LastHeartbeat: session.lastHeartbeat,
			IsConnected:   !session.ws.IsClosed(),
		})
	}
	r.mutex.Unlock()

	if r.database != nil {
		for i := range infos {
			count, err := r.database.CountTransactions(infos[i].ChargePointId)
			if err == nil {
				infos[i].Transactions = count
			}
		}
	}
	return infos
}

func (r *Registry) Count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.sessions)
}

func (r *Registry) setConnected(chargePointId string, connected bool, at time.Time) {
	if r.database == nil {
		return
	}
	chargePoint, err := r.database.GetChargePoint(chargePointId)
	if err != nil || chargePoint == nil {
		return
	}
	chargePoint.IsConnected = connected
	if connected {
		chargePoint.LastHeartbeat = at
	}
	if err = r.database.UpdateChargePoint(chargePoint); err != nil && r.logger != nil {
		r.logger.Error("updating connection status", err)
	}
}
