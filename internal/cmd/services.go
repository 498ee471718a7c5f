package main

import (
	"github.com/easypoll/easypoll/internal/gateway"
	"github.com/easypoll/easypoll/internal/poll"
	"github.com/jonboulle/clockwork"
)

type Services struct {
	Store             *poll.Store
	Timers            *poll.TimerService
	Engine            *poll.Engine
	ConnectionManager *gateway.ConnectionManager
	Gateway           *gateway.SessionGateway
	Handler           *gateway.WebSocketHandler
}

func setupServices(config *Config) *Services {
	// Wiring order matters: the connection manager is the engine's
	// broadcaster, and the session gateway closes the loop as the
	// manager's inbound dispatcher.
	wsConfig := gateway.DefaultConnectionConfig()
	wsConfig.WriteTimeout = config.websocketTimeout(config.WebSocket.WriteTimeoutSec, wsConfig.WriteTimeout)
	wsConfig.ReadTimeout = config.websocketTimeout(config.WebSocket.ReadTimeoutSec, wsConfig.ReadTimeout)
	wsConfig.PingInterval = config.websocketTimeout(config.WebSocket.PingIntervalSec, wsConfig.PingInterval)

	cm := gateway.NewConnectionManager(wsConfig)

	store := poll.NewStore()
	timers := poll.NewTimerService(clockwork.NewRealClock())
	engine := poll.NewEngine(store, timers, cm)

	sessionGateway := gateway.NewSessionGateway(store, engine, cm)
	cm.SetDispatcher(sessionGateway)

	return &Services{
		Store:             store,
		Timers:            timers,
		Engine:            engine,
		ConnectionManager: cm,
		Gateway:           sessionGateway,
		Handler:           gateway.NewWebSocketHandler(cm),
	}
}
