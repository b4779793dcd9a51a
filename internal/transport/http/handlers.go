// Package http serves the read-only admin API over the relay state.
package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Cast/internal/app/orch"
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
)

type SessionsResponse struct {
	Sessions []core.SessionInfo `json:"sessions"`
}

type ICEServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

type API struct {
	Orch       *orch.Orchestrator
	ICEServers []webrtc.ICEServer
}

func (a *API) Register(g *gin.RouterGroup) {
	g.GET("/stats", a.handleStats)
	g.GET("/sessions", a.handleSessions)
	g.GET("/sessions/:id", a.handleSession)
	g.GET("/ice-servers", a.handleICEServers)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, a.Orch.Stats())
}

func (a *API) handleSessions(c *gin.Context) {
	list := a.Orch.Sessions.List()
	if list == nil {
		list = []core.SessionInfo{}
	}
	c.JSON(http.StatusOK, SessionsResponse{Sessions: list})
}

func (a *API) handleSession(c *gin.Context) {
	sid, err := domain.ParseSessionID(c.Param("id"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrIDEmpty) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	info, ok := a.Orch.Sessions.Info(sid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": orch.ErrSessionNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (a *API) handleICEServers(c *gin.Context) {
	servers := a.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	c.JSON(http.StatusOK, ICEServersResponse{ICEServers: servers})
}
