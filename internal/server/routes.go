package server

import (
	"encoding/json"
	"net/http"
	"time"

	"lvdt_go/internal/api"
	"lvdt_go/internal/discovery"
	"lvdt_go/internal/websocket"
	"lvdt_go/pkg/utils"
)

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	wsHandler := websocket.NewHandler(s.wsHub)
	apiRouter := api.NewRouter(api.NewHandler(s.laserService, s.redisService), "/api")

	s.router.HandleFunc("/health", s.healthHandler)
	s.router.HandleFunc("/info", s.infoHandler)

	// Rotas exatas têm precedência sobre o prefixo /api/
	s.router.HandleFunc("/api/discover", s.discoverHandler)
	s.router.HandleFunc("/api/server-info", s.serverInfoHandler)
	s.router.Handle(apiRouter.BasePath()+"/", apiRouter)

	s.router.Handle("/ws", wsHandler)
	s.router.HandleFunc("/ws/health", wsHandler.GetHealthHandler())

	s.handler = api.Chain(api.LoggingMiddleware, api.RecoveryMiddleware, api.CorsMiddleware)(s.router)
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	laserStatus := "ok"
	if s.laserService == nil || !s.laserService.IsRunning() {
		laserStatus = "offline"
	}

	plcStatus := "disabled"
	if s.config.PLC.Enabled {
		if s.plcService != nil && s.plcService.IsRunning() {
			plcStatus = "ok"
		} else {
			plcStatus = "offline"
		}
	}

	redisStatus := "disabled"
	if s.config.Redis.Enabled {
		redisStatus = "ok"
		if s.redisService == nil || !s.redisService.IsConnected() {
			redisStatus = "offline"
		}
	}

	discoveryStatus := "disabled"
	if s.discoveryService != nil {
		discoveryStatus = "ok"
		if !s.discoveryService.IsRunning() {
			discoveryStatus = "offline"
		}
	}

	acquisition := s.laserService.GetStatus().Status

	response := map[string]interface{}{
		"status":      "ok",
		"timestamp":   time.Now(),
		"acquisition": acquisition,
		"services": map[string]string{
			"laser":     laserStatus,
			"redis":     redisStatus,
			"plc":       plcStatus,
			"websocket": "ok",
			"discovery": discoveryStatus,
		},
	}

	if laserStatus == "offline" || redisStatus == "offline" {
		response["status"] = "degraded"
	}

	writeJSON(w, response)
}

// infoHandler retorna informações básicas sobre o servidor
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()
	uptime := utils.FormatDuration(time.Since(info.StartTime))

	writeJSON(w, map[string]interface{}{
		"name":        "LVDT Laser Monitor",
		"version":     info.Version,
		"ip":          info.IP,
		"port":        info.Port,
		"websocket":   info.WebSocketURL,
		"api":         info.APIURL,
		"startTime":   info.StartTime,
		"uptime":      uptime,
		"connections": info.Connections,
		"program":     s.laserService.GetProgramInfo().Index,
	})
}

// serverInfoHandler retorna informações completas sobre o servidor
func (s *Server) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()
	uptime := utils.FormatDuration(time.Since(info.StartTime))

	discoveryInfo := map[string]interface{}{
		"enabled":     s.discoveryService != nil,
		"running":     s.discoveryService != nil && s.discoveryService.IsRunning(),
		"serviceType": discovery.ServiceType,
	}
	if s.discoveryService != nil {
		discoveryInfo["instanceName"] = s.discoveryService.GetInstanceName()
	}

	writeJSON(w, map[string]interface{}{
		"server": map[string]interface{}{
			"name":        "LVDT Laser Monitor",
			"version":     info.Version,
			"ip":          info.IP,
			"port":        info.Port,
			"websocket":   info.WebSocketURL,
			"api":         info.APIURL,
			"startTime":   info.StartTime,
			"uptime":      uptime,
			"connections": info.Connections,
		},
		"discovery": discoveryInfo,
		"services": map[string]interface{}{
			"laser": map[string]interface{}{
				"running": s.laserService != nil && s.laserService.IsRunning(),
				"host":    s.config.Laser.Host,
				"port":    s.config.Laser.Port,
				"tag":     s.config.Laser.Tag,
			},
			"storage": map[string]interface{}{
				"root": s.config.Storage.Root,
				"s3":   s.config.Storage.S3.Enabled,
			},
			"redis": map[string]interface{}{
				"enabled":   s.config.Redis.Enabled,
				"connected": s.redisService != nil && s.redisService.IsConnected(),
				"host":      s.config.Redis.Host,
				"port":      s.config.Redis.Port,
			},
			"plc": map[string]interface{}{
				"enabled": s.config.PLC.Enabled,
				"running": s.plcService != nil && s.plcService.IsRunning(),
				"host":    s.config.PLC.Host,
			},
		},
	})
}

// discoverHandler fornece informações para descoberta manual
func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()

	writeJSON(w, map[string]interface{}{
		"name":        "LVDT Laser Monitor",
		"ip":          info.IP,
		"port":        info.Port,
		"wsUrl":       info.WebSocketURL,
		"apiUrl":      info.APIURL,
		"version":     info.Version,
		"wsEndpoint":  "/ws",
		"apiEndpoint": "/api",
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
