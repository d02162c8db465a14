package api

import (
	"net/http"
	"strings"

	"lvdt_go/pkg/logger"
)

// Router gerencia as rotas da API
type Router struct {
	handler  *Handler
	mux      *http.ServeMux
	basePath string
	chained  http.Handler
}

// NewRouter cria um novo router para a API
func NewRouter(handler *Handler, basePath string, middlewares ...Middleware) *Router {
	// Normalizar base path
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")

	if len(middlewares) == 0 {
		middlewares = []Middleware{RecoveryMiddleware}
	}

	r := &Router{
		handler:  handler,
		mux:      http.NewServeMux(),
		basePath: basePath,
	}
	r.setup()
	r.chained = Chain(middlewares...)(r.mux)
	return r
}

// setup configura todas as rotas
func (r *Router) setup() {
	r.mux.HandleFunc(r.path("/status"), r.handler.GetStatus)
	r.mux.HandleFunc(r.path("/program"), r.handler.Program)
	r.mux.HandleFunc(r.path("/current"), r.handler.GetCurrent)
	r.mux.HandleFunc(r.path("/history"), r.handler.GetHistory)
	r.mux.HandleFunc(r.path("/files"), r.handler.GetFiles)

	logger.Debugf("API configurada com base path: %s", r.basePath)
}

// BasePath retorna o prefixo das rotas
func (r *Router) BasePath() string {
	return r.basePath
}

// ServeHTTP implementa a interface http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.chained.ServeHTTP(w, req)
}

// path retorna o caminho completo para uma rota
func (r *Router) path(route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return r.basePath + route
}
