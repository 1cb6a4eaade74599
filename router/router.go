package router

import (
	"net/http"

	docHandler "docuflow/internal/document"
	"docuflow/internal/document/service"
	"docuflow/middleware"
	"docuflow/socket"

	"github.com/gorilla/mux"
)

// Setup builds the route table. Paths not matched by the API are served from
// staticDir; an empty staticDir disables the fallback.
func Setup(docService *service.DocumentService, hub *socket.Hub, staticDir string) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.AccessLog)

	docHandler.NewDocumentHandler(docService).RegisterRoutes(r)

	// Change feed
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		socket.ServeWs(hub, w, req)
	}).Methods(http.MethodGet)

	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}

	return middleware.CORSMiddleware(r)
}
