// Package api serves the daemon's HTTP interface.
//
//	@title			glupload
//	@version		1.0
//	@description	Control and status of a texture upload session
//	@BasePath		/
package api

//go:generate go tool swag init -g api.go -o docs --parseDependency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fosdem/glupload/lib/api/docs"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/config"
	"github.com/fosdem/glupload/lib/metrics"
	"github.com/fosdem/glupload/lib/rendering"
	"github.com/fosdem/glupload/lib/source"
	"github.com/fosdem/glupload/lib/stats"
	"github.com/fosdem/glupload/lib/upload"
)

// Controller is the part of the pipeline the API works on.
type Controller interface {
	Context() rendering.Context
	Session() *upload.Upload
	Source() source.Source
	Kill()
}

type Api struct {
	srv    http.Server
	mux    *http.ServeMux
	cfg    *config.ApiCfg
	ctrl   Controller
	logger *slog.Logger

	Stats *stats.Stats

	wsMu      sync.Mutex
	wsClients map[*websocket.Conn]chan []byte
}

func New(cfg *config.ApiCfg, s *stats.Stats, ctrl Controller) *Api {
	a := &Api{}
	a.cfg = cfg
	a.mux = http.NewServeMux()
	a.ctrl = ctrl
	a.srv.Addr = cfg.Bind
	a.srv.Handler = a.mux
	a.wsClients = make(map[*websocket.Conn]chan []byte)
	a.logger = slog.Default().With(slog.String("module", "api"))
	a.Stats = s

	if a.cfg.EnableProfiler {
		a.mux.HandleFunc("/prof", a.profileCPU)
	}
	a.mux.HandleFunc("/api/kill", a.suicide)
	a.mux.HandleFunc("/api/stats", a.getStats)
	a.mux.HandleFunc("GET /api/caps", a.getCaps)
	a.mux.HandleFunc("POST /api/transform", a.transformCaps)
	a.mux.HandleFunc("/api/ws", a.handleWebsocket)
	a.mux.HandleFunc("/api/source/image", a.handleSourceImage)
	a.mux.Handle("/metrics", metrics.Handler())
	a.mux.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	return a
}

func (a *Api) Handler() http.Handler {
	return a.mux
}

func (a *Api) Serve() error {
	return a.srv.ListenAndServe()
}

func (a *Api) ServeInBackground() {
	a.logger.Info(fmt.Sprintf("starting web server on %s", a.cfg.Bind))
	go func() {
		err := a.Serve()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(fmt.Sprintf("could not start web server: %s", err))
		}
	}()
}

func (a *Api) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return a.srv.Shutdown(ctx)
}

func (a *Api) profileCPU(w http.ResponseWriter, _ *http.Request) {
	err := pprof.StartCPUProfile(w)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not start CPU profile: %s", err), http.StatusInternalServerError)
		return
	}
	time.Sleep(10 * time.Second)
	pprof.StopCPUProfile()
}

// @Summary	Stop the daemon
// @Router		/api/kill [get]
// @Tags		base
// @Success	200	{string}	string	"ok"
func (a *Api) suicide(w http.ResponseWriter, _ *http.Request) {
	a.logger.Info("shutting down as per api request")
	a.ctrl.Kill()
	a.writeOK(w)
}

// @Summary	Upload statistics
// @Router		/api/stats [get]
// @Tags		base
// @Produce	json
// @Success	200	{object}	stats.Snapshot
func (a *Api) getStats(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, a.Stats.Snapshot())
}

type CapsResponse struct {
	Template string `json:"template"`
	Input    string `json:"input"`
	Output   string `json:"output"`
	State    string `json:"state"`
	Method   string `json:"method"`
}

// @Summary	Negotiated formats and the selected upload method
// @Router		/api/caps [get]
// @Tags		upload
// @Produce	json
// @Success	200	{object}	CapsResponse
func (a *Api) getCaps(w http.ResponseWriter, _ *http.Request) {
	session := a.ctrl.Session()
	in, out := session.Caps()
	state, method := session.State()
	a.writeJSON(w, CapsResponse{
		Template: session.Registry().InputTemplateCaps().String(),
		Input:    in.String(),
		Output:   out.String(),
		State:    state.String(),
		Method:   method,
	})
}

type TransformRequest struct {
	// Direction is "sink" to get output formats or "src" to get input
	// formats
	Direction string `json:"direction"`
	Caps      string `json:"caps"`
	Filter    string `json:"filter,omitempty"`
}

type TransformResponse struct {
	Caps string `json:"caps"`
}

// @Summary	Formats reachable from the given caps through any upload method
// @Router		/api/transform [post]
// @Tags		upload
// @Accept		json
// @Produce	json
// @Param		request	body		TransformRequest	true	"caps to transform"
// @Success	200		{object}	TransformResponse
// @Failure	400		{string}	string	"The request could not be parsed"
func (a *Api) transformCaps(w http.ResponseWriter, req *http.Request) {
	var treq TransformRequest
	if err := json.NewDecoder(req.Body).Decode(&treq); err != nil {
		http.Error(w, fmt.Sprintf("could not decode json request: %s", err), http.StatusBadRequest)
		return
	}
	var direction upload.Direction
	switch treq.Direction {
	case "sink", "":
		direction = upload.DirectionSink
	case "src":
		direction = upload.DirectionSrc
	default:
		http.Error(w, fmt.Sprintf("unknown direction %q", treq.Direction), http.StatusBadRequest)
		return
	}
	c, err := caps.Parse(treq.Caps)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid caps: %s", err), http.StatusBadRequest)
		return
	}
	var filter *caps.Caps
	if treq.Filter != "" {
		if filter, err = caps.Parse(treq.Filter); err != nil {
			http.Error(w, fmt.Sprintf("invalid filter: %s", err), http.StatusBadRequest)
			return
		}
	}
	res := a.ctrl.Session().Registry().TransformCaps(a.ctrl.Context(), direction, c, filter)
	a.writeJSON(w, TransformResponse{Caps: res.String()})
}

func (a *Api) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(v); err != nil {
		a.logger.Warn(fmt.Sprintf("could not write response: %s", err))
	}
}

func (a *Api) writeOK(w http.ResponseWriter) {
	_, err := fmt.Fprintf(w, "\"ok\"\n")
	if err != nil {
		a.logger.Warn(fmt.Sprintf("could not write response: %s", err))
	}
}
