package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultRowsPerPage = 100
	shutdownTimeout    = 10 * time.Second
)

func NewRESTApiV1(deps Deps, rowsPerPage uint64, logger *zap.Logger) *RESTApiV1 {

	if rowsPerPage == 0 {
		rowsPerPage = defaultRowsPerPage
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api := &RESTApiV1{
		router:      mux.NewRouter(),
		logger:      logger,
		nodes:       deps.Nodes,
		stats:       deps.Stats,
		analytics:   deps.Analytics,
		geo:         deps.Geo,
		history:     deps.History,
		rowsPerPage: rowsPerPage,
	}

	api.router.HandleFunc("/", api.IndexPage).Methods("GET")

	if deps.Gatherer != nil {
		api.router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Fixed paths go before /pnodes/{pubkey}
	api.router.HandleFunc("/pnodes", api.GetAllNodes).Methods("GET")
	api.router.HandleFunc("/pnodes/map", api.GetMapNodes).Methods("GET")
	api.router.HandleFunc("/pnodes/refresh", api.RefreshNodes).Methods("POST")
	api.router.HandleFunc("/pnodes/{pubkey}", api.GetNodeByPubkey).Methods("GET")
	api.router.HandleFunc("/pnodes/{pubkey}/stats", api.GetNodeStats).Methods("GET")
	if deps.History != nil {
		api.router.HandleFunc("/pnodes/{pubkey}/history", api.GetNodeHistory).Methods("GET")
		api.router.HandleFunc("/pnodes/{pubkey}/versions", api.GetNodeVersions).Methods("GET")
	}

	api.router.HandleFunc("/analytics/summary", api.GetSummary).Methods("GET")
	api.router.HandleFunc("/analytics/extended-summary", api.GetExtendedSummary).Methods("GET")
	api.router.HandleFunc("/analytics/storage", api.GetStorageAnalytics).Methods("GET")
	api.router.HandleFunc("/analytics/versions", api.GetVersionDistribution).Methods("GET")
	api.router.HandleFunc("/analytics/node-metrics", api.GetNodeMetrics).Methods("GET")
	api.router.HandleFunc("/analytics/top-nodes", api.GetTopNodes).Methods("GET")
	api.router.HandleFunc("/analytics/storage-pressure", api.GetStoragePressure).Methods("GET")
	api.router.HandleFunc("/analytics/geo-summary", api.GetGeoSummary).Methods("GET")
	api.router.HandleFunc("/analytics/country-choropleth", api.GetCountryChoropleth).Methods("GET")

	return api
}

// Handler wraps the router with panic recovery and CORS.
func (a *RESTApiV1) Handler(originAllowed string) http.Handler {

	headersOk := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "X-CSRF-Token"})
	originsOk := handlers.AllowedOrigins([]string{originAllowed})
	methodsOk := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "OPTIONS"})

	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{a.logger}))

	return handlers.CORS(originsOk, headersOk, methodsOk)(recovery(a.router))
}

// Serve listens on addr until ctx is done, then shuts the server down.
func (a *RESTApiV1) Serve(ctx context.Context, addr, originAllowed string) error {

	if addr == "" {
		addr = ":8090"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(originAllowed),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(fmt.Sprintf("serving on %s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *RESTApiV1) GetAllAPIs() []string {

	list := []string{}

	a.router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		apiPath, err := route.GetPathTemplate()
		if err == nil {
			list = append(list, apiPath)
		}
		return err
	})

	return list
}

type recoveryLogger struct {
	logger *zap.Logger
}

func (l recoveryLogger) Println(args ...interface{}) {
	l.logger.Error(fmt.Sprint(append([]interface{}{"api panic: "}, args...)...))
}
