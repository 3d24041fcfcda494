package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pnode-analytics/pnodelogger/geo"
)

// GetAllNodes implements GET /pnodes
func (a *RESTApiV1) GetAllNodes(resp http.ResponseWriter, req *http.Request) {

	list := a.nodes.GetAllNodes(req.Context())

	err := sendJSON(resp, list)
	a.logger.Info(fmt.Sprintf("api call `GetAllNodes` %v ", req.URL.Path))
	a.logger.Debug(fmt.Sprintf("api call `GetAllNodes` nodes: %d", len(list)))

	if err != nil {
		a.logger.Error(fmt.Sprintf("sendJSON `GetAllNodes`: %v", err))
	}
}

// GetNodeByPubkey implements GET /pnodes/{pubkey}
func (a *RESTApiV1) GetNodeByPubkey(resp http.ResponseWriter, req *http.Request) {

	pubkey := mux.Vars(req)["pubkey"]

	node, ok := a.nodes.GetNodeByPubkey(req.Context(), pubkey)
	if !ok {
		a.logger.Info(fmt.Sprintf("api `GetNodeByPubkey`: %v not found", pubkey))
		http.Error(resp, "node not found", http.StatusNotFound)
		return
	}

	err := sendJSON(resp, node)
	a.logger.Info(fmt.Sprintf("api call `GetNodeByPubkey` %v pubkey: %v", req.URL.Path, pubkey))

	if err != nil {
		a.logger.Error(fmt.Sprintf("sendJSON `GetNodeByPubkey`: %v", err))
	}
}

// GetNodeStats implements GET /pnodes/{pubkey}/stats
func (a *RESTApiV1) GetNodeStats(resp http.ResponseWriter, req *http.Request) {

	pubkey := mux.Vars(req)["pubkey"]

	stats, ok := a.stats.GetNodeStats(req.Context(), pubkey)
	if !ok {
		a.logger.Info(fmt.Sprintf("api `GetNodeStats`: no stats for %v", pubkey))
		http.Error(resp, "stats not available", http.StatusNotFound)
		return
	}

	err := sendJSON(resp, stats)
	a.logger.Info(fmt.Sprintf("api call `GetNodeStats` %v pubkey: %v", req.URL.Path, pubkey))

	if err != nil {
		a.logger.Error(fmt.Sprintf("sendJSON `GetNodeStats`: %v", err))
	}
}

// GetMapNodes implements GET /pnodes/map. It answers with an empty list
// rather than an error.
func (a *RESTApiV1) GetMapNodes(resp http.ResponseWriter, req *http.Request) {

	list := []geo.MapNode{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error(fmt.Sprintf("api `GetMapNodes`: %v", r))
			}
		}()
		if res := a.geo.GetMapNodes(req.Context()); res != nil {
			list = res
		}
	}()

	err := sendJSON(resp, list)
	a.logger.Info(fmt.Sprintf("api call `GetMapNodes` %v ", req.URL.Path))

	if err != nil {
		a.logger.Error(fmt.Sprintf("sendJSON `GetMapNodes`: %v", err))
	}
}

// RefreshNodes implements POST /pnodes/refresh
func (a *RESTApiV1) RefreshNodes(resp http.ResponseWriter, req *http.Request) {

	list := a.nodes.Refresh(req.Context())

	err := sendJSON(resp,
		map[string]interface{}{
			"nodes": len(list),
		},
	)
	a.logger.Info(fmt.Sprintf("api call `RefreshNodes` %v nodes: %d", req.URL.Path, len(list)))

	if err != nil {
		a.logger.Error(fmt.Sprintf("sendJSON `RefreshNodes`: %v", err))
	}
}
