package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// GetNodeVersions implements GET /pnodes/{pubkey}/versions
func (a *RESTApiV1) GetNodeVersions(resp http.ResponseWriter, req *http.Request) {

	pubkey := mux.Vars(req)["pubkey"]

	rows, err := a.history.GetVersionHistory(pubkey)
	if err != nil {
		a.logger.Error(fmt.Sprintf("api `GetNodeVersions`: %v", err))
		http.Error(resp, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if len(rows) == 0 {
		a.logger.Info(fmt.Sprintf("api `GetNodeVersions`: no version data for %v", pubkey))
		http.Error(resp, "no version data found", http.StatusNotFound)
		return
	}

	err = sendJSON(resp, rows)
	a.logger.Info(fmt.Sprintf("api call `GetNodeVersions` %v pubkey: %v", req.URL.Path, pubkey))

	if err != nil {
		a.logger.Error(fmt.Sprintf("sendJSON `GetNodeVersions`: %v", err))
	}
}

// GetNodeHistory implements GET /pnodes/{pubkey}/history?page=N
func (a *RESTApiV1) GetNodeHistory(resp http.ResponseWriter, req *http.Request) {

	pubkey := mux.Vars(req)["pubkey"]
	limitOffset := a.getLimitOffsetFromHttpReq(req)

	rows, totalRows, err := a.history.FindByPubkey(pubkey, int(limitOffset.Offset), int(limitOffset.Limit))
	if err != nil {
		a.logger.Error(fmt.Sprintf("api `GetNodeHistory`: %v", err))
		http.Error(resp, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	err = sendJSON(resp,
		map[string]interface{}{
			"pagination": a.getPagination(uint64(totalRows), limitOffset.Page),
			"rows":       rows,
		},
	)
	a.logger.Info(fmt.Sprintf("api call `GetNodeHistory` %v pubkey: %v", req.URL.Path, pubkey))
	a.logger.Debug(fmt.Sprintf("api call `GetNodeHistory` limitOffset: %#v totalRows: %v", limitOffset, totalRows))

	if err != nil {
		a.logger.Error(fmt.Sprintf("sendJSON `GetNodeHistory`: %v", err))
	}
}
