package api

import (
	"fmt"
	"net/http"

	"github.com/pnode-analytics/pnodelogger/analytics"
)

// respond sends obj and logs the call the way every analytics handler does.
func (a *RESTApiV1) respond(resp http.ResponseWriter, req *http.Request, name string, obj interface{}) {

	err := sendJSON(resp, obj)
	a.logger.Info(fmt.Sprintf("api call `%s` %v ", name, req.URL.Path))

	if err != nil {
		a.logger.Error(fmt.Sprintf("sendJSON `%s`: %v", name, err))
	}
}

// GetSummary implements GET /analytics/summary
func (a *RESTApiV1) GetSummary(resp http.ResponseWriter, req *http.Request) {
	a.respond(resp, req, "GetSummary", a.analytics.GetSummary(req.Context()))
}

// GetExtendedSummary implements GET /analytics/extended-summary
func (a *RESTApiV1) GetExtendedSummary(resp http.ResponseWriter, req *http.Request) {
	a.respond(resp, req, "GetExtendedSummary", a.analytics.GetExtendedSummary(req.Context()))
}

// GetStorageAnalytics implements GET /analytics/storage
func (a *RESTApiV1) GetStorageAnalytics(resp http.ResponseWriter, req *http.Request) {
	a.respond(resp, req, "GetStorageAnalytics", a.analytics.GetStorageAnalytics(req.Context()))
}

// GetVersionDistribution implements GET /analytics/versions
func (a *RESTApiV1) GetVersionDistribution(resp http.ResponseWriter, req *http.Request) {
	a.respond(resp, req, "GetVersionDistribution", a.analytics.GetVersionDistribution(req.Context()))
}

// GetNodeMetrics implements GET /analytics/node-metrics
func (a *RESTApiV1) GetNodeMetrics(resp http.ResponseWriter, req *http.Request) {
	a.respond(resp, req, "GetNodeMetrics", a.analytics.GetNodeMetrics(req.Context()))
}

// GetTopNodes implements GET /analytics/top-nodes?limit=N
func (a *RESTApiV1) GetTopNodes(resp http.ResponseWriter, req *http.Request) {

	limit, err := getIntParam(req, "limit", analytics.DefaultTopNodes)
	if err != nil {
		a.logger.Info(fmt.Sprintf("api `GetTopNodes`: %v", err))
		http.Error(resp, err.Error(), http.StatusBadRequest)
		return
	}

	a.respond(resp, req, "GetTopNodes", a.analytics.GetTopNodes(req.Context(), limit))
}

// GetStoragePressure implements GET /analytics/storage-pressure
func (a *RESTApiV1) GetStoragePressure(resp http.ResponseWriter, req *http.Request) {
	a.respond(resp, req, "GetStoragePressure", a.analytics.GetStoragePressure(req.Context()))
}

// GetGeoSummary implements GET /analytics/geo-summary
func (a *RESTApiV1) GetGeoSummary(resp http.ResponseWriter, req *http.Request) {
	a.respond(resp, req, "GetGeoSummary", a.geo.GetGeoSummary(req.Context()))
}

// GetCountryChoropleth implements GET /analytics/country-choropleth
func (a *RESTApiV1) GetCountryChoropleth(resp http.ResponseWriter, req *http.Request) {
	a.respond(resp, req, "GetCountryChoropleth", a.geo.GetCountryChoropleth(req.Context()))
}
