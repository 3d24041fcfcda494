package geo

import "github.com/pnode-analytics/pnodelogger/analytics"

type Location struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
}

// MapNode is a node joined with its location and health metrics.
type MapNode struct {
	Pubkey  string `json:"pubkey"`
	Address string `json:"address"`
	IP      string `json:"ip"`
	Status  string `json:"status"`
	Version string `json:"version"`
	Private bool   `json:"private"`
	Location
	HealthScore        float64        `json:"healthScore"`
	Uptime24h          float64        `json:"uptime24h"`
	StorageUtilization float64        `json:"storageUtilization"`
	Tier               analytics.Tier `json:"tier"`
}

type CountryCount struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Count       int    `json:"count"`
}

// GeoSummary is computed over every known endpoint, including several
// addresses announced under the same pubkey.
type GeoSummary struct {
	TotalEndpoints int            `json:"totalEndpoints"`
	Resolved       int            `json:"resolved"`
	Unresolved     int            `json:"unresolved"`
	Private        int            `json:"private"`
	Countries      int            `json:"countries"`
	Cities         int            `json:"cities"`
	TopCountries   []CountryCount `json:"topCountries"`
}

type CountryStats struct {
	Country               string  `json:"country"`
	CountryCode           string  `json:"countryCode"`
	NodeCount             int     `json:"nodeCount"`
	OnlineCount           int     `json:"onlineCount"`
	OfflineCount          int     `json:"offlineCount"`
	AvgHealthScore        float64 `json:"avgHealthScore"`
	AvgUptime24h          float64 `json:"avgUptime24h"`
	AvgStorageUtilization float64 `json:"avgStorageUtilization"`
}

type CountryChoropleth struct {
	TotalCountries int            `json:"totalCountries"`
	Countries      []CountryStats `json:"countries"`
}
