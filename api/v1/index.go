package api

import (
	"fmt"
	"html"
	"net/http"
	"strings"
)

var routeNotes = map[string]string{
	"/pnodes":                       "every known pNode, one entry per pubkey",
	"/pnodes/map":                   "geolocated pNodes with health metrics",
	"/pnodes/refresh":               "POST, drops the cached roster and rediscovers it",
	"/pnodes/{pubkey}":              "one pNode",
	"/pnodes/{pubkey}/stats":        "runtime stats reported by the pNode itself",
	"/pnodes/{pubkey}/history":      "stored snapshots, ?page=N",
	"/pnodes/{pubkey}/versions":     "software versions seen over time",
	"/analytics/summary":            "network totals and health",
	"/analytics/extended-summary":   "summary with tier and version breakdown",
	"/analytics/top-nodes":          "healthiest pNodes, ?limit=N",
	"/analytics/storage-pressure":   "pNodes running out of committed storage",
	"/analytics/country-choropleth": "per-country aggregates",
	"/analytics/geo-summary":        "location counts over every endpoint",
	"/analytics/node-metrics":       "health score, uptime and tier per pNode",
	"/analytics/storage":            "storage per pNode",
	"/analytics/versions":           "version distribution",
	"/metrics":                      "prometheus",
}

// IndexPage implements GET /
func (a *RESTApiV1) IndexPage(resp http.ResponseWriter, req *http.Request) {

	sections := map[string][]string{}
	var order []string
	for _, path := range a.GetAllAPIs() {
		if path == "/" {
			continue
		}
		section := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
		if section != "pnodes" && section != "analytics" {
			section = "service"
		}
		if _, ok := sections[section]; !ok {
			order = append(order, section)
		}
		sections[section] = append(sections[section], path)
	}

	var b strings.Builder
	b.WriteString("<h3>pnodelogger</h3><p>pNode discovery, analytics and geolocation for the gossip network.</p>")
	for _, section := range order {
		fmt.Fprintf(&b, "<h4>%s</h4>", html.EscapeString(section))
		for _, path := range sections[section] {
			fmt.Fprintf(&b, `<a href="%s">%s</a>`, path, path)
			if note, ok := routeNotes[path]; ok {
				fmt.Fprintf(&b, " - %s", html.EscapeString(note))
			}
			b.WriteString("<br />")
		}
	}

	resp.Header().Set("Content-Type", "text/html; charset=utf-8")
	resp.Write([]byte(b.String()))
}
