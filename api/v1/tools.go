package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (a *RESTApiV1) getPagination(totalRows, pageNumber uint64) Pagination {
	totalPages := uint64(math.Ceil(float64(totalRows) / float64(a.rowsPerPage)))
	return Pagination{
		CurrentPage: pageNumber,
		TotalPages:  totalPages,
		TotalRows:   totalRows,
	}
}

func (a *RESTApiV1) getLimitOffsetFromHttpReq(req *http.Request) LimitOffset {

	page, _ := strconv.ParseUint(req.URL.Query().Get("page"), 10, 64)
	if page == 0 {
		page = 1
	}

	offset := (page - 1) * a.rowsPerPage

	return LimitOffset{
		Limit:  a.rowsPerPage,
		Offset: offset,
		Page:   page,
	}
}

// getIntParam reads a positive integer query parameter; def is returned
// when it is absent.
func getIntParam(req *http.Request, name string, def int) (int, error) {
	str := req.URL.Query().Get(name)
	if str == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(str, 10, 31)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, str)
	}
	return int(n), nil
}

func sendJSON(resp http.ResponseWriter, obj interface{}) error {

	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		http.Error(resp, "Internal Server Error: "+err.Error(), http.StatusInternalServerError)
		return err
	}

	resp.Header().Set("Content-Type", "application/json")
	_, err = resp.Write(data)

	return err
}
