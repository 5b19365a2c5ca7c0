package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi"
)

// MethodPath is an HTTP method and the path it is served on
type MethodPath struct {
	Method, Path string
}

// RouteTable maps endpoints to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints lists the paths in the table, sorted, with the method prefixed
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k.Method+" "+k.Path)
	}
	sort.Strings(routes)
	return routes
}

// Bind registers every route on r
func (rt RouteTable) Bind(r chi.Router) {
	for mp, h := range rt {
		r.Method(mp.Method, mp.Path, h)
	}
}

// FloatT is a JSON payload holding a single float, {"f64": value}
type FloatT struct {
	F64 float64 `json:"f64"`
}

// replyJSON encodes v as the response body.  Values JSON cannot hold are a
// 500 rather than an empty 200.
func replyJSON(w http.ResponseWriter, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
