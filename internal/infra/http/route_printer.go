package http

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"runtime"
	"sort"
	"strings"
)

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Handler string `json:"handler"`
}

// RouteStats is the collected route table, for the --routes flag.
type RouteStats struct {
	Total   int            `json:"total"`
	Methods map[string]int `json:"methods"`
	Routes  []RouteInfo    `json:"routes"`
}

// RouteFilters narrows and orders the printed routes.
type RouteFilters struct {
	Method string
	Path   string
	SortBy string
}

// CollectRoutes walks the router and gathers every registered route.
func CollectRoutes(router Router) RouteStats {
	stats := RouteStats{
		Methods: make(map[string]int),
		Routes:  []RouteInfo{},
	}

	_ = router.Walk(func(method, path string, handler http.Handler) error {
		stats.Routes = append(stats.Routes, RouteInfo{
			Method:  method,
			Path:    path,
			Handler: handlerName(handler),
		})
		stats.Methods[method]++
		stats.Total++
		return nil
	})
	return stats
}

// handlerName resolves the handler's function name through the runtime.
// Bound methods carry a "-fm" suffix that only adds noise.
func handlerName(handler http.Handler) string {
	fn := runtime.FuncForPC(reflect.ValueOf(handler).Pointer())
	if fn == nil {
		return fmt.Sprintf("%T", handler)
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// PrintRoutes writes the filtered, sorted route table in the given format:
// "json", "csv", "simple", or the default table.
func PrintRoutes(w io.Writer, stats RouteStats, format string, filters RouteFilters) {
	routes := filterRoutes(stats.Routes, filters)
	sortRoutes(routes, filters.SortBy)

	switch format {
	case "json":
		printJSON(w, routes, stats)
	case "csv":
		printCSV(w, routes)
	case "simple":
		for _, r := range routes {
			fmt.Fprintf(w, "%-8s %s\n", r.Method, r.Path)
		}
	default:
		printTable(w, routes, stats)
	}
}

func filterRoutes(routes []RouteInfo, filters RouteFilters) []RouteInfo {
	if filters.Method == "" && filters.Path == "" {
		return routes
	}

	filtered := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		if filters.Method != "" && !strings.EqualFold(r.Method, filters.Method) {
			continue
		}
		if filters.Path != "" && !strings.Contains(r.Path, filters.Path) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func sortRoutes(routes []RouteInfo, by string) {
	sort.Slice(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		switch by {
		case "method":
			if a.Method != b.Method {
				return a.Method < b.Method
			}
			return a.Path < b.Path
		case "handler":
			return a.Handler < b.Handler
		default:
			if a.Path != b.Path {
				return a.Path < b.Path
			}
			return a.Method < b.Method
		}
	})
}

var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

func printTable(w io.Writer, routes []RouteInfo, stats RouteStats) {
	fmt.Fprintln(w, "API Routes")
	fmt.Fprintln(w, "==========")
	fmt.Fprintf(w, "Total: %d routes\n\n", stats.Total)

	fmt.Fprintln(w, "By Method:")
	for _, m := range methodOrder {
		if count, ok := stats.Methods[m]; ok {
			fmt.Fprintf(w, "  %-8s %d\n", m, count)
		}
	}

	rule := strings.Repeat("-", 120)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-8s %-50s %s\n", "METHOD", "PATH", "HANDLER")
	fmt.Fprintln(w, rule)

	for _, r := range routes {
		handler := r.Handler
		if len(handler) > 55 {
			handler = "..." + handler[len(handler)-52:]
		}
		fmt.Fprintf(w, "%-8s %-50s %s\n", r.Method, r.Path, handler)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Showing %d routes\n", len(routes))
}

func printJSON(w io.Writer, routes []RouteInfo, stats RouteStats) {
	out := RouteStats{
		Total:   stats.Total,
		Methods: stats.Methods,
		Routes:  routes,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func printCSV(w io.Writer, routes []RouteInfo) {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"method", "path", "handler"})
	for _, r := range routes {
		_ = cw.Write([]string{r.Method, r.Path, r.Handler})
	}
	cw.Flush()
}
