package api

import (
	"fmt"
	"strings"

	"github.com/gorilla/mux"
)

// PrintRoutes walks through all routes registered in the router and prints
// them. Used at startup in debug mode.
func PrintRoutes(r *mux.Router) {
	fmt.Println("\n=== Registered Routes ===")
	fmt.Println("METHOD\tPATH")
	fmt.Println("-------------------------------")

	_ = r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			pathTemplate = "<unknown>"
		}

		methods, _ := route.GetMethods()
		methodStr := "ANY"
		if len(methods) > 0 {
			methodStr = strings.Join(methods, ",")
		}

		fmt.Printf("%s\t%s\n", methodStr, pathTemplate)
		return nil
	})
	fmt.Println("==============================")
}
