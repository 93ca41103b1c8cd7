package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bjaus/modelapi"
)

var methodColors = map[string]*color.Color{
	"GET":    color.New(color.FgGreen),
	"POST":   color.New(color.FgYellow),
	"PUT":    color.New(color.FgBlue),
	"PATCH":  color.New(color.FgCyan),
	"DELETE": color.New(color.FgRed),
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the registered routes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, _, err := loadRouter()
		if err != nil {
			return err
		}
		return printRoutes(cmd.OutOrStdout(), r.Routes())
	},
}

// printRoutes writes one aligned line per route. Cells are padded before
// they are colored so escape codes do not count toward column widths.
func printRoutes(w io.Writer, routes []modelapi.RouteSummary) error {
	var methodWidth, patternWidth int
	for _, rt := range routes {
		methodWidth = max(methodWidth, len(rt.Method))
		patternWidth = max(patternWidth, len(rt.Pattern))
	}

	gray := color.New(color.FgHiBlack)
	for _, rt := range routes {
		method := fmt.Sprintf("%-*s", methodWidth, rt.Method)
		if c, ok := methodColors[rt.Method]; ok {
			method = c.Sprint(method)
		}
		summary := rt.Summary
		if rt.Hidden {
			summary = gray.Sprint("(undocumented)")
		}
		line := fmt.Sprintf("%s  %-*s  %s", method, patternWidth, rt.Pattern, summary)
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}
