// cmd/tools/registry-check/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"school-event-automation/pkg/registry"
)

func main() {
	path := flag.String("path", "configs/task-templates.json", "Path to task template registry file")
	builtin := flag.Bool("builtin", false, "Show the built-in template list instead of validating a file")
	flag.Parse()

	reg := registry.Default()
	if !*builtin {
		var err error
		reg, err = registry.Load(*path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "registry invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("registry %s is valid (%d templates)\n", *path, len(reg.Templates))
	}

	fmt.Printf("%-24s %-12s %-10s %-8s %s\n", "ID", "CATEGORY", "KIND", "OFFSET", "FLAGS")
	for _, tmpl := range reg.Templates {
		offset := "manual"
		if tmpl.DayOffset != nil {
			offset = fmt.Sprintf("%+d", *tmpl.DayOffset)
		}
		flags := ""
		if tmpl.CreatesOrder {
			flags += "order "
		}
		if tmpl.CreatesFollowUp {
			flags += "follow-up"
		}
		fmt.Printf("%-24s %-12s %-10s %-8s %s\n", tmpl.ID, tmpl.Category, tmpl.CompletionKind, offset, flags)
	}
}
