// Package main generates CLI reference documentation from the ticket-monitor
// command tree.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/donaldgifford/ticket-monitor/cmd/ticket-monitor/cmd"
)

const frontMatter = "---\ntitle: %q\n---\n\n"

func main() {
	output := flag.String("output", "docs/cli", "output directory for generated docs")
	format := flag.String("format", "markdown", "output format: markdown or man")
	flag.Parse()

	if err := generate(cmd.Root(), *format, *output); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("CLI docs generated in %s/\n", *output)
}

func generate(root *cobra.Command, format, output string) error {
	if err := os.MkdirAll(output, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	root.DisableAutoGenTag = true

	switch format {
	case "markdown":
		prepend := func(filename string) string {
			name := strings.TrimSuffix(filepath.Base(filename), path.Ext(filename))
			return fmt.Sprintf(frontMatter, strings.ReplaceAll(name, "_", " "))
		}
		link := func(name string) string { return name }
		if err := doc.GenMarkdownTreeCustom(root, output, prepend, link); err != nil {
			return fmt.Errorf("generating markdown: %w", err)
		}
	case "man":
		header := &doc.GenManHeader{Title: "TICKET-MONITOR", Section: "1", Source: "ticket-monitor"}
		if err := doc.GenManTree(root, header, output); err != nil {
			return fmt.Errorf("generating man pages: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (want markdown or man)", format)
	}
	return nil
}
