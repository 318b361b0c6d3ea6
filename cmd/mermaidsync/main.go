// Command mermaidsync converts between the diagram model and Mermaid text,
// renders previews, and serves the editor panel and the MCP tools.
package main

import "os"

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
