// Package builtin provides the standard tool set handed to workers:
// file tools confined to a workspace root, a shell runner, and a URL fetcher.
package builtin

import (
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

const (
	DefaultMaxLines = 2000
	DefaultMaxBytes = 50 * 1024 // 50 KB
)

// BaselineNames are the file tools every worker receives regardless of what
// its creator requested.
func BaselineNames() []string {
	return []string{"read_file", "write_file", "edit_file", "search_files", "list_directory"}
}

// Register adds all builtin tools to the registry, rooted at root.
func Register(reg *tools.Registry, root string) {
	reg.Register(NewReadTool(root))
	reg.Register(NewWriteTool(root))
	reg.Register(NewEditTool(root))
	reg.Register(NewSearchTool(root))
	reg.Register(NewListTool(root))
	reg.Register(NewShellTool(root))
	reg.Register(NewFetchTool())
}
