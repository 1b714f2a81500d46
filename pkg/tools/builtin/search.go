package builtin

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// SearchMaxResults caps how many matches one search may return. Small on
// purpose so search output stays digestible for the model.
const SearchMaxResults = 6

const searchMaxLineLength = 500

// SearchTool searches workspace files by regular expression.
type SearchTool struct {
	root string
}

func NewSearchTool(root string) *SearchTool { return &SearchTool{root: root} }

func (t *SearchTool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name: "search_files",
		Description: fmt.Sprintf(
			"Search files in the workspace for a regular expression. "+
				"Returns at most %d matching lines as path:line:text.", SearchMaxResults),
		Parameters: tools.MustSchema(tools.SimpleSchema{
			Properties: map[string]tools.Property{
				"pattern":     {Type: "string", Description: "Regular expression to search for"},
				"path":        {Type: "string", Description: "Directory to search under (relative to the workspace; defaults to the root)"},
				"max_results": {Type: "integer", Description: fmt.Sprintf("Result cap, at most %d", SearchMaxResults)},
			},
			Required: []string{"pattern"},
		}),
	}
}

func (t *SearchTool) Execute(ctx context.Context, _ string, params map[string]any) (tools.Result, error) {
	pattern, _ := params["pattern"].(string)
	if pattern == "" {
		return tools.ErrorResult(fmt.Errorf("pattern is required")), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return tools.ErrorResult(fmt.Errorf("invalid pattern: %w", err)), nil
	}

	dirParam, _ := params["path"].(string)
	if dirParam == "" {
		dirParam = "."
	}
	absDir, err := resolvePath(dirParam, t.root)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	maxResults := intParam(params, "max_results")
	if maxResults <= 0 || maxResults > SearchMaxResults {
		maxResults = SearchMaxResults
	}

	var matches []string
	walkErr := filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absDir {
				return filepath.SkipDir
			}
			return nil
		}
		if len(matches) >= maxResults {
			return filepath.SkipAll
		}
		rel, _ := filepath.Rel(t.root, path)
		found, err := searchFile(path, rel, re, maxResults-len(matches))
		if err != nil {
			return nil
		}
		matches = append(matches, found...)
		return nil
	})
	if walkErr != nil && walkErr != context.Canceled {
		return tools.ErrorResult(fmt.Errorf("search failed: %w", walkErr)), nil
	}

	if len(matches) == 0 {
		return tools.TextResult("No matches found."), nil
	}
	out := strings.Join(matches, "\n")
	if len(matches) == maxResults {
		out += fmt.Sprintf("\n[stopped after %d matches]", maxResults)
	}
	return tools.TextResult(out), nil
}

func searchFile(path, rel string, re *regexp.Regexp, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() && len(out) < limit {
		lineNo++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		if len(line) > searchMaxLineLength {
			line = line[:searchMaxLineLength] + "... [truncated]"
		}
		out = append(out, fmt.Sprintf("%s:%d:%s", rel, lineNo, line))
	}
	return out, scanner.Err()
}
