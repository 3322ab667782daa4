// Program depgraph generates a Graphviz DOT description of the kernel's
// internal package dependency graph, the spec.md §2 "dependency order
// (leaves first)" table made visible. Grounded on misc/depgraph's
// `go mod graph` probe, repointed from module-level dependencies at
// `go/parser` import scanning of internal/* so the graph reflects this
// module's own leaf-first layering instead of its third-party requires.
package main

import (
	"bufio"
	"flag"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePrefix = "github.com/veridian-os/kernel/internal/"

var root string

func main() {
	flag.StringVar(&root, "root", ".", "module root containing internal/")
	flag.Parse()

	edges, err := scan(filepath.Join(root, "internal"))
	if err != nil {
		panic(err)
	}

	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()
	writer.WriteString("digraph deps {\n")
	writer.WriteString("    rankdir=LR;\n")
	for _, pkg := range sortedKeys(edges) {
		for _, dep := range edges[pkg] {
			writer.WriteString("    \"" + pkg + "\" -> \"" + dep + "\";\n")
		}
	}
	writer.WriteString("}\n")
}

// scan walks each immediate subdirectory of internalDir as one package
// and records which sibling internal/* packages its files import.
func scan(internalDir string) (map[string][]string, error) {
	entries, err := os.ReadDir(internalDir)
	if err != nil {
		return nil, err
	}

	edges := make(map[string][]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pkg := entry.Name()
		deps, err := packageDeps(filepath.Join(internalDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		deps = dedupe(deps)
		sort.Strings(deps)
		edges[pkg] = deps
	}
	return edges, nil
}

// packageDeps parses every non-test .go file under dir (ImportsOnly: the
// bodies are irrelevant here, only the import block) and returns the
// internal/* package names it imports, recursing into subdirectories
// (e.g. vfs/ramfs) as part of the parent package's own dependency set.
func packageDeps(dir string) ([]string, error) {
	var deps []string
	fset := token.NewFileSet()

	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		f, perr := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if perr != nil {
			return perr
		}
		for _, imp := range f.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)
			if !strings.HasPrefix(importPath, modulePrefix) {
				continue
			}
			rest := strings.TrimPrefix(importPath, modulePrefix)
			deps = append(deps, strings.SplitN(rest, "/", 2)[0])
		}
		return nil
	})
	return deps, walkErr
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
