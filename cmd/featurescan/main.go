// Command featurescan reports goroutine, defer, and lock-call counts
// per internal/ subsystem: a sanity check that the concurrency-heavy
// packages (ipc, sched, vm) actually use the primitives their package
// docs claim rather than silently degrading to single-threaded code.
// Adapted from scripts/features.go's go/ast feature counter, repointed
// from a single flat line-count-normalized table at one directory to a
// per-package breakdown across internal/*.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// counts tallies the concurrency primitives one package's source uses.
type counts struct {
	lines      int
	goStmts    []string
	deferStmts []string
	lockCalls  []string
	closures   []string
}

var verbose bool

func main() {
	flag.BoolVar(&verbose, "v", false, "list each occurrence's source position")
	root := flag.String("internal", "internal", "path to the internal/ directory to scan")
	flag.Parse()

	entries, err := os.ReadDir(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "featurescan: %v\n", err)
		os.Exit(1)
	}

	pkgs := make(map[string]*counts)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		c, err := scanPackage(filepath.Join(*root, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "featurescan: %s: %v\n", entry.Name(), err)
			continue
		}
		pkgs[entry.Name()] = c
	}

	names := make([]string, 0, len(pkgs))
	for name := range pkgs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%-12s %6s %6s %6s %6s %6s\n", "package", "lines", "go", "defer", "lock", "closure")
	for _, name := range names {
		c := pkgs[name]
		fmt.Printf("%-12s %6d %6d %6d %6d %6d\n", name, c.lines, len(c.goStmts), len(c.deferStmts), len(c.lockCalls), len(c.closures))
		if verbose {
			printPositions("go", c.goStmts)
			printPositions("defer", c.deferStmts)
			printPositions("lock", c.lockCalls)
			printPositions("closure", c.closures)
		}
	}
}

func printPositions(label string, positions []string) {
	for _, pos := range positions {
		fmt.Printf("\t%s: %s\n", label, pos)
	}
}

// scanPackage walks every non-test .go file under dir (recursing into
// subpackages such as vfs/ramfs) and accumulates its feature counts.
func scanPackage(dir string) (*counts, error) {
	c := &counts{}
	fset := token.NewFileSet()

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		f, perr := parser.ParseFile(fset, path, nil, 0)
		if perr != nil {
			return perr
		}
		c.lines += fset.Position(f.End()).Line

		ast.Inspect(f, func(node ast.Node) bool {
			switch x := node.(type) {
			case *ast.GoStmt:
				c.goStmts = append(c.goStmts, fset.Position(node.Pos()).String())
			case *ast.DeferStmt:
				c.deferStmts = append(c.deferStmts, fset.Position(node.Pos()).String())
			case *ast.FuncLit:
				c.closures = append(c.closures, fset.Position(node.Pos()).String())
			case *ast.CallExpr:
				if isLockCall(x) {
					c.lockCalls = append(c.lockCalls, fset.Position(node.Pos()).String())
				}
			}
			return true
		})
		return nil
	})
	return c, err
}

// isLockCall reports whether a call expression invokes one of the
// sync/deadlock mutex methods by selector name; this catches
// sync.Mutex, sync.RWMutex, and go-deadlock's drop-in replacements
// alike since all share the same method names.
func isLockCall(c *ast.CallExpr) bool {
	sel, ok := c.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	switch sel.Sel.Name {
	case "Lock", "Unlock", "RLock", "RUnlock":
		return true
	default:
		return false
	}
}
