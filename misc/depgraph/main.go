package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Program depgraph generates a Graphviz DOT description of the import graph
// of the kernel packages.
//
// @param -all also draw edges to packages outside the module.
// @return None. The DOT graph is printed to standard output. A load error
// exits with status 1.
func main() {
	all := flag.Bool("all", false, "include packages outside the module")
	flag.Parse()
	pats := flag.Args()
	if len(pats) == 0 {
		pats = []string{"./src/..."}
	}
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedModule}
	pkgs, err := packages.Load(cfg, pats...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "depgraph: %v\n", err)
		os.Exit(1)
	}
	if packages.PrintErrors(pkgs) > 0 {
		os.Exit(1)
	}
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()
	writer.WriteString("digraph deps {\n")
	for _, e := range edges(pkgs, *all) {
		writer.WriteString("    \"" + e[0] + "\" -> \"" + e[1] + "\";\n")
	}
	writer.WriteString("}\n")
}

// edges returns the sorted import edges of pkgs.
//
// @param pkgs loaded packages.
// @param all  keep edges leaving the module.
func edges(pkgs []*packages.Package, all bool) [][2]string {
	var ret [][2]string
	for _, p := range pkgs {
		mod := ""
		if p.Module != nil {
			mod = p.Module.Path + "/"
		}
		for path := range p.Imports {
			if !all && !strings.HasPrefix(path, mod) {
				continue
			}
			ret = append(ret, [2]string{short(p.PkgPath, mod), short(path, mod)})
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i][0] != ret[j][0] {
			return ret[i][0] < ret[j][0]
		}
		return ret[i][1] < ret[j][1]
	})
	return ret
}

func short(path, mod string) string {
	return strings.TrimPrefix(path, mod)
}
