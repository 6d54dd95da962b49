/**
 * @file guardcheck.go
 * @brief Lock guard analyzer for the kernel sources.
 *
 * Every Spinlock_t Acquire must be followed by a deferred Release of the
 * same lock, so that no return path leaks it. Functions that hand a held
 * lock across a context switch, or return with it held, say so with a
 * //kt:handoff line in their doc comment and are not checked.
 */
package main

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const handoff = "//kt:handoff"

var Analyzer = &analysis.Analyzer{
	Name:     "guardcheck",
	Doc:      "check that every spinlock Acquire is followed by a deferred Release",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

/**
 * @brief Reports whether a doc comment marks a handoff function.
 * @param doc function doc comment, possibly nil
 * @return true when a //kt:handoff line is present
 */
func is_handoff(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.TrimSpace(c.Text) == handoff {
			return true
		}
	}
	return false
}

/**
 * @brief Matches a call statement of method name on a Spinlock_t.
 * @param pass analysis pass for type information
 * @param s statement to examine
 * @param name method name
 * @return lock expression and true on a match
 */
func lockcall(pass *analysis.Pass, s ast.Stmt, name string) (ast.Expr, bool) {
	var call *ast.CallExpr
	switch x := s.(type) {
	case *ast.ExprStmt:
		call, _ = x.X.(*ast.CallExpr)
	case *ast.DeferStmt:
		call = x.Call
	}
	if call == nil {
		return nil, false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != name {
		return nil, false
	}
	selection, ok := pass.TypesInfo.Selections[sel]
	if !ok {
		return nil, false
	}
	recv := selection.Recv()
	if p, ok := recv.(*types.Pointer); ok {
		recv = p.Elem()
	}
	named, ok := recv.(*types.Named)
	if !ok || named.Obj().Name() != "Spinlock_t" {
		return nil, false
	}
	return sel.X, true
}

/**
 * @brief Checks one statement list.
 * @param pass analysis pass
 * @param list statements of a block or clause
 */
func dolist(pass *analysis.Pass, list []ast.Stmt) {
	for i, s := range list {
		lk, ok := lockcall(pass, s, "Acquire")
		if !ok {
			continue
		}
		name := types.ExprString(lk)
		if i+1 < len(list) {
			if _, ok := list[i+1].(*ast.DeferStmt); ok {
				if rel, ok := lockcall(pass, list[i+1], "Release"); ok && types.ExprString(rel) == name {
					continue
				}
			}
		}
		pass.Reportf(s.Pos(), "%s.Acquire() without a deferred Release", name)
	}
}

/**
 * @brief Checks every statement list inside a function body.
 * @param pass analysis pass
 * @param body function body
 */
func dobody(pass *analysis.Pass, body *ast.BlockStmt) {
	ast.Inspect(body, func(node ast.Node) bool {
		switch x := node.(type) {
		case *ast.BlockStmt:
			dolist(pass, x.List)
		case *ast.CaseClause:
			dolist(pass, x.Body)
		case *ast.CommClause:
			dolist(pass, x.Body)
		}
		return true
	})
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	filter := []ast.Node{(*ast.FuncDecl)(nil)}
	insp.Preorder(filter, func(node ast.Node) {
		fd := node.(*ast.FuncDecl)
		if fd.Body == nil || is_handoff(fd.Doc) {
			return
		}
		if strings.HasSuffix(pass.Fset.Position(fd.Pos()).Filename, "_test.go") {
			return
		}
		dobody(pass, fd.Body)
	})
	return nil, nil
}
