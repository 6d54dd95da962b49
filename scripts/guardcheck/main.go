/**
 * @file main.go
 * @brief Command guardcheck runs the lock guard analyzer.
 *
 * Usage: go run ./scripts/guardcheck ./src/...
 */
package main

import "golang.org/x/tools/go/analysis/singlechecker"

func main() {
	singlechecker.Main(Analyzer)
}
