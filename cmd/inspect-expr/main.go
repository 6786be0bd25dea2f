// Command inspect-expr prints how inputs parse: the syntax tree, the full
// form and the pattern variables each one binds.
package main

import (
	"fmt"
	"os"

	"github.com/speakeasy-api/symcore"
	"github.com/speakeasy-api/symcore/match"
	"github.com/speakeasy-api/symcore/pkg/exprfmt"
	"github.com/speakeasy-api/symcore/pkg/parse"
)

func main() {
	inputs := os.Args[1:]
	if len(inputs) == 0 {
		inputs = []string{
			"f[x_, y_] := x + y",
			"g[a___, b_Integer] /; b > 0",
			"Block[{x = 1, y}, x + y]",
			"-a - 2*b^c",
		}
	}

	table := symcore.NewTable()
	for _, src := range inputs {
		fmt.Printf("\n=== %s ===\n", src)
		x, err := parse.ParseExpr(table, src)
		if err != nil {
			fmt.Printf("Parse error: %v\n", err)
			continue
		}

		full, _ := exprfmt.Format(x, exprfmt.Config{Form: exprfmt.FullForm})
		tree, err := exprfmt.Format(x, exprfmt.Config{Form: exprfmt.TreeForm})
		if err != nil {
			fmt.Printf("Format error: %v\n", err)
			continue
		}
		fmt.Printf("full:   %s\n", full)
		fmt.Printf("input:  %s\n", exprfmt.String(x))
		fmt.Printf("hash:   %016x\n", symcore.Hash(x))
		if match.HasPattern(x) {
			for i, name := range match.Names(x) {
				fmt.Printf("var %d:  %s\n", i, name.Name())
			}
		}
		fmt.Println(tree)
	}
}
