//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"
	"time"

	"github.com/speakeasy-api/symcore"
	"github.com/speakeasy-api/symcore/engine"
	"github.com/speakeasy-api/symcore/pkg/exprfmt"
	"github.com/speakeasy-api/symcore/pkg/parse"
	"github.com/speakeasy-api/symcore/pkg/session"
)

// sess keeps definitions between calls from the page.
var sess *session.Session

// Evaluate runs one input in the page session and returns the formatted
// result with its warnings as JSON.
func Evaluate(src, form string) (string, error) {
	if sess == nil {
		s, err := session.New(session.Config{
			Engine:  engine.DefaultOptions(),
			Timeout: 10 * time.Second,
		})
		if err != nil {
			return "", err
		}
		sess = s
	}
	out, err := sess.Run(context.Background(), src)
	if err != nil {
		return "", fmt.Errorf("%s", session.FormatEvalError(err))
	}
	text := out.Text
	if form != "" {
		text, err = exprfmt.Format(out.Expr, exprfmt.Config{Form: exprfmt.Form(form)})
		if err != nil {
			return "", err
		}
	}

	b, err := json.Marshal(struct {
		Line     int      `json:"line"`
		Result   string   `json:"result"`
		Warnings []string `json:"warnings,omitempty"`
	}{out.Line, text, out.Warnings})
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(b), nil
}

// FormatExpr parses src without evaluating it and prints it in form.
func FormatExpr(src, form string) (string, error) {
	x, err := parse.ParseExpr(symcore.NewTable(), src)
	if err != nil {
		return "", err
	}
	return exprfmt.Format(x, exprfmt.Config{Form: exprfmt.Form(form), Width: 80})
}

// promisify wraps a Go function to return a JavaScript Promise
func promisify(fn func(args []js.Value) (string, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) any {
			resolve := promiseArgs[0]
			reject := promiseArgs[1]

			go func() {
				result, err := fn(args)
				if err != nil {
					errorConstructor := js.Global().Get("Error")
					reject.Invoke(errorConstructor.New(err.Error()))
					return
				}
				resolve.Invoke(result)
			}()

			return nil
		})

		return js.Global().Get("Promise").New(handler)
	})
}

func main() {
	js.Global().Set("SymcoreEvaluate", promisify(func(args []js.Value) (string, error) {
		if len(args) < 1 || len(args) > 2 {
			return "", fmt.Errorf("SymcoreEvaluate: expected 1 or 2 args (input, form), got %v", len(args))
		}
		form := ""
		if len(args) == 2 {
			form = args[1].String()
		}
		return Evaluate(args[0].String(), form)
	}))

	js.Global().Set("SymcoreFormat", promisify(func(args []js.Value) (string, error) {
		if len(args) != 2 {
			return "", fmt.Errorf("SymcoreFormat: expected 2 args (input, form), got %v", len(args))
		}
		return FormatExpr(args[0].String(), args[1].String())
	}))

	js.Global().Set("SymcoreReset", js.FuncOf(func(this js.Value, args []js.Value) any {
		sess = nil
		return nil
	}))

	<-make(chan bool)
}
