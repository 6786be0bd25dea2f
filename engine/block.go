package engine

import "github.com/speakeasy-api/symcore"

// scopeEntry is one validated Block specifier.
type scopeEntry struct {
	sym  *symcore.Symbol
	init symcore.Expr // nil for a bare symbol
}

// builtinBlock evaluates Block[{specs...}, body] with the listed symbols
// shadowed by local frames.
func builtinBlock(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 2 {
		return nil, false, nil
	}
	specs, ok := symcore.AsApply(a.Arg(0), symcore.SymList)
	if !ok {
		return nil, false, nil
	}
	entries, err := parseScope(specs)
	if err != nil {
		return nil, false, err
	}

	// Initializers see the bindings visible at entry.
	frames := make([]localFrame, len(entries))
	for i, en := range entries {
		if en.init == nil {
			continue
		}
		v, err := e.eval(en.init)
		if err != nil {
			return nil, false, err
		}
		frames[i] = localFrame{value: v, set: true}
	}

	res, err := e.block(entries, frames, a.Arg(1))
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// parseScope validates every specifier before anything is pushed.
func parseScope(specs *symcore.Apply) ([]scopeEntry, error) {
	entries := make([]scopeEntry, 0, specs.Len())
	for i := 0; i < specs.Len(); i++ {
		decl := specs.Arg(i)
		if s, ok := decl.(*symcore.Symbol); ok {
			entries = append(entries, scopeEntry{sym: s})
			continue
		}
		if set, ok := symcore.AsApply(decl, symcore.SymSet); ok && set.Len() == 2 {
			if s, ok := set.Arg(0).(*symcore.Symbol); ok {
				entries = append(entries, scopeEntry{sym: s, init: set.Arg(1)})
				continue
			}
		}
		return nil, &EvalError{Kind: MalformedScopeSpecifier, Expr: decl}
	}
	return entries, nil
}

// block pushes one frame per entry, evaluates body and pops exactly the
// pushed frames in reverse order on every exit path, panics included.
func (e *Engine) block(entries []scopeEntry, frames []localFrame, body symcore.Expr) (res symcore.Expr, err error) {
	pushed := 0
	defer func() {
		var cerr error
		for i := pushed - 1; i >= 0; i-- {
			if cerr == nil {
				cerr = e.Checkpoint()
			}
			e.locals.pop(entries[i].sym)
		}
		if err == nil && cerr != nil {
			res, err = nil, cerr
		}
	}()

	for i, en := range entries {
		if err := e.Checkpoint(); err != nil {
			return nil, err
		}
		e.locals.push(en.sym, frames[i])
		pushed++
	}
	e.logger.Debugf("block pushed %d frames", pushed)
	return e.eval(body)
}
