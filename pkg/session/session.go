// Package session drives the engine from source text: parse, convert,
// evaluate under a time limit and format, keeping definitions between
// inputs.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/speakeasy-api/symcore"
	"github.com/speakeasy-api/symcore/engine"
	"github.com/speakeasy-api/symcore/pkg/exprfmt"
	"github.com/speakeasy-api/symcore/pkg/parse"
)

// Config configures a session.
type Config struct {
	Engine  engine.Options
	Format  exprfmt.Config
	Timeout time.Duration // Per input; engine.Forever for no limit

	// Attributes declares user symbol attributes before the table is
	// sealed, e.g. {"f": {"Orderless"}}.
	Attributes map[string][]string

	// Parallelism bounds RunBatch; 0 means one goroutine per input.
	Parallelism int
}

// Output is the outcome of one evaluated input.
type Output struct {
	Line        int
	Input       string
	Expr        symcore.Expr
	Text        string // Formatted result; empty for the void result
	Void        bool
	Fingerprint string
	Warnings    []string
	Elapsed     time.Duration
}

// Session evaluates inputs against one symbol table.
type Session struct {
	ID string

	cfg    Config
	table  *symcore.Table
	engine *engine.Engine
	fp     *symcore.Fingerprinter
	line   int
}

// New creates a session, declaring the configured attributes and sealing
// the table.
func New(cfg Config) (*Session, error) {
	if _, err := exprfmt.ValidateConfig(cfg.Format); err != nil {
		return nil, fmt.Errorf("invalid format config: %w", err)
	}
	if cfg.Engine.SessionID == "" {
		cfg.Engine.SessionID = uuid.NewString()
	}

	table := symcore.NewTable()
	for name, attrNames := range cfg.Attributes {
		var attrs symcore.Attributes
		for _, an := range attrNames {
			a, err := symcore.ParseAttribute(an)
			if err != nil {
				return nil, fmt.Errorf("symbol %s: %w", name, err)
			}
			attrs |= a
		}
		if _, err := table.Declare(name, attrs); err != nil {
			return nil, fmt.Errorf("declare %s: %w", name, err)
		}
	}
	table.Seal()

	return &Session{
		ID:     cfg.Engine.SessionID,
		cfg:    cfg,
		table:  table,
		engine: engine.New(table, cfg.Engine),
		fp:     symcore.NewFingerprinter(1024),
	}, nil
}

// Table returns the session's symbol table.
func (s *Session) Table() *symcore.Table { return s.table }

// Engine returns the session's engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Run parses and evaluates src.
func (s *Session) Run(ctx context.Context, src string) (*Output, error) {
	x, err := parse.ParseExpr(s.table, src, parse.Options{Relaxed: s.cfg.Engine.RelaxedSyntax})
	if err != nil {
		return nil, err
	}
	s.line++
	return s.evaluate(engine.NewContext(ctx, s.engine), s.line, src, x)
}

// RunAST decodes a YAML or JSON syntax tree and evaluates it.
func (s *Session) RunAST(ctx context.Context, data []byte) (*Output, error) {
	n, err := symcore.DecodeNode(data)
	if err != nil {
		return nil, err
	}
	x, err := symcore.Convert(s.table, n, symcore.ConvertOptions{Relaxed: s.cfg.Engine.RelaxedSyntax})
	if err != nil {
		return nil, err
	}
	s.line++
	return s.evaluate(engine.NewContext(ctx, s.engine), s.line, n.String(), x)
}

// RunBatch evaluates independent inputs concurrently, each on its own
// engine over the shared table. Outputs are returned in input order. The
// first failure cancels the remaining inputs.
func (s *Session) RunBatch(ctx context.Context, srcs []string) ([]*Output, error) {
	exprs := make([]symcore.Expr, len(srcs))
	for i, src := range srcs {
		x, err := parse.ParseExpr(s.table, src, parse.Options{Relaxed: s.cfg.Engine.RelaxedSyntax})
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i+1, err)
		}
		exprs[i] = x
	}

	base := s.line
	s.line += len(srcs)
	outs := make([]*Output, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Parallelism > 0 {
		g.SetLimit(s.cfg.Parallelism)
	}
	for i := range exprs {
		g.Go(func() error {
			e := engine.New(s.table, s.cfg.Engine)
			out, err := s.evaluate(engine.NewContext(gctx, e), base+i+1, srcs[i], exprs[i])
			if err != nil {
				return fmt.Errorf("input %d: %w", i+1, err)
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// evaluate runs x on the engine bound to ctx.
func (s *Session) evaluate(ctx context.Context, line int, input string, x symcore.Expr) (*Output, error) {
	e, ok := engine.FromContext(ctx)
	if !ok {
		e = s.engine
	}
	res, err := engine.RunConstrained(ctx, e, x, s.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	text, err := exprfmt.Format(res.Expr, s.cfg.Format)
	if err != nil {
		return nil, err
	}
	return &Output{
		Line:        line,
		Input:       input,
		Expr:        res.Expr,
		Text:        text,
		Void:        res.Void,
		Fingerprint: s.fp.Fingerprint(res.Expr),
		Warnings:    res.Warnings,
		Elapsed:     res.Elapsed,
	}, nil
}
