package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/chazu/bfi/check"
	"github.com/chazu/bfi/history"
	"github.com/chazu/bfi/manifest"
	"github.com/chazu/bfi/runner"
	"github.com/chazu/bfi/wire"
)

// InterpreterService implements the Run and Check procedures.
type InterpreterService struct {
	pool    *Pool
	cfg     *manifest.Manifest
	history *history.Store // nil disables recording
}

// NewInterpreterService creates an InterpreterService.
func NewInterpreterService(pool *Pool, cfg *manifest.Manifest, store *history.Store) *InterpreterService {
	return &InterpreterService{
		pool:    pool,
		cfg:     cfg,
		history: store,
	}
}

// Register mounts the procedures on mux. Clients may speak CBOR or JSON.
func (s *InterpreterService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(wire.CBORCodec{}),
		connect.WithCodec(wire.JSONCodec{}),
	}, opts...)
	mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, s.Run, opts...))
	mux.Handle(CheckProcedure, connect.NewUnaryHandler(CheckProcedure, s.Check, opts...))
}

// Run executes a program on a pooled worker.
func (s *InterpreterService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[RunResponse], error) {
	source, err := s.source(req.Msg.Source)
	if err != nil {
		return nil, err
	}

	cfg := runner.Config{
		MaxSteps:      stepBudget(s.cfg.Machine.MaxSteps, req.Msg.MaxSteps),
		CaptureOutput: true,
		Machine:       s.cfg.MachineOptions(),
	}

	var report *runner.Report
	err = s.pool.Do(ctx, func() {
		report, _ = runner.Run(ctx, source, nil, cfg)
	})
	if err != nil {
		return nil, poolError(err)
	}

	resp := &RunResponse{
		Success: report.Success(),
		Outcome: report.Outcome,
		Message: report.Message,
		IP:      report.IP,
		MP:      report.MP,
		Steps:   report.Steps,
		Output:  report.Output,
	}
	if s.history != nil {
		id, err := s.history.Record(ctx, source, report)
		if err != nil {
			log.Warningf("recording run: %s", err)
		} else {
			resp.ID = id
		}
	}
	return connect.NewResponse(resp), nil
}

// Check analyzes a program without running it.
func (s *InterpreterService) Check(
	ctx context.Context,
	req *connect.Request[CheckRequest],
) (*connect.Response[CheckResponse], error) {
	source, err := s.source(req.Msg.Source)
	if err != nil {
		return nil, err
	}
	diags := check.Analyze(source, s.cfg.Machine.StackDepth)
	return connect.NewResponse(&CheckResponse{
		Valid:       check.Valid(diags),
		Diagnostics: diags,
	}), nil
}

func (s *InterpreterService) source(src string) (string, error) {
	if limit := s.cfg.Server.MaxSource; limit > 0 && len(src) > limit {
		return "", connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("source is %d bytes, limit is %d", len(src), limit))
	}
	if s.cfg.Source.FoldWhitespace {
		src = check.FoldLineBreaks(src)
	}
	return src, nil
}

// stepBudget returns the tighter of two budgets where 0 means unlimited.
func stepBudget(server, request int64) int64 {
	switch {
	case request <= 0:
		return server
	case server <= 0:
		return request
	case request < server:
		return request
	}
	return server
}

func poolError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, ErrPoolStopped):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
