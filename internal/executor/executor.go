// Package executor runs natural-language tasks against a language model
// backend. Agents hand it a task description and a complexity hint; the
// executor picks a backend and returns the model's text response.
package executor

import (
	"context"
	"fmt"
	"strings"
)

// Complexity hints which backend a task should run on. Simple tasks run
// on a local model when one is available; complex tasks go to a hosted
// model.
type Complexity string

const (
	ComplexityAuto    Complexity = "auto"
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// Executor runs a single task and returns the model output.
type Executor interface {
	Execute(ctx context.Context, task string, complexity Complexity) (string, error)
	Name() string
}

// complexMarkers are phrases that push an auto-classified task to the
// hosted backend.
var complexMarkers = []string{
	"analyze",
	"strategy",
	"compare",
	"summarize",
	"draft",
	"plan",
	"decide",
	"evaluate",
}

// Classify resolves an auto hint to simple or complex based on the task
// text. Explicit hints pass through unchanged.
func Classify(task string, hint Complexity) Complexity {
	if hint == ComplexitySimple || hint == ComplexityComplex {
		return hint
	}
	lower := strings.ToLower(task)
	for _, marker := range complexMarkers {
		if strings.Contains(lower, marker) {
			return ComplexityComplex
		}
	}
	if len(task) > 400 {
		return ComplexityComplex
	}
	return ComplexitySimple
}

// Router dispatches tasks between a local and a hosted executor. Either
// side may be nil; the router falls back to whichever backend exists.
type Router struct {
	local  Executor
	hosted Executor
}

func NewRouter(local, hosted Executor) (*Router, error) {
	if local == nil && hosted == nil {
		return nil, fmt.Errorf("executor: router needs at least one backend")
	}
	return &Router{local: local, hosted: hosted}, nil
}

func (r *Router) Name() string { return "router" }

func (r *Router) Execute(ctx context.Context, task string, complexity Complexity) (string, error) {
	target := r.pick(Classify(task, complexity))
	out, err := target.Execute(ctx, task, complexity)
	if err != nil && target == r.local && r.hosted != nil {
		// Local backend failed; retry once on the hosted side.
		return r.hosted.Execute(ctx, task, complexity)
	}
	return out, err
}

func (r *Router) pick(c Complexity) Executor {
	if c == ComplexityComplex && r.hosted != nil {
		return r.hosted
	}
	if r.local != nil {
		return r.local
	}
	return r.hosted
}

// Static returns a fixed response for every task. It backs tests and
// deployments with no model configured.
type Static struct {
	Response string
}

func (s *Static) Name() string { return "static" }

func (s *Static) Execute(ctx context.Context, task string, complexity Complexity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Response != "" {
		return s.Response, nil
	}
	return fmt.Sprintf("acknowledged: %s", task), nil
}
