// Package operations contains the schema changes whose effect on live traffic is measured.
package operations

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/ddlbench/internal/common/runerrors"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
)

// Operation is one schema change. Prepare puts the schema into the state Perform expects,
// Perform is the change being timed and Cleanup undoes both so that operations can run in any
// order. Cleanup is run even when Perform fails.
type Operation interface {
	Name() string
	Prepare(ctx context.Context, db structure.Database) error
	Perform(ctx context.Context, db structure.Database) error
	Cleanup(ctx context.Context, db structure.Database) error
	IsSupportedBy(db structure.Database) bool
}

// StepFunc is one phase of an operation.
type StepFunc func(ctx context.Context, db structure.Database) error

// Spec describes an operation. Nil Prepare and Cleanup do nothing; an operation with no
// Requires is supported everywhere.
type Spec struct {
	Prepare  StepFunc
	Perform  StepFunc
	Cleanup  StepFunc
	Requires structure.Feature
}

type operation struct {
	name string
	spec Spec
}

func New(name string, spec Spec) Operation {
	return &operation{name: name, spec: spec}
}

func (o *operation) Name() string { return o.name }

func (o *operation) Prepare(ctx context.Context, db structure.Database) error {
	if o.spec.Prepare == nil {
		return nil
	}
	return o.spec.Prepare(ctx, db)
}

func (o *operation) Perform(ctx context.Context, db structure.Database) error {
	if o.spec.Perform == nil {
		return errors.Errorf("operation %s has nothing to perform", o.name)
	}
	return o.spec.Perform(ctx, db)
}

func (o *operation) Cleanup(ctx context.Context, db structure.Database) error {
	if o.spec.Cleanup == nil {
		return nil
	}
	return o.spec.Cleanup(ctx, db)
}

func (o *operation) IsSupportedBy(db structure.Database) bool {
	return db.Supports(o.spec.Requires)
}

// Filter returns the operations whose names are listed, keeping their order in ops.
// An empty list selects everything.
func Filter(ops []Operation, names []string) ([]Operation, error) {
	if len(names) == 0 {
		return ops, nil
	}
	known := make([]string, len(ops))
	for i, op := range ops {
		known[i] = op.Name()
	}
	var unknown []string
	for _, name := range names {
		if !slices.Contains(known, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(known)
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "operations",
			Value:   strings.Join(unknown, ","),
			Message: "known operations are " + strings.Join(known, ", "),
		})
	}
	var selected []Operation
	for _, op := range ops {
		if slices.Contains(names, op.Name()) {
			selected = append(selected, op)
		}
	}
	return selected, nil
}
