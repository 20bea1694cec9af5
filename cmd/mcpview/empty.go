package main

import (
	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// emptyInput is a placeholder source.Input with no rows, standing in for
// whatever real pipeline a deployment wires into view.New.
type emptyInput struct{}

var _ source.Input = emptyInput{}

func (emptyInput) Ordering() row.Ordering                                 { return nil }
func (emptyInput) AppliedFilters() bool                                   { return true }
func (emptyInput) Fetch(*change.Constraint) *row.Seq[row.Node]            { return row.Empty[row.Node]() }
func (emptyInput) Cleanup(*change.Constraint) *row.Seq[row.Node]          { return row.Empty[row.Node]() }
func (emptyInput) SetOutput(source.Output)                                {}
func (emptyInput) EnsureIndex(string)                                     {}
func (emptyInput) Destroy()                                               {}
