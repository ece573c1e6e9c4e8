// Package entities assembles every built-in entity package into the list
// the composition root registers.
package entities

import (
	"github.com/zjrosen/trove/internal/entities/comments"
	"github.com/zjrosen/trove/internal/entities/issues"
	"github.com/zjrosen/trove/internal/entities/labels"
	"github.com/zjrosen/trove/internal/entities/milestones"
	"github.com/zjrosen/trove/internal/entity"
	"github.com/zjrosen/trove/internal/strategy"
)

// Registration pairs an entity's descriptor with its strategy builders.
type Registration struct {
	Descriptor *entity.Descriptor
	Builders   strategy.Builders
}

// All returns every built-in entity. Order does not matter; execution
// order comes from the dependency plan.
func All() []Registration {
	return []Registration{
		{Descriptor: labels.Descriptor(), Builders: labels.Builders()},
		{Descriptor: milestones.Descriptor(), Builders: milestones.Builders()},
		{Descriptor: issues.Descriptor(), Builders: issues.Builders()},
		{Descriptor: comments.Descriptor(), Builders: comments.Builders()},
	}
}
