// Package snapshot captures the current access-control state of one Looker
// environment: its groups and its non-system user attributes.
package snapshot

import (
	"context"
	"sort"

	"github.com/agentstation/lookersync/internal/looker"
	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/logging"
)

// GroupFields restricts the group listing to what the snapshot needs.
const GroupFields = "id,name"

// Attribute is the part of a user attribute the reconciler compares.
type Attribute struct {
	ID           looker.ID `json:"id" yaml:"id"`
	Type         string    `json:"type" yaml:"type"`
	DefaultValue string    `json:"default_value" yaml:"default_value"`
}

// Snapshot is the state of one environment at the start of a pass. The
// reconciler adds entries for anything it creates during the pass.
type Snapshot struct {
	Groups     map[string]looker.ID `json:"groups" yaml:"groups"`
	Attributes map[string]Attribute `json:"attributes" yaml:"attributes"`
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{
		Groups:     make(map[string]looker.ID),
		Attributes: make(map[string]Attribute),
	}
}

// GroupNames returns the group names in sorted order.
func (s *Snapshot) GroupNames() []string {
	names := make([]string, 0, len(s.Groups))
	for n := range s.Groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AttributeNames returns the attribute names in sorted order.
func (s *Snapshot) AttributeNames() []string {
	names := make([]string, 0, len(s.Attributes))
	for n := range s.Attributes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Source lists groups and user attributes. *looker.Client implements it.
type Source interface {
	AllGroups(ctx context.Context, fields string) ([]looker.Group, error)
	AllUserAttributes(ctx context.Context) ([]looker.UserAttribute, error)
}

type options struct {
	excluded []string
}

// Option configures Fetch.
type Option func(*options)

// WithExcluded replaces the set of attribute names left out of the
// snapshot. The default is constants.ExcludedAttributes.
func WithExcluded(names ...string) Option {
	return func(o *options) {
		o.excluded = names
	}
}

// Fetch reads every group and every non-system, non-excluded user attribute.
func Fetch(ctx context.Context, src Source, opts ...Option) (*Snapshot, error) {
	o := &options{excluded: constants.ExcludedAttributes()}
	for _, opt := range opts {
		opt(o)
	}
	excluded := make(map[string]bool, len(o.excluded))
	for _, n := range o.excluded {
		excluded[n] = true
	}

	groups, err := src.AllGroups(ctx, GroupFields)
	if err != nil {
		return nil, err
	}
	attrs, err := src.AllUserAttributes(ctx)
	if err != nil {
		return nil, err
	}

	snap := New()
	for _, g := range groups {
		snap.Groups[g.Name] = g.ID
	}
	for _, a := range attrs {
		if a.IsSystem || excluded[a.Name] {
			continue
		}
		snap.Attributes[a.Name] = Attribute{
			ID:           a.ID,
			Type:         a.Type,
			DefaultValue: a.DefaultValue,
		}
	}

	logging.FromContext(ctx).Debug().
		Int("groups", len(snap.Groups)).
		Int("attributes", len(snap.Attributes)).
		Msg("Fetched snapshot")
	return snap, nil
}
