// Package reconciler brings one Looker environment in line with the
// metadata table. A pass creates missing user attributes and groups,
// pushes the calendar-driven month boundary values, corrects attribute
// type and default drift, and rewrites every mapped attribute's group
// values. It never deletes anything.
package reconciler

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/lookersync/internal/looker"
	"github.com/agentstation/lookersync/internal/utils/ptr"
	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
	"github.com/agentstation/lookersync/pkg/metadata"
	"github.com/agentstation/lookersync/pkg/snapshot"
)

// AttributeSpec is the desired definition of a user attribute.
type AttributeSpec struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Default string `json:"default_value" yaml:"default_value"`
}

// Client is the set of Looker write operations a pass issues.
type Client interface {
	CreateUserAttribute(ctx context.Context, body looker.WriteUserAttribute) (*looker.UserAttribute, error)
	UpdateUserAttribute(ctx context.Context, id looker.ID, body looker.UserAttributeUpdate) (*looker.UserAttribute, error)
	CreateGroup(ctx context.Context, body looker.WriteGroup) (*looker.Group, error)
	SetUserAttributeGroupValues(ctx context.Context, id looker.ID, values []looker.GroupValue) ([]looker.UserAttributeGroupValue, error)
}

// Target is the environment a pass runs against.
type Target struct {
	// Name is the environment name used in logs and results.
	Name string
	// URLColumn selects the rows that apply to this environment.
	URLColumn string
	Client    Client
}

// Reconciler is the main interface for reconciling one environment.
type Reconciler interface {
	// Reconcile applies the metadata rows to the environment described by
	// snap and target. snap is not modified.
	Reconcile(ctx context.Context, rows []metadata.Row, snap *snapshot.Snapshot, target Target) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	cfg      Config
	excluded map[string]bool
	title    cases.Caser
}

// New creates a new Reconciler with options applied over DefaultConfig.
func New(opts ...Option) (Reconciler, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(cfg.Excluded))
	for _, n := range cfg.Excluded {
		excluded[n] = true
	}
	return &reconciler{
		cfg:      cfg,
		excluded: excluded,
		title:    cases.Title(language.Und),
	}, nil
}

// pass holds the state of one Reconcile call.
type pass struct {
	*reconciler
	target Target
	logger *zerolog.Logger
	result *Result

	groups     map[string]looker.ID
	attributes map[string]snapshot.Attribute

	rows          []metadata.Row
	desired       map[string]AttributeSpec
	desiredGroups map[string]bool

	provisional looker.ID
}

// Reconcile performs one pass with clean step-by-step flow.
func (r *reconciler) Reconcile(ctx context.Context, rows []metadata.Row, snap *snapshot.Snapshot, target Target) (*Result, error) {
	if err := r.validate(snap, target); err != nil {
		return nil, err
	}

	ctx = logging.WithEnvironment(ctx, target.Name)
	p := &pass{
		reconciler: r,
		target:     target,
		logger:     logging.FromContext(ctx),
		result:     newResult(target.Name, r.cfg.DryRun, r.cfg.Now()),
		groups:     maps.Clone(snap.Groups),
		attributes: maps.Clone(snap.Attributes),
	}
	if p.groups == nil {
		p.groups = make(map[string]looker.ID)
	}
	if p.attributes == nil {
		p.attributes = make(map[string]snapshot.Attribute)
	}

	// Step A: desired attributes and groups for this environment
	p.collect(rows)

	// Step B: create anything missing so later steps can resolve IDs
	if err := p.createMissing(ctx); err != nil {
		return nil, err
	}

	// Step C: month boundary attributes
	if err := p.pushMonthBoundaries(ctx); err != nil {
		return nil, err
	}

	// Step D: type and default drift
	if err := p.correctDrift(ctx); err != nil {
		return nil, err
	}

	// Step E: group values
	if err := p.setGroupValues(ctx); err != nil {
		return nil, err
	}

	p.result.finalize(r.cfg.Now())
	p.logger.Info().
		Bool("dry_run", r.cfg.DryRun).
		Int("attributes_created", len(p.result.CreatedAttributes)).
		Int("groups_created", len(p.result.CreatedGroups)).
		Int("attributes_updated", len(p.result.UpdatedAttributes)).
		Int("group_value_sets", len(p.result.GroupValues)).
		Int("conflicts", len(p.result.Conflicts)).
		Msg("Reconciliation pass completed")
	return p.result, nil
}

func (r *reconciler) validate(snap *snapshot.Snapshot, target Target) error {
	switch {
	case snap == nil:
		return &errors.ValidationError{Field: "snapshot", Message: "cannot be nil"}
	case target.URLColumn == "":
		return &errors.ValidationError{Field: "url_column", Message: "cannot be empty"}
	case target.Client == nil && !r.cfg.DryRun:
		return &errors.ValidationError{Field: "client", Message: "cannot be nil"}
	}
	return nil
}

// collect filters rows to the target environment and builds the desired
// attribute and group sets. The first definition of an attribute wins.
func (p *pass) collect(rows []metadata.Row) {
	cols := p.cfg.Columns
	p.desired = make(map[string]AttributeSpec)
	p.desiredGroups = make(map[string]bool)

	for _, row := range rows {
		if row.Get(p.target.URLColumn) == "" {
			continue
		}
		p.rows = append(p.rows, row)

		name := row.Get(cols.AttributeName)
		if name != "" && !p.excluded[name] {
			spec := AttributeSpec{
				Name:    name,
				Type:    row.Get(cols.AttributeType),
				Default: row.Get(cols.AttributeDefault),
			}
			if kept, ok := p.desired[name]; !ok {
				p.desired[name] = spec
			} else if kept != spec {
				p.result.Conflicts = append(p.result.Conflicts, Conflict{Attribute: name, Kept: kept, Ignored: spec})
				p.logger.Warn().
					Str("attribute", name).
					Str("kept_type", kept.Type).
					Str("kept_default", kept.Default).
					Str("ignored_type", spec.Type).
					Str("ignored_default", spec.Default).
					Msg("Conflicting attribute definitions in metadata table, keeping the first")
			}
		}

		if group := row.Get(cols.Group); group != "" {
			p.desiredGroups[group] = true
		}
	}
	p.result.Rows = len(p.rows)
}

// label turns an attribute name into its display label: "oem_dealer_id"
// becomes "Oem Dealer Id".
func (r *reconciler) label(name string) string {
	return r.title.String(strings.ReplaceAll(name, "_", " "))
}

// nextProvisionalID hands out negative IDs for objects a dry run would create.
func (p *pass) nextProvisionalID() looker.ID {
	p.provisional--
	return p.provisional
}

func (p *pass) createMissing(ctx context.Context) error {
	for _, name := range slices.Sorted(maps.Keys(p.desired)) {
		if _, ok := p.attributes[name]; ok {
			continue
		}
		spec := p.desired[name]
		p.logger.Warn().
			Str("attribute", name).
			Msg("Missing attribute from metadata, adding attribute")

		id := p.nextProvisionalID()
		if !p.cfg.DryRun {
			created, err := p.target.Client.CreateUserAttribute(ctx, looker.WriteUserAttribute{
				Name:          name,
				Label:         p.label(name),
				Type:          spec.Type,
				DefaultValue:  spec.Default,
				ValueIsHidden: false,
				UserCanView:   true,
				UserCanEdit:   false,
			})
			if err != nil {
				return err
			}
			id = created.ID
		}
		p.attributes[name] = snapshot.Attribute{ID: id, Type: spec.Type, DefaultValue: spec.Default}
		p.result.CreatedAttributes = append(p.result.CreatedAttributes, spec)
	}

	for _, name := range slices.Sorted(maps.Keys(p.desiredGroups)) {
		if _, ok := p.groups[name]; ok {
			continue
		}
		p.logger.Warn().
			Str("group", name).
			Msg("Missing group from metadata, adding group")

		id := p.nextProvisionalID()
		if !p.cfg.DryRun {
			created, err := p.target.Client.CreateGroup(ctx, looker.WriteGroup{
				Name:                    name,
				CanAddToContentMetadata: true,
			})
			if err != nil {
				return err
			}
			id = created.ID
		}
		p.groups[name] = id
		p.result.CreatedGroups = append(p.result.CreatedGroups, name)
	}
	return nil
}

// pushMonthBoundaries sets the first and last of month attributes to the
// current month. It runs every pass, whether or not the values changed.
func (p *pass) pushMonthBoundaries(ctx context.Context) error {
	now := p.cfg.Now()
	first := now.AddDate(0, 0, 1-now.Day())
	last := first.AddDate(0, 1, -1)
	if now.Day() == 1 {
		p.logger.Info().Msg("Execution occurring on first day of month, attributes should be updated to current month")
	}

	allUsers, ok := p.groups[p.cfg.AllUsersGroup]
	if !ok {
		return errors.NewNotFoundError("group", p.cfg.AllUsersGroup)
	}

	boundaries := []struct {
		name string
		attr snapshot.Attribute
		date string
	}{
		{name: p.cfg.FirstOfMonth, date: first.Format(constants.DateLayout)},
		{name: p.cfg.LastOfMonth, date: last.Format(constants.DateLayout)},
	}
	for i := range boundaries {
		attr, ok := p.attributes[boundaries[i].name]
		if !ok {
			return errors.NewNotFoundError("user attribute", boundaries[i].name)
		}
		boundaries[i].attr = attr
	}

	for _, b := range boundaries {
		if !p.cfg.DryRun {
			if _, err := p.target.Client.UpdateUserAttribute(ctx, b.attr.ID, looker.UserAttributeUpdate{DefaultValue: ptr.String(b.date)}); err != nil {
				return err
			}
		}
		p.result.MonthValues = append(p.result.MonthValues, MonthValue{Attribute: b.name, ID: b.attr.ID, Value: b.date})
	}
	for _, b := range boundaries {
		values := []looker.GroupValue{{GroupID: allUsers, Value: b.date}}
		if !p.cfg.DryRun {
			if _, err := p.target.Client.SetUserAttributeGroupValues(ctx, b.attr.ID, values); err != nil {
				return err
			}
		}
		p.logger.Debug().
			Str("attribute", b.name).
			Str("value", b.date).
			Msg("Pushed month boundary value")
	}
	return nil
}

// correctDrift updates attributes whose type or default differs from the
// metadata table. Month boundary attributes are left to pushMonthBoundaries.
func (p *pass) correctDrift(ctx context.Context) error {
	for _, name := range slices.Sorted(maps.Keys(p.desired)) {
		if p.cfg.isSpecial(name) {
			continue
		}
		want := p.desired[name]
		have := p.attributes[name]

		var fields []string
		if have.Type != want.Type {
			fields = append(fields, "type")
			p.logger.Info().
				Str("attribute", name).
				Str("from", have.Type).
				Str("to", want.Type).
				Msg("Attribute has mismatched type, updating to metadata type")
		}
		if have.DefaultValue != want.Default {
			fields = append(fields, "default_value")
			p.logger.Info().
				Str("attribute", name).
				Str("from", have.DefaultValue).
				Str("to", want.Default).
				Msg("Attribute has mismatched default, updating to metadata default")
		}
		if len(fields) == 0 {
			continue
		}

		if !p.cfg.DryRun {
			if _, err := p.target.Client.UpdateUserAttribute(ctx, have.ID, looker.UserAttributeUpdate{
				Type:         ptr.String(want.Type),
				DefaultValue: ptr.String(want.Default),
			}); err != nil {
				return err
			}
		}
		p.result.UpdatedAttributes = append(p.result.UpdatedAttributes, AttributeUpdate{
			Name:   name,
			ID:     have.ID,
			Before: AttributeSpec{Name: name, Type: have.Type, Default: have.DefaultValue},
			After:  want,
			Fields: fields,
		})
		p.attributes[name] = snapshot.Attribute{ID: have.ID, Type: want.Type, DefaultValue: want.Default}
	}
	return nil
}

// setGroupValues writes, per attribute, the complete list of group values
// found in the environment's rows. Each call replaces whatever was there.
func (p *pass) setGroupValues(ctx context.Context) error {
	cols := p.cfg.Columns
	mappings := make(map[string][]looker.GroupValue)

	for _, row := range p.rows {
		group := row.Get(cols.Group)
		name := row.Get(cols.AttributeName)
		if group == "" || name == "" || p.excluded[name] {
			continue
		}
		groupID, ok := p.groups[group]
		if !ok {
			return errors.NewNotFoundError("group", group)
		}
		mappings[name] = append(mappings[name], looker.GroupValue{
			GroupID: groupID,
			Value:   row.Get(cols.AttributeValue),
		})
	}

	for _, name := range slices.Sorted(maps.Keys(mappings)) {
		attr, ok := p.attributes[name]
		if !ok {
			return errors.NewNotFoundError("user attribute", name)
		}
		values := mappings[name]
		p.logger.Debug().
			Str("attribute", name).
			Int("groups", len(values)).
			Msg("Mapping group values to user attribute")

		if !p.cfg.DryRun {
			if _, err := p.target.Client.SetUserAttributeGroupValues(ctx, attr.ID, values); err != nil {
				return err
			}
		}
		p.result.GroupValues = append(p.result.GroupValues, GroupValueSet{
			Attribute: name,
			ID:        attr.ID,
			Values:    values,
		})
	}
	return nil
}
