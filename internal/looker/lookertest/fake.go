// Package lookertest provides an in-memory Looker instance for tests.
package lookertest

import (
	"context"
	"slices"
	"sync"

	"github.com/agentstation/lookersync/internal/looker"
	"github.com/agentstation/lookersync/pkg/errors"
)

// Method names recorded in Call.Method.
const (
	MethodRunLook             = "RunLook"
	MethodAllGroups           = "AllGroups"
	MethodAllUserAttributes   = "AllUserAttributes"
	MethodCreateUserAttribute = "CreateUserAttribute"
	MethodUpdateUserAttribute = "UpdateUserAttribute"
	MethodCreateGroup         = "CreateGroup"
	MethodSetGroupValues      = "SetUserAttributeGroupValues"
)

// Call is one recorded API call.
type Call struct {
	Method string
	ID     looker.ID
	Body   any
}

// Fake is an in-memory Looker instance. It satisfies the client interfaces
// of the metadata, snapshot and reconciler packages.
type Fake struct {
	mu sync.Mutex

	// Table is returned by RunLook.
	Table string

	groups      []looker.Group
	attributes  []looker.UserAttribute
	groupValues map[looker.ID][]looker.GroupValue
	calls       []Call
	failures    map[string]error
	nextID      looker.ID
}

// New returns an instance that already has the All Users group.
func New() *Fake {
	f := &Fake{
		groupValues: make(map[looker.ID][]looker.GroupValue),
		failures:    make(map[string]error),
		nextID:      100,
	}
	f.AddGroup("All Users")
	return f
}

func (f *Fake) id() looker.ID {
	f.nextID++
	return f.nextID
}

// AddGroup seeds a group and returns its ID.
func (f *Fake) AddGroup(name string) looker.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.groups = append(f.groups, looker.Group{ID: id, Name: name})
	return id
}

// AddAttribute seeds a non-system user attribute and returns its ID.
func (f *Fake) AddAttribute(name, typ, def string) looker.ID {
	return f.addAttribute(looker.UserAttribute{Name: name, Type: typ, DefaultValue: def})
}

// AddSystemAttribute seeds a system user attribute.
func (f *Fake) AddSystemAttribute(name string) looker.ID {
	return f.addAttribute(looker.UserAttribute{Name: name, Type: "string", IsSystem: true})
}

func (f *Fake) addAttribute(a looker.UserAttribute) looker.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.id()
	f.attributes = append(f.attributes, a)
	return a.ID
}

// FailOn makes every later call to method return err.
func (f *Fake) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// Attribute returns the attribute named name.
func (f *Fake) Attribute(name string) (looker.UserAttribute, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attributes {
		if a.Name == name {
			return a, true
		}
	}
	return looker.UserAttribute{}, false
}

// Group returns the ID of the group named name.
func (f *Fake) Group(name string) (looker.ID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.Name == name {
			return g.ID, true
		}
	}
	return 0, false
}

// GroupValues returns the group values currently set on an attribute.
func (f *Fake) GroupValues(id looker.ID) []looker.GroupValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.groupValues[id])
}

// Calls returns every recorded call, optionally restricted to methods.
func (f *Fake) Calls(methods ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(methods) == 0 {
		return slices.Clone(f.calls)
	}
	var out []Call
	for _, c := range f.calls {
		if slices.Contains(methods, c.Method) {
			out = append(out, c)
		}
	}
	return out
}

// Writes returns the recorded calls that modify state.
func (f *Fake) Writes() []Call {
	return f.Calls(MethodCreateUserAttribute, MethodUpdateUserAttribute, MethodCreateGroup, MethodSetGroupValues)
}

// ResetCalls clears the call log.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) record(method string, id looker.ID, body any) error {
	f.calls = append(f.calls, Call{Method: method, ID: id, Body: body})
	return f.failures[method]
}

// RunLook implements metadata.LookRunner.
func (f *Fake) RunLook(_ context.Context, lookID int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodRunLook, looker.ID(lookID), nil); err != nil {
		return "", err
	}
	return f.Table, nil
}

// AllGroups implements snapshot.Source.
func (f *Fake) AllGroups(context.Context, string) ([]looker.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodAllGroups, 0, nil); err != nil {
		return nil, err
	}
	return slices.Clone(f.groups), nil
}

// AllUserAttributes implements snapshot.Source.
func (f *Fake) AllUserAttributes(context.Context) ([]looker.UserAttribute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodAllUserAttributes, 0, nil); err != nil {
		return nil, err
	}
	return slices.Clone(f.attributes), nil
}

// CreateUserAttribute implements reconciler.Client.
func (f *Fake) CreateUserAttribute(_ context.Context, body looker.WriteUserAttribute) (*looker.UserAttribute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodCreateUserAttribute, 0, body); err != nil {
		return nil, err
	}
	for _, a := range f.attributes {
		if a.Name == body.Name {
			return nil, errors.WrapResource("create", "user attribute", body.Name, errors.NewAPIError("fake", 409, "already exists"))
		}
	}
	a := looker.UserAttribute{
		ID:            f.id(),
		Name:          body.Name,
		Label:         body.Label,
		Type:          body.Type,
		DefaultValue:  body.DefaultValue,
		ValueIsHidden: body.ValueIsHidden,
		UserCanView:   body.UserCanView,
		UserCanEdit:   body.UserCanEdit,
	}
	f.attributes = append(f.attributes, a)
	return &a, nil
}

// UpdateUserAttribute implements reconciler.Client.
func (f *Fake) UpdateUserAttribute(_ context.Context, id looker.ID, body looker.UserAttributeUpdate) (*looker.UserAttribute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodUpdateUserAttribute, id, body); err != nil {
		return nil, err
	}
	for i := range f.attributes {
		a := &f.attributes[i]
		if a.ID != id {
			continue
		}
		if body.Type != nil {
			a.Type = *body.Type
		}
		if body.DefaultValue != nil {
			a.DefaultValue = *body.DefaultValue
		}
		out := *a
		return &out, nil
	}
	return nil, errors.WrapResource("update", "user attribute", id.String(), errors.NewAPIError("fake", 404, "not found"))
}

// CreateGroup implements reconciler.Client.
func (f *Fake) CreateGroup(_ context.Context, body looker.WriteGroup) (*looker.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodCreateGroup, 0, body); err != nil {
		return nil, err
	}
	g := looker.Group{ID: f.id(), Name: body.Name}
	f.groups = append(f.groups, g)
	return &g, nil
}

// SetUserAttributeGroupValues implements reconciler.Client.
func (f *Fake) SetUserAttributeGroupValues(_ context.Context, id looker.ID, values []looker.GroupValue) ([]looker.UserAttributeGroupValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values = slices.Clone(values)
	if err := f.record(MethodSetGroupValues, id, values); err != nil {
		return nil, err
	}
	f.groupValues[id] = values
	out := make([]looker.UserAttributeGroupValue, len(values))
	for i, v := range values {
		out[i] = looker.UserAttributeGroupValue{GroupID: v.GroupID, UserAttributeID: id, Rank: i, Value: v.Value}
	}
	return out, nil
}

// BaseURL returns a placeholder URL.
func (f *Fake) BaseURL() string { return "https://fake.looker.test/api/3.1" }

// Logout is a no-op.
func (f *Fake) Logout(context.Context) error { return nil }
