package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/lookersync/internal/looker"
)

// Result represents the outcome of one reconciliation pass.
type Result struct {
	Environment string `json:"environment" yaml:"environment"`
	DryRun      bool   `json:"dry_run" yaml:"dry_run"`

	// Rows counts the metadata rows that apply to this environment
	Rows int `json:"rows" yaml:"rows"`

	CreatedAttributes []AttributeSpec   `json:"created_attributes,omitempty" yaml:"created_attributes,omitempty"`
	CreatedGroups     []string          `json:"created_groups,omitempty" yaml:"created_groups,omitempty"`
	UpdatedAttributes []AttributeUpdate `json:"updated_attributes,omitempty" yaml:"updated_attributes,omitempty"`
	MonthValues       []MonthValue      `json:"month_values,omitempty" yaml:"month_values,omitempty"`
	GroupValues       []GroupValueSet   `json:"group_values,omitempty" yaml:"group_values,omitempty"`
	Conflicts         []Conflict        `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`

	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// AttributeUpdate records a drift correction.
type AttributeUpdate struct {
	Name   string        `json:"name" yaml:"name"`
	ID     looker.ID     `json:"id" yaml:"id"`
	Before AttributeSpec `json:"before" yaml:"before"`
	After  AttributeSpec `json:"after" yaml:"after"`
	// Fields lists what differed: "type", "default_value" or both
	Fields []string `json:"fields" yaml:"fields"`
}

// MonthValue records a calendar-driven value pushed to a special-case attribute.
type MonthValue struct {
	Attribute string    `json:"attribute" yaml:"attribute"`
	ID        looker.ID `json:"id" yaml:"id"`
	Value     string    `json:"value" yaml:"value"`
}

// GroupValueSet is the complete list of group values written to one attribute.
type GroupValueSet struct {
	Attribute string              `json:"attribute" yaml:"attribute"`
	ID        looker.ID           `json:"id" yaml:"id"`
	Values    []looker.GroupValue `json:"values" yaml:"values"`
}

// Conflict records a metadata row whose attribute definition disagreed
// with the first definition seen for the same name. The first one wins.
type Conflict struct {
	Attribute string        `json:"attribute" yaml:"attribute"`
	Kept      AttributeSpec `json:"kept" yaml:"kept"`
	Ignored   AttributeSpec `json:"ignored" yaml:"ignored"`
}

func newResult(env string, dryRun bool, now time.Time) *Result {
	return &Result{
		Environment: env,
		DryRun:      dryRun,
		StartTime:   now,
	}
}

func (r *Result) finalize(now time.Time) {
	r.EndTime = now
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// HasChanges reports whether the pass created or corrected anything.
// Month values and group values are rewritten every pass and do not count.
func (r *Result) HasChanges() bool {
	return len(r.CreatedAttributes) > 0 || len(r.CreatedGroups) > 0 || len(r.UpdatedAttributes) > 0
}

// Writes returns the number of write calls the pass issued (or would issue
// in dry-run mode).
func (r *Result) Writes() int {
	// each month value is one update plus one group value write
	return len(r.CreatedAttributes) + len(r.CreatedGroups) + len(r.UpdatedAttributes) +
		2*len(r.MonthValues) + len(r.GroupValues)
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	var b strings.Builder
	b.WriteString(r.Environment)
	b.WriteString(": ")
	if r.HasChanges() {
		fmt.Fprintf(&b, "%d attributes created, %d groups created, %d attributes updated",
			len(r.CreatedAttributes), len(r.CreatedGroups), len(r.UpdatedAttributes))
	} else {
		b.WriteString("no structural changes")
	}
	fmt.Fprintf(&b, ", %d group value sets", len(r.GroupValues))
	if len(r.Conflicts) > 0 {
		fmt.Fprintf(&b, ", %d conflicts", len(r.Conflicts))
	}
	if r.DryRun {
		b.WriteString(" (dry run)")
	}
	return b.String()
}
