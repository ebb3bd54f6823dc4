package reconciler

import (
	"slices"
	"time"

	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/errors"
)

// Columns names the metadata table columns the reconciler reads.
type Columns struct {
	Group            string
	AttributeName    string
	AttributeType    string
	AttributeDefault string
	AttributeValue   string
}

// DefaultColumns returns the column names of the OEM dealer group table.
func DefaultColumns() Columns {
	return Columns{
		Group:            constants.ColumnGroupName,
		AttributeName:    constants.ColumnAttributeName,
		AttributeType:    constants.ColumnAttributeType,
		AttributeDefault: constants.ColumnAttributeDefault,
		AttributeValue:   constants.ColumnAttributeValue,
	}
}

// Config holds everything the reconciler treats as policy.
type Config struct {
	Columns Columns

	// Excluded attributes are never created, compared or mapped.
	Excluded []string

	// FirstOfMonth and LastOfMonth name the calendar-driven attributes.
	FirstOfMonth string
	LastOfMonth  string

	// AllUsersGroup receives the month boundary values.
	AllUsersGroup string

	// Now is the clock used for month boundaries and timing.
	Now func() time.Time

	// DryRun computes the result without issuing writes.
	DryRun bool
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Columns:       DefaultColumns(),
		Excluded:      constants.ExcludedAttributes(),
		FirstOfMonth:  constants.AttributeFirstOfMonth,
		LastOfMonth:   constants.AttributeLastOfMonth,
		AllUsersGroup: constants.GroupAllUsers,
		Now:           time.Now,
	}
}

// Validate checks that every required field is set.
func (c Config) Validate() error {
	required := map[string]string{
		"columns.group":             c.Columns.Group,
		"columns.attribute_name":    c.Columns.AttributeName,
		"columns.attribute_type":    c.Columns.AttributeType,
		"columns.attribute_default": c.Columns.AttributeDefault,
		"columns.attribute_value":   c.Columns.AttributeValue,
		"first_of_month":            c.FirstOfMonth,
		"last_of_month":             c.LastOfMonth,
		"all_users_group":           c.AllUsersGroup,
	}
	keys := make([]string, 0, len(required))
	for k := range required {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if required[k] == "" {
			return &errors.ValidationError{Field: k, Message: "cannot be empty"}
		}
	}
	if c.Now == nil {
		return &errors.ValidationError{Field: "now", Message: "cannot be nil"}
	}
	return nil
}

func (c Config) isSpecial(name string) bool {
	return name == c.FirstOfMonth || name == c.LastOfMonth
}

// Option is a function that configures a Reconciler.
type Option func(*Config) error

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) error {
		*c = cfg
		return nil
	}
}

// WithDryRun enables or disables dry-run mode.
func WithDryRun(enabled bool) Option {
	return func(c *Config) error {
		c.DryRun = enabled
		return nil
	}
}

// WithClock sets the clock.
func WithClock(now func() time.Time) Option {
	return func(c *Config) error {
		if now == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		c.Now = now
		return nil
	}
}

// WithExcluded replaces the excluded attribute names.
func WithExcluded(names ...string) Option {
	return func(c *Config) error {
		c.Excluded = names
		return nil
	}
}

// WithColumns overrides the metadata table column names.
func WithColumns(cols Columns) Option {
	return func(c *Config) error {
		c.Columns = cols
		return nil
	}
}
