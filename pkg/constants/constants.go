// Package constants provides shared constants used throughout lookersync.
// Values that the reconciler treats as policy (column names, excluded and
// special-case attributes) are defaults only; they are passed into the
// reconciler through its Config so tests and callers can vary them.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the timeout applied to every Looker API request
	DefaultHTTPTimeout = 30 * time.Second

	// ShutdownTimeout bounds cleanup after a failed CLI run
	ShutdownTimeout = 5 * time.Second
)

// File permission constants
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for files holding credentials (rw-------)
	SecureFilePermissions = 0600
)

// Source-of-truth defaults
const (
	// MetadataLookID is the saved Look holding the OEM dealer group metadata table
	MetadataLookID = 6

	// MetadataResultFormat is the Look result format; tab-delimited text avoids
	// the quoting problems JSON and CSV have with values containing commas or quotes.
	MetadataResultFormat = "txt"
)

// Environment names
const (
	EnvironmentDev  = "dev"
	EnvironmentProd = "prod"
)

// Host keys under "hosts" in the credentials file
const (
	HostKeyDev  = "devdealerware"
	HostKeyProd = "insights"
)

// Metadata table columns, after header normalization
const (
	ColumnGroupName        = "dealerware_oem_metadata_oem_dealer_grp_name"
	ColumnAttributeName    = "dealerware_oem_metadata_user_attribute_name"
	ColumnAttributeType    = "dealerware_oem_metadata_user_attribute_type"
	ColumnAttributeDefault = "dealerware_oem_metadata_user_attribute_default_value"
	ColumnAttributeValue   = "dealerware_oem_metadata_user_attribute_value"
	ColumnURLDev           = "dealerware_oem_metadata_url_dev"
	ColumnURLProd          = "dealerware_oem_metadata_url_prod"
)

// Attribute and group names with special handling
const (
	AttributeFirstOfMonth = "first_of_month"
	AttributeLastOfMonth  = "last_of_month"
	GroupAllUsers         = "All Users"

	// DateLayout is how date-typed attribute values are written
	DateLayout = "2006-01-02"
)

// ExcludedAttributes are platform-reserved attributes that are never touched.
func ExcludedAttributes() []string {
	return []string{"locale", "number_format"}
}

// SpecialCaseAttributes are attributes whose defaults follow the calendar
// rather than the metadata table.
func SpecialCaseAttributes() []string {
	return []string{AttributeFirstOfMonth, AttributeLastOfMonth}
}
