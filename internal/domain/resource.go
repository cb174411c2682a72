package domain

import (
	"encoding/json"
	"time"
)

// ResourceType identifies one of the synchronized Teamleader collections.
type ResourceType string

const (
	ResourceCompanies    ResourceType = "companies"
	ResourceContacts     ResourceType = "contacts"
	ResourceDepartments  ResourceType = "departments"
	ResourceEvents       ResourceType = "events"
	ResourceInvoices     ResourceType = "invoices"
	ResourceProjects     ResourceType = "projects"
	ResourceUsers        ResourceType = "users"
	ResourceCustomFields ResourceType = "custom_fields"
)

// Document is one upstream entity as returned by a detail call, ready to be
// upserted. Content is stored verbatim as jsonb; the sync engine never
// interprets it.
type Document struct {
	ExternalID string
	Content    json.RawMessage
}

// ResourceStatus describes the sync state of one resource table.
type ResourceStatus struct {
	DatabaseTable string     `json:"database_table"`
	SyncedEntries int64      `json:"synced_entries"`
	LastModified  *time.Time `json:"last_modified"`
}

// SyncSummary maps each resource type to the number of records synced in
// one invocation.
type SyncSummary map[ResourceType]int
