package teamleader

import "github.com/viaacode/teamleader2db/internal/domain"

// Descriptor declares the endpoints and the per-resource API quirks of one
// synchronized collection. The fetch loop consumes these generically; no
// resource gets its own bespoke pagination logic.
type Descriptor struct {
	Type     domain.ResourceType
	ListPath string
	InfoPath string

	// Paginates is false for endpoints that ignore page[number] and would
	// serve the same (full) result for every page.
	Paginates bool

	// FiltersUpdatedSince is false for endpoints without filter[updated_since]
	// support; those are always refetched in full.
	FiltersUpdatedSince bool
}

// Resources lists the synchronized collections in sync order.
func Resources() []Descriptor {
	return []Descriptor{
		{domain.ResourceCompanies, "/companies.list", "/companies.info", true, true},
		{domain.ResourceContacts, "/contacts.list", "/contacts.info", true, true},
		{domain.ResourceDepartments, "/departments.list", "/departments.info", false, false},
		{domain.ResourceEvents, "/events.list", "/events.info", true, false},
		{domain.ResourceInvoices, "/invoices.list", "/invoices.info", true, true},
		{domain.ResourceProjects, "/projects.list", "/projects.info", true, true},
		{domain.ResourceUsers, "/users.list", "/users.info", true, false},
		{domain.ResourceCustomFields, "/customFieldDefinitions.list", "/customFieldDefinitions.info", false, false},
	}
}

// Lookup returns the descriptor for the given resource type.
func Lookup(resource domain.ResourceType) (Descriptor, bool) {
	for _, d := range Resources() {
		if d.Type == resource {
			return d, true
		}
	}
	return Descriptor{}, false
}
