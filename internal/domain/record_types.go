package domain

// Record types carrying a per-tenant field configuration.
const (
	RecordTypeAccount = "accounts"
	RecordTypeContact = "contacts"
	RecordTypeLead    = "leads"
	RecordTypeProduct = "products"
)

// Synthetic lead import columns: a one-to-many product association flattened
// into a positionally correlated name/quantity column pair.
const (
	LeadProductNamesField      = "productNames"
	LeadProductQuantitiesField = "productQuantities"
	LeadProductNamesLabel      = "Product Names (comma-separated)"
	LeadProductQuantitiesLabel = "Product Quantities (comma-separated)"
)

// RecordTypeSpec 记录类型的结构性元数据（不随租户配置变化）
type RecordTypeSpec struct {
	// Table is the physical table shared by all tenants.
	Table string

	// IdentifyingField: blank on an import row means "skip, not error".
	IdentifyingField string

	// NaturalKey: fields composing the interactive-create duplicate key.
	// Empty means no duplicate guard for this type.
	NaturalKey []string

	// ImportKey: the single field the batch loader dedupes on.
	ImportKey string

	// ExemptFields are structural multi-value fields honored regardless of
	// tenant configuration (coerced to string lists by the schema filter).
	ExemptFields []string

	// RelationalIDFields always pass the schema filter (foreign keys set by
	// the server, not configurable attributes).
	RelationalIDFields []string

	// SystemFields are never offered in import templates (server-generated).
	SystemFields []string
}

var recordTypeSpecs = map[string]RecordTypeSpec{
	RecordTypeAccount: {
		Table:            "accounts",
		IdentifyingField: "account_name",
		NaturalKey:       []string{"account_name", "billing_city"},
		ImportKey:        "account_name",
		ExemptFields:     []string{"industries"},
		SystemFields:     []string{"account_id"},
	},
	RecordTypeContact: {
		Table:            "contacts",
		IdentifyingField: "first_name",
		NaturalKey:       []string{"email"},
		ImportKey:        "email",
		SystemFields:     []string{"contact_id"},
	},
	RecordTypeLead: {
		Table:              "leads",
		IdentifyingField:   "account_name",
		RelationalIDFields: []string{"account_id", "contact_id"},
		SystemFields:       []string{"lead_id"},
	},
	RecordTypeProduct: {
		Table:            "products",
		IdentifyingField: "product_name",
		NaturalKey:       []string{"product_name"},
		ImportKey:        "product_name",
		SystemFields:     []string{"product_id"},
	},
}

// SpecFor returns the structural metadata for a record type.
func SpecFor(recordType string) (RecordTypeSpec, bool) {
	s, ok := recordTypeSpecs[recordType]
	return s, ok
}

// KnownRecordType reports whether recordType has a registered spec.
func KnownRecordType(recordType string) bool {
	_, ok := recordTypeSpecs[recordType]
	return ok
}

// RecordTypes lists all registered record types (stable order).
func RecordTypes() []string {
	return []string{RecordTypeAccount, RecordTypeContact, RecordTypeLead, RecordTypeProduct}
}

// StandardLeadFields are physical columns of the leads table; enabled fields
// outside this list land in the custom_fields JSONB column.
var StandardLeadFields = map[string]bool{
	"account_id": true, "account_name": true, "contact_id": true, "contact_name": true,
	"department": true, "phone": true, "email": true, "whatsapp": true,
	"lead_source": true, "product_id": true, "product_name": true, "lead_status": true,
	"priority": true, "assigned_to": true, "lead_date": true, "closing_date": true,
	"budget": true, "quantity": true, "price_per_unit": true, "location": true,
	"city": true, "state": true, "country": true, "address": true, "buyer_ref": true,
	"expected_closing_date": true, "next_followup_date": true, "notes": true,
}
