package service

import (
	"database/sql"

	"recordhub-data/internal/domain"
)

// 租户开通时写入的默认字段配置。与 repository.SeedDefaults 配合：
// 已存在的行不会被覆盖，重复 seed 是安全的。

func def(recordType, name, label, fieldType, section string, order int, mandatory bool, options ...string) *domain.FieldDefinition {
	return &domain.FieldDefinition{
		RecordType:   recordType,
		FieldName:    name,
		FieldLabel:   label,
		FieldType:    fieldType,
		FieldOptions: options,
		IsEnabled:    true,
		IsMandatory:  mandatory,
		DisplayOrder: order,
		FieldSection: section,
	}
}

func defWithPlaceholder(d *domain.FieldDefinition, placeholder string) *domain.FieldDefinition {
	d.Placeholder = sql.NullString{String: placeholder, Valid: true}
	return d
}

// DefaultFieldDefinitions returns the seed set for one record type.
// Unknown types get an empty slice.
func DefaultFieldDefinitions(recordType string) []*domain.FieldDefinition {
	switch recordType {
	case domain.RecordTypeAccount:
		return []*domain.FieldDefinition{
			def(recordType, "account_name", "Account Name", domain.FieldTypeText, "basic", 1, true),
			def(recordType, "industries", "Industries", domain.FieldTypeSelect, "basic", 2, false,
				"Agriculture", "Automotive", "Construction", "Education", "Energy",
				"Food & Beverage", "Healthcare", "Manufacturing", "Retail", "Technology"),
			defWithPlaceholder(
				def(recordType, "website", "Website", domain.FieldTypeText, "basic", 3, false),
				"https://example.com"),
			def(recordType, "phone", "Phone", domain.FieldTypePhone, "contact", 4, false),
			def(recordType, "email", "Email", domain.FieldTypeEmail, "contact", 5, false),
			def(recordType, "billing_street", "Billing Street", domain.FieldTypeText, "billing", 6, false),
			def(recordType, "billing_city", "Billing City", domain.FieldTypeText, "billing", 7, false),
			def(recordType, "billing_state", "Billing State", domain.FieldTypeText, "billing", 8, false),
			def(recordType, "billing_country", "Billing Country", domain.FieldTypeText, "billing", 9, false),
			def(recordType, "employee_count", "Employee Count", domain.FieldTypeNumber, "details", 10, false),
			def(recordType, "annual_revenue", "Annual Revenue", domain.FieldTypeNumber, "details", 11, false),
			def(recordType, "description", "Description", domain.FieldTypeText, "details", 12, false),
		}
	case domain.RecordTypeContact:
		return []*domain.FieldDefinition{
			def(recordType, "first_name", "First Name", domain.FieldTypeText, "basic", 1, true),
			def(recordType, "last_name", "Last Name", domain.FieldTypeText, "basic", 2, false),
			def(recordType, "email", "Email", domain.FieldTypeEmail, "basic", 3, true),
			def(recordType, "phone", "Phone", domain.FieldTypePhone, "basic", 4, false),
			def(recordType, "title", "Job Title", domain.FieldTypeText, "work", 5, false),
			def(recordType, "department", "Department", domain.FieldTypeText, "work", 6, false),
			def(recordType, "account_name", "Account Name", domain.FieldTypeText, "work", 7, false),
			def(recordType, "city", "City", domain.FieldTypeText, "address", 8, false),
			def(recordType, "country", "Country", domain.FieldTypeText, "address", 9, false),
		}
	case domain.RecordTypeLead:
		return []*domain.FieldDefinition{
			def(recordType, "account_name", "Account Name", domain.FieldTypeText, "basic", 1, true),
			def(recordType, "contact_name", "Contact Name", domain.FieldTypeText, "basic", 2, false),
			def(recordType, "phone", "Phone", domain.FieldTypePhone, "basic", 3, false),
			def(recordType, "email", "Email", domain.FieldTypeEmail, "basic", 4, false),
			def(recordType, "lead_source", "Lead Source", domain.FieldTypeSelect, "qualification", 5, false,
				"Website", "Referral", "Cold Call", "Trade Show", "Advertisement", "Other"),
			def(recordType, "lead_status", "Lead Status", domain.FieldTypeSelect, "qualification", 6, false,
				"New", "Contacted", "Qualified", "Proposal", "Won", "Lost"),
			def(recordType, "priority", "Priority", domain.FieldTypeSelect, "qualification", 7, false,
				"Low", "Medium", "High"),
			def(recordType, "lead_date", "Lead Date", domain.FieldTypeDate, "timeline", 8, false),
			def(recordType, "expected_closing_date", "Expected Closing Date", domain.FieldTypeDate, "timeline", 9, false),
			def(recordType, "budget", "Budget", domain.FieldTypeNumber, "deal", 10, false),
			def(recordType, "quantity", "Quantity", domain.FieldTypeNumber, "deal", 11, false),
			def(recordType, "price_per_unit", "Price Per Unit", domain.FieldTypeNumber, "deal", 12, false),
			def(recordType, "city", "City", domain.FieldTypeText, "address", 13, false),
			def(recordType, "country", "Country", domain.FieldTypeText, "address", 14, false),
			def(recordType, "notes", "Notes", domain.FieldTypeText, "details", 15, false),
		}
	case domain.RecordTypeProduct:
		return []*domain.FieldDefinition{
			def(recordType, "product_name", "Product Name", domain.FieldTypeText, "basic", 1, true),
			def(recordType, "category", "Category", domain.FieldTypeText, "basic", 2, false),
			def(recordType, "price", "Price", domain.FieldTypeNumber, "pricing", 3, false),
			def(recordType, "unit", "Unit", domain.FieldTypeText, "pricing", 4, false),
			def(recordType, "stock_quantity", "Stock Quantity", domain.FieldTypeNumber, "inventory", 5, false),
			def(recordType, "description", "Description", domain.FieldTypeText, "details", 6, false),
		}
	default:
		return []*domain.FieldDefinition{}
	}
}
