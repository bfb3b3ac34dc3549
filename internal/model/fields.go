package model

// Metadata field names used for recency comparisons. These match the
// field_name values the directory records in entity metadata.
const (
	FieldStatus     = "is_closed"
	FieldHours      = "hours"
	FieldNote       = "covid_related_info"
	FieldIDRequired = "id_required"
	FieldURL        = "url"
	FieldPhones     = "phones"
)
