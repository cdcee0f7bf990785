// models/views.go
package models

import "strings"

// LicenseView is one license as returned by lookups: the HD row joined with
// its licensee entity and amateur detail.
type LicenseView struct {
	UniqueSystemIdentifier int64  `json:"unique_system_identifier"`
	CallSign               string `json:"call_sign"`
	LicenseStatus          string `json:"license_status"`
	RadioServiceCode       string `json:"radio_service_code"`
	GrantDate              Date   `json:"grant_date"`
	ExpiredDate            Date   `json:"expired_date"`
	CancellationDate       Date   `json:"cancellation_date"`

	EntityType        string `json:"entity_type,omitempty"`
	EntityName        string `json:"entity_name,omitempty"`
	FirstName         string `json:"first_name,omitempty"`
	MI                string `json:"mi,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	Suffix            string `json:"suffix,omitempty"`
	StreetAddress     string `json:"street_address,omitempty"`
	City              string `json:"city,omitempty"`
	State             string `json:"state,omitempty"`
	ZipCode           string `json:"zip_code,omitempty"`
	FRN               string `json:"fcc_registration_number,omitempty"`
	ApplicantTypeCode string `json:"applicant_type_code,omitempty"`

	OperatorClass    string `json:"operator_class,omitempty"`
	PreviousCallSign string `json:"previous_call_sign,omitempty"`
}

// DisplayName prefers the person's name and falls back to the entity name.
func (v LicenseView) DisplayName() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{v.FirstName, v.MI, v.LastName, v.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return v.EntityName
	}
	return strings.Join(parts, " ")
}

func (v LicenseView) Active(activeStatus string) bool {
	return v.LicenseStatus == activeStatus
}

// LicenseDetail is a call-sign lookup result with optional dependent rows.
type LicenseDetail struct {
	License            LicenseView         `json:"license"`
	History            []History           `json:"history,omitempty"`
	Comments           []Comment           `json:"comments,omitempty"`
	SpecialConditions  []SpecialCondition  `json:"special_conditions,omitempty"`
	FreeFormConditions []FreeFormCondition `json:"free_form_conditions,omitempty"`
}
