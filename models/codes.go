// models/codes.go
package models

// Descriptions for the coded ULS fields shown in lookup output.

var LicenseStatusCodes = map[string]string{
	"A": "Active",
	"C": "Canceled",
	"E": "Expired",
	"L": "Pending Legal Status",
	"P": "Parent Station Canceled",
	"T": "Terminated",
	"X": "Term Pending",
}

var ApplicantTypeCodes = map[string]string{
	"B": "Amateur Club",
	"C": "Corporation",
	"D": "General Partnership",
	"E": "Limited Partnership",
	"F": "Limited Liability Partnership",
	"G": "Governmental Entity",
	"H": "Other",
	"I": "Individual",
	"J": "Joint Venture",
	"L": "Limited Liability Company",
	"M": "Military Recreation",
	"O": "Consortium",
	"P": "Partnership",
	"R": "RACES",
	"T": "Trust",
	"U": "Unincorporated Association",
}

var EntityTypeCodes = map[string]string{
	"CE": "Transferee contact",
	"CL": "Licensee Contact",
	"CR": "Assignor or Transferor Contact",
	"CS": "Lessee Contact",
	"E":  "Transferee",
	"L":  "Licensee or Assignee",
	"O":  "Owner",
	"R":  "Assignor or Transferor",
	"S":  "Lessee",
}

var OperatorClassCodes = map[string]string{
	"A": "Advanced",
	"E": "Amateur Extra",
	"G": "General",
	"N": "Novice",
	"P": "Technician Plus",
	"T": "Technician",
}

// Describe renders code as "Description (code)", or just the code when it
// is not in table.
func Describe(table map[string]string, code string) string {
	if code == "" {
		return ""
	}
	if d, ok := table[code]; ok {
		return d + " (" + code + ")"
	}
	return code
}
