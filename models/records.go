// models/records.go
package models

// Record is one typed row of a table kind. Field order in each struct is the
// column order of the flat file and of the persistent table.
type Record interface {
	Kind() TableKind
	// Key returns the merge key (unique_system_identifier).
	Key() int64
}

// License is an HD row: the primary license header.
type License struct {
	RecordType                string  `csv:"record_type"`
	UniqueSystemIdentifier    int64   `csv:"unique_system_identifier"`
	ULSFileNumber             string  `csv:"uls_file_number"`
	EBFNumber                 string  `csv:"ebf_number"`
	CallSign                  string  `csv:"call_sign"`
	LicenseStatus             string  `csv:"license_status"`
	RadioServiceCode          string  `csv:"radio_service_code"`
	GrantDate                 Date    `csv:"grant_date"`
	ExpiredDate               Date    `csv:"expired_date"`
	CancellationDate          Date    `csv:"cancellation_date"`
	EligibilityRuleNum        string  `csv:"eligibility_rule_num"`
	ApplicantTypeCodeReserved string  `csv:"applicant_type_code_reserved"`
	Alien                     Flag    `csv:"alien"`
	AlienGovernment           Flag    `csv:"alien_government"`
	AlienCorporation          Flag    `csv:"alien_corporation"`
	AlienOfficer              Flag    `csv:"alien_officer"`
	AlienControl              Flag    `csv:"alien_control"`
	Revoked                   Flag    `csv:"revoked"`
	Convicted                 Flag    `csv:"convicted"`
	Adjudged                  Flag    `csv:"adjudged"`
	InvolvedReserved          string  `csv:"involved_reserved"`
	CommonCarrier             string  `csv:"common_carrier"`
	NonCommonCarrier          string  `csv:"non_common_carrier"`
	PrivateComm               string  `csv:"private_comm"`
	Fixed                     string  `csv:"fixed"`
	Mobile                    string  `csv:"mobile"`
	Radiolocation             string  `csv:"radiolocation"`
	Satellite                 string  `csv:"satellite"`
	DevelopmentalOrSTA        string  `csv:"developmental_or_sta"`
	InterconnectedService     string  `csv:"interconnected_service"`
	CertifierFirstName        string  `csv:"certifier_first_name"`
	CertifierMI               string  `csv:"certifier_mi"`
	CertifierLastName         string  `csv:"certifier_last_name"`
	CertifierSuffix           string  `csv:"certifier_suffix"`
	CertifierTitle            string  `csv:"certifier_title"`
	Gender                    string  `csv:"gender"`
	AfricanAmerican           string  `csv:"african_american"`
	NativeAmerican            string  `csv:"native_american"`
	Hawaiian                  string  `csv:"hawaiian"`
	Asian                     string  `csv:"asian"`
	White                     string  `csv:"white"`
	Ethnicity                 string  `csv:"ethnicity"`
	EffectiveDate             Date    `csv:"effective_date"`
	LastActionDate            Date    `csv:"last_action_date"`
	AuctionID                 NullInt `csv:"auction_id"`
	RegStatBroadServ          string  `csv:"reg_stat_broad_serv"`
	BandManager               string  `csv:"band_manager"`
	TypeServBroadServ         string  `csv:"type_serv_broad_serv"`
	AlienRuling               string  `csv:"alien_ruling"`
	LicenseeNameChange        string  `csv:"licensee_name_change"`
	WhitespaceInd             string  `csv:"whitespace_ind"`
	AdditionalCertChoice      string  `csv:"additional_cert_choice"`
	AdditionalCertAnswer      string  `csv:"additional_cert_answer"`
	DiscontinuationInd        string  `csv:"discontinuation_ind"`
	RegulatoryComplianceInd   string  `csv:"regulatory_compliance_ind"`
	EligibilityCert900        string  `csv:"eligibility_cert_900"`
	TransitionPlanCert900     string  `csv:"transition_plan_cert_900"`
	ReturnSpectrumCert900     string  `csv:"return_spectrum_cert_900"`
	PaymentCert900            string  `csv:"payment_cert_900"`
}

func (*License) Kind() TableKind { return KindHD }
func (r *License) Key() int64    { return r.UniqueSystemIdentifier }

// Entity is an EN row: licensee name, address and contact details.
type Entity struct {
	RecordType             string  `csv:"record_type"`
	UniqueSystemIdentifier int64   `csv:"unique_system_identifier"`
	ULSFileNumber          string  `csv:"uls_file_number"`
	EBFNumber              string  `csv:"ebf_number"`
	CallSign               string  `csv:"call_sign"`
	EntityType             string  `csv:"entity_type"`
	LicenseeID             string  `csv:"licensee_id"`
	EntityName             string  `csv:"entity_name"`
	FirstName              string  `csv:"first_name"`
	MI                     string  `csv:"mi"`
	LastName               string  `csv:"last_name"`
	Suffix                 string  `csv:"suffix"`
	Phone                  string  `csv:"phone"`
	Fax                    string  `csv:"fax"`
	Email                  string  `csv:"email"`
	StreetAddress          string  `csv:"street_address"`
	City                   string  `csv:"city"`
	State                  string  `csv:"state"`
	ZipCode                string  `csv:"zip_code"`
	POBox                  string  `csv:"po_box"`
	AttentionLine          string  `csv:"attention_line"`
	SGIN                   string  `csv:"sgin"`
	FCCRegistrationNumber  string  `csv:"fcc_registration_number"`
	ApplicantTypeCode      string  `csv:"applicant_type_code"`
	ApplicantTypeCodeOther string  `csv:"applicant_type_code_other"`
	StatusCode             string  `csv:"status_code"`
	StatusDate             Date    `csv:"status_date"`
	LicenseType37GHz       string  `csv:"_37ghz_license_type"`
	LinkedUniqueSysID      NullInt `csv:"linked_unique_sys_id"`
	LinkedCallSign         string  `csv:"linked_call_sign"`
}

func (*Entity) Kind() TableKind { return KindEN }
func (r *Entity) Key() int64    { return r.UniqueSystemIdentifier }

// Amateur is an AM row: operator class and vanity/trustee details.
type Amateur struct {
	RecordType                string  `csv:"record_type"`
	UniqueSystemIdentifier    int64   `csv:"unique_system_identifier"`
	ULSFileNumber             string  `csv:"uls_file_number"`
	EBFNumber                 string  `csv:"ebf_number"`
	CallSign                  string  `csv:"call_sign"`
	OperatorClass             string  `csv:"operator_class"`
	GroupCode                 string  `csv:"group_code"`
	RegionCode                NullInt `csv:"region_code"`
	TrusteeCallSign           string  `csv:"trustee_call_sign"`
	TrusteeIndicator          Flag    `csv:"trustee_indicator"`
	PhysicianCertification    Flag    `csv:"physician_certification"`
	VESignature               Flag    `csv:"ve_signature"`
	SystematicCallSignChange  Flag    `csv:"systematic_call_sign_change"`
	VanityCallSignChange      Flag    `csv:"vanity_call_sign_change"`
	VanityRelationship        string  `csv:"vanity_relationship"`
	PreviousCallSign          string  `csv:"previous_call_sign"`
	PreviousOperatorClass     string  `csv:"previous_operator_class"`
	TrusteeName               string  `csv:"trustee_name"`
}

func (*Amateur) Kind() TableKind { return KindAM }
func (r *Amateur) Key() int64    { return r.UniqueSystemIdentifier }

// History is an HS row: one license history event.
type History struct {
	RecordType             string `csv:"record_type"`
	UniqueSystemIdentifier int64  `csv:"unique_system_identifier"`
	ULSFileNumber          string `csv:"uls_file_number"`
	CallSign               string `csv:"call_sign"`
	LogDate                Date   `csv:"log_date"`
	Code                   string `csv:"code"`
}

func (*History) Kind() TableKind { return KindHS }
func (r *History) Key() int64    { return r.UniqueSystemIdentifier }

// Comment is a CO row.
type Comment struct {
	RecordType             string `csv:"record_type"`
	UniqueSystemIdentifier int64  `csv:"unique_system_identifier"`
	ULSFileNumber          string `csv:"uls_file_number"`
	CallSign               string `csv:"call_sign"`
	CommentDate            Date   `csv:"comment_date"`
	Description            string `csv:"description"`
	StatusCode             string `csv:"status_code"`
	StatusDate             Date   `csv:"status_date"`
}

func (*Comment) Kind() TableKind { return KindCO }
func (r *Comment) Key() int64    { return r.UniqueSystemIdentifier }

// Attachment is an LA row.
type Attachment struct {
	RecordType             string `csv:"record_type"`
	UniqueSystemIdentifier int64  `csv:"unique_system_identifier"`
	CallSign               string `csv:"call_sign"`
	AttachmentCode         string `csv:"attachment_code"`
	AttachmentDescription  string `csv:"attachment_description"`
	AttachmentDate         Date   `csv:"attachment_date"`
	AttachmentFileName     string `csv:"attachment_file_name"`
	ActionPerformed        string `csv:"action_performed"`
}

func (*Attachment) Kind() TableKind { return KindLA }
func (r *Attachment) Key() int64    { return r.UniqueSystemIdentifier }

// SpecialCondition is an SC row.
type SpecialCondition struct {
	RecordType             string  `csv:"record_type"`
	UniqueSystemIdentifier int64   `csv:"unique_system_identifier"`
	ULSFileNumber          string  `csv:"uls_file_number"`
	EBFNumber              string  `csv:"ebf_number"`
	CallSign               string  `csv:"call_sign"`
	SpecialConditionType   string  `csv:"special_condition_type"`
	SpecialConditionCode   NullInt `csv:"special_condition_code"`
	StatusCode             string  `csv:"status_code"`
	StatusDate             Date    `csv:"status_date"`
}

func (*SpecialCondition) Kind() TableKind { return KindSC }
func (r *SpecialCondition) Key() int64    { return r.UniqueSystemIdentifier }

// FreeFormCondition is an SF row.
type FreeFormCondition struct {
	RecordType                      string  `csv:"record_type"`
	UniqueSystemIdentifier          int64   `csv:"unique_system_identifier"`
	ULSFileNumber                   string  `csv:"uls_file_number"`
	EBFNumber                       string  `csv:"ebf_number"`
	CallSign                        string  `csv:"call_sign"`
	LicenseFreeFormType             string  `csv:"license_free_form_type"`
	UniqueLicenseFreeFormIdentifier NullInt `csv:"unique_license_free_form_identifier"`
	SequenceNumber                  NullInt `csv:"sequence_number"`
	LicenseFreeFormCondition        string  `csv:"license_free_form_condition"`
	StatusCode                      string  `csv:"status_code"`
	StatusDate                      Date    `csv:"status_date"`
}

func (*FreeFormCondition) Kind() TableKind { return KindSF }
func (r *FreeFormCondition) Key() int64    { return r.UniqueSystemIdentifier }
