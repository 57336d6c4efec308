package phi

// FilterType classifies a detection into one of the HIPAA Safe Harbor
// identifier categories plus the extensions this engine recognises.
type FilterType string

// Recognised PHI categories.
const (
	FilterName           FilterType = "NAME"
	FilterFirstName      FilterType = "FIRST_NAME"
	FilterLastName       FilterType = "LAST_NAME"
	FilterDate           FilterType = "DATE"
	FilterSSN            FilterType = "SSN"
	FilterMRN            FilterType = "MRN"
	FilterPhone          FilterType = "PHONE"
	FilterFax            FilterType = "FAX"
	FilterEmail          FilterType = "EMAIL"
	FilterAddress        FilterType = "ADDRESS"
	FilterZIP            FilterType = "ZIP"
	FilterMedicare       FilterType = "MEDICARE"
	FilterMedicaid       FilterType = "MEDICAID"
	FilterDEA            FilterType = "DEA"
	FilterNPI            FilterType = "NPI"
	FilterAccountNumber  FilterType = "ACCOUNT_NUMBER"
	FilterCreditCard     FilterType = "CREDIT_CARD"
	FilterBankAccount    FilterType = "BANK_ACCOUNT"
	FilterDriversLicense FilterType = "DRIVERS_LICENSE"
	FilterPassport       FilterType = "PASSPORT"
	FilterHealthPlan     FilterType = "HEALTH_PLAN"
	FilterIP             FilterType = "IP"
	FilterURL            FilterType = "URL"
	FilterDeviceID       FilterType = "DEVICE_ID"
	FilterVehicle        FilterType = "VEHICLE"
	FilterBiometric      FilterType = "BIOMETRIC"
	FilterAgeOver89      FilterType = "AGE_OVER_89"
	FilterUniqueID       FilterType = "UNIQUE_ID"
)

// AllFilterTypes lists every recognised category in a stable order.
var AllFilterTypes = []FilterType{
	FilterName, FilterFirstName, FilterLastName, FilterDate, FilterSSN,
	FilterMRN, FilterPhone, FilterFax, FilterEmail, FilterAddress,
	FilterZIP, FilterMedicare, FilterMedicaid, FilterDEA, FilterNPI,
	FilterAccountNumber, FilterCreditCard, FilterBankAccount,
	FilterDriversLicense, FilterPassport, FilterHealthPlan, FilterIP,
	FilterURL, FilterDeviceID, FilterVehicle, FilterBiometric,
	FilterAgeOver89, FilterUniqueID,
}

// Priority tiers. Higher tiers dominate lower tiers when overlapping
// spans of different types are arbitrated.
const (
	TierChecksum   = 1000 // unambiguous formats: SSN, Luhn-valid cards, Medicare, NPI
	TierStrongID   = 800  // strong format with contextual confirmation
	TierNetwork    = 600  // email, URL, IP
	TierNumeric    = 500  // phone, fax, date
	TierGeographic = 400  // address, ZIP, facility names
	TierDictionary = 300  // name family, credential and prefix anchors
	TierNarrow     = 200  // device, vehicle, age, biometric
	TierFallback   = 100  // generic unique-identifier fallback
)

var filterTiers = map[FilterType]int{
	FilterSSN:            TierChecksum,
	FilterCreditCard:     TierChecksum,
	FilterMedicare:       TierChecksum,
	FilterMedicaid:       TierChecksum,
	FilterNPI:            TierChecksum,
	FilterMRN:            TierStrongID,
	FilterAccountNumber:  TierStrongID,
	FilterDEA:            TierStrongID,
	FilterHealthPlan:     TierStrongID,
	FilterDriversLicense: TierStrongID,
	FilterPassport:       TierStrongID,
	FilterBankAccount:    TierStrongID,
	FilterEmail:          TierNetwork,
	FilterURL:            TierNetwork,
	FilterIP:             TierNetwork,
	FilterPhone:          TierNumeric,
	FilterFax:            TierNumeric,
	FilterDate:           TierNumeric,
	FilterAddress:        TierGeographic,
	FilterZIP:            TierGeographic,
	FilterName:           TierDictionary,
	FilterFirstName:      TierDictionary,
	FilterLastName:       TierDictionary,
	FilterDeviceID:       TierNarrow,
	FilterVehicle:        TierNarrow,
	FilterBiometric:      TierNarrow,
	FilterAgeOver89:      TierNarrow,
	FilterUniqueID:       TierFallback,
}

// Valid reports whether ft is a recognised category.
func (ft FilterType) Valid() bool {
	_, ok := filterTiers[ft]
	return ok
}

// Tier returns the default priority tier for the category.
// Detectors may assign a span a different priority (for example a
// facility-name detection carries the geographic tier on a NAME span).
func (ft FilterType) Tier() int {
	if tier, ok := filterTiers[ft]; ok {
		return tier
	}
	return TierFallback
}

// NameFamily reports whether the category is one of the dictionary-driven
// person-name categories. The document vocabulary filter and the all-caps
// structure filter only ever suppress name-family spans.
func (ft FilterType) NameFamily() bool {
	switch ft {
	case FilterName, FilterFirstName, FilterLastName:
		return true
	}
	return false
}
