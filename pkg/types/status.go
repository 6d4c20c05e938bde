package types

// ModuleStatus is the condition reported for a physical pouch.
type ModuleStatus string

// Module statuses. A registered tag that is not yet in a kit is always
// ModuleWaiting.
const (
	ModuleOK       ModuleStatus = "OK"
	ModuleOpened   ModuleStatus = "OPENED"
	ModuleMissing  ModuleStatus = "MISSING"
	ModuleError    ModuleStatus = "ERROR"
	ModuleWrongPos ModuleStatus = "WRONG_POS"
	ModuleWaiting  ModuleStatus = "WAITING_FOR_MATCHMAKING"
)

// validModuleStatuses is the set of recognized module status values.
var validModuleStatuses = map[ModuleStatus]bool{
	ModuleOK:       true,
	ModuleOpened:   true,
	ModuleMissing:  true,
	ModuleError:    true,
	ModuleWrongPos: true,
	ModuleWaiting:  true,
}

// Valid reports whether s is a recognized module status.
func (s ModuleStatus) Valid() bool {
	return validModuleStatuses[s]
}

// SanitizeModuleStatus maps an untrusted stored value to a ModuleStatus.
// Unknown values become ModuleError so they are surfaced, never hidden.
func SanitizeModuleStatus(raw string) ModuleStatus {
	s := ModuleStatus(raw)
	if !s.Valid() {
		return ModuleError
	}
	return s
}

// OperationalStatus is the single readiness verdict for a kit.
type OperationalStatus string

// Kit operational statuses.
const (
	StatusOperational    OperationalStatus = "OPERATIONAL"
	StatusNeedsAttention OperationalStatus = "NEEDS_ATTENTION"
	StatusInPreparation  OperationalStatus = "IN_PREPARATION"
	StatusInUse          OperationalStatus = "IN_USE"
)

var validOperationalStatuses = map[OperationalStatus]bool{
	StatusOperational:    true,
	StatusNeedsAttention: true,
	StatusInPreparation:  true,
	StatusInUse:          true,
}

// Valid reports whether s is a recognized operational status.
func (s OperationalStatus) Valid() bool {
	return validOperationalStatuses[s]
}

// ParseOperationalStatus converts a stored value. An empty value defaults to
// StatusOperational; anything else unknown returns ErrInvalidState.
func ParseOperationalStatus(raw string) (OperationalStatus, error) {
	if raw == "" {
		return StatusOperational, nil
	}
	s := OperationalStatus(raw)
	if !s.Valid() {
		return "", ErrInvalidState
	}
	return s, nil
}

// Freshness is the tri-state expiry classification of a module's contents.
type Freshness string

// Freshness values.
const (
	FreshnessOK      Freshness = "OK"
	FreshnessWarning Freshness = "WARNING"
	FreshnessExpired Freshness = "EXPIRED"
)
