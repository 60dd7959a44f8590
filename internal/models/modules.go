package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Module is a feature area that permissions are scoped to.
type Module int

const (
	ModuleUnknown Module = iota
	ModuleInvoices
	ModuleCustomers
	ModuleBudget
	ModuleFinance
	ModuleFlow
	ModuleFood
	ModuleDashboard
	ModuleSettings
	// ModuleAll grants the capability flags on every module.
	ModuleAll
)

var moduleNames = map[Module]string{
	ModuleInvoices:  "invoices",
	ModuleCustomers: "customers",
	ModuleBudget:    "budget",
	ModuleFinance:   "finance",
	ModuleFlow:      "flow",
	ModuleFood:      "food",
	ModuleDashboard: "dashboard",
	ModuleSettings:  "settings",
	ModuleAll:       "all",
}

// Modules lists the concrete feature modules, ModuleAll excluded.
func Modules() []Module {
	return []Module{
		ModuleInvoices, ModuleCustomers, ModuleBudget, ModuleFinance,
		ModuleFlow, ModuleFood, ModuleDashboard, ModuleSettings,
	}
}

func (m Module) String() string {
	if name, ok := moduleNames[m]; ok {
		return name
	}
	return "unknown"
}

func ParseModule(s string) (Module, error) {
	for m, name := range moduleNames {
		if name == s {
			return m, nil
		}
	}
	return ModuleUnknown, fmt.Errorf("unknown module %q", s)
}

// Covers reports whether a permission granted on m applies to target.
func (m Module) Covers(target Module) bool {
	switch m {
	case ModuleAll:
		return target != ModuleUnknown
	case ModuleInvoices, ModuleCustomers, ModuleBudget, ModuleFinance,
		ModuleFlow, ModuleFood, ModuleDashboard, ModuleSettings:
		return m == target
	case ModuleUnknown:
		return false
	default:
		return false
	}
}

func (m Module) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Module) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseModule(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the module by name so the column stays readable.
func (m Module) Value() (driver.Value, error) {
	if m == ModuleUnknown {
		return nil, fmt.Errorf("cannot store unknown module")
	}
	return m.String(), nil
}

func (m *Module) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Module", value)
	}
	parsed, err := ParseModule(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Capability is one of the permission flags.
type Capability int

const (
	CapView Capability = iota
	CapAdd
	CapDelete
	CapEditShared
)

func (c Capability) String() string {
	switch c {
	case CapView:
		return "view"
	case CapAdd:
		return "add"
	case CapDelete:
		return "delete"
	case CapEditShared:
		return "editShared"
	default:
		return "unknown"
	}
}
