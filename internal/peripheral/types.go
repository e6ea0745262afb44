package peripheral

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/peripheral-core/internal/identity"
)

// Peripheral is a registered physical device bound to a PC in a lab.
type Peripheral struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Brand        string `json:"brand,omitempty"`
	UniqueID     string `json:"unique_id,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`

	// VendorID and ProductID are 4-hex-digit strings, empty when unknown.
	VendorID  string `json:"vendor_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`

	DeviceType string `json:"device_type,omitempty"`
	AssignedPC string `json:"assigned_pc"`
	LabScope   string `json:"lab_scope"`

	Status          Status     `json:"status,omitempty"`
	StatusUpdatedBy string     `json:"status_updated_by,omitempty"`
	StatusUpdatedAt *time.Time `json:"status_updated_at,omitempty"`
	StatusReason    string     `json:"status_reason,omitempty"`
	Remarks         string     `json:"remarks,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModelKey returns the peripheral's model key. ok is false when vendor or
// product is unknown.
func (p Peripheral) ModelKey() (string, bool) {
	return identity.ModelKey(p.VendorID, p.ProductID)
}

// Normalize trims fields, upper-cases vendor and product ids, clears ids that
// are Unknown, and validates the result.
func (p *Peripheral) Normalize() error {
	p.Name = strings.TrimSpace(p.Name)
	p.AssignedPC = strings.TrimSpace(p.AssignedPC)
	p.LabScope = strings.TrimSpace(p.LabScope)
	p.VendorID = normalizeHexID(p.VendorID)
	p.ProductID = normalizeHexID(p.ProductID)

	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidPeripheral)
	case p.AssignedPC == "":
		return fmt.Errorf("%w: assigned pc is required", ErrInvalidPeripheral)
	case p.LabScope == "":
		return fmt.Errorf("%w: lab scope is required", ErrInvalidPeripheral)
	}

	if p.VendorID != "" || p.ProductID != "" {
		if _, ok := identity.ModelKey(p.VendorID, p.ProductID); !ok {
			return fmt.Errorf("%w: vendor id %q and product id %q must both be 4 hex digits or both unknown",
				ErrInvalidPeripheral, p.VendorID, p.ProductID)
		}
	}
	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}
	return nil
}

func normalizeHexID(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == identity.Unknown {
		return ""
	}
	return v
}

// StatusHistoryEntry records one status change. Entries are append-only.
type StatusHistoryEntry struct {
	ID           int64     `json:"id"`
	PeripheralID int64     `json:"peripheral_id"`
	OldStatus    Status    `json:"old_status,omitempty"`
	NewStatus    Status    `json:"new_status"`
	ChangedBy    string    `json:"changed_by"`
	ChangedAt    time.Time `json:"changed_at"`
	Reason       string    `json:"reason,omitempty"`
}

// SelectorKind says how a Selector picks peripherals.
type SelectorKind int

const (
	SelectByID SelectorKind = iota + 1
	SelectByIdentity
	SelectByModel
)

// Selector picks the peripherals a status change applies to.
type Selector struct {
	Kind SelectorKind

	ID int64

	// PCTag and LabScope narrow identity and model selection. Empty
	// matches any.
	PCTag    string
	LabScope string

	UniqueID string

	VendorID  string
	ProductID string
}

// ByID selects one peripheral by primary key.
func ByID(id int64) Selector {
	return Selector{Kind: SelectByID, ID: id}
}

// ByIdentity selects peripherals whose unique id is uniqueID on pcTag.
func ByIdentity(pcTag, uniqueID string) Selector {
	return Selector{Kind: SelectByIdentity, PCTag: pcTag, UniqueID: uniqueID}
}

// ByModel selects the peripheral of the given model on pcTag.
func ByModel(pcTag, vendorID, productID string) Selector {
	return Selector{Kind: SelectByModel, PCTag: pcTag, VendorID: vendorID, ProductID: productID}
}

// InLab returns a copy of s restricted to labScope.
func (s Selector) InLab(labScope string) Selector {
	s.LabScope = labScope
	return s
}

// StatusChange is a requested status update.
type StatusChange struct {
	Status Status
	Reason string
	Actor  string
	At     time.Time

	// Enforce rejects moves the transition table forbids.
	Enforce bool
}

// StatusResult is the outcome for one selected peripheral.
type StatusResult struct {
	// Peripheral is the row after the change.
	Peripheral Peripheral
	Previous   Status
	Changed    bool
}
