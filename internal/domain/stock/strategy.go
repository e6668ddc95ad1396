package stock

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marketplace/stock/internal/domain/shared"
)

// StrategyType identifies the lot-selection algorithm configured for a contractor
type StrategyType string

const (
	// StrategyTypeFIFO selects lots oldest-first by creation time
	StrategyTypeFIFO StrategyType = "fifo"
	// StrategyTypeLocationPriority prefers lots at contractor-ranked locations,
	// falling back to FIFO within equal priority
	StrategyTypeLocationPriority StrategyType = "location_priority"
)

// IsValid checks if the strategy type is valid
func (t StrategyType) IsValid() bool {
	switch t {
	case StrategyTypeFIFO, StrategyTypeLocationPriority:
		return true
	}
	return false
}

// String returns the string representation
func (t StrategyType) String() string {
	return string(t)
}

// AllStrategyTypes returns all valid strategy types
func AllStrategyTypes() []StrategyType {
	return []StrategyType{
		StrategyTypeFIFO,
		StrategyTypeLocationPriority,
	}
}

// LocationList is an ordered list of location IDs, persisted as a JSON column.
// Index 0 is the highest priority.
type LocationList []uuid.UUID

// Value implements driver.Valuer
func (l LocationList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *LocationList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for LocationList: %T", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// IndexOf returns the priority index of the location, or -1 if not ranked
func (l LocationList) IndexOf(locationID uuid.UUID) int {
	for i, id := range l {
		if id == locationID {
			return i
		}
	}
	return -1
}

// AllocationStrategy is the per-contractor configuration selecting the
// allocation algorithm. Contractors without a stored strategy default to FIFO.
type AllocationStrategy struct {
	shared.BaseEntity
	ContractorID     uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	Type             StrategyType `gorm:"type:varchar(30);not null;default:'fifo'"`
	LocationPriority LocationList `gorm:"type:text"` // Only meaningful for location_priority
}

// TableName returns the table name for GORM
func (AllocationStrategy) TableName() string {
	return "allocation_strategies"
}

// NewAllocationStrategy creates a validated allocation strategy for a contractor
func NewAllocationStrategy(contractorID uuid.UUID, strategyType StrategyType, locationPriority LocationList) (*AllocationStrategy, error) {
	if contractorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTRACTOR", "Contractor ID cannot be empty")
	}
	if !strategyType.IsValid() {
		return nil, shared.NewDomainError("INVALID_STRATEGY", "Unknown allocation strategy type: "+strategyType.String())
	}
	if strategyType != StrategyTypeLocationPriority && len(locationPriority) > 0 {
		return nil, shared.NewDomainError("INVALID_STRATEGY", "Location priority order is only valid for the location_priority strategy")
	}

	return &AllocationStrategy{
		BaseEntity:       shared.NewBaseEntity(),
		ContractorID:     contractorID,
		Type:             strategyType,
		LocationPriority: locationPriority,
	}, nil
}

// Update replaces the strategy type and priority order, keeping identity
func (s *AllocationStrategy) Update(strategyType StrategyType, locationPriority LocationList) error {
	if !strategyType.IsValid() {
		return shared.NewDomainError("INVALID_STRATEGY", "Unknown allocation strategy type: "+strategyType.String())
	}
	if strategyType != StrategyTypeLocationPriority && len(locationPriority) > 0 {
		return shared.NewDomainError("INVALID_STRATEGY", "Location priority order is only valid for the location_priority strategy")
	}
	s.Type = strategyType
	s.LocationPriority = locationPriority
	s.UpdatedAt = time.Now()
	return nil
}
