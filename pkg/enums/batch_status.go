package enums

import "fmt"

// BatchStatus tracks whether a stock batch is still sellable.
type BatchStatus string

const (
	BatchStatusActive    BatchStatus = "active"
	BatchStatusSoldOut   BatchStatus = "sold_out"
	BatchStatusCancelled BatchStatus = "cancelled"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusActive,
	BatchStatusSoldOut,
	BatchStatusCancelled,
}

// String implements fmt.Stringer.
func (b BatchStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BatchStatus.
func (b BatchStatus) IsValid() bool {
	for _, candidate := range validBatchStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBatchStatus converts raw input into a BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	for _, candidate := range validBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch status %q", value)
}
