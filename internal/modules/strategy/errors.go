package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound is returned when the strategy document does not exist
	ErrConfigNotFound = errors.New("strategy config not found")
	// ErrUnknownKind is returned for a rule whose kind cannot be resolved
	ErrUnknownKind = errors.New("unknown strategy kind")
)

func errInvalidThresholds(t Thresholds) error {
	return fmt.Errorf("invalid thresholds: need 0 < weak < medium < strong, got %.2f/%.2f/%.2f",
		t.Weak, t.Medium, t.Strong)
}
