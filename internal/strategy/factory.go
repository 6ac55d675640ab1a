package strategy

import "fmt"

// Strategy type identifiers
const (
	// TypeFrequency scores by smoothed appearance rate.
	TypeFrequency = "frequency"
	// TypeGap scores by rounds since last appearance.
	TypeGap = "gap"
)

// New creates a strategy by name with the given parameters.
func New(name string, params map[string]interface{}) (Strategy, error) {
	switch name {
	case TypeFrequency:
		return NewFrequencyStrategy(params)
	case TypeGap:
		return NewGapStrategy(params)
	default:
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
}

// Names lists the available strategy identifiers.
func Names() []string {
	return []string{TypeFrequency, TypeGap}
}
