// Package proto holds the wire-level enums shared between the approval
// workflow and whatever transport carries edge tool calls.
package proto

// RiskLevel classifies how much damage a tool call can do if it executes
// without review. internal/tools/policy scores every edge tool call against
// one of these before deciding whether to gate it behind approval.
type RiskLevel int32

const (
	RiskLevel_RISK_LEVEL_UNSPECIFIED RiskLevel = 0
	RiskLevel_RISK_LEVEL_LOW         RiskLevel = 1
	RiskLevel_RISK_LEVEL_MEDIUM      RiskLevel = 2
	RiskLevel_RISK_LEVEL_HIGH        RiskLevel = 3
	RiskLevel_RISK_LEVEL_CRITICAL    RiskLevel = 4
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLevel_RISK_LEVEL_LOW:
		return "low"
	case RiskLevel_RISK_LEVEL_MEDIUM:
		return "medium"
	case RiskLevel_RISK_LEVEL_HIGH:
		return "high"
	case RiskLevel_RISK_LEVEL_CRITICAL:
		return "critical"
	default:
		return "unspecified"
	}
}
