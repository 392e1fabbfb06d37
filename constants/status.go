package constants

// RecordStatus is the canonical status for rows in documents.
type RecordStatus string

// Stable values (store these exact strings in DB).
const (
	RecordStatusProcessed RecordStatus = "PROCESSED" // structured record stored
	RecordStatusFailed    RecordStatus = "FAILED"    // pipeline returned a failure payload
)

// SummaryStrategy selects how the english summary is produced.
type SummaryStrategy string

const (
	StrategyRuleBased  SummaryStrategy = "rule_based"
	StrategyGenerative SummaryStrategy = "generative"
)

// ParseStrategy defaults to rule-based for anything unrecognized.
func ParseStrategy(s string) SummaryStrategy {
	if SummaryStrategy(s) == StrategyGenerative {
		return StrategyGenerative
	}
	return StrategyRuleBased
}
