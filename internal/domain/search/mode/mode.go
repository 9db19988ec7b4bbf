package mode

// Mode names which sub-searches a hybrid request runs.
type Mode string

// Search mode constants.
const (
	// Hybrid fuses full-text and vector rankings.
	Hybrid   Mode = "hybrid"
	Semantic Mode = "semantic"
	Keyword  Mode = "keyword"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Keyword
}
