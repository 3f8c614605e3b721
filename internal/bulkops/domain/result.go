package domain

// PerUserResult is the outcome of one target in a bulk dispatch.
type PerUserResult struct {
	Email   string `json:"email"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Result aggregates a bulk dispatch. Success + Failed always equals
// Total regardless of completion order.
type Result struct {
	Operation  string          `json:"operation"`
	Total      int             `json:"total"`
	Success    int             `json:"success"`
	Failed     int             `json:"failed"`
	Errors     []PerUserResult `json:"errors,omitempty"`
	DryRun     bool            `json:"dryRun,omitempty"`
	Preview    []string        `json:"preview,omitempty"`
	Replayed   bool            `json:"replayed,omitempty"`
	DurationMS int64           `json:"durationMs"`
}
