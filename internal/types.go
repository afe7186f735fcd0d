package internal

import "time"

// Consultation is one answered question as kept in the history store.
type Consultation struct {
	ID           string        `json:"id"`
	Question     string        `json:"question"`
	FocusArea    string        `json:"focus_area"`
	DetectedLang string        `json:"detected_lang"`
	ResponseLang string        `json:"response_lang"`
	Answer       string        `json:"answer"`
	Disclaimer   string        `json:"disclaimer"`
	Degraded     bool          `json:"degraded"`
	Backend      string        `json:"backend"`
	Latency      time.Duration `json:"latency"`
	Timestamp    time.Time     `json:"timestamp"`
}
