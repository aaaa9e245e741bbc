package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// ReportJobMessage asks a worker to produce one user's monthly report.
type ReportJobMessage struct {
	UserID    int64     `json:"user_id"`
	Month     string    `json:"month"` // YYYY-MM
	Force     bool      `json:"force"`
	Timestamp time.Time `json:"timestamp"`

	// Redelivered is set by the consumer when the broker hands the job out
	// again after a Nack with requeue.
	Redelivered bool `json:"-"`
}

func NewReportJobMessage(userID int64, month time.Time, force bool) *ReportJobMessage {
	return &ReportJobMessage{
		UserID:    userID,
		Month:     month.Format(core.MonthLayout),
		Force:     force,
		Timestamp: time.Now(),
	}
}

func (m *ReportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthStart parses Month into the first day of that month.
func (m *ReportJobMessage) MonthStart() (time.Time, error) {
	return core.ParseMonth(m.Month)
}

// ReportJobMessageFromJSON decodes and checks a job body.
func ReportJobMessageFromJSON(data []byte) (*ReportJobMessage, error) {
	var msg ReportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID <= 0 {
		return nil, fmt.Errorf("report job: invalid user_id %d", msg.UserID)
	}
	if _, err := msg.MonthStart(); err != nil {
		return nil, fmt.Errorf("report job: %w", err)
	}
	return &msg, nil
}
