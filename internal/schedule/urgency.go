package schedule

const (
	StatusOverdue   Status = "overdue"
	StatusUrgent    Status = "urgent"
	StatusAttention Status = "attention"
	StatusOK        Status = "ok"
)

// Status is the urgency taxonomy for a due date.
type Status string

// Classify maps days-until-due to an urgency status. It is a pure
// function of its argument; there are no per-obligation overrides.
func Classify(daysUntilDue int) Status {
	switch {
	case daysUntilDue < 0:
		return StatusOverdue
	case daysUntilDue == 0:
		return StatusUrgent
	case daysUntilDue <= 3:
		return StatusAttention
	default:
		return StatusOK
	}
}
