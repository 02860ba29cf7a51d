package amqp

import (
	"encoding/json"
	"time"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/schedule"
)

// ProjectionSnapshotMessage carries one family's upcoming-due projection
// to downstream consumers (report export, notification fan-out). The
// projection is ephemeral: consumers render it, they never treat it as
// authoritative state.
type ProjectionSnapshotMessage struct {
	FamilyID      string         `json:"family_id"`
	ReferenceDate time.Time      `json:"reference_date"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Items         []SnapshotItem `json:"items"`
}

// SnapshotItem is one projected due entry. AmountCents is nil while the
// amount is still pending (card invoices not yet computed).
type SnapshotItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	AmountCents  *int64 `json:"amount_cents,omitempty"`
	DueDate      string `json:"due_date"`
	DaysUntilDue int    `json:"days_until_due"`
	Status       string `json:"status"`
	Source       string `json:"source"`
	SourceID     string `json:"source_id"`
}

// NewProjectionSnapshotMessage converts a projection into its wire form.
func NewProjectionSnapshotMessage(familyID string, reference time.Time, dues []schedule.UpcomingDue) *ProjectionSnapshotMessage {
	msg := &ProjectionSnapshotMessage{
		FamilyID:      familyID,
		ReferenceDate: reference,
		GeneratedAt:   time.Now().UTC(),
		Items:         make([]SnapshotItem, 0, len(dues)),
	}
	for _, d := range dues {
		item := SnapshotItem{
			ID:           d.ID,
			Name:         d.Name,
			Type:         string(d.Type),
			DueDate:      d.DueDate.Format("2006-01-02"),
			DaysUntilDue: d.DaysUntilDue,
			Status:       string(d.Status),
			Source:       string(d.Source),
			SourceID:     d.SourceID,
		}
		if cents, ok := d.Amount.Known(); ok {
			item.AmountCents = &cents
		}
		msg.Items = append(msg.Items, item)
	}
	return msg
}

func (m *ProjectionSnapshotMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ProjectionSnapshotMessageFromJSON(data []byte) (*ProjectionSnapshotMessage, error) {
	var msg ProjectionSnapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
