package core

import "encoding/json"

// Amount is a monetary value that may not be known yet. A card's next
// invoice total is pending until the statement is computed; that is a
// different state from owing nothing, so a bare zero never represents it.
type Amount struct {
	cents   int64
	pending bool
}

// AmountKnown returns an Amount with a computed value (possibly zero).
func AmountKnown(cents int64) Amount {
	return Amount{cents: cents}
}

// AmountPending returns the "not yet computed" state.
func AmountPending() Amount {
	return Amount{pending: true}
}

// Known reports the value and whether it has been computed.
func (a Amount) Known() (int64, bool) {
	if a.pending {
		return 0, false
	}
	return a.cents, true
}

func (a Amount) IsPending() bool {
	return a.pending
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.pending {
		return json.Marshal(amountJSON{Pending: true})
	}
	return json.Marshal(amountJSON{Cents: &a.cents})
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var v amountJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Pending || v.Cents == nil {
		*a = AmountPending()
		return nil
	}
	*a = AmountKnown(*v.Cents)
	return nil
}

type amountJSON struct {
	Cents   *int64 `json:"cents,omitempty"`
	Pending bool   `json:"pending,omitempty"`
}
