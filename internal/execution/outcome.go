package execution

import "github.com/ethereum/go-ethereum/core/types"

// Status tags the lifecycle of one submitted transaction. An outcome is
// created at submission and resolved by polling; once Confirmed, Failed or
// TimedOut it is terminal and never resurrected.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Outcome is the terminal classification of a submission. TimedOut means
// confirmation could not be observed within the poll window, not that the
// transaction did not happen: the hash may still land later.
type Outcome struct {
	Status  Status         `json:"status"`
	Hash    string         `json:"hash"`
	Reason  string         `json:"reason,omitempty"`
	Receipt *types.Receipt `json:"-"`
}

func (o Outcome) Terminal() bool {
	return o.Status == StatusConfirmed || o.Status == StatusFailed || o.Status == StatusTimedOut
}
