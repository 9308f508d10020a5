// Package status recomputes agreement and client-link statuses from source
// facts: the project roster, the collected signatures and the issued links.
// Derivation is pure; callers persist the result inside the same
// transaction as the mutation that triggered it, so stored status columns
// can never drift from the facts that justify them.
package status

import (
	"time"

	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/modules/model"
)

// Snapshot is a consistent read of everything status depends on.
type Snapshot struct {
	// Roster is the current set of client ids on the owning project.
	Roster []uuid.UUID
	// Signatures are all signatures collected for the agreement.
	Signatures []model.Signature
	// Links are all client links ever issued for the agreement,
	// superseded ones included.
	Links []model.ClientLink
	// Now anchors expiry checks.
	Now time.Time
}

// Result carries the derived agreement status and the derived status per
// link row.
type Result struct {
	Agreement string
	Links     map[uuid.UUID]string
}

// Derive applies the status rules to a snapshot.
//
// Per link: client_signed iff a matching client signature exists; expired
// iff past expiry with no signature; pending otherwise.
//
// Per agreement: completed iff the service provider has signed and every
// client currently on the roster has a signed link; pending iff any
// signature exists or any link was ever issued; draft otherwise. Clients
// removed from the roster after links were issued no longer gate
// completion; their lingering links are informational only.
func Derive(s Snapshot) Result {
	signedClients := make(map[uuid.UUID]bool, len(s.Signatures))
	providerSigned := false
	for _, sig := range s.Signatures {
		switch sig.SignerType {
		case model.SignerTypeServiceProvider:
			providerSigned = true
		case model.SignerTypeClient:
			if sig.ClientID != nil {
				signedClients[*sig.ClientID] = true
			}
		}
	}

	links := make(map[uuid.UUID]string, len(s.Links))
	for _, l := range s.Links {
		switch {
		case signedClients[l.ClientID] && l.SignedAt != nil:
			links[l.ID] = model.ClientLinkStatusClientSigned
		case signedClients[l.ClientID] && l.Active:
			// Signature arrived through a predecessor link; the active
			// link for a signed client still reads client_signed.
			links[l.ID] = model.ClientLinkStatusClientSigned
		case s.Now.After(l.ExpiresAt):
			links[l.ID] = model.ClientLinkStatusExpired
		default:
			links[l.ID] = model.ClientLinkStatusPending
		}
	}

	agreement := model.AgreementStatusDraft
	if len(s.Signatures) > 0 || len(s.Links) > 0 {
		agreement = model.AgreementStatusPending
	}
	if providerSigned && rosterFullySigned(s.Roster, signedClients) {
		agreement = model.AgreementStatusCompleted
	}

	return Result{Agreement: agreement, Links: links}
}

func rosterFullySigned(roster []uuid.UUID, signed map[uuid.UUID]bool) bool {
	if len(roster) == 0 {
		// A project with no client parties cannot complete on the
		// provider signature alone.
		return false
	}
	for _, clientID := range roster {
		if !signed[clientID] {
			return false
		}
	}
	return true
}
