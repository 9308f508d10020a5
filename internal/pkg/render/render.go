// Package render projects a committed agreement snapshot onto the fixed set
// of legal-text sections. Rendering is deterministic and side-effect free:
// the same snapshot yields byte-identical output on every call, which is
// what guarantees that the text a signer reviewed is the text that gets
// archived. No clock reads happen here; every date comes from the snapshot.
package render

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DeterminismVersion names the current text-layout rules. Callers that key
// caches or archives by fingerprint scope them with this value, since a
// layout change shifts every fingerprint.
const DeterminismVersion = "render-v1"

const dateLayout = "January 2, 2006"

// Snapshot is the validated, committed aggregate projected into plain
// values. It carries no live model pointers so the renderer cannot observe
// mutable state.
type Snapshot struct {
	ProjectName         string
	ServiceProviderName string
	AgreementDate       time.Time
	ServiceType         string
	StartDate           *time.Time
	EndDate             *time.Time
	Duration            int
	DurationUnit        string
	NumberOfRevisions   int
	Jurisdiction        string

	Clients      []Party
	Deliverables []string

	PaymentStructure string
	PaymentMethod    string
	Milestones       []Milestone

	Signatures []SignatureLine
}

type Party struct {
	Name         string
	Organization string
}

type Milestone struct {
	Description string
	Amount      float64
	DueDate     *time.Time
}

type SignatureLine struct {
	Role       string
	SignerName string
	SignedAt   *time.Time
}

type Section struct {
	Heading string
	Body    string
}

type Document struct {
	Title    string
	Sections []Section
}

// Text joins the document into its canonical byte form.
func (d Document) Text() string {
	var b strings.Builder
	b.WriteString(d.Title)
	b.WriteString("\n")
	for _, s := range d.Sections {
		b.WriteString("\n")
		b.WriteString(s.Heading)
		b.WriteString("\n")
		b.WriteString(s.Body)
		b.WriteString("\n")
	}
	return b.String()
}

// Fingerprint is the sha256 of the canonical text, used as the cache key
// component and the archive integrity check.
func (d Document) Fingerprint() string {
	sum := sha256.Sum256([]byte(d.Text()))
	return hex.EncodeToString(sum[:])
}

// Render builds the full document. Section order is fixed.
func Render(s Snapshot) Document {
	return Document{
		Title: fmt.Sprintf("Service Agreement — %s", s.ProjectName),
		Sections: []Section{
			{Heading: "1. Scope of Work", Body: scopeOfWork(s)},
			{Heading: "2. Timeline", Body: timeline(s)},
			{Heading: "3. Payment Terms", Body: paymentTerms(s)},
			{Heading: "4. Revisions", Body: revisions(s)},
			{Heading: "5. Responsibilities", Body: responsibilities(s)},
			{Heading: "6. Ownership", Body: ownership(s)},
			{Heading: "7. Confidentiality", Body: confidentiality()},
			{Heading: "8. Termination", Body: termination(s)},
			{Heading: "9. Liability", Body: liability(s)},
			{Heading: "10. Governing Law", Body: governingLaw(s)},
			{Heading: "11. Acceptance & Signatures", Body: acceptance(s)},
		},
	}
}

func partyList(clients []Party) string {
	names := make([]string, 0, len(clients))
	for _, c := range clients {
		if c.Organization != "" {
			names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.Organization))
		} else {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "; ")
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func scopeOfWork(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (the \"Service Provider\") agrees to provide %s services to %s (the \"Client\") for the project %q, under the terms of this agreement dated %s.\n",
		s.ServiceProviderName, s.ServiceType, partyList(s.Clients), s.ProjectName, s.AgreementDate.Format(dateLayout))
	if len(s.Deliverables) > 0 {
		b.WriteString("The engagement comprises the following deliverables:\n")
		for i, d := range s.Deliverables {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, d)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func timeline(s Snapshot) string {
	var b strings.Builder
	switch {
	case s.StartDate != nil && s.EndDate != nil:
		fmt.Fprintf(&b, "Work begins on %s and concludes on %s.", s.StartDate.Format(dateLayout), s.EndDate.Format(dateLayout))
	case s.StartDate != nil:
		fmt.Fprintf(&b, "Work begins on %s.", s.StartDate.Format(dateLayout))
	default:
		b.WriteString("Work begins upon execution of this agreement.")
	}
	if s.Duration > 0 {
		fmt.Fprintf(&b, " The estimated duration of the engagement is %d %s.", s.Duration, s.DurationUnit)
	}
	return b.String()
}

func paymentTerms(s Snapshot) string {
	var b strings.Builder
	switch s.PaymentStructure {
	case "50-50":
		b.WriteString("Fees are payable 50% upon execution of this agreement and 50% upon completion of the work.")
	case "100-upfront":
		b.WriteString("Fees are payable in full upon execution of this agreement.")
	case "100-completion":
		b.WriteString("Fees are payable in full upon completion of the work.")
	case "milestone-based":
		b.WriteString("Fees are payable per the following milestone schedule:\n")
		var total float64
		for i, m := range s.Milestones {
			due := "on completion"
			if m.DueDate != nil {
				due = "due " + m.DueDate.Format(dateLayout)
			}
			fmt.Fprintf(&b, "  %d. %s — %s (%s)\n", i+1, m.Description, money(m.Amount), due)
			total += m.Amount
		}
		fmt.Fprintf(&b, "Total scheduled: %s.", money(total))
	}
	if s.PaymentMethod != "" {
		fmt.Fprintf(&b, "\nPayment method: %s.", s.PaymentMethod)
	}
	return b.String()
}

func revisions(s Snapshot) string {
	if s.NumberOfRevisions == 0 {
		return "No revision rounds are included; change requests are billed separately."
	}
	return fmt.Sprintf("The Client is entitled to %d revision round(s) per deliverable. Further revisions are billed separately.", s.NumberOfRevisions)
}

func responsibilities(s Snapshot) string {
	return fmt.Sprintf("%s will perform the services with reasonable skill and care. The Client will provide timely access to materials, feedback and approvals required for the work to proceed.", s.ServiceProviderName)
}

func ownership(s Snapshot) string {
	return fmt.Sprintf("Upon receipt of all payments due, ownership of the final deliverables transfers to the Client. %s retains the right to display the work in portfolios and marketing materials unless agreed otherwise in writing.", s.ServiceProviderName)
}

func confidentiality() string {
	return "Each party will keep confidential any non-public information disclosed by the other in connection with this agreement, and will use it solely for performing its obligations hereunder."
}

func termination(s Snapshot) string {
	return fmt.Sprintf("Either party may terminate this agreement with written notice. Upon termination, the Client pays %s for all work completed to date, and each party returns the other's materials.", s.ServiceProviderName)
}

func liability(s Snapshot) string {
	return fmt.Sprintf("To the maximum extent permitted by law, the aggregate liability of %s under this agreement is limited to the fees actually paid by the Client. Neither party is liable for indirect or consequential damages.", s.ServiceProviderName)
}

func governingLaw(s Snapshot) string {
	return fmt.Sprintf("This agreement is governed by the laws of %s. The parties submit to the exclusive jurisdiction of its courts.", s.Jurisdiction)
}

func acceptance(s Snapshot) string {
	var b strings.Builder
	b.WriteString("By signing below, each party agrees to be bound by the terms of this agreement.\n")
	for _, sig := range s.Signatures {
		when := "________________"
		if sig.SignedAt != nil {
			when = sig.SignedAt.UTC().Format(dateLayout)
		}
		name := sig.SignerName
		if name == "" {
			name = "________________"
		}
		fmt.Fprintf(&b, "  %s: %s — %s\n", sig.Role, name, when)
	}
	return strings.TrimRight(b.String(), "\n")
}
