package service

import (
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/pkg/render"
)

// buildRenderSnapshot projects the committed aggregate plus the roster
// directory entries into the renderer's input. Everything the renderer
// needs is copied out here; it never sees live models.
func buildRenderSnapshot(a *model.Agreement, p *model.Project, rosterClients []model.Client) render.Snapshot {
	snap := render.Snapshot{
		ProjectName:         p.Name,
		ServiceProviderName: a.ServiceProviderName,
		AgreementDate:       a.AgreementDate,
		ServiceType:         a.ServiceType,
		StartDate:           a.StartDate,
		EndDate:             a.EndDate,
		Duration:            a.Duration,
		DurationUnit:        a.DurationUnit,
		NumberOfRevisions:   a.NumberOfRevisions,
		Jurisdiction:        a.Jurisdiction,
	}

	for _, c := range rosterClients {
		snap.Clients = append(snap.Clients, render.Party{
			Name:         c.Name,
			Organization: c.Organization,
		})
	}
	for _, d := range a.Deliverables {
		snap.Deliverables = append(snap.Deliverables, d.Description)
	}
	if a.PaymentTerms != nil {
		snap.PaymentStructure = a.PaymentTerms.PaymentStructure
		snap.PaymentMethod = a.PaymentTerms.PaymentMethod
		for _, m := range a.PaymentTerms.Milestones {
			snap.Milestones = append(snap.Milestones, render.Milestone{
				Description: m.Description,
				Amount:      m.Amount,
				DueDate:     m.DueDate,
			})
		}
	}

	// Acceptance block: the provider line first, then one line per roster
	// client in directory order, signed or not.
	providerLine := render.SignatureLine{Role: "Service Provider", SignerName: a.ServiceProviderName}
	clientLines := make([]render.SignatureLine, 0, len(rosterClients))
	byClient := make(map[string]*model.Signature)
	for i := range a.Signatures {
		sig := &a.Signatures[i]
		if sig.SignerType == model.SignerTypeServiceProvider {
			providerLine.SignerName = sig.SignerName
			t := sig.SignedAt
			providerLine.SignedAt = &t
		} else if sig.ClientID != nil {
			byClient[sig.ClientID.String()] = sig
		}
	}
	for _, c := range rosterClients {
		line := render.SignatureLine{Role: "Client", SignerName: c.Name}
		if sig, ok := byClient[c.ID.String()]; ok {
			line.SignerName = sig.SignerName
			t := sig.SignedAt
			line.SignedAt = &t
		}
		clientLines = append(clientLines, line)
	}
	snap.Signatures = append([]render.SignatureLine{providerLine}, clientLines...)

	return snap
}
