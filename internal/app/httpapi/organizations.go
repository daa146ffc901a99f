package httpapi

import (
	"net/http"

	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/services/organizations"
)

func (h *handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	var in organizations.CreateInput
	if !h.decode(w, r, &in) {
		return
	}
	org, err := h.app.Organizations.Create(r.Context(), userID(r), in)
	h.respond(w, r, http.StatusCreated, org, err)
}

func (h *handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Organizations.ListForUser(r.Context(), userID(r))
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) getOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.app.Organizations.Get(r.Context(), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, org, err)
}

func (h *handler) updateOrganization(w http.ResponseWriter, r *http.Request) {
	var in organizations.UpdateInput
	if !h.decode(w, r, &in) {
		return
	}
	org, err := h.app.Organizations.Update(r.Context(), userID(r), pathVar(r, "id"), in)
	h.respond(w, r, http.StatusOK, org, err)
}

func (h *handler) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Organizations.Delete(r.Context(), userID(r), pathVar(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) transferOrganization(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewOwnerID string `json:"newOwnerId"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	org, err := h.app.Organizations.TransferOwnership(r.Context(), userID(r), pathVar(r, "id"), payload.NewOwnerID)
	h.respond(w, r, http.StatusOK, org, err)
}

func (h *handler) organizationStats(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if err := h.requireMember(r, id); err != nil {
		h.fail(w, r, err)
		return
	}
	lastN, err := queryInt(r, "lastNDays", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.app.Organizations.Stats(r.Context(), id, lastN)
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *handler) invite(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		organization.Capabilities
	}
	if !h.decode(w, r, &payload) {
		return
	}
	m, err := h.app.Memberships.Invite(r.Context(), pathVar(r, "id"), userID(r), payload.Email, payload.Capabilities)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, invitation{Membership: m, InviteCode: m.InviteCode}, nil)
}

func (h *handler) listOrganizationMemberships(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if err := h.requireMember(r, id); err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.app.Memberships.ListByOrganization(r.Context(), id)
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) listMyMemberships(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Memberships.ListByUser(r.Context(), userID(r))
	h.respond(w, r, http.StatusOK, list, err)
}

// invitation is the only response that carries the invite code.
type invitation struct {
	organization.Membership
	InviteCode string `json:"inviteCode"`
}

type inviteCodePayload struct {
	Code string `json:"code"`
}

func (h *handler) acceptInvite(w http.ResponseWriter, r *http.Request) {
	var payload inviteCodePayload
	if !h.decode(w, r, &payload) {
		return
	}
	m, err := h.app.Memberships.Accept(r.Context(), payload.Code, userID(r))
	h.respond(w, r, http.StatusOK, m, err)
}

func (h *handler) declineInvite(w http.ResponseWriter, r *http.Request) {
	var payload inviteCodePayload
	if !h.decode(w, r, &payload) {
		return
	}
	if err := h.app.Memberships.Decline(r.Context(), payload.Code, userID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getMembership(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Memberships.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if m.UserID == nil || *m.UserID != userID(r) {
		if err := h.app.Memberships.Authorize(r.Context(), userID(r), m.OrganizationID, organization.CapabilityManage); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	h.respond(w, r, http.StatusOK, m, nil)
}

func (h *handler) updateMembership(w http.ResponseWriter, r *http.Request) {
	var caps organization.Capabilities
	if !h.decode(w, r, &caps) {
		return
	}
	m, err := h.app.Memberships.UpdateCapabilities(r.Context(), userID(r), pathVar(r, "id"), caps)
	h.respond(w, r, http.StatusOK, m, err)
}

func (h *handler) removeMembership(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Memberships.Remove(r.Context(), userID(r), pathVar(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireMember passes accepted members and the organization owner.
func (h *handler) requireMember(r *http.Request, organizationID string) error {
	member, err := h.app.Memberships.IsMember(r.Context(), userID(r), organizationID)
	if err != nil || member {
		return err
	}
	return h.app.Memberships.Authorize(r.Context(), userID(r), organizationID, organization.CapabilityManage)
}
