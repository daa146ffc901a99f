package httpapi

import (
	"net/http"

	"github.com/R3E-Network/nft_platform/internal/app/services/redeems"
)

func (h *handler) createRedeem(w http.ResponseWriter, r *http.Request) {
	var in redeems.CreateInput
	if !h.decode(w, r, &in) {
		return
	}
	req, err := h.app.Redeems.Create(r.Context(), userID(r), in)
	h.respond(w, r, http.StatusCreated, req, err)
}

func (h *handler) listMyRedeems(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Redeems.ListByUser(r.Context(), userID(r))
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) getRedeem(w http.ResponseWriter, r *http.Request) {
	req, err := h.app.Redeems.GetFor(r.Context(), userID(r), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, req, err)
}

func (h *handler) completeRedeem(w http.ResponseWriter, r *http.Request) {
	req, err := h.app.Redeems.Complete(r.Context(), userID(r), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, req, err)
}

func (h *handler) cancelRedeem(w http.ResponseWriter, r *http.Request) {
	req, err := h.app.Redeems.Cancel(r.Context(), userID(r), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, req, err)
}

func (h *handler) listCollectionRedeems(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Redeems.ListByCollection(r.Context(), userID(r), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, list, err)
}
