package httpapi

import (
	"net/http"

	"github.com/R3E-Network/nft_platform/internal/app/services/users"
	"github.com/R3E-Network/nft_platform/internal/middleware"
)

func (h *handler) createUserWithEmail(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	result, err := h.app.Auth.CreateUserWithEmail(r.Context(), payload.Email, payload.Password, payload.Username)
	h.respond(w, r, http.StatusCreated, result, err)
}

func (h *handler) loginWithEmail(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	result, err := h.app.Auth.LoginWithEmail(r.Context(), payload.Email, payload.Password)
	h.respond(w, r, http.StatusOK, result, err)
}

// walletNonce issues the challenge signed for wallet login and wallet binding.
func (h *handler) walletNonce(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address string `json:"address"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	challenge, err := h.app.Auth.WalletChallenge(r.Context(), payload.Address)
	h.respond(w, r, http.StatusCreated, challenge, err)
}

func (h *handler) loginWithWallet(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address   string `json:"address"`
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	result, err := h.app.Auth.LoginWithWallet(r.Context(), payload.Address, payload.Message, payload.Signature)
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Auth.Logout(r.Context(), middleware.BearerToken(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Users.Get(r.Context(), userID(r))
	h.respond(w, r, http.StatusOK, u, err)
}

func (h *handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username    *string `json:"username"`
		DisplayName *string `json:"displayName"`
		AvatarURL   *string `json:"avatarUrl"`
		Bio         *string `json:"bio"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	u, err := h.app.Users.Update(r.Context(), userID(r), users.UpdateInput{
		Username:    payload.Username,
		DisplayName: payload.DisplayName,
		AvatarURL:   payload.AvatarURL,
		Bio:         payload.Bio,
	})
	h.respond(w, r, http.StatusOK, u, err)
}

func (h *handler) listWallets(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Wallets.ListByOwner(r.Context(), userID(r))
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) bindWallet(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address   string `json:"address"`
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	wal, err := h.app.Wallets.Bind(r.Context(), userID(r), payload.Address, payload.Message, payload.Signature)
	h.respond(w, r, http.StatusOK, wal, err)
}

func (h *handler) renameWallet(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	wal, err := h.app.Wallets.Rename(r.Context(), userID(r), pathVar(r, "address"), payload.Name)
	h.respond(w, r, http.StatusOK, wal, err)
}

func (h *handler) unbindWallet(w http.ResponseWriter, r *http.Request) {
	wal, err := h.app.Wallets.Unbind(r.Context(), userID(r), pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, wal, err)
}

func (h *handler) recordReferral(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code string `json:"code"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	ref, err := h.app.Referrals.Record(r.Context(), payload.Code, userID(r))
	h.respond(w, r, http.StatusCreated, ref, err)
}

func (h *handler) listReferrals(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Referrals.ListByReferrer(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]interface{}{
		"count":     len(list),
		"referrals": list,
	}, nil)
}
