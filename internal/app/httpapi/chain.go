package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	domain "github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/errors"
)

func (h *handler) listCoins(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Chain.ListCoins(r.Context())
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) getCoin(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseInt(pathVar(r, "chainId"), 10, 64)
	if err != nil {
		h.fail(w, r, errors.BadRequestf("Invalid chainId: %q", pathVar(r, "chainId")))
		return
	}
	coin, err := h.app.Chain.GetCoin(r.Context(), chainID, pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, coin, err)
}

func (h *handler) listContracts(w http.ResponseWriter, r *http.Request) {
	collectionID := strings.TrimSpace(r.URL.Query().Get("collectionId"))
	if collectionID == "" {
		h.fail(w, r, errors.BadRequest("collectionId is required"))
		return
	}
	list, err := h.app.Chain.ListMintSaleContracts(r.Context(), collectionID)
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) getContract(w http.ResponseWriter, r *http.Request) {
	contract, err := h.app.Chain.GetMintSaleContract(r.Context(), pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, contract, err)
}

// listTransactions accepts tokenAddress (repeatable), recipient, tierId and
// RFC 3339 since/until bounds.
func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{Recipient: strings.TrimSpace(q.Get("recipient"))}
	for _, addr := range q["tokenAddress"] {
		if addr = strings.TrimSpace(addr); addr != "" {
			filter.TokenAddresses = append(filter.TokenAddresses, addr)
		}
	}
	if raw := strings.TrimSpace(q.Get("tierId")); raw != "" {
		tier, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.fail(w, r, errors.BadRequestf("Invalid tierId: %q", raw))
			return
		}
		filter.TierID = &tier
	}
	var err error
	if filter.Since, err = queryTime(r, "since"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Until, err = queryTime(r, "until"); err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.app.Chain.ListTransactions(r.Context(), filter)
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) listAssets(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		h.fail(w, r, errors.BadRequest("owner is required"))
		return
	}
	list, err := h.app.Chain.ListAssetsByOwner(r.Context(), owner)
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.app.Chain.GetAsset(r.Context(), pathVar(r, "tokenAddress"), pathVar(r, "tokenId"))
	h.respond(w, r, http.StatusOK, asset, err)
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.BadRequestf("Invalid %s: %q", name, raw)
	}
	return t, nil
}
