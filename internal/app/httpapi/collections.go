package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/R3E-Network/nft_platform/internal/app/services/collections"
	"github.com/R3E-Network/nft_platform/internal/app/services/tiers"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	"github.com/R3E-Network/nft_platform/internal/errors"
)

func (h *handler) precheck(w http.ResponseWriter, r *http.Request) {
	var window collections.SaleWindow
	if !h.decode(w, r, &window) {
		return
	}
	if err := h.app.Collections.Precheck(window); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]bool{"ok": true}, nil)
}

func (h *handler) createCollection(w http.ResponseWriter, r *http.Request) {
	var in collections.CreateInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.app.Collections.Create(r.Context(), userID(r), in)
	h.respond(w, r, http.StatusCreated, c, err)
}

func (h *handler) listCollections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.CollectionFilter{OrganizationID: strings.TrimSpace(q.Get("organizationId"))}
	if raw := strings.TrimSpace(q.Get("published")); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(w, r, errors.BadRequestf("Invalid published: %q", raw))
			return
		}
		filter.Published = &published
	}
	list, err := h.app.Collections.List(r.Context(), filter)
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) getCollection(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Collections.Get(r.Context(), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *handler) getCollectionByAddress(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Collections.GetByAddress(r.Context(), pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *handler) updateCollection(w http.ResponseWriter, r *http.Request) {
	var in collections.UpdateInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.app.Collections.Update(r.Context(), userID(r), pathVar(r, "id"), in)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *handler) deleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Collections.Delete(r.Context(), userID(r), pathVar(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) publishCollection(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address string `json:"address"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.app.Collections.Publish(r.Context(), userID(r), pathVar(r, "id"), payload.Address)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *handler) collectionHolders(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	conn, err := h.app.Collections.Holders(r.Context(), pathVar(r, "address"), page)
	h.respond(w, r, http.StatusOK, conn, err)
}

func (h *handler) collectionHolderCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.app.Collections.UniqueHolderCount(r.Context(), pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, map[string]int{"count": count}, err)
}

func (h *handler) collectionBuyers(w http.ResponseWriter, r *http.Request) {
	buyers, err := h.app.Collections.Buyers(r.Context(), pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, buyers, err)
}

func (h *handler) collectionActivities(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	conn, err := h.app.Collections.Activities(r.Context(), pathVar(r, "address"), page)
	h.respond(w, r, http.StatusOK, conn, err)
}

func (h *handler) collectionAggregatedActivities(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.app.Collections.AggregatedActivities(r.Context(), pathVar(r, "address"), days)
	h.respond(w, r, http.StatusOK, out, err)
}

// collectionEarnings answers null when nothing was sold.
func (h *handler) collectionEarnings(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Collections.EarningsByAddress(r.Context(), pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *handler) collectionGrossEarnings(w http.ResponseWriter, r *http.Request) {
	total, err := h.app.Collections.GrossEarnings(r.Context(), pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, map[string]string{"usd": total.String()}, err)
}

func (h *handler) collectionSevenDayVolume(w http.ResponseWriter, r *http.Request) {
	total, err := h.app.Collections.SevenDayVolume(r.Context(), pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, map[string]string{"usd": total.String()}, err)
}

func (h *handler) collectionSecondaryMarket(w http.ResponseWriter, r *http.Request) {
	stat, err := h.app.Collections.SecondaryMarketStat(r.Context(), pathVar(r, "address"))
	h.respond(w, r, http.StatusOK, stat, err)
}

func (h *handler) createTier(w http.ResponseWriter, r *http.Request) {
	var in tiers.CreateInput
	if !h.decode(w, r, &in) {
		return
	}
	in.CollectionID = pathVar(r, "id")
	t, err := h.app.Tiers.Create(r.Context(), userID(r), in)
	h.respond(w, r, http.StatusCreated, t, err)
}

func (h *handler) listTiers(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Tiers.ListByCollection(r.Context(), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handler) getTier(w http.ResponseWriter, r *http.Request) {
	t, err := h.app.Tiers.Get(r.Context(), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, t, err)
}

func (h *handler) updateTier(w http.ResponseWriter, r *http.Request) {
	var in tiers.UpdateInput
	if !h.decode(w, r, &in) {
		return
	}
	t, err := h.app.Tiers.Update(r.Context(), userID(r), pathVar(r, "id"), in)
	h.respond(w, r, http.StatusOK, t, err)
}

func (h *handler) deleteTier(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Tiers.Delete(r.Context(), userID(r), pathVar(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) tierProfit(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Tiers.Profit(r.Context(), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *handler) tierHolders(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	conn, err := h.app.Tiers.Holders(r.Context(), pathVar(r, "id"), page)
	h.respond(w, r, http.StatusOK, conn, err)
}

func (h *handler) tierHolderCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.app.Tiers.HolderCount(r.Context(), pathVar(r, "id"))
	h.respond(w, r, http.StatusOK, map[string]int{"count": count}, err)
}

func (h *handler) evaluateTier(w http.ResponseWriter, r *http.Request) {
	var doc json.RawMessage
	if !h.decode(w, r, &doc) {
		return
	}
	ok, err := h.app.Tiers.Evaluate(r.Context(), pathVar(r, "id"), doc)
	h.respond(w, r, http.StatusOK, map[string]bool{"eligible": ok}, err)
}
