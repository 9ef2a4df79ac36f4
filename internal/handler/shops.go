package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"shopd/internal/engine"
	"shopd/internal/limits"
	"shopd/internal/shop"
)

// ShopHandler serves the read-only catalog and quote endpoints.
type ShopHandler struct {
	Catalog *shop.Catalog
	Engine  *engine.Engine
}

func (h *ShopHandler) Register(r *gin.Engine) {
	group := r.Group("/api/shops")
	group.GET("", h.listShops)
	group.GET("/:shop/items/:index/quote", h.getQuote)
	r.GET("/api/players/:player/balance", h.getBalance)
}

type shopSummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Currency    string        `json:"currency"`
	ResetPolicy string        `json:"reset_policy"`
	Items       []itemSummary `json:"items"`
}

type itemSummary struct {
	Index          int    `json:"index"`
	ItemID         string `json:"item_id"`
	Name           string `json:"name"`
	LimitPerPlayer int    `json:"limit_per_player"`
	StockMax       int    `json:"stock_max"`
}

// @Summary List shops
// @Tags shops
// @Success 200 {object} apiResponse
// @Router /api/shops [get]
func (h *ShopHandler) listShops(c *gin.Context) {
	shops := make([]shopSummary, 0, h.Catalog.Len())
	for _, def := range h.Catalog.All() {
		summary := shopSummary{
			ID:          def.ID,
			Name:        def.Name,
			Currency:    string(def.Currency),
			ResetPolicy: string(def.ResetPolicy),
		}
		for i, item := range def.Items {
			summary.Items = append(summary.Items, itemSummary{
				Index:          i,
				ItemID:         item.ItemID,
				Name:           item.Name,
				LimitPerPlayer: item.LimitPerPlayer,
				StockMax:       item.Strategy.StockMax,
			})
		}
		shops = append(shops, summary)
	}
	Ok(c, shops, map[string]any{"total": len(shops)})
}

type quoteView struct {
	Stock          int    `json:"stock"`
	BuyUnitPrice   string `json:"buy_unit_price"`
	SellUnitPrice  string `json:"sell_unit_price"`
	RemainingLimit *int   `json:"remaining_limit,omitempty"` // absent when unlimited
	NextResetIn    string `json:"next_reset_in,omitempty"`   // absent when the shop never resets
}

// @Summary Quote an item
// @Tags shops
// @Param shop path string true "shop id"
// @Param index path int true "item index"
// @Param player query string false "player id for the personal limit"
// @Success 200 {object} apiResponse
// @Router /api/shops/{shop}/items/{index}/quote [get]
func (h *ShopHandler) getQuote(c *gin.Context) {
	shopID := c.Param("shop")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid item index", nil)
		return
	}
	player := strings.TrimSpace(c.Query("player"))

	quote, err := h.Engine.GetQuote(shopID, index, player)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownShop) || errors.Is(err, engine.ErrUnknownItem) {
			Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	view := quoteView{
		Stock:         quote.Stock,
		BuyUnitPrice:  quote.BuyUnitPrice.String(),
		SellUnitPrice: quote.SellUnitPrice.String(),
	}
	if quote.RemainingLimit != limits.Unlimited {
		remaining := quote.RemainingLimit
		view.RemainingLimit = &remaining
	}
	if quote.NextResetIn >= 0 {
		view.NextResetIn = quote.NextResetIn.Round(time.Second).String()
	}
	Ok(c, view, nil)
}

// @Summary Player balance with a shop's currency provider
// @Tags shops
// @Param player path string true "player id"
// @Param shop query string true "shop id"
// @Success 200 {object} apiResponse
// @Router /api/players/{player}/balance [get]
func (h *ShopHandler) getBalance(c *gin.Context) {
	player := c.Param("player")
	shopID := strings.TrimSpace(c.Query("shop"))
	if shopID == "" {
		Error(c, http.StatusBadRequest, "shop query parameter required", nil)
		return
	}
	balance, err := h.Engine.Balance(c.Request.Context(), shopID, player)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownShop) {
			Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"player": player, "balance": balance.String()}, nil)
}
