package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopd/internal/engine"
)

// TradeHandler exposes the buy/sell/sell-all entry points.
type TradeHandler struct {
	Engine *engine.Engine
	Logger *zap.Logger
}

func (h *TradeHandler) Register(r *gin.Engine) {
	group := r.Group("/api/shops/:shop/items/:index")
	group.POST("/buy", h.buy)
	group.POST("/sell", h.sell)
	group.POST("/sellall", h.sellAll)
}

type tradeRequest struct {
	Player string `json:"player" binding:"required"`
	Amount int    `json:"amount"`
}

type tradeView struct {
	Outcome   string `json:"outcome"`
	UnitPrice string `json:"unit_price,omitempty"`
	Amount    int    `json:"amount,omitempty"`
	Total     string `json:"total,omitempty"`
}

func toView(res engine.Result) tradeView {
	view := tradeView{Outcome: string(res.Outcome)}
	if res.Outcome == engine.OutcomeSuccess {
		view.UnitPrice = res.UnitPrice.String()
		view.Amount = res.Amount
		view.Total = res.Total.String()
	}
	return view
}

func (h *TradeHandler) respond(c *gin.Context, res engine.Result, err error) {
	if err != nil {
		if errors.Is(err, engine.ErrUnknownShop) || errors.Is(err, engine.ErrUnknownItem) {
			Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Error("transaction failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "transaction failed", nil)
		return
	}
	if res.Outcome == engine.OutcomeSuccess {
		Ok(c, toView(res), nil)
		return
	}
	c.JSON(http.StatusConflict, apiResponse{
		Code:    http.StatusConflict,
		Message: string(res.Outcome),
		Data:    toView(res),
	})
}

func (h *TradeHandler) params(c *gin.Context, needAmount bool) (string, int, tradeRequest, bool) {
	shopID := c.Param("shop")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid item index", nil)
		return "", 0, tradeRequest{}, false
	}
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return "", 0, tradeRequest{}, false
	}
	if needAmount && req.Amount <= 0 {
		Error(c, http.StatusBadRequest, "amount must be positive", nil)
		return "", 0, tradeRequest{}, false
	}
	return shopID, index, req, true
}

// @Summary Buy an item
// @Tags trade
// @Param shop path string true "shop id"
// @Param index path int true "item index"
// @Param request body tradeRequest true "player and amount"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/shops/{shop}/items/{index}/buy [post]
func (h *TradeHandler) buy(c *gin.Context) {
	shopID, index, req, ok := h.params(c, true)
	if !ok {
		return
	}
	res, err := h.Engine.Buy(c.Request.Context(), shopID, index, req.Player, req.Amount)
	h.respond(c, res, err)
}

// @Summary Sell an item
// @Tags trade
// @Param shop path string true "shop id"
// @Param index path int true "item index"
// @Param request body tradeRequest true "player and amount"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/shops/{shop}/items/{index}/sell [post]
func (h *TradeHandler) sell(c *gin.Context) {
	shopID, index, req, ok := h.params(c, true)
	if !ok {
		return
	}
	res, err := h.Engine.Sell(c.Request.Context(), shopID, index, req.Player, req.Amount)
	h.respond(c, res, err)
}

// @Summary Sell every held unit of an item
// @Tags trade
// @Param shop path string true "shop id"
// @Param index path int true "item index"
// @Param request body tradeRequest true "player"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/shops/{shop}/items/{index}/sellall [post]
func (h *TradeHandler) sellAll(c *gin.Context) {
	shopID, index, req, ok := h.params(c, false)
	if !ok {
		return
	}
	res, err := h.Engine.SellAll(c.Request.Context(), shopID, index, req.Player)
	h.respond(c, res, err)
}
