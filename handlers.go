package main

import (
	"context"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/models"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
	"github.com/gin-gonic/gin"
)

// tenantMiddleware lifts the caller identity from headers into the request
// context. Authentication happens upstream at the gateway; this service only
// needs to know who the gateway already verified.
func tenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId, err := strconv.Atoi(c.GetHeader("X-Tenant-Id"))
		if err != nil || tenantId <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Tenant-Id header is required"})
			return
		}
		ctx := utils.SetTenantIdInContext(c.Request.Context(), tenantId)
		if username := c.GetHeader("X-Username"); username != "" {
			ctx = utils.SetUsernameInContext(ctx, username)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api", tenantMiddleware())

	api.POST("/products", createJSON(models.CreateProduct))
	api.POST("/warehouses", createJSON(models.CreateWarehouse))
	api.POST("/financial-years", createJSON(models.CreateFinancialYear))
	api.POST("/transaction-templates", createJSON(models.CreateTransactionTemplate))

	api.POST("/purchase-orders", createJSON(models.CreatePurchaseOrder))
	api.GET("/purchase-orders/:id", getByID(models.GetPurchaseOrder))
	api.POST("/purchase-orders/:id/reverse", actByID(models.ReversePurchaseOrder))

	api.POST("/sales-orders", createJSON(models.CreateSalesOrder))
	api.GET("/sales-orders/:id", getByID(models.GetSalesOrder))
	api.POST("/sales-orders/:id/reverse", actByID(models.ReverseSalesOrder))

	api.POST("/stock-adjustments", createJSON(models.CreateStockAdjustment))
	api.GET("/stock-adjustments/:id", getByID(models.GetStockAdjustment))
	api.POST("/stock-adjustments/:id/reverse", actByID(models.ReverseStockAdjustment))

	api.POST("/stock-transfers", createJSON(models.CreateStockTransfer))
	api.GET("/stock-transfers/:id", getByID(models.GetStockTransfer))
	api.PUT("/stock-transfers/:id/status", updateTransferStatusHandler)
	api.POST("/stock-transfers/:id/reverse", actByID(models.ReverseStockTransfer))

	api.GET("/products/:id/stock-in-hand", stockInHandHandler)
	api.GET("/accounts/:id/balance", accountBalanceHandler)

	// Ops tooling: replay outbox rows that were marked DEAD/FAILED.
	r.POST("/internal/ops/outbox/replay", outboxReplayHandler)
}

// createJSON wires a JSON-body create function into a gin handler.
func createJSON[In any, Out any](create func(ctx context.Context, input *In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input In
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := create(c.Request.Context(), &input)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func getByID[Out any](get func(ctx context.Context, id int) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		result, err := get(c.Request.Context(), id)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func actByID[Out any](act func(ctx context.Context, id int) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		result, err := act(c.Request.Context(), id)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func updateTransferStatusHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body struct {
		Status models.StockTransferStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	transfer, err := models.UpdateStockTransferStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, transfer)
}

func stockInHandHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	qty, err := models.GetStockInHand(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": id, "stock_in_hand": qty})
}

func accountBalanceHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	balance, err := models.GetAccountBalance(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id, "balance": balance})
}

func outboxReplayHandler(c *gin.Context) {
	var body struct {
		TenantId int   `json:"tenant_id"`
		Ids      []int `json:"ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	db := config.GetDB()
	requeued, err := models.RequeueDeadPostings(db.WithContext(c.Request.Context()), body.TenantId, body.Ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requeued": requeued})
}

func statusForError(err error) int {
	if err == utils.ErrorRecordNotFound {
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}
