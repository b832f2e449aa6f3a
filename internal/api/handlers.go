package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storefront-platform/storefront/internal/api/dto"
	"github.com/storefront-platform/storefront/internal/clients"
	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/middleware"
)

func createSaleHandler(runner Runner, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.CreateSaleRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]string{
			"branch.id":  req.BranchID,
			"sale.lines": strconv.Itoa(len(req.Lines)),
		})

		result, err := runner.SubmitSale(forwardedContext(c), req.ToDomain())
		respond(c, responder, result, err)
	}
}

func createPurchaseOrderHandler(runner Runner, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.CreatePurchaseOrderRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]string{
			"branch.id":      req.BranchID,
			"supply_item.id": req.SupplyItemID,
		})

		result, err := runner.SubmitPurchase(forwardedContext(c), req.ToDomain())
		respond(c, responder, result, err)
	}
}

// forwardedContext carries the caller's Authorization header to the backends
func forwardedContext(c *gin.Context) context.Context {
	return clients.WithAuthorization(c.Request.Context(), c.GetHeader(middleware.HeaderAuthorization))
}

func respond(c *gin.Context, responder *middleware.ErrorResponder, result *domain.WorkflowResult, err error) {
	if result == nil {
		responder.RespondInternalError(err)
		return
	}
	if err != nil || result.Status == domain.StatusFailed {
		responder.RespondWithAppError(failureError(result))
		return
	}
	c.JSON(successStatus(result), result)
}
