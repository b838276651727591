// Controller for notification endpoints
package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"school-admin-be/internal/dto"
	"school-admin-be/internal/model"
	"school-admin-be/internal/pkg/serverutils"
	"school-admin-be/internal/service"
)

type INotificationController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
}

type notificationController struct {
	notificationService service.INotificationService
}

func NewNotificationController(notificationService service.INotificationService) INotificationController {
	return &notificationController{
		notificationService: notificationService,
	}
}

func (c *notificationController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	notification := api.Group("/notification", jwtMiddleware)
	notification.Post("/device", c.RegisterDevice)
	notification.Post("/send", serverutils.RequireRoles(model.RoleAdmin), c.Send)
	notification.Get("/list", c.List)
}

// RegisterDevice registers or refreshes a push device token for the
// authenticated user.
// @Summary Register a device token
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} serverutils.APIResponse
// @Router /notification/device [post]
func (c *notificationController) RegisterDevice(ctx *fiber.Ctx) error {
	requesterId, ok := requesterIdFromLocals(ctx)
	if !ok {
		return nil
	}

	var req dto.RegisterDeviceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := c.notificationService.RegisterDevice(ctx.Context(), requesterId, req); err != nil {
		return serverutils.AppErrorResponse(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Device registered", nil))
}

// Send resolves the recipient filter and queues a notification for
// asynchronous delivery. Admin only.
// @Summary Send a notification
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 202 {object} dto.SendNotificationResponse
// @Router /notification/send [post]
func (c *notificationController) Send(ctx *fiber.Ctx) error {
	initiatorId, ok := requesterIdFromLocals(ctx)
	if !ok {
		return nil
	}

	var req dto.SendNotificationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	resp, err := c.notificationService.Send(ctx.Context(), initiatorId, req)
	if err != nil {
		return serverutils.AppErrorResponse(ctx, err)
	}

	// 202: the job is accepted for delivery, not yet delivered.
	return ctx.Status(fiber.StatusAccepted).JSON(resp)
}

// List returns recent notification jobs. Admins see everything; other roles
// only see jobs addressed to them.
// @Summary List recent notifications
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Success 200 {object} []dto.NotificationSummary
// @Router /notification/list [get]
func (c *notificationController) List(ctx *fiber.Ctx) error {
	requesterId, ok := requesterIdFromLocals(ctx)
	if !ok {
		return nil
	}
	role, _ := ctx.Locals("role").(string)

	limit := ctx.QueryInt("limit", 0)

	summaries, err := c.notificationService.List(ctx.Context(), role, requesterId, limit)
	if err != nil {
		return serverutils.AppErrorResponse(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Notifications retrieved", summaries))
}

// requesterIdFromLocals reads the authenticated user id set by JwtMiddleware.
// When it returns false the error response has already been written.
func requesterIdFromLocals(ctx *fiber.Ctx) (uuid.UUID, bool) {
	str, ok := ctx.Locals("user_id").(string)
	if !ok {
		_ = ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(str)
	if err != nil {
		_ = ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid user ID"))
		return uuid.Nil, false
	}
	return id, true
}
