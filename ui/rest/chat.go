package rest

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	domainChat "github.com/wppweb/gateway/domains/chat"
	domainSync "github.com/wppweb/gateway/domains/sync"
	"github.com/wppweb/gateway/pkg/utils"
)

type Chat struct {
	Service     domainChat.IChatUsecase
	SyncService domainSync.ISyncUsecase
}

func InitRestChat(app fiber.Router, service domainChat.IChatUsecase, syncService domainSync.ISyncUsecase) Chat {
	rest := Chat{Service: service, SyncService: syncService}

	app.Get("/chats/:instance", rest.ListChats)
	app.Get("/chats/:instance/:chat_id/messages", rest.ListMessages)
	app.Post("/chats/:instance/sync", rest.TriggerSync)
	app.Post("/chats/:instance/:chat_id/read", rest.MarkAsRead)
	app.Post("/chats/:instance/:chat_id/archive", rest.SetArchived)
	app.Post("/chats/:instance/:chat_id/pin", rest.SetPinned)
	app.Post("/chats/:instance/:chat_id/presence", rest.SetPresence)
	return rest
}

func (controller *Chat) ListChats(c *fiber.Ctx) error {
	var request domainChat.ListChatsRequest
	if err := c.QueryParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	request.Instance = c.Params("instance")

	response, err := controller.Service.ListChats(c.UserContext(), request)
	if err != nil {
		return responseError(c, err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Chats retrieved",
		Results: response,
	})
}

func (controller *Chat) ListMessages(c *fiber.Ctx) error {
	var request domainChat.ListMessagesRequest
	if err := c.QueryParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	request.Instance = c.Params("instance")
	request.ChatID = c.Params("chat_id")

	response, err := controller.Service.ListMessages(c.UserContext(), request)
	if err != nil {
		return responseError(c, err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Messages retrieved",
		Results: response,
	})
}

// TriggerSync kicks off a full import in the background. Early failures
// (unknown instance, rate limit) are reported on the response; anything past
// that arrives on the instance's realtime channel as sync events.
func (controller *Chat) TriggerSync(c *fiber.Ctx) error {
	instanceID := c.Params("instance")

	errCh := make(chan error, 1)
	go func() {
		_, err := controller.SyncService.Sync(context.Background(), instanceID)
		if err != nil {
			logrus.WithError(err).Errorf("[SYNC] Background sync failed for %s", instanceID)
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return responseError(c, err)
		}
		return c.JSON(utils.ResponseData{
			Status:  200,
			Code:    "SUCCESS",
			Message: "Sync completed",
		})
	case <-time.After(500 * time.Millisecond):
		return c.Status(202).JSON(utils.ResponseData{
			Status:  202,
			Code:    "ACCEPTED",
			Message: "Sync started, follow progress on the realtime channel",
		})
	}
}

func (controller *Chat) MarkAsRead(c *fiber.Ctx) error {
	var request domainChat.MarkReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
		}
	}
	request.Instance = c.Params("instance")
	request.ChatID = c.Params("chat_id")

	if err := controller.Service.MarkAsRead(c.UserContext(), request); err != nil {
		return responseError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Chat marked as read",
	})
}

func (controller *Chat) SetArchived(c *fiber.Ctx) error {
	return controller.toggle(c, controller.Service.SetArchived, "Archive state updated")
}

func (controller *Chat) SetPinned(c *fiber.Ctx) error {
	return controller.toggle(c, controller.Service.SetPinned, "Pin state updated")
}

func (controller *Chat) toggle(c *fiber.Ctx, apply func(context.Context, domainChat.ToggleRequest) error, message string) error {
	var request domainChat.ToggleRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	request.Instance = c.Params("instance")
	request.ChatID = c.Params("chat_id")

	if err := apply(c.UserContext(), request); err != nil {
		return responseError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
	})
}

func (controller *Chat) SetPresence(c *fiber.Ctx) error {
	var request domainChat.PresenceRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	request.Instance = c.Params("instance")
	request.ChatID = c.Params("chat_id")

	if err := controller.Service.SetPresence(c.UserContext(), request); err != nil {
		return responseError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Presence sent",
	})
}
