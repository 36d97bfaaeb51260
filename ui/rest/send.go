package rest

import (
	"github.com/gofiber/fiber/v2"
	domainSend "github.com/wppweb/gateway/domains/send"
	"github.com/wppweb/gateway/pkg/utils"
)

type Send struct {
	Service domainSend.ISendUsecase
}

func InitRestSend(app fiber.Router, service domainSend.ISendUsecase) Send {
	rest := Send{Service: service}

	app.Post("/send/:instance/text", rest.SendText)
	app.Post("/send/:instance/media", rest.SendMedia)
	app.Post("/send/:instance/sticker", rest.SendSticker)
	app.Post("/send/:instance/audio", rest.SendAudio)
	return rest
}

func (controller *Send) SendText(c *fiber.Ctx) error {
	var request domainSend.TextRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	request.Instance = c.Params("instance")

	response, err := controller.Service.SendText(c.UserContext(), request)
	if err != nil {
		return responseError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Message sent",
		Results: response,
	})
}

func (controller *Send) SendMedia(c *fiber.Ctx) error {
	var request domainSend.MediaRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	request.Instance = c.Params("instance")

	response, err := controller.Service.SendMedia(c.UserContext(), request)
	if err != nil {
		return responseError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Media sent",
		Results: response,
	})
}

func (controller *Send) SendSticker(c *fiber.Ctx) error {
	var request domainSend.StickerRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	request.Instance = c.Params("instance")

	response, err := controller.Service.SendSticker(c.UserContext(), request)
	if err != nil {
		return responseError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Sticker sent",
		Results: response,
	})
}

func (controller *Send) SendAudio(c *fiber.Ctx) error {
	var request domainSend.AudioRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	request.Instance = c.Params("instance")

	response, err := controller.Service.SendAudio(c.UserContext(), request)
	if err != nil {
		return responseError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Audio sent",
		Results: response,
	})
}
