package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	domainInstance "github.com/wppweb/gateway/domains/instance"
	"github.com/wppweb/gateway/pkg/utils"
)

type Instance struct {
	Repo domainInstance.IInstanceRepository
}

func InitRestInstance(app fiber.Router, repo domainInstance.IInstanceRepository) Instance {
	rest := Instance{Repo: repo}

	app.Get("/instances", rest.ListInstances)
	app.Post("/instances", rest.RegisterInstance)
	app.Get("/instances/:instance", rest.GetInstance)
	return rest
}

func (controller *Instance) ListInstances(c *fiber.Ctx) error {
	instances, err := controller.Repo.ListInstances(c.UserContext())
	if err != nil {
		return responseError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instances retrieved",
		Results: instances,
	})
}

type registerInstanceRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

func (controller *Instance) RegisterInstance(c *fiber.Ctx) error {
	var request registerInstanceRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}
	if request.ID == "" {
		request.ID = uuid.NewString()
	}

	inst := &domainInstance.Instance{
		ID:     request.ID,
		Name:   request.Name,
		Status: string(domainInstance.StatusDisconnected),
	}
	if err := controller.Repo.UpsertInstance(c.UserContext(), inst); err != nil {
		return responseError(c, err)
	}
	return c.Status(201).JSON(utils.ResponseData{
		Status:  201,
		Code:    "CREATED",
		Message: "Instance registered",
		Results: inst,
	})
}

// GetInstance returns the connection state plus the current QR code, which
// the login screen polls while pairing.
func (controller *Instance) GetInstance(c *fiber.Ctx) error {
	inst, err := controller.Repo.FindInstance(c.UserContext(), c.Params("instance"))
	if err != nil {
		return responseError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instance retrieved",
		Results: inst,
	})
}
