package rest

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	pkgError "github.com/wppweb/gateway/pkg/error"
	"github.com/wppweb/gateway/pkg/utils"
)

// responseError maps typed service errors onto their HTTP shape. Anything
// untyped is an internal error.
func responseError(c *fiber.Ctx, err error) error {
	var generic pkgError.GenericError
	if errors.As(err, &generic) {
		return c.Status(generic.StatusCode()).JSON(utils.ResponseData{
			Status:  generic.StatusCode(),
			Code:    generic.ErrCode(),
			Message: generic.Error(),
		})
	}
	return c.Status(500).JSON(utils.ResponseData{
		Status:  500,
		Code:    "INTERNAL_SERVER_ERROR",
		Message: err.Error(),
	})
}
