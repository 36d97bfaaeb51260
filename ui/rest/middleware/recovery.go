package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	pkgError "github.com/wppweb/gateway/pkg/error"
	"github.com/wppweb/gateway/pkg/utils"
)

// Recovery converts handler panics into JSON error responses instead of
// dropped connections. Typed errors keep their own status and code.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			logrus.Errorf("[REST] Recovered from handler panic: %v", recovered)

			response := utils.ResponseData{
				Status:  500,
				Code:    "INTERNAL_SERVER_ERROR",
				Message: fmt.Sprintf("%v", recovered),
			}
			if typed, ok := recovered.(pkgError.GenericError); ok {
				response.Status = typed.StatusCode()
				response.Code = typed.ErrCode()
				response.Message = typed.Error()
			}

			_ = ctx.Status(response.Status).JSON(response)
		}()

		return ctx.Next()
	}
}
