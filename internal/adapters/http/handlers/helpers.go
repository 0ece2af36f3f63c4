package handlers

import (
	"errors"
	"strconv"

	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// actorFrom builds the service actor from the locals set by the auth middleware
func actorFrom(c *fiber.Ctx) services.Actor {
	userID, _ := c.Locals("userID").(uint)
	recordID, _ := c.Locals("recordID").(uint)
	role, _ := c.Locals("role").(string)
	return services.Actor{UserID: userID, RecordID: recordID, Role: role}
}

// paramID parses a positive numeric path parameter
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	return parseUint(c.Params(name))
}

func parseUint(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// validationFailed writes a 400 when err is a service validation error
func validationFailed(c *fiber.Ctx, err error) (bool, error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return true, response.BadRequest(c, verr.Message)
	}
	return false, nil
}

// optionalBool parses "true"/"false" query values; anything else is nil
func optionalBool(value string) *bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &b
}
