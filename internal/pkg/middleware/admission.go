package middleware

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ResumeFox/internal/pkg/credits"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/database"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/usercontext"
)

// AdmissionLocalKey is where the granted admission is stored for handlers
// that want to report the charged cost.
const AdmissionLocalKey = "ADMISSION"

// Admitter is the slice of the credits service the gate needs.
type Admitter interface {
	Admit(ctx context.Context, userID uint, op credits.Operation) (*credits.Admission, error)
}

// RequireCredits gates a costed operation. The check and the deduct happen
// inside the credits service as one conditional write; by the time the next
// handler runs, the charge is already durable. Handlers must not assume a
// refund on their own failure.
func RequireCredits(op credits.Operation) fiber.Handler {
	return creditGate(op, func() Admitter {
		return credits.NewServiceFromDB(database.GetDB())
	})
}

func creditGate(op credits.Operation, admitter func() Admitter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userCtx := usercontext.GetUserContext(c)
		if !userCtx.IsLoggedIn {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "login required",
			})
		}

		admission, err := admitter().Admit(c.Context(), userCtx.UserID, op)
		if err != nil {
			if errors.Is(err, credits.ErrInsufficientCredits) || errors.Is(err, credits.ErrLedgerNotFound) {
				if err := counter.AddDenial(string(op)); err != nil {
					log.Printf("denial counter failed for op %s: %v", op, err)
				}
				available := int64(0)
				required := int64(0)
				if admission != nil {
					available = admission.Available
					required = admission.Required
				}
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
					"error":     "insufficient_credits",
					"message":   "Not enough credits for this operation",
					"operation": op,
					"required":  required,
					"available": available,
				})
			}
			log.Printf("admission check failed for user %d op %s: %v", userCtx.UserID, op, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "Credit check failed, please retry",
			})
		}

		if err := counter.AddAdmission(string(op)); err != nil {
			log.Printf("admission counter failed for op %s: %v", op, err)
		}
		c.Locals(AdmissionLocalKey, admission)
		return c.Next()
	}
}
