package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/api/dto"
	"github.com/JKGhartey/task-manager-sub001/internal/observability"
	apperrors "github.com/JKGhartey/task-manager-sub001/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as logging, error handling and timeouts.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(dto.Envelope{
					Success: false,
					Code:    domainErr.Code,
					Message: domainErr.Message,
					Errors:  domainErr.Details,
				})
				err = nil
			}
		}()
		return c.Next()
	}
}

// toDomainError also translates fiber's own errors such as unmatched routes.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case http.StatusNotFound:
			return apperrors.NewDomainError(apperrors.CodeNotFound, fe.Message, fe.Code, nil)
		case http.StatusTooManyRequests:
			return apperrors.NewDomainError(apperrors.CodeRateLimited, fe.Message, fe.Code, nil)
		case http.StatusUnauthorized:
			return apperrors.NewDomainError(apperrors.CodeUnauthorized, fe.Message, fe.Code, nil)
		case http.StatusForbidden:
			return apperrors.NewDomainError(apperrors.CodeForbidden, fe.Message, fe.Code, nil)
		}
		if fe.Code >= 400 && fe.Code < 500 {
			return apperrors.NewDomainError(apperrors.CodeValidationFailed, fe.Message, fe.Code, nil)
		}
	}
	return apperrors.ToDomainError(err)
}
