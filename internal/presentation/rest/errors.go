package rest

import (
	"errors"

	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/gofiber/fiber/v2"
)

func ErrorBody(message, details string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: message, Details: details}
}

func issuanceError(err error) (int, dto.ErrorResponse) {
	var (
		notFound errs.NotFoundError
		conflict errs.ConflictError
		invalid  errs.ValidationError
		step     errs.StepError
	)
	switch {
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, ErrorBody(notFound.Error(), "")
	case errors.As(err, &conflict):
		return fiber.StatusConflict, ErrorBody("Certificate request is already being processed", conflict.Err.Error())
	case errors.As(err, &invalid):
		return fiber.StatusBadRequest, ErrorBody(invalid.Error(), "")
	case errors.As(err, &step):
		return fiber.StatusInternalServerError, ErrorBody(step.Message, step.Err.Error())
	}
	return fiber.StatusInternalServerError, ErrorBody("Internal server error", err.Error())
}

func failureStatus(err error) int {
	var invalid errs.ValidationError
	if errors.As(err, &invalid) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
