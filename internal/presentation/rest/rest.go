package rest

import (
	"errors"
	"log/slog"

	"github.com/Builder-Lawyers/certify-backend/internal/application"
	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var _ ServerInterface = (*Server)(nil)

type Server struct {
	commands *application.Collection
}

func NewServer(commands *application.Collection) *Server {
	return &Server{commands: commands}
}

func (s *Server) GenerateCertificate(c *fiber.Ctx) error {
	var req dto.GenerateCertificateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorBody("Invalid request body", err.Error()))
		}
	}
	if err := dto.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorBody("Missing required parameters: requestId, issuerId", errors.Unwrap(err).Error()))
	}
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorBody("Invalid requestId", err.Error()))
	}

	issued, err := s.commands.IssueCertificate.Execute(c.UserContext(), requestID, req.IssuerID)
	if err != nil {
		status, body := issuanceError(err)
		return c.Status(status).JSON(body)
	}

	return c.Status(fiber.StatusOK).JSON(dto.GenerateCertificateResponse{
		Success:     true,
		Certificate: *issued,
	})
}

func (s *Server) ProcessNotifications(c *fiber.Ctx) error {
	var req dto.ProcessNotificationsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.FailureResponse{Error: err.Error()})
		}
	}
	if req.Notification != nil {
		req.Notification.Normalize()
	}
	if err := dto.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.FailureResponse{Error: err.Error()})
	}

	resp, err := s.commands.ProcessNotifications.Execute(c.UserContext(), req)
	if err != nil {
		slog.Error("failed to process notifications", "err", err)
		return c.Status(failureStatus(err)).JSON(dto.FailureResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) ProcessNotificationDigests(c *fiber.Ctx) error {
	var req dto.ProcessDigestsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.FailureResponse{Error: err.Error()})
		}
	}
	if err := dto.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.FailureResponse{Error: err.Error()})
	}

	resp, err := s.commands.ProcessDigests.Execute(c.UserContext(), req)
	if err != nil {
		slog.Error("failed to process digests", "err", err)
		return c.Status(failureStatus(err)).JSON(dto.FailureResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) VerifyCertificate(c *fiber.Ctx, code string) error {
	resp, err := s.commands.VerifyCertificate.Query(c.UserContext(), code)
	if err != nil {
		var notFound errs.NotFoundError
		var invalid errs.ValidationError
		switch {
		case errors.As(err, &notFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorBody("Certificate not found", ""))
		case errors.As(err, &invalid):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorBody(invalid.Error(), ""))
		}
		slog.Error("failed to verify certificate", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorBody("Internal server error", err.Error()))
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
