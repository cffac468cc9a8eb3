package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventreminders/internal/delivery/http/helpers"
	"eventreminders/internal/domain"
)

// RegisterRequest is the request body for POST /events/{eventID}/registrations.
type RegisterRequest struct {
	RecipientID string            `json:"recipient_id"`
	Data        map[string]string `json:"data"`
}

// Validate implements Validator.
func (r RegisterRequest) Validate() []string {
	if strings.TrimSpace(r.RecipientID) == "" {
		return []string{"recipient_id is required"}
	}
	return nil
}

// SetConfirmationRequest is the request body for PUT /registrations/{registrationID}/confirmation.
type SetConfirmationRequest struct {
	Confirmed string `json:"confirmed"`
}

// Validate implements Validator.
func (s SetConfirmationRequest) Validate() []string {
	switch domain.Confirmation(s.Confirmed) {
	case domain.ConfirmationConfirmed, domain.ConfirmationDeclined:
		return nil
	}
	return []string{"confirmed must be \"confirmed\" or \"declined\""}
}

// RegistrationSuccessResponse is the success response envelope for registration endpoints.
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// DeleteRegistrationResponse is the data payload for DELETE /registrations/{registrationID}.
type DeleteRegistrationResponse struct {
	Status string `json:"status"`
}

// DeleteRegistrationSuccessResponse is the success response envelope for DELETE /registrations/{registrationID}.
type DeleteRegistrationSuccessResponse struct {
	Data  DeleteRegistrationResponse `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.AttendeeService
}

func NewRegistrationController(logger *slog.Logger, svc domain.AttendeeService) *RegistrationController {
	return &RegistrationController{Logger: logger, Service: svc}
}

// Register godoc
// @Summary Register a recipient for an event
// @Description Registers the recipient and schedules its reminders. Registering again returns the existing registration with 200.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param registration body RegisterRequest true "Recipient and form data"
// @Success 201 {object} controllers.RegistrationSuccessResponse "created"
// @Success 200 {object} controllers.RegistrationSuccessResponse "already registered"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, created, err := c.Service.Register(r.Context(), eventID, req.RecipientID, req.Data)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	helpers.WriteJSONSuccess(w, status, reg)
}

// CancelRegistration godoc
// @Summary Cancel a registration
// @Description Deletes the registration together with its scheduled notifications.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.DeleteRegistrationSuccessResponse "data contains status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID} [delete]
func (c *RegistrationController) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := helpers.PathUUID(w, r, "registrationID")
	if !ok {
		return
	}
	if err := c.Service.CancelRegistration(r.Context(), registrationID); err != nil {
		writeServiceError(w, r, c.Logger, err, "registration not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteRegistrationResponse{Status: "deleted"})
}

// SetConfirmation godoc
// @Summary Record a registrant's answer
// @Description Stores confirmed or declined for the registration and notifies the event organizers.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Param confirmation body SetConfirmationRequest true "confirmed or declined"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the updated registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/confirmation [put]
func (c *RegistrationController) SetConfirmation(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := helpers.PathUUID(w, r, "registrationID")
	if !ok {
		return
	}
	var req SetConfirmationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Service.Respond(r.Context(), registrationID, domain.Confirmation(req.Confirmed))
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "registration not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}
