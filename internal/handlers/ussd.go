package handlers

import (
	"log"

	"github.com/afya-ehr/afya-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// UssdRequest is the payload USSD gateways POST on every turn. The
// text field carries the full *-joined input trail, empty on first dial.
type UssdRequest struct {
	SessionID   string `json:"sessionId" form:"sessionId"`
	ServiceCode string `json:"serviceCode" form:"serviceCode"`
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber"`
	Text        string `json:"text" form:"text"`
}

// UssdHandler handles USSD gateway callbacks
type UssdHandler struct {
	ussdService *services.UssdService
}

// NewUssdHandler creates a new USSD handler
func NewUssdHandler(ussdService *services.UssdService) *UssdHandler {
	return &UssdHandler{ussdService: ussdService}
}

// HandleCallback processes one USSD turn and replies with a plain
// text CON/END payload. Gateways expect 200 even on bad input, so
// malformed requests get an END screen rather than an error status.
func (h *UssdHandler) HandleCallback(c *fiber.Ctx) error {
	var req UssdRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing USSD callback: %v", err)
		return c.Type("txt").SendString("END Invalid request.")
	}

	if req.SessionID == "" || req.PhoneNumber == "" {
		return c.Type("txt").SendString("END Invalid request.")
	}

	log.Printf("📱 USSD %s from %s: %q", req.SessionID, req.PhoneNumber, req.Text)

	response := h.ussdService.HandleRequest(req.SessionID, req.ServiceCode, req.PhoneNumber, req.Text)
	return c.Type("txt").SendString(response)
}
