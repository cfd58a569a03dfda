package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dosewise/dosewise/internal/domain"
	"github.com/dosewise/dosewise/internal/logger"
	"github.com/dosewise/dosewise/internal/services"
	"github.com/dosewise/dosewise/internal/stream"
)

// callerIDHeader is set by the upstream auth layer after session
// verification.
const callerIDHeader = "X-User-ID"

func callerID(c echo.Context) (uint, bool) {
	raw := c.Request().Header.Get(callerIDHeader)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func patientParam(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	TargetTime string `json:"targetTime"`
	Timezone   string `json:"timezone"`
}

// handleGenerateRecommendation runs the recommendation pipeline over an SSE
// stream. Every failure after the stream opens is reported as a terminal
// error event rather than an HTTP status, so the caller always sees the
// precise reason.
func (s *Server) handleGenerateRecommendation(c echo.Context) error {
	st := stream.New(newSSEWriter(c))
	requestID := uuid.NewString()

	caller, ok := callerID(c)
	if !ok {
		st.Fail("missing or invalid caller identity")
		return nil
	}
	patientID, ok := patientParam(c)
	if !ok {
		st.Fail("invalid request")
		return nil
	}

	var body generateRequest
	if err := c.Bind(&body); err != nil {
		st.Fail("invalid request")
		return nil
	}

	targetTime := time.Time{}
	if body.TargetTime != "" {
		parsed, err := time.Parse(time.RFC3339, body.TargetTime)
		if err != nil {
			st.Fail("invalid request")
			return nil
		}
		targetTime = parsed
	}

	logger.Info("Recommendation request started",
		"request_id", requestID, "patient_id", patientID, "caller_id", caller)

	s.recommendations.Generate(c.Request().Context(), services.Request{
		PatientID:  patientID,
		CallerID:   caller,
		TargetTime: targetTime,
		Timezone:   body.Timezone,
	}, st)

	logger.Info("Recommendation request finished", "request_id", requestID, "patient_id", patientID)
	return nil
}

func (s *Server) handleListPatients(c echo.Context) error {
	caller, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing or invalid caller identity"})
	}
	patients, err := s.patients.ListByOwner(c.Request().Context(), caller)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list patients"})
	}
	return c.JSON(http.StatusOK, patients)
}

// ownedPatient loads the patient and enforces ownership for the plain REST
// endpoints.
func (s *Server) ownedPatient(c echo.Context) (*domain.Patient, int) {
	caller, ok := callerID(c)
	if !ok {
		return nil, http.StatusUnauthorized
	}
	patientID, ok := patientParam(c)
	if !ok {
		return nil, http.StatusBadRequest
	}
	patient, err := s.patients.FindByID(c.Request().Context(), patientID)
	if err != nil || patient == nil {
		return nil, http.StatusNotFound
	}
	if patient.OwnerID != caller {
		return nil, http.StatusForbidden
	}
	return patient, 0
}

func (s *Server) handleListEntries(c echo.Context) error {
	patient, status := s.ownedPatient(c)
	if patient == nil {
		return c.NoContent(status)
	}
	entries, err := s.entries.ListByPatient(c.Request().Context(), patient.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list entries"})
	}
	return c.JSON(http.StatusOK, entries)
}

type createEntryRequest struct {
	Type            string `json:"type"`
	Value           string `json:"value"`
	Units           string `json:"units"`
	MedicationBrand string `json:"medicationBrand"`
	OccurredAt      string `json:"occurredAt"`
}

func (s *Server) handleCreateEntry(c echo.Context) error {
	patient, status := s.ownedPatient(c)
	if patient == nil {
		return c.NoContent(status)
	}

	var body createEntryRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	occurredAt, err := time.Parse(time.RFC3339, body.OccurredAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "occurredAt must be RFC 3339"})
	}

	entry := &domain.Entry{
		PatientID:       patient.ID,
		Type:            domain.EntryType(body.Type),
		Value:           body.Value,
		Units:           body.Units,
		MedicationBrand: body.MedicationBrand,
		OccurredAt:      occurredAt,
	}
	if err := s.entries.Create(c.Request().Context(), entry); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleListRecommendations(c echo.Context) error {
	patient, status := s.ownedPatient(c)
	if patient == nil {
		return c.NoContent(status)
	}
	recs, err := s.recStore.ListByPatient(c.Request().Context(), patient.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list recommendations"})
	}
	return c.JSON(http.StatusOK, recs)
}
