package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dosewise/dosewise/internal/domain"
	"github.com/dosewise/dosewise/internal/logger"
	"github.com/dosewise/dosewise/internal/stream"
	"github.com/dosewise/dosewise/internal/stream/state"
	"github.com/dosewise/dosewise/internal/utils"
)

// ModelGateway is the single seam to the external reasoning model.
type ModelGateway interface {
	GenerateRecommendation(ctx context.Context, prompt string) (string, error)
}

// Notifier pushes an out-of-band message to the caregiver when a
// recommendation completes. Optional; failures never affect the pipeline.
type Notifier interface {
	RecommendationReady(chatID int64, patientName string, rec *domain.Recommendation)
}

// Request is one recommendation request as received from the transport
// layer, already authenticated to CallerID.
type Request struct {
	PatientID  uint
	CallerID   uint
	TargetTime time.Time
	Timezone   string
}

// Result is the terminal payload of a successful pipeline run.
type Result struct {
	*domain.Recommendation
	TargetTime    string `json:"targetTime"`
	SafetyWarning string `json:"safetyWarning,omitempty"`
}

// RecommendationService runs the dose recommendation pipeline: gather and
// gate history, build the prompt, call the model, parse, persist, stream
// progress throughout.
type RecommendationService struct {
	patients        domain.PatientStore
	entries         domain.EntryStore
	recommendations domain.RecommendationStore
	users           domain.UserStore
	history         *HistoryService
	builder         *PromptBuilder
	gateway         ModelGateway
	guard           state.Guard
	notifier        Notifier
	safetyThreshold float64
	now             func() time.Time
}

// NewRecommendationService wires the pipeline. users and notifier may be
// nil; the completion notification is skipped then.
func NewRecommendationService(
	patients domain.PatientStore,
	entries domain.EntryStore,
	recommendations domain.RecommendationStore,
	users domain.UserStore,
	builder *PromptBuilder,
	gateway ModelGateway,
	guard state.Guard,
	notifier Notifier,
	safetyThreshold float64,
) *RecommendationService {
	return &RecommendationService{
		patients:        patients,
		entries:         entries,
		recommendations: recommendations,
		users:           users,
		history:         NewHistoryService(entries),
		builder:         builder,
		gateway:         gateway,
		guard:           guard,
		notifier:        notifier,
		safetyThreshold: safetyThreshold,
		now:             time.Now,
	}
}

// Generate runs the full pipeline for one request, emitting progress and
// exactly one terminal event on st. Precondition failures terminate the
// stream with a precise error; model and parse failures degrade to a
// conservative low-confidence result; only a persistence failure turns a
// completed model call into a terminal error.
func (s *RecommendationService) Generate(ctx context.Context, req Request, st *stream.Stream) {
	ok, err := s.guard.Acquire(ctx, req.PatientID)
	if err != nil {
		logger.Error("In-flight guard unavailable", "patient_id", req.PatientID, "error", err)
		st.Fail("failed to start recommendation request")
		return
	}
	if !ok {
		st.Fail("a recommendation request is already running for this patient")
		return
	}
	// Release must survive client disconnects, so use a detached context.
	defer s.guard.Release(context.WithoutCancel(ctx), req.PatientID)

	st.Progress(stream.StageGatheringData, "Collecting patient history")

	patient, err := s.patients.FindByID(ctx, req.PatientID)
	if err != nil || patient == nil {
		st.Fail("patient not found")
		return
	}
	// Ownership was checked by the auth layer already; re-verify here so a
	// transport bug can never produce a recommendation for someone else's
	// patient.
	if patient.OwnerID != req.CallerID {
		st.Fail("patient does not belong to the requesting user")
		return
	}

	now := s.now()
	window, err := s.history.SelectWindow(ctx, req.PatientID, now)
	if err != nil {
		logger.Error("Failed to load patient history", "patient_id", req.PatientID, "error", err)
		st.Fail("failed to load patient history")
		return
	}
	if !window.Sufficient {
		st.Fail(window.Message)
		return
	}

	st.Progress(stream.StageBuildingPrompt,
		fmt.Sprintf("Found %d entries in the last 72 hours", len(window.Recent)+len(window.Older)))

	loc := utils.LoadLocation(req.Timezone)
	targetTime := req.TargetTime
	if targetTime.IsZero() {
		targetTime = now
	}

	pattern := AnalyzeMedicationPatterns(window.InsulinEntries(), loc)
	prompt := s.builder.Build(PromptInput{
		Patient:         patient,
		Recent:          window.Recent,
		Older:           window.Older,
		TargetTime:      targetTime,
		Location:        loc,
		PatternAnalysis: pattern,
		Now:             now,
	})

	st.Progress(stream.StageWaitingForModel, "Requesting dose suggestion from the model")

	// The model call and everything after it run on a detached context: a
	// dropped connection stops emission, not the work, because the
	// recommendation is persisted either way.
	workCtx := context.WithoutCancel(ctx)
	raw, gatewayErr := s.gateway.GenerateRecommendation(workCtx, prompt)

	st.Progress(stream.StageParsingResponse, "Processing model response")

	var parsed *ParsedRecommendation
	if gatewayErr != nil {
		parsed = FallbackRecommendation(gatewayErr)
		raw = fmt.Sprintf("model call failed: %v", gatewayErr)
	} else {
		parsed = ParseModelResponse(raw)
	}

	rec := &domain.Recommendation{
		PatientID:             patient.ID,
		Prompt:                prompt,
		RawResponse:           raw,
		DoseUnits:             parsed.DoseUnits,
		MedicationName:        parsed.MedicationName,
		Reasoning:             parsed.Reasoning,
		SafetyNotes:           parsed.SafetyNotes,
		Confidence:            parsed.Confidence,
		RecommendedMonitoring: parsed.RecommendedMonitoring,
		TargetTime:            targetTime,
	}
	if err := s.recommendations.Create(workCtx, rec); err != nil {
		logger.Error("Failed to save recommendation", "patient_id", patient.ID, "error", err)
		st.Fail("failed to save recommendation")
		return
	}

	result := Result{
		Recommendation: rec,
		TargetTime:     targetTime.Format(time.RFC3339),
		SafetyWarning:  s.safetyWarning(workCtx, patient.ID, parsed),
	}
	st.Result(result)

	s.notifyCompletion(workCtx, patient, rec)
}

// safetyWarning compares the new dose to the most recent recorded insulin
// dose. Advisory only.
func (s *RecommendationService) safetyWarning(ctx context.Context, patientID uint, parsed *ParsedRecommendation) string {
	if parsed.DoseUnits == nil {
		return ""
	}
	prior, err := s.entries.LastInsulinEntry(ctx, patientID)
	if err != nil || prior == nil {
		return ""
	}
	priorDose, err := strconv.ParseFloat(strings.TrimSpace(prior.Value), 64)
	if err != nil {
		return ""
	}
	warning, _ := CheckDoseChange(*parsed.DoseUnits, priorDose, s.safetyThreshold)
	return warning
}

func (s *RecommendationService) notifyCompletion(ctx context.Context, patient *domain.Patient, rec *domain.Recommendation) {
	if s.notifier == nil || s.users == nil {
		return
	}
	owner, err := s.users.FindByID(ctx, patient.OwnerID)
	if err != nil || owner == nil || owner.TelegramChatID == 0 {
		return
	}
	s.notifier.RecommendationReady(owner.TelegramChatID, patient.Name, rec)
}
