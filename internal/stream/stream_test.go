package stream_test

import (
	"errors"
	"testing"

	"github.com/dosewise/dosewise/internal/stream"
)

// recordingWriter captures every event; failAfter > 0 makes writes fail
// after that many events to simulate a dropped connection.
type recordingWriter struct {
	events    []stream.Event
	failAfter int
}

func (w *recordingWriter) WriteEvent(event stream.Event) error {
	if w.failAfter > 0 && len(w.events) >= w.failAfter {
		return errors.New("connection closed")
	}
	w.events = append(w.events, event)
	return nil
}

var allStages = []stream.Stage{
	stream.StageGatheringData,
	stream.StageBuildingPrompt,
	stream.StageWaitingForModel,
	stream.StageParsingResponse,
}

func TestFullRunEmitsStagesInOrder(t *testing.T) {
	w := &recordingWriter{}
	s := stream.New(w)

	for _, stage := range allStages {
		if err := s.Progress(stage, ""); err != nil {
			t.Fatalf("progress %s: %v", stage, err)
		}
	}
	if err := s.Result(map[string]any{"doseUnits": 6}); err != nil {
		t.Fatalf("result: %v", err)
	}

	if len(w.events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(w.events))
	}
	for i, stage := range allStages {
		if w.events[i].Type != "progress" || w.events[i].Step != stage {
			t.Fatalf("event %d: expected progress %s, got %+v", i, stage, w.events[i])
		}
	}
	if w.events[4].Type != "result" {
		t.Fatalf("expected terminal result, got %+v", w.events[4])
	}
}

func TestNoEventsAfterTerminal(t *testing.T) {
	w := &recordingWriter{}
	s := stream.New(w)
	s.Progress(stream.StageGatheringData, "")
	if err := s.Fail("insufficient history"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	if err := s.Progress(stream.StageBuildingPrompt, ""); !errors.Is(err, stream.ErrClosed) {
		t.Fatalf("expected ErrClosed after terminal, got %v", err)
	}
	if err := s.Result(nil); !errors.Is(err, stream.ErrClosed) {
		t.Fatalf("expected ErrClosed for second terminal, got %v", err)
	}
	if err := s.Fail("again"); !errors.Is(err, stream.ErrClosed) {
		t.Fatalf("expected ErrClosed for duplicate fail, got %v", err)
	}
	if len(w.events) != 2 {
		t.Fatalf("expected exactly 2 events, got %d", len(w.events))
	}
}

func TestStageSkipRejected(t *testing.T) {
	s := stream.New(&recordingWriter{})
	if err := s.Progress(stream.StageWaitingForModel, ""); !errors.Is(err, stream.ErrStageOrder) {
		t.Fatalf("expected ErrStageOrder for skipped stage, got %v", err)
	}
}

func TestBackwardTransitionRejected(t *testing.T) {
	s := stream.New(&recordingWriter{})
	s.Progress(stream.StageGatheringData, "")
	s.Progress(stream.StageBuildingPrompt, "")
	if err := s.Progress(stream.StageGatheringData, ""); !errors.Is(err, stream.ErrStageOrder) {
		t.Fatalf("expected ErrStageOrder for backward transition, got %v", err)
	}
}

func TestCompleteNotReachableViaProgress(t *testing.T) {
	s := stream.New(&recordingWriter{})
	for _, stage := range allStages {
		s.Progress(stage, "")
	}
	if err := s.Progress(stream.StageComplete, ""); !errors.Is(err, stream.ErrStageOrder) {
		t.Fatalf("complete is only reachable via Result, got %v", err)
	}
}

func TestErrorReachableFromAnyStage(t *testing.T) {
	for advance := 0; advance <= len(allStages); advance++ {
		w := &recordingWriter{}
		s := stream.New(w)
		for i := 0; i < advance; i++ {
			s.Progress(allStages[i], "")
		}
		if err := s.Fail("boom"); err != nil {
			t.Fatalf("fail after %d stages: %v", advance, err)
		}
		last := w.events[len(w.events)-1]
		if last.Type != "error" || last.Error != "boom" {
			t.Fatalf("expected terminal error event, got %+v", last)
		}
	}
}

func TestDisconnectStopsEmissionWithoutBreakingPipeline(t *testing.T) {
	w := &recordingWriter{failAfter: 1}
	s := stream.New(w)
	if err := s.Progress(stream.StageGatheringData, ""); err != nil {
		t.Fatalf("progress: %v", err)
	}
	// The transport is gone; the pipeline keeps advancing without error.
	if err := s.Progress(stream.StageBuildingPrompt, ""); err != nil {
		t.Fatalf("progress after disconnect must not fail the pipeline: %v", err)
	}
	if err := s.Result(nil); err != nil {
		t.Fatalf("result after disconnect must not fail the pipeline: %v", err)
	}
	if len(w.events) != 1 {
		t.Fatalf("expected no writes after transport failure, got %d events", len(w.events))
	}
	if !s.Terminated() {
		t.Fatalf("stream should still reach the terminated state")
	}
}
