package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/poyrazK/gatekeep/internal/core/domain"
	"github.com/poyrazK/gatekeep/internal/testutil"
)

func TestAuditRecorder_PersistsEntries(t *testing.T) {
	repo := new(testutil.MockRepo)
	repo.On("SaveRequestLog", mock.AnythingOfType("*domain.RequestLog")).Return(nil).Times(3)

	rec := NewAuditRecorder(repo, nil, 16)
	for i := 0; i < 3; i++ {
		rec.Record(&domain.RequestLog{Endpoint: "/todos", Method: "GET", Identifier: "1.2.3.4", Status: 200})
	}
	rec.Close()

	repo.AssertExpectations(t)
}

func TestAuditRecorder_FillsDefaults(t *testing.T) {
	repo := new(testutil.MockRepo)
	var saved *domain.RequestLog
	repo.On("SaveRequestLog", mock.AnythingOfType("*domain.RequestLog")).Run(func(args mock.Arguments) {
		saved = args.Get(0).(*domain.RequestLog)
	}).Return(nil)

	rec := NewAuditRecorder(repo, nil, 16)
	rec.Record(&domain.RequestLog{Endpoint: "/todos", Status: 429})
	rec.Close()

	if saved == nil {
		t.Fatal("entry was not persisted")
	}
	if saved.ID == "" {
		t.Error("expected an id to be minted")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("expected created_at to be stamped")
	}
	if saved.UserID != nil {
		t.Error("identity must stay null when never resolved")
	}
}

// A failing store must not panic, block, or surface an error; the
// entry falls through to the fallback sink.
func TestAuditRecorder_StoreFailureIsSwallowed(t *testing.T) {
	repo := new(testutil.MockRepo)
	repo.On("SaveRequestLog", mock.AnythingOfType("*domain.RequestLog")).Return(errors.New("disk full"))

	rec := NewAuditRecorder(repo, nil, 16)
	done := make(chan struct{})
	go func() {
		rec.Record(&domain.RequestLog{Endpoint: "/todos"})
		rec.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record/Close blocked on store failure")
	}
}

func TestAuditRecorder_FullBufferDropsNotBlocks(t *testing.T) {
	repo := new(testutil.MockRepo)
	// Hold the writer so the buffer fills.
	release := make(chan struct{})
	repo.On("SaveRequestLog", mock.AnythingOfType("*domain.RequestLog")).Run(func(mock.Arguments) {
		<-release
	}).Return(nil)

	rec := NewAuditRecorder(repo, nil, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			rec.Record(&domain.RequestLog{Endpoint: "/todos"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
	close(release)
	rec.Close()
}
