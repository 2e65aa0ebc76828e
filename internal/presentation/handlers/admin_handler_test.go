package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/application/services"
	"github.com/bimakw/volume-tracker/internal/config"
	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/testutil"
)

func setupAdminHandlerTest(t *testing.T) (http.Handler, *testutil.MockTokenRepository, *testutil.MockVolumeFetcher, *services.VolumeService) {
	tokenRepo := testutil.NewMockTokenRepository()
	fetcher := testutil.NewMockVolumeFetcher()
	logger := zap.NewNop()

	volume := services.NewVolumeService(tokenRepo, fetcher, nil, testClock(), config.ScheduleConfig{}, nil, logger)
	t.Cleanup(volume.Close)

	handler := NewAdminHandler(services.NewAdminService(testSecret), volume, logger)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, tokenRepo, fetcher, volume
}

func TestAdminHandler_Verify(t *testing.T) {
	r, _, _, _ := setupAdminHandlerTest(t)

	tests := []struct {
		body string
		want bool
	}{
		{`{"password":"s3cret"}`, true},
		{`{"password":"wrong"}`, false},
		{`{}`, false},
	}

	for _, tt := range tests {
		rec := doRequest(r, http.MethodPost, "/admin/verify", tt.body)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", tt.body, rec.Code)
			continue
		}

		var response VerifyResponse
		json.NewDecoder(rec.Body).Decode(&response)
		if response.IsAdmin != tt.want {
			t.Errorf("%s: expected isAdmin %v, got %v", tt.body, tt.want, response.IsAdmin)
		}
	}
}

func TestAdminHandler_TriggerUpdate_Unauthorized(t *testing.T) {
	r, _, fetcher, volume := setupAdminHandlerTest(t)

	rec := doRequest(r, http.MethodPost, "/admin/trigger-update", `{"adminPassword":"wrong"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if volume.ActiveRun() != nil || len(fetcher.Calls) != 0 {
		t.Error("expected no run started")
	}
}

func TestAdminHandler_TriggerUpdate(t *testing.T) {
	r, tokenRepo, fetcher, volume := setupAdminHandlerTest(t)
	tokenRepo.AddToken(testutil.CreateTestToken())

	release := make(chan struct{})
	fetcher.FetchQuoteFunc = func(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
		<-release
		return &entities.VolumeQuote{VolumeToday: testutil.DecPtr("1")}, nil
	}

	rec := doRequest(r, http.MethodPost, "/admin/trigger-update", `{"adminPassword":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var first TriggerResponse
	json.NewDecoder(rec.Body).Decode(&first)
	if !first.Success || first.Message != "Daily volume update started" || first.Run.ID == 0 {
		t.Errorf("unexpected response: %+v", first)
	}

	rec = doRequest(r, http.MethodPost, "/admin/trigger-update", `{"adminPassword":"s3cret"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rec.Code)
	}

	var second TriggerResponse
	json.NewDecoder(rec.Body).Decode(&second)
	if second.Success || second.Run.ID != first.Run.ID {
		t.Errorf("expected active run %d echoed, got %+v", first.Run.ID, second)
	}

	close(release)

	deadline := time.After(2 * time.Second)
	for volume.LastRun() == nil {
		select {
		case <-deadline:
			t.Fatal("triggered run did not finish")
		case <-time.After(5 * time.Millisecond):
		}
	}

	rec = doRequest(r, http.MethodGet, "/admin/last-run", "")
	var status LastRunResponse
	json.NewDecoder(rec.Body).Decode(&status)
	if status.LastRun == nil || status.LastRun.Updated != 1 || status.ActiveRun != nil {
		t.Errorf("unexpected last run: %+v", status)
	}
}
