package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
)

type analyticsServiceStub struct {
	service.AnalyticsService
	response dto.AnalyticsResponse
}

func (s analyticsServiceStub) Analytics(context.Context, policy.Actor, *uint) (dto.AnalyticsResponse, error) {
	return s.response, nil
}

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func validateResponse(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestPublicTrackingContract(t *testing.T) {
	schema := compileSchema(t, "public_tracking.schema.json")
	app := trackingApp(&trackingMessageStub{}, &uploadServiceStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/track/TRK12345678", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validateResponse(t, schema, resp)
}

func TestAnalyticsContract(t *testing.T) {
	schema := compileSchema(t, "analytics.schema.json")

	today := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	volume := make([]dto.DailyVolumePoint, 0, 30)
	for i := 29; i >= 0; i-- {
		volume = append(volume, dto.DailyVolumePoint{Date: today.AddDate(0, 0, -i).Format("2006-01-02")})
	}
	volume[29].Count = 4

	adminID := uint(2)
	stub := analyticsServiceStub{response: dto.AnalyticsResponse{
		Scope:       fmt.Sprintf("admin-%d", adminID),
		AdminID:     &adminID,
		DailyVolume: volume,
		StatusDistribution: []dto.StatusSlice{
			{Status: models.ShipmentStatusPending, Count: 1},
			{Status: models.ShipmentStatusDelivered, Count: 3},
		},
		TopDestinations: []dto.DestinationPoint{{Destination: "Los Angeles", Count: 3}, {Destination: "Unknown", Count: 1}},
		GeneratedAt:     time.Now().UTC(),
	}}

	app := fiber.New()
	NewAnalyticsHandler(stub, zerolog.Nop()).Register(app.Group("/api/admin", withActor(1, models.RoleSuperAdmin)))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/analytics?viewAs=2", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validateResponse(t, schema, resp)
}
