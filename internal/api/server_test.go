package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bcbp_parser/internal/bcbp"
	"bcbp_parser/internal/metrics"
	"bcbp_parser/internal/storage"
	"bcbp_parser/internal/storage/mocks"
)

const (
	passMandatory = "M1DESMARAIS/LUC       EABC123 YULFRAAC 0834 326J001A0025 100"
	passIATA      = "M1DESMARAIS/LUC       EABC123 YULFRAAC 0834 326J001A0025 100^100"
)

func post(t *testing.T, h http.Handler, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(nil, Config{Port: 8081, AuthEnabled: true, APIKeys: []string{"k"}}, nil, nil)

	rec := get(server.Router(), "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, false, resp["store"])
}

func TestAuthMiddleware(t *testing.T) {
	server := NewServer(nil, Config{
		Port:        8081,
		AuthEnabled: true,
		APIKeys:     []string{"test-key-123", "another-key"},
	}, nil, nil)
	router := server.Router()

	tests := []struct {
		name       string
		apiKey     string
		keyHeader  string
		wantStatus int
	}{
		{
			name:       "no key",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid key",
			apiKey:     "wrong-key",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "valid key in X-API-Key",
			apiKey:     "test-key-123",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid key in Bearer",
			apiKey:     "Bearer another-key",
			keyHeader:  "Authorization",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header []string
			if tt.keyHeader != "" {
				header = []string{tt.keyHeader, tt.apiKey}
			}
			rec := post(t, router, "/api/v1/decode", DecodeRequest{Data: passMandatory}, header...)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthQueryParam(t *testing.T) {
	server := NewServer(nil, Config{AuthEnabled: true, APIKeys: []string{"query-key"}}, nil, nil)

	rec := post(t, server.Router(), "/api/v1/decode?api_key=query-key", DecodeRequest{Data: passMandatory})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDecode(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	router := NewServer(nil, Config{}, m, nil).Router()

	rec := post(t, router, "/api/v1/decode", DecodeRequest{Data: passIATA})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DecodeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Pass)
	assert.Equal(t, "DESMARAIS", resp.Pass.LastName)
	assert.Equal(t, "LUC", resp.Pass.FirstName)
	require.Len(t, resp.Pass.Legs, 1)
	assert.Equal(t, "ABC123", resp.Pass.Legs[0].PNR)
	assert.Equal(t, "YUL", resp.Pass.Legs[0].From)
	assert.Equal(t, "1", resp.Pass.SecurityDataKind)
	assert.Equal(t, passMandatory, resp.Mandatory)

	rec = get(router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_scans_total{outcome="ok",parser="boarding_pass"} 1`)
}

func TestDecodeCBOR(t *testing.T) {
	router := NewServer(nil, Config{}, nil, nil).Router()

	rec := post(t, router, "/api/v1/decode", DecodeRequest{Data: passMandatory}, "Accept", "application/cbor")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/cbor", rec.Header().Get("Content-Type"))

	var resp DecodeResponse
	require.NoError(t, cbor.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "DESMARAIS", resp.Pass.LastName)
}

func TestDecodeFailure(t *testing.T) {
	router := NewServer(nil, Config{}, nil, nil).Router()

	tests := []struct {
		name       string
		data       string
		wantStatus int
		wantKind   string
		wantOffset int
	}{
		{"trailing data", passIATA + "X", http.StatusUnprocessableEntity, "trailing_data", 64},
		{"too short", "M1DESMARAIS", http.StatusUnprocessableEntity, "mandatory_data_size", -1},
		{"empty", "", http.StatusBadRequest, "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, router, "/api/v1/decode", DecodeRequest{Data: tt.data})
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var resp DecodeErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.wantKind, resp.Kind)
			if tt.wantOffset >= 0 {
				require.NotNil(t, resp.Offset)
				assert.Equal(t, tt.wantOffset, *resp.Offset)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decode", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEncode(t *testing.T) {
	router := NewServer(nil, Config{}, nil, nil).Router()

	r, err := bcbp.Decode(passIATA)
	require.NoError(t, err)

	rec := post(t, router, "/api/v1/encode", EncodeRequest{Record: r})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EncodeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, passMandatory, resp.Data)

	rec = post(t, router, "/api/v1/encode", EncodeRequest{Record: r, Conditional: true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	again, err := bcbp.Decode(resp.Data)
	require.NoError(t, err)
	assert.Equal(t, r.LastName, again.LastName)
	assert.Equal(t, r.Legs[0].FlightNumber, again.Legs[0].FlightNumber)

	rec = post(t, router, "/api/v1/encode", EncodeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, router, "/api/v1/encode", EncodeRequest{Record: &bcbp.Record{LastName: "DOE"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Contains(t, errResp["error"], "no legs")
}

func TestCreatePass(t *testing.T) {
	store := new(mocks.MockPassStore)
	store.On("SavePass", mock.Anything, mock.MatchedBy(func(p storage.SavePassParams) bool {
		return p.RawData == passMandatory && p.Source == "gate-12" && p.Record != nil && p.Record.LastName == "DESMARAIS"
	})).Return(int64(7), nil).Once()

	router := NewServer(store, Config{}, nil, nil).Router()

	rec := post(t, router, "/api/v1/passes", DecodeRequest{Data: passMandatory, Source: "gate-12"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp DecodeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(7), resp.ID)
	store.AssertExpectations(t)
}

func TestCreatePassErrors(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		rec := post(t, NewServer(nil, Config{}, nil, nil).Router(), "/api/v1/passes", DecodeRequest{Data: passMandatory})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("decode failure is not stored", func(t *testing.T) {
		store := new(mocks.MockPassStore)
		rec := post(t, NewServer(store, Config{}, nil, nil).Router(), "/api/v1/passes", DecodeRequest{Data: "M1DESMARAIS"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		store.AssertNotCalled(t, "SavePass", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(mocks.MockPassStore)
		store.On("SavePass", mock.Anything, mock.Anything).Return(int64(0), errors.New("connection refused"))
		rec := post(t, NewServer(store, Config{}, nil, nil).Router(), "/api/v1/passes", DecodeRequest{Data: passMandatory})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetPassesByPNR(t *testing.T) {
	r, err := bcbp.Decode(passMandatory)
	require.NoError(t, err)
	seen := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

	store := new(mocks.MockPassStore)
	store.On("GetPassesByPNR", mock.Anything, "ABC123").Return([]storage.StoredPass{
		{ID: 1, RawData: passMandatory, FirstSeen: seen, LastSeen: seen, ScanCount: 2, Record: r},
	}, nil)
	store.On("GetPassesByPNR", mock.Anything, "NONE").Return([]storage.StoredPass{}, nil)

	router := NewServer(store, Config{}, nil, nil).Router()

	rec := get(router, "/api/v1/passes/abc123")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp []PassResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 2, resp[0].ScanCount)
	assert.Equal(t, "2024-01-15T12:00:00Z", resp[0].FirstSeen)
	assert.Equal(t, "YUL", resp[0].Pass.Legs[0].From)

	assert.Equal(t, http.StatusNotFound, get(router, "/api/v1/passes/none").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/api/v1/passes/TOOLONGPNR").Code)
}

func TestGetPass(t *testing.T) {
	store := new(mocks.MockPassStore)
	store.On("GetPass", mock.Anything, int64(3)).Return(&storage.StoredPass{ID: 3, RawData: passMandatory}, nil)
	store.On("GetPass", mock.Anything, int64(4)).Return(nil, nil)

	router := NewServer(store, Config{}, nil, nil).Router()

	rec := get(router, "/api/v1/pass/3")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp PassResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, passMandatory, resp.Data)

	assert.Equal(t, http.StatusNotFound, get(router, "/api/v1/pass/4").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/api/v1/pass/abc").Code)
}

func TestCORSPreflight(t *testing.T) {
	router := NewServer(nil, Config{}, nil, nil).Router()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/decode", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
