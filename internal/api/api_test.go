package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dieworks-backend/config"
	"dieworks-backend/internal/model"
	"dieworks-backend/internal/mw"
	"dieworks-backend/internal/storage"
	"dieworks-backend/internal/store"
	"dieworks-backend/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{objects: map[string][]byte{}}
}

func (f *fakeFiles) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *fakeFiles) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) Dispatch(operationID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, operationID)
}

func (n *recordingNotifier) dispatched() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.ids...)
}

const testSecret = "panel-test-secret"

// testServer is the full router over an in-memory database seeded with a
// saw, a lathe, a two-step mandrel route, a one-step plate route, a 250mm
// bar, an extrusion die type and an operator badge 04A1B2.
type testServer struct {
	t        *testing.T
	ctx      context.Context
	router   *gin.Engine
	st       store.Store
	files    *fakeFiles
	notifier *recordingNotifier

	saw, lathe     *model.WorkCenter
	mandrel, plate *model.ComponentType
	bar250         *model.SteelStockItem
	dieType        *model.DieType
	operator       *model.Operator
}

func newTestServer(t *testing.T, files storage.ObjectStore) *testServer {
	t.Helper()
	st := store.NewGormStore(testutil.NewDB(t), nil)
	notifier := &recordingNotifier{}
	h := NewHandler(Deps{
		Store:    st,
		Files:    files,
		Resolver: storage.Resolver{PublicBaseURL: "https://files.example", DXFViewerURL: "https://viewer.example/"},
		Notifier: notifier,
		Auth:     config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
		Log:      zap.NewNop(),
	})
	limiter := mw.NewIPRateLimiter(rate.Inf, 1, time.Minute)
	srv := &testServer{
		t:        t,
		ctx:      context.Background(),
		router:   NewRouter(h, config.ServerConfig{CacheTTL: time.Minute}, limiter, zap.NewNop()),
		st:       st,
		notifier: notifier,
	}
	if ff, ok := files.(*fakeFiles); ok {
		srv.files = ff
	}
	srv.seed()
	return srv
}

func (s *testServer) seed() {
	t, ctx, st := s.t, s.ctx, s.st
	var err error
	s.saw, err = st.CreateWorkCenter(ctx, store.MasterDataInput{Code: "SAW", Name: "Band saw"})
	require.NoError(t, err)
	s.lathe, err = st.CreateWorkCenter(ctx, store.MasterDataInput{Code: "LATHE", Name: "CNC lathe"})
	require.NoError(t, err)

	s.mandrel, err = st.CreateComponentType(ctx, store.MasterDataInput{Code: "MAN", Name: "Mandrel"})
	require.NoError(t, err)
	_, err = st.ReplaceComponentTypeSteps(ctx, s.mandrel.ID, []store.StepInput{
		{SequenceNumber: 10, Name: "Saw", WorkCenterID: s.saw.ID, EstimatedMinutes: 15},
		{SequenceNumber: 20, Name: "Turning", WorkCenterID: s.lathe.ID, EstimatedMinutes: 90},
	})
	require.NoError(t, err)
	s.plate, err = st.CreateComponentType(ctx, store.MasterDataInput{Code: "PLT", Name: "Plate"})
	require.NoError(t, err)
	_, err = st.ReplaceComponentTypeSteps(ctx, s.plate.ID, []store.StepInput{
		{SequenceNumber: 10, Name: "Saw", WorkCenterID: s.saw.ID, EstimatedMinutes: 10},
	})
	require.NoError(t, err)

	s.bar250, err = st.CreateStockItem(ctx, store.StockItemInput{Alloy: "1.2343", DiameterMm: 250})
	require.NoError(t, err)
	s.dieType, err = st.CreateDieType(ctx, store.MasterDataInput{Code: "EXT", Name: "Extrusion"})
	require.NoError(t, err)

	s.operator, err = st.CreateOperator(ctx, store.OperatorInput{Name: "Ayla", RFIDCode: "04A1B2"})
	require.NoError(t, err)
	_, err = st.SetOperatorWorkCenters(ctx, s.operator.ID, []int64{s.saw.ID, s.lathe.ID})
	require.NoError(t, err)
}

func (s *testServer) do(method, path string, body any, header ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, path, r)
	require.NoError(s.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// draftDie creates die 1100 with a 420mm mandrel and an 85mm plate, both on the 250mm bar.
func (s *testServer) draftDie(number string) model.Die {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/dies", gin.H{
		"die_number": number, "die_type_id": s.dieType.ID, "die_diameter_mm": 250, "total_package_length_mm": 505,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	die := decode[model.Die](s.t, w)

	for _, comp := range []gin.H{
		{"component_type_id": s.mandrel.ID, "steel_stock_item_id": s.bar250.ID, "package_length_mm": 420},
		{"component_type_id": s.plate.ID, "steel_stock_item_id": s.bar250.ID, "package_length_mm": 85},
	} {
		w = s.do(http.MethodPost, "/api/dies/"+itoa(die.ID)+"/components", comp)
		require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	}
	return die
}

func (s *testServer) productionOrder(die model.Die) model.ProductionOrder {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/production-orders", gin.H{"die_id": die.ID})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.ProductionOrder](s.t, w)
}

func (s *testServer) panelToken() string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/panel/login", gin.H{"rfid_code": "04A1B2"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct {
		Token string `json:"token"`
	}](s.t, w).Token
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
