package purchasing

import (
	"context"
	"sync"
	"testing"
	"time"

	"production_queue/internal/apperr"
	"production_queue/internal/model"
	"production_queue/internal/production"
	"production_queue/internal/queue"
	"production_queue/internal/store"
	"production_queue/internal/store/storetest"
	rediskey "production_queue/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const stream = "po_events"

type harness struct {
	store   *store.Store
	fixture storetest.Fixture
	rdb     *rd.Client
	svc     *Service
	rec     *Reconciler
}

func newHarness(t *testing.T) harness {
	t.Helper()
	s := storetest.New(t)
	f := storetest.Seed(t, s)
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	outbox := queue.NewStreamOutbox(rdb, stream)
	return harness{
		store:   s,
		fixture: f,
		rdb:     rdb,
		svc:     NewService(s, rdb, outbox, 30*time.Second, production.Options{}, zerolog.Nop()),
		rec:     NewReconciler(s, rdb, outbox, time.Hour, zerolog.Nop()),
	}
}

func (h harness) poCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := h.store.DB().Model(&model.PurchaseOrder{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCreateForShortfall_DefaultsAndDuplicateGuard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.RiceID})
	if err != nil {
		t.Fatalf("CreateForShortfall: %v", err)
	}
	if res.AlreadyExists {
		t.Fatal("Expected a new purchase order")
	}
	if res.Vendor.Name != "Fresh Farms" {
		t.Errorf("Expected default supplier Fresh Farms, got %s", res.Vendor.Name)
	}
	// 537.5 g of rice is 0.5375 kg, rounded up to 1 kg
	if !res.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected quantity 1, got %s", res.Quantity)
	}
	if !res.PurchaseOrder.TotalAmount.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Expected amount 2.5, got %s", res.PurchaseOrder.TotalAmount)
	}

	again, err := h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.RiceID, VendorName: "fresh farms"})
	if err != nil {
		t.Fatalf("CreateForShortfall again: %v", err)
	}
	if !again.AlreadyExists || again.PurchaseOrder.ID != res.PurchaseOrder.ID {
		t.Errorf("Expected the existing PO back, got %+v", again)
	}
	if n := h.poCount(t); n != 1 {
		t.Errorf("Expected 1 purchase order, got %d", n)
	}

	created, err := h.svc.Created(ctx)
	if err != nil {
		t.Fatalf("Created: %v", err)
	}
	if created[h.fixture.RiceID] != res.PurchaseOrder.ID {
		t.Errorf("Expected rice in created set, got %v", created)
	}
	if n, _ := h.rdb.XLen(ctx, stream).Result(); n != 1 {
		t.Errorf("Expected one outbox event, got %d", n)
	}
}

func TestCreateForShortfall_CustomQuantity(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.CreateForShortfall(context.Background(), CreateRequest{
		IngredientID: h.fixture.ChickenID,
		Quantity:     decimal.NewNullDecimal(decimal.NewFromInt(2000)),
	})
	if err != nil {
		t.Fatalf("CreateForShortfall: %v", err)
	}
	if !res.Quantity.Equal(decimal.NewFromInt(2000)) || !res.PurchaseOrder.TotalAmount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected 2000 units for 40, got %s for %s", res.Quantity, res.PurchaseOrder.TotalAmount)
	}
}

func TestCreateForShortfall_Rejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	testCases := []struct {
		name string
		req  CreateRequest
		want apperr.Kind
	}{
		{"missing ingredient id", CreateRequest{}, apperr.Validation},
		{"unknown ingredient", CreateRequest{IngredientID: "nope"}, apperr.NotFound},
		{"unknown vendor", CreateRequest{IngredientID: h.fixture.RiceID, VendorName: "Nobody"}, apperr.NotFound},
		{"no supplier", CreateRequest{IngredientID: h.fixture.FishOilID}, apperr.Validation},
		{"zero quantity", CreateRequest{IngredientID: h.fixture.RiceID, Quantity: decimal.NewNullDecimal(decimal.Zero)}, apperr.Validation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.CreateForShortfall(ctx, tc.req)
			if apperr.KindOf(err) != tc.want {
				t.Errorf("Expected %s, got %v", tc.want, err)
			}
		})
	}
	if n := h.poCount(t); n != 0 {
		t.Errorf("Expected no purchase orders, got %d", n)
	}
}

func TestCreateForShortfall_LockHeld(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	lock, err := rediskey.AcquirePOLock(ctx, h.rdb, h.fixture.VendorID, h.fixture.RiceID, time.Minute)
	if err != nil {
		t.Fatalf("AcquirePOLock: %v", err)
	}
	defer lock.Release(ctx)

	_, err = h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.RiceID})
	if apperr.KindOf(err) != apperr.Conflict {
		t.Errorf("Expected conflict while locked, got %v", err)
	}
}

func TestCreateForShortfall_ConcurrentCreatesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.RiceID})
			if err == nil && !res.AlreadyExists {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("Expected exactly one create, got %d", created)
	}
	if n := h.poCount(t); n != 1 {
		t.Errorf("Expected 1 purchase order, got %d", n)
	}
}

func TestReconcileOnce_ReleasesCancelledAndMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rice, err := h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.RiceID})
	if err != nil {
		t.Fatalf("create rice: %v", err)
	}
	chicken, err := h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.ChickenID})
	if err != nil {
		t.Fatalf("create chicken: %v", err)
	}
	if err := rediskey.MarkPOCreated(ctx, h.rdb, "ghost-vendor", "ghost-ingredient", "ghost-po"); err != nil {
		t.Fatalf("MarkPOCreated: %v", err)
	}
	if _, err := h.store.UpdatePOStatusByNumber(ctx, rice.PurchaseOrder.PONumber, model.POCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	res, err := h.rec.ReconcileOnce(ctx)
	if err != nil {
		t.Fatalf("ReconcileOnce: %v", err)
	}
	if res.Checked != 3 || len(res.Released) != 2 {
		t.Fatalf("Expected 3 checked and 2 released, got %+v", res)
	}

	set, _ := h.svc.Created(ctx)
	if len(set) != 1 || set[h.fixture.ChickenID] != chicken.PurchaseOrder.ID {
		t.Errorf("Expected only chicken to remain, got %v", set)
	}
	// two creates plus one reconcile event for the cancelled PO
	if n, _ := h.rdb.XLen(ctx, stream).Result(); n != 3 {
		t.Errorf("Expected 3 outbox events, got %d", n)
	}

	again, err := h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.RiceID})
	if err != nil {
		t.Fatalf("recreate rice: %v", err)
	}
	if again.AlreadyExists || again.PurchaseOrder.ID == rice.PurchaseOrder.ID {
		t.Errorf("Expected a fresh PO after cancellation, got %+v", again)
	}
}

func TestReconciler_RunPassesImmediately(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rediskey.MarkPOCreated(ctx, h.rdb, "ghost-vendor", "ghost-ingredient", "ghost-po"); err != nil {
		t.Fatalf("MarkPOCreated: %v", err)
	}
	done := make(chan struct{})
	go func() {
		h.rec.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		set, _ := rediskey.CreatedPOs(context.Background(), h.rdb)
		if len(set) == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	set, _ := rediskey.CreatedPOs(context.Background(), h.rdb)
	if len(set) != 0 {
		t.Errorf("Expected the first pass to run before the first tick, got %v", set)
	}
}

func TestReconcileOnce_KeepsOtherVendorsPO(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	other := model.Vendor{Name: "Ocean Supply"}
	if err := h.store.DB().Create(&other).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	first, err := h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.RiceID})
	if err != nil {
		t.Fatalf("create with supplier: %v", err)
	}
	second, err := h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.RiceID, VendorName: "Ocean Supply"})
	if err != nil {
		t.Fatalf("create with second vendor: %v", err)
	}
	if second.AlreadyExists {
		t.Fatal("Expected a separate PO for the second vendor")
	}
	if _, err := h.store.UpdatePOStatusByNumber(ctx, second.PurchaseOrder.PONumber, model.POCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	res, err := h.rec.ReconcileOnce(ctx)
	if err != nil {
		t.Fatalf("ReconcileOnce: %v", err)
	}
	if res.Checked != 2 || len(res.Released) != 1 {
		t.Fatalf("Expected 2 checked and 1 released, got %+v", res)
	}
	set, _ := h.svc.Created(ctx)
	if set[h.fixture.RiceID] != first.PurchaseOrder.ID {
		t.Errorf("Expected rice still covered by %s, got %v", first.PurchaseOrder.ID, set)
	}
}

func TestReconcileOnce_ReleasesReceived(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rice, err := h.svc.CreateForShortfall(ctx, CreateRequest{IngredientID: h.fixture.RiceID})
	if err != nil {
		t.Fatalf("create rice: %v", err)
	}
	if _, err := h.store.UpdatePOStatusByNumber(ctx, rice.PurchaseOrder.PONumber, model.POReceived); err != nil {
		t.Fatalf("receive: %v", err)
	}

	res, err := h.rec.ReconcileOnce(ctx)
	if err != nil {
		t.Fatalf("ReconcileOnce: %v", err)
	}
	if len(res.Released) != 1 || res.Released[0] != h.fixture.RiceID {
		t.Fatalf("Expected rice released, got %+v", res)
	}
	set, _ := h.svc.Created(ctx)
	if len(set) != 0 {
		t.Errorf("Expected empty created set, got %v", set)
	}
}
