package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/notify"
	"github.com/ahmadjon09/Shoemaster-sub000/internal/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Client{}, &models.Product{}, &models.ProductVariant{}, &models.Order{}, &models.OrderItem{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newProductHandler(db *gorm.DB) *ProductHandler {
	return NewProductHandler(db, services.NewProductService(db, notify.NopNotifier{}), nil)
}

func TestProductCreateThenRestock(t *testing.T) {
	db := setupTestDB(t)
	h := newProductHandler(db)

	body := `{"title":"Chelsea boot","sku":"CB000001","category":"boots","gender":"men","season":"winter","material":"leather","mainImages":["a.jpg"],"count":5}`
	req := httptest.NewRequest(http.MethodPost, "/products/create", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Created bool           `json:"created"`
		Product models.Product `json:"product"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.Created || created.Product.Count != 5 {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}

	// Same SKU again accumulates; count arrives as a string this time.
	body2 := `{"title":"Chelsea boot","sku":"CB000001","count":"3"}`
	req2 := httptest.NewRequest(http.MethodPost, "/products/create", strings.NewReader(body2))
	req2.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	h.Create(w2, req2)
	if w2.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w2.Code, w2.Body.String())
	}
	var updated struct {
		Updated bool           `json:"updated"`
		Product models.Product `json:"product"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !updated.Updated || updated.Product.Count != 8 {
		t.Fatalf("restock not accumulated: %s", w2.Body.String())
	}
	var rows int64
	db.Model(&models.Product{}).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected 1 product row got %d", rows)
	}
}

func TestProductCreateMissingSKU(t *testing.T) {
	db := setupTestDB(t)
	h := newProductHandler(db)

	req := httptest.NewRequest(http.MethodPost, "/products/create", strings.NewReader(`{"title":"No SKU"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestProductCreateUnparsableCountDefaultsToZero(t *testing.T) {
	db := setupTestDB(t)
	h := newProductHandler(db)

	req := httptest.NewRequest(http.MethodPost, "/products/create", strings.NewReader(`{"title":"Mystery","sku":"CB000002","count":"lots"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var p models.Product
	db.Where("sku = ?", "CB000002").First(&p)
	if p.Count != 0 {
		t.Fatalf("expected count 0 got %d", p.Count)
	}
}

func TestProductCheck(t *testing.T) {
	db := setupTestDB(t)
	h := newProductHandler(db)

	req := httptest.NewRequest(http.MethodGet, "/products/check?sku=CB000003", nil)
	w := httptest.NewRecorder()
	h.Check(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}

	db.Create(&models.Product{SKU: "CB000003", Title: "Derby", Count: 1})
	req2 := httptest.NewRequest(http.MethodGet, "/products/check?sku=CB000003", nil)
	w2 := httptest.NewRecorder()
	h.Check(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w2.Code)
	}
	var payload struct {
		Product models.Product `json:"product"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Product.SKU != "CB000003" {
		t.Fatalf("wrong product: %s", w2.Body.String())
	}
}

func TestProductUpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	h := newProductHandler(db)
	p := models.Product{SKU: "CB000004", Title: "Oxford", Count: 3, Price: 80}
	db.Create(&p)

	req := httptest.NewRequest(http.MethodPut, "/products/1", strings.NewReader(`{"price":95,"count":7}`))
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	var got models.Product
	db.First(&got, p.ID)
	if got.Price != 95 || got.Count != 7 {
		t.Fatalf("update not applied: %+v", got)
	}

	req2 := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
	req2.SetPathValue("id", "1")
	w2 := httptest.NewRecorder()
	h.Delete(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w2.Code)
	}
	var visible int64
	db.Model(&models.Product{}).Count(&visible)
	if visible != 0 {
		t.Fatalf("product still listed after delete")
	}

	// Second delete finds nothing.
	req3 := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
	req3.SetPathValue("id", "1")
	w3 := httptest.NewRecorder()
	h.Delete(w3, req3)
	if w3.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w3.Code)
	}
}

func TestProductList(t *testing.T) {
	db := setupTestDB(t)
	h := newProductHandler(db)
	db.Create(&models.Product{SKU: "CB000005", Title: "Runner", Category: "sneakers", Count: 2})
	db.Create(&models.Product{SKU: "CB000006", Title: "Slipper", Category: "home", Count: 1})

	req := httptest.NewRequest(http.MethodGet, "/products?q=runner", nil)
	w := httptest.NewRecorder()
	h.List(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var payload struct {
		Items []models.Product `json:"items"`
		Total int64            `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Total != 1 || len(payload.Items) != 1 || payload.Items[0].SKU != "CB000005" {
		t.Fatalf("filter failed: %s", w.Body.String())
	}
}
