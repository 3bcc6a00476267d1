package sqlite

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/model"
)

func testListing(id int64, brand, modelName string) *model.Listing {
	return &model.Listing{
		ID:         id,
		Type:       model.TypeCars,
		Brand:      brand,
		Model:      modelName,
		Year:       2020,
		Color:      "Prata",
		Mileage:    15000,
		Price:      80000,
		PhotoPaths: []string{fmt.Sprintf("uploads/V%d_0.jpg", id)},
	}
}

func createTestListing(t *testing.T, db *DB, l *model.Listing) {
	t.Helper()
	if err := db.Create(context.Background(), l); err != nil {
		t.Fatalf("failed to create test listing: %v", err)
	}
}

// =========================================================================
// CREATE / GET
// =========================================================================

func TestListingCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	want := testListing(1, "Honda", "Civic")
	want.IsFeatured = true
	want.PhotoPaths = []string{"uploads/V1_0.jpg", "https://example.com/civic.png"}
	createTestListing(t, db, want)

	got, err := db.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetByID() = %+v, want %+v", got, want)
	}
}

func TestListingCreate_DuplicateID(t *testing.T) {
	db := newTestDB(t)
	createTestListing(t, db, testListing(1, "Honda", "Civic"))

	err := db.Create(context.Background(), testListing(1, "Toyota", "Corolla"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Create() duplicate error = %v, want ErrConflict", err)
	}
}

func TestListingGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), 99)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST
// =========================================================================

func TestListingList_WriteOrder(t *testing.T) {
	db := newTestDB(t)
	createTestListing(t, db, testListing(3, "Fiat", "Uno"))
	createTestListing(t, db, testListing(1, "Honda", "Civic"))

	listings, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("len(listings) = %d, want 2", len(listings))
	}
	if listings[0].ID != 3 || listings[1].ID != 1 {
		t.Errorf("ids = [%d %d], want [3 1]", listings[0].ID, listings[1].ID)
	}
}

func TestListingList_EmptyPhotos(t *testing.T) {
	db := newTestDB(t)
	l := testListing(1, "Honda", "Civic")
	l.PhotoPaths = nil
	createTestListing(t, db, l)

	got, err := db.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.PhotoPaths != nil {
		t.Errorf("PhotoPaths = %v, want nil", got.PhotoPaths)
	}
}

// =========================================================================
// UPDATE / FEATURED TOGGLE
// =========================================================================

func TestListingUpdate_FeaturedToggle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestListing(t, db, testListing(1, "Honda", "Civic"))
	createTestListing(t, db, testListing(2, "Toyota", "Corolla"))

	l, _ := db.GetByID(ctx, 2)
	l.IsFeatured = true
	if err := db.Update(ctx, l); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got, _ := db.GetByID(ctx, 2); !got.IsFeatured {
		t.Error("listing 2 should be featured after toggle")
	}

	l.IsFeatured = false
	if err := db.Update(ctx, l); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got, _ := db.GetByID(ctx, 2); got.IsFeatured {
		t.Error("listing 2 should not be featured after toggling back")
	}
}

func TestListingUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), testListing(5, "Fiat", "Uno"))
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// REPLACE ALL / DELETE
// =========================================================================

func TestListingReplaceAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestListing(t, db, testListing(1, "Honda", "Civic"))

	next := []model.Listing{*testListing(4, "Fiat", "Argo"), *testListing(2, "Ford", "Ka")}
	if err := db.ReplaceAll(ctx, next); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	listings, _ := db.List(ctx)
	if len(listings) != 2 || listings[0].ID != 4 || listings[1].ID != 2 {
		t.Errorf("List() after ReplaceAll = %+v", listings)
	}
}

func TestListingReplaceAll_DuplicateIDsRollBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestListing(t, db, testListing(1, "Honda", "Civic"))

	bad := []model.Listing{*testListing(2, "Fiat", "Argo"), *testListing(2, "Ford", "Ka")}
	if err := db.ReplaceAll(ctx, bad); err == nil {
		t.Fatal("ReplaceAll() should fail on duplicate ids")
	}

	listings, _ := db.List(ctx)
	if len(listings) != 1 || listings[0].ID != 1 {
		t.Errorf("table changed after failed ReplaceAll: %+v", listings)
	}
}

func TestListingDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestListing(t, db, testListing(1, "Honda", "Civic"))

	if err := db.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.GetByID(ctx, 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.Delete(ctx, 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrNotFound", err)
	}
}
