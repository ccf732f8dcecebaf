package index

import (
	"os"
	"testing"
	"time"

	"github.com/finalquest/itinera/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "itinera-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testFinding(id, title string) models.Finding {
	return models.Finding{
		ID:        id,
		Title:     title,
		Tags:      []string{},
		CreatedAt: time.Now().UTC(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM findings`).Scan(&count); err != nil {
		t.Fatalf("findings table missing: %v", err)
	}
}

func TestUpsertAndAllIDs(t *testing.T) {
	db := testDB(t)
	f := testFinding("f1", "Taza Totoro")
	f.Description = "Taza de ceramica del Studio Ghibli"
	f.Barcode = "4974365810344"
	f.Tags = []string{"regalo", "ghibli"}

	if err := db.UpsertFinding(f); err != nil {
		t.Fatalf("UpsertFinding: %v", err)
	}
	ids, err := db.AllIDs()
	if err != nil {
		t.Fatalf("AllIDs: %v", err)
	}
	if _, ok := ids["f1"]; !ok {
		t.Errorf("ids = %v, want f1 present", ids)
	}
}

func TestDeleteFinding(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFinding(testFinding("del", "Borrar"))

	if err := db.DeleteFinding("del"); err != nil {
		t.Fatalf("DeleteFinding: %v", err)
	}
	ids, _ := db.AllIDs()
	if _, ok := ids["del"]; ok {
		t.Error("deleted finding still indexed")
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	f := testFinding("up", "Viejo")
	_ = db.UpsertFinding(f)
	f.Title = "Nuevo"
	f.Barcode = "123"
	_ = db.UpsertFinding(f)

	var title string
	if err := db.conn.QueryRow(`SELECT title FROM findings WHERE id = ?`, "up").Scan(&title); err != nil {
		t.Fatal(err)
	}
	if title != "Nuevo" {
		t.Errorf("title = %q, want %q", title, "Nuevo")
	}
	ids, _ := db.ByBarcode("123")
	if len(ids) != 1 || ids[0] != "up" {
		t.Errorf("ByBarcode = %v, want [up]", ids)
	}
}

func TestByBarcode_NewestFirst(t *testing.T) {
	db := testDB(t)
	older := testFinding("a", "Primero")
	older.Barcode = "999"
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testFinding("b", "Segundo")
	newer.Barcode = "999"
	_ = db.UpsertFinding(older)
	_ = db.UpsertFinding(newer)

	ids, err := db.ByBarcode("999")
	if err != nil {
		t.Fatalf("ByBarcode: %v", err)
	}
	if len(ids) != 2 || ids[0] != "b" {
		t.Errorf("ids = %v, want [b a]", ids)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	f := testFinding("s", "Lampara de sal")
	f.Description = "uniqueword appears here"
	_ = db.UpsertFinding(f)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestSearch_MatchesLocation(t *testing.T) {
	db := testDB(t)
	f := testFinding("loc", "Cuchillo")
	f.Location = "Kappabashi Street"
	_ = db.UpsertFinding(f)

	results, err := db.Search("Kappabashi", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "loc" {
		t.Errorf("search results = %+v, want 1 hit for loc", results)
	}
}
