package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"construction-api/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeWorkbook(t *testing.T, path string, rows [][]string) {
	t.Helper()
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, wb.Save(path))
}

const suppliersJSON = `[
  {"name": "Steel Co", "contactPerson": "Ayesha", "email": "a@steel.example", "phone": "1", "materials": "Rebar"},
  {"name": "Cement Ltd", "contactPerson": "Bilal", "email": "b@cement.example", "phone": "2", "materials": "Cement"}
]`

const projectsJSON = `[
  {"name": "Bridge", "location": "Lahore", "startDate": "2024-01-01", "endDate": "2024-12-31", "budget": 50000},
  {"name": "Tower", "location": "Karachi", "startDate": "2024-03-01", "endDate": "2025-03-01"},
  {"name": "Depot", "location": "Multan", "startDate": "2024-02-01", "endDate": "2024-08-01", "budget": "1200"}
]`

func TestRunLoadsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "suppliers.json", suppliersJSON)
	writeFile(t, dir, "projects.json", projectsJSON)
	db := store.NewMemoryDB()

	summary := Run(context.Background(), db, Options{Dir: dir}, zap.NewNop())

	assert.Equal(t, 4, summary.Inserted)
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Collections, 2)
	assert.Equal(t, store.SuppliersCollection, summary.Collections[0].Collection)
	assert.Equal(t, store.ProjectsCollection, summary.Collections[1].Collection)

	projects := summary.Collections[1]
	assert.Equal(t, 3, projects.Read)
	require.Len(t, projects.Samples, 1)
	assert.Equal(t, 2, projects.Samples[0].Row)
	assert.Contains(t, projects.Samples[0].Message, "Project validation failed: budget: Path `budget` is required.")

	suppliers, err := db.Suppliers.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, suppliers, 2)

	stored, err := db.Projects.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	budgets := []float64{stored[0].Budget, stored[1].Budget}
	assert.ElementsMatch(t, []float64{50000, 1200}, budgets)
}

func TestRunMissingFileDoesNotStopOther(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "projects.json", projectsJSON)
	db := store.NewMemoryDB()
	core, logs := observer.New(zapcore.InfoLevel)

	summary := Run(context.Background(), db, Options{Dir: dir}, zap.New(core))

	assert.NotEmpty(t, summary.Collections[0].Error)
	assert.Equal(t, 2, summary.Collections[1].Inserted)
	assert.Equal(t, 1, logs.FilterMessage("Error inserting seed data").Len())
}

func TestRunMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "suppliers.json", `{"name": "not an array"}`)
	writeFile(t, dir, "projects.json", `[`)
	db := store.NewMemoryDB()

	summary := Run(context.Background(), db, Options{Dir: dir}, zap.NewNop())

	assert.Zero(t, summary.Inserted)
	for _, cs := range summary.Collections {
		assert.Contains(t, cs.Error, "failed to parse")
	}
}

const exportedSuppliersJSON = `[
  {"_id": "65a000000000000000000001", "name": "Steel Co", "contactPerson": "Ayesha", "email": "a@steel.example", "phone": "1", "materials": "Rebar", "createdAt": "2024-01-01T00:00:00Z"},
  {"_id": {"$oid": "65a000000000000000000002"}, "name": "Cement Ltd", "contactPerson": "Bilal", "email": "b@cement.example", "phone": "2", "materials": "Cement", "createdAt": {"$date": "2024-02-01T00:00:00Z"}}
]`

func TestRunDuplicateIDsAreCountedAsFailed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "suppliers.json", exportedSuppliersJSON)
	writeFile(t, dir, "projects.json", `[]`)
	db := store.NewMemoryDB()

	first := Run(context.Background(), db, Options{Dir: dir}, zap.NewNop())
	second := Run(context.Background(), db, Options{Dir: dir}, zap.NewNop())

	assert.Equal(t, 2, first.Inserted)
	assert.Zero(t, first.Failed)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 2, second.Failed)
	assert.Contains(t, second.Collections[0].Error, "duplicate key")

	suppliers, err := db.Suppliers.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, suppliers, 2)
}

func TestRunDuplicateInsideFileKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "suppliers.json", `[]`)
	writeFile(t, dir, "projects.json", `[
  {"id": "65a000000000000000000010", "name": "Bridge", "location": "Lahore", "startDate": "2024-01-01", "endDate": "2024-12-31", "budget": 1},
  {"id": "65a000000000000000000010", "name": "Bridge again", "location": "Lahore", "startDate": "2024-01-01", "endDate": "2024-12-31", "budget": 2},
  {"name": "Tower", "location": "Karachi", "startDate": "2024-01-01", "endDate": "2024-12-31", "budget": 3}
]`)
	db := store.NewMemoryDB()

	summary := Run(context.Background(), db, Options{Dir: dir}, zap.NewNop())

	projects := summary.Collections[1]
	assert.Equal(t, 2, projects.Inserted)
	assert.Equal(t, 1, projects.Failed)

	stored, err := db.Projects.FindByID(context.Background(), "65a000000000000000000010")
	require.NoError(t, err)
	assert.Equal(t, "Bridge", stored.Name)
}

func TestRunKeepsExportedIdentity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "suppliers.json", exportedSuppliersJSON)
	writeFile(t, dir, "projects.json", `[]`)
	db := store.NewMemoryDB()

	summary := Run(context.Background(), db, Options{Dir: dir}, zap.NewNop())
	require.Equal(t, 2, summary.Inserted)

	list, err := db.Suppliers.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Cement Ltd", list[0].Name)
	assert.Equal(t, "65a000000000000000000002", list[0].ID.Hex())
	assert.True(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Equal(list[0].CreatedAt))
	assert.Equal(t, "65a000000000000000000001", list[1].ID.Hex())
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(list[1].CreatedAt))
}

func TestRunRejectsMalformedID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "suppliers.json", `[
  {"_id": "nope", "name": "Steel Co", "contactPerson": "Ayesha", "email": "a@steel.example", "phone": "1", "materials": "Rebar"}
]`)
	writeFile(t, dir, "projects.json", `[]`)
	db := store.NewMemoryDB()

	summary := Run(context.Background(), db, Options{Dir: dir}, zap.NewNop())

	assert.Zero(t, summary.Inserted)
	assert.Equal(t, 1, summary.Invalid)
	require.Len(t, summary.Collections[0].Samples, 1)
}

func TestRunLoadsWorkbook(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "projects.xlsx"), [][]string{
		{"name", "location", "startDate", "endDate", "budget"},
		{"Bridge", "Lahore", "2024-01-01", "2024-12-31", "50000"},
		{"Tower", "Karachi", "3/1/2024", "3/1/2025", "not money"},
	})
	writeFile(t, dir, "suppliers.json", `[]`)
	db := store.NewMemoryDB()

	summary := Run(context.Background(), db, Options{Dir: dir}, zap.NewNop())

	projects := summary.Collections[1]
	assert.Equal(t, filepath.Join(dir, "projects.xlsx"), projects.File)
	assert.Equal(t, 2, projects.Read)
	assert.Equal(t, 1, projects.Inserted)
	assert.Equal(t, 1, projects.Invalid)

	stored, err := db.Projects.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Bridge", stored[0].Name)
	assert.Equal(t, 50000.0, stored[0].Budget)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "projects.json"), resolve(dir, "", "projects"))

	writeFile(t, dir, "projects.xlsx", "")
	assert.Equal(t, filepath.Join(dir, "projects.xlsx"), resolve(dir, "", "projects"))

	writeFile(t, dir, "projects.json", "[]")
	assert.Equal(t, filepath.Join(dir, "projects.json"), resolve(dir, "", "projects"))

	assert.Equal(t, filepath.Join(dir, "seed.json"), resolve(dir, "seed.json", "projects"))
	assert.Equal(t, "/tmp/x.json", resolve(dir, "/tmp/x.json", "projects"))
}
