package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tealeg/xlsx/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"construction-api/internal/models"
	"construction-api/internal/store"
)

// Options defines where the seed files live
type Options struct {
	Dir           string // default "."
	SuppliersFile string // default suppliers.json, falling back to suppliers.xlsx
	ProjectsFile  string // default projects.json, falling back to projects.xlsx
	MaxSamples    int    // default 20
}

// RowError represents an entry that could not be loaded
type RowError struct {
	File    string `json:"file"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// CollectionSummary contains the load statistics for a single collection
type CollectionSummary struct {
	Collection string     `json:"collection"`
	File       string     `json:"file"`
	Read       int        `json:"read"`
	Inserted   int        `json:"inserted"`
	Invalid    int        `json:"invalid"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
	Samples    []RowError `json:"error_samples,omitempty"`
}

// Summary contains the overall load statistics
type Summary struct {
	Inserted    int                 `json:"inserted"`
	Invalid     int                 `json:"invalid"`
	Failed      int                 `json:"failed"`
	Collections []CollectionSummary `json:"collections"`
}

// builder is a create payload that can produce a document with a given
// identity.
type builder[T any] interface {
	BuildAs(id primitive.ObjectID, created time.Time) T
}

// identity holds the fields a seed entry may carry over from an export.
// "_id" wins over "id"; both accept a hex string or {"$oid": ...}.
type identity struct {
	MongoID   primitive.ObjectID `json:"_id"`
	ID        primitive.ObjectID `json:"id"`
	CreatedAt *models.Date       `json:"createdAt"`
}

func (e identity) resolve(now time.Time) (primitive.ObjectID, time.Time) {
	id := e.MongoID
	if id.IsZero() {
		id = e.ID
	}
	if id.IsZero() {
		id = primitive.NewObjectID()
	}
	created := now
	if e.CreatedAt != nil {
		created = e.CreatedAt.Time
	}
	return id, created
}

// Run seeds suppliers and then projects. Each collection is loaded on its
// own: a missing or unreadable file is logged and the other one still loads.
// Ids and creation times present in an entry are kept, so loading the same
// file twice fails on duplicate keys instead of copying every document.
// Nothing is returned to the caller beyond the summary.
func Run(ctx context.Context, db *store.DB, opts Options, logger *zap.Logger) Summary {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 20
	}
	now := time.Now()

	var summary Summary
	for _, cs := range []CollectionSummary{
		load[models.Supplier, models.SupplierInput](ctx, db.Suppliers, "Supplier", store.SuppliersCollection,
			resolve(opts.Dir, opts.SuppliersFile, store.SuppliersCollection), now, opts.MaxSamples),
		load[models.Project, models.ProjectInput](ctx, db.Projects, "Project", store.ProjectsCollection,
			resolve(opts.Dir, opts.ProjectsFile, store.ProjectsCollection), now, opts.MaxSamples),
	} {
		fields := []zap.Field{
			zap.String("collection", cs.Collection),
			zap.String("file", cs.File),
			zap.Int("read", cs.Read),
			zap.Int("inserted", cs.Inserted),
			zap.Int("invalid", cs.Invalid),
			zap.Int("failed", cs.Failed),
		}
		switch {
		case cs.Error != "":
			logger.Error("Error inserting seed data", append(fields, zap.String("error", cs.Error))...)
		case cs.Invalid > 0:
			logger.Warn("Seed data inserted with rejected entries", append(fields, zap.Any("samples", cs.Samples))...)
		default:
			logger.Info("Seed data inserted successfully", fields...)
		}

		summary.Inserted += cs.Inserted
		summary.Invalid += cs.Invalid
		summary.Failed += cs.Failed
		summary.Collections = append(summary.Collections, cs)
	}
	return summary
}

// resolve picks the file for a collection: an explicit name wins, then
// <collection>.json, then <collection>.xlsx.
func resolve(dir, name, collection string) string {
	if name != "" {
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(dir, name)
	}
	jsonPath := filepath.Join(dir, collection+".json")
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}
	xlsxPath := filepath.Join(dir, collection+".xlsx")
	if _, err := os.Stat(xlsxPath); err == nil {
		return xlsxPath
	}
	return jsonPath
}

func load[T store.Document, C builder[T]](ctx context.Context, repo store.Repository[T], model, collection, path string, now time.Time, maxSamples int) CollectionSummary {
	cs := CollectionSummary{Collection: collection, File: path}

	entries, err := readEntries(path)
	if err != nil {
		cs.Error = err.Error()
		return cs
	}
	cs.Read = len(entries)

	reject := func(row int, err error) {
		cs.Invalid++
		if len(cs.Samples) < maxSamples {
			cs.Samples = append(cs.Samples, RowError{File: filepath.Base(path), Row: row, Message: err.Error()})
		}
	}

	docs := make([]T, 0, len(entries))
	for i, raw := range entries {
		var in C
		if err := json.Unmarshal(raw, &in); err != nil {
			reject(i+1, models.DecodeError(model, err))
			continue
		}
		if err := models.Validate(model, in); err != nil {
			reject(i+1, err)
			continue
		}
		var ident identity
		if err := json.Unmarshal(raw, &ident); err != nil {
			reject(i+1, models.DecodeError(model, err))
			continue
		}
		id, created := ident.resolve(now)
		docs = append(docs, in.BuildAs(id, created))
	}
	if len(docs) == 0 {
		return cs
	}

	inserted, err := repo.InsertMany(ctx, docs)
	cs.Inserted = inserted
	cs.Failed = len(docs) - inserted
	if err != nil {
		cs.Error = err.Error()
	}
	return cs
}

// readEntries returns one JSON object per seed entry.
func readEntries(path string) ([]json.RawMessage, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readWorkbook(path)
	default:
		return readJSON(path)
	}
}

func readJSON(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read seed file")
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &entries); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s as an array of objects", filepath.Base(path))
	}
	return entries, nil
}

// readWorkbook reads the first sheet of a workbook. Row 1 holds the field
// names; every later non-empty row becomes one entry with string values.
func readWorkbook(path string) ([]json.RawMessage, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	if len(wb.Sheets) == 0 {
		return nil, errors.Errorf("%s has no sheets", filepath.Base(path))
	}
	sheet := wb.Sheets[0]
	defer sheet.Close()

	if sheet.MaxRow < 1 {
		return nil, nil
	}

	headers := make([]string, sheet.MaxCol)
	for col := 0; col < sheet.MaxCol; col++ {
		cell, err := sheet.Cell(0, col)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read header row")
		}
		headers[col] = strings.TrimSpace(cell.String())
	}

	var entries []json.RawMessage
	for row := 1; row < sheet.MaxRow; row++ {
		entry := make(map[string]string)
		for col, header := range headers {
			if header == "" {
				continue
			}
			cell, err := sheet.Cell(row, col)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read row %d", row+1)
			}
			if v := strings.TrimSpace(cell.String()); v != "" {
				entry[header] = v
			}
		}
		if len(entry) == 0 {
			continue
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		entries = append(entries, raw)
	}
	return entries, nil
}
