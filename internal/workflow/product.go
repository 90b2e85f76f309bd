package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wms-service/internal/importer"
	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

// MaxUploadBytes caps uploaded import files.
const MaxUploadBytes = 10 << 20

// Transactor runs import work inside one database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(store importer.Store, ledger importer.Ledger) error) error
	TransactionReceipts(ctx context.Context, fn func(store importer.Store, receipts importer.ReceiptStore, ledger importer.ReceiptLedger) error) error
}

// RowSummary is the condensed row shown on the review screen.
type RowSummary struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Quantity string `json:"quantity"`
	Location string `json:"location"`
}

// PendingMatch records one uploaded row whose identity matched existing
// products; the confirm step resolves it with an operator decision.
type PendingMatch struct {
	RowIndex int         `json:"rowIndex"`
	Tier     string      `json:"tier"`
	MatchIDs []uuid.UUID `json:"matchIds"`
	Summary  RowSummary  `json:"summary"`
}

// ProductPending is the session state between a product upload that found
// matches and its confirmation.
type ProductPending struct {
	Token         string                `json:"token"`
	Source        string                `json:"source"` // "file" or "single"
	TempPath      string                `json:"tempPath,omitempty"`
	Extension     string                `json:"extension,omitempty"`
	Rows          []map[string]string   `json:"rows,omitempty"`
	StartIndex    int                   `json:"startIndex"`
	DefaultAction string                `json:"defaultAction"`
	Mode          importer.QuantityMode `json:"mode"`
	Actor         string                `json:"actor"`
	Matches       []PendingMatch        `json:"matches"`
}

// MatchCandidate is one existing product offered as an update target.
type MatchCandidate struct {
	ID             uuid.UUID `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand"`
	AvailableStock int       `json:"availableStock"`
	Location       string    `json:"location"`
}

// MatchReview pairs a pending row with its resolved candidates.
type MatchReview struct {
	RowIndex  int              `json:"rowIndex"`
	TierLabel string           `json:"tierLabel"`
	Row       RowSummary       `json:"row"`
	Products  []MatchCandidate `json:"products"`
}

// MatchContext is everything the review screen needs to confirm a pending
// product import.
type MatchContext struct {
	Token         string                `json:"token"`
	DefaultAction string                `json:"defaultAction"`
	Mode          importer.QuantityMode `json:"mode"`
	Matches       []MatchReview         `json:"matches"`
}

// ProductUploadResult is either a finished import or a pending review.
type ProductUploadResult struct {
	Summary *models.ImportSummary `json:"summary,omitempty"`
	Pending *MatchContext         `json:"pending,omitempty"`
}

// ProductUploadOptions tune a product upload.
type ProductUploadOptions struct {
	// UpdateExisting preselects "update" for matched rows.
	UpdateExisting bool
	Mode           importer.QuantityMode
	Actor          string
}

// ProductFlow runs the two-phase product import: extract and match on
// upload, import on confirm. Uploads with no identity matches import
// immediately.
type ProductFlow struct {
	store    importer.Store
	ledger   importer.Ledger
	tx       Transactor
	sessions SessionStore
	registry *tabular.Registry
	tempDir  string
	log      *logrus.Logger
}

func NewProductFlow(store importer.Store, ledger importer.Ledger, tx Transactor, sessions SessionStore, registry *tabular.Registry, tempDir string, log *logrus.Logger) *ProductFlow {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &ProductFlow{
		store:    store,
		ledger:   ledger,
		tx:       tx,
		sessions: sessions,
		registry: registry,
		tempDir:  tempDir,
		log:      log,
	}
}

func summarizeRecord(rec tabular.Record) RowSummary {
	sku, _ := importer.ParseStr(importer.GetValue(rec, "sku"))
	name, _ := importer.ParseStr(importer.GetValue(rec, "name", "nom", "nom_produit", "produit"))
	brand, _ := importer.ParseStr(importer.GetValue(rec, "brand", "marque"))
	quantity := "-"
	if qty, err := importer.ParseInt(importer.GetValue(rec, "quantity", "quantite", "stock", "qty")); err == nil && qty != nil {
		quantity = strconv.Itoa(*qty)
	}
	return RowSummary{
		SKU:      sku,
		Name:     name,
		Brand:    brand,
		Quantity: quantity,
		Location: summarizeLocation(rec),
	}
}

func summarizeLocation(rec tabular.Record) string {
	warehouse, _ := importer.ParseStr(importer.GetValue(rec, "warehouse", "entrepot"))
	zone, _ := importer.ParseStr(importer.GetValue(rec, "zone", "rack"))
	aisle, _ := importer.ParseStr(importer.GetValue(rec, "aisle", "etagere"))
	shelf, _ := importer.ParseStr(importer.GetValue(rec, "shelf", "bac", "emplacement"))
	if warehouse != "" && zone != "" && aisle != "" && shelf != "" {
		return fmt.Sprintf("%s %s-%s-%s", warehouse, zone, aisle, shelf)
	}
	return "-"
}

// stringRecord rebuilds a tabular record from flat form values, so single-row
// submissions flow through the same importer as file rows.
func stringRecord(values map[string]string, origin int) tabular.Record {
	cells := make(map[string]tabular.Cell, len(values))
	for key, value := range values {
		cells[tabular.NormalizeHeader(key)] = tabular.StringCell(value)
	}
	return tabular.Record{Origin: origin, Cells: cells}
}

// Upload extracts the file, looks for identity matches and either imports
// immediately or parks the upload for review.
func (f *ProductFlow) Upload(ctx context.Context, filename string, data []byte, opts ProductUploadOptions) (*ProductUploadResult, error) {
	if len(data) > MaxUploadBytes {
		return nil, importer.Invalid("file too large (over 10 MB)")
	}
	table, err := f.registry.Extract(filename, data, tabular.Options{})
	if err != nil {
		return nil, importer.Invalid(err.Error())
	}
	recs := table.Records()
	if len(recs) == 0 {
		return nil, importer.Invalid("file is empty or has no usable rows")
	}

	matches, err := f.collectMatches(ctx, recs)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		summary, err := f.runImport(ctx, recs, nil, importer.RowOptions{
			BaseDir: f.tempDir,
			Mode:    opts.Mode,
			Actor:   opts.Actor,
		})
		if err != nil {
			return nil, err
		}
		return &ProductUploadResult{Summary: summary}, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	temp, err := os.CreateTemp(f.tempDir, "product-import-*"+ext)
	if err != nil {
		return nil, err
	}
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return nil, err
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return nil, err
	}

	defaultAction := "create"
	if opts.UpdateExisting {
		defaultAction = "update"
	}
	pending := ProductPending{
		Token:         uuid.New().String(),
		Source:        "file",
		TempPath:      temp.Name(),
		Extension:     ext,
		StartIndex:    2,
		DefaultAction: defaultAction,
		Mode:          opts.Mode,
		Actor:         opts.Actor,
		Matches:       matches,
	}
	if err := f.sessions.Put(ctx, pending.Token, pending); err != nil {
		os.Remove(temp.Name())
		return nil, err
	}
	review, err := f.buildMatchContext(ctx, pending)
	if err != nil {
		return nil, err
	}
	f.log.WithFields(logrus.Fields{
		"token":   pending.Token,
		"matches": len(matches),
	}).Info("Product import parked for review")
	return &ProductUploadResult{Pending: review}, nil
}

// ImportSingle imports one row built from form values, pausing for review
// when the row matches existing products.
func (f *ProductFlow) ImportSingle(ctx context.Context, values map[string]string, opts ProductUploadOptions) (*ProductUploadResult, error) {
	rec := stringRecord(values, 1)
	matches, err := f.collectMatches(ctx, []tabular.Record{rec})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		summary, err := f.runImport(ctx, []tabular.Record{rec}, nil, importer.RowOptions{
			Mode:  opts.Mode,
			Actor: opts.Actor,
		})
		if err != nil {
			return nil, err
		}
		return &ProductUploadResult{Summary: summary}, nil
	}
	pending := ProductPending{
		Token:         uuid.New().String(),
		Source:        "single",
		Rows:          []map[string]string{values},
		StartIndex:    1,
		DefaultAction: "update",
		Mode:          opts.Mode,
		Actor:         opts.Actor,
		Matches:       matches,
	}
	if err := f.sessions.Put(ctx, pending.Token, pending); err != nil {
		return nil, err
	}
	review, err := f.buildMatchContext(ctx, pending)
	if err != nil {
		return nil, err
	}
	return &ProductUploadResult{Pending: review}, nil
}

// Review rebuilds the match context for a pending upload.
func (f *ProductFlow) Review(ctx context.Context, token string) (*MatchContext, error) {
	var pending ProductPending
	if err := f.sessions.Get(ctx, token, &pending); err != nil {
		return nil, err
	}
	return f.buildMatchContext(ctx, pending)
}

// ConfirmDecision is the operator's choice for one matched row.
type ConfirmDecision struct {
	Action    string    `json:"action"` // "create" or "update"
	ProductID uuid.UUID `json:"productId,omitempty"`
}

// Confirm resumes a parked upload with per-row decisions and runs the
// import inside one transaction. Each "update" decision must target one of
// the candidates recorded at upload time.
func (f *ProductFlow) Confirm(ctx context.Context, token string, decisions map[int]ConfirmDecision) (*models.ImportSummary, error) {
	var pending ProductPending
	if err := f.sessions.Get(ctx, token, &pending); err != nil {
		return nil, err
	}

	resolved := make(map[int]importer.Decision, len(pending.Matches))
	for _, match := range pending.Matches {
		decision, ok := decisions[match.RowIndex]
		if !ok {
			decision = ConfirmDecision{Action: pending.DefaultAction}
		}
		if decision.Action == "create" {
			resolved[match.RowIndex] = importer.Decision{Action: "create"}
			continue
		}
		if decision.ProductID == uuid.Nil {
			if len(match.MatchIDs) == 1 {
				decision.ProductID = match.MatchIDs[0]
			} else {
				return nil, importer.Invalid(fmt.Sprintf("Row %d: a target product must be selected", match.RowIndex))
			}
		}
		if !containsID(match.MatchIDs, decision.ProductID) {
			return nil, importer.Invalid(fmt.Sprintf("Row %d: invalid target product", match.RowIndex))
		}
		resolved[match.RowIndex] = importer.Decision{Action: "update", ProductID: decision.ProductID}
	}

	recs, baseDir, err := f.pendingRecords(pending)
	if err != nil {
		f.cleanup(ctx, pending)
		return nil, err
	}

	summary, err := f.runImport(ctx, recs, resolved, importer.RowOptions{
		BaseDir: baseDir,
		Mode:    pending.Mode,
		Actor:   pending.Actor,
	})
	if err != nil {
		return nil, err
	}
	f.cleanup(ctx, pending)
	return summary, nil
}

// Cancel drops a pending upload and its temp file.
func (f *ProductFlow) Cancel(ctx context.Context, token string) error {
	var pending ProductPending
	if err := f.sessions.Get(ctx, token, &pending); err != nil {
		return err
	}
	f.cleanup(ctx, pending)
	return nil
}

func (f *ProductFlow) cleanup(ctx context.Context, pending ProductPending) {
	if pending.TempPath != "" {
		if err := os.Remove(pending.TempPath); err != nil && !os.IsNotExist(err) {
			f.log.WithError(err).Warn("Failed to remove import temp file")
		}
	}
	if err := f.sessions.Delete(ctx, pending.Token); err != nil {
		f.log.WithError(err).Warn("Failed to drop import session")
	}
}

func (f *ProductFlow) pendingRecords(pending ProductPending) ([]tabular.Record, string, error) {
	if pending.Source == "single" {
		recs := make([]tabular.Record, 0, len(pending.Rows))
		for i, values := range pending.Rows {
			recs = append(recs, stringRecord(values, pending.StartIndex+i))
		}
		return recs, "", nil
	}
	data, err := os.ReadFile(pending.TempPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrSessionExpired
		}
		return nil, "", err
	}
	table, err := f.registry.Extract("upload"+pending.Extension, data, tabular.Options{})
	if err != nil {
		return nil, "", err
	}
	return table.Records(), filepath.Dir(pending.TempPath), nil
}

func (f *ProductFlow) runImport(ctx context.Context, recs []tabular.Record, decisions map[int]importer.Decision, rowOpts importer.RowOptions) (*models.ImportSummary, error) {
	var summary models.ImportSummary
	err := f.tx.Transaction(ctx, func(store importer.Store, ledger importer.Ledger) error {
		var err error
		summary, err = importer.NewProductImporter(store, ledger).ImportRows(ctx, recs, importer.BatchOptions{
			RowOptions:      rowOpts,
			Decisions:       decisions,
			CollectDistinct: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (f *ProductFlow) collectMatches(ctx context.Context, recs []tabular.Record) ([]PendingMatch, error) {
	var matches []PendingMatch
	for _, rec := range recs {
		if rec.IsEmpty() {
			continue
		}
		identity := importer.ExtractProductIdentity(rec)
		result, err := importer.FindProductMatches(ctx, f.store, identity)
		if err != nil {
			return nil, err
		}
		if len(result.Candidates) == 0 {
			continue
		}
		ids := make([]uuid.UUID, 0, len(result.Candidates))
		for _, candidate := range result.Candidates {
			ids = append(ids, candidate.ID)
		}
		matches = append(matches, PendingMatch{
			RowIndex: rec.Origin,
			Tier:     result.Tier,
			MatchIDs: ids,
			Summary:  summarizeRecord(rec),
		})
	}
	return matches, nil
}

var tierLabels = map[string]string{
	importer.MatchSKU:       "SKU",
	importer.MatchNameBrand: "Nom + Marque",
}

func (f *ProductFlow) buildMatchContext(ctx context.Context, pending ProductPending) (*MatchContext, error) {
	reviews := make([]MatchReview, 0, len(pending.Matches))
	for _, match := range pending.Matches {
		candidates := make([]MatchCandidate, 0, len(match.MatchIDs))
		for _, id := range match.MatchIDs {
			product, err := f.store.ProductByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if product == nil {
				continue
			}
			stock, err := AvailableStock(ctx, f.ledger, product.ID)
			if err != nil {
				return nil, err
			}
			location := "-"
			if product.DefaultLocation != nil {
				location = product.DefaultLocation.Label()
			}
			candidates = append(candidates, MatchCandidate{
				ID:             product.ID,
				SKU:            product.SKU,
				Name:           product.Name,
				Brand:          product.Brand,
				AvailableStock: stock,
				Location:       location,
			})
		}
		reviews = append(reviews, MatchReview{
			RowIndex:  match.RowIndex,
			TierLabel: tierLabels[match.Tier],
			Row:       match.Summary,
			Products:  candidates,
		})
	}
	return &MatchContext{
		Token:         pending.Token,
		DefaultAction: pending.DefaultAction,
		Mode:          pending.Mode,
		Matches:       reviews,
	}, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
