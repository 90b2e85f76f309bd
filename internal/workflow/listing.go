package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wms-service/internal/importer"
	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

// MappingField is one assignable target in the column-mapping step.
type MappingField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// ListingMappingFields is the vocabulary offered for column mapping, in
// display order.
var ListingMappingFields = []MappingField{
	{"name", "Nom produit"},
	{"brand", "Marque"},
	{"color", "Couleur"},
	{"category_l1", "Categorie L1"},
	{"category_l2", "Categorie L2"},
	{"category_l3", "Categorie L3"},
	{"category_l4", "Categorie L4"},
	{"barcode", "Barcode"},
	{"ean", "EAN"},
	{"pu_ht", "PU HT"},
	{"tva", "TVA"},
	{"tags", "Tags"},
	{"warehouse", "Entrepot"},
	{"zone", "Rack"},
	{"aisle", "Etagere"},
	{"shelf", "Bac"},
	{"rack_color", "Couleur rack"},
	{"notes", "Notes"},
	{"length_cm", "Longueur cm"},
	{"width_cm", "Largeur cm"},
	{"height_cm", "Hauteur cm"},
	{"weight_g", "Poids g"},
	{"volume_cm3", "Volume cm3"},
	{"storage_conditions", "Conditions stockage"},
	{"perishable", "Perissable"},
	{"quarantine_default", "Quarantaine par defaut"},
	{"quantity", "Quantite"},
}

// listingRequiredFields must all be mapped before review.
var listingRequiredFields = []string{"name", "quantity"}

// listingHeaderFields maps normalized column headers to mapping fields for
// automatic mapping defaults.
var listingHeaderFields = map[string]string{
	"nom": "name", "nom_produit": "name", "produit": "name", "designation": "name",
	"marque": "brand", "brand": "brand",
	"couleur": "color",
	"categorie_l1": "category_l1", "categorie_1": "category_l1", "category_l1": "category_l1", "category_1": "category_l1",
	"categorie_l2": "category_l2", "categorie_2": "category_l2", "category_l2": "category_l2", "category_2": "category_l2",
	"categorie_l3": "category_l3", "categorie_3": "category_l3", "category_l3": "category_l3", "category_3": "category_l3",
	"categorie_l4": "category_l4", "categorie_4": "category_l4", "category_l4": "category_l4", "category_4": "category_l4",
	"code_barre": "barcode", "barcode": "barcode",
	"ean": "ean", "code_ean": "ean",
	"tags": "tags", "etiquettes": "tags",
	"entrepot": "warehouse", "warehouse": "warehouse",
	"zone": "zone", "rack": "zone",
	"etagere": "aisle", "aisle": "aisle",
	"bac": "shelf", "shelf": "shelf",
	"couleur_rack": "rack_color", "rack_color": "rack_color",
	"notes": "notes",
	"longueur_cm": "length_cm", "length_cm": "length_cm",
	"largeur_cm": "width_cm", "width_cm": "width_cm",
	"hauteur_cm": "height_cm", "height_cm": "height_cm",
	"poids_g": "weight_g", "weight_g": "weight_g",
	"volume_cm3": "volume_cm3",
	"conditions_stockage": "storage_conditions", "storage_conditions": "storage_conditions",
	"perissable": "perishable", "perishable": "perishable",
	"quarantaine_defaut": "quarantine_default", "quarantine_default": "quarantine_default",
	"quantite": "quantity", "qty": "quantity", "stock": "quantity",
	"pu_ht": "pu_ht", "puht": "pu_ht", "price_ht": "pu_ht", "unit_price_ht": "pu_ht",
	"tva": "tva", "vat": "tva",
}

// listingReviewFields are shown for every reviewed row, in display order.
var listingReviewFields = []MappingField{
	{"name", "Nom"},
	{"brand", "Marque"},
	{"color", "Couleur"},
	{"category_l1", "Cat L1"},
	{"category_l2", "Cat L2"},
	{"category_l3", "Cat L3"},
	{"category_l4", "Cat L4"},
	{"barcode", "Barcode"},
	{"ean", "EAN"},
	{"tags", "Tags"},
	{"pu_ht", "PU HT"},
	{"tva", "TVA"},
	{"length_cm", "L cm"},
	{"width_cm", "l cm"},
	{"height_cm", "h cm"},
	{"weight_g", "Poids g"},
	{"volume_cm3", "Volume"},
	{"storage_conditions", "Stockage"},
	{"perishable", "Perissable"},
	{"quarantine_default", "Quarantaine"},
	{"notes", "Notes"},
}

// listingLocationFields are the storage slot parts of a reviewed row.
var listingLocationFields = []MappingField{
	{"warehouse", "Entrepot"},
	{"zone", "Rack"},
	{"aisle", "Etagere"},
	{"shelf", "Bac"},
}

// ValidationErrors collects operator-facing problems from one step instead
// of failing on the first.
type ValidationErrors []string

func (e ValidationErrors) Error() string { return strings.Join(e, "; ") }

// ListingPending is the session state of a pallet-listing import between
// upload and confirmation.
type ListingPending struct {
	Token      string               `json:"token"`
	TempPath   string               `json:"tempPath"`
	Extension  string               `json:"extension"`
	Headers    []string             `json:"headers"`
	Mapping    map[int]string       `json:"mapping"`
	SheetNames []string             `json:"sheetNames,omitempty"`
	SheetName  string               `json:"sheetName,omitempty"`
	HeaderRow  int                  `json:"headerRow,omitempty"`
	PDFMode    string               `json:"pdfMode,omitempty"`
	PageStart  int                  `json:"pageStart,omitempty"`
	PageEnd    int                  `json:"pageEnd,omitempty"`
	PageTotal  int                  `json:"pageTotal,omitempty"`
	Meta       importer.ReceiptMeta `json:"meta"`
	Actor      string               `json:"actor,omitempty"`
}

// ListingColumn describes one uploaded column for the mapping screen.
type ListingColumn struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Sample string `json:"sample"`
	Mapped string `json:"mapped"`
}

// ReviewField is one displayed field of a reviewed row, with the matched
// product's current value alongside the uploaded one.
type ReviewField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Existing string `json:"existing"`
}

// ReviewOption is one selectable match candidate for a reviewed row.
type ReviewOption struct {
	Value string            `json:"value"`
	Label string            `json:"label"`
	Data  map[string]string `json:"data"`
}

// ListingReviewRow is one mapped row prepared for operator review.
type ListingReviewRow struct {
	Index        int               `json:"index"`
	Values       map[string]string `json:"values"`
	Fields       []ReviewField     `json:"fields"`
	Locations    []ReviewField     `json:"locations"`
	MatchType    string            `json:"matchType"`
	Options      []ReviewOption    `json:"options"`
	DefaultMatch string            `json:"defaultMatch"`
}

// ListingUploadOptions carries the extraction choices made at upload time.
type ListingUploadOptions struct {
	Filename  string
	SheetName string
	HeaderRow int
	PDFMode   string // "all" or "custom"
	PageStart int
	PageEnd   int
	Meta      importer.ReceiptMeta
	Actor     string
}

// ListingUploadResult starts the mapping step.
type ListingUploadResult struct {
	Token      string          `json:"token"`
	Columns    []ListingColumn `json:"columns"`
	SheetNames []string        `json:"sheetNames,omitempty"`
	PageTotal  int             `json:"pageTotal,omitempty"`
}

// ListingConfirmResult reports a confirmed reception.
type ListingConfirmResult struct {
	Created int             `json:"created"`
	Skipped int             `json:"skipped"`
	Errors  []string        `json:"errors,omitempty"`
	Receipt *models.Receipt `json:"receipt,omitempty"`
}

// WarehouseLister exposes the warehouse inventory for default resolution.
type WarehouseLister interface {
	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)
}

// ListingFlow drives a pallet-listing reception: upload, column mapping,
// row review, then a confirm that creates the receipt and receives stock in
// one transaction.
type ListingFlow struct {
	store      importer.Store
	warehouses WarehouseLister
	tx         Transactor
	sessions   SessionStore
	registry   *tabular.Registry
	tempDir    string
	log        *logrus.Logger
}

func NewListingFlow(store importer.Store, warehouses WarehouseLister, tx Transactor, sessions SessionStore, registry *tabular.Registry, tempDir string, log *logrus.Logger) *ListingFlow {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &ListingFlow{
		store:      store,
		warehouses: warehouses,
		tx:         tx,
		sessions:   sessions,
		registry:   registry,
		tempDir:    tempDir,
		log:        log,
	}
}

// BuildMappingDefaults assigns columns to fields by recognized header names.
func BuildMappingDefaults(headers []string) map[int]string {
	mapping := make(map[int]string)
	for idx, header := range headers {
		if field, ok := listingHeaderFields[tabular.NormalizeHeader(header)]; ok {
			mapping[idx] = field
		}
	}
	return mapping
}

func buildListingColumns(table *tabular.Table, mapping map[int]string) []ListingColumn {
	headers := table.DisplayHeaders()
	columns := make([]ListingColumn, 0, len(headers))
	for idx, name := range headers {
		sample := ""
		for _, row := range table.Rows {
			if idx < len(row.Cells) && !row.Cells[idx].IsBlank() {
				sample = row.Cells[idx].Text()
				break
			}
		}
		columns = append(columns, ListingColumn{
			Index:  idx,
			Name:   name,
			Sample: sample,
			Mapped: mapping[idx],
		})
	}
	return columns
}

func (f *ListingFlow) extractOptions(pending ListingPending) tabular.Options {
	opts := tabular.Options{}
	switch pending.Extension {
	case ".xlsx", ".xlsm":
		opts.SheetName = pending.SheetName
		opts.HeaderRow = pending.HeaderRow
	case ".pdf":
		if pending.PDFMode == "custom" {
			opts.PageStart = pending.PageStart
			opts.PageEnd = pending.PageEnd
		}
	}
	return opts
}

func (f *ListingFlow) loadTable(pending ListingPending) (*tabular.Table, error) {
	data, err := os.ReadFile(pending.TempPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	return f.registry.Extract("upload"+pending.Extension, data, f.extractOptions(pending))
}

// Upload validates the file and extraction options, stores the file and
// returns the mapping step. All option problems are reported together.
func (f *ListingFlow) Upload(ctx context.Context, data []byte, opts ListingUploadOptions) (*ListingUploadResult, error) {
	var problems ValidationErrors
	if len(data) > MaxUploadBytes {
		problems = append(problems, "file too large (over 10 MB)")
	}
	ext := strings.ToLower(filepath.Ext(opts.Filename))
	if !f.registry.Supports(opts.Filename) {
		if ext == ".xls" {
			problems = append(problems, "legacy .xls format is not supported, save the file as .xlsx")
		} else {
			problems = append(problems, fmt.Sprintf("unsupported file format %q", ext))
		}
		return nil, problems
	}
	if len(problems) > 0 {
		return nil, problems
	}

	pending := ListingPending{
		Token:     uuid.New().String(),
		Extension: ext,
		SheetName: opts.SheetName,
		HeaderRow: opts.HeaderRow,
		PDFMode:   opts.PDFMode,
		PageStart: opts.PageStart,
		PageEnd:   opts.PageEnd,
		Meta:      opts.Meta,
		Actor:     opts.Actor,
	}
	if pending.HeaderRow < 1 {
		if opts.HeaderRow != 0 {
			problems = append(problems, "header row must be 1 or greater")
		}
		pending.HeaderRow = 1
	}

	switch ext {
	case ".xlsx", ".xlsm":
		sheets, err := tabular.ListSheets(data)
		if err != nil {
			problems = append(problems, err.Error())
			break
		}
		pending.SheetNames = sheets
		if pending.SheetName != "" && !containsString(sheets, pending.SheetName) {
			problems = append(problems, fmt.Sprintf("unknown sheet: %s", pending.SheetName))
		}
		if pending.SheetName == "" && len(sheets) > 0 {
			pending.SheetName = sheets[0]
		}
	case ".pdf":
		total, err := tabular.PDFPageCount(data)
		if err != nil {
			problems = append(problems, err.Error())
			break
		}
		pending.PageTotal = total
		if pending.PDFMode == "custom" {
			if pending.PageStart < 1 {
				pending.PageStart = 1
			}
			if pending.PageEnd == 0 {
				pending.PageEnd = total
			}
			if pending.PageEnd < pending.PageStart || pending.PageEnd > total {
				problems = append(problems, "invalid PDF page range")
			}
		}
	}
	if len(problems) > 0 {
		return nil, problems
	}

	table, err := f.registry.Extract(opts.Filename, data, f.extractOptions(pending))
	if err != nil {
		return nil, ValidationErrors{err.Error()}
	}
	if len(table.Rows) == 0 {
		return nil, ValidationErrors{"file is empty or has no usable rows"}
	}

	temp, err := os.CreateTemp(f.tempDir, "pallet-listing-*"+ext)
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
	pending.TempPath = temp.Name()
	pending.Headers = table.DisplayHeaders()
	pending.Mapping = BuildMappingDefaults(table.Headers)

	if err := f.sessions.Put(ctx, pending.Token, pending); err != nil {
		os.Remove(temp.Name())
		return nil, err
	}
	f.log.WithFields(logrus.Fields{
		"token":   pending.Token,
		"columns": len(pending.Headers),
		"rows":    len(table.Rows),
	}).Info("Pallet listing uploaded")
	return &ListingUploadResult{
		Token:      pending.Token,
		Columns:    buildListingColumns(table, pending.Mapping),
		SheetNames: pending.SheetNames,
		PageTotal:  pending.PageTotal,
	}, nil
}

// SubmitMapping stores the operator's column assignments and builds the
// review rows. Duplicate assignments and missing required fields are all
// reported together.
func (f *ListingFlow) SubmitMapping(ctx context.Context, token string, mapping map[int]string) ([]ListingReviewRow, error) {
	var pending ListingPending
	if err := f.sessions.Get(ctx, token, &pending); err != nil {
		return nil, err
	}

	var problems ValidationErrors
	clean := make(map[int]string)
	usedBy := make(map[string]int)
	indexes := make([]int, 0, len(mapping))
	for idx := range mapping {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		field := strings.TrimSpace(mapping[idx])
		if field == "" {
			continue
		}
		if first, ok := usedBy[field]; ok {
			problems = append(problems, fmt.Sprintf("field %s assigned twice (columns %d and %d)", field, first, idx+1))
			continue
		}
		clean[idx] = field
		usedBy[field] = idx + 1
	}
	var missing []string
	for _, field := range listingRequiredFields {
		if _, ok := usedBy[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		problems = append(problems, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(problems) > 0 {
		return nil, problems
	}

	pending.Mapping = clean
	if err := f.sessions.Put(ctx, token, pending); err != nil {
		return nil, err
	}

	table, err := f.loadTable(pending)
	if err != nil {
		return nil, err
	}
	return f.buildReviewRows(ctx, table, clean)
}

// Columns rebuilds the mapping screen for a pending listing.
func (f *ListingFlow) Columns(ctx context.Context, token string) ([]ListingColumn, error) {
	var pending ListingPending
	if err := f.sessions.Get(ctx, token, &pending); err != nil {
		return nil, err
	}
	table, err := f.loadTable(pending)
	if err != nil {
		return nil, err
	}
	return buildListingColumns(table, pending.Mapping), nil
}

// Review rebuilds the review rows for a pending listing.
func (f *ListingFlow) Review(ctx context.Context, token string) ([]ListingReviewRow, error) {
	var pending ListingPending
	if err := f.sessions.Get(ctx, token, &pending); err != nil {
		return nil, err
	}
	table, err := f.loadTable(pending)
	if err != nil {
		return nil, err
	}
	return f.buildReviewRows(ctx, table, pending.Mapping)
}

// applyMapping projects raw rows through the column mapping, dropping empty
// rows. Row indexes restart at 2 to match the uploaded file's numbering.
func applyMapping(table *tabular.Table, mapping map[int]string) []map[string]string {
	var mapped []map[string]string
	for _, row := range table.Rows {
		if row.IsEmpty() {
			continue
		}
		values := make(map[string]string, len(mapping))
		for idx, field := range mapping {
			if idx < len(row.Cells) {
				values[field] = row.Cells[idx].Text()
			}
		}
		mapped = append(mapped, values)
	}
	return mapped
}

func cleanValue(raw string) string {
	return strings.TrimSpace(raw)
}

func (f *ListingFlow) buildReviewRows(ctx context.Context, table *tabular.Table, mapping map[int]string) ([]ListingReviewRow, error) {
	mapped := applyMapping(table, mapping)
	rows := make([]ListingReviewRow, 0, len(mapped))
	for i, rowValues := range mapped {
		index := i + 2

		values := make(map[string]string)
		for _, field := range listingReviewFields {
			values[field.Name] = cleanValue(rowValues[field.Name])
		}
		for _, field := range listingLocationFields {
			values[field.Name] = cleanValue(rowValues[field.Name])
		}
		values["quantity"] = cleanValue(rowValues["quantity"])
		values["rack_color"] = cleanValue(rowValues["rack_color"])

		rec := stringRecord(rowValues, index)
		identity := importer.ExtractProductIdentity(rec)
		// Listing rows never carry a SKU column worth trusting; match on
		// name and brand only.
		identity.SKU = ""
		result, err := importer.FindProductMatches(ctx, f.store, identity)
		if err != nil {
			return nil, err
		}

		options := make([]ReviewOption, 0, len(result.Candidates))
		for _, candidate := range result.Candidates {
			product, err := f.store.ProductByID(ctx, candidate.ID)
			if err != nil {
				return nil, err
			}
			if product == nil {
				continue
			}
			display, err := BuildProductDisplay(ctx, f.store, product)
			if err != nil {
				return nil, err
			}
			label := fmt.Sprintf("%s - %s", product.SKU, product.Name)
			if product.Brand != "" {
				label = fmt.Sprintf("%s (%s)", label, product.Brand)
			}
			options = append(options, ReviewOption{
				Value: "product:" + product.ID.String(),
				Label: label,
				Data:  display,
			})
		}

		var existing map[string]string
		defaultMatch := "new"
		if len(options) > 0 {
			existing = options[0].Data
			defaultMatch = options[0].Value
		}
		if existing != nil {
			for _, field := range listingLocationFields {
				if values[field.Name] == "" {
					values[field.Name] = existing[field.Name]
				}
			}
		}

		fields := make([]ReviewField, 0, len(listingReviewFields))
		for _, field := range listingReviewFields {
			rf := ReviewField{Name: field.Name, Label: field.Label, Value: values[field.Name]}
			if existing != nil {
				rf.Existing = existing[field.Name]
			}
			fields = append(fields, rf)
		}
		locations := make([]ReviewField, 0, len(listingLocationFields))
		for _, field := range listingLocationFields {
			rf := ReviewField{Name: field.Name, Label: field.Label, Value: values[field.Name]}
			if existing != nil {
				rf.Existing = existing[field.Name]
			}
			locations = append(locations, rf)
		}

		matchType := "-"
		if result.Tier == importer.MatchNameBrand {
			matchType = "Nom + Marque"
		}
		rows = append(rows, ListingReviewRow{
			Index:        index,
			Values:       values,
			Fields:       fields,
			Locations:    locations,
			MatchType:    matchType,
			Options:      options,
			DefaultMatch: defaultMatch,
		})
	}
	return rows, nil
}

// Confirm receives the reviewed rows into stock under one new receipt, all
// inside a single transaction. Rows the operator left out of the payload
// fall back to their extracted values with the default selection.
func (f *ListingFlow) Confirm(ctx context.Context, token string, payloads []importer.ListingRowPayload) (*ListingConfirmResult, error) {
	var pending ListingPending
	if err := f.sessions.Get(ctx, token, &pending); err != nil {
		return nil, err
	}

	warehouse, err := f.defaultWarehouse(ctx)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, importer.Invalid("no warehouse configured")
	}

	var result importer.ListingApplyResult
	err = f.tx.TransactionReceipts(ctx, func(store importer.Store, receipts importer.ReceiptStore, ledger importer.ReceiptLedger) error {
		var err error
		result, err = importer.NewPalletImporter(store, receipts, ledger).
			Apply(ctx, payloads, warehouse, pending.Meta, pending.Actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.cleanup(ctx, pending)
	f.log.WithFields(logrus.Fields{
		"token":   token,
		"created": result.Created,
		"skipped": result.Skipped,
		"errors":  len(result.Errors),
	}).Info("Pallet listing confirmed")
	return &ListingConfirmResult{
		Created: result.Created,
		Skipped: result.Skipped,
		Errors:  result.Errors,
		Receipt: result.Receipt,
	}, nil
}

// Cancel drops a pending listing and its temp file.
func (f *ListingFlow) Cancel(ctx context.Context, token string) error {
	var pending ListingPending
	if err := f.sessions.Get(ctx, token, &pending); err != nil {
		return err
	}
	f.cleanup(ctx, pending)
	return nil
}

func (f *ListingFlow) cleanup(ctx context.Context, pending ListingPending) {
	if pending.TempPath != "" {
		if err := os.Remove(pending.TempPath); err != nil && !os.IsNotExist(err) {
			f.log.WithError(err).Warn("Failed to remove listing temp file")
		}
	}
	if err := f.sessions.Delete(ctx, pending.Token); err != nil {
		f.log.WithError(err).Warn("Failed to drop listing session")
	}
}

// defaultWarehouse picks the reception warehouse: code REC, then a
// warehouse named Reception, then the first by name.
func (f *ListingFlow) defaultWarehouse(ctx context.Context) (*models.Warehouse, error) {
	warehouses, err := f.warehouses.ListWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	if len(warehouses) == 0 {
		return nil, nil
	}
	for i := range warehouses {
		if strings.EqualFold(warehouses[i].Code, "REC") {
			return &warehouses[i], nil
		}
	}
	for i := range warehouses {
		if strings.EqualFold(warehouses[i].Name, "Reception") {
			return &warehouses[i], nil
		}
	}
	return &warehouses[0], nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
