package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

var (
	destinationKeys  = []string{"destination", "dest", "destination_name"}
	destinationsKeys = []string{"destinations", "destination_scope", "destinations_scope"}
	linkedShipperKey = []string{"linked_shippers", "expediteurs_lies", "expediteurs_lie"}
)

// ImportContacts imports contact rows, deduplicating case-insensitively by
// (name, type). Tags merge into an existing contact's set with a warning
// naming the additions; organizations must end up with at least one tag.
func ImportContacts(ctx context.Context, store ContactStore, recs []tabular.Record) (models.ImportSummary, error) {
	var summary models.ImportSummary
	for _, rec := range recs {
		if recordIsEmpty(rec) {
			continue
		}
		if err := importContactRecord(ctx, store, rec, &summary); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				summary.AddError(fmt.Sprintf("Row %d: %s", rec.Origin, verr.Message))
				continue
			}
			return summary, err
		}
	}
	return summary, nil
}

func parseContactType(rec tabular.Record) models.ContactType {
	raw, _ := ParseStr(GetValue(rec, "contact_type", "type"))
	normalized := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(normalized, "p"), strings.HasPrefix(normalized, "indiv"):
		return models.ContactPerson
	default:
		return models.ContactOrganization
	}
}

func importContactRecord(ctx context.Context, store ContactStore, rec tabular.Record, summary *models.ImportSummary) error {
	kind := parseContactType(rec)

	name, _ := ParseStr(GetValue(rec, "name", "nom", "raison_sociale"))
	firstName := optStr(rec, "first_name", "prenom")
	lastName := optStr(rec, "last_name", "nom_personne", "nom_famille")

	// A person row whose "name" column actually held the family name.
	if kind == models.ContactPerson && lastName == nil && name != "" && firstName != nil {
		lastName = &name
		name = ""
	}
	if kind == models.ContactOrganization && name == "" {
		if lastName != nil {
			name = *lastName
		} else if org, ok := ParseStr(GetValue(rec, "societe", "company", "organisation")); ok {
			name = org
		}
	}

	if kind == models.ContactOrganization && name == "" {
		return Invalid("contact name required")
	}
	if kind == models.ContactPerson && name == "" && firstName == nil && lastName == nil {
		return Invalid("name or first name required for a person")
	}

	lookup := name
	if lookup == "" {
		var parts []string
		if firstName != nil {
			parts = append(parts, *firstName)
		}
		if lastName != nil {
			parts = append(parts, *lastName)
		}
		lookup = strings.TrimSpace(strings.Join(parts, " "))
	}
	if lookup == "" {
		return Invalid("contact name required")
	}

	contact, err := store.ContactByNameType(ctx, lookup, kind)
	if err != nil {
		return err
	}
	wasCreated := false
	if contact == nil {
		contact = &models.Contact{Name: lookup, ContactType: kind, IsActive: true}
		wasCreated = true
	}

	// Fields are applied before the first store write so a bad cell cannot
	// leave a half-imported contact behind.
	changed, err := applyContactFields(contact, rec, name)
	if err != nil {
		return err
	}
	if wasCreated {
		if err := store.CreateContact(ctx, contact); err != nil {
			return err
		}
		summary.Created++
	} else if changed {
		if err := store.SaveContact(ctx, contact); err != nil {
			return err
		}
		summary.Updated++
	}

	tags, err := buildContactTags(ctx, store, GetValue(rec, "tags", "etiquettes"))
	if err != nil {
		return err
	}
	if contact.ContactType == models.ContactOrganization && len(tags) == 0 {
		existing, err := store.ContactTagsOf(ctx, contact)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			return Invalid("tag required for an organization")
		}
	}
	if len(tags) > 0 {
		if err := mergeContactTags(ctx, store, contact, tags, wasCreated, rec.Origin, summary); err != nil {
			return err
		}
	}

	if kind == models.ContactPerson {
		if err := attachOrganization(ctx, store, contact, rec); err != nil {
			return err
		}
	}
	if err := resolveContactDestinations(ctx, store, contact, rec, tags); err != nil {
		return err
	}
	if err := resolveLinkedShippers(ctx, store, contact, rec, summary); err != nil {
		return err
	}
	return importContactAddress(ctx, store, contact, rec)
}

func applyContactFields(contact *models.Contact, rec tabular.Record, name string) (bool, error) {
	changed := false
	set := func(dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = true
		}
	}
	if name != "" && contact.Name != name {
		contact.Name = name
		changed = true
	}
	set(&contact.Title, optStr(rec, "title", "titre"))
	set(&contact.FirstName, optStr(rec, "first_name", "prenom"))
	set(&contact.LastName, optStr(rec, "last_name", "nom_personne", "nom_famille"))
	set(&contact.Role, optStr(rec, "role", "fonction"))
	set(&contact.Email, optStr(rec, "email", "mail"))
	set(&contact.Email2, optStr(rec, "email2", "mail2"))
	set(&contact.Phone, optStr(rec, "phone", "telephone", "tel"))
	set(&contact.Phone2, optStr(rec, "phone2", "telephone2", "tel2"))
	set(&contact.SIRET, optStr(rec, "siret"))
	set(&contact.VATNumber, optStr(rec, "vat_number", "tva", "vat"))
	set(&contact.LegalRegistrationNumber, optStr(rec, "legal_registration_number", "numero_enregistrement_legal"))
	set(&contact.Notes, optStr(rec, "notes", "note"))

	// External reference is write-once.
	if ref := optStr(rec, "external_ref", "reference_externe"); ref != nil && contact.ExternalRef == "" {
		contact.ExternalRef = *ref
		changed = true
	}
	if v, ok, err := ParseBool(GetValue(rec, "is_active", "actif")); err != nil {
		return changed, err
	} else if ok && contact.IsActive != v {
		contact.IsActive = v
		changed = true
	}
	if v, ok, err := ParseBool(GetValue(rec, "use_organization_address", "adresse_societe")); err != nil {
		return changed, err
	} else if ok && contact.UseOrganizationAddress != v {
		contact.UseOrganizationAddress = v
		changed = true
	}
	return changed, nil
}

func buildContactTags(ctx context.Context, store ContactStore, cell tabular.Cell) ([]models.ContactTag, error) {
	var tags []models.ContactTag
	for _, name := range ParseTokens(cell) {
		tag, err := store.GetOrCreateContactTag(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

func mergeContactTags(ctx context.Context, store ContactStore, contact *models.Contact, tags []models.ContactTag, wasCreated bool, origin int, summary *models.ImportSummary) error {
	if wasCreated {
		return store.AddContactTags(ctx, contact, tags)
	}
	existing, err := store.ContactTagsOf(ctx, contact)
	if err != nil {
		return err
	}
	existingNames := make(map[string]bool, len(existing))
	for _, t := range existing {
		existingNames[t.Name] = true
	}
	var added []models.ContactTag
	for _, t := range tags {
		if !existingNames[t.Name] {
			added = append(added, t)
		}
	}
	if len(added) == 0 {
		return nil
	}
	if err := store.AddContactTags(ctx, contact, added); err != nil {
		return err
	}
	names := make([]string, len(added))
	for i, t := range added {
		names[i] = t.Name
	}
	sort.Strings(names)
	summary.AddWarning(fmt.Sprintf("Row %d: tags merged (added: %s)", origin, strings.Join(names, ", ")))
	return nil
}

func attachOrganization(ctx context.Context, store ContactStore, contact *models.Contact, rec tabular.Record) error {
	orgName, _ := ParseStr(GetValue(rec, "organization", "societe", "company", "organisation"))
	if contact.UseOrganizationAddress && orgName == "" && contact.OrganizationID == nil {
		return Invalid("organization required to use its address")
	}
	if orgName == "" {
		return nil
	}
	org, err := store.ContactByNameType(ctx, orgName, models.ContactOrganization)
	if err != nil {
		return err
	}
	if org == nil {
		org = &models.Contact{
			Name:        orgName,
			ContactType: models.ContactOrganization,
			IsActive:    true,
		}
		if err := store.CreateContact(ctx, org); err != nil {
			return err
		}
	}
	contact.OrganizationID = &org.ID
	return store.SaveContact(ctx, contact)
}

func splitMultiValues(cell tabular.Cell) []string {
	s, ok := ParseStr(cell)
	if !ok {
		return nil
	}
	var out []string
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == '\n'
	}) {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func recordHasAnyKey(rec tabular.Record, keyGroups ...[]string) bool {
	for _, group := range keyGroups {
		for _, k := range group {
			if _, ok := rec.Cells[k]; ok {
				return true
			}
		}
	}
	return false
}

// resolveContactDestinations replaces the contact's destination scope when
// any destination column was present in the row. The legacy single
// destination field mirrors the scope when it holds exactly one entry.
func resolveContactDestinations(ctx context.Context, store ContactStore, contact *models.Contact, rec tabular.Record, tags []models.ContactTag) error {
	if !recordHasAnyKey(rec, destinationKeys, destinationsKeys) {
		return nil
	}
	fallbackCity, _ := ParseStr(GetValue(rec, "city", "ville"))
	fallbackCountry, _ := ParseStr(GetValue(rec, "country", "pays"))

	var tokens []string
	for _, key := range append(append([]string{}, destinationsKeys...), destinationKeys...) {
		tokens = append(tokens, splitMultiValues(rec.Get(key))...)
	}

	var dests []models.Destination
	seen := make(map[string]bool)
	for _, token := range tokens {
		d, err := GetOrCreateDestination(ctx, store, token, contact, tags, fallbackCity, fallbackCountry)
		if err != nil {
			return err
		}
		if d != nil && !seen[d.ID.String()] {
			seen[d.ID.String()] = true
			dests = append(dests, *d)
		}
	}
	if err := store.SetContactDestinations(ctx, contact, dests); err != nil {
		return err
	}

	var legacyID *models.Destination
	if len(dests) == 1 {
		legacyID = &dests[0]
	}
	switch {
	case legacyID == nil && contact.DestinationID != nil:
		contact.DestinationID = nil
		return store.SaveContact(ctx, contact)
	case legacyID != nil && (contact.DestinationID == nil || *contact.DestinationID != legacyID.ID):
		contact.DestinationID = &legacyID.ID
		return store.SaveContact(ctx, contact)
	}
	return nil
}

// resolveLinkedShippers replaces the contact's linked-shipper set when a
// linked-shippers column was present, creating missing shipper contacts
// with a warning.
func resolveLinkedShippers(ctx context.Context, store ContactStore, contact *models.Contact, rec tabular.Record, summary *models.ImportSummary) error {
	if !recordHasAnyKey(rec, linkedShipperKey) {
		return nil
	}
	var names []string
	for _, key := range linkedShipperKey {
		names = append(names, splitMultiValues(rec.Get(key))...)
	}

	shipperTag, err := store.GetOrCreateContactTag(ctx, shipperTagName)
	if err != nil {
		return err
	}
	var shippers []models.Contact
	seen := make(map[string]bool)
	for _, name := range names {
		shipper, err := store.ContactByNameType(ctx, name, models.ContactOrganization)
		if err != nil {
			return err
		}
		if shipper == nil {
			shipper = &models.Contact{
				Name:        name,
				ContactType: models.ContactOrganization,
				IsActive:    true,
				Notes:       "created automatically from linked_shippers",
			}
			if err := store.CreateContact(ctx, shipper); err != nil {
				return err
			}
			summary.AddWarning(fmt.Sprintf("Row %d: linked shipper created automatically (%s)", rec.Origin, name))
		}
		if err := store.AddContactTags(ctx, shipper, []models.ContactTag{*shipperTag}); err != nil {
			return err
		}
		if !seen[shipper.ID.String()] {
			seen[shipper.ID.String()] = true
			shippers = append(shippers, *shipper)
		}
	}
	return store.SetLinkedShippers(ctx, contact, shippers)
}

func importContactAddress(ctx context.Context, store ContactStore, contact *models.Contact, rec tabular.Record) error {
	line1, ok := ParseStr(GetValue(rec, "address_line1", "adresse"))
	if !ok || contact.UseOrganizationAddress {
		return nil
	}
	orEmpty := func(keys ...string) string {
		s, _ := ParseStr(GetValue(rec, keys...))
		return s
	}
	addr := models.ContactAddress{
		ContactID:  contact.ID,
		Label:      orEmpty("address_label", "label"),
		Line1:      line1,
		Line2:      orEmpty("address_line2"),
		PostalCode: orEmpty("postal_code", "code_postal"),
		City:       orEmpty("city", "ville"),
		Region:     orEmpty("region"),
		Country:    orEmpty("country", "pays"),
		Phone:      orEmpty("address_phone"),
		Email:      orEmpty("address_email"),
	}
	if addr.Country == "" {
		addr.Country = "France"
	}

	existing, err := store.FindContactAddress(ctx, contact.ID, addr)
	if err != nil {
		return err
	}
	if existing == nil {
		return store.CreateContactAddress(ctx, &addr)
	}

	changed := false
	update := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	update(&existing.Label, addr.Label)
	update(&existing.Region, addr.Region)
	update(&existing.Phone, addr.Phone)
	update(&existing.Email, addr.Email)
	if changed {
		return store.SaveContactAddress(ctx, existing)
	}
	return nil
}
