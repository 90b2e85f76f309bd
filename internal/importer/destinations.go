package importer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"wms-service/internal/models"
)

// destinationLabelRe parses labels shaped like "City (IATA) - Country",
// country optional.
var destinationLabelRe = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)\s*(?:-\s*(.+))?$`)

var bareCodeRe = regexp.MustCompile(`^[A-Za-z0-9]{2,10}$`)

var nonAlnumRe = regexp.MustCompile(`[^A-Za-z0-9]`)

// Contacts tagged with one of these names act as destination correspondents.
var correspondentTagNames = []string{"correspondant", "correspondent"}

const shipperTagName = "expediteur"

// parseDestinationLabel splits a free-text destination into city, IATA code
// and country; every part may come back empty.
func parseDestinationLabel(raw string) (city, iata, country string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", "", ""
	}
	if m := destinationLabelRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
	}
	if strings.Contains(text, " - ") {
		var parts []string
		for _, p := range strings.Split(text, " - ") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) >= 2 {
			return parts[0], "", parts[1]
		}
	}
	if bareCodeRe.MatchString(text) {
		return "", text, ""
	}
	return text, "", ""
}

// generateDestinationCode derives an unused code from a city name, appending
// a numeric suffix on collision.
func generateDestinationCode(ctx context.Context, store ContactStore, base string) (string, error) {
	cleaned := strings.ToUpper(nonAlnumRe.ReplaceAllString(base, ""))
	if len(cleaned) > 10 {
		cleaned = cleaned[:10]
	}
	if cleaned == "" {
		cleaned = "DEST"
	}
	candidate := cleaned
	for suffix := 2; ; suffix++ {
		existing, err := store.DestinationByIATA(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		digits := fmt.Sprintf("%d", suffix)
		keep := 10 - len(digits)
		if keep < 1 {
			keep = 1
		}
		trimmed := cleaned
		if len(trimmed) > keep {
			trimmed = trimmed[:keep]
		}
		candidate = trimmed + digits
	}
}

func tagsIncludeCorrespondent(tags []models.ContactTag) bool {
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag.Name))
		for _, want := range correspondentTagNames {
			if name == want {
				return true
			}
		}
	}
	return false
}

// GetOrCreateDestination resolves a destination from a free-text label,
// matching by IATA code first, then city (+country when known), creating one
// with a generated code and a correspondent contact otherwise.
func GetOrCreateDestination(ctx context.Context, store ContactStore, raw string, contact *models.Contact, tags []models.ContactTag, fallbackCity, fallbackCountry string) (*models.Destination, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	city, iata, country := parseDestinationLabel(raw)

	if iata != "" {
		d, err := store.DestinationByIATA(ctx, iata)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	if city != "" {
		d, err := store.DestinationByCity(ctx, city)
		if err != nil {
			return nil, err
		}
		searchCountry := country
		if searchCountry == "" {
			searchCountry = fallbackCountry
		}
		if d != nil && (searchCountry == "" || strings.EqualFold(d.Country, searchCountry)) {
			return d, nil
		}
	}

	resolvedCity := city
	if resolvedCity == "" {
		resolvedCity = fallbackCity
	}
	if resolvedCity == "" {
		resolvedCity = strings.TrimSpace(raw)
	}
	resolvedCountry := country
	if resolvedCountry == "" {
		resolvedCountry = fallbackCountry
	}
	if resolvedCountry == "" {
		resolvedCountry = "France"
	}

	existing, err := store.DestinationByCity(ctx, resolvedCity)
	if err != nil {
		return nil, err
	}
	if existing != nil && strings.EqualFold(existing.Country, resolvedCountry) {
		return existing, nil
	}

	resolvedIATA := iata
	if resolvedIATA == "" {
		if resolvedIATA, err = generateDestinationCode(ctx, store, resolvedCity); err != nil {
			return nil, err
		}
	}

	var correspondent *models.Contact
	if contact != nil && tagsIncludeCorrespondent(tags) {
		correspondent = contact
	} else if correspondent, err = defaultCorrespondent(ctx, store); err != nil {
		return nil, err
	}

	dest := &models.Destination{
		City:     resolvedCity,
		IATACode: strings.ToUpper(resolvedIATA),
		Country:  resolvedCountry,
	}
	if correspondent != nil {
		dest.CorrespondentContactID = &correspondent.ID
	}
	if err := store.CreateDestination(ctx, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// defaultCorrespondent picks the fallback correspondent contact used for
// destinations that arrive without one. Any active contact already tagged as
// a correspondent wins; the placeholder contact is only created when none
// exists.
func defaultCorrespondent(ctx context.Context, store ContactStore) (*models.Contact, error) {
	tagged, err := store.ActiveContactByTagNames(ctx, correspondentTagNames)
	if err != nil {
		return nil, err
	}
	if tagged != nil {
		return tagged, nil
	}

	const defaultName = "Correspondant par defaut"
	contact, err := store.ContactByNameType(ctx, defaultName, models.ContactOrganization)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		contact = &models.Contact{
			Name:        defaultName,
			ContactType: models.ContactOrganization,
			IsActive:    true,
		}
		if err := store.CreateContact(ctx, contact); err != nil {
			return nil, err
		}
	}
	tag, err := store.GetOrCreateContactTag(ctx, correspondentTagNames[0])
	if err != nil {
		return nil, err
	}
	if err := store.AddContactTags(ctx, contact, []models.ContactTag{*tag}); err != nil {
		return nil, err
	}
	return contact, nil
}
