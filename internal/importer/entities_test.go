package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

func TestImportLocationsCreatesSlot(t *testing.T) {
	store := newMemStore()
	summary, err := ImportLocations(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{
			"entrepot": "Principal", "zone": "a", "etagere": "1", "bac": "b2",
			"rack_color": "rouge", "notes": "haut du rack",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	require.Len(t, store.locations, 1)
	loc := store.locations[0]
	assert.Equal(t, "A", loc.Zone)
	assert.Equal(t, "B2", loc.Shelf)
	assert.Equal(t, "haut du rack", loc.Notes)
	assert.Equal(t, "rouge", store.rackColors[loc.WarehouseID.String()+"|A"])
}

func TestImportLocationsRequiresAllSlotFields(t *testing.T) {
	store := newMemStore()
	summary, err := ImportLocations(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"entrepot": "Principal", "zone": "A"}),
	})
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "Row 2: required fields: warehouse, zone, aisle, shelf", summary.Errors[0])
}

func TestImportWarehousesDedupAndCodeUpdate(t *testing.T) {
	store := newMemStore()
	summary, err := ImportWarehouses(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"name": "Reception", "code": "REC"}),
		rec(3, map[string]string{"name": "reception", "code": "RC2"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	require.Len(t, store.warehouses, 1)
	assert.Equal(t, "RC2", store.warehouses[0].Code)
}

func TestImportCategoriesPathColumn(t *testing.T) {
	store := newMemStore()
	summary, err := ImportCategories(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"path": "materiel medical > gants d'examen"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	require.Len(t, store.categories, 2)
	assert.Equal(t, "MATERIEL MEDICAL", store.categories[0].Name)
	assert.Equal(t, "Gants D'Examen", store.categories[1].Name)
	require.NotNil(t, store.categories[1].ParentID)
	assert.Equal(t, store.categories[0].ID, *store.categories[1].ParentID)
}

func TestImportCategoriesNameWithParent(t *testing.T) {
	store := newMemStore()
	summary, err := ImportCategories(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"name": "masques", "parent": "epi"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	require.Len(t, store.categories, 2)
	assert.Equal(t, "EPI", store.categories[0].Name)
	assert.Equal(t, "Masques", store.categories[1].Name)
}

func TestImportUsersCreateAndUpdate(t *testing.T) {
	store := newMemStore()
	summary, err := ImportUsers(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"username": "jdoe", "email": "jdoe@example.org", "is_staff": "oui"}),
	}, "changeme")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	require.Len(t, store.users, 1)
	user := store.users[0]
	assert.True(t, user.IsStaff)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("changeme")))

	summary, err = ImportUsers(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"username": "JDOE", "email": "new@example.org"}),
	}, "changeme")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	require.Len(t, store.users, 1)
	assert.Equal(t, "new@example.org", store.users[0].Email)
}

func TestImportUsersBadBooleanCreatesNothing(t *testing.T) {
	store := newMemStore()
	summary, err := ImportUsers(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"username": "jdoe", "is_staff": "peut-etre"}),
	}, "changeme")
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "Row 2:")
	// The row failed before any write, so no account exists.
	assert.Empty(t, store.users)
}

func TestImportUsersPasswordOnlyChangeNotCountedAsUpdate(t *testing.T) {
	store := newMemStore()
	_, err := ImportUsers(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"username": "jdoe"}),
	}, "changeme")
	require.NoError(t, err)
	require.Len(t, store.users, 1)
	oldHash := store.users[0].PasswordHash

	summary, err := ImportUsers(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"username": "jdoe", "password": "s3cret"}),
	}, "")
	require.NoError(t, err)
	assert.Zero(t, summary.Updated)
	assert.Zero(t, summary.Created)
	// The hash still changed even though the tally did not.
	assert.NotEqual(t, oldHash, store.users[0].PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.users[0].PasswordHash), []byte("s3cret")))
}

func TestImportUsersPasswordRequired(t *testing.T) {
	store := newMemStore()
	summary, err := ImportUsers(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"username": "jdoe"}),
	}, "")
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "password required")
	assert.Empty(t, store.users)
}

func TestImportContactsOrganizationNeedsTag(t *testing.T) {
	store := newMemStore()
	summary, err := ImportContacts(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"nom": "ACME", "type": "organization"}),
	})
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "Row 2: tag required for an organization", summary.Errors[0])
}

func TestImportContactsBadBooleanIsRowError(t *testing.T) {
	store := newMemStore()
	summary, err := ImportContacts(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{
			"nom":       "ACME",
			"type":      "organization",
			"tags":      "fournisseur",
			"is_active": "peut-etre",
		}),
	})
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "Row 2:")
	assert.Zero(t, summary.Created)
	// The row failed before any write.
	assert.Empty(t, store.contacts)
}

func TestImportContactsCreateWithDestination(t *testing.T) {
	store := newMemStore()
	summary, err := ImportContacts(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{
			"nom":         "ACME",
			"type":        "organization",
			"tags":        "fournisseur",
			"destination": "Antananarivo (TNR) - Madagascar",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Empty(t, summary.Errors)

	contact, err := store.ContactByNameType(context.Background(), "acme", models.ContactOrganization)
	require.NoError(t, err)
	require.NotNil(t, contact)
	require.Len(t, contact.Destinations, 1)
	dest := contact.Destinations[0]
	assert.Equal(t, "Antananarivo", dest.City)
	assert.Equal(t, "TNR", dest.IATACode)
	assert.Equal(t, "Madagascar", dest.Country)
	require.NotNil(t, contact.DestinationID)
	assert.Equal(t, dest.ID, *contact.DestinationID)
}

func TestImportContactsMergesTagsWithWarning(t *testing.T) {
	store := newMemStore()
	_, err := ImportContacts(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"nom": "ACME", "tags": "fournisseur"}),
	})
	require.NoError(t, err)

	summary, err := ImportContacts(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{"nom": "ACME", "tags": "fournisseur | transporteur"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "tags merged (added: transporteur)")
}

func TestImportContactsPersonAttachesOrganization(t *testing.T) {
	store := newMemStore()
	summary, err := ImportContacts(context.Background(), store, []tabular.Record{
		rec(2, map[string]string{
			"type":    "person",
			"prenom":  "Jean",
			"nom":     "Dupont",
			"societe": "ACME",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	person, err := store.ContactByNameType(context.Background(), "Jean Dupont", models.ContactPerson)
	require.NoError(t, err)
	require.NotNil(t, person)
	require.NotNil(t, person.OrganizationID)

	org, err := store.ContactByNameType(context.Background(), "ACME", models.ContactOrganization)
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, org.ID, *person.OrganizationID)
}

func TestImportContactsAddressDedup(t *testing.T) {
	store := newMemStore()
	row := map[string]string{
		"nom":           "ACME",
		"tags":          "fournisseur",
		"address_line1": "1 rue de la Paix",
		"code_postal":   "75002",
		"ville":         "Paris",
	}
	_, err := ImportContacts(context.Background(), store, []tabular.Record{rec(2, row)})
	require.NoError(t, err)
	_, err = ImportContacts(context.Background(), store, []tabular.Record{rec(2, row)})
	require.NoError(t, err)
	require.Len(t, store.addresses, 1)
	assert.Equal(t, "France", store.addresses[0].Country)
}

func TestGetOrCreateDestinationParsing(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	d, err := GetOrCreateDestination(ctx, store, "Antananarivo (TNR) - Madagascar", nil, nil, "", "")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "TNR", d.IATACode)

	// Matching by IATA code returns the same destination.
	again, err := GetOrCreateDestination(ctx, store, "TNR", nil, nil, "", "")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, d.ID, again.ID)

	// A city-only label gets a generated code and default country.
	city, err := GetOrCreateDestination(ctx, store, "Mahajanga gare", nil, nil, "", "")
	require.NoError(t, err)
	require.NotNil(t, city)
	assert.Equal(t, "Mahajanga gare", city.City)
	assert.Equal(t, "MAHAJANGAG", city.IATACode)
	assert.Equal(t, "France", city.Country)
	require.NotNil(t, city.CorrespondentContactID)
}

func TestGetOrCreateDestinationReusesTaggedCorrespondent(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	existing := &models.Contact{
		Name:        "Rakoto Import",
		ContactType: models.ContactOrganization,
		IsActive:    true,
		Tags:        []models.ContactTag{{Name: "Correspondant"}},
	}
	require.NoError(t, store.CreateContact(ctx, existing))

	d, err := GetOrCreateDestination(ctx, store, "Toamasina", nil, nil, "", "")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.NotNil(t, d.CorrespondentContactID)
	assert.Equal(t, existing.ID, *d.CorrespondentContactID)

	// No placeholder contact was created alongside the tagged one.
	placeholder, err := store.ContactByNameType(ctx, "Correspondant par defaut", models.ContactOrganization)
	require.NoError(t, err)
	assert.Nil(t, placeholder)
}
