package importer

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

// ImportUsers imports operator accounts, deduplicating by username. A new
// account needs a password column or the configured default password.
func ImportUsers(ctx context.Context, store UserStore, recs []tabular.Record, defaultPassword string) (models.ImportSummary, error) {
	var summary models.ImportSummary
	for _, rec := range recs {
		if recordIsEmpty(rec) {
			continue
		}
		if err := importUserRecord(ctx, store, rec, defaultPassword, &summary); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				summary.AddError(fmt.Sprintf("Row %d: %s", rec.Origin, verr.Message))
				continue
			}
			return summary, err
		}
	}
	return summary, nil
}

func importUserRecord(ctx context.Context, store UserStore, rec tabular.Record, defaultPassword string, summary *models.ImportSummary) error {
	username, ok := ParseStr(GetValue(rec, "username", "login"))
	if !ok {
		return Invalid("username required")
	}
	password, _ := ParseStr(GetValue(rec, "password", "mot_de_passe"))

	user, err := store.UserByUsername(ctx, username)
	if err != nil {
		return err
	}
	creating := user == nil
	if creating {
		if password == "" && defaultPassword == "" {
			return Invalid("password required (password column or configured default)")
		}
		user = &models.User{Username: username, IsActive: true}
	}

	// Parse every field before the first store write so a bad cell cannot
	// leave a half-imported account behind.
	changed := false
	set := func(dst *string, keys ...string) {
		if v := optStr(rec, keys...); v != nil && *dst != *v {
			*dst = *v
			changed = true
		}
	}
	set(&user.Email, "email")
	set(&user.FirstName, "first_name", "prenom")
	set(&user.LastName, "last_name", "nom")
	setBool := func(dst *bool, keys ...string) error {
		v, ok, err := ParseBool(GetValue(rec, keys...))
		if err != nil {
			return err
		}
		if ok && *dst != v {
			*dst = v
			changed = true
		}
		return nil
	}
	if err := setBool(&user.IsStaff, "is_staff", "staff"); err != nil {
		return err
	}
	if err := setBool(&user.IsSuperuser, "is_superuser", "admin"); err != nil {
		return err
	}
	if err := setBool(&user.IsActive, "is_active", "actif"); err != nil {
		return err
	}

	if password == "" && creating {
		password = defaultPassword
	}
	passwordChanged := false
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
		passwordChanged = true
	}

	if creating {
		if err := store.CreateUser(ctx, user); err != nil {
			return err
		}
		summary.Created++
		return nil
	}
	if changed || passwordChanged {
		if err := store.SaveUser(ctx, user); err != nil {
			return err
		}
	}
	// A password refresh alone is persisted but not reported as an update.
	if changed {
		summary.Updated++
	}
	return nil
}
