// database/lookup.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/gewnthar/ulsync/models"
)

// SearchQuery filters licenses by licensee name and region. Name is a LIKE
// pattern over lower-cased name columns; an empty field does not filter.
type SearchQuery struct {
	NamePattern  string
	Region       string
	ActiveOnly   bool
	ActiveStatus string
	// Limit caps the distinct licenses returned; 0 means no cap.
	Limit int
}

const licenseViewColumns = `
	hd.unique_system_identifier, hd.call_sign, hd.license_status, hd.radio_service_code,
	hd.grant_date, hd.expired_date, hd.cancellation_date,
	COALESCE(en.entity_type, ''), COALESCE(en.entity_name, ''), COALESCE(en.first_name, ''),
	COALESCE(en.mi, ''), COALESCE(en.last_name, ''), COALESCE(en.suffix, ''),
	COALESCE(en.street_address, ''), COALESCE(en.city, ''), COALESCE(en.state, ''),
	COALESCE(en.zip_code, ''), COALESCE(en.fcc_registration_number, ''), COALESCE(en.applicant_type_code, ''),
	COALESCE(am.operator_class, ''), COALESCE(am.previous_call_sign, '')`

// licenseFrom joins a license to its entity and amateur rows. The licensee
// entity row (type L) sorts ahead of contacts.
func licenseFrom(d Dialect, enJoin string) string {
	return fmt.Sprintf(`FROM %s hd
	%s %s en ON en.unique_system_identifier = hd.unique_system_identifier
	LEFT JOIN %s am ON am.unique_system_identifier = hd.unique_system_identifier`,
		d.Quote(string(models.KindHD)), enJoin, d.Quote(string(models.KindEN)), d.Quote(string(models.KindAM)))
}

const licenseOrder = `ORDER BY hd.call_sign, CASE WHEN en.entity_type = 'L' THEN 0 ELSE 1 END, hd.unique_system_identifier`

func scanLicenseView(rows *sql.Rows) (models.LicenseView, error) {
	var v models.LicenseView
	var status, radio sql.NullString
	err := rows.Scan(
		&v.UniqueSystemIdentifier, &v.CallSign, &status, &radio,
		&v.GrantDate, &v.ExpiredDate, &v.CancellationDate,
		&v.EntityType, &v.EntityName, &v.FirstName,
		&v.MI, &v.LastName, &v.Suffix,
		&v.StreetAddress, &v.City, &v.State,
		&v.ZipCode, &v.FRN, &v.ApplicantTypeCode,
		&v.OperatorClass, &v.PreviousCallSign,
	)
	v.LicenseStatus = status.String
	v.RadioServiceCode = radio.String
	return v, err
}

// collectLicenses reads license rows, keeping the first row per license, up
// to limit distinct licenses (0 = all).
func collectLicenses(rows *sql.Rows, limit int) ([]models.LicenseView, error) {
	defer rows.Close()
	var out []models.LicenseView
	seen := map[int64]bool{}
	for rows.Next() {
		v, err := scanLicenseView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan license row: %w", err)
		}
		if seen[v.UniqueSystemIdentifier] {
			continue
		}
		seen[v.UniqueSystemIdentifier] = true
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

// LicenseByCallSign returns the license holding callSign, or nil when there
// is none (or none active when activeOnly is set). Matching ignores case.
func (s *Store) LicenseByCallSign(ctx context.Context, callSign string, activeOnly bool, activeStatus string) (*models.LicenseView, error) {
	where := []string{"hd.call_sign = ?"}
	args := []any{callSign}
	if activeOnly {
		where = append(where, "hd.license_status = ?")
		args = append(args, activeStatus)
	}
	q := fmt.Sprintf("SELECT %s\n%s\nWHERE %s\n%s",
		licenseViewColumns, licenseFrom(s.dialect, "LEFT JOIN"), strings.Join(where, " AND "), licenseOrder)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", callSign, err)
	}
	views, err := collectLicenses(rows, 1)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, nil
	}
	return &views[0], nil
}

// SearchLicenses finds licenses whose licensee name matches the pattern
// and/or whose entity sits in the region.
func (s *Store) SearchLicenses(ctx context.Context, sq SearchQuery) ([]models.LicenseView, error) {
	if sq.NamePattern == "" && sq.Region == "" {
		return nil, fmt.Errorf("search needs a name or a region")
	}
	var where []string
	var args []any
	if sq.NamePattern != "" {
		var ors []string
		for _, col := range []string{"entity_name", "first_name", "last_name"} {
			ors = append(ors, fmt.Sprintf("LOWER(en.%s) LIKE ?%s", col, s.dialect.LikeEscape()))
			args = append(args, sq.NamePattern)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if sq.Region != "" {
		where = append(where, "en.state = ?")
		args = append(args, sq.Region)
	}
	if sq.ActiveOnly {
		where = append(where, "hd.license_status = ?")
		args = append(args, sq.ActiveStatus)
	}

	q := fmt.Sprintf("SELECT %s\n%s\nWHERE %s\n%s",
		licenseViewColumns, licenseFrom(s.dialect, "JOIN"), strings.Join(where, " AND "), licenseOrder)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search licenses: %w", err)
	}
	return collectLicenses(rows, sq.Limit)
}

// LicenseRecords returns the rows of one dependent table for a license, in
// orderBy order. T must be the record struct of kind.
func LicenseRecords[T any](ctx context.Context, s *Store, kind models.TableKind, usi int64, orderBy string) ([]T, error) {
	d := s.dialect
	schema := models.Schema(kind)
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s",
		quoteList(d, schema.ColumnNames()), d.Quote(string(kind)), d.Quote(models.ColumnKey), d.Quote(orderBy))

	rows, err := s.db.QueryContext(ctx, q, usi)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s for %d: %w", kind, usi, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var rec T
		v := reflect.ValueOf(&rec).Elem()
		if v.NumField() != len(schema.Columns) {
			return nil, fmt.Errorf("%T does not match %s columns", rec, kind)
		}
		dest := make([]any, v.NumField())
		for i := range dest {
			dest[i] = v.Field(i).Addr().Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", kind, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LicenseDetail loads the dependent history, comments and conditions of a
// license found by LicenseByCallSign.
func (s *Store) LicenseDetail(ctx context.Context, view models.LicenseView) (*models.LicenseDetail, error) {
	usi := view.UniqueSystemIdentifier
	detail := &models.LicenseDetail{License: view}
	var err error
	if detail.History, err = LicenseRecords[models.History](ctx, s, models.KindHS, usi, "log_date"); err != nil {
		return nil, err
	}
	if detail.Comments, err = LicenseRecords[models.Comment](ctx, s, models.KindCO, usi, "comment_date"); err != nil {
		return nil, err
	}
	if detail.SpecialConditions, err = LicenseRecords[models.SpecialCondition](ctx, s, models.KindSC, usi, "special_condition_code"); err != nil {
		return nil, err
	}
	if detail.FreeFormConditions, err = LicenseRecords[models.FreeFormCondition](ctx, s, models.KindSF, usi, "sequence_number"); err != nil {
		return nil, err
	}
	return detail, nil
}
