package repository

import (
	"context"
	"strings"
	"unicode"

	"petbuddies/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostalCodeSearchLimit caps the number of suggestions returned by a search.
const PostalCodeSearchLimit = 20

// DictRepository reads and seeds the dictionary tables.
type DictRepository interface {
	SearchPostalCodes(ctx context.Context, query string) ([]models.PostalCode, error)
	PostalCodeExists(ctx context.Context, code string) (bool, error)
	ListReportTypes(ctx context.Context) ([]models.ReportType, error)
	GetReportType(ctx context.Context, id uint) (*models.ReportType, error)
	EnsureReportTypes(ctx context.Context, names []string) (int64, error)
	InsertPostalCodes(ctx context.Context, codes []models.PostalCode) (int64, error)
}

type dictRepository struct {
	db *gorm.DB
}

// NewDictRepository returns a new DictRepository implementation.
func NewDictRepository(db *gorm.DB) DictRepository {
	return &dictRepository{db: db}
}

// SearchPostalCodes matches a postal code prefix when query starts with a digit
// and a case-insensitive place prefix otherwise.
func (r *dictRepository) SearchPostalCodes(ctx context.Context, query string) ([]models.PostalCode, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	var codes []models.PostalCode
	if query == "" {
		return codes, nil
	}
	q := readDB(r.db).WithContext(ctx)
	if startsWithDigit(query) {
		q = q.Where("postal_code LIKE ?", query+"%")
	} else {
		q = q.Where("LOWER(place) LIKE ?", query+"%")
	}
	err := q.
		Order("postal_code, place").
		Limit(PostalCodeSearchLimit).
		Find(&codes).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return codes, nil
}

func (r *dictRepository) PostalCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.PostalCode{}).Where("postal_code = ?", code).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *dictRepository) ListReportTypes(ctx context.Context) ([]models.ReportType, error) {
	var types []models.ReportType
	if err := readDB(r.db).WithContext(ctx).Order("id").Find(&types).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return types, nil
}

func (r *dictRepository) GetReportType(ctx context.Context, id uint) (*models.ReportType, error) {
	var rt models.ReportType
	if err := readDB(r.db).WithContext(ctx).First(&rt, id).Error; err != nil {
		return nil, notFoundOr(err, "Report type", id)
	}
	return &rt, nil
}

// EnsureReportTypes inserts names that are missing and returns how many were added.
func (r *dictRepository) EnsureReportTypes(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	rows := make([]models.ReportType, 0, len(names))
	for _, n := range names {
		rows = append(rows, models.ReportType{Name: n})
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// InsertPostalCodes bulk-loads codes in batches. It only runs on an empty table.
func (r *dictRepository) InsertPostalCodes(ctx context.Context, codes []models.PostalCode) (int64, error) {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&models.PostalCode{}).Count(&existing).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if existing > 0 || len(codes) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).CreateInBatches(codes, 500)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}
