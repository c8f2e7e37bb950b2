package service

import (
	"context"
	"strings"

	"petbuddies/internal/cache"
	"petbuddies/internal/models"
	"petbuddies/internal/repository"
)

// CitySuggestion is one postal code search hit.
type CitySuggestion struct {
	PostalCode string  `json:"postal_code"`
	Place      string  `json:"place"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// DictService serves the read-mostly dictionaries through the cache.
type DictService struct {
	repo repository.DictRepository
}

func NewDictService(repo repository.DictRepository) *DictService {
	return &DictService{repo: repo}
}

// SearchCities suggests postal codes and places matching the prefix query.
func (s *DictService) SearchCities(ctx context.Context, query string) ([]CitySuggestion, error) {
	query = strings.TrimSpace(query)
	out := []CitySuggestion{}
	if query == "" {
		return out, nil
	}
	err := cache.Aside(ctx, cache.PostalCodeSearchKey(query), &out, cache.DictionaryTTL, func() error {
		codes, err := s.repo.SearchPostalCodes(ctx, query)
		if err != nil {
			return err
		}
		for _, c := range codes {
			out = append(out, CitySuggestion{PostalCode: c.PostalCode, Place: c.Place, Lat: c.Lat, Lon: c.Lon})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReportTypes lists the report categories.
func (s *DictService) ReportTypes(ctx context.Context) ([]models.ReportType, error) {
	types := []models.ReportType{}
	err := cache.Aside(ctx, cache.ReportTypesKey, &types, cache.DictionaryTTL, func() error {
		loaded, err := s.repo.ListReportTypes(ctx)
		if err != nil {
			return err
		}
		types = append(types, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return types, nil
}
