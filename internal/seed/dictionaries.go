// Package seed loads dictionaries and demo marketplace data for development and testing.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"petbuddies/internal/models"
	"petbuddies/internal/repository"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed dicts.yml
var dictsYAML []byte

// DictFile is the layout of dicts.yml.
type DictFile struct {
	ReportTypes []string `yaml:"report_types"`
	PostalCodes []struct {
		Code  string  `yaml:"code"`
		Place string  `yaml:"place"`
		Lat   float64 `yaml:"lat"`
		Lon   float64 `yaml:"lon"`
	} `yaml:"postal_codes"`
}

// LoadDictFile parses the embedded dictionary file.
func LoadDictFile() (*DictFile, error) {
	var f DictFile
	if err := yaml.Unmarshal(dictsYAML, &f); err != nil {
		return nil, fmt.Errorf("parse dicts.yml: %w", err)
	}
	return &f, nil
}

// Dictionaries makes sure the report types and postal codes exist. Safe to run on every start.
func Dictionaries(db *gorm.DB) error {
	f, err := LoadDictFile()
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo := repository.NewDictRepository(db)

	if _, err := repo.EnsureReportTypes(ctx, f.ReportTypes); err != nil {
		return fmt.Errorf("seed report types: %w", err)
	}

	codes := make([]models.PostalCode, 0, len(f.PostalCodes))
	for _, pc := range f.PostalCodes {
		codes = append(codes, models.PostalCode{PostalCode: pc.Code, Place: pc.Place, Lat: pc.Lat, Lon: pc.Lon})
	}
	if _, err := repo.InsertPostalCodes(ctx, codes); err != nil {
		return fmt.Errorf("seed postal codes: %w", err)
	}
	return nil
}
