package seed

import (
	"context"
	"embed"
	"fmt"
	"io"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed fixtures/groups.yml
var fixtures embed.FS

// GroupFixture is one entry of a groups fixture file.
type GroupFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

type groupsFile struct {
	Groups []GroupFixture `yaml:"groups"`
}

// DefaultGroups returns the groups bundled with the binary.
func DefaultGroups() ([]GroupFixture, error) {
	f, err := fixtures.Open("fixtures/groups.yml")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadGroups(f)
}

// LoadGroups decodes and validates a groups fixture.
func LoadGroups(r io.Reader) ([]GroupFixture, error) {
	var file groupsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode groups fixture: %w", err)
	}

	seen := make(map[string]bool, len(file.Groups))
	for i, g := range file.Groups {
		if err := validation.ValidateGroupTitle(g.Title); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		if err := validation.ValidateGroupSlug(g.Slug); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		if seen[g.Slug] {
			return nil, fmt.Errorf("group %d: duplicate slug %q", i, g.Slug)
		}
		seen[g.Slug] = true
	}
	return file.Groups, nil
}

// Groups upserts the fixtures by slug and returns the stored rows.
func Groups(ctx context.Context, db *gorm.DB, items []GroupFixture) ([]models.Group, error) {
	out := make([]models.Group, 0, len(items))
	for _, item := range items {
		group := models.Group{
			Title:       item.Title,
			Slug:        item.Slug,
			Description: item.Description,
		}
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).Create(&group).Error
		if err != nil {
			return nil, fmt.Errorf("upsert group %s: %w", item.Slug, err)
		}
		// Upserts do not always report the id of an updated row.
		var stored models.Group
		if err := db.WithContext(ctx).Where("slug = ?", item.Slug).First(&stored).Error; err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}
