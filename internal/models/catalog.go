package models

import "time"

type ArticleCategory string

const (
	CategoryPhotoBox  ArticleCategory = "fotobox"
	CategoryBackdrop  ArticleCategory = "hintergrund"
	CategoryAccessory ArticleCategory = "zubehoer"
	CategoryService   ArticleCategory = "service"
)

// CategoryRank returns the display precedence for offer and order views.
// Photo boxes come first, unknown categories sort last.
func CategoryRank(category ArticleCategory) int {
	switch category {
	case CategoryPhotoBox:
		return 1
	case CategoryBackdrop:
		return 2
	case CategoryAccessory:
		return 3
	case CategoryService:
		return 4
	default:
		return 99
	}
}

// Article is a bookable catalog item (e.g. "Fotobox Classic")
type Article struct {
	ID       uint            `json:"id" gorm:"primaryKey"`
	Name     string          `json:"name" gorm:"uniqueIndex;not null"`
	Category ArticleCategory `json:"kategorie" gorm:"not null;index"`
	Active   bool            `json:"aktiv" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"erstellt_am" gorm:"not null"`
	UpdatedAt time.Time `json:"aktualisiert_am" gorm:"not null"`

	Variants []ArticleVariant `json:"varianten,omitempty" gorm:"foreignKey:ArticleID"`
}

// ArticleVariant is a concrete priced variant of an article
// (e.g. "Fotobox Classic – 4h Paket").
type ArticleVariant struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	ArticleID uint    `json:"artikel_id" gorm:"not null;index"`
	Name      string  `json:"variante_name" gorm:"not null"`
	BasePrice float64 `json:"basispreis" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"erstellt_am" gorm:"not null"`
	UpdatedAt time.Time `json:"aktualisiert_am" gorm:"not null"`

	Article Article `json:"artikel,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
