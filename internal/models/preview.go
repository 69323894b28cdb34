package models

// PreviewRecord is one live preview file of a staged image.
type PreviewRecord struct {
	Base
	Token    string `gorm:"uniqueIndex;not null"`
	Filename string
	Path     string `gorm:"not null"`
}
