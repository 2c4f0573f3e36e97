package models

import "time"

// Category selects the reading view a book is opened in.
type Category string

const (
	CategoryBook             Category = "book"
	CategoryStory            Category = "story"
	CategoryDialogue         Category = "dialogue"
	CategoryTranslationStudy Category = "translation-study"
)

var ValidCategories = []Category{CategoryBook, CategoryStory, CategoryDialogue, CategoryTranslationStudy}

func (c Category) Valid() bool {
	for _, v := range ValidCategories {
		if v == c {
			return true
		}
	}
	return false
}

type Book struct {
	ID                 string    `bson:"_id" json:"id"`
	Title              string    `bson:"title" json:"title"`
	Unit               string    `bson:"unit,omitempty" json:"unit,omitempty"`
	Category           Category  `bson:"category" json:"category"`
	CoverImage         string    `bson:"coverImage" json:"coverImage"` // data URL or remote URL
	CoverS3Key         string    `bson:"coverS3Key,omitempty" json:"-"`
	Content            string    `bson:"content" json:"content"`
	TranslationContent string    `bson:"translationContent,omitempty" json:"translationContent,omitempty"`
	PageImages         []string  `bson:"pageImages,omitempty" json:"pageImages,omitempty"`
	AudioContent       string    `bson:"audioContent,omitempty" json:"audioContent,omitempty"`
	AudioMarkers       []float64 `bson:"audioMarkers,omitempty" json:"audioMarkers,omitempty"` // seconds
	LastReadPage       int       `bson:"lastReadPage" json:"lastReadPage"`
	TotalLessons       int       `bson:"totalLessons,omitempty" json:"totalLessons,omitempty"`
	CurrentLesson      int       `bson:"currentLesson,omitempty" json:"currentLesson,omitempty"` // 1-based
	CreatedAt          time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// HasLessons reports whether the book has been divided into lessons.
func (b Book) HasLessons() bool {
	return b.TotalLessons > 0
}
