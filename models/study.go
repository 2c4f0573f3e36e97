package models

// StudyItem is a highlighted term saved to the study lab. Explanation, example
// and IPA start empty and are filled in the background.
type StudyItem struct {
	ID                 string `json:"id"`
	BookID             string `json:"bookId"`
	OriginalText       string `json:"originalText"`
	Color              string `json:"color"`
	Context            string `json:"context"`
	PageNumber         int    `json:"pageNumber"`
	Explanation        string `json:"explanation"`
	ExampleSentence    string `json:"exampleSentence"`
	ExampleTranslation string `json:"exampleTranslation"`
	IPA                string `json:"ipa,omitempty"`
	CreatedAt          int64  `json:"createdAt"` // unix millis
}

// StudyCard is the enrichment payload merged into a StudyItem.
type StudyCard struct {
	Explanation        string `json:"explanation"`
	ExampleSentence    string `json:"exampleSentence"`
	ExampleTranslation string `json:"exampleTranslation"`
	IPA                string `json:"ipa,omitempty"`
}

// ExpressionItem is an idiomatic expression extracted from a lesson.
type ExpressionItem struct {
	ID                       string `json:"id"`
	BookID                   string `json:"bookId"`
	Expression               string `json:"expression"`
	Explanation              string `json:"explanation"`
	Context                  string `json:"context"`
	CreatedAt                int64  `json:"createdAt"`
	SimpleExample            string `json:"simpleExample,omitempty"`
	SimpleExampleTranslation string `json:"simpleExampleTranslation,omitempty"`
	IPA                      string `json:"ipa,omitempty"`
	LessonNumber             int    `json:"lessonNumber,omitempty"`
}

// ExpressionCandidate is one raw expression returned by the text enrichment service.
type ExpressionCandidate struct {
	Expression               string `json:"expression"`
	Explanation              string `json:"explanation"`
	Context                  string `json:"context"`
	SimpleExample            string `json:"simpleExample,omitempty"`
	SimpleExampleTranslation string `json:"simpleExampleTranslation,omitempty"`
}
