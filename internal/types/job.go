package types

// FieldConfidence carries per-field extraction confidence in [0,1].
type FieldConfidence struct {
	Title    float64 `json:"title" validate:"gte=0,lte=1"`
	Company  float64 `json:"company" validate:"gte=0,lte=1"`
	Location float64 `json:"location" validate:"gte=0,lte=1"`
	Overall  float64 `json:"overall" validate:"gte=0,lte=1"`
}

// ExtractedJobFields is the structured output of a successful extraction.
type ExtractedJobFields struct {
	Title           string          `json:"title" validate:"max=300"`
	Company         string          `json:"company" validate:"max=200"`
	Location        string          `json:"location" validate:"max=200"`
	Remote          bool            `json:"remote"`
	Confidence      FieldConfidence `json:"confidence"`
	ExtractionNotes string          `json:"extraction_notes,omitempty"`
}

// Clone returns a copy that shares no memory with f.
func (f *ExtractedJobFields) Clone() *ExtractedJobFields {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// PageContent is the fetched page handed from classification to extraction.
type PageContent struct {
	URL             string `json:"url"`
	FinalURL        string `json:"final_url"`
	Domain          string `json:"domain"`
	Path            string `json:"path"`
	Platform        string `json:"platform"`
	Title           string `json:"title"`
	MetaDescription string `json:"meta_description,omitempty"`
	Text            string `json:"text"`
	ContentLength   int    `json:"content_length"`
	ContentHash     string `json:"content_hash"`
}
