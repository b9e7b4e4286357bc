package models

// Segment is the transcribed text of one audio unit with its offsets in seconds.
type Segment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the result of a completed transcription job.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
}

// Summary is the result of a completed summarization job. Text already carries the rendered
// "Additional Information" appendix built from Metadata.
type Summary struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}
