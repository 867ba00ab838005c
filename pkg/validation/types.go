package validation

// Input is the per-submission record the engine evaluates. One entry per
// uploaded file of the participant.
type Input struct {
	Exif       map[string]string `json:"exif"`
	FileName   string            `json:"fileName"`
	MimeType   string            `json:"mimeType"`
	FileSize   int64             `json:"fileSize"`
	OrderIndex int               `json:"orderIndex"`
}

// FileOutcome is one rule's verdict for one file.
type FileOutcome struct {
	Passed  bool
	Message string
}

// Result is the flattened (rule, file) outcome the engine reports back.
type Result struct {
	OrderIndex int
	FileName   string
	RuleKey    string
	Severity   string
	Passed     bool
	Message    string
}
