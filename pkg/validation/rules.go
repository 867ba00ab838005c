package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/utils"
	"github.com/strandhvilliam/vimmer-backend/pkg/variants"
)

// Rule is one validation constraint. Evaluate returns exactly one outcome
// per input, in input order. Set-level rules (same-device) may fail all
// files at once.
type Rule interface {
	Key() string
	Evaluate(inputs []Input) []FileOutcome
}

// RuleFromConfig maps a stored rule config onto its concrete rule variant,
// validating the rule-specific params.
func RuleFromConfig(config types.RuleConfig) (Rule, error) {
	switch config.RuleKey {
	case types.RULE_KEY_ALLOWED_FILE_TYPES:
		if len(config.Params.AllowedExtensions) == 0 {
			return nil, fmt.Errorf("allowed-file-types rule requires a non-empty extension list")
		}
		extensions := make([]string, len(config.Params.AllowedExtensions))
		for i, ext := range config.Params.AllowedExtensions {
			extensions[i] = normalizeExtension(ext)
		}
		return AllowedFileTypesRule{Extensions: extensions}, nil
	case types.RULE_KEY_MAX_FILE_SIZE:
		if config.Params.MaxBytes <= 0 {
			return nil, fmt.Errorf("max-file-size rule requires a positive byte limit")
		}
		return MaxFileSizeRule{MaxBytes: config.Params.MaxBytes}, nil
	case types.RULE_KEY_SAME_DEVICE:
		return SameDeviceRule{}, nil
	case types.RULE_KEY_STRICT_ORDERING:
		return StrictOrderingRule{}, nil
	case types.RULE_KEY_WITHIN_TIMERANGE:
		if config.Params.Start == 0 || config.Params.End == 0 || config.Params.End < config.Params.Start {
			return nil, fmt.Errorf("within-timerange rule requires a valid start/end window")
		}
		return WithinTimerangeRule{
			Start: time.Unix(config.Params.Start, 0).UTC(),
			End:   time.Unix(config.Params.End, 0).UTC(),
		}, nil
	case types.RULE_KEY_MODIFIED:
		return ModifiedRule{}, nil
	default:
		return nil, fmt.Errorf("unknown rule key: %s", config.RuleKey)
	}
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "jpeg" {
		ext = "jpg"
	}
	return ext
}

func extensionOfFileName(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 {
		return ""
	}
	return normalizeExtension(fileName[idx+1:])
}

// AllowedFileTypesRule requires both the file extension and the declared
// mime type to resolve into the configured allow-list.
type AllowedFileTypesRule struct {
	Extensions []string
}

func (r AllowedFileTypesRule) Key() string { return types.RULE_KEY_ALLOWED_FILE_TYPES }

func (r AllowedFileTypesRule) Evaluate(inputs []Input) []FileOutcome {
	outcomes := make([]FileOutcome, len(inputs))
	for i, input := range inputs {
		ext := extensionOfFileName(input.FileName)
		if !utils.ContainsString(r.Extensions, ext) {
			outcomes[i] = FileOutcome{Message: fmt.Sprintf("file type '%s' is not allowed", ext)}
			continue
		}

		mimeExt := normalizeExtension(utils.GetFileExtensionFromContentType(input.MimeType))
		if !utils.ContainsString(r.Extensions, mimeExt) {
			outcomes[i] = FileOutcome{Message: fmt.Sprintf("mime type '%s' is not allowed", input.MimeType)}
			continue
		}

		outcomes[i] = FileOutcome{Passed: true}
	}
	return outcomes
}

// MaxFileSizeRule limits each file to the configured byte size.
type MaxFileSizeRule struct {
	MaxBytes int64
}

func (r MaxFileSizeRule) Key() string { return types.RULE_KEY_MAX_FILE_SIZE }

func (r MaxFileSizeRule) Evaluate(inputs []Input) []FileOutcome {
	outcomes := make([]FileOutcome, len(inputs))
	for i, input := range inputs {
		if input.FileSize > r.MaxBytes {
			outcomes[i] = FileOutcome{Message: fmt.Sprintf("file size %d exceeds limit of %d bytes", input.FileSize, r.MaxBytes)}
			continue
		}
		outcomes[i] = FileOutcome{Passed: true}
	}
	return outcomes
}

// SameDeviceRule is a set-level rule: the camera make+model signature must
// be identical across all files. A file without both tags, or more than one
// distinct signature, fails the whole set.
type SameDeviceRule struct{}

func (r SameDeviceRule) Key() string { return types.RULE_KEY_SAME_DEVICE }

func deviceSignature(input Input) string {
	make := strings.TrimSpace(input.Exif[variants.EXIF_TAG_MAKE])
	model := strings.TrimSpace(input.Exif[variants.EXIF_TAG_MODEL])
	if make == "" && model == "" {
		return ""
	}
	return strings.TrimSpace(make + " " + model)
}

func (r SameDeviceRule) Evaluate(inputs []Input) []FileOutcome {
	signatures := map[string]bool{}
	hasUnknown := false
	for _, input := range inputs {
		sig := deviceSignature(input)
		if sig == "" {
			hasUnknown = true
			continue
		}
		signatures[sig] = true
	}

	outcomes := make([]FileOutcome, len(inputs))
	if hasUnknown || len(signatures) > 1 {
		message := "submission set was not captured on a single device"
		if hasUnknown {
			message = "one or more files are missing a device signature"
		}
		for i := range outcomes {
			outcomes[i] = FileOutcome{Message: message}
		}
		return outcomes
	}

	for i := range outcomes {
		outcomes[i] = FileOutcome{Passed: true}
	}
	return outcomes
}

func captureTime(input Input) (time.Time, error) {
	for _, tag := range []string{variants.EXIF_TAG_DATETIME_ORIGINAL, variants.EXIF_TAG_DATETIME_DIGITIZED} {
		if value, ok := input.Exif[tag]; ok {
			return variants.ParseCanonicalTime(value)
		}
	}
	return time.Time{}, fmt.Errorf("no capture timestamp tag present")
}

// StrictOrderingRule requires strictly increasing capture timestamps in
// upload order. A file with an unparseable timestamp, or one not after its
// immediate predecessor's, fails; the predecessor keeps its own verdict.
type StrictOrderingRule struct{}

func (r StrictOrderingRule) Key() string { return types.RULE_KEY_STRICT_ORDERING }

func (r StrictOrderingRule) Evaluate(inputs []Input) []FileOutcome {
	outcomes := make([]FileOutcome, len(inputs))
	var prev time.Time
	hasPrev := false

	for i, input := range inputs {
		ts, err := captureTime(input)
		if err != nil {
			outcomes[i] = FileOutcome{Message: "missing or unparseable capture timestamp"}
			hasPrev = false
			continue
		}

		if hasPrev && !ts.After(prev) {
			outcomes[i] = FileOutcome{Message: fmt.Sprintf("capture timestamp %s is not after the previous photo", ts.Format(variants.CanonicalTimeLayout))}
		} else {
			outcomes[i] = FileOutcome{Passed: true}
		}

		prev = ts
		hasPrev = true
	}
	return outcomes
}

// WithinTimerangeRule requires each capture timestamp to fall inside the
// configured event window (inclusive).
type WithinTimerangeRule struct {
	Start time.Time
	End   time.Time
}

func (r WithinTimerangeRule) Key() string { return types.RULE_KEY_WITHIN_TIMERANGE }

func (r WithinTimerangeRule) Evaluate(inputs []Input) []FileOutcome {
	outcomes := make([]FileOutcome, len(inputs))
	for i, input := range inputs {
		ts, err := captureTime(input)
		if err != nil {
			outcomes[i] = FileOutcome{Message: "missing or unparseable capture timestamp"}
			continue
		}
		if ts.Before(r.Start) || ts.After(r.End) {
			outcomes[i] = FileOutcome{Message: fmt.Sprintf("capture timestamp %s is outside the event window", ts.Format(variants.CanonicalTimeLayout))}
			continue
		}
		outcomes[i] = FileOutcome{Passed: true}
	}
	return outcomes
}

// editor names checked against the EXIF software tag
var knownEditingSoftware = []string{
	"photoshop",
	"lightroom",
	"gimp",
	"snapseed",
	"affinity",
	"luminar",
}

// ModifiedRule flags files whose metadata indicates post-capture editing.
// Configured at warning severity in practice.
type ModifiedRule struct{}

func (r ModifiedRule) Key() string { return types.RULE_KEY_MODIFIED }

func (r ModifiedRule) Evaluate(inputs []Input) []FileOutcome {
	outcomes := make([]FileOutcome, len(inputs))
	for i, input := range inputs {
		software := strings.ToLower(input.Exif[variants.EXIF_TAG_SOFTWARE])
		flagged := false
		for _, editor := range knownEditingSoftware {
			if strings.Contains(software, editor) {
				flagged = true
				break
			}
		}
		if flagged {
			outcomes[i] = FileOutcome{Message: fmt.Sprintf("metadata indicates editing software: %s", input.Exif[variants.EXIF_TAG_SOFTWARE])}
			continue
		}
		outcomes[i] = FileOutcome{Passed: true}
	}
	return outcomes
}

// HasMetadataRule is the implicit rule appended after all configured rules:
// every submission must carry an extractable metadata tag map.
type HasMetadataRule struct{}

func (r HasMetadataRule) Key() string { return types.RULE_KEY_HAS_METADATA }

func (r HasMetadataRule) Evaluate(inputs []Input) []FileOutcome {
	outcomes := make([]FileOutcome, len(inputs))
	for i, input := range inputs {
		if len(input.Exif) == 0 {
			outcomes[i] = FileOutcome{Message: "no extractable metadata present"}
			continue
		}
		outcomes[i] = FileOutcome{Passed: true}
	}
	return outcomes
}
