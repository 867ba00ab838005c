package validation

import (
	"testing"
	"time"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
)

func photoInput(orderIndex int, device string, timestamp string) Input {
	exif := map[string]string{}
	if device != "" {
		exif["Make"] = device
		exif["Model"] = "X100"
	}
	if timestamp != "" {
		exif["DateTimeOriginal"] = timestamp
	}
	return Input{
		Exif:       exif,
		FileName:   "photo.jpg",
		MimeType:   "image/jpeg",
		FileSize:   1024,
		OrderIndex: orderIndex,
	}
}

func resultsForRule(results []Result, ruleKey string) []Result {
	var filtered []Result
	for _, r := range results {
		if r.RuleKey == ruleKey {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func TestSameDeviceRule(t *testing.T) {
	config := []types.RuleConfig{{
		RuleKey:  types.RULE_KEY_SAME_DEVICE,
		Enabled:  true,
		Severity: types.RULE_SEVERITY_ERROR,
	}}

	tests := []struct {
		name     string
		devices  []string
		expected []bool
	}{
		{"all same device", []string{"Nikon", "Nikon", "Nikon"}, []bool{true, true, true}},
		{"one outlier fails all", []string{"Nikon", "Canon", "Nikon"}, []bool{false, false, false}},
		{"unknown devices fail all", []string{"", ""}, []bool{false, false}},
	}

	for _, test := range tests {
		inputs := make([]Input, len(test.devices))
		for i, device := range test.devices {
			inputs[i] = photoInput(i, device, "2024-01-01T10:00:00")
		}

		results := resultsForRule(Evaluate(config, inputs), types.RULE_KEY_SAME_DEVICE)
		if len(results) != len(test.expected) {
			t.Errorf("%s: expected %d results, got %d", test.name, len(test.expected), len(results))
			continue
		}
		for i, expected := range test.expected {
			if results[i].Passed != expected {
				t.Errorf("%s: file %d expected passed=%v, got %v (%s)", test.name, i, expected, results[i].Passed, results[i].Message)
			}
		}
	}
}

func TestStrictOrderingRule(t *testing.T) {
	config := []types.RuleConfig{{
		RuleKey:  types.RULE_KEY_STRICT_ORDERING,
		Enabled:  true,
		Severity: types.RULE_SEVERITY_ERROR,
	}}

	tests := []struct {
		name       string
		timestamps []string
		expected   []bool
	}{
		{"strictly increasing", []string{"2024-01-01T10:00:00", "2024-01-01T10:05:00", "2024-01-01T10:10:00"}, []bool{true, true, true}},
		{"out of order third fails", []string{"2024-01-01T10:00:00", "2024-01-01T10:10:00", "2024-01-01T10:05:00"}, []bool{true, true, false}},
		{"equal timestamps fail", []string{"2024-01-01T10:00:00", "2024-01-01T10:00:00"}, []bool{true, false}},
		{"unparseable timestamp fails that file", []string{"2024-01-01T10:00:00", "", "2024-01-01T10:10:00"}, []bool{true, false, true}},
	}

	for _, test := range tests {
		inputs := make([]Input, len(test.timestamps))
		for i, ts := range test.timestamps {
			inputs[i] = photoInput(i, "Nikon", ts)
		}

		results := resultsForRule(Evaluate(config, inputs), types.RULE_KEY_STRICT_ORDERING)
		for i, expected := range test.expected {
			if results[i].Passed != expected {
				t.Errorf("%s: file %d expected passed=%v, got %v (%s)", test.name, i, expected, results[i].Passed, results[i].Message)
			}
		}
	}
}

func TestAllowedFileTypesRule(t *testing.T) {
	config := []types.RuleConfig{{
		RuleKey:  types.RULE_KEY_ALLOWED_FILE_TYPES,
		Enabled:  true,
		Severity: types.RULE_SEVERITY_ERROR,
		Params:   types.RuleParams{AllowedExtensions: []string{"jpg"}},
	}}

	tests := []struct {
		fileName string
		mimeType string
		expected bool
	}{
		{"photo.jpg", "image/jpeg", true},
		{"photo.jpeg", "image/jpeg", true}, // jpeg normalized to jpg
		{"photo.png", "image/png", false},
		{"photo.png", "image/jpeg", false}, // extension fails regardless of mime
		{"photo.jpg", "image/png", false},  // mime fails regardless of extension
		{"noextension", "image/jpeg", false},
	}

	for _, test := range tests {
		input := photoInput(0, "Nikon", "2024-01-01T10:00:00")
		input.FileName = test.fileName
		input.MimeType = test.mimeType

		results := resultsForRule(Evaluate(config, []Input{input}), types.RULE_KEY_ALLOWED_FILE_TYPES)
		if results[0].Passed != test.expected {
			t.Errorf("file %s (%s): expected passed=%v, got %v (%s)", test.fileName, test.mimeType, test.expected, results[0].Passed, results[0].Message)
		}
	}
}

func TestMaxFileSizeRule(t *testing.T) {
	config := []types.RuleConfig{{
		RuleKey:  types.RULE_KEY_MAX_FILE_SIZE,
		Enabled:  true,
		Severity: types.RULE_SEVERITY_ERROR,
		Params:   types.RuleParams{MaxBytes: 2048},
	}}

	within := photoInput(0, "Nikon", "2024-01-01T10:00:00")
	within.FileSize = 2048
	over := photoInput(1, "Nikon", "2024-01-01T10:05:00")
	over.FileSize = 2049

	results := resultsForRule(Evaluate(config, []Input{within, over}), types.RULE_KEY_MAX_FILE_SIZE)
	if !results[0].Passed {
		t.Errorf("file at the limit should pass, got: %s", results[0].Message)
	}
	if results[1].Passed {
		t.Error("file over the limit should fail")
	}
}

func TestWithinTimerangeRule(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	config := []types.RuleConfig{{
		RuleKey:  types.RULE_KEY_WITHIN_TIMERANGE,
		Enabled:  true,
		Severity: types.RULE_SEVERITY_ERROR,
		Params:   types.RuleParams{Start: start.Unix(), End: end.Unix()},
	}}

	tests := []struct {
		timestamp string
		expected  bool
	}{
		{"2024-01-01T10:00:00", true},
		{"2024-01-01T08:00:00", true},  // inclusive start
		{"2024-01-01T18:00:00", true},  // inclusive end
		{"2024-01-01T07:59:59", false},
		{"2024-01-01T18:00:01", false},
		{"", false}, // missing timestamp
	}

	for _, test := range tests {
		input := photoInput(0, "Nikon", test.timestamp)
		results := resultsForRule(Evaluate(config, []Input{input}), types.RULE_KEY_WITHIN_TIMERANGE)
		if results[0].Passed != test.expected {
			t.Errorf("timestamp %q: expected passed=%v, got %v (%s)", test.timestamp, test.expected, results[0].Passed, results[0].Message)
		}
	}
}

func TestModifiedRule(t *testing.T) {
	config := []types.RuleConfig{{
		RuleKey:  types.RULE_KEY_MODIFIED,
		Enabled:  true,
		Severity: types.RULE_SEVERITY_WARNING,
	}}

	edited := photoInput(0, "Nikon", "2024-01-01T10:00:00")
	edited.Exif["Software"] = "Adobe Photoshop Lightroom 12.0"
	untouched := photoInput(1, "Nikon", "2024-01-01T10:05:00")
	untouched.Exif["Software"] = "NIKON D90 Ver.1.00"

	results := resultsForRule(Evaluate(config, []Input{edited, untouched}), types.RULE_KEY_MODIFIED)
	if results[0].Passed {
		t.Error("edited file should be flagged")
	}
	if results[0].Severity != types.RULE_SEVERITY_WARNING {
		t.Errorf("expected warning severity, got %s", results[0].Severity)
	}
	if !results[1].Passed {
		t.Errorf("camera firmware software tag should pass, got: %s", results[1].Message)
	}
}

func TestImplicitMetadataRuleAlwaysRunsLast(t *testing.T) {
	noMetadata := Input{FileName: "photo.jpg", MimeType: "image/jpeg", FileSize: 10, OrderIndex: 0}

	// no configs at all: the implicit rule still runs
	results := Evaluate(nil, []Input{noMetadata})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].RuleKey != types.RULE_KEY_HAS_METADATA {
		t.Errorf("expected implicit rule key, got %s", results[0].RuleKey)
	}
	if results[0].Passed {
		t.Error("file without metadata should fail the implicit rule")
	}
	if results[0].Severity != types.RULE_SEVERITY_ERROR {
		t.Errorf("implicit rule must run at error severity, got %s", results[0].Severity)
	}

	// with configs, the implicit rule comes after all configured rules
	configs := []types.RuleConfig{{
		RuleKey:  types.RULE_KEY_MAX_FILE_SIZE,
		Enabled:  true,
		Severity: types.RULE_SEVERITY_ERROR,
		Params:   types.RuleParams{MaxBytes: 100},
	}}
	results = Evaluate(configs, []Input{noMetadata})
	if results[len(results)-1].RuleKey != types.RULE_KEY_HAS_METADATA {
		t.Errorf("implicit rule must be last, got %s", results[len(results)-1].RuleKey)
	}
}

func TestMalformedRuleConfigDoesNotAbortEvaluation(t *testing.T) {
	configs := []types.RuleConfig{
		{
			RuleKey:  types.RULE_KEY_ALLOWED_FILE_TYPES,
			Enabled:  true,
			Severity: types.RULE_SEVERITY_ERROR,
			// empty extension list: malformed params
		},
		{
			RuleKey:  types.RULE_KEY_MAX_FILE_SIZE,
			Enabled:  true,
			Severity: types.RULE_SEVERITY_ERROR,
			Params:   types.RuleParams{MaxBytes: 2048},
		},
	}

	input := photoInput(0, "Nikon", "2024-01-01T10:00:00")
	results := Evaluate(configs, []Input{input})

	malformed := resultsForRule(results, types.RULE_KEY_ALLOWED_FILE_TYPES)
	if len(malformed) != 1 || malformed[0].Passed {
		t.Error("malformed config should produce a failed result for the file")
	}

	subsequent := resultsForRule(results, types.RULE_KEY_MAX_FILE_SIZE)
	if len(subsequent) != 1 || !subsequent[0].Passed {
		t.Error("subsequent rule should still be evaluated after a malformed config")
	}
}

func TestDisabledConfigsAreSkipped(t *testing.T) {
	configs := []types.RuleConfig{{
		RuleKey:  types.RULE_KEY_MAX_FILE_SIZE,
		Enabled:  false,
		Severity: types.RULE_SEVERITY_ERROR,
		Params:   types.RuleParams{MaxBytes: 1},
	}}

	input := photoInput(0, "Nikon", "2024-01-01T10:00:00")
	results := Evaluate(configs, []Input{input})

	if len(resultsForRule(results, types.RULE_KEY_MAX_FILE_SIZE)) != 0 {
		t.Error("disabled config must not be evaluated")
	}
}

func TestEvaluationSortsInputsByOrderIndex(t *testing.T) {
	configs := []types.RuleConfig{{
		RuleKey:  types.RULE_KEY_STRICT_ORDERING,
		Enabled:  true,
		Severity: types.RULE_SEVERITY_ERROR,
	}}

	// inputs arrive unordered; timestamps are increasing in orderIndex order
	second := photoInput(1, "Nikon", "2024-01-01T10:05:00")
	first := photoInput(0, "Nikon", "2024-01-01T10:00:00")

	results := resultsForRule(Evaluate(configs, []Input{second, first}), types.RULE_KEY_STRICT_ORDERING)
	for _, result := range results {
		if !result.Passed {
			t.Errorf("file %d should pass after sorting by order index: %s", result.OrderIndex, result.Message)
		}
	}
}
