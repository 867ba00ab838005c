// Package validation evaluates a participant's full submission set against
// the event's configured rule list.
package validation

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
)

// Evaluate runs every enabled rule config against the submission set and
// returns one result per (rule, file) pair, in config order. The implicit
// metadata-presence rule always runs last at error severity, regardless of
// configuration.
//
// Rule evaluation is isolated: a config with malformed params, or a rule
// panicking internally, yields failed results for all files of that rule and
// never aborts the remaining rules.
func Evaluate(configs []types.RuleConfig, inputs []Input) []Result {
	// evaluation and the ordering rule both rely on upload order
	sorted := make([]Input, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})

	results := []Result{}
	for _, config := range configs {
		if !config.Enabled {
			continue
		}
		results = append(results, evaluateConfig(config, sorted)...)
	}

	implicit := types.RuleConfig{
		RuleKey:  types.RULE_KEY_HAS_METADATA,
		Enabled:  true,
		Severity: types.RULE_SEVERITY_ERROR,
	}
	results = append(results, evaluateRule(HasMetadataRule{}, implicit, sorted)...)

	return results
}

func evaluateConfig(config types.RuleConfig, inputs []Input) []Result {
	rule, err := RuleFromConfig(config)
	if err != nil {
		slog.Error("invalid rule config", slog.String("ruleKey", config.RuleKey), slog.String("domain", config.Domain), slog.String("error", err.Error()))
		return failAll(config, inputs, fmt.Sprintf("rule could not be evaluated: %s", err.Error()))
	}
	return evaluateRule(rule, config, inputs)
}

func evaluateRule(rule Rule, config types.RuleConfig, inputs []Input) (results []Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("rule evaluation panicked", slog.String("ruleKey", config.RuleKey), slog.Any("panic", r))
			results = failAll(config, inputs, "rule evaluation failed internally")
		}
	}()

	outcomes := rule.Evaluate(inputs)
	if len(outcomes) != len(inputs) {
		slog.Error("rule returned mismatched outcome count", slog.String("ruleKey", config.RuleKey))
		return failAll(config, inputs, "rule evaluation failed internally")
	}

	results = make([]Result, len(inputs))
	for i, input := range inputs {
		results[i] = Result{
			OrderIndex: input.OrderIndex,
			FileName:   input.FileName,
			RuleKey:    rule.Key(),
			Severity:   config.Severity,
			Passed:     outcomes[i].Passed,
			Message:    outcomes[i].Message,
		}
	}
	return results
}

func failAll(config types.RuleConfig, inputs []Input, message string) []Result {
	results := make([]Result, len(inputs))
	for i, input := range inputs {
		results[i] = Result{
			OrderIndex: input.OrderIndex,
			FileName:   input.FileName,
			RuleKey:    config.RuleKey,
			Severity:   config.Severity,
			Passed:     false,
			Message:    message,
		}
	}
	return results
}
