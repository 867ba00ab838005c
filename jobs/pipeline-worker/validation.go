package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/objectkey"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
	"github.com/strandhvilliam/vimmer-backend/pkg/validation"
)

// handleValidationTriggers runs the rule engine for completed submission
// sets. The participant transitions to verified only when no error severity
// rule failed; warnings never block verification.
func handleValidationTriggers(wg *sync.WaitGroup) {
	defer wg.Done()
	slog.Info("Start handling validation triggers")

	ctx := context.Background()

	for _, instanceID := range conf.InstanceIDs {
		slog.Debug("Start handling validation triggers for instance", slog.String("instanceID", instanceID))

		topic := queue.InstanceTopic(instanceID, queue.TOPIC_VALIDATION_TRIGGERS)
		failedBatches := 0
		for {
			if failedBatches > MAX_FAILED_BATCHES_BEFORE_STOP {
				slog.Error("Too many failed batches, stopping validation triggers for instance", slog.String("instanceID", instanceID))
				break
			}

			messages, err := messageQueue.PopBatch(ctx, topic, QUEUE_BATCH_SIZE)
			if err != nil {
				slog.Error("Failed to pop validation triggers", slog.String("error", err.Error()))
				break
			}
			if len(messages) == 0 {
				break
			}

			batchFailed := false
			for _, raw := range messages {
				var trigger types.ValidationTrigger
				if err := json.Unmarshal(raw, &trigger); err != nil {
					slog.Error("Dropping malformed validation trigger", slog.String("error", err.Error()))
					continue
				}

				if err := validateParticipant(instanceID, trigger.ParticipantID); err != nil {
					slog.Error("Failed to validate participant",
						slog.String("participantID", trigger.ParticipantID),
						slog.String("error", err.Error()))

					if pubErr := messageQueue.Publish(ctx, topic, trigger); pubErr != nil {
						slog.Error("Failed to re-queue validation trigger", slog.String("error", pubErr.Error()))
					}
					batchFailed = true
				}
			}

			if batchFailed {
				failedBatches++
			}
		}

		slog.Info("Finished handling validation triggers for instance", slog.String("instanceID", instanceID))
	}
}

func validateParticipant(instanceID string, participantID string) error {
	participant, err := marathonDBService.GetParticipantByID(instanceID, participantID)
	if err != nil {
		if participantGone(err) {
			slog.Warn("Dropping validation trigger for deleted participant", slog.String("participantID", participantID))
			return nil
		}
		return err
	}

	configs, err := marathonDBService.GetEnabledRuleConfigs(instanceID, participant.Domain)
	if err != nil {
		return err
	}

	submissions, err := marathonDBService.GetSubmissionsByParticipant(instanceID, participantID)
	if err != nil {
		return err
	}

	inputs := make([]validation.Input, 0, len(submissions))
	for _, submission := range submissions {
		if submission.Key == "" {
			continue
		}
		fileName := submission.Key
		if parsed, err := objectkey.Parse(submission.Key); err == nil {
			fileName = parsed.FileName
		}
		inputs = append(inputs, validation.Input{
			Exif:       submission.Exif,
			FileName:   fileName,
			MimeType:   submission.MimeType,
			FileSize:   submission.Size,
			OrderIndex: submission.OrderIndex,
		})
	}

	results := validation.Evaluate(configs, inputs)

	// overruled rows survive re-validation; a recurring failure that staff
	// already accepted must not block verification again
	existing, err := marathonDBService.GetValidationResultsByParticipant(instanceID, participantID)
	if err != nil {
		return err
	}
	overruled := map[string]bool{}
	for _, r := range existing {
		if r.Overruled {
			overruled[fmt.Sprintf("%s|%d", r.RuleKey, r.OrderIndex)] = true
		}
	}

	rows := make([]types.ValidationResult, 0, len(results))
	hasBlockingFailure := false
	now := time.Now().Unix()
	for _, r := range results {
		outcome := types.VALIDATION_OUTCOME_PASSED
		if !r.Passed {
			outcome = types.VALIDATION_OUTCOME_FAILED
			if r.Severity == types.RULE_SEVERITY_ERROR && !overruled[fmt.Sprintf("%s|%d", r.RuleKey, r.OrderIndex)] {
				hasBlockingFailure = true
			}
		}
		rows = append(rows, types.ValidationResult{
			ParticipantID: participant.ID,
			OrderIndex:    r.OrderIndex,
			FileName:      r.FileName,
			RuleKey:       r.RuleKey,
			Outcome:       outcome,
			Severity:      r.Severity,
			Message:       r.Message,
			CreatedAt:     now,
		})
	}

	if err := marathonDBService.SaveValidationResults(instanceID, participantID, rows); err != nil {
		return err
	}

	if !hasBlockingFailure {
		if err := marathonDBService.UpdateParticipantStatus(instanceID, participantID, types.PARTICIPANT_STATUS_VERIFIED); err != nil {
			return err
		}
	}

	slog.Info("validated participant",
		slog.String("domain", participant.Domain),
		slog.String("reference", participant.Reference),
		slog.Int("results", len(rows)),
		slog.Bool("verified", !hasBlockingFailure))

	return nil
}
