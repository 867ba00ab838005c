// Package archiver builds the compressed result archive of an event's (or a
// single participant's) ready submissions, with resumable progress tracking
// and per-item failure reporting.
package archiver

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/strandhvilliam/vimmer-backend/pkg/filestore"
	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/objectkey"
)

var (
	ErrNoEligibleParticipants = errors.New("no participants with ready submissions")
	ErrUnknownExportType      = errors.New("unknown export type")
)

// RecordStore is the read side the exporter needs from the DB service.
type RecordStore interface {
	GetParticipantsByDomain(instanceID string, domain string) ([]types.Participant, error)
	GetParticipantByReference(instanceID string, domain string, reference string) (types.Participant, error)
	GetSubmissionsByParticipant(instanceID string, participantID string) ([]types.Submission, error)
	GetReadySubmissionsByDomain(instanceID string, domain string) ([]types.Submission, error)
}

// ProgressStore persists the export progress read model. Completed and
// error rows are immutable; a retry runs against a fresh row.
type ProgressStore interface {
	UpdateExportProgress(instanceID string, progressID string, totalItems int, processedItems int, progressPct int) error
	UpdateExportCompleted(instanceID string, progressID string, processedItems int, resultKey string) error
	UpdateExportFailed(instanceID string, progressID string, errMsg string) error
}

// Manifest is written as manifest.json into every archive.
type Manifest struct {
	EventID          string    `json:"eventId"`
	Domain           string    `json:"domain"`
	ExportType       string    `json:"exportType"`
	GeneratedAt      time.Time `json:"generatedAt"`
	ParticipantCount int       `json:"participantCount"`
	SubmissionCount  int       `json:"submissionCount"`
}

type Exporter struct {
	records  RecordStore
	progress ProgressStore
	store    filestore.Store
}

func NewExporter(records RecordStore, progress ProgressStore, store filestore.Store) *Exporter {
	return &Exporter{
		records:  records,
		progress: progress,
		store:    store,
	}
}

// Run executes one export attempt against its progress row. Per-file fetch
// errors degrade the archive (the file is skipped); fatal errors mark the
// row with status error and the message for caller inspection.
func (e *Exporter) Run(ctx context.Context, instanceID string, progressRow types.ZipExportProgress) error {
	progressID := progressRow.ID.Hex()

	err := e.run(ctx, instanceID, progressRow)
	if err != nil {
		if updErr := e.progress.UpdateExportFailed(instanceID, progressID, err.Error()); updErr != nil {
			slog.Error("failed to record export error", slog.String("progressId", progressID), slog.String("error", updErr.Error()))
		}
		return err
	}
	return nil
}

func (e *Exporter) run(ctx context.Context, instanceID string, progressRow types.ZipExportProgress) error {
	progressID := progressRow.ID.Hex()

	participants, err := e.eligibleParticipants(instanceID, progressRow)
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		return ErrNoEligibleParticipants
	}

	submissionsByParticipant, err := e.loadSubmissions(instanceID, progressRow, participants)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	totalItems := len(participants)
	processedItems := 0
	submissionCount := 0
	includedParticipants := 0

	if err := e.progress.UpdateExportProgress(instanceID, progressID, totalItems, 0, 0); err != nil {
		return fmt.Errorf("failed to start export progress: %w", err)
	}

	for _, participant := range participants {
		added, err := e.addParticipant(ctx, zipWriter, participant, submissionsByParticipant[participant.ID.Hex()], progressRow.ExportType)
		if err != nil {
			return err
		}
		if added > 0 {
			includedParticipants++
			submissionCount += added
		}

		// progress is advanced per participant, not per file, to bound
		// write amplification on the progress row
		processedItems++
		pct := processedItems * 100 / totalItems
		if err := e.progress.UpdateExportProgress(instanceID, progressID, totalItems, processedItems, pct); err != nil {
			slog.Error("failed to update export progress", slog.String("progressId", progressID), slog.String("error", err.Error()))
		}
	}

	manifest := Manifest{
		EventID:          progressRow.Domain,
		Domain:           progressRow.Domain,
		ExportType:       progressRow.ExportType,
		GeneratedAt:      time.Now().UTC(),
		ParticipantCount: includedParticipants,
		SubmissionCount:  submissionCount,
	}
	if err := writeManifest(zipWriter, manifest); err != nil {
		return fmt.Errorf("failed to write archive manifest: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	resultKey := exportResultKey(progressRow)
	if err := e.store.PutStream(ctx, resultKey, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "application/zip"); err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}

	if err := e.progress.UpdateExportCompleted(instanceID, progressID, processedItems, resultKey); err != nil {
		return fmt.Errorf("failed to complete export progress: %w", err)
	}

	slog.Info("archive export completed",
		slog.String("domain", progressRow.Domain),
		slog.String("exportType", progressRow.ExportType),
		slog.String("resultKey", resultKey),
		slog.Int("participants", includedParticipants),
		slog.Int("submissions", submissionCount))

	return nil
}

func (e *Exporter) eligibleParticipants(instanceID string, progressRow types.ZipExportProgress) ([]types.Participant, error) {
	if progressRow.ParticipantRef != "" {
		participant, err := e.records.GetParticipantByReference(instanceID, progressRow.Domain, progressRow.ParticipantRef)
		if err != nil {
			return nil, fmt.Errorf("participant %s not found in %s", progressRow.ParticipantRef, progressRow.Domain)
		}
		return []types.Participant{participant}, nil
	}
	return e.records.GetParticipantsByDomain(instanceID, progressRow.Domain)
}

// loadSubmissions gathers the per-participant submission lists for the run.
// A whole-event export reads the ready set in one query; the single
// participant export reuses the per-participant read.
func (e *Exporter) loadSubmissions(instanceID string, progressRow types.ZipExportProgress, participants []types.Participant) (map[string][]types.Submission, error) {
	byParticipant := map[string][]types.Submission{}

	if progressRow.ParticipantRef != "" {
		for _, participant := range participants {
			submissions, err := e.records.GetSubmissionsByParticipant(instanceID, participant.ID.Hex())
			if err != nil {
				return nil, fmt.Errorf("failed to load submissions for %s: %w", participant.Reference, err)
			}
			byParticipant[participant.ID.Hex()] = submissions
		}
		return byParticipant, nil
	}

	submissions, err := e.records.GetReadySubmissionsByDomain(instanceID, progressRow.Domain)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions for %s: %w", progressRow.Domain, err)
	}
	for _, submission := range submissions {
		id := submission.ParticipantID.Hex()
		byParticipant[id] = append(byParticipant[id], submission)
	}
	return byParticipant, nil
}

// addParticipant appends all ready submissions of one participant to the
// archive and returns how many entries were added. A participant with no
// eligible submissions is skipped without failing the run; an individual
// fetch error skips that file only.
func (e *Exporter) addParticipant(ctx context.Context, zipWriter *zip.Writer, participant types.Participant, submissions []types.Submission, exportType string) (int, error) {
	added := 0
	for _, submission := range submissions {
		if !isReady(submission) {
			continue
		}
		sourceKey, err := sourceKeyFor(submission, exportType)
		if err != nil {
			return 0, err
		}
		if sourceKey == "" {
			// variant never produced; not eligible for this export type
			continue
		}

		data, err := e.store.Get(ctx, sourceKey)
		if err != nil {
			slog.Error("skipping archive entry, fetch failed",
				slog.String("key", sourceKey),
				slog.String("reference", participant.Reference),
				slog.String("error", err.Error()))
			continue
		}

		entryPath, err := archiveEntryPath(participant, submission, sourceKey)
		if err != nil {
			slog.Error("skipping archive entry, bad key", slog.String("key", sourceKey), slog.String("error", err.Error()))
			continue
		}

		entry, err := zipWriter.CreateHeader(&zip.FileHeader{
			Name:     entryPath,
			Method:   zip.Deflate,
			Modified: time.Unix(submission.SubmittedAt, 0),
		})
		if err != nil {
			return 0, fmt.Errorf("failed to create archive entry %s: %w", entryPath, err)
		}
		if _, err := entry.Write(data); err != nil {
			return 0, fmt.Errorf("failed to write archive entry %s: %w", entryPath, err)
		}
		added++
	}

	return added, nil
}

func isReady(submission types.Submission) bool {
	switch submission.Status {
	case types.SUBMISSION_STATUS_UPLOADED,
		types.SUBMISSION_STATUS_UPLOADED_COMPLETE,
		types.SUBMISSION_STATUS_APPROVED:
		return true
	}
	return false
}

func sourceKeyFor(submission types.Submission, exportType string) (string, error) {
	switch exportType {
	case types.EXPORT_TYPE_SUBMISSIONS:
		return submission.Key, nil
	case types.EXPORT_TYPE_THUMBNAILS:
		return submission.ThumbnailKey, nil
	case types.EXPORT_TYPE_PREVIEWS:
		return submission.PreviewKey, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownExportType, exportType)
	}
}

// archiveEntryPath renders the deterministic in-archive path
// {domain}/{reference}/{reference}_{paddedOrder}.{ext}
func archiveEntryPath(participant types.Participant, submission types.Submission, sourceKey string) (string, error) {
	parsed, err := objectkey.Parse(sourceKey)
	if err != nil {
		return "", err
	}
	ext := parsed.Extension()
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%s/%s_%03d.%s",
		participant.Domain, participant.Reference, participant.Reference, submission.OrderIndex, ext), nil
}

func exportResultKey(progressRow types.ZipExportProgress) string {
	name := progressRow.Domain
	if progressRow.ParticipantRef != "" {
		name = name + "_" + progressRow.ParticipantRef
	}
	return fmt.Sprintf("exports/%s/%s/%s_%s.zip", progressRow.Domain, progressRow.ExportType, name, progressRow.AttemptID)
}

func writeManifest(zipWriter *zip.Writer, manifest Manifest) error {
	entry, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:     "manifest.json",
		Method:   zip.Deflate,
		Modified: manifest.GeneratedAt,
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	_, err = entry.Write(data)
	return err
}
