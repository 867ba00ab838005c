package archiver

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/strandhvilliam/vimmer-backend/pkg/filestore"
	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/objectkey"
)

type fakeRecords struct {
	participants []types.Participant
	submissions  map[string][]types.Submission // participant id hex -> submissions

	readyQueries          int
	perParticipantQueries int
}

func (f *fakeRecords) GetParticipantsByDomain(instanceID string, domain string) ([]types.Participant, error) {
	var out []types.Participant
	for _, p := range f.participants {
		if p.Domain == domain {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRecords) GetParticipantByReference(instanceID string, domain string, reference string) (types.Participant, error) {
	for _, p := range f.participants {
		if p.Domain == domain && p.Reference == reference {
			return p, nil
		}
	}
	return types.Participant{}, errors.New("not found")
}

func (f *fakeRecords) GetSubmissionsByParticipant(instanceID string, participantID string) ([]types.Submission, error) {
	f.perParticipantQueries++
	return f.submissions[participantID], nil
}

func (f *fakeRecords) GetReadySubmissionsByDomain(instanceID string, domain string) ([]types.Submission, error) {
	f.readyQueries++
	var out []types.Submission
	for _, p := range f.participants {
		for _, s := range f.submissions[p.ID.Hex()] {
			if s.Domain != domain {
				continue
			}
			switch s.Status {
			case types.SUBMISSION_STATUS_UPLOADED,
				types.SUBMISSION_STATUS_UPLOADED_COMPLETE,
				types.SUBMISSION_STATUS_APPROVED:
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type fakeProgress struct {
	status         string
	processedItems int
	totalItems     int
	resultKey      string
	errMsg         string
	updates        int
}

func (f *fakeProgress) UpdateExportProgress(instanceID string, progressID string, totalItems int, processedItems int, progressPct int) error {
	f.status = types.EXPORT_STATUS_PROCESSING
	f.totalItems = totalItems
	f.processedItems = processedItems
	f.updates++
	return nil
}

func (f *fakeProgress) UpdateExportCompleted(instanceID string, progressID string, processedItems int, resultKey string) error {
	f.status = types.EXPORT_STATUS_COMPLETED
	f.processedItems = processedItems
	f.resultKey = resultKey
	return nil
}

func (f *fakeProgress) UpdateExportFailed(instanceID string, progressID string, errMsg string) error {
	f.status = types.EXPORT_STATUS_ERROR
	f.errMsg = errMsg
	return nil
}

func testParticipant(domain string, reference string) types.Participant {
	return types.Participant{
		ID:        primitive.NewObjectID(),
		Domain:    domain,
		Reference: reference,
		Status:    types.PARTICIPANT_STATUS_COMPLETED,
	}
}

func testSubmission(t *testing.T, ctx context.Context, store filestore.Store, p types.Participant, orderIndex int, status string, withObject bool) types.Submission {
	t.Helper()
	key := objectkey.Format(p.Domain, p.Reference, orderIndex, "photo.jpg")
	if withObject {
		require.NoError(t, store.Put(ctx, key, []byte("image-bytes-"+key), "image/jpeg"))
	}
	return types.Submission{
		ID:            primitive.NewObjectID(),
		ParticipantID: p.ID,
		Domain:        p.Domain,
		OrderIndex:    orderIndex,
		Key:           key,
		Status:        status,
		ThumbnailKey:  objectkey.FormatVariant(objectkey.Key{Domain: p.Domain, ParticipantRef: p.Reference, OrderIndex: orderIndex, FileName: "photo.jpg"}, objectkey.VARIANT_PREFIX_THUMBNAIL),
		SubmittedAt:   1700000000,
	}
}

func progressRow(domain string, participantRef string, exportType string) types.ZipExportProgress {
	return types.ZipExportProgress{
		ID:             primitive.NewObjectID(),
		AttemptID:      "attempt-1",
		Domain:         domain,
		ParticipantRef: participantRef,
		ExportType:     exportType,
		Status:         types.EXPORT_STATUS_PENDING,
	}
}

func readArchive(t *testing.T, ctx context.Context, store filestore.Store, resultKey string) (map[string][]byte, Manifest) {
	t.Helper()
	data, err := store.Get(ctx, resultKey)
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := map[string][]byte{}
	var manifest Manifest
	for _, file := range reader.File {
		rc, err := file.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()

		if file.Name == "manifest.json" {
			require.NoError(t, json.Unmarshal(content, &manifest))
			continue
		}
		entries[file.Name] = content
	}
	return entries, manifest
}

func TestExportEventArchive(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	p1 := testParticipant("summer2024", "P-0001")
	p2 := testParticipant("summer2024", "P-0002")
	empty := testParticipant("summer2024", "P-0003")

	records := &fakeRecords{
		participants: []types.Participant{p1, p2, empty},
		submissions: map[string][]types.Submission{
			p1.ID.Hex(): {
				testSubmission(t, ctx, store, p1, 0, types.SUBMISSION_STATUS_UPLOADED, true),
				testSubmission(t, ctx, store, p1, 1, types.SUBMISSION_STATUS_UPLOADED, true),
			},
			p2.ID.Hex(): {
				testSubmission(t, ctx, store, p2, 0, types.SUBMISSION_STATUS_APPROVED, true),
				// still initialized, not eligible
				testSubmission(t, ctx, store, p2, 1, types.SUBMISSION_STATUS_INITIALIZED, true),
			},
			// participant with zero eligible submissions is skipped
			empty.ID.Hex(): {},
		},
	}
	progress := &fakeProgress{}
	exporter := NewExporter(records, progress, store)

	row := progressRow("summer2024", "", types.EXPORT_TYPE_SUBMISSIONS)
	require.NoError(t, exporter.Run(ctx, "default", row))

	require.Equal(t, types.EXPORT_STATUS_COMPLETED, progress.status)
	require.Equal(t, 3, progress.totalItems)
	require.Equal(t, 3, progress.processedItems)

	entries, manifest := readArchive(t, ctx, store, progress.resultKey)
	require.Len(t, entries, 3)
	require.Contains(t, entries, "summer2024/P-0001/P-0001_000.jpg")
	require.Contains(t, entries, "summer2024/P-0001/P-0001_001.jpg")
	require.Contains(t, entries, "summer2024/P-0002/P-0002_000.jpg")

	require.Equal(t, "summer2024", manifest.Domain)
	require.Equal(t, 2, manifest.ParticipantCount)
	require.Equal(t, 3, manifest.SubmissionCount)

	// the whole-event export reads the ready set with a single domain query
	require.Equal(t, 1, records.readyQueries)
	require.Equal(t, 0, records.perParticipantQueries)
}

func TestExportSingleParticipant(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	p1 := testParticipant("summer2024", "P-0001")
	p2 := testParticipant("summer2024", "P-0002")
	records := &fakeRecords{
		participants: []types.Participant{p1, p2},
		submissions: map[string][]types.Submission{
			p1.ID.Hex(): {
				testSubmission(t, ctx, store, p1, 0, types.SUBMISSION_STATUS_UPLOADED, true),
				testSubmission(t, ctx, store, p1, 1, types.SUBMISSION_STATUS_UPLOADED, true),
			},
			p2.ID.Hex(): {
				testSubmission(t, ctx, store, p2, 0, types.SUBMISSION_STATUS_UPLOADED, true),
			},
		},
	}
	progress := &fakeProgress{}
	exporter := NewExporter(records, progress, store)

	require.NoError(t, exporter.Run(ctx, "default", progressRow("summer2024", "P-0001", types.EXPORT_TYPE_SUBMISSIONS)))

	entries, manifest := readArchive(t, ctx, store, progress.resultKey)
	require.Len(t, entries, 2)
	require.Equal(t, 1, manifest.ParticipantCount)
	require.Equal(t, 2, manifest.SubmissionCount)
	require.Equal(t, 0, records.readyQueries)
	require.Equal(t, 1, records.perParticipantQueries)
}

func TestExportSkipsUnfetchableFiles(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	p1 := testParticipant("summer2024", "P-0001")
	records := &fakeRecords{
		participants: []types.Participant{p1},
		submissions: map[string][]types.Submission{
			p1.ID.Hex(): {
				testSubmission(t, ctx, store, p1, 0, types.SUBMISSION_STATUS_UPLOADED, true),
				// object missing from the store
				testSubmission(t, ctx, store, p1, 1, types.SUBMISSION_STATUS_UPLOADED, false),
			},
		},
	}
	progress := &fakeProgress{}
	exporter := NewExporter(records, progress, store)

	require.NoError(t, exporter.Run(ctx, "default", progressRow("summer2024", "", types.EXPORT_TYPE_SUBMISSIONS)))

	entries, manifest := readArchive(t, ctx, store, progress.resultKey)
	require.Len(t, entries, 1, "missing file should be skipped, not abort the run")
	require.Equal(t, 1, manifest.SubmissionCount)
	require.Equal(t, types.EXPORT_STATUS_COMPLETED, progress.status)
}

func TestExportFailsWithoutEligibleParticipants(t *testing.T) {
	store, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	records := &fakeRecords{}
	progress := &fakeProgress{}
	exporter := NewExporter(records, progress, store)

	err = exporter.Run(context.Background(), "default", progressRow("empty-event", "", types.EXPORT_TYPE_SUBMISSIONS))
	require.ErrorIs(t, err, ErrNoEligibleParticipants)
	require.Equal(t, types.EXPORT_STATUS_ERROR, progress.status)
	require.NotEmpty(t, progress.errMsg)
}

func TestExportIsIdempotentForUnchangedSet(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	p1 := testParticipant("summer2024", "P-0001")
	records := &fakeRecords{
		participants: []types.Participant{p1},
		submissions: map[string][]types.Submission{
			p1.ID.Hex(): {
				testSubmission(t, ctx, store, p1, 0, types.SUBMISSION_STATUS_UPLOADED, true),
				testSubmission(t, ctx, store, p1, 1, types.SUBMISSION_STATUS_UPLOADED, true),
			},
		},
	}
	firstProgress := &fakeProgress{}
	exporter := NewExporter(records, firstProgress, store)
	require.NoError(t, exporter.Run(ctx, "default", progressRow("summer2024", "", types.EXPORT_TYPE_SUBMISSIONS)))
	_, firstManifest := readArchive(t, ctx, store, firstProgress.resultKey)

	secondProgress := &fakeProgress{}
	exporter = NewExporter(records, secondProgress, store)
	secondRow := progressRow("summer2024", "", types.EXPORT_TYPE_SUBMISSIONS)
	secondRow.AttemptID = "attempt-2"
	require.NoError(t, exporter.Run(ctx, "default", secondRow))
	_, secondManifest := readArchive(t, ctx, store, secondProgress.resultKey)

	require.Equal(t, firstManifest.ParticipantCount, secondManifest.ParticipantCount)
	require.Equal(t, firstManifest.SubmissionCount, secondManifest.SubmissionCount)
}

func TestExportThumbnailsUsesVariantKeys(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	p1 := testParticipant("summer2024", "P-0001")
	withThumb := testSubmission(t, ctx, store, p1, 0, types.SUBMISSION_STATUS_UPLOADED, true)
	require.NoError(t, store.Put(ctx, withThumb.ThumbnailKey, []byte("thumb-bytes"), "image/jpeg"))
	// thumbnail never generated for the second one: skipped for this export type
	withoutThumb := testSubmission(t, ctx, store, p1, 1, types.SUBMISSION_STATUS_UPLOADED, true)
	withoutThumb.ThumbnailKey = ""

	records := &fakeRecords{
		participants: []types.Participant{p1},
		submissions: map[string][]types.Submission{
			p1.ID.Hex(): {withThumb, withoutThumb},
		},
	}
	progress := &fakeProgress{}
	exporter := NewExporter(records, progress, store)

	require.NoError(t, exporter.Run(ctx, "default", progressRow("summer2024", "", types.EXPORT_TYPE_THUMBNAILS)))

	entries, manifest := readArchive(t, ctx, store, progress.resultKey)
	require.Len(t, entries, 1)
	require.Equal(t, []byte("thumb-bytes"), entries["summer2024/P-0001/P-0001_000.jpg"])
	require.Equal(t, 1, manifest.SubmissionCount)
}
